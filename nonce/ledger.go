// Package nonce tracks per-signer replay protection. A ledger stores the
// highest nonce each signer has committed; recording succeeds only for a
// strictly greater nonce. Gaps are allowed, reuse is not.
package nonce

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Ledger interface {
	// PeekNext returns the lowest nonce that would currently be accepted
	// for the signer. Pure read, never mutates.
	PeekNext(ctx context.Context, signer common.Address) (uint64, error)

	// Record marks the nonce as used. Fails with ErrNonceReplay when the
	// nonce is not strictly greater than the last recorded one. Check and
	// record are atomic per signer.
	Record(ctx context.Context, signer common.Address, nonce uint64) error
}
