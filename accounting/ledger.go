// Package accounting records verified exchanges and serves read-only
// aggregate queries over them. It is the local mirror of the authoritative
// settlement ledger: recording is idempotent per canonical request hash,
// and administrative control sits behind an owner check the rest of the
// core never bypasses.
package accounting

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexloom/lloom/settlement"
)

const Codespace = "lloom-accounting"

var ErrNotOwner = errorsmod.Register(Codespace, 2, "caller is not the ledger owner")

// PartyStats aggregates one side's usage, for either a client or an
// executor address.
type PartyStats struct {
	InboundTokens  uint64
	OutboundTokens uint64
	TotalCost      *big.Int
	ExchangeCount  uint64
}

type NetworkStats struct {
	InboundTokens  uint64
	OutboundTokens uint64
	TotalCost      *big.Int
	ExchangeCount  uint64
}

type Ledger interface {
	// RecordUsage stores one verified exchange. A second submission with
	// the same canonical request hash fails with ErrNonceReplay and is
	// never double-applied.
	RecordUsage(ctx context.Context, ex *settlement.VerifiedExchange) error

	// HasRecordedUsage reports whether the canonical request hash was
	// already settled here.
	HasRecordedUsage(ctx context.Context, requestHash common.Hash) (bool, error)

	ExecutorStats(ctx context.Context, executor common.Address) (PartyStats, error)
	ClientStats(ctx context.Context, client common.Address) (PartyStats, error)
	NetworkStats(ctx context.Context) (NetworkStats, error)

	Owner(ctx context.Context) (common.Address, error)

	// TransferOwnership hands control to newOwner. Only the current owner
	// may call it.
	TransferOwnership(ctx context.Context, caller, newOwner common.Address) error
}
