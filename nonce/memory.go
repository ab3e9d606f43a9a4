package nonce

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexloom/lloom/protocol"
)

// MemoryLedger keeps nonces in process memory. State is lost on restart,
// so it suits tests and single-run tools; durable deployments use the
// SQLite ledger.
type MemoryLedger struct {
	mu     sync.Mutex
	latest map[common.Address]uint64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{latest: make(map[common.Address]uint64)}
}

func (l *MemoryLedger) PeekNext(_ context.Context, signer common.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest[signer] + 1, nil
}

func (l *MemoryLedger) Record(_ context.Context, signer common.Address, nonce uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if stored := l.latest[signer]; nonce <= stored {
		return errorsmod.Wrapf(protocol.ErrNonceReplay, "signer %s: nonce %d <= recorded %d", signer, nonce, stored)
	}
	l.latest[signer] = nonce
	return nil
}
