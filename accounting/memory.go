package accounting

import (
	"context"
	"math/big"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dexloom/lloom/logging"
	"github.com/dexloom/lloom/protocol"
	"github.com/dexloom/lloom/settlement"
)

// MemoryLedger keeps usage in process memory, for tests and single-run
// tooling.
type MemoryLedger struct {
	mu        sync.RWMutex
	owner     common.Address
	seen      map[common.Hash]struct{}
	executors map[common.Address]*PartyStats
	clients   map[common.Address]*PartyStats
	network   NetworkStats
}

func NewMemoryLedger(owner common.Address) *MemoryLedger {
	return &MemoryLedger{
		owner:     owner,
		seen:      make(map[common.Hash]struct{}),
		executors: make(map[common.Address]*PartyStats),
		clients:   make(map[common.Address]*PartyStats),
		network:   NetworkStats{TotalCost: new(big.Int)},
	}
}

func (l *MemoryLedger) RecordUsage(_ context.Context, ex *settlement.VerifiedExchange) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	requestHash := ex.Response.Commitment.RequestHash
	if _, dup := l.seen[requestHash]; dup {
		return errorsmod.Wrapf(protocol.ErrNonceReplay, "request %s already recorded", requestHash)
	}
	l.seen[requestHash] = struct{}{}

	in := uint64(ex.Response.Commitment.InboundTokens)
	out := uint64(ex.Response.Commitment.OutboundTokens)
	addUsage(statsFor(l.executors, ex.Executor), in, out, ex.Cost)
	addUsage(statsFor(l.clients, ex.Client), in, out, ex.Cost)
	l.network.InboundTokens += in
	l.network.OutboundTokens += out
	l.network.TotalCost.Add(l.network.TotalCost, ex.Cost)
	l.network.ExchangeCount++

	logging.Debug("Recorded usage", protocol.Accounting,
		"requestHash", requestHash, "client", ex.Client, "executor", ex.Executor, "cost", ex.Cost)
	return nil
}

func (l *MemoryLedger) HasRecordedUsage(_ context.Context, requestHash common.Hash) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[requestHash]
	return ok, nil
}

func (l *MemoryLedger) ExecutorStats(_ context.Context, executor common.Address) (PartyStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyStats(l.executors[executor]), nil
}

func (l *MemoryLedger) ClientStats(_ context.Context, client common.Address) (PartyStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyStats(l.clients[client]), nil
}

func (l *MemoryLedger) NetworkStats(_ context.Context) (NetworkStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := l.network
	out.TotalCost = new(big.Int).Set(l.network.TotalCost)
	return out, nil
}

func (l *MemoryLedger) Owner(_ context.Context) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.owner, nil
}

func (l *MemoryLedger) TransferOwnership(_ context.Context, caller, newOwner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller != l.owner {
		return errorsmod.Wrapf(ErrNotOwner, "caller %s, owner %s", caller, l.owner)
	}
	logging.Info("Ledger ownership transferred", protocol.Accounting, "from", l.owner, "to", newOwner)
	l.owner = newOwner
	return nil
}

func statsFor(m map[common.Address]*PartyStats, addr common.Address) *PartyStats {
	s, ok := m[addr]
	if !ok {
		s = &PartyStats{TotalCost: new(big.Int)}
		m[addr] = s
	}
	return s
}

func addUsage(s *PartyStats, in, out uint64, cost *big.Int) {
	s.InboundTokens += in
	s.OutboundTokens += out
	s.TotalCost.Add(s.TotalCost, cost)
	s.ExchangeCount++
}

func copyStats(s *PartyStats) PartyStats {
	if s == nil {
		return PartyStats{TotalCost: new(big.Int)}
	}
	out := *s
	out.TotalCost = new(big.Int).Set(s.TotalCost)
	return out
}
