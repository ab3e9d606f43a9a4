package nonce

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/dexloom/lloom/protocol"
)

var (
	signerA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	signerB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func ledgers(t *testing.T) map[string]Ledger {
	t.Helper()
	sqlite, err := OpenSqliteLedger(context.Background(), filepath.Join(t.TempDir(), "nonces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Ledger{
		"memory": NewMemoryLedger(),
		"sqlite": sqlite,
	}
}

func TestPeekNextStartsAtOne(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			next, err := ledger.PeekNext(context.Background(), signerA)
			require.NoError(t, err)
			require.Equal(t, uint64(1), next)
		})
	}
}

func TestPeekNextIsPure(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 3; i++ {
				next, err := ledger.PeekNext(ctx, signerA)
				require.NoError(t, err)
				require.Equal(t, uint64(1), next)
			}
			require.NoError(t, ledger.Record(ctx, signerA, 1))
		})
	}
}

func TestRecordMonotonic(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, ledger.Record(ctx, signerA, 1))
			require.NoError(t, ledger.Record(ctx, signerA, 2))

			// same nonce and lower nonce are both replays
			require.ErrorIs(t, ledger.Record(ctx, signerA, 2), protocol.ErrNonceReplay)
			require.ErrorIs(t, ledger.Record(ctx, signerA, 1), protocol.ErrNonceReplay)

			next, err := ledger.PeekNext(ctx, signerA)
			require.NoError(t, err)
			require.Equal(t, uint64(3), next)
		})
	}
}

func TestRecordAllowsGaps(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, ledger.Record(ctx, signerA, 5))
			require.ErrorIs(t, ledger.Record(ctx, signerA, 3), protocol.ErrNonceReplay)
			require.NoError(t, ledger.Record(ctx, signerA, 100))

			next, err := ledger.PeekNext(ctx, signerA)
			require.NoError(t, err)
			require.Equal(t, uint64(101), next)
		})
	}
}

func TestSignersAreIndependent(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, ledger.Record(ctx, signerA, 10))
			require.NoError(t, ledger.Record(ctx, signerB, 1))

			next, err := ledger.PeekNext(ctx, signerB)
			require.NoError(t, err)
			require.Equal(t, uint64(2), next)
		})
	}
}

func TestSqliteLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nonces.db")

	ledger, err := OpenSqliteLedger(ctx, path)
	require.NoError(t, err)
	require.NoError(t, ledger.Record(ctx, signerA, 7))
	require.NoError(t, ledger.Close())

	reopened, err := OpenSqliteLedger(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	require.ErrorIs(t, reopened.Record(ctx, signerA, 7), protocol.ErrNonceReplay)
	next, err := reopened.PeekNext(ctx, signerA)
	require.NoError(t, err)
	require.Equal(t, uint64(8), next)
}

func TestConcurrentRecordSingleWinner(t *testing.T) {
	for name, ledger := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 16

			var wg sync.WaitGroup
			results := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results <- ledger.Record(ctx, signerA, 42)
				}()
			}
			wg.Wait()
			close(results)

			succeeded := 0
			for err := range results {
				if err == nil {
					succeeded++
				} else {
					require.ErrorIs(t, err, protocol.ErrNonceReplay)
				}
			}
			require.Equal(t, 1, succeeded)
		})
	}
}
