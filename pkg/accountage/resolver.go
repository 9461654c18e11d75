// Package accountage resolves the block height at which a stash (and its
// identity parent, if any) first appeared on chain, by querying the event
// table the out-of-scope block crawler populates.
package accountage

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/canopy-network/validator-ranker/pkg/db/clickhouse"
)

// Resolver looks up the earliest block at which an address was first
// referenced by a NewAccount event, grounded on the global event table shape
// (pkg/db/global/event.go) but queried against a plain
// event(method, data, block_number) projection.
type Resolver struct {
	db     *clickhouse.Client
	logger *zap.Logger
}

func NewResolver(db *clickhouse.Client, logger *zap.Logger) *Resolver {
	return &Resolver{db: db, logger: logger}
}

// Result is the resolved creation block for a stash and its identity parent, if any.
type Result struct {
	StashCreatedAtBlock  uint64
	ParentCreatedAtBlock *uint64
}

// poolSize mirrors the identity enrichment pool's sizing: at least 8, scaling with CPU.
func poolSize() int {
	n := runtime.NumCPU() * 2
	if n < 8 {
		n = 8
	}
	return n
}

// ResolveAll resolves the creation block for every (stash, parent) pair,
// executing lookups in parallel through a bounded pool. Lookups never
// interleave with writes - this package only ever reads.
func (r *Resolver) ResolveAll(ctx context.Context, stashes []string, parents map[string]string) (map[string]Result, error) {
	pool := pond.NewPool(poolSize())
	defer pool.StopAndWait()

	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	results := make(map[string]Result, len(stashes))
	var mu sync.Mutex
	var firstErr error

	for _, stash := range stashes {
		stash := stash
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			res, err := r.resolveOne(groupCtx, stash, parents[stash])
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("resolve account age for %s: %w", stash, err)
				}
				mu.Unlock()
				return
			}
			mu.Lock()
			results[stash] = res
			mu.Unlock()
		})
	}

	if err := group.Wait(); err != nil {
		r.logger.Warn("account age resolution pool reported an error", zap.Error(err))
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

func (r *Resolver) resolveOne(ctx context.Context, stash, parent string) (Result, error) {
	stashBlock, err := r.firstAppearance(ctx, stash)
	if err != nil {
		return Result{}, err
	}

	res := Result{StashCreatedAtBlock: stashBlock}
	if parent == "" {
		return res, nil
	}

	parentBlock, err := r.firstAppearance(ctx, parent)
	if err != nil {
		return Result{}, err
	}
	res.ParentCreatedAtBlock = &parentBlock
	return res, nil
}

// firstAppearance returns the earliest block_number at which a NewAccount
// event's data references address, using a coarse substring match. Returns 0
// (genesis-present) when no such event exists.
func (r *Resolver) firstAppearance(ctx context.Context, address string) (uint64, error) {
	query := `
		SELECT min(block_number)
		FROM event
		WHERE method = 'NewAccount' AND data LIKE ?
	`
	var block *uint64
	row := r.db.QueryRow(ctx, query, "%"+address+"%")
	if err := row.Scan(&block); err != nil {
		if clickhouse.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	if block == nil {
		return 0, nil
	}
	return *block, nil
}
