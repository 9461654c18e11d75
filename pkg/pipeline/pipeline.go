// Package pipeline wires ChainSnapshot, AccountAgeResolver, Scorer,
// ClusterAnalyzer, DominanceAnalyzer, and RankingWriter into the single run
// the Scheduler re-invokes on every tick.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/canopy-network/validator-ranker/pkg/accountage"
	"github.com/canopy-network/validator-ranker/pkg/chainrpc"
	"github.com/canopy-network/validator-ranker/pkg/config"
	"github.com/canopy-network/validator-ranker/pkg/ranking/cluster"
	"github.com/canopy-network/validator-ranker/pkg/ranking/dominance"
	"github.com/canopy-network/validator-ranker/pkg/ranking/scorer"
	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
	"github.com/canopy-network/validator-ranker/pkg/rankingstore"
)

// Pipeline holds every stage's already-constructed dependency and exposes
// one Run method the scheduler invokes on every tick.
type Pipeline struct {
	snapshotter        *chainrpc.Snapshotter
	ages               *accountage.Resolver
	thousandValidators *chainrpc.ThousandValidatorsFetcher
	store              *rankingstore.Store
	cfg                *config.Config
	logger             *zap.Logger
}

// New assembles a Pipeline from its already-connected collaborators.
func New(client chainrpc.Client, ages *accountage.Resolver, thousandValidators *chainrpc.ThousandValidatorsFetcher, store *rankingstore.Store, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		snapshotter:        chainrpc.NewSnapshotter(client, logger, cfg.HistorySize),
		ages:               ages,
		thousandValidators: thousandValidators,
		store:              store,
		cfg:                cfg,
		logger:             logger,
	}
}

// Run executes one full ranking run: snapshot, resolve account ages, score,
// cluster, mark dominance, and write. A chain snapshot or account-age
// resolution failure aborts the run; the thousand-validator fetch never
// fails the run (absorbed inside the fetcher, which falls back to a cached
// or empty set); per-row and per-total write failures are absorbed inside
// RankingWriter; a missing exposure for an active validator is dropped by
// the Scorer rather than aborting.
func (p *Pipeline) Run(ctx context.Context) error {
	snapshot, err := p.snapshotter.Take(ctx)
	if err != nil {
		return fmt.Errorf("chain snapshot: %w", err)
	}

	ages, err := p.resolveAges(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("account age resolution: %w", err)
	}

	included := p.thousandValidators.Fetch(ctx)

	ranked := scorer.ScoreAll(snapshot, ages, included, scorer.Params{
		BlockHeight:                      snapshot.BlockHeight,
		ErasPerDay:                       p.cfg.ErasPerDay,
		TokenDecimals:                    p.cfg.TokenDecimals,
		MaxNominatorRewardedPerValidator: p.cfg.MaxNominatorRewardedPerValidator,
	})

	cluster.Analyze(ranked)
	dominance.Mark(ranked)

	totals := computeTotals(snapshot)

	if err := p.store.WriteRanking(ctx, snapshot.BlockHeight, ranked, totals); err != nil {
		return fmt.Errorf("write ranking: %w", err)
	}

	p.logger.Info("ranking run completed",
		zap.Uint64("blockHeight", snapshot.BlockHeight),
		zap.Int("validatorCount", len(ranked)))
	return nil
}

func (p *Pipeline) resolveAges(ctx context.Context, snapshot types.Snapshot) (map[string]scorer.AccountAge, error) {
	stashes := make([]string, len(snapshot.Validators))
	parents := make(map[string]string, len(snapshot.Validators))
	for i, v := range snapshot.Validators {
		stashes[i] = v.StashID
		if v.Identity.Parent != "" {
			parents[v.StashID] = v.Identity.Parent
		}
	}

	resolved, err := p.ages.ResolveAll(ctx, stashes, parents)
	if err != nil {
		return nil, err
	}

	ages := make(map[string]scorer.AccountAge, len(resolved))
	for stash, res := range resolved {
		ages[stash] = scorer.AccountAge{StashBlock: res.StashCreatedAtBlock, ParentBlock: res.ParentCreatedAtBlock}
	}
	return ages, nil
}

// computeTotals derives the singleton total(name, count) rows: counts of
// active/waiting validators and nominator entries, the current era, and the
// smallest nomination value across every active validator's exposure.
func computeTotals(snapshot types.Snapshot) rankingstore.Totals {
	totals := rankingstore.Totals{
		NominatorCount: len(snapshot.Nominations),
		CurrentEra:     snapshot.CurrentEra,
	}

	var minStake types.Stake
	for _, v := range snapshot.Validators {
		if v.Active {
			totals.ActiveValidatorCount++
		} else {
			totals.WaitingValidatorCount++
		}
		if v.Exposure == nil {
			continue
		}
		for _, nominee := range v.Exposure.Others {
			if minStake == nil {
				minStake = nominee.Value
				continue
			}
			minStake = types.MinStake(minStake, nominee.Value)
		}
	}

	if minStake == nil {
		minStake = types.ZeroStake()
	}
	totals.MinimumStake = minStake

	return totals
}
