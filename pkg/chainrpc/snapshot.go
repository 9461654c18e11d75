package chainrpc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

// identityPoolSize mirrors the indexer's schedulerBatchPool sizing
// (app/indexer/activity/context.go), bounded to at least 8 per the "bounded
// pool (>= 8)" requirement for identity enrichment concurrency.
func identityPoolSize() int {
	n := runtime.NumCPU() * 2
	if n < 8 {
		n = 8
	}
	return n
}

// Snapshotter builds one Snapshot per run by fanning out concurrent RPC
// queries against a Client and joining on completion.
type Snapshotter struct {
	client      Client
	logger      *zap.Logger
	historySize uint32
}

// NewSnapshotter constructs a Snapshotter over an already-connected Client.
func NewSnapshotter(client Client, logger *zap.Logger, historySize uint32) *Snapshotter {
	return &Snapshotter{client: client, logger: logger, historySize: historySize}
}

// Take issues the fan-out: current block, current era, active validators,
// waiting set, nominators, council votes, and governance activity
// concurrently, and awaits joint completion. Era points/prefs/slashes are
// not part of that fan-out: they are fetched in one call after the join,
// since the era window depends on the current era. It then fetches
// exposures sequentially per era and enriches every validator's identity
// through a bounded worker pool. Any RPC error aborts the whole snapshot.
func (s *Snapshotter) Take(ctx context.Context) (types.Snapshot, error) {
	var (
		blockHeight uint64
		currentEra  types.Era
		active      []ActiveValidator
		waiting     []WaitingIntention
		nominations []types.NominatorEntry
		council     CouncilVotes
		govActivity GovernanceActivity
		eraData     EraData
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { blockHeight, err = s.client.ChainHead(gctx); return })
	g.Go(func() (err error) { currentEra, err = s.client.CurrentEra(gctx); return })
	g.Go(func() (err error) { active, err = s.client.ActiveValidators(gctx); return })
	g.Go(func() (err error) { waiting, err = s.client.WaitingValidators(gctx); return })
	g.Go(func() (err error) { nominations, err = s.client.Nominators(gctx); return })
	g.Go(func() (err error) { council, err = s.client.CouncilVotes(gctx); return })
	g.Go(func() (err error) { govActivity, err = s.client.GovernanceActivity(gctx); return })

	if err := g.Wait(); err != nil {
		return types.Snapshot{}, fmt.Errorf("chain snapshot fan-out: %w", err)
	}

	eras := tailEras(currentEra, s.historySize)
	eraData, err := s.client.EraData(ctx, eras)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("chain snapshot era data: %w", err)
	}

	exposuresByEra := make(map[types.Era]map[string]types.Exposure, len(eras))
	for _, era := range eras {
		exposures, err := s.client.EraExposures(ctx, era)
		if err != nil {
			return types.Snapshot{}, fmt.Errorf("chain snapshot era exposures for era %d: %w", era, err)
		}
		exposuresByEra[era] = exposures
	}

	validators := make([]types.ValidatorRecord, 0, len(active)+len(waiting))
	for _, v := range active {
		exposure := v.Exposure
		validators = append(validators, types.ValidatorRecord{
			StashID:        v.StashID,
			ControllerID:   v.ControllerID,
			Active:         true,
			Exposure:       &exposure,
			ValidatorPrefs: v.Prefs,
		})
	}
	for _, v := range waiting {
		validators = append(validators, types.ValidatorRecord{
			StashID:        v.StashID,
			ControllerID:   v.ControllerID,
			Active:         false,
			StakingLedger:  v.StakingLedger,
			ValidatorPrefs: v.Prefs,
		})
	}

	if err := s.enrichIdentities(ctx, validators); err != nil {
		return types.Snapshot{}, fmt.Errorf("chain snapshot identity enrichment: %w", err)
	}

	history := buildHistory(validators, eras, eraData, exposuresByEra)

	return types.Snapshot{
		BlockHeight:  blockHeight,
		CurrentEra:   currentEra,
		Eras:         eras,
		Validators:   validators,
		Nominations:  nominations,
		CouncilVoted: council.Voters,
		GovActive:    govActivity.Active,
		History:      history,
	}, nil
}

// enrichIdentities issues one identity query per validator stash through a
// bounded pond pool, caching results in an xsync.Map keyed by account.
// Controller and identity-parent identities are not queried.
func (s *Snapshotter) enrichIdentities(ctx context.Context, validators []types.ValidatorRecord) error {
	pool := pond.NewPool(identityPoolSize())
	defer pool.StopAndWait()

	cache := xsync.NewMap[string, types.Identity]()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	var (
		errsMu sync.Mutex
		errs   []error
	)

	fetch := func(accountID string) (types.Identity, error) {
		if id, ok := cache.Load(accountID); ok {
			return id, nil
		}
		id, err := s.client.Identity(groupCtx, accountID)
		if err != nil {
			return types.Identity{}, err
		}
		cache.Store(accountID, id)
		return id, nil
	}

	for i := range validators {
		i := i
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			id, err := fetch(validators[i].StashID)
			if err != nil {
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("identity lookup for %s: %w", validators[i].StashID, err))
				errsMu.Unlock()
				return
			}
			validators[i].Identity = id
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		errsMu.Lock()
		errs = append(errs, err)
		errsMu.Unlock()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// tailEras returns the most recent min(historySize, currentEra+1) eras,
// oldest first, per "eraIndexes is the tail of the historic era list of
// length min(historySize, totalHistoric)".
func tailEras(currentEra types.Era, historySize uint32) []types.Era {
	total := uint32(currentEra) + 1
	n := historySize
	if n > total {
		n = total
	}
	eras := make([]types.Era, 0, n)
	start := uint32(currentEra) - n + 1
	for i := uint32(0); i < n; i++ {
		eras = append(eras, types.Era(start+i))
	}
	return eras
}

func buildHistory(validators []types.ValidatorRecord, eras []types.Era, eraData EraData, exposuresByEra map[types.Era]map[string]types.Exposure) map[string]types.ValidatorHistory {
	history := make(map[string]types.ValidatorHistory, len(validators))
	for _, v := range validators {
		h := types.ValidatorHistory{Exposures: make(map[types.Era]types.Exposure)}
		for _, era := range eras {
			if points, ok := eraData.Points[era]; ok {
				if p, ok := points[v.StashID]; ok {
					h.EraPoints = append(h.EraPoints, types.EraPointsEntry{Era: era, Points: p})
				}
			}
			if prefs, ok := eraData.Prefs[era]; ok {
				if p, ok := prefs[v.StashID]; ok {
					h.EraPrefs = append(h.EraPrefs, types.EraPrefsEntry{Era: era, Prefs: p})
				}
			}
			if slashes, ok := eraData.Slashes[era]; ok {
				if amt, ok := slashes[v.StashID]; ok {
					h.Slashes = append(h.Slashes, types.SlashEntry{Era: era, Amount: amt})
				}
			}
			if exposures, ok := exposuresByEra[era]; ok {
				if exp, ok := exposures[v.StashID]; ok {
					h.Exposures[era] = exp
				}
			}
		}
		history[v.StashID] = h
	}
	return history
}
