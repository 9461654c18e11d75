// Package chainrpc is the adapter between the ranking pipeline and the chain
// node's WebSocket JSON-RPC surface. The wire-level RPC methods named here
// are illustrative: the chain RPC client itself is an external collaborator
// (out of scope), so this package plays the role the indexer's pkg/rpc plays
// for its own chain - a thin, typed adapter in front of dynamically-typed
// chain responses.
package chainrpc

import (
	"context"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

// ActiveValidator is a member of the current session's active set.
type ActiveValidator struct {
	StashID      string
	ControllerID string
	Prefs        types.Prefs
	Exposure     types.Exposure
}

// WaitingIntention is a validator that has declared a staking intention but
// is not currently in the active session set.
type WaitingIntention struct {
	StashID       string
	ControllerID  string
	Prefs         types.Prefs
	StakingLedger types.StakingLedger
}

// CouncilVotes holds the addresses backed by the council.
type CouncilVotes struct {
	Voters map[string]struct{}
}

// GovernanceActivity holds addresses active as proposer, seconder, or
// referendum voter in the democracy pallet.
type GovernanceActivity struct {
	Active map[string]struct{}
}

// EraData bundles the per-era points and prefs fetched for the selected eras
// of history, keyed by stash ID.
type EraData struct {
	Points  map[types.Era]map[string]uint64
	Prefs   map[types.Era]map[string]types.Prefs
	Slashes map[types.Era]map[string]types.Stake
}

// Client is the chain RPC surface the ranking pipeline depends on.
type Client interface {
	ChainHead(ctx context.Context) (uint64, error)
	CurrentEra(ctx context.Context) (types.Era, error)
	ActiveValidators(ctx context.Context) ([]ActiveValidator, error)
	WaitingValidators(ctx context.Context) ([]WaitingIntention, error)
	Nominators(ctx context.Context) ([]types.NominatorEntry, error)
	CouncilVotes(ctx context.Context) (CouncilVotes, error)
	GovernanceActivity(ctx context.Context) (GovernanceActivity, error)
	EraData(ctx context.Context, eras []types.Era) (EraData, error)
	EraExposures(ctx context.Context, era types.Era) (map[string]types.Exposure, error)
	Identity(ctx context.Context, accountID string) (types.Identity, error)
	Close() error
}

// Factory builds a Client for a given WebSocket endpoint, mirroring the
// indexer's rpc.Factory/NewHTTPFactory pattern so tests can substitute a fake.
type Factory func(ctx context.Context, endpoint string, opts Opts) (Client, error)

// NewWSFactory returns the production Factory, mirroring rpc.NewHTTPFactory's role.
func NewWSFactory() Factory {
	return func(ctx context.Context, endpoint string, opts Opts) (Client, error) {
		return NewWSClient(ctx, endpoint, opts)
	}
}
