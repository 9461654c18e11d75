package chainrpc

import (
	"context"

	"github.com/canopy-network/validator-ranker/pkg/ranking/types"
)

type headerWire struct {
	Number uint64 `json:"number"`
}

func (c *WSClient) ChainHead(ctx context.Context) (uint64, error) {
	var out headerWire
	if err := c.call(ctx, "chain_getHeader", nil, &out); err != nil {
		return 0, err
	}
	return out.Number, nil
}

func (c *WSClient) CurrentEra(ctx context.Context) (types.Era, error) {
	var out uint32
	if err := c.call(ctx, "staking_currentEra", nil, &out); err != nil {
		return 0, err
	}
	return types.Era(out), nil
}

func (c *WSClient) ActiveValidators(ctx context.Context) ([]ActiveValidator, error) {
	var out []ActiveValidator
	if err := c.call(ctx, "staking_activeValidators", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WSClient) WaitingValidators(ctx context.Context) ([]WaitingIntention, error) {
	var out []WaitingIntention
	if err := c.call(ctx, "staking_waitingValidators", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WSClient) Nominators(ctx context.Context) ([]types.NominatorEntry, error) {
	var out []types.NominatorEntry
	if err := c.call(ctx, "staking_nominators", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *WSClient) CouncilVotes(ctx context.Context) (CouncilVotes, error) {
	var voters []string
	if err := c.call(ctx, "council_votes", nil, &voters); err != nil {
		return CouncilVotes{}, err
	}
	set := make(map[string]struct{}, len(voters))
	for _, v := range voters {
		set[v] = struct{}{}
	}
	return CouncilVotes{Voters: set}, nil
}

type governanceActivityWire struct {
	Proposers        []string `json:"proposers"`
	Seconders        []string `json:"seconders"`
	ReferendumVoters []string `json:"referendumVoters"`
}

func (c *WSClient) GovernanceActivity(ctx context.Context) (GovernanceActivity, error) {
	var wire governanceActivityWire
	if err := c.call(ctx, "democracy_activity", nil, &wire); err != nil {
		return GovernanceActivity{}, err
	}
	active := make(map[string]struct{})
	for _, group := range [][]string{wire.Proposers, wire.Seconders, wire.ReferendumVoters} {
		for _, addr := range group {
			active[addr] = struct{}{}
		}
	}
	return GovernanceActivity{Active: active}, nil
}

type eraDataParams struct {
	Eras []types.Era `json:"eras"`
}

type eraDataWire struct {
	Points  map[string]map[string]uint64      `json:"points"`
	Prefs   map[string]map[string]types.Prefs `json:"prefs"`
	Slashes map[string]map[string]types.Stake `json:"slashes"`
}

func (c *WSClient) EraData(ctx context.Context, eras []types.Era) (EraData, error) {
	var wire eraDataWire
	if err := c.call(ctx, "staking_eraData", eraDataParams{Eras: eras}, &wire); err != nil {
		return EraData{}, err
	}
	return EraData{
		Points:  reindexByEra(wire.Points),
		Prefs:   reindexByEra(wire.Prefs),
		Slashes: reindexByEra(wire.Slashes),
	}, nil
}

// reindexByEra converts the wire format's string-keyed era map (required
// because eras aren't valid JSON object keys as anything but strings) into
// the typed types.Era-keyed map the scorer consumes.
func reindexByEra[V any](wire map[string]map[string]V) map[types.Era]map[string]V {
	out := make(map[types.Era]map[string]V, len(wire))
	for eraStr, byStash := range wire {
		out[parseEra(eraStr)] = byStash
	}
	return out
}

func parseEra(s string) types.Era {
	var n uint32
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + uint32(r-'0')
	}
	return types.Era(n)
}

type eraExposuresParams struct {
	Era types.Era `json:"era"`
}

func (c *WSClient) EraExposures(ctx context.Context, era types.Era) (map[string]types.Exposure, error) {
	var out map[string]types.Exposure
	if err := c.call(ctx, "staking_eraExposures", eraExposuresParams{Era: era}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type identityParams struct {
	AccountID string `json:"accountId"`
}

func (c *WSClient) Identity(ctx context.Context, accountID string) (types.Identity, error) {
	var out types.Identity
	if err := c.call(ctx, "identity_of", identityParams{AccountID: accountID}, &out); err != nil {
		return types.Identity{}, err
	}
	return out, nil
}
