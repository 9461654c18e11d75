package types

// ValidatorRecord is a validator as seen by ChainSnapshot, before scoring.
type ValidatorRecord struct {
	StashID      string
	ControllerID string
	Active       bool

	Identity Identity

	// Exposure is set only when Active is true. Every active validator MUST
	// have exposure data; a missing exposure for an active validator is a
	// schema invariant violation and causes that validator to be skipped
	// rather than aborting the run.
	Exposure *Exposure

	StakingLedger  StakingLedger
	ValidatorPrefs Prefs
}

// EraPointsEntry is one era's accumulated points for a stash.
type EraPointsEntry struct {
	Era    Era
	Points uint64
}

// EraPrefsEntry is one era's recorded commission preferences for a stash.
type EraPrefsEntry struct {
	Era   Era
	Prefs Prefs
}

// SlashEntry is one recorded slash against a stash within the history window.
type SlashEntry struct {
	Era    Era
	Amount Stake
}

// ValidatorHistory bundles the per-era series ChainSnapshot assembled for one
// stash across the sampled history window.
type ValidatorHistory struct {
	EraPoints []EraPointsEntry
	EraPrefs  []EraPrefsEntry
	Slashes   []SlashEntry
	// Exposures is keyed by era, present only for eras where the validator
	// was active in the session. Absent eras contribute zero performance.
	Exposures map[Era]Exposure
}
