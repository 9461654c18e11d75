package types

// Snapshot is the frozen result of one ChainSnapshot fan-out: the joined
// chain state a run scores against. Nothing downstream mutates it.
type Snapshot struct {
	BlockHeight uint64
	CurrentEra  Era
	Eras        []Era // tail of historic eras, oldest first

	Validators []ValidatorRecord // activeValidators ++ waitingIntentions, in that order

	Nominations  []NominatorEntry
	CouncilVoted map[string]struct{} // stash/controller addresses backed by council
	GovActive    map[string]struct{} // stash/controller active in governance

	History map[string]ValidatorHistory // keyed by stash ID

	IncludedThousandValidators map[string]bool // keyed by stash ID
}

// NominatorEntry is a single nominator's full target list.
type NominatorEntry struct {
	Nominator string
	Targets   []string
}

// TargetCount returns how many nominator entries target accountID.
func (s Snapshot) TargetCount(accountID string) int {
	n := 0
	for _, entry := range s.Nominations {
		for _, t := range entry.Targets {
			if t == accountID {
				n++
				break
			}
		}
	}
	return n
}
