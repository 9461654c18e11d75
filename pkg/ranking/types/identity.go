package types

// JudgementKind is a registrar's attestation classification about an identity.
type JudgementKind string

const (
	JudgementFeePaid    JudgementKind = "FeePaid"
	JudgementKnownGood  JudgementKind = "KnownGood"
	JudgementReasonable JudgementKind = "Reasonable"
	JudgementOther      JudgementKind = "Other"
)

// Judgement carries one registrar's attestation about an identity.
type Judgement struct {
	Kind JudgementKind `json:"kind"`
}

// Identity is the on-chain identity record attached to an account, if any.
type Identity struct {
	Display       string      `json:"display,omitempty"`
	Legal         string      `json:"legal,omitempty"`
	Web           string      `json:"web,omitempty"`
	Email         string      `json:"email,omitempty"`
	Twitter       string      `json:"twitter,omitempty"`
	Riot          string      `json:"riot,omitempty"`
	DisplayParent string      `json:"displayParent,omitempty"`
	Parent        string      `json:"parent,omitempty"`
	Judgements    []Judgement `json:"judgements,omitempty"`
}

// Verified reports whether the identity carries at least one non-FeePaid
// judgement of kind KnownGood or Reasonable.
func (id Identity) Verified() bool {
	for _, j := range id.Judgements {
		if j.Kind == JudgementKnownGood || j.Kind == JudgementReasonable {
			return true
		}
	}
	return false
}

// AllFieldsSet reports whether every textual identity field is non-empty.
func (id Identity) AllFieldsSet() bool {
	return id.Display != "" && id.Legal != "" && id.Web != "" &&
		id.Email != "" && id.Twitter != "" && id.Riot != ""
}

// HasSubIdentity reports whether this identity is a sub-account of a parent identity.
func (id Identity) HasSubIdentity() bool {
	return id.DisplayParent != ""
}

// Name assembles the display name: "{displayParent}/{display}" when both are
// set, otherwise just display (possibly empty).
func (id Identity) Name() string {
	if id.DisplayParent != "" && id.Display != "" {
		return id.DisplayParent + "/" + id.Display
	}
	return id.Display
}
