package model

// DuplicateMatchType is the signal a duplicate group was formed on.
type DuplicateMatchType string

// Duplicate grouping signals. Domain matches are higher confidence and are
// checked before name matches.
const (
	MatchByDomain DuplicateMatchType = "domain"
	MatchByName   DuplicateMatchType = "name"
)

// DuplicateGroup is a transient set of buyer records believed to represent
// the same real-world company. Regenerated per dedup run, never persisted.
type DuplicateGroup struct {
	Key       string             `json:"key"`
	MatchType DuplicateMatchType `json:"match_type"`
	MemberIDs []string           `json:"member_ids"`

	// KeeperID is the proposed surviving record: the member with the most
	// populated fields, ties broken by earliest creation.
	KeeperID string `json:"keeper_id"`

	// Proposed names are heuristics surfaced for user confirmation and are
	// never applied silently.
	ProposedDisplayName string `json:"proposed_display_name,omitempty"`
	ProposedPEFirmName  string `json:"proposed_pe_firm_name,omitempty"`
}

// MergeOutcome reports the result of executing one duplicate group merge.
type MergeOutcome struct {
	SurvivorID string   `json:"survivor_id"`
	RemovedIDs []string `json:"removed_ids"`
}
