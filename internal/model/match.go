package model

import "time"

// MatchStatus is the decision state of a buyer-deal match.
type MatchStatus string

// Match decision states. Scoring moves a match from unscored to scored;
// user decisions move it into one of the terminal-ish states. Passed is
// terminal for outreach but does not prevent re-scoring; Approved can be
// reversed by a later pass.
const (
	MatchUnscored      MatchStatus = "unscored"
	MatchScored        MatchStatus = "scored"
	MatchApproved      MatchStatus = "approved"
	MatchInterested    MatchStatus = "interested"
	MatchNotInterested MatchStatus = "not_interested"
	MatchPassed        MatchStatus = "passed"
)

// CompletenessTier labels how much real signal backs a composite score.
type CompletenessTier string

// Completeness tiers, derived from the weakest dimension confidence.
const (
	TierHigh   CompletenessTier = "high"
	TierMedium CompletenessTier = "medium"
	TierLow    CompletenessTier = "low"
)

// Confidence is the coarse trust level of a single dimension score.
type Confidence string

// Dimension confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DimensionScore is one externally scored fit dimension for a buyer-deal pair.
type DimensionScore struct {
	Score          float64    `json:"score"` // 0-100
	IsDisqualified bool       `json:"is_disqualified"`
	Reason         string     `json:"reason,omitempty"`
	Confidence     Confidence `json:"confidence"`
}

// BuyerDealMatch is the per (buyer, deal) pair record. Score fields are
// written by the aggregator; decision fields are written by user actions.
// The two write paths never touch the same fields.
type BuyerDealMatch struct {
	ID      string `json:"id" db:"id"`
	BuyerID string `json:"buyer_id" db:"buyer_id"`
	DealID  string `json:"deal_id" db:"deal_id"`

	// Score fields
	GeographyScore    float64          `json:"geography_score" db:"geography_score"`
	ServicesScore     float64          `json:"services_score" db:"services_score"`
	SizeScore         float64          `json:"size_score" db:"size_score"`
	OwnerGoalsScore   float64          `json:"owner_goals_score" db:"owner_goals_score"`
	ThesisBonus       float64          `json:"thesis_bonus" db:"thesis_bonus"`
	CompositeScore    float64          `json:"composite_score" db:"composite_score"`
	Disqualified      bool             `json:"disqualified" db:"disqualified"`
	DisqualifyReasons []string         `json:"disqualify_reasons,omitempty" db:"disqualify_reasons"`
	Completeness      CompletenessTier `json:"completeness" db:"completeness"`
	ScoredAt          *time.Time       `json:"scored_at,omitempty" db:"scored_at"`

	// Decision fields are never overwritten by a re-score.
	Status              MatchStatus `json:"status" db:"status"`
	SelectedForOutreach bool        `json:"selected_for_outreach" db:"selected_for_outreach"`
	Interested          *bool       `json:"interested,omitempty" db:"interested"`
	PassedOnDeal        bool        `json:"passed_on_deal" db:"passed_on_deal"`
	PassCategory        string      `json:"pass_category,omitempty" db:"pass_category"`
	PassReason          string      `json:"pass_reason,omitempty" db:"pass_reason"`
	PassNotes           string      `json:"pass_notes,omitempty" db:"pass_notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ApplyScores copies score, disqualification, and completeness fields from
// scored onto m, leaving every decision field untouched.
func (m *BuyerDealMatch) ApplyScores(scored *BuyerDealMatch) {
	m.GeographyScore = scored.GeographyScore
	m.ServicesScore = scored.ServicesScore
	m.SizeScore = scored.SizeScore
	m.OwnerGoalsScore = scored.OwnerGoalsScore
	m.ThesisBonus = scored.ThesisBonus
	m.CompositeScore = scored.CompositeScore
	m.Disqualified = scored.Disqualified
	m.DisqualifyReasons = scored.DisqualifyReasons
	m.Completeness = scored.Completeness
	m.ScoredAt = scored.ScoredAt
	if m.Status == MatchUnscored || m.Status == "" {
		m.Status = MatchScored
	}
}
