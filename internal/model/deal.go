package model

import "time"

// DealStatus is the lifecycle state of a deal.
type DealStatus string

// Deal lifecycle states.
const (
	DealActive   DealStatus = "active"
	DealClosed   DealStatus = "closed"
	DealArchived DealStatus = "archived"
)

// DealProfile is a company for sale being matched against buyers. Deals are
// enriched through the same provenance-tracked merge path as buyers but are
// never auto-merged with one another: dedup applies to buyers only, deals are
// matched by website lookup at creation time.
type DealProfile struct {
	ID string `json:"id" db:"id"`

	CompanyName string     `json:"company_name" db:"company_name"`
	Website     string     `json:"website,omitempty" db:"website"`
	Status      DealStatus `json:"status" db:"status"`

	// Financials (USD millions)
	Revenue *float64 `json:"revenue,omitempty" db:"revenue"`
	EBITDA  *float64 `json:"ebitda,omitempty" db:"ebitda"`

	Services   []string `json:"services,omitempty" db:"services"`
	Industries []string `json:"industries,omitempty" db:"industries"`
	Geography  string   `json:"geography,omitempty" db:"geography"`
	OwnerGoals string   `json:"owner_goals,omitempty" db:"owner_goals"`

	BusinessSummary string `json:"business_summary,omitempty" db:"business_summary"`

	// QualityScore is the composite deal quality score, when computed.
	QualityScore *float64 `json:"quality_score,omitempty" db:"quality_score"`

	// Weights tune the composite fit score for this deal's buyer list.
	Weights DimensionWeights `json:"weights" db:"weights"`

	ExtractionSources Provenance `json:"extraction_sources,omitempty" db:"extraction_sources"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DimensionWeights are per-deal multipliers for the four fit dimensions.
// A zero weight excludes the dimension from the composite entirely.
type DimensionWeights struct {
	Geography  *float64 `json:"geography,omitempty"`
	Services   *float64 `json:"services,omitempty"`
	Size       *float64 `json:"size,omitempty"`
	OwnerGoals *float64 `json:"owner_goals,omitempty"`
}

// valueOr returns the weight value, defaulting to 1.0 when unset.
func valueOr(w *float64) float64 {
	if w == nil {
		return 1.0
	}
	return *w
}

// GeographyWeight returns the geography weight, defaulting to 1.0.
func (w DimensionWeights) GeographyWeight() float64 { return valueOr(w.Geography) }

// ServicesWeight returns the services weight, defaulting to 1.0.
func (w DimensionWeights) ServicesWeight() float64 { return valueOr(w.Services) }

// SizeWeight returns the size weight, defaulting to 1.0.
func (w DimensionWeights) SizeWeight() float64 { return valueOr(w.Size) }

// OwnerGoalsWeight returns the owner-goals weight, defaulting to 1.0.
func (w DimensionWeights) OwnerGoalsWeight() float64 { return valueOr(w.OwnerGoals) }
