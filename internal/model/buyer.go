// Package model defines the domain records for the deal-flow matching core:
// buyer and deal profiles, buyer-deal matches, field provenance, duplicate
// groups, and enrichment checkpoints.
package model

import (
	"time"
)

// BuyerProfile is the golden record for a prospective acquirer. Narrative
// and targeting fields are progressively enriched from transcripts, notes,
// website scrapes, CSV imports, and manual edits; ExtractionSources tracks
// which source last wrote each enriched field.
type BuyerProfile struct {
	ID string `json:"id" db:"id"`

	// Identity
	Name                string `json:"name" db:"name"`
	PEFirmName          string `json:"pe_firm_name,omitempty" db:"pe_firm_name"`
	PlatformCompanyName string `json:"platform_company_name,omitempty" db:"platform_company_name"`
	Website             string `json:"website,omitempty" db:"website"`

	// Size preferences (USD millions)
	MinRevenue       *float64 `json:"min_revenue,omitempty" db:"min_revenue"`
	MaxRevenue       *float64 `json:"max_revenue,omitempty" db:"max_revenue"`
	RevenueSweetSpot *float64 `json:"revenue_sweet_spot,omitempty" db:"revenue_sweet_spot"`
	MinEBITDA        *float64 `json:"min_ebitda,omitempty" db:"min_ebitda"`
	MaxEBITDA        *float64 `json:"max_ebitda,omitempty" db:"max_ebitda"`
	EBITDASweetSpot  *float64 `json:"ebitda_sweet_spot,omitempty" db:"ebitda_sweet_spot"`

	// Targeting (unordered sets; replaced wholesale on merge)
	TargetServices    []string `json:"target_services,omitempty" db:"target_services"`
	TargetIndustries  []string `json:"target_industries,omitempty" db:"target_industries"`
	TargetGeographies []string `json:"target_geographies,omitempty" db:"target_geographies"`

	// Narrative
	ThesisSummary   string `json:"thesis_summary,omitempty" db:"thesis_summary"`
	BusinessSummary string `json:"business_summary,omitempty" db:"business_summary"`

	FeeAgreementSigned bool `json:"fee_agreement_signed" db:"fee_agreement_signed"`

	// ExtractionSources keys are a subset of populated profile fields; every
	// populated field that did not originate from manual entry has an entry.
	ExtractionSources Provenance `json:"extraction_sources,omitempty" db:"extraction_sources"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PopulatedFieldCount returns the number of non-empty enrichable fields.
// Used by dedup keeper selection: the richest record survives a merge.
func (b *BuyerProfile) PopulatedFieldCount() int {
	n := 0
	for _, s := range []string{
		b.Name, b.PEFirmName, b.PlatformCompanyName, b.Website,
		b.ThesisSummary, b.BusinessSummary,
	} {
		if s != "" {
			n++
		}
	}
	for _, f := range []*float64{
		b.MinRevenue, b.MaxRevenue, b.RevenueSweetSpot,
		b.MinEBITDA, b.MaxEBITDA, b.EBITDASweetSpot,
	} {
		if f != nil {
			n++
		}
	}
	for _, l := range [][]string{b.TargetServices, b.TargetIndustries, b.TargetGeographies} {
		if len(l) > 0 {
			n++
		}
	}
	return n
}

// DisplayName prefers the platform company name over the bare PE-firm name,
// falling back to Name.
func (b *BuyerProfile) DisplayName() string {
	if b.PlatformCompanyName != "" {
		return b.PlatformCompanyName
	}
	if b.Name != "" {
		return b.Name
	}
	return b.PEFirmName
}

// Contact is a person associated with a buyer.
type Contact struct {
	ID        string    `json:"id" db:"id"`
	BuyerID   string    `json:"buyer_id" db:"buyer_id"`
	FullName  string    `json:"full_name,omitempty" db:"full_name"`
	Title     string    `json:"title,omitempty" db:"title"`
	Email     string    `json:"email,omitempty" db:"email"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Source    string    `json:"source,omitempty" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Transcript is a stored call transcript linked to a buyer.
type Transcript struct {
	ID         string    `json:"id" db:"id"`
	BuyerID    string    `json:"buyer_id" db:"buyer_id"`
	Title      string    `json:"title,omitempty" db:"title"`
	Body       string    `json:"body,omitempty" db:"body"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
