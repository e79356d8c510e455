package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldSourceRank(t *testing.T) {
	t.Parallel()

	assert.Greater(t, SourceTranscript.Rank(), SourceNotes.Rank())
	assert.Greater(t, SourceNotes.Rank(), SourceWebsite.Rank())
	assert.Greater(t, SourceWebsite.Rank(), SourceCSV.Rank())
	assert.Greater(t, SourceCSV.Rank(), SourceManual.Rank())
	assert.Equal(t, 0, FieldSource("linkedin").Rank())
	assert.False(t, FieldSource("linkedin").Valid())
	assert.True(t, SourceTranscript.Valid())
}

func TestProvenanceClone(t *testing.T) {
	t.Parallel()

	orig := Provenance{"min_revenue": {Source: SourceTranscript, ExtractedAt: time.Now()}}
	clone := orig.Clone()
	clone["min_revenue"] = FieldOrigin{Source: SourceManual}

	assert.Equal(t, SourceTranscript, orig["min_revenue"].Source)
	assert.Nil(t, Provenance(nil).Clone())
}

func TestBuyerPopulatedFieldCount(t *testing.T) {
	t.Parallel()

	empty := &BuyerProfile{}
	assert.Equal(t, 0, empty.PopulatedFieldCount())

	five := 5.0
	b := &BuyerProfile{
		Name:             "Summit Partners",
		Website:          "https://summit.com",
		MinRevenue:       &five,
		TargetIndustries: []string{"HVAC"},
	}
	assert.Equal(t, 4, b.PopulatedFieldCount())
}

func TestBuyerDisplayName(t *testing.T) {
	t.Parallel()

	t.Run("prefers platform company name", func(t *testing.T) {
		t.Parallel()
		b := &BuyerProfile{Name: "Acme", PEFirmName: "Summit Partners", PlatformCompanyName: "Acme Services"}
		assert.Equal(t, "Acme Services", b.DisplayName())
	})

	t.Run("falls back to name then firm", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "Acme", (&BuyerProfile{Name: "Acme", PEFirmName: "Summit"}).DisplayName())
		assert.Equal(t, "Summit", (&BuyerProfile{PEFirmName: "Summit"}).DisplayName())
	})
}

func TestApplyScoresPreservesDecisions(t *testing.T) {
	t.Parallel()

	now := time.Now()
	m := &BuyerDealMatch{
		Status:       MatchPassed,
		PassedOnDeal: true,
		PassCategory: "geography",
		PassReason:   "no presence in the Southeast",
		PassNotes:    "revisit if they expand",
	}
	m.ApplyScores(&BuyerDealMatch{
		CompositeScore: 82.5,
		Completeness:   TierHigh,
		ScoredAt:       &now,
	})

	assert.Equal(t, 82.5, m.CompositeScore)
	assert.Equal(t, TierHigh, m.Completeness)
	// Decision fields untouched, status not reset to scored.
	assert.Equal(t, MatchPassed, m.Status)
	assert.True(t, m.PassedOnDeal)
	assert.Equal(t, "geography", m.PassCategory)
	assert.Equal(t, "no presence in the Southeast", m.PassReason)
	assert.Equal(t, "revisit if they expand", m.PassNotes)
}

func TestApplyScoresPromotesUnscored(t *testing.T) {
	t.Parallel()

	m := &BuyerDealMatch{Status: MatchUnscored}
	m.ApplyScores(&BuyerDealMatch{CompositeScore: 50})
	assert.Equal(t, MatchScored, m.Status)
}

func TestCheckpointProcessed(t *testing.T) {
	t.Parallel()

	cp := &EnrichmentCheckpoint{ProcessedIDs: []string{"a", "b"}}
	assert.True(t, cp.Processed("a"))
	assert.False(t, cp.Processed("c"))
}

func TestDimensionWeightsDefaults(t *testing.T) {
	t.Parallel()

	var w DimensionWeights
	assert.Equal(t, 1.0, w.GeographyWeight())
	assert.Equal(t, 1.0, w.ServicesWeight())

	zero := 0.0
	w.Size = &zero
	assert.Equal(t, 0.0, w.SizeWeight())
}
