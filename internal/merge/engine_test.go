package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow/internal/model"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestApplyBuyer_EmptyFieldAlwaysApplied(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	res, err := ApplyBuyer(b, map[string]any{"min_revenue": 5.0, "max_revenue": 20.0}, model.SourceTranscript, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"max_revenue", "min_revenue"}, res.Applied)
	assert.Empty(t, res.Skipped)
	require.NotNil(t, b.MinRevenue)
	assert.Equal(t, 5.0, *b.MinRevenue)
	assert.Equal(t, model.SourceTranscript, b.ExtractionSources["min_revenue"].Source)
	assert.Equal(t, t0, b.ExtractionSources["min_revenue"].ExtractedAt)
}

func TestApplyBuyer_LowerRankSkipped(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"min_revenue": 5.0}, model.SourceTranscript, t0)
	require.NoError(t, err)

	// Website (60) < transcript (100): stored value must survive.
	res, err := ApplyBuyer(b, map[string]any{"min_revenue": 3.0}, model.SourceWebsite, t0.Add(time.Hour))
	require.NoError(t, err)

	assert.Empty(t, res.Applied)
	assert.Equal(t, []SkippedField{{Field: "min_revenue", Reason: SkipLowerRank}}, res.Skipped)
	assert.Equal(t, 5.0, *b.MinRevenue)
	assert.Equal(t, model.SourceTranscript, b.ExtractionSources["min_revenue"].Source)
}

func TestApplyBuyer_PriorityMonotonicity(t *testing.T) {
	t.Parallel()

	// website "20" -> manual "25" (skipped) -> transcript "30" (applied).
	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"thesis_summary": "20"}, model.SourceWebsite, t0)
	require.NoError(t, err)

	res, err := ApplyBuyer(b, map[string]any{"thesis_summary": "25"}, model.SourceManual, t0)
	require.NoError(t, err)
	assert.Equal(t, []SkippedField{{Field: "thesis_summary", Reason: SkipLowerRank}}, res.Skipped)
	assert.Equal(t, "20", b.ThesisSummary)
	assert.Equal(t, model.SourceWebsite, b.ExtractionSources["thesis_summary"].Source)

	res, err = ApplyBuyer(b, map[string]any{"thesis_summary": "30"}, model.SourceTranscript, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"thesis_summary"}, res.Applied)
	assert.Equal(t, "30", b.ThesisSummary)
	assert.Equal(t, model.SourceTranscript, b.ExtractionSources["thesis_summary"].Source)
}

func TestApplyBuyer_EqualRankRefreshes(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"thesis_summary": "buy and build in HVAC"}, model.SourceTranscript, t0)
	require.NoError(t, err)

	// A second transcript legitimately supersedes an older transcript value.
	later := t0.AddDate(0, 1, 0)
	res, err := ApplyBuyer(b, map[string]any{"thesis_summary": "national HVAC roll-up"}, model.SourceTranscript, later)
	require.NoError(t, err)

	assert.Equal(t, []string{"thesis_summary"}, res.Applied)
	assert.Equal(t, "national HVAC roll-up", b.ThesisSummary)
	assert.Equal(t, later, b.ExtractionSources["thesis_summary"].ExtractedAt)
}

func TestApplyBuyer_Idempotent(t *testing.T) {
	t.Parallel()

	patch := map[string]any{
		"name":              "Acme Services",
		"min_revenue":       5.0,
		"target_industries": []string{"HVAC", "Plumbing"},
	}

	b := &model.BuyerProfile{}
	first, err := ApplyBuyer(b, patch, model.SourceNotes, t0)
	require.NoError(t, err)

	snapshot := *b
	snapshotProv := b.ExtractionSources.Clone()

	second, err := ApplyBuyer(b, patch, model.SourceNotes, t0)
	require.NoError(t, err)

	assert.Equal(t, first.Applied, second.Applied)
	assert.Equal(t, snapshot.Name, b.Name)
	assert.Equal(t, *snapshot.MinRevenue, *b.MinRevenue)
	assert.Equal(t, snapshot.TargetIndustries, b.TargetIndustries)
	assert.Equal(t, snapshotProv, b.ExtractionSources)
}

func TestApplyBuyer_PlaceholderNeverApplied(t *testing.T) {
	t.Parallel()

	for _, placeholder := range []string{"N/A", "n/a", " na ", "Not Specified", "UNKNOWN", "none", "tbd", ""} {
		b := &model.BuyerProfile{ThesisSummary: "existing", ExtractionSources: model.Provenance{
			"thesis_summary": {Source: model.SourceCSV, ExtractedAt: t0},
		}}

		// Even top-rank transcript cannot write a placeholder.
		res, err := ApplyBuyer(b, map[string]any{"thesis_summary": placeholder}, model.SourceTranscript, t0.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, []SkippedField{{Field: "thesis_summary", Reason: SkipPlaceholder}}, res.Skipped, "placeholder %q", placeholder)
		assert.Equal(t, "existing", b.ThesisSummary)
		assert.Equal(t, model.SourceCSV, b.ExtractionSources["thesis_summary"].Source)
	}
}

func TestApplyBuyer_ListReplacedWholesale(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"target_services": []string{"Install", "Repair", "Maintenance"}}, model.SourceWebsite, t0)
	require.NoError(t, err)

	_, err = ApplyBuyer(b, map[string]any{"target_services": []any{"Install"}}, model.SourceTranscript, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Install"}, b.TargetServices)
}

func TestApplyBuyer_ListPlaceholderElementsFiltered(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"target_services": []string{"HVAC", "n/a", "hvac", "Plumbing"}}, model.SourceNotes, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"HVAC", "Plumbing"}, b.TargetServices)

	// An all-placeholder list carries no information.
	existing := b.TargetServices
	res, err := ApplyBuyer(b, map[string]any{"target_services": []string{"n/a", "none"}}, model.SourceTranscript, t0)
	require.NoError(t, err)
	assert.Equal(t, []SkippedField{{Field: "target_services", Reason: SkipPlaceholder}}, res.Skipped)
	assert.Equal(t, existing, b.TargetServices)
}

func TestApplyBuyer_UnknownFieldIgnored(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	res, err := ApplyBuyer(b, map[string]any{"headquarters_timezone": "EST", "name": "Acme"}, model.SourceCSV, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, res.Applied)
	assert.Equal(t, []SkippedField{{Field: "headquarters_timezone", Reason: SkipUnknownField}}, res.Skipped)
}

func TestApplyBuyer_UnknownSourceRejected(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	_, err := ApplyBuyer(b, map[string]any{"name": "Acme"}, model.FieldSource("linkedin"), t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
	assert.Empty(t, b.Name)
}

func TestApplyBuyer_UntrackedFieldTreatedAsManual(t *testing.T) {
	t.Parallel()

	// Populated on manual creation, no provenance entry: CSV (40) outranks
	// the implicit manual (20) and may overwrite.
	b := &model.BuyerProfile{Name: "Acme Inc"}
	res, err := ApplyBuyer(b, map[string]any{"name": "Acme Services"}, model.SourceCSV, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, res.Applied)
	assert.Equal(t, "Acme Services", b.Name)
}

func TestApplyBuyer_NumericStringCoerced(t *testing.T) {
	t.Parallel()

	b := &model.BuyerProfile{}
	res, err := ApplyBuyer(b, map[string]any{"min_revenue": "5.5", "max_revenue": "not a number"}, model.SourceTranscript, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"min_revenue"}, res.Applied)
	require.NotNil(t, b.MinRevenue)
	assert.Equal(t, 5.5, *b.MinRevenue)
	assert.Equal(t, []SkippedField{{Field: "max_revenue", Reason: SkipPlaceholder}}, res.Skipped)
}

func TestApplyDeal(t *testing.T) {
	t.Parallel()

	d := &model.DealProfile{}
	res, err := ApplyDeal(d, map[string]any{
		"company_name": "Gulf Coast Mechanical",
		"revenue":      12.0,
		"services":     []string{"Commercial HVAC"},
		"owner_goals":  "retire within two years",
	}, model.SourceTranscript, t0)
	require.NoError(t, err)

	assert.Len(t, res.Applied, 4)
	assert.Equal(t, "Gulf Coast Mechanical", d.CompanyName)
	assert.Equal(t, model.SourceTranscript, d.ExtractionSources["owner_goals"].Source)
}

func TestFoldBuyer_PreservesOriginalProvenance(t *testing.T) {
	t.Parallel()

	// Keeper has website-sourced min_revenue; the duplicate has a
	// transcript-sourced value that must win the fold.
	keeper := &model.BuyerProfile{
		MinRevenue: ptr(3.0),
		Name:       "Acme",
		ExtractionSources: model.Provenance{
			"min_revenue": {Source: model.SourceWebsite, ExtractedAt: t0},
		},
	}
	dup := &model.BuyerProfile{
		MinRevenue:    ptr(5.0),
		ThesisSummary: "HVAC roll-up",
		ExtractionSources: model.Provenance{
			"min_revenue":    {Source: model.SourceTranscript, ExtractedAt: t0.Add(time.Hour)},
			"thesis_summary": {Source: model.SourceNotes, ExtractedAt: t0},
		},
	}

	res := FoldBuyer(keeper, dup)

	assert.Contains(t, res.Applied, "min_revenue")
	assert.Contains(t, res.Applied, "thesis_summary")
	assert.Equal(t, 5.0, *keeper.MinRevenue)
	assert.Equal(t, model.SourceTranscript, keeper.ExtractionSources["min_revenue"].Source)
	assert.Equal(t, "HVAC roll-up", keeper.ThesisSummary)
	assert.Equal(t, "Acme", keeper.Name)
}

func TestEndToEndEnrichmentScenario(t *testing.T) {
	t.Parallel()

	// Empty buyer receives transcript extraction, then a later website
	// enrichment tries to lower min_revenue and is skipped.
	b := &model.BuyerProfile{}

	_, err := ApplyBuyer(b, map[string]any{"min_revenue": 5.0, "max_revenue": 20.0}, model.SourceTranscript, t0)
	require.NoError(t, err)

	res, err := ApplyBuyer(b, map[string]any{"min_revenue": 3.0}, model.SourceWebsite, t0.AddDate(0, 0, 7))
	require.NoError(t, err)

	assert.Empty(t, res.Applied)
	assert.Equal(t, 5.0, *b.MinRevenue)
	assert.Equal(t, 20.0, *b.MaxRevenue)
	assert.Equal(t, model.SourceTranscript, b.ExtractionSources["min_revenue"].Source)
}

func TestFieldRegistries(t *testing.T) {
	t.Parallel()

	buyer := BuyerFields()
	_, ok := buyer.ByKey("target_industries")
	assert.True(t, ok)
	_, ok = buyer.ByKey("company_name")
	assert.False(t, ok, "deal-only key must not be mergeable on buyers")

	deal := DealFields()
	f, ok := deal.ByKey("revenue")
	assert.True(t, ok)
	assert.Equal(t, KindFloat, f.Kind)
}
