package score

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow/internal/model"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func dim(score float64, conf model.Confidence) *model.DimensionScore {
	return &model.DimensionScore{Score: score, Confidence: conf}
}

func fullDims() Dimensions {
	return Dimensions{
		Geography:  dim(80, model.ConfidenceHigh),
		Services:   dim(60, model.ConfidenceHigh),
		Size:       dim(90, model.ConfidenceHigh),
		OwnerGoals: dim(70, model.ConfidenceHigh),
	}
}

func TestAggregate_WeightedAverage(t *testing.T) {
	t.Parallel()

	m := Aggregate("b1", "d1", fullDims(), model.DimensionWeights{}, now)

	// Default weights 1.0 each: (80+60+90+70)/4 = 75.
	assert.Equal(t, 75.0, m.CompositeScore)
	assert.False(t, m.Disqualified)
	assert.Equal(t, model.TierHigh, m.Completeness)
	assert.Equal(t, model.MatchScored, m.Status)
	require.NotNil(t, m.ScoredAt)
}

func TestAggregate_ZeroWeightExcludesFromDenominator(t *testing.T) {
	t.Parallel()

	zero := 0.0
	weights := model.DimensionWeights{Geography: &zero}
	m := Aggregate("b1", "d1", fullDims(), weights, now)

	// Geography (80) fully excluded: (60+90+70)/3 = 73.33, not (60+90+70)/4.
	assert.InDelta(t, 73.333, m.CompositeScore, 0.01)
}

func TestAggregate_AllWeightsZero(t *testing.T) {
	t.Parallel()

	zero := 0.0
	weights := model.DimensionWeights{Geography: &zero, Services: &zero, Size: &zero, OwnerGoals: &zero}
	m := Aggregate("b1", "d1", fullDims(), weights, now)
	assert.Equal(t, 0.0, m.CompositeScore)
}

func TestAggregate_ThesisBonusAddedAfterAverage(t *testing.T) {
	t.Parallel()

	dims := fullDims()
	dims.ThesisBonus = 10
	m := Aggregate("b1", "d1", dims, model.DimensionWeights{}, now)
	assert.Equal(t, 85.0, m.CompositeScore)

	t.Run("clamped to 100", func(t *testing.T) {
		t.Parallel()
		d := Dimensions{
			Geography:  dim(100, model.ConfidenceHigh),
			Services:   dim(100, model.ConfidenceHigh),
			Size:       dim(100, model.ConfidenceHigh),
			OwnerGoals: dim(100, model.ConfidenceHigh),
			ThesisBonus: 20,
		}
		assert.Equal(t, 100.0, Aggregate("b1", "d1", d, model.DimensionWeights{}, now).CompositeScore)
	})

	t.Run("bonus bounded to 0-20", func(t *testing.T) {
		t.Parallel()
		d := fullDims()
		d.ThesisBonus = 50
		m := Aggregate("b1", "d1", d, model.DimensionWeights{}, now)
		assert.Equal(t, 20.0, m.ThesisBonus)
		assert.Equal(t, 95.0, m.CompositeScore)
	})
}

func TestAggregate_Disqualification(t *testing.T) {
	t.Parallel()

	dims := fullDims()
	dims.Geography = &model.DimensionScore{
		Score: 10, IsDisqualified: true,
		Reason: "buyer has no presence within 500 miles", Confidence: model.ConfidenceHigh,
	}
	dims.Size = &model.DimensionScore{
		Score: 20, IsDisqualified: true,
		Reason: "deal is below minimum EBITDA", Confidence: model.ConfidenceHigh,
	}

	m := Aggregate("b1", "d1", dims, model.DimensionWeights{}, now)

	assert.True(t, m.Disqualified)
	assert.Equal(t, []string{
		"buyer has no presence within 500 miles",
		"deal is below minimum EBITDA",
	}, m.DisqualifyReasons)
	// Composite still computed for ordering among disqualified buyers.
	assert.Equal(t, 40.0, m.CompositeScore)
}

func TestAggregate_MissingDimensionDefaultsNeutral(t *testing.T) {
	t.Parallel()

	dims := Dimensions{
		Geography: dim(80, model.ConfidenceHigh),
		// Services, Size, OwnerGoals missing (oracle timeout).
	}
	m := Aggregate("b1", "d1", dims, model.DimensionWeights{}, now)

	// (80+50+50+50)/4 = 57.5; missing data drags completeness to low.
	assert.Equal(t, 57.5, m.CompositeScore)
	assert.Equal(t, 50.0, m.ServicesScore)
	assert.Equal(t, model.TierLow, m.Completeness)
	assert.False(t, m.Disqualified)
}

func TestAggregate_CompletenessIsMinimumConfidence(t *testing.T) {
	t.Parallel()

	dims := fullDims()
	dims.Services = dim(60, model.ConfidenceMedium)
	assert.Equal(t, model.TierMedium, Aggregate("b1", "d1", dims, model.DimensionWeights{}, now).Completeness)

	dims.Size = dim(90, model.ConfidenceLow)
	assert.Equal(t, model.TierLow, Aggregate("b1", "d1", dims, model.DimensionWeights{}, now).Completeness)
}

func TestAggregate_CompositeBounds(t *testing.T) {
	t.Parallel()

	// Out-of-range oracle outputs are clamped, composite stays in [0,100].
	d := Dimensions{
		Geography:  dim(250, model.ConfidenceHigh),
		Services:   dim(-40, model.ConfidenceHigh),
		Size:       dim(90, model.ConfidenceHigh),
		OwnerGoals: dim(70, model.ConfidenceHigh),
		ThesisBonus: -5,
	}
	m := Aggregate("b1", "d1", d, model.DimensionWeights{}, now)

	assert.GreaterOrEqual(t, m.CompositeScore, 0.0)
	assert.LessOrEqual(t, m.CompositeScore, 100.0)
	assert.Equal(t, 100.0, m.GeographyScore)
	assert.Equal(t, 0.0, m.ServicesScore)
	assert.Equal(t, 0.0, m.ThesisBonus)
}

func TestRank(t *testing.T) {
	t.Parallel()

	mk := func(buyer string, composite float64, dq bool) RankedMatch {
		return RankedMatch{
			Match:     &model.BuyerDealMatch{BuyerID: buyer, CompositeScore: composite, Disqualified: dq},
			BuyerName: buyer,
		}
	}

	matches := []RankedMatch{
		mk("delta", 95, true), // disqualified sorts last despite top score
		mk("alpha", 70, false),
		mk("charlie", 82, false),
		mk("bravo", 70, false), // ties with alpha, name ascending
		mk("echo", 20, true),
	}

	Rank(matches)

	order := make([]string, len(matches))
	for i, m := range matches {
		order[i] = m.BuyerName
	}
	assert.Equal(t, []string{"charlie", "alpha", "bravo", "delta", "echo"}, order)
}

func TestRank_StableAcrossRuns(t *testing.T) {
	t.Parallel()

	build := func() []RankedMatch {
		var out []RankedMatch
		for _, d := range []struct {
			name  string
			score float64
			dq    bool
		}{
			{"north", 88, false}, {"south", 88, false},
			{"east", 42, true}, {"west", 42, true},
			{"center", 88, false},
		} {
			out = append(out, RankedMatch{
				Match:     &model.BuyerDealMatch{BuyerID: d.name, CompositeScore: d.score, Disqualified: d.dq},
				BuyerName: d.name,
			})
		}
		return out
	}

	a, b := build(), build()
	Rank(a)
	Rank(b)
	assert.Equal(t, a, b)
}
