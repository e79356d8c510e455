// Package score combines externally supplied per-dimension fit scores into
// one composite, explainable buyer-deal match score, and orders a deal's
// buyer list deterministically. Aggregation never fails: absent data is
// signal (it drags the completeness tier down), not an error.
package score

import (
	"strings"
	"time"

	"github.com/sells-group/dealflow/internal/model"
)

// Dimensions holds the four externally scored fit dimensions plus the
// thesis bonus for one buyer-deal pair. Nil dimensions are substituted
// with a neutral 50 at low confidence.
type Dimensions struct {
	Geography  *model.DimensionScore
	Services   *model.DimensionScore
	Size       *model.DimensionScore
	OwnerGoals *model.DimensionScore

	// ThesisBonus is 0-20, added after the weighted average.
	ThesisBonus float64
}

// neutral is the stand-in for a missing dimension score.
var neutral = model.DimensionScore{Score: 50, Confidence: model.ConfidenceLow}

func orNeutral(d *model.DimensionScore) model.DimensionScore {
	if d == nil {
		return neutral
	}
	return *d
}

// Aggregate computes the composite score, disqualification state, and
// completeness tier for one buyer-deal pair. The composite is the weighted
// average of the four dimensions (a zero weight removes the dimension from
// the denominator, not just the numerator), clamped to [0,100], plus the
// thesis bonus, clamped again. Disqualified pairs still get a composite so
// they can be ordered among themselves.
func Aggregate(buyerID, dealID string, dims Dimensions, weights model.DimensionWeights, now time.Time) *model.BuyerDealMatch {
	geo := orNeutral(dims.Geography)
	svc := orNeutral(dims.Services)
	size := orNeutral(dims.Size)
	goals := orNeutral(dims.OwnerGoals)

	type weighted struct {
		dim    model.DimensionScore
		weight float64
	}
	parts := []weighted{
		{geo, weights.GeographyWeight()},
		{svc, weights.ServicesWeight()},
		{size, weights.SizeWeight()},
		{goals, weights.OwnerGoalsWeight()},
	}

	var sum, totalWeight float64
	for _, p := range parts {
		if p.weight <= 0 {
			continue
		}
		sum += p.weight * clamp(p.dim.Score)
		totalWeight += p.weight
	}

	composite := 0.0
	if totalWeight > 0 {
		composite = clamp(sum / totalWeight)
	}
	composite = clamp(composite + clampBonus(dims.ThesisBonus))

	disqualified := false
	var reasons []string
	for _, p := range parts {
		if p.dim.IsDisqualified {
			disqualified = true
			if r := strings.TrimSpace(p.dim.Reason); r != "" {
				reasons = append(reasons, r)
			}
		}
	}

	scoredAt := now.UTC()
	return &model.BuyerDealMatch{
		BuyerID:           buyerID,
		DealID:            dealID,
		GeographyScore:    clamp(geo.Score),
		ServicesScore:     clamp(svc.Score),
		SizeScore:         clamp(size.Score),
		OwnerGoalsScore:   clamp(goals.Score),
		ThesisBonus:       clampBonus(dims.ThesisBonus),
		CompositeScore:    composite,
		Disqualified:      disqualified,
		DisqualifyReasons: reasons,
		Completeness:      completenessTier(geo, svc, size, goals),
		Status:            model.MatchScored,
		ScoredAt:          &scoredAt,
	}
}

// completenessTier is the minimum confidence across the dimensions: the
// aggregate is only as trustworthy as its weakest input, never averaged.
func completenessTier(dims ...model.DimensionScore) model.CompletenessTier {
	tier := model.TierHigh
	for _, d := range dims {
		switch d.Confidence {
		case model.ConfidenceHigh:
		case model.ConfidenceMedium:
			if tier == model.TierHigh {
				tier = model.TierMedium
			}
		default:
			// Low or unrecognized confidence floors the tier.
			return model.TierLow
		}
	}
	return tier
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// clampBonus bounds the thesis bonus to its documented 0-20 range.
func clampBonus(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 20 {
		return 20
	}
	return v
}
