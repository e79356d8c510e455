package score

import (
	"sort"

	"github.com/sells-group/dealflow/internal/model"
)

// RankedMatch pairs a match with its buyer's display name for tie-breaking
// and presentation.
type RankedMatch struct {
	Match     *model.BuyerDealMatch `json:"match"`
	BuyerName string                `json:"buyer_name"`
}

// Rank orders a deal's buyer list: qualified buyers before disqualified
// ones regardless of score, composite descending within each group, ties
// broken by buyer name ascending. The sort is deterministic: identical
// inputs always produce identical order.
func Rank(matches []RankedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Match.Disqualified != b.Match.Disqualified {
			return !a.Match.Disqualified
		}
		if a.Match.CompositeScore != b.Match.CompositeScore {
			return a.Match.CompositeScore > b.Match.CompositeScore
		}
		if a.BuyerName != b.BuyerName {
			return a.BuyerName < b.BuyerName
		}
		return a.Match.BuyerID < b.Match.BuyerID
	})
}
