// Package oracle declares the external text-understanding boundary: the
// extraction and scoring oracles the core consumes, and contact discovery
// triggered on buyer approval. The core treats oracle output as untrusted;
// placeholder filtering and clamping happen on the core side.
package oracle

import (
	"context"

	"github.com/sells-group/dealflow/internal/model"
	"github.com/sells-group/dealflow/internal/score"
)

// ExtractionResult is the structured output of one extraction call.
type ExtractionResult struct {
	// Fields maps mergeable field keys to candidate values.
	Fields map[string]any `json:"fields"`
	// Evidence maps field keys to the supporting quote from the source text.
	Evidence map[string]string `json:"evidence,omitempty"`
	// Confidence maps field keys to 0-1 extraction confidence.
	Confidence map[string]float64 `json:"confidence,omitempty"`
}

// ExtractionOracle turns a raw source blob into structured field candidates.
type ExtractionOracle interface {
	Extract(ctx context.Context, sourceText string, sourceType model.FieldSource) (*ExtractionResult, error)
}

// ScoringOracle scores one buyer against one deal across the four fit
// dimensions plus the thesis bonus.
type ScoringOracle interface {
	Score(ctx context.Context, buyer *model.BuyerProfile, deal *model.DealProfile) (*score.Dimensions, error)
}

// ContactDiscovery finds contacts for a buyer. Invoked fire-and-forget on
// approval; failures are logged, never surfaced as scoring errors.
type ContactDiscovery interface {
	Discover(ctx context.Context, buyer *model.BuyerProfile) ([]model.Contact, error)
}
