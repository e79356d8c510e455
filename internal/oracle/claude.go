package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow/internal/merge"
	"github.com/sells-group/dealflow/internal/model"
	"github.com/sells-group/dealflow/internal/score"
	"github.com/sells-group/dealflow/pkg/anthropic"
)

// ClaudeOracle implements ExtractionOracle and ScoringOracle on the
// Anthropic messages API with strict-JSON prompting.
type ClaudeOracle struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaude creates a Claude-backed oracle.
func NewClaude(client anthropic.Client, modelID string) *ClaudeOracle {
	return &ClaudeOracle{client: client, model: modelID, maxTokens: 2048}
}

// WithMaxTokens overrides the completion token limit. Non-positive values
// keep the default.
func (o *ClaudeOracle) WithMaxTokens(n int64) *ClaudeOracle {
	if n > 0 {
		o.maxTokens = n
	}
	return o
}

const extractSystemPrompt = `You extract structured acquisition-profile data from M&A source material.
Respond with a single JSON object and nothing else:
{"fields": {<field_key>: <value>}, "evidence": {<field_key>: <verbatim quote>}, "confidence": {<field_key>: <0.0-1.0>}}
Only include fields the text actually supports. Revenue and EBITDA figures are USD millions.`

// Extract asks the model for field candidates supported by the source text.
func (o *ClaudeOracle) Extract(ctx context.Context, sourceText string, sourceType model.FieldSource) (*ExtractionResult, error) {
	keys := make([]string, 0, len(merge.BuyerFields().Fields))
	for _, f := range merge.BuyerFields().Fields {
		keys = append(keys, fmt.Sprintf("%s (%s)", f.Key, f.Kind))
	}

	prompt := fmt.Sprintf("Source type: %s\nAllowed field keys:\n%s\n\nSource text:\n%s",
		sourceType, strings.Join(keys, "\n"), sourceText)

	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		System:    extractSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "oracle: extract")
	}
	resp.Usage.LogUsage(o.model, "extract")

	return parseExtraction(resp.FirstText())
}

const scoreSystemPrompt = `You score how well a prospective acquirer fits a company for sale.
Respond with a single JSON object and nothing else:
{"geography": {"score": 0-100, "is_disqualified": bool, "reason": str, "confidence": "high"|"medium"|"low"},
 "services": {...}, "size": {...}, "owner_goals": {...}, "thesis_bonus": 0-20}
Disqualify a dimension only on a hard mismatch and always give the reason.`

// Score asks the model for the four dimension scores plus thesis bonus.
func (o *ClaudeOracle) Score(ctx context.Context, buyer *model.BuyerProfile, deal *model.DealProfile) (*score.Dimensions, error) {
	buyerJSON, err := json.Marshal(buyer)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: marshal buyer")
	}
	dealJSON, err := json.Marshal(deal)
	if err != nil {
		return nil, eris.Wrap(err, "oracle: marshal deal")
	}

	prompt := fmt.Sprintf("Buyer profile:\n%s\n\nDeal profile:\n%s", buyerJSON, dealJSON)

	resp, err := o.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		System:    scoreSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "oracle: score")
	}
	resp.Usage.LogUsage(o.model, "score")

	return parseScore(resp.FirstText())
}

// parseExtraction decodes the model's extraction JSON, tolerating markdown
// code fences around the object.
func parseExtraction(text string) (*ExtractionResult, error) {
	var result ExtractionResult
	if err := json.Unmarshal([]byte(stripFences(text)), &result); err != nil {
		return nil, eris.Wrap(err, "oracle: parse extraction response")
	}
	if result.Fields == nil {
		result.Fields = map[string]any{}
	}
	return &result, nil
}

type scorePayload struct {
	Geography   *dimensionPayload `json:"geography"`
	Services    *dimensionPayload `json:"services"`
	Size        *dimensionPayload `json:"size"`
	OwnerGoals  *dimensionPayload `json:"owner_goals"`
	ThesisBonus float64           `json:"thesis_bonus"`
}

type dimensionPayload struct {
	Score          float64 `json:"score"`
	IsDisqualified bool    `json:"is_disqualified"`
	Reason         string  `json:"reason"`
	Confidence     string  `json:"confidence"`
}

func (p *dimensionPayload) toScore() *model.DimensionScore {
	if p == nil {
		return nil
	}
	conf := model.Confidence(strings.ToLower(strings.TrimSpace(p.Confidence)))
	switch conf {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
	default:
		conf = model.ConfidenceLow
	}
	return &model.DimensionScore{
		Score:          p.Score,
		IsDisqualified: p.IsDisqualified,
		Reason:         p.Reason,
		Confidence:     conf,
	}
}

// parseScore decodes the model's scoring JSON. Missing dimensions stay nil
// and fall to the aggregator's neutral default.
func parseScore(text string) (*score.Dimensions, error) {
	var payload scorePayload
	if err := json.Unmarshal([]byte(stripFences(text)), &payload); err != nil {
		return nil, eris.Wrap(err, "oracle: parse score response")
	}
	return &score.Dimensions{
		Geography:   payload.Geography.toScore(),
		Services:    payload.Services.toScore(),
		Size:        payload.Size.toScore(),
		OwnerGoals:  payload.OwnerGoals.toScore(),
		ThesisBonus: payload.ThesisBonus,
	}, nil
}

// stripFences removes a wrapping ```json ... ``` fence if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
