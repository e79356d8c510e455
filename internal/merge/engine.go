package merge

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow/internal/model"
)

// SkipReason explains why a patch field was not applied. Skips are not
// errors; they are reported for caller visibility and telemetry.
type SkipReason string

// Skip reasons.
const (
	SkipUnknownField SkipReason = "unknown_field"
	SkipPlaceholder  SkipReason = "placeholder"
	SkipLowerRank    SkipReason = "lower_rank"
)

// SkippedField is one patch field that was not applied, with the reason.
type SkippedField struct {
	Field  string     `json:"field"`
	Reason SkipReason `json:"reason"`
}

// Result reports which patch fields were applied and which were skipped,
// both in deterministic key order.
type Result struct {
	Applied []string       `json:"applied"`
	Skipped []SkippedField `json:"skipped"`
}

// merge applies one into the other for fold aggregation.
func (r *Result) merge(other *Result) {
	r.Applied = append(r.Applied, other.Applied...)
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// record adapts an entity type to the generic patch loop.
type record interface {
	fieldSet() *FieldSet
	get(key string) (value any, populated bool)
	set(key string, value any)
	provenance() model.Provenance
	setProvenance(p model.Provenance)
}

// ApplyBuyer applies a field patch from the given source onto a buyer
// profile, updating provenance for every applied field. The profile is
// mutated in place; the caller persists it.
func ApplyBuyer(b *model.BuyerProfile, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*Result, error) {
	return apply(&buyerRecord{b}, patch, source, extractedAt)
}

// ApplyDeal applies a field patch from the given source onto a deal profile.
func ApplyDeal(d *model.DealProfile, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*Result, error) {
	return apply(&dealRecord{d}, patch, source, extractedAt)
}

func apply(rec record, patch map[string]any, source model.FieldSource, extractedAt time.Time) (*Result, error) {
	if !source.Valid() {
		return nil, eris.New(fmt.Sprintf("merge: unknown source %q", source))
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := rec.fieldSet()
	prov := rec.provenance()
	res := &Result{}

	for _, key := range keys {
		f, ok := fields.ByKey(key)
		if !ok {
			// Unknown keys are skipped, not rejected: the patch shape is
			// allowed to outgrow the profile schema.
			zap.L().Debug("merge: unmapped field key", zap.String("key", key))
			res.Skipped = append(res.Skipped, SkippedField{Field: key, Reason: SkipUnknownField})
			continue
		}

		value, ok := coerce(patch[key], f.Kind)
		if !ok {
			res.Skipped = append(res.Skipped, SkippedField{Field: key, Reason: SkipPlaceholder})
			continue
		}

		if _, populated := rec.get(key); populated {
			// Untracked populated fields are treated as manual entries.
			current := model.SourceManual
			if origin, ok := prov[key]; ok {
				current = origin.Source
			}
			if source.Rank() < current.Rank() {
				res.Skipped = append(res.Skipped, SkippedField{Field: key, Reason: SkipLowerRank})
				continue
			}
		}

		rec.set(key, value)
		if prov == nil {
			prov = model.Provenance{}
		}
		prov[key] = model.FieldOrigin{Source: source, ExtractedAt: extractedAt}
		res.Applied = append(res.Applied, key)
	}

	rec.setProvenance(prov)
	return res, nil
}

// FoldBuyer applies every populated field of src onto dst, each at the
// provenance src recorded for it (manual when untracked). Used by dedup
// merge execution so a non-keeper's transcript-sourced data still outranks
// the keeper's website-sourced data.
func FoldBuyer(dst, src *model.BuyerProfile) *Result {
	rec := &buyerRecord{src}
	res := &Result{}

	for _, f := range BuyerFields().Fields {
		value, populated := rec.get(f.Key)
		if !populated {
			continue
		}
		source := model.SourceManual
		extractedAt := src.UpdatedAt
		if origin, ok := src.ExtractionSources[f.Key]; ok {
			source = origin.Source
			extractedAt = origin.ExtractedAt
		}
		one, err := ApplyBuyer(dst, map[string]any{f.Key: value}, source, extractedAt)
		if err != nil {
			// Only reachable with a corrupt provenance source; treat as manual.
			one, _ = ApplyBuyer(dst, map[string]any{f.Key: value}, model.SourceManual, extractedAt)
		}
		res.merge(one)
	}
	return res
}

// coerce normalizes a raw patch value to the field's kind. Returns false for
// nil, placeholder, and uncoercible values, none of which carry signal.
func coerce(v any, kind Kind) (any, bool) {
	if v == nil {
		return nil, false
	}

	switch kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprintf("%v", v)
		}
		if isPlaceholder(s) {
			return nil, false
		}
		return s, true

	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case string:
			if isPlaceholder(n) {
				return nil, false
			}
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, false
			}
			return f, true
		default:
			return nil, false
		}

	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, true
		case string:
			if isPlaceholder(b) {
				return nil, false
			}
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return nil, false
			}
			return parsed, true
		default:
			return nil, false
		}

	case KindList:
		var items []string
		switch l := v.(type) {
		case []string:
			items = l
		case []any:
			items = make([]string, 0, len(l))
			for _, e := range l {
				items = append(items, fmt.Sprintf("%v", e))
			}
		case string:
			if isPlaceholder(l) {
				return nil, false
			}
			items = []string{l}
		default:
			return nil, false
		}
		filtered := filterList(items)
		if len(filtered) == 0 {
			return nil, false
		}
		return filtered, true
	}

	return nil, false
}
