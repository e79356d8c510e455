package model

import "time"

// FieldSource identifies where a field value was extracted from. Sources
// form a fixed total order: a value may only be overwritten by a source of
// equal or higher rank (equal rank models a refresh from the same tier).
type FieldSource string

// Known extraction sources, highest trust first.
const (
	SourceTranscript FieldSource = "transcript"
	SourceNotes      FieldSource = "notes"
	SourceWebsite    FieldSource = "website"
	SourceCSV        FieldSource = "csv"
	SourceManual     FieldSource = "manual"
)

// sourceRanks is the immutable priority table for field overwrites.
var sourceRanks = map[FieldSource]int{
	SourceTranscript: 100,
	SourceNotes:      80,
	SourceWebsite:    60,
	SourceCSV:        40,
	SourceManual:     20,
}

// Rank returns the priority of the source, or 0 for an unknown source.
func (s FieldSource) Rank() int {
	return sourceRanks[s]
}

// Valid reports whether s is a known extraction source.
func (s FieldSource) Valid() bool {
	_, ok := sourceRanks[s]
	return ok
}

// FieldOrigin records the provenance of the last write to a single field.
type FieldOrigin struct {
	Source      FieldSource `json:"source"`
	ExtractedAt time.Time   `json:"extracted_at"`
}

// Provenance maps a field key to the origin of its current value. It is
// carried on every profile record and persisted alongside it, so a reader
// never observes a value without its matching provenance.
type Provenance map[string]FieldOrigin

// Clone returns a deep copy of the provenance map.
func (p Provenance) Clone() Provenance {
	if p == nil {
		return nil
	}
	out := make(Provenance, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
