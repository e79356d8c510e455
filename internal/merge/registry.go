// Package merge applies provenance-checked field patches onto profile
// records. A patch value overwrites an existing value only when its source
// ranks at least as high as the source that last wrote the field; equal rank
// is a refresh from the same tier. Application is pure and idempotent: the
// caller persists the result.
package merge

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind is the merge-level type of a field: it controls value coercion and
// placeholder filtering.
type Kind string

// Field kinds.
const (
	KindString Kind = "string"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
)

// Field is one entry in the mergeable-field allow-list.
type Field struct {
	Key  string `yaml:"key"`
	Kind Kind   `yaml:"kind"`
}

// FieldSet is an indexed allow-list of mergeable fields for one entity type.
type FieldSet struct {
	Fields []Field
	byKey  map[string]Field
}

// ByKey returns the field for the given key and whether it is allowed.
func (s *FieldSet) ByKey(key string) (Field, bool) {
	f, ok := s.byKey[key]
	return f, ok
}

//go:embed fields.yaml
var fieldsYAML []byte

type fieldsFile struct {
	Buyer []Field `yaml:"buyer"`
	Deal  []Field `yaml:"deal"`
}

var loadFields = sync.OnceValue(func() fieldsFile {
	var f fieldsFile
	if err := yaml.Unmarshal(fieldsYAML, &f); err != nil {
		// The registry is embedded and covered by tests; a parse failure is
		// a build defect, not a runtime condition.
		panic(fmt.Sprintf("merge: parse fields.yaml: %v", err))
	}
	return f
})

func newFieldSet(fields []Field) *FieldSet {
	s := &FieldSet{Fields: fields, byKey: make(map[string]Field, len(fields))}
	for _, f := range fields {
		s.byKey[f.Key] = f
	}
	return s
}

// BuyerFields returns the mergeable-field allow-list for buyer profiles.
func BuyerFields() *FieldSet {
	return newFieldSet(loadFields().Buyer)
}

// DealFields returns the mergeable-field allow-list for deal profiles.
func DealFields() *FieldSet {
	return newFieldSet(loadFields().Deal)
}
