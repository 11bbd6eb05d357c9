// File path: internal/schema/types.go

// Package schema infers privacy-safe structural descriptions of MongoDB
// collections and detects relationships between them. Nothing in this
// package ever retains a literal value sampled from a collection; only type,
// presence, and index metadata leave the inference pass.
package schema

import (
	"sort"
	"time"
)

// FieldType is the closed set of inferred primitive classifications.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeFloat   FieldType = "float"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeNull    FieldType = "null"
)

// FieldSchema describes one field path of a collection. PresenceRate is the
// fraction of sampled documents in which the path was observed; it is
// sampling metadata and is not part of the persisted catalog format.
type FieldSchema struct {
	Type         FieldType `json:"type"`
	Description  string    `json:"description,omitempty"`
	PresenceRate float64   `json:"presence_rate,omitempty"`
	Indexed      bool      `json:"indexed,omitempty"`
	Unique       bool      `json:"unique,omitempty"`
}

// CollectionSchema is the inferred structural description of one collection.
// Fields is keyed by dotted field path; iterate via FieldNames for a
// deterministic order.
type CollectionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Fields      map[string]FieldSchema `json:"fields"`
	Indexes     [][]string             `json:"indexes,omitempty"`
}

// FieldNames returns the field paths in sorted order.
func (c CollectionSchema) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for name := range c.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasField reports whether the dotted path is part of the schema.
func (c CollectionSchema) HasField(path string) bool {
	_, ok := c.Fields[path]
	return ok
}

// RelationshipKind distinguishes strong naming-convention links from links
// inferred mainly through value overlap.
type RelationshipKind string

const (
	KindReference   RelationshipKind = "reference"
	KindCorrelation RelationshipKind = "correlation"
)

// Relationship is a proposed link between two collections. Confidence blends
// name-pattern strength with the sampled value-overlap ratio and is always
// clamped to [0,1]; the sampled values themselves are never retained.
type Relationship struct {
	FromCollection string           `json:"from_collection"`
	FromField      string           `json:"from_field"`
	ToCollection   string           `json:"to_collection"`
	ToField        string           `json:"to_field"`
	Kind           RelationshipKind `json:"kind"`
	Confidence     float64          `json:"confidence"`
	Description    string           `json:"description,omitempty"`
}

// MergeStrategy governs how a regeneration treats previously known schemas.
type MergeStrategy string

const (
	// MergeStrategyMerge unions field sets with the prior schema, recomputes
	// types, and keeps prior description text.
	MergeStrategyMerge MergeStrategy = "merge"
	// MergeStrategyReplace discards the prior schema for touched collections.
	MergeStrategyReplace MergeStrategy = "replace"
)

// ParseMergeStrategy validates a strategy string; empty selects merge.
func ParseMergeStrategy(s string) (MergeStrategy, bool) {
	switch MergeStrategy(s) {
	case "":
		return MergeStrategyMerge, true
	case MergeStrategyMerge:
		return MergeStrategyMerge, true
	case MergeStrategyReplace:
		return MergeStrategyReplace, true
	default:
		return "", false
	}
}

// Snapshot is an immutable view of every known collection schema plus the
// relationships inferred alongside them. Instances are never mutated after
// construction; regeneration builds a fresh one.
type Snapshot struct {
	GeneratedAt   time.Time                   `json:"generated_at"`
	Collections   map[string]CollectionSchema `json:"collections"`
	Relationships []Relationship              `json:"relationships,omitempty"`
}

// CollectionNames returns the snapshot's collection names in sorted order.
func (s *Snapshot) CollectionNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Collections))
	for name := range s.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collection looks up one schema by name.
func (s *Snapshot) Collection(name string) (CollectionSchema, bool) {
	if s == nil {
		return CollectionSchema{}, false
	}
	cs, ok := s.Collections[name]
	return cs, ok
}

// IndexInfo describes one index as reported by the backing store.
type IndexInfo struct {
	Name   string
	Fields []string
	Unique bool
}
