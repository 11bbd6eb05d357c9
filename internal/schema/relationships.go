// File path: internal/schema/relationships.go
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"nl2mongo/internal/common"
)

// OverlapProber samples a bounded number of field values so the detector can
// measure overlap between two collections. Values are compared and discarded;
// they never end up in a schema or a relationship.
type OverlapProber interface {
	// SampleFieldValues returns up to limit non-null values of the field,
	// rendered as strings.
	SampleFieldValues(ctx context.Context, collection, field string, limit int) ([]string, error)
	// CountMatches reports how many of the given values occur in the target
	// collection's field.
	CountMatches(ctx context.Context, collection, field string, values []string) (int, error)
}

// Suffix order matters: the plural form must match before "_id" does.
var identSuffixes = []string{"_ids", "_id", "_ref", "_key"}

// DetectRelationships proposes links between the given collections. It is a
// pure function over the schemas plus bounded sampling through the prober;
// a nil prober disables overlap probing and the second pass entirely.
func DetectRelationships(ctx context.Context, collections map[string]CollectionSchema, prober OverlapProber, cfg DetectorConfig) []Relationship {
	cfg.applyDefaults()
	logger := common.Logger()

	names := make([]string, 0, len(collections))
	lower := make(map[string]string, len(collections))
	for name := range collections {
		names = append(names, name)
		lower[strings.ToLower(name)] = name
	}
	sort.Strings(names)

	var out []Relationship
	seen := make(map[string]bool)
	record := func(rel Relationship) {
		key := rel.FromCollection + "|" + rel.FromField + "|" + rel.ToCollection
		if seen[key] {
			return
		}
		seen[key] = true
		rel.Confidence = round3(clamp01(rel.Confidence))
		out = append(out, rel)
	}

	// Pass 1: identifier-suffix fields pointing at a collection whose name
	// the field base resolves to.
	for _, from := range names {
		cs := collections[from]
		for _, field := range cs.FieldNames() {
			if field == "_id" {
				continue
			}
			suffix, base := identifierSuffix(field)
			if suffix == "" {
				continue
			}
			fs := cs.Fields[field]
			if !identifierTypeCompatible(fs.Type, suffix) {
				continue
			}
			target, nameScore := resolveTarget(base, lower)
			if target == "" || target == from {
				continue
			}
			overlap, probed := probeOverlap(ctx, prober, from, field, target, "_id", cfg)
			rel := Relationship{
				FromCollection: from,
				FromField:      field,
				ToCollection:   target,
				ToField:        "_id",
				Description:    fmt.Sprintf("%s.%s references %s._id", from, field, target),
			}
			switch {
			case !probed:
				// Name-only evidence: neutral overlap prior keeps the blend
				// comparable with probed links.
				rel.Kind = KindReference
				rel.Confidence = cfg.NameWeight*nameScore + cfg.OverlapWeight*0.5
			case overlap >= cfg.ReferenceThreshold:
				rel.Kind = KindReference
				rel.Confidence = cfg.NameWeight*nameScore + cfg.OverlapWeight*overlap
			case overlap >= cfg.CorrelationThreshold:
				rel.Kind = KindCorrelation
				rel.Confidence = cfg.NameWeight*nameScore + cfg.OverlapWeight*overlap
			default:
				logger.Debug("schema: discarding weak link",
					"from", from, "field", field, "to", target, "overlap", overlap)
				continue
			}
			record(rel)
		}
	}

	// Pass 2: correlation keys shared across collections, validated purely
	// by value overlap.
	if prober != nil {
		groups := make(map[string][]string)
		for _, name := range names {
			cs := collections[name]
			for _, field := range cs.FieldNames() {
				fs := cs.Fields[field]
				if fs.Indexed && fs.Type == TypeString && looksCorrelationKey(field) {
					groups[field] = append(groups[field], name)
				}
			}
		}
		fields := make([]string, 0, len(groups))
		for field, members := range groups {
			if len(members) >= 2 {
				fields = append(fields, field)
			}
		}
		sort.Strings(fields)
		for _, field := range fields {
			members := groups[field]
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					a, b := members[i], members[j]
					overlap, probed := probeOverlap(ctx, prober, a, field, b, field, cfg)
					if !probed || overlap <= cfg.CorrelationThreshold {
						continue
					}
					record(Relationship{
						FromCollection: a,
						FromField:      field,
						ToCollection:   b,
						ToField:        field,
						Kind:           KindCorrelation,
						Confidence:     overlap,
						Description:    fmt.Sprintf("%s and %s share %s values", a, b, field),
					})
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].FromCollection != out[j].FromCollection {
			return out[i].FromCollection < out[j].FromCollection
		}
		if out[i].FromField != out[j].FromField {
			return out[i].FromField < out[j].FromField
		}
		return out[i].ToCollection < out[j].ToCollection
	})
	return out
}

// identifierSuffix matches id-like suffixes against the last path segment
// and returns the matched suffix plus the remaining base name.
func identifierSuffix(path string) (string, string) {
	name := path
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		name = path[idx+1:]
	}
	lowerName := strings.ToLower(name)
	for _, suffix := range identSuffixes {
		if strings.HasSuffix(lowerName, suffix) && len(lowerName) > len(suffix) {
			return suffix, strings.TrimSuffix(lowerName, suffix)
		}
	}
	return "", ""
}

func identifierTypeCompatible(t FieldType, suffix string) bool {
	if suffix == "_ids" {
		return t == TypeArray || t == TypeString
	}
	return t == TypeString
}

// resolveTarget maps a field base name to a known collection, trying the
// base itself and its plural/singular variants. Exact matches score 1.0,
// transformed matches 0.9.
func resolveTarget(base string, lower map[string]string) (string, float64) {
	if base == "" {
		return "", 0
	}
	if name, ok := lower[base]; ok {
		return name, 1.0
	}
	variants := []string{base + "s", strings.TrimSuffix(base, "s"), base + "es", strings.TrimSuffix(base, "es")}
	for _, candidate := range variants {
		if candidate == base || candidate == "" {
			continue
		}
		if name, ok := lower[candidate]; ok {
			return name, 0.9
		}
	}
	return "", 0
}

func looksCorrelationKey(field string) bool {
	if field == "_id" || strings.Contains(field, ".") {
		return false
	}
	lowerField := strings.ToLower(field)
	return strings.Contains(lowerField, "tracking") ||
		strings.Contains(lowerField, "correlation") ||
		strings.HasSuffix(lowerField, "_id")
}

func probeOverlap(ctx context.Context, prober OverlapProber, fromColl, fromField, toColl, toField string, cfg DetectorConfig) (float64, bool) {
	if prober == nil {
		return 0, false
	}
	values, err := prober.SampleFieldValues(ctx, fromColl, fromField, cfg.ProbeSampleSize)
	if err != nil || len(values) == 0 {
		if err != nil {
			common.Logger().Debug("schema: overlap sampling failed",
				"collection", fromColl, "field", fromField, "error", err)
		}
		return 0, false
	}
	if len(values) > cfg.ProbeCheckSize {
		values = values[:cfg.ProbeCheckSize]
	}
	matches, err := prober.CountMatches(ctx, toColl, toField, values)
	if err != nil {
		common.Logger().Debug("schema: overlap counting failed",
			"collection", toColl, "field", toField, "error", err)
		return 0, false
	}
	return float64(matches) / float64(len(values)), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
