// File path: internal/schema/infer.go
package schema

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"time"

	"nl2mongo/internal/common"
	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/errs"
)

// Source is the slice of the document store that inference needs. Documents
// arrive with plain Go types only: map[string]any, []any, string, bool,
// int32/int64/float64, time.Time, or nil.
type Source interface {
	CollectionNames(ctx context.Context) ([]string, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	SampleDocuments(ctx context.Context, collection string, limit int) ([]map[string]any, error)
	CollectionIndexes(ctx context.Context, collection string) ([]IndexInfo, error)
}

// ISO-8601 strings classify as dates; many stores keep timestamps as text.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Generator infers collection schemas by sampling documents through a
// Source. Sampling is first-N in natural order, so regenerating over an
// unchanged document set produces identical type assignments.
type Generator struct {
	source Source
	prober OverlapProber
	cfg    Config
	logger *slog.Logger
}

// NewGenerator builds a Generator. The prober may be nil, which disables
// value-overlap probing during relationship detection.
func NewGenerator(source Source, prober OverlapProber, cfg Config) *Generator {
	cfg.applyDefaults()
	return &Generator{source: source, prober: prober, cfg: cfg, logger: common.Logger()}
}

// GenerateOptions controls one batch generation.
type GenerateOptions struct {
	// SampleSize caps documents drawn per collection; non-positive uses the
	// configured default.
	SampleSize          int
	DetectRelationships bool
	MergeStrategy       MergeStrategy
}

// Report summarizes a batch generation. Errors is keyed by collection name;
// a failed collection never aborts the batch.
type Report struct {
	CollectionsAnalyzed int               `json:"collections_analyzed"`
	TotalFields         int               `json:"total_fields"`
	RelationshipsFound  int               `json:"relationships_found"`
	Errors              map[string]string `json:"errors,omitempty"`
}

// Result carries the schemas a batch produced, ready to become the next
// catalog snapshot.
type Result struct {
	Collections   map[string]CollectionSchema
	Relationships []Relationship
	Report        Report
}

// Analyze samples one collection and infers its schema. A collection with
// zero documents yields an empty-fields schema, not an error.
func (g *Generator) Analyze(ctx context.Context, name string, sampleSize int) (CollectionSchema, error) {
	start := time.Now()
	if sampleSize <= 0 {
		sampleSize = g.cfg.SampleSize
	}

	total, err := g.source.CountDocuments(ctx, name)
	if err != nil {
		return CollectionSchema{}, errs.Wrapf(errs.KindSourceUnavailable, err, "counting documents in %q", name).WithCollection(name)
	}

	cs := CollectionSchema{
		Name:        name,
		Description: collectionDescription(name),
		Fields:      make(map[string]FieldSchema),
	}

	if total > 0 {
		limit := sampleSize
		if int64(limit) > total {
			limit = int(total)
		}
		docs, err := g.source.SampleDocuments(ctx, name, limit)
		if err != nil {
			return CollectionSchema{}, errs.Wrapf(errs.KindSourceUnavailable, err, "sampling %q", name).WithCollection(name)
		}
		tallies := make(map[string]*pathTally)
		for _, doc := range docs {
			g.walkDocument(doc, "", 1, tallies)
		}
		for path, tally := range tallies {
			cs.Fields[path] = FieldSchema{
				Type:         majorityType(tally.counts, g.cfg.TypePrecedence),
				Description:  fieldDescription(path),
				PresenceRate: round3(float64(tally.present) / float64(len(docs))),
			}
		}
	}

	g.applyIndexes(ctx, &cs)

	g.logger.Debug("schema: analyzed collection",
		"collection", name, "fields", len(cs.Fields), "sampled", sampleSize, "total", total)
	telemetry.RecordSchemaGeneration(len(cs.Fields), time.Since(start))
	return cs, nil
}

// Generate analyzes the named collections (all available when names is
// empty), merges with the prior schemas according to the strategy, and
// optionally detects relationships over the merged set.
func (g *Generator) Generate(ctx context.Context, names []string, prior map[string]CollectionSchema, opts GenerateOptions) (*Result, error) {
	available, err := g.source.CollectionNames(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindSourceUnavailable, err, "listing collections")
	}
	availSet := make(map[string]bool, len(available))
	for _, name := range available {
		availSet[name] = true
	}
	if len(names) == 0 {
		names = append([]string(nil), available...)
		sort.Strings(names)
	}

	strategy := opts.MergeStrategy
	if strategy == "" {
		strategy = MergeStrategyMerge
	}

	result := &Result{
		Collections: make(map[string]CollectionSchema, len(prior)+len(names)),
		Report:      Report{Errors: make(map[string]string)},
	}
	for name, cs := range prior {
		result.Collections[name] = cs
	}

	for _, name := range names {
		if !availSet[name] {
			result.Report.Errors[name] = errs.New(errs.KindCollectionNotFound, "collection does not exist").WithCollection(name).Error()
			continue
		}
		if err := telemetry.CheckMemoryBudget("schema"); err != nil {
			return nil, errs.Wrap(errs.KindInternal, err, "schema generation halted")
		}
		cs, err := g.Analyze(ctx, name, opts.SampleSize)
		if err != nil {
			g.logger.Warn("schema: collection analysis failed", "collection", name, "error", err)
			result.Report.Errors[name] = err.Error()
			continue
		}
		if strategy == MergeStrategyMerge {
			if old, ok := prior[name]; ok {
				cs = mergeSchemas(old, cs)
			}
		}
		result.Collections[name] = cs
		result.Report.CollectionsAnalyzed++
		result.Report.TotalFields += len(cs.Fields)
	}

	if opts.DetectRelationships {
		result.Relationships = DetectRelationships(ctx, result.Collections, g.prober, g.cfg.Detector)
		result.Report.RelationshipsFound = len(result.Relationships)
	}
	if len(result.Report.Errors) == 0 {
		result.Report.Errors = nil
	}

	g.logger.Info("schema: generation complete",
		"analyzed", result.Report.CollectionsAnalyzed,
		"fields", result.Report.TotalFields,
		"relationships", result.Report.RelationshipsFound,
		"failed", len(result.Report.Errors))
	return result, nil
}

// mergeSchemas unions the prior field set into the fresh schema. Types and
// presence come from the new generation; description text written before
// (possibly by hand in the persisted catalog) survives.
func mergeSchemas(old, fresh CollectionSchema) CollectionSchema {
	out := fresh
	out.Fields = make(map[string]FieldSchema, len(fresh.Fields)+len(old.Fields))
	for path, fs := range fresh.Fields {
		out.Fields[path] = fs
	}
	for path, prior := range old.Fields {
		current, ok := out.Fields[path]
		if !ok {
			out.Fields[path] = prior
			continue
		}
		if prior.Description != "" {
			current.Description = prior.Description
			out.Fields[path] = current
		}
	}
	if old.Description != "" {
		out.Description = old.Description
	}
	return out
}

func (g *Generator) applyIndexes(ctx context.Context, cs *CollectionSchema) {
	combos := [][]string{{"_id"}}
	indexes, err := g.source.CollectionIndexes(ctx, cs.Name)
	if err != nil {
		g.logger.Warn("schema: index listing failed", "collection", cs.Name, "error", err)
	}
	for _, idx := range indexes {
		if idx.Name == "_id_" || len(idx.Fields) == 0 {
			continue
		}
		combos = append(combos, idx.Fields)
		for _, field := range idx.Fields {
			fs, ok := cs.Fields[field]
			if !ok {
				continue
			}
			fs.Indexed = true
			if idx.Unique && len(idx.Fields) == 1 {
				fs.Unique = true
			}
			cs.Fields[field] = fs
		}
	}
	if fs, ok := cs.Fields["_id"]; ok {
		fs.Indexed = true
		fs.Unique = true
		cs.Fields["_id"] = fs
	}
	cs.Indexes = combos
}

type pathTally struct {
	counts  map[FieldType]int
	present int
}

func (g *Generator) walkDocument(doc map[string]any, prefix string, depth int, tallies map[string]*pathTally) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		tally := tallies[path]
		if tally == nil {
			tally = &pathTally{counts: make(map[FieldType]int)}
			tallies[path] = tally
		}
		tally.present++
		t := classifyValue(value)
		tally.counts[t]++
		if t == TypeObject && depth < g.cfg.MaxDepth {
			if sub, ok := value.(map[string]any); ok {
				g.walkDocument(sub, path, depth+1, tallies)
			}
		}
	}
}

func classifyValue(value any) FieldType {
	switch v := value.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeFloat
	case time.Time:
		return TypeDate
	case string:
		if isoDatePattern.MatchString(v) {
			return TypeDate
		}
		return TypeString
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	default:
		return TypeString
	}
}

// majorityType picks the most frequent type; precedence order breaks ties in
// favor of the more expressive classification.
func majorityType(counts map[FieldType]int, precedence []FieldType) FieldType {
	best := TypeNull
	bestCount := -1
	for _, t := range precedence {
		if c := counts[t]; c > bestCount {
			best = t
			bestCount = c
		}
	}
	return best
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
