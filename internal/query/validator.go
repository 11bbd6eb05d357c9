// File path: internal/query/validator.go

package query

import (
	"fmt"
	"strings"

	"nl2mongo/internal/common/telemetry"
	"nl2mongo/internal/errs"
	"nl2mongo/internal/schema"
)

// Validation rule names. A rejection carries exactly one of these.
const (
	RuleUnknownCollection = "unknown_collection"
	RuleUnknownField      = "unknown_field"
	RuleInvalidQueryType  = "invalid_query_type"
	RuleForbiddenOperator = "forbidden_operator"
	RulePipelineTooLong   = "pipeline_too_long"
	RuleQueryTooDeep      = "query_too_deep"
)

// Scripting operators execute arbitrary code server-side and are rejected in
// every position.
var scriptingOperators = map[string]bool{
	"$where":       true,
	"$function":    true,
	"$accumulator": true,
}

// Update operators have no read semantics; their presence in a filter means
// the descriptor is write-shaped.
var updateOperators = map[string]bool{
	"$set":         true,
	"$unset":       true,
	"$inc":         true,
	"$mul":         true,
	"$push":        true,
	"$pull":        true,
	"$pullAll":     true,
	"$pop":         true,
	"$addToSet":    true,
	"$rename":      true,
	"$setOnInsert": true,
	"$currentDate": true,
}

// Aggregation stages permitted inside a pipeline. $out and $merge are
// deliberately absent: they write to collections.
var allowedStages = map[string]bool{
	"$match":     true,
	"$group":     true,
	"$sort":      true,
	"$project":   true,
	"$limit":     true,
	"$skip":      true,
	"$count":     true,
	"$unwind":    true,
	"$lookup":    true,
	"$addFields": true,
	"$sample":    true,
}

// Validator enforces the read-only, schema-bound envelope on a query
// descriptor. It is total over its input and never touches the store: every
// descriptor is either accepted or rejected with the violated rule.
type Validator struct {
	cfg Config
}

func NewValidator(cfg Config) *Validator {
	cfg.applyDefaults()
	return &Validator{cfg: cfg}
}

type violation struct {
	rule    string
	message string
}

func violationf(rule, format string, args ...interface{}) *violation {
	return &violation{rule: rule, message: fmt.Sprintf(format, args...)}
}

// Validate checks one descriptor against the snapshot. It returns nil on
// acceptance and a QueryValidation error naming the violated rule otherwise.
func (v *Validator) Validate(snapshot *schema.Snapshot, collection, queryType string, query map[string]any) error {
	if bad := v.check(snapshot, collection, queryType, query); bad != nil {
		telemetry.RecordValidation(bad.rule)
		return errs.New(errs.KindQueryValidation, bad.message).
			WithRule(bad.rule).
			WithCollection(collection)
	}
	telemetry.RecordValidation("")
	return nil
}

func (v *Validator) check(snapshot *schema.Snapshot, collection, queryType string, query map[string]any) *violation {
	col, ok := snapshot.Collection(collection)
	if !ok {
		return violationf(RuleUnknownCollection, "unknown collection: %s", collection)
	}
	if !queryTypes[queryType] {
		return violationf(RuleInvalidQueryType, "invalid query type: %s", queryType)
	}
	if query == nil {
		return nil
	}
	if depth := valueDepth(query); depth > v.cfg.MaxQueryDepth {
		return violationf(RuleQueryTooDeep, "query nests %d levels, limit is %d", depth, v.cfg.MaxQueryDepth)
	}
	switch queryType {
	case "find":
		if bad := v.checkFilter(col, nil, "", subMap(query, "filter")); bad != nil {
			return bad
		}
		if bad := v.checkProjection(col, subMap(query, "projection")); bad != nil {
			return bad
		}
		for key := range subMap(query, "sort") {
			if !fieldResolvable(col, nil, key) {
				return violationf(RuleUnknownField, "unknown field: %s", key)
			}
		}
	case "count":
		if bad := v.checkFilter(col, nil, "", subMap(query, "filter")); bad != nil {
			return bad
		}
	case "aggregate":
		pipeline, _ := query["pipeline"].([]any)
		return v.checkPipeline(snapshot, col, pipeline)
	}
	return nil
}

// checkPipeline scans the stages in order, accumulating fields synthesized
// by earlier stages so later stages may reference them.
func (v *Validator) checkPipeline(snapshot *schema.Snapshot, col schema.CollectionSchema, pipeline []any) *violation {
	if len(pipeline) > v.cfg.MaxPipelineStages {
		return violationf(RulePipelineTooLong, "pipeline has %d stages, limit is %d", len(pipeline), v.cfg.MaxPipelineStages)
	}
	synthetics := map[string]bool{}
	for _, raw := range pipeline {
		stage, ok := raw.(map[string]any)
		if !ok {
			// Non-document stages cannot smuggle a write; the store will
			// reject them with a parse error of its own.
			continue
		}
		if bad := v.checkStage(snapshot, col, synthetics, stage); bad != nil {
			return bad
		}
	}
	return nil
}

func (v *Validator) checkStage(snapshot *schema.Snapshot, col schema.CollectionSchema, synthetics map[string]bool, stage map[string]any) *violation {
	if len(stage) != 1 {
		return violationf(RuleForbiddenOperator, "pipeline stage must contain exactly one operator, found %d", len(stage))
	}
	var name string
	var operand any
	for key, value := range stage {
		name, operand = key, value
	}
	if !allowedStages[name] {
		return violationf(RuleForbiddenOperator, "pipeline stage %s is not allowed", name)
	}
	switch name {
	case "$match":
		if filter, ok := operand.(map[string]any); ok {
			return v.checkFilter(col, synthetics, "", filter)
		}
	case "$group":
		spec, ok := operand.(map[string]any)
		if !ok {
			return nil
		}
		for key, expr := range spec {
			if bad := v.checkExpression(col, synthetics, expr); bad != nil {
				return bad
			}
			synthetics[key] = true
		}
	case "$project", "$addFields":
		spec, ok := operand.(map[string]any)
		if !ok {
			return nil
		}
		for key, value := range spec {
			if isInclusionValue(value) {
				// Inclusion and exclusion entries reference stored fields;
				// $addFields with a scalar assigns a literal instead.
				if name == "$project" && key != "_id" && !fieldResolvable(col, synthetics, key) {
					return violationf(RuleUnknownField, "unknown field: %s", key)
				}
				synthetics[key] = true
				continue
			}
			if bad := v.checkExpression(col, synthetics, value); bad != nil {
				return bad
			}
			synthetics[key] = true
		}
	case "$sort":
		spec, ok := operand.(map[string]any)
		if !ok {
			return nil
		}
		for key := range spec {
			if !fieldResolvable(col, synthetics, key) {
				return violationf(RuleUnknownField, "unknown field: %s", key)
			}
		}
	case "$unwind":
		switch spec := operand.(type) {
		case string:
			path := strings.TrimPrefix(spec, "$")
			if !fieldResolvable(col, synthetics, path) {
				return violationf(RuleUnknownField, "unknown field: %s", path)
			}
		case map[string]any:
			if p, ok := spec["path"].(string); ok {
				path := strings.TrimPrefix(p, "$")
				if !fieldResolvable(col, synthetics, path) {
					return violationf(RuleUnknownField, "unknown field: %s", path)
				}
			}
			if idx, ok := spec["includeArrayIndex"].(string); ok && idx != "" {
				synthetics[idx] = true
			}
		}
	case "$count":
		if out, ok := operand.(string); ok && out != "" {
			synthetics[out] = true
		}
	case "$lookup":
		return v.checkLookup(snapshot, col, synthetics, operand)
	}
	return nil
}

func (v *Validator) checkLookup(snapshot *schema.Snapshot, col schema.CollectionSchema, synthetics map[string]bool, operand any) *violation {
	spec, ok := operand.(map[string]any)
	if !ok {
		return nil
	}
	from, _ := spec["from"].(string)
	fromCol, fromKnown := snapshot.Collection(from)
	if from != "" && !fromKnown {
		return violationf(RuleUnknownCollection, "unknown collection: %s", from)
	}
	if local, ok := spec["localField"].(string); ok && local != "" {
		if !fieldResolvable(col, synthetics, local) {
			return violationf(RuleUnknownField, "unknown field: %s", local)
		}
	}
	if foreign, ok := spec["foreignField"].(string); ok && foreign != "" && fromKnown {
		if !fieldResolvable(fromCol, nil, foreign) {
			return violationf(RuleUnknownField, "unknown field: %s.%s", from, foreign)
		}
	}
	if nested, ok := spec["pipeline"].([]any); ok {
		// The nested pipeline runs in the joined collection's namespace.
		target := col
		if fromKnown {
			target = fromCol
		}
		if bad := v.checkPipeline(snapshot, target, nested); bad != nil {
			return bad
		}
	}
	if as, ok := spec["as"].(string); ok && as != "" {
		synthetics[as] = true
	}
	return nil
}

// checkFilter walks a find/count/$match filter. Non-$ keys are field paths
// resolved against the schema; $-keys are operators subject to the scripting
// and update-operator bans. prefix carries the field path across operator
// descents such as $elemMatch.
func (v *Validator) checkFilter(col schema.CollectionSchema, synthetics map[string]bool, prefix string, filter map[string]any) *violation {
	for key, value := range filter {
		if strings.HasPrefix(key, "$") {
			switch key {
			case "$and", "$or", "$nor":
				branches, ok := value.([]any)
				if !ok {
					continue
				}
				for _, branch := range branches {
					if sub, ok := branch.(map[string]any); ok {
						if bad := v.checkFilter(col, synthetics, prefix, sub); bad != nil {
							return bad
						}
					}
				}
			case "$expr":
				if bad := v.checkExpression(col, synthetics, value); bad != nil {
					return bad
				}
			case "$elemMatch", "$not":
				if sub, ok := value.(map[string]any); ok {
					if bad := v.checkFilter(col, synthetics, prefix, sub); bad != nil {
						return bad
					}
				}
			default:
				if scriptingOperators[key] {
					return violationf(RuleForbiddenOperator, "operator %s is not allowed", key)
				}
				if updateOperators[key] {
					return violationf(RuleForbiddenOperator, "update operator %s is not allowed in read queries", key)
				}
				if bad := v.scanOperators(value); bad != nil {
					return bad
				}
			}
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if !fieldResolvable(col, synthetics, path) {
			return violationf(RuleUnknownField, "unknown field: %s", path)
		}
		switch sub := value.(type) {
		case map[string]any:
			if isOperatorObject(sub) {
				if bad := v.checkFilter(col, synthetics, path, sub); bad != nil {
					return bad
				}
			} else if bad := v.scanOperators(sub); bad != nil {
				// Literal document equality: keys are matched verbatim, not
				// resolved as schema paths.
				return bad
			}
		case []any:
			if bad := v.scanOperators(sub); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// checkProjection validates a find projection. Scalar entries include or
// exclude stored fields; document entries are aggregation expressions that
// may synthesize new names.
func (v *Validator) checkProjection(col schema.CollectionSchema, projection map[string]any) *violation {
	for key, value := range projection {
		switch sub := value.(type) {
		case map[string]any:
			if bad := v.checkExpression(col, nil, sub); bad != nil {
				return bad
			}
		default:
			if key != "_id" && !fieldResolvable(col, nil, key) {
				return violationf(RuleUnknownField, "unknown field: %s", key)
			}
		}
	}
	return nil
}

// checkExpression walks an aggregation expression, resolving "$field"
// references and rejecting scripting operators. "$$variable" references are
// left alone.
func (v *Validator) checkExpression(col schema.CollectionSchema, synthetics map[string]bool, expr any) *violation {
	switch val := expr.(type) {
	case string:
		if strings.HasPrefix(val, "$") && !strings.HasPrefix(val, "$$") {
			path := strings.TrimPrefix(val, "$")
			if !fieldResolvable(col, synthetics, path) {
				return violationf(RuleUnknownField, "unknown field: %s", path)
			}
		}
	case map[string]any:
		for key, sub := range val {
			if scriptingOperators[key] {
				return violationf(RuleForbiddenOperator, "operator %s is not allowed", key)
			}
			if key == "$literal" {
				continue
			}
			if bad := v.checkExpression(col, synthetics, sub); bad != nil {
				return bad
			}
		}
	case []any:
		for _, sub := range val {
			if bad := v.checkExpression(col, synthetics, sub); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// scanOperators sweeps literal operands for operators that must never appear
// regardless of position.
func (v *Validator) scanOperators(value any) *violation {
	switch val := value.(type) {
	case map[string]any:
		for key, sub := range val {
			if scriptingOperators[key] {
				return violationf(RuleForbiddenOperator, "operator %s is not allowed", key)
			}
			if updateOperators[key] {
				return violationf(RuleForbiddenOperator, "update operator %s is not allowed in read queries", key)
			}
			if bad := v.scanOperators(sub); bad != nil {
				return bad
			}
		}
	case []any:
		for _, sub := range val {
			if bad := v.scanOperators(sub); bad != nil {
				return bad
			}
		}
	}
	return nil
}

// fieldResolvable reports whether a dotted path can refer to data in the
// collection. Beyond exact schema membership it accepts synthesized names,
// positional array segments, and descent through array fields or objects
// whose contents the sampler did not enumerate.
func fieldResolvable(col schema.CollectionSchema, synthetics map[string]bool, path string) bool {
	if path == "" {
		return false
	}
	if synthetics != nil {
		if synthetics[path] {
			return true
		}
		if i := strings.Index(path, "."); i > 0 && synthetics[path[:i]] {
			return true
		}
	}
	if col.HasField(path) {
		return true
	}
	if stripped := stripPositional(path); stripped != path && col.HasField(stripped) {
		return true
	}
	ancestor := path
	for {
		i := strings.LastIndex(ancestor, ".")
		if i < 0 {
			return false
		}
		ancestor = ancestor[:i]
		spec, ok := col.Fields[ancestor]
		if !ok {
			continue
		}
		switch spec.Type {
		case schema.TypeArray:
			// Array element structure is never enumerated by sampling.
			return true
		case schema.TypeObject:
			// An object with no recorded children was cut off by the
			// sampling depth limit; one with children is fully known.
			return !hasEnumeratedChildren(col, ancestor)
		default:
			return false
		}
	}
}

func hasEnumeratedChildren(col schema.CollectionSchema, path string) bool {
	prefix := path + "."
	for name := range col.Fields {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// stripPositional removes numeric path segments such as the 0 in
// "channels.0".
func stripPositional(path string) string {
	segments := strings.Split(path, ".")
	kept := segments[:0]
	for _, segment := range segments {
		if segment != "" && isAllDigits(segment) {
			continue
		}
		kept = append(kept, segment)
	}
	return strings.Join(kept, ".")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// isOperatorObject reports whether a sub-document is an operator body such
// as {"$gt": 30} rather than a literal document matched by equality.
func isOperatorObject(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

// isInclusionValue reports whether a $project/$addFields entry is a plain
// inclusion or exclusion marker rather than a computed expression.
func isInclusionValue(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case float64:
		return v == 0 || v == 1
	case int:
		return v == 0 || v == 1
	}
	return false
}

// valueDepth measures the deepest nesting of documents and arrays in a query
// body. Scalars have depth zero.
func valueDepth(value any) int {
	switch val := value.(type) {
	case map[string]any:
		deepest := 0
		for _, sub := range val {
			if d := valueDepth(sub); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	case []any:
		deepest := 0
		for _, sub := range val {
			if d := valueDepth(sub); d > deepest {
				deepest = d
			}
		}
		return deepest + 1
	}
	return 0
}

// subMap extracts a named sub-document from a query body, tolerating absent
// or mistyped entries the same way execution does.
func subMap(query map[string]any, key string) map[string]any {
	sub, _ := query[key].(map[string]any)
	return sub
}
