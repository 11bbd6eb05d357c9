// File path: internal/query/validator_test.go

package query

import (
	"errors"
	"testing"
	"time"

	"nl2mongo/internal/errs"
	"nl2mongo/internal/schema"
)

func testSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		GeneratedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Collections: map[string]schema.CollectionSchema{
			"customers": {
				Name:        "customers",
				Description: "Collection containing customers data",
				Fields: map[string]schema.FieldSchema{
					"_id":          {Type: schema.TypeString, Description: "Unique document identifier", Indexed: true, Unique: true},
					"age":          {Type: schema.TypeInteger},
					"email":        {Type: schema.TypeString, Indexed: true, Unique: true},
					"signup_date":  {Type: schema.TypeDate},
					"profile":      {Type: schema.TypeObject},
					"profile.city": {Type: schema.TypeString},
					"tags":         {Type: schema.TypeArray},
					"settings":     {Type: schema.TypeObject},
				},
				Indexes: [][]string{{"_id"}, {"email"}},
			},
			"orders": {
				Name:        "orders",
				Description: "Collection containing orders data",
				Fields: map[string]schema.FieldSchema{
					"_id":         {Type: schema.TypeString, Indexed: true, Unique: true},
					"customer_id": {Type: schema.TypeString, Indexed: true},
					"total":       {Type: schema.TypeFloat},
					"placed_at":   {Type: schema.TypeDate},
				},
				Indexes: [][]string{{"_id"}, {"customer_id"}},
			},
		},
		Relationships: []schema.Relationship{
			{
				FromCollection: "orders", FromField: "customer_id",
				ToCollection: "customers", ToField: "_id",
				Kind: schema.KindReference, Confidence: 0.94,
			},
		},
	}
}

func requireRule(t *testing.T, err error, rule string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected rejection with rule %q, got acceptance", rule)
	}
	if !errs.IsKind(err, errs.KindQueryValidation) {
		t.Fatalf("expected query_validation error, got %v", err)
	}
	if got := errs.RuleOf(err); got != rule {
		t.Fatalf("expected rule %q, got %q (%v)", rule, got, err)
	}
}

func TestValidateAcceptsCountWithKnownField(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{"age": map[string]any{"$gt": float64(30)}}}
	if err := v.Validate(testSnapshot(), "customers", "count", query); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidateRejectsUnknownCollection(t *testing.T) {
	v := NewValidator(Config{})
	err := v.Validate(testSnapshot(), "ghosts", "find", map[string]any{})
	requireRule(t, err, RuleUnknownCollection)
}

func TestValidateRejectsUnknownField(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{"ssn_plaintext": map[string]any{"$exists": true}}}
	err := v.Validate(testSnapshot(), "customers", "find", query)
	requireRule(t, err, RuleUnknownField)
	if errs.CollectionOf(err) != "customers" {
		t.Fatalf("expected error scoped to customers, got %q", errs.CollectionOf(err))
	}
}

func TestValidateRejectsUnknownProjectionAndSortFields(t *testing.T) {
	v := NewValidator(Config{})
	err := v.Validate(testSnapshot(), "customers", "find", map[string]any{
		"projection": map[string]any{"ssn_plaintext": float64(1)},
	})
	requireRule(t, err, RuleUnknownField)

	err = v.Validate(testSnapshot(), "customers", "find", map[string]any{
		"sort": map[string]any{"shoe_size": float64(-1)},
	})
	requireRule(t, err, RuleUnknownField)
}

func TestValidateRejectsInvalidQueryType(t *testing.T) {
	v := NewValidator(Config{})
	err := v.Validate(testSnapshot(), "customers", "delete", map[string]any{})
	requireRule(t, err, RuleInvalidQueryType)
}

func TestValidateRejectsScriptingOperator(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{"$where": "this.age > 30"}}
	err := v.Validate(testSnapshot(), "customers", "find", query)
	requireRule(t, err, RuleForbiddenOperator)
}

func TestValidateRejectsUpdateOperatorInFilter(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{"$set": map[string]any{"age": float64(1)}}}
	err := v.Validate(testSnapshot(), "customers", "count", query)
	requireRule(t, err, RuleForbiddenOperator)

	nested := map[string]any{"filter": map[string]any{"age": map[string]any{"$in": []any{
		map[string]any{"$inc": map[string]any{"age": float64(1)}},
	}}}}
	err = v.Validate(testSnapshot(), "customers", "count", nested)
	requireRule(t, err, RuleForbiddenOperator)
}

func TestValidateRejectsWriteStages(t *testing.T) {
	v := NewValidator(Config{})
	for _, stage := range []string{"$out", "$merge"} {
		query := map[string]any{"pipeline": []any{
			map[string]any{"$match": map[string]any{"age": map[string]any{"$gte": float64(18)}}},
			map[string]any{stage: "siphoned"},
		}}
		err := v.Validate(testSnapshot(), "customers", "aggregate", query)
		requireRule(t, err, RuleForbiddenOperator)
	}
}

func TestValidateRejectsOverlongPipeline(t *testing.T) {
	v := NewValidator(Config{MaxPipelineStages: 3})
	pipeline := make([]any, 0, 4)
	for i := 0; i < 4; i++ {
		pipeline = append(pipeline, map[string]any{"$limit": float64(10)})
	}
	err := v.Validate(testSnapshot(), "customers", "aggregate", map[string]any{"pipeline": pipeline})
	requireRule(t, err, RulePipelineTooLong)
}

func TestValidateRejectsDeepNesting(t *testing.T) {
	v := NewValidator(Config{MaxQueryDepth: 4})
	deep := map[string]any{"$gt": float64(30)}
	filter := map[string]any{"age": deep}
	for i := 0; i < 5; i++ {
		filter = map[string]any{"$or": []any{filter}}
	}
	err := v.Validate(testSnapshot(), "customers", "find", map[string]any{"filter": filter})
	requireRule(t, err, RuleQueryTooDeep)
}

func TestValidateTracksSynthesizedPipelineFields(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"pipeline": []any{
		map[string]any{"$match": map[string]any{"age": map[string]any{"$gte": float64(18)}}},
		map[string]any{"$group": map[string]any{
			"_id":       "$profile.city",
			"customers": map[string]any{"$sum": float64(1)},
		}},
		map[string]any{"$sort": map[string]any{"customers": float64(-1)}},
		map[string]any{"$project": map[string]any{"customers": float64(1), "city": "$_id"}},
	}}
	if err := v.Validate(testSnapshot(), "customers", "aggregate", query); err != nil {
		t.Fatalf("expected acceptance of synthesized fields, got %v", err)
	}
}

func TestValidateRejectsUnknownFieldInGroupExpression(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"pipeline": []any{
		map[string]any{"$group": map[string]any{
			"_id":   "$salary_band",
			"count": map[string]any{"$sum": float64(1)},
		}},
	}}
	err := v.Validate(testSnapshot(), "customers", "aggregate", query)
	requireRule(t, err, RuleUnknownField)
}

func TestValidateLookup(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"pipeline": []any{
		map[string]any{"$lookup": map[string]any{
			"from":         "orders",
			"localField":   "_id",
			"foreignField": "customer_id",
			"as":           "customer_orders",
		}},
		map[string]any{"$unwind": "$customer_orders"},
		map[string]any{"$sort": map[string]any{"customer_orders.total": float64(-1)}},
	}}
	if err := v.Validate(testSnapshot(), "customers", "aggregate", query); err != nil {
		t.Fatalf("expected lookup pipeline to validate, got %v", err)
	}

	bad := map[string]any{"pipeline": []any{
		map[string]any{"$lookup": map[string]any{
			"from":         "payments",
			"localField":   "_id",
			"foreignField": "customer_id",
			"as":           "joined",
		}},
	}}
	err := v.Validate(testSnapshot(), "customers", "aggregate", bad)
	requireRule(t, err, RuleUnknownCollection)
}

func TestValidateDottedPathResolution(t *testing.T) {
	v := NewValidator(Config{})
	cases := []struct {
		field string
		rule  string
	}{
		{"profile.city", ""},
		{"profile.zip", RuleUnknownField},
		{"settings.theme", ""},
		{"tags.0", ""},
		{"tags.label", ""},
		{"age.bracket", RuleUnknownField},
	}
	for _, tc := range cases {
		query := map[string]any{"filter": map[string]any{tc.field: "x"}}
		err := v.Validate(testSnapshot(), "customers", "find", query)
		if tc.rule == "" {
			if err != nil {
				t.Fatalf("field %q: expected acceptance, got %v", tc.field, err)
			}
			continue
		}
		requireRule(t, err, tc.rule)
	}
}

func TestValidateAllowsCombinatorsAndExpr(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{
		"$or": []any{
			map[string]any{"age": map[string]any{"$gte": float64(65)}},
			map[string]any{"$and": []any{
				map[string]any{"signup_date": map[string]any{"$gte": "2025-01-01T00:00:00"}},
				map[string]any{"$expr": map[string]any{"$gt": []any{"$age", float64(30)}}},
			}},
		},
	}}
	if err := v.Validate(testSnapshot(), "customers", "find", query); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}

	bad := map[string]any{"filter": map[string]any{
		"$or": []any{map[string]any{"ssn_plaintext": "x"}},
	}}
	requireRule(t, v.Validate(testSnapshot(), "customers", "find", bad), RuleUnknownField)
}

func TestValidateNilQueryAccepted(t *testing.T) {
	v := NewValidator(Config{})
	if err := v.Validate(testSnapshot(), "customers", "find", nil); err != nil {
		t.Fatalf("expected nil query to validate, got %v", err)
	}
}

func TestValidateErrorIsTaxonomyError(t *testing.T) {
	v := NewValidator(Config{})
	err := v.Validate(testSnapshot(), "ghosts", "find", nil)
	var te *errs.Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *errs.Error, got %T", err)
	}
	if te.Kind != errs.KindQueryValidation {
		t.Fatalf("expected query_validation kind, got %s", te.Kind)
	}
}

func TestValidateOperatorBodyRecursesIntoFilter(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{
		"age": map[string]any{"$gt": float64(30), "$lt": float64(50)},
	}}
	if err := v.Validate(testSnapshot(), "customers", "find", query); err != nil {
		t.Fatalf("expected acceptance, got %v", err)
	}
}

func TestValidateLiteralDocumentKeysNotResolved(t *testing.T) {
	v := NewValidator(Config{})
	// profile.nickname is not a schema path, but inside a literal equality
	// document the keys are matched verbatim, not resolved.
	query := map[string]any{"filter": map[string]any{
		"profile": map[string]any{"nickname": "kat"},
	}}
	if err := v.Validate(testSnapshot(), "customers", "find", query); err != nil {
		t.Fatalf("expected literal document equality to validate, got %v", err)
	}
}

func TestValidateLiteralDocumentStillScannedForOperators(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{
		"settings": map[string]any{"prefs": map[string]any{"$where": "this.x"}},
	}}
	requireRule(t, v.Validate(testSnapshot(), "customers", "find", query), RuleForbiddenOperator)
}

func TestValidateUpdateOperatorInValuePositionRejected(t *testing.T) {
	v := NewValidator(Config{})
	query := map[string]any{"filter": map[string]any{
		"settings": map[string]any{"$set": map[string]any{"theme": "dark"}},
	}}
	requireRule(t, v.Validate(testSnapshot(), "customers", "find", query), RuleForbiddenOperator)
}
