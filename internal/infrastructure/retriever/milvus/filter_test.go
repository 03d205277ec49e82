package milvus

import (
	"testing"

	"github.com/akarpov/specqa/internal/core/domain"
)

func TestTranslateFilterExpressions(t *testing.T) {
	cases := []struct {
		name   string
		filter domain.Filter
		want   string
	}{
		{
			"equals string",
			domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: "base"},
			`doc_type == "base"`,
		},
		{
			"in list",
			domain.FilterPredicate{Op: domain.OpIn, Key: "base_doc_id", Value: []string{"d1", "*"}},
			`base_doc_id in ["d1","*"]`,
		},
		{
			"not in single value",
			domain.FilterPredicate{Op: domain.OpNotIn, Key: "version", Value: "draft"},
			`version not in ["draft"]`,
		},
		{
			"numeric comparison",
			domain.FilterPredicate{Op: domain.OpGreaterThanOrEquals, Key: "page", Value: 5},
			`page >= 5`,
		},
		{
			"starts with becomes like",
			domain.FilterPredicate{Op: domain.OpStartsWith, Key: "doc_name", Value: "spec"},
			`doc_name like "spec%"`,
		},
		{
			"escaped quote in literal",
			domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_name", Value: `a"b`},
			`doc_name == "a\"b"`,
		},
		{
			"and expression",
			domain.FilterExpression{Op: domain.OpAndAll, Predicates: []domain.Filter{
				domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: "additional"},
				domain.FilterPredicate{Op: domain.OpNotEquals, Key: "version", Value: "draft"},
			}},
			`(doc_type == "additional" && version != "draft")`,
		},
		{
			"or expression",
			domain.FilterExpression{Op: domain.OpOrAll, Predicates: []domain.Filter{
				domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: "base"},
				domain.FilterPredicate{Op: domain.OpEquals, Key: "doc_type", Value: "additional"},
			}},
			`(doc_type == "base" || doc_type == "additional")`,
		},
	}
	for _, tc := range cases {
		got, err := translateFilter(tc.filter)
		if err != nil {
			t.Fatalf("%s: translateFilter() error = %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: translateFilter() = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestTranslateFilterNil(t *testing.T) {
	got, err := translateFilter(nil)
	if err != nil || got != "" {
		t.Fatalf("translateFilter(nil) = (%q, %v)", got, err)
	}
}

func TestTranslateFilterStartsWithNeedsString(t *testing.T) {
	_, err := translateFilter(domain.FilterPredicate{Op: domain.OpStartsWith, Key: "page", Value: 3})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}
