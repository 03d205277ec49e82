package qdrant

import (
	"fmt"

	"github.com/akarpov/specqa/internal/core/domain"
)

// Payload keys are nested under doc_meta in the indexed points, so generic
// filter keys are renamed on translation.
var keyMap = map[string]string{
	"doc_type":    "doc_meta.doc_type",
	"base_doc_id": "doc_meta.base_doc_id",
	"version":     "doc_meta.version",
}

// translateFilter maps the generic filter AST onto the qdrant filter DSL.
// Pure; the AST is never mutated. startsWith has no qdrant equivalent and
// must fail loudly: silently dropping a predicate would change result
// correctness.
func translateFilter(filter domain.Filter) (map[string]any, error) {
	if filter == nil {
		return nil, nil
	}
	condition, err := translateNode(filter)
	if err != nil {
		return nil, err
	}
	// The top level of a qdrant search filter must be a boolean clause.
	if _, ok := condition["must"]; ok {
		return condition, nil
	}
	if _, ok := condition["should"]; ok {
		return condition, nil
	}
	if _, ok := condition["must_not"]; ok {
		return condition, nil
	}
	return map[string]any{"must": []any{condition}}, nil
}

func translateNode(filter domain.Filter) (map[string]any, error) {
	switch node := filter.(type) {
	case domain.FilterPredicate:
		return translatePredicate(node)
	case domain.FilterExpression:
		return translateExpression(node)
	default:
		return nil, domain.WrapError(domain.ErrInvalidFilter, "translate qdrant filter",
			fmt.Errorf("unknown filter node %T", filter))
	}
}

func translatePredicate(p domain.FilterPredicate) (map[string]any, error) {
	key := p.Key
	if renamed, ok := keyMap[key]; ok {
		key = renamed
	}

	switch p.Op {
	case domain.OpEquals:
		return map[string]any{"key": key, "match": map[string]any{"value": p.Value}}, nil
	case domain.OpNotEquals:
		return map[string]any{"must_not": []any{
			map[string]any{"key": key, "match": map[string]any{"value": p.Value}},
		}}, nil
	case domain.OpGreaterThan:
		return map[string]any{"key": key, "range": map[string]any{"gt": p.Value}}, nil
	case domain.OpGreaterThanOrEquals:
		return map[string]any{"key": key, "range": map[string]any{"gte": p.Value}}, nil
	case domain.OpLessThan:
		return map[string]any{"key": key, "range": map[string]any{"lt": p.Value}}, nil
	case domain.OpLessThanOrEquals:
		return map[string]any{"key": key, "range": map[string]any{"lte": p.Value}}, nil
	case domain.OpIn:
		return map[string]any{"key": key, "match": map[string]any{"any": toAnySlice(p.Value)}}, nil
	case domain.OpNotIn:
		return map[string]any{"must_not": []any{
			map[string]any{"key": key, "match": map[string]any{"any": toAnySlice(p.Value)}},
		}}, nil
	case domain.OpStartsWith:
		return nil, domain.WrapError(domain.ErrUnsupportedOp, "translate qdrant filter",
			fmt.Errorf("operation %q is not supported by the qdrant filter DSL", p.Op))
	default:
		return nil, domain.WrapError(domain.ErrInvalidFilter, "translate qdrant filter",
			fmt.Errorf("unknown operation %q", p.Op))
	}
}

func translateExpression(e domain.FilterExpression) (map[string]any, error) {
	conditions := make([]any, 0, len(e.Predicates))
	for _, predicate := range e.Predicates {
		condition, err := translateNode(predicate)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}

	switch e.Op {
	case domain.OpAndAll:
		return map[string]any{"must": conditions}, nil
	case domain.OpOrAll:
		return map[string]any{"should": conditions}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidFilter, "translate qdrant filter",
			fmt.Errorf("unknown logical operation %q", e.Op))
	}
}

func toAnySlice(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{value}
	}
}
