package milvus

import (
	"fmt"
	"strings"

	"github.com/akarpov/specqa/internal/core/domain"
)

// translateFilter maps the generic filter AST onto a milvus boolean
// expression string. Collection fields are flat, so keys pass through
// unrenamed. Pure; the AST is never mutated.
func translateFilter(filter domain.Filter) (string, error) {
	if filter == nil {
		return "", nil
	}
	return translateNode(filter)
}

func translateNode(filter domain.Filter) (string, error) {
	switch node := filter.(type) {
	case domain.FilterPredicate:
		return translatePredicate(node)
	case domain.FilterExpression:
		return translateExpression(node)
	default:
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate milvus filter",
			fmt.Errorf("unknown filter node %T", filter))
	}
}

func translatePredicate(p domain.FilterPredicate) (string, error) {
	switch p.Op {
	case domain.OpEquals:
		return fmt.Sprintf("%s == %s", p.Key, literal(p.Value)), nil
	case domain.OpNotEquals:
		return fmt.Sprintf("%s != %s", p.Key, literal(p.Value)), nil
	case domain.OpGreaterThan:
		return fmt.Sprintf("%s > %s", p.Key, literal(p.Value)), nil
	case domain.OpGreaterThanOrEquals:
		return fmt.Sprintf("%s >= %s", p.Key, literal(p.Value)), nil
	case domain.OpLessThan:
		return fmt.Sprintf("%s < %s", p.Key, literal(p.Value)), nil
	case domain.OpLessThanOrEquals:
		return fmt.Sprintf("%s <= %s", p.Key, literal(p.Value)), nil
	case domain.OpIn:
		return fmt.Sprintf("%s in %s", p.Key, listLiteral(p.Value)), nil
	case domain.OpNotIn:
		return fmt.Sprintf("%s not in %s", p.Key, listLiteral(p.Value)), nil
	case domain.OpStartsWith:
		prefix, ok := p.Value.(string)
		if !ok {
			return "", domain.WrapError(domain.ErrInvalidFilter, "translate milvus filter",
				fmt.Errorf("startsWith needs a string value, got %T", p.Value))
		}
		return fmt.Sprintf(`%s like "%s%%"`, p.Key, escape(prefix)), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate milvus filter",
			fmt.Errorf("unknown operation %q", p.Op))
	}
}

func translateExpression(e domain.FilterExpression) (string, error) {
	join := " && "
	if e.Op == domain.OpOrAll {
		join = " || "
	} else if e.Op != domain.OpAndAll {
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate milvus filter",
			fmt.Errorf("unknown logical operation %q", e.Op))
	}

	parts := make([]string, 0, len(e.Predicates))
	for _, predicate := range e.Predicates {
		part, err := translateNode(predicate)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, join) + ")", nil
}

func literal(value any) string {
	switch v := value.(type) {
	case string:
		return `"` + escape(v) + `"`
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func listLiteral(value any) string {
	var items []any
	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		items = []any{value}
	}

	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = literal(item)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func escape(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`)
}
