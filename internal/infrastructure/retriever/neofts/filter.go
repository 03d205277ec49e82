package neofts

import (
	"fmt"
	"strings"

	"github.com/akarpov/specqa/internal/core/domain"
)

// Chunk nodes carry camelCase properties, so generic filter keys are
// renamed on translation.
var keyMap = map[string]string{
	"doc_id":      "docId",
	"chunk_id":    "chunkId",
	"doc_type":    "docType",
	"base_doc_id": "baseDocId",
	"doc_name":    "docName",
}

// translateFilter maps the generic filter AST onto a Cypher WHERE fragment
// over the `node` variable plus its bound parameters. Pure; the AST is
// never mutated.
func translateFilter(filter domain.Filter) (string, map[string]any, error) {
	if filter == nil {
		return "", nil, nil
	}
	t := translator{params: map[string]any{}}
	fragment, err := t.node(filter)
	if err != nil {
		return "", nil, err
	}
	return fragment, t.params, nil
}

type translator struct {
	params map[string]any
	n      int
}

func (t *translator) bind(value any) string {
	name := fmt.Sprintf("p%d", t.n)
	t.n++
	t.params[name] = value
	return "$" + name
}

func (t *translator) node(filter domain.Filter) (string, error) {
	switch node := filter.(type) {
	case domain.FilterPredicate:
		return t.predicate(node)
	case domain.FilterExpression:
		return t.expression(node)
	default:
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate cypher filter",
			fmt.Errorf("unknown filter node %T", filter))
	}
}

func (t *translator) predicate(p domain.FilterPredicate) (string, error) {
	key := p.Key
	if renamed, ok := keyMap[key]; ok {
		key = renamed
	}
	prop := "node." + key

	switch p.Op {
	case domain.OpEquals:
		return prop + " = " + t.bind(p.Value), nil
	case domain.OpNotEquals:
		return prop + " <> " + t.bind(p.Value), nil
	case domain.OpGreaterThan:
		return prop + " > " + t.bind(p.Value), nil
	case domain.OpGreaterThanOrEquals:
		return prop + " >= " + t.bind(p.Value), nil
	case domain.OpLessThan:
		return prop + " < " + t.bind(p.Value), nil
	case domain.OpLessThanOrEquals:
		return prop + " <= " + t.bind(p.Value), nil
	case domain.OpIn:
		return prop + " IN " + t.bind(toSlice(p.Value)), nil
	case domain.OpNotIn:
		return "NOT " + prop + " IN " + t.bind(toSlice(p.Value)), nil
	case domain.OpStartsWith:
		return prop + " STARTS WITH " + t.bind(p.Value), nil
	default:
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate cypher filter",
			fmt.Errorf("unknown operation %q", p.Op))
	}
}

func (t *translator) expression(e domain.FilterExpression) (string, error) {
	join := " AND "
	if e.Op == domain.OpOrAll {
		join = " OR "
	} else if e.Op != domain.OpAndAll {
		return "", domain.WrapError(domain.ErrInvalidFilter, "translate cypher filter",
			fmt.Errorf("unknown logical operation %q", e.Op))
	}

	parts := make([]string, 0, len(e.Predicates))
	for _, predicate := range e.Predicates {
		part, err := t.node(predicate)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, join) + ")", nil
}

func toSlice(value any) []any {
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
