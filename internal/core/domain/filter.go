package domain

import (
	"fmt"
)

// FilterOp is a comparison operator on one metadata attribute.
type FilterOp string

const (
	OpEquals              FilterOp = "equals"
	OpNotEquals           FilterOp = "notEquals"
	OpGreaterThan         FilterOp = "greaterThan"
	OpGreaterThanOrEquals FilterOp = "greaterThanOrEquals"
	OpLessThan            FilterOp = "lessThan"
	OpLessThanOrEquals    FilterOp = "lessThanOrEquals"
	OpIn                  FilterOp = "in"
	OpNotIn               FilterOp = "notIn"
	OpStartsWith          FilterOp = "startsWith"
)

// LogicalOp combines nested filter nodes.
type LogicalOp string

const (
	OpAndAll LogicalOp = "andAll"
	OpOrAll  LogicalOp = "orAll"
)

// Filter is a boolean predicate AST node: either a FilterPredicate or a
// FilterExpression. The typed AST is the canonical in-process form; the
// nested-map form accepted by ParseFilter is only a serialization boundary.
type Filter interface {
	isFilter()
}

// FilterPredicate is a single attribute comparison.
type FilterPredicate struct {
	Op    FilterOp
	Key   string
	Value any
}

// FilterExpression combines nested nodes with andAll/orAll.
type FilterExpression struct {
	Op         LogicalOp
	Predicates []Filter
}

func (FilterPredicate) isFilter()  {}
func (FilterExpression) isFilter() {}

// And returns base ANDed with extra. Either side may be nil.
func And(base, extra Filter) Filter {
	if base == nil {
		return extra
	}
	if extra == nil {
		return base
	}
	return FilterExpression{Op: OpAndAll, Predicates: []Filter{base, extra}}
}

var comparisonOps = map[FilterOp]bool{
	OpEquals:              true,
	OpNotEquals:           true,
	OpGreaterThan:         true,
	OpGreaterThanOrEquals: true,
	OpLessThan:            true,
	OpLessThanOrEquals:    true,
	OpIn:                  true,
	OpNotIn:               true,
	OpStartsWith:          true,
}

var logicalOps = map[LogicalOp]bool{
	OpAndAll: true,
	OpOrAll:  true,
}

// ParseFilter converts the nested-map serialization into the typed AST,
// validating strictly on parse:
//
//	{"equals": {"key": "doc_type", "value": "base"}}
//	{"andAll": [ <node>, <node>, ... ]}
//
// A nil or empty map parses to a nil filter. Malformed input (more than one
// op key, unknown op, missing key/value/predicates) is ErrInvalidFilter.
func ParseFilter(raw map[string]any) (Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if len(raw) > 1 {
		return nil, WrapError(ErrInvalidFilter, "parse filter", fmt.Errorf("expected exactly one operation key, got %d", len(raw)))
	}

	var op string
	var operand any
	for k, v := range raw {
		op, operand = k, v
	}

	if comparisonOps[FilterOp(op)] {
		return parsePredicate(FilterOp(op), operand)
	}
	if logicalOps[LogicalOp(op)] {
		return parseExpression(LogicalOp(op), operand)
	}
	return nil, WrapError(ErrInvalidFilter, "parse filter", fmt.Errorf("unknown operation %q", op))
}

func parsePredicate(op FilterOp, operand any) (Filter, error) {
	body, ok := operand.(map[string]any)
	if !ok {
		return nil, WrapError(ErrInvalidFilter, "parse predicate", fmt.Errorf("operand of %q must be an object", op))
	}
	key, ok := body["key"].(string)
	if !ok || key == "" {
		return nil, WrapError(ErrInvalidFilter, "parse predicate", fmt.Errorf("%q is missing key", op))
	}
	value, ok := body["value"]
	if !ok || value == nil {
		return nil, WrapError(ErrInvalidFilter, "parse predicate", fmt.Errorf("%q is missing value", op))
	}
	return FilterPredicate{Op: op, Key: key, Value: value}, nil
}

func parseExpression(op LogicalOp, operand any) (Filter, error) {
	items, ok := operand.([]any)
	if !ok {
		return nil, WrapError(ErrInvalidFilter, "parse expression", fmt.Errorf("operand of %q must be a list", op))
	}
	if len(items) == 0 {
		return nil, WrapError(ErrInvalidFilter, "parse expression", fmt.Errorf("%q has no predicates", op))
	}
	predicates := make([]Filter, 0, len(items))
	for _, item := range items {
		nested, ok := item.(map[string]any)
		if !ok {
			return nil, WrapError(ErrInvalidFilter, "parse expression", fmt.Errorf("predicate of %q must be an object", op))
		}
		parsed, err := ParseFilter(nested)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, parsed)
	}
	return FilterExpression{Op: op, Predicates: predicates}, nil
}
