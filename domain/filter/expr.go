// Package filter implements the metadata filter expression tree: decoding
// from the wire format, in-process predicate evaluation, and translation to
// a SQL WHERE clause. The predicate tree is the single source of truth for
// filter semantics; the translator must agree with it for any dataset.
package filter

import (
	"encoding/json"
	"reflect"

	apperrors "s3vectors/pkg/errors"
)

// Operator is a filter tree node operator
type Operator string

const (
	OpAnd Operator = "and"
	OpOr  Operator = "or"
	OpNot Operator = "not"

	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "not_equals"
	OpGreaterThan  Operator = "greater_than"
	OpGreaterEqual Operator = "greater_equal"
	OpLessThan     Operator = "less_than"
	OpLessEqual    Operator = "less_equal"
	OpIn           Operator = "in"
	OpNotIn        Operator = "not_in"
	OpExists       Operator = "exists"
)

// operatorAliases maps the $-prefixed spellings onto canonical operators
var operatorAliases = map[string]Operator{
	"$and": OpAnd, "$or": OpOr, "$not": OpNot,
	"$eq": OpEquals, "$ne": OpNotEquals,
	"$gt": OpGreaterThan, "$gte": OpGreaterEqual,
	"$lt": OpLessThan, "$lte": OpLessEqual,
	"$in": OpIn, "$nin": OpNotIn, "$exists": OpExists,
}

// Expr is a node of the filter tree. Logical nodes carry Conditions; leaf
// nodes carry Key and Value.
type Expr struct {
	Op         Operator
	Key        string
	Value      interface{}
	Conditions []*Expr
}

// IsLogical reports whether the node composes child expressions
func (e *Expr) IsLogical() bool {
	return e.Op == OpAnd || e.Op == OpOr || e.Op == OpNot
}

// rawExpr is the wire shape of a filter node. "conditions", "operands" and
// a list-valued "value" are accepted interchangeably for logical nodes.
type rawExpr struct {
	Operator    string          `json:"operator"`
	MetadataKey string          `json:"metadata_key"`
	Value       json.RawMessage `json:"value"`
	Conditions  []rawExpr       `json:"conditions"`
	Operands    []rawExpr       `json:"operands"`
}

// Parse decodes a filter document into an expression tree. A nil or empty
// document yields a nil tree, which matches everything.
func Parse(raw json.RawMessage) (*Expr, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil, nil
	}
	var node rawExpr
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, apperrors.NewValidationError("filter is not a valid filter document")
	}
	return buildExpr(node)
}

func buildExpr(node rawExpr) (*Expr, error) {
	op := Operator(node.Operator)
	if alias, ok := operatorAliases[node.Operator]; ok {
		op = alias
	}

	e := &Expr{Op: op, Key: node.MetadataKey}

	if e.IsLogical() {
		children := node.Conditions
		if len(children) == 0 {
			children = node.Operands
		}
		if len(children) == 0 && len(node.Value) > 0 {
			// "value" carrying the child list
			var fromValue []rawExpr
			if err := json.Unmarshal(node.Value, &fromValue); err == nil {
				children = fromValue
			}
		}
		for _, c := range children {
			child, err := buildExpr(c)
			if err != nil {
				return nil, err
			}
			e.Conditions = append(e.Conditions, child)
		}
		if e.Op == OpNot && len(e.Conditions) != 1 {
			return nil, apperrors.NewValidationError("filter operator 'not' requires exactly one condition")
		}
		return e, nil
	}

	if len(node.Value) > 0 {
		var v interface{}
		if err := json.Unmarshal(node.Value, &v); err != nil {
			return nil, apperrors.NewValidationError("filter value is not valid JSON")
		}
		e.Value = v
	}
	return e, nil
}

// Matches evaluates the expression against a metadata object. A nil
// expression matches everything.
func (e *Expr) Matches(metadata map[string]interface{}) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case OpAnd:
		for _, c := range e.Conditions {
			if !c.Matches(metadata) {
				return false
			}
		}
		return true
	case OpOr:
		if len(e.Conditions) == 0 {
			return true
		}
		for _, c := range e.Conditions {
			if c.Matches(metadata) {
				return true
			}
		}
		return false
	case OpNot:
		return !e.Conditions[0].Matches(metadata)
	}

	// Leaf without a key is ignored safely
	if e.Key == "" {
		return true
	}
	val, present := metadata[e.Key]

	switch e.Op {
	case OpEquals:
		return present && valuesEqual(val, e.Value)
	case OpNotEquals:
		return !present || !valuesEqual(val, e.Value)
	case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
		if !present {
			return false
		}
		return compareNumeric(e.Op, val, e.Value)
	case OpIn:
		list, ok := e.Value.([]interface{})
		if !ok || len(list) == 0 {
			return false
		}
		if !present {
			return false
		}
		for _, item := range list {
			if valuesEqual(val, item) {
				return true
			}
		}
		return false
	case OpNotIn:
		list, ok := e.Value.([]interface{})
		if !ok || len(list) == 0 {
			return true
		}
		if !present {
			return true
		}
		for _, item := range list {
			if valuesEqual(val, item) {
				return false
			}
		}
		return true
	case OpExists:
		want := true
		if b, ok := e.Value.(bool); ok {
			want = b
		}
		return present == want
	}

	// Unknown operator: the filter is ignored safely
	return true
}

// TypedOnly reports whether every leaf references a column the callback
// recognizes, i.e. the whole tree can run as a typed-column prefilter.
func (e *Expr) TypedOnly(isTyped func(name string) bool) bool {
	if e == nil {
		return true
	}
	if e.IsLogical() {
		for _, c := range e.Conditions {
			if !c.TypedOnly(isTyped) {
				return false
			}
		}
		return true
	}
	if e.Key == "" {
		return true
	}
	return isTyped(e.Key)
}

// valuesEqual compares metadata values with numeric cross-type tolerance:
// an int64 column cell must equal a float64 JSON literal of the same value.
func valuesEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return reflect.DeepEqual(a, b)
}

func compareNumeric(op Operator, a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return false
	}
	switch op {
	case OpGreaterThan:
		return af > bf
	case OpGreaterEqual:
		return af >= bf
	case OpLessThan:
		return af < bf
	case OpLessEqual:
		return af <= bf
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
