package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Translator renders a filter tree as a SQL WHERE clause. Leaves whose key
// is a known typed column compare against the quoted column; every other
// leaf falls back to json_extract over the metadata_json blob. All literals
// and identifiers round-trip through a single escaper.
type Translator struct {
	// IsTypedColumn reports whether a metadata key is backed by a typed
	// filterable column. A nil callback means no typed columns exist.
	IsTypedColumn func(name string) bool
}

// Where renders the clause. A nil tree renders TRUE so the filter can be
// dropped into a larger predicate unconditionally.
func (t Translator) Where(e *Expr) string {
	if e == nil {
		return "TRUE"
	}
	switch e.Op {
	case OpAnd, OpOr:
		if len(e.Conditions) == 0 {
			return "TRUE"
		}
		joiner := " AND "
		if e.Op == OpOr {
			joiner = " OR "
		}
		parts := make([]string, len(e.Conditions))
		for i, c := range e.Conditions {
			parts[i] = t.Where(c)
		}
		return "(" + strings.Join(parts, joiner) + ")"
	case OpNot:
		return "(NOT " + t.Where(e.Conditions[0]) + ")"
	}

	if e.Key == "" {
		return "TRUE"
	}
	column := t.columnExpr(e.Key)

	switch e.Op {
	case OpEquals:
		return fmt.Sprintf("%s = %s", column, formatLiteral(e.Value))
	case OpNotEquals:
		return fmt.Sprintf("%s != %s", column, formatLiteral(e.Value))
	case OpGreaterThan:
		return fmt.Sprintf("%s > %s", column, formatLiteral(e.Value))
	case OpGreaterEqual:
		return fmt.Sprintf("%s >= %s", column, formatLiteral(e.Value))
	case OpLessThan:
		return fmt.Sprintf("%s < %s", column, formatLiteral(e.Value))
	case OpLessEqual:
		return fmt.Sprintf("%s <= %s", column, formatLiteral(e.Value))
	case OpIn:
		list, ok := e.Value.([]interface{})
		if !ok || len(list) == 0 {
			return "FALSE"
		}
		return fmt.Sprintf("%s IN (%s)", column, formatLiteralList(list))
	case OpNotIn:
		list, ok := e.Value.([]interface{})
		if !ok || len(list) == 0 {
			return "TRUE"
		}
		return fmt.Sprintf("%s NOT IN (%s)", column, formatLiteralList(list))
	case OpExists:
		want := true
		if b, ok := e.Value.(bool); ok {
			want = b
		}
		if want {
			return fmt.Sprintf("%s IS NOT NULL", column)
		}
		return fmt.Sprintf("%s IS NULL", column)
	}

	// Unknown operator: the filter is ignored safely
	return "TRUE"
}

// columnExpr renders either a quoted typed column or the JSON fallback
func (t Translator) columnExpr(key string) string {
	if t.IsTypedColumn != nil && t.IsTypedColumn(key) {
		return quoteIdent(key)
	}
	return fmt.Sprintf("json_extract(metadata_json, %s)", formatLiteral("$."+key))
}

// quoteIdent quotes a column identifier, doubling embedded quotes
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// formatLiteral renders a value as a type-correct SQL literal. Strings are
// escaped by doubling single quotes; this is the only literal path, so no
// leaf can smuggle raw SQL through a key or value.
func formatLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(val), "'", "''") + "'"
	}
}

func formatLiteralList(list []interface{}) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = formatLiteral(v)
	}
	return strings.Join(parts, ", ")
}
