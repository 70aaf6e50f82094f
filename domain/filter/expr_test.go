package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Expr {
	t.Helper()
	e, err := Parse(json.RawMessage(doc))
	require.NoError(t, err)
	return e
}

func TestParse_EmptyDocumentsMatchEverything(t *testing.T) {
	for _, doc := range []string{"", "null", "{}"} {
		e, err := Parse(json.RawMessage(doc))
		assert.NoError(t, err)
		assert.Nil(t, e)
		assert.True(t, e.Matches(map[string]interface{}{"genre": "jazz"}))
	}
}

func TestParse_InvalidDocument(t *testing.T) {
	_, err := Parse(json.RawMessage(`[1,2,3`))
	assert.Error(t, err)
}

func TestParse_NotRequiresOneCondition(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"operator":"not","conditions":[]}`))
	assert.Error(t, err)

	_, err = Parse(json.RawMessage(`{"operator":"not","conditions":[
		{"operator":"equals","metadata_key":"a","value":1},
		{"operator":"equals","metadata_key":"b","value":2}]}`))
	assert.Error(t, err)
}

func TestMatches_Comparisons(t *testing.T) {
	row := map[string]interface{}{
		"genre": "jazz",
		"year":  float64(1959),
		"live":  true,
	}

	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"equals string", `{"operator":"equals","metadata_key":"genre","value":"jazz"}`, true},
		{"equals miss", `{"operator":"equals","metadata_key":"genre","value":"rock"}`, false},
		{"equals absent key", `{"operator":"equals","metadata_key":"label","value":"x"}`, false},
		{"not_equals", `{"operator":"not_equals","metadata_key":"genre","value":"rock"}`, true},
		{"not_equals absent key", `{"operator":"not_equals","metadata_key":"label","value":"x"}`, true},
		{"greater_than", `{"operator":"greater_than","metadata_key":"year","value":1950}`, true},
		{"greater_equal boundary", `{"operator":"greater_equal","metadata_key":"year","value":1959}`, true},
		{"less_than", `{"operator":"less_than","metadata_key":"year","value":1959}`, false},
		{"less_equal", `{"operator":"less_equal","metadata_key":"year","value":1959}`, true},
		{"range on absent key", `{"operator":"greater_than","metadata_key":"tempo","value":100}`, false},
		{"range on non-numeric", `{"operator":"greater_than","metadata_key":"genre","value":100}`, false},
		{"equals bool", `{"operator":"equals","metadata_key":"live","value":true}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.doc).Matches(row))
		})
	}
}

func TestMatches_NumericCrossTypeEquality(t *testing.T) {
	// Typed int64 cells must compare equal to float64 JSON literals.
	row := map[string]interface{}{"year": int64(1959)}
	assert.True(t, mustParse(t, `{"operator":"equals","metadata_key":"year","value":1959}`).Matches(row))
	assert.True(t, mustParse(t, `{"operator":"greater_equal","metadata_key":"year","value":1959.0}`).Matches(row))
}

func TestMatches_InAndNotIn(t *testing.T) {
	row := map[string]interface{}{"genre": "jazz"}

	assert.True(t, mustParse(t, `{"operator":"in","metadata_key":"genre","value":["rock","jazz"]}`).Matches(row))
	assert.False(t, mustParse(t, `{"operator":"in","metadata_key":"genre","value":["rock","pop"]}`).Matches(row))
	assert.False(t, mustParse(t, `{"operator":"in","metadata_key":"missing","value":["rock"]}`).Matches(row))

	// Empty list: in matches nothing, not_in matches everything.
	assert.False(t, mustParse(t, `{"operator":"in","metadata_key":"genre","value":[]}`).Matches(row))
	assert.True(t, mustParse(t, `{"operator":"not_in","metadata_key":"genre","value":[]}`).Matches(row))

	assert.False(t, mustParse(t, `{"operator":"not_in","metadata_key":"genre","value":["jazz"]}`).Matches(row))
	assert.True(t, mustParse(t, `{"operator":"not_in","metadata_key":"missing","value":["jazz"]}`).Matches(row))
}

func TestMatches_Exists(t *testing.T) {
	row := map[string]interface{}{"genre": "jazz"}

	assert.True(t, mustParse(t, `{"operator":"exists","metadata_key":"genre"}`).Matches(row))
	assert.False(t, mustParse(t, `{"operator":"exists","metadata_key":"label"}`).Matches(row))
	assert.True(t, mustParse(t, `{"operator":"exists","metadata_key":"label","value":false}`).Matches(row))
	assert.False(t, mustParse(t, `{"operator":"exists","metadata_key":"genre","value":false}`).Matches(row))
}

func TestMatches_LogicalComposition(t *testing.T) {
	row := map[string]interface{}{"genre": "jazz", "year": float64(1959)}

	doc := `{"operator":"and","conditions":[
		{"operator":"equals","metadata_key":"genre","value":"jazz"},
		{"operator":"less_than","metadata_key":"year","value":1970}]}`
	assert.True(t, mustParse(t, doc).Matches(row))

	doc = `{"operator":"or","conditions":[
		{"operator":"equals","metadata_key":"genre","value":"rock"},
		{"operator":"equals","metadata_key":"genre","value":"jazz"}]}`
	assert.True(t, mustParse(t, doc).Matches(row))

	doc = `{"operator":"not","conditions":[
		{"operator":"equals","metadata_key":"genre","value":"jazz"}]}`
	assert.False(t, mustParse(t, doc).Matches(row))

	// Empty and/or both match everything.
	assert.True(t, mustParse(t, `{"operator":"and","conditions":[]}`).Matches(row))
	assert.True(t, mustParse(t, `{"operator":"or","conditions":[]}`).Matches(row))
}

func TestParse_DollarAliasesAndOperands(t *testing.T) {
	row := map[string]interface{}{"genre": "jazz", "year": float64(1959)}

	doc := `{"operator":"$and","operands":[
		{"operator":"$eq","metadata_key":"genre","value":"jazz"},
		{"operator":"$gte","metadata_key":"year","value":1950}]}`
	assert.True(t, mustParse(t, doc).Matches(row))

	// Child list carried in "value" instead of "conditions".
	doc = `{"operator":"or","value":[
		{"operator":"$in","metadata_key":"genre","value":["jazz"]}]}`
	assert.True(t, mustParse(t, doc).Matches(row))
}

func TestMatches_UnknownOperatorIsIgnored(t *testing.T) {
	e := mustParse(t, `{"operator":"regex","metadata_key":"genre","value":"j.*"}`)
	assert.True(t, e.Matches(map[string]interface{}{"genre": "rock"}))
}

func TestTypedOnly(t *testing.T) {
	typed := func(name string) bool { return name == "genre" || name == "year" }

	assert.True(t, (*Expr)(nil).TypedOnly(typed))
	assert.True(t, mustParse(t, `{"operator":"equals","metadata_key":"genre","value":"jazz"}`).TypedOnly(typed))
	assert.False(t, mustParse(t, `{"operator":"equals","metadata_key":"label","value":"x"}`).TypedOnly(typed))

	doc := `{"operator":"and","conditions":[
		{"operator":"equals","metadata_key":"genre","value":"jazz"},
		{"operator":"exists","metadata_key":"label"}]}`
	assert.False(t, mustParse(t, doc).TypedOnly(typed))
}
