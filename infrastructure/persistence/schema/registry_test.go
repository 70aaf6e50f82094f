package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferType(t *testing.T) {
	tests := []struct {
		value interface{}
		want  ColumnType
		ok    bool
	}{
		{true, TypeBool, true},
		{"jazz", TypeString, true},
		{float64(1959), TypeInt64, true},
		{4.5, TypeFloat64, true},
		{int64(3), TypeInt64, true},
		{[]interface{}{"a"}, "", false},
		{map[string]interface{}{"a": 1}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		got, ok := InferType(tt.value)
		assert.Equal(t, tt.ok, ok)
		if ok {
			assert.Equal(t, tt.want, got)
		}
	}
}

func TestEvolve(t *testing.T) {
	r := NewRegistry([]string{"lyrics"})

	added := r.Evolve(map[string]interface{}{
		"genre":  "jazz",
		"year":   float64(1959),
		"lyrics": "so what",
		"tags":   []interface{}{"modal"},
		"key":    "collides with base column",
	})

	// Only genre and year: lyrics is non-filterable, tags is a list, key is
	// reserved.
	assert.Len(t, added, 2)
	assert.True(t, r.IsTyped("genre"))
	assert.True(t, r.IsTyped("year"))
	assert.False(t, r.IsTyped("lyrics"))
	assert.False(t, r.IsTyped("tags"))
	assert.False(t, r.IsTyped("key"))

	col, ok := r.Lookup("year")
	require.True(t, ok)
	assert.Equal(t, TypeInt64, col.Type)

	// Evolving again with the same keys adds nothing, even under a
	// conflicting observed type.
	added = r.Evolve(map[string]interface{}{"genre": 3.14})
	assert.Empty(t, added)
	col, _ = r.Lookup("genre")
	assert.Equal(t, TypeString, col.Type)
}

func TestAddColumnRejectsReservedNames(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"id", "key", "vector", "metadata_json", "alive"} {
		assert.True(t, IsReservedColumn(name))
		assert.False(t, r.AddColumn(name, TypeString))
	}
	assert.Empty(t, r.Columns)
}

func TestSplit(t *testing.T) {
	r := NewRegistry(nil)
	r.AddColumn("genre", TypeString)
	r.AddColumn("year", TypeInt64)

	cells, rest, err := r.Split(map[string]interface{}{
		"genre": "jazz",
		"year":  float64(1959),
		"tags":  []interface{}{"modal"},
	})
	require.NoError(t, err)

	assert.Equal(t, "jazz", cells["genre"])
	assert.Equal(t, int64(1959), cells["year"])
	assert.NotContains(t, cells, "tags")
	assert.Contains(t, rest, "tags")
	assert.NotContains(t, rest, "genre")
}

func TestSplitTypeMismatchStaysInBlob(t *testing.T) {
	r := NewRegistry(nil)
	r.AddColumn("year", TypeInt64)

	// A fractional value cannot live in the int64 column; it must survive in
	// the JSON remainder rather than be dropped.
	cells, rest, err := r.Split(map[string]interface{}{"year": 1959.5})
	require.NoError(t, err)
	assert.NotContains(t, cells, "year")
	assert.Contains(t, rest, "1959.5")
}

func TestMerge(t *testing.T) {
	merged, err := Merge(
		map[string]interface{}{"genre": "jazz", "year": int64(1959)},
		`{"note":"x","genre":"stale"}`,
	)
	require.NoError(t, err)

	// Typed cells win on collision.
	assert.Equal(t, "jazz", merged["genre"])
	assert.Equal(t, int64(1959), merged["year"])
	assert.Equal(t, "x", merged["note"])
}

func TestMergeEmptyBlob(t *testing.T) {
	merged, err := Merge(map[string]interface{}{"a": true}, "{}")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": true}, merged)

	merged, err = Merge(nil, "")
	require.NoError(t, err)
	assert.Empty(t, merged)
}

func TestMergeCorruptBlob(t *testing.T) {
	_, err := Merge(nil, `{"broken`)
	assert.Error(t, err)
}
