// Package schema manages the per-index typed filterable column registry:
// type inference from incoming batches, nullable-column evolution, and the
// split of row metadata into typed cells and the opaque JSON blob.
package schema

import (
	"encoding/json"
	"math"

	apperrors "s3vectors/pkg/errors"
)

// ColumnType is the physical type of a filterable column
type ColumnType string

const (
	TypeBool    ColumnType = "bool"
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeString  ColumnType = "string"
)

// Column is a typed filterable column
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// reservedColumns are the base columns of the ID map file. Metadata keys
// with these names are never promoted; they stay in the JSON blob.
var reservedColumns = map[string]bool{
	"id": true, "key": true, "vector": true, "metadata_json": true, "alive": true,
}

// IsReservedColumn reports whether a metadata key collides with a base
// column of the columnar file
func IsReservedColumn(name string) bool {
	return reservedColumns[name]
}

// Registry is the typed column registry of an index, persisted as
// indexes/<name>/_schema.json. The column set grows monotonically; columns
// are never retyped or dropped.
type Registry struct {
	Columns       []Column `json:"filterable"`
	NonFilterable []string `json:"nonFilterable,omitempty"`
}

// NewRegistry creates an empty registry with the declared non-filterable keys
func NewRegistry(nonFilterable []string) *Registry {
	return &Registry{NonFilterable: nonFilterable}
}

// Lookup returns the column with the given name
func (r *Registry) Lookup(name string) (Column, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsTyped reports whether a metadata key is backed by a typed column
func (r *Registry) IsTyped(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

func (r *Registry) isNonFilterable(name string) bool {
	for _, k := range r.NonFilterable {
		if k == name {
			return true
		}
	}
	return false
}

// AddColumn appends a nullable column. Adding a column that already exists
// is a no-op regardless of the requested type, so racing writers reconcile
// instead of failing.
func (r *Registry) AddColumn(name string, t ColumnType) bool {
	if IsReservedColumn(name) {
		return false
	}
	if _, exists := r.Lookup(name); exists {
		return false
	}
	r.Columns = append(r.Columns, Column{Name: name, Type: t})
	return true
}

// Evolve scans a row's metadata and adds a nullable column for every
// filterable key not yet in the registry, inferring the physical type from
// the first non-null value encountered. Returns the columns added.
func (r *Registry) Evolve(metadata map[string]interface{}) []Column {
	var added []Column
	for key, value := range metadata {
		if IsReservedColumn(key) || r.isNonFilterable(key) || r.IsTyped(key) {
			continue
		}
		t, ok := InferType(value)
		if !ok {
			continue // lists and objects stay in the JSON blob
		}
		if r.AddColumn(key, t) {
			added = append(added, Column{Name: key, Type: t})
		}
	}
	return added
}

// InferType maps a decoded JSON value to a column type. JSON numbers
// arrive as float64; integral values infer int64.
func InferType(v interface{}) (ColumnType, bool) {
	switch n := v.(type) {
	case bool:
		return TypeBool, true
	case string:
		return TypeString, true
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return TypeInt64, true
		}
		return TypeFloat64, true
	case int:
		return TypeInt64, true
	case int64:
		return TypeInt64, true
	}
	return "", false
}

// Split divides row metadata into typed cells and the serialized remainder.
// A value that cannot be coerced to its column's type stays in the JSON
// blob, so a later type mismatch never loses data.
func (r *Registry) Split(metadata map[string]interface{}) (map[string]interface{}, string, error) {
	cells := make(map[string]interface{})
	rest := make(map[string]interface{})

	for key, value := range metadata {
		col, ok := r.Lookup(key)
		if !ok {
			rest[key] = value
			continue
		}
		coerced, ok := coerce(value, col.Type)
		if !ok {
			rest[key] = value
			continue
		}
		cells[key] = coerced
	}

	raw, err := json.Marshal(rest)
	if err != nil {
		return nil, "", apperrors.NewValidationError("metadata is not serializable")
	}
	return cells, string(raw), nil
}

// Merge overlays typed cells onto the decoded JSON blob, typed values
// winning on key collisions. The result is the row's metadata as written.
func Merge(cells map[string]interface{}, metadataJSON string) (map[string]interface{}, error) {
	merged := make(map[string]interface{})
	if metadataJSON != "" && metadataJSON != "{}" {
		if err := json.Unmarshal([]byte(metadataJSON), &merged); err != nil {
			return nil, apperrors.NewDependencyError("decode metadata blob", err)
		}
	}
	for key, value := range cells {
		merged[key] = value
	}
	return merged, nil
}

func coerce(v interface{}, t ColumnType) (interface{}, bool) {
	switch t {
	case TypeBool:
		b, ok := v.(bool)
		return b, ok
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeInt64:
		switch n := v.(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int64(n), true
			}
		}
		return nil, false
	case TypeFloat64:
		switch n := v.(type) {
		case float64:
			return n, true
		case int64:
			return float64(n), true
		case int:
			return float64(n), true
		}
		return nil, false
	}
	return nil, false
}
