// Package idmap implements the durable authoritative table of
// (id, key, vector, metadata, alive, typed columns) for an index. The map
// is a single parquet file replaced wholesale on each build; tombstoned
// rows are kept so internal ids stay stable across rebuilds.
package idmap

import (
	"bytes"
	"errors"
	"io"
	"sort"

	"github.com/parquet-go/parquet-go"
	pqzstd "github.com/parquet-go/parquet-go/compress/zstd"

	"s3vectors/infrastructure/persistence/schema"
	apperrors "s3vectors/pkg/errors"
)

// Row is one row of the ID map
type Row struct {
	ID           int64
	Key          string
	Vector       []float32
	MetadataJSON string
	Alive        bool
	// Cells holds the typed filterable column values; a missing entry is
	// a NULL cell.
	Cells map[string]interface{}
}

// Map is an in-memory ID map. Internal ids are dense, assigned once, and
// never reused; the latest row per key wins.
type Map struct {
	columns []schema.Column
	rows    []Row
	byKey   map[string]int // latest row index per key
}

// New creates an empty map with the given typed columns
func New(columns []schema.Column) *Map {
	return &Map{columns: columns, byKey: make(map[string]int)}
}

// SetColumns replaces the typed column set after schema evolution. Columns
// only grow, so existing rows simply read as NULL in the new columns.
func (m *Map) SetColumns(columns []schema.Column) {
	m.columns = columns
}

// Len returns the total row count including tombstones
func (m *Map) Len() int { return len(m.rows) }

// LiveCount returns the number of non-tombstoned rows
func (m *Map) LiveCount() int {
	n := 0
	for _, r := range m.rows {
		if r.Alive {
			n++
		}
	}
	return n
}

// MaxID returns the highest assigned id, or -1 for an empty map
func (m *Map) MaxID() int64 {
	if len(m.rows) == 0 {
		return -1
	}
	return m.rows[len(m.rows)-1].ID
}

// Append adds a row with the next dense id. A previous live row with the
// same key is tombstoned: last write wins, ids are never rebound.
func (m *Map) Append(key string, vector []float32, metadataJSON string, cells map[string]interface{}) int64 {
	if prev, ok := m.byKey[key]; ok && m.rows[prev].Alive {
		m.rows[prev].Alive = false
	}
	id := m.MaxID() + 1
	m.rows = append(m.rows, Row{
		ID:           id,
		Key:          key,
		Vector:       vector,
		MetadataJSON: metadataJSON,
		Alive:        true,
		Cells:        cells,
	})
	m.byKey[key] = len(m.rows) - 1
	return id
}

// Tombstone flips alive to false for each matching live key and returns how
// many rows were tombstoned. The ids stay reserved.
func (m *Map) Tombstone(keys []string) int {
	n := 0
	for _, key := range keys {
		if i, ok := m.byKey[key]; ok && m.rows[i].Alive {
			m.rows[i].Alive = false
			n++
		}
	}
	return n
}

// ByKey returns the latest live row for a key
func (m *Map) ByKey(key string) (Row, bool) {
	i, ok := m.byKey[key]
	if !ok || !m.rows[i].Alive {
		return Row{}, false
	}
	return m.rows[i], true
}

// ByID returns the row with the given internal id. Ids are dense row
// positions by construction; out-of-range ids report absence.
func (m *Map) ByID(id int64) (Row, bool) {
	if id < 0 || id >= int64(len(m.rows)) {
		return Row{}, false
	}
	return m.rows[id], true
}

// Page returns up to limit live rows with key > afterKey in key order, and
// the cursor for the next page ("" when exhausted).
func (m *Map) Page(afterKey string, limit int) ([]Row, string) {
	keys := make([]string, 0, len(m.byKey))
	for key, i := range m.byKey {
		if m.rows[i].Alive && key > afterKey {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		page := make([]Row, limit)
		for i, key := range keys[:limit] {
			page[i] = m.rows[m.byKey[key]]
		}
		return page, keys[limit-1]
	}
	page := make([]Row, len(keys))
	for i, key := range keys {
		page[i] = m.rows[m.byKey[key]]
	}
	return page, ""
}

// VectorsAndIDs returns every row's vector and id, tombstones included. The
// backend indexes all rows; aliveness is filtered after search.
func (m *Map) VectorsAndIDs() ([][]float32, []int64) {
	vectors := make([][]float32, len(m.rows))
	ids := make([]int64, len(m.rows))
	for i, r := range m.rows {
		vectors[i] = r.Vector
		ids[i] = r.ID
	}
	return vectors, ids
}

// Columns returns the typed column set the map was opened with
func (m *Map) Columns() []schema.Column { return m.columns }

// buildSchema constructs the parquet schema: the five base columns plus one
// optional column per typed filterable key.
func buildSchema(columns []schema.Column) *parquet.Schema {
	group := parquet.Group{
		"id":            parquet.Leaf(parquet.Int64Type),
		"key":           parquet.String(),
		"vector":        parquet.Repeated(parquet.Leaf(parquet.FloatType)),
		"metadata_json": parquet.Compressed(parquet.String(), &pqzstd.Codec{}),
		"alive":         parquet.Leaf(parquet.BooleanType),
	}
	for _, c := range columns {
		group[c.Name] = parquet.Optional(nodeFor(c.Type))
	}
	return parquet.NewSchema("idmap", group)
}

func nodeFor(t schema.ColumnType) parquet.Node {
	switch t {
	case schema.TypeBool:
		return parquet.Leaf(parquet.BooleanType)
	case schema.TypeInt64:
		return parquet.Leaf(parquet.Int64Type)
	case schema.TypeFloat64:
		return parquet.Leaf(parquet.DoubleType)
	default:
		return parquet.String()
	}
}

// Encode serializes the whole map as one parquet file
func (m *Map) Encode() ([]byte, error) {
	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[map[string]interface{}](&buf, buildSchema(m.columns))

	records := make([]map[string]interface{}, len(m.rows))
	for i, r := range m.rows {
		record := map[string]interface{}{
			"id":            r.ID,
			"key":           r.Key,
			"vector":        r.Vector,
			"metadata_json": r.MetadataJSON,
			"alive":         r.Alive,
		}
		for name, value := range r.Cells {
			record[name] = value
		}
		records[i] = record
	}
	if _, err := writer.Write(records); err != nil {
		return nil, apperrors.NewInternalError("encode id map").WithCause(err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError("finalize id map").WithCause(err)
	}
	return buf.Bytes(), nil
}

// Decode reads a serialized map. The typed column set comes from the
// registry, not the file, so a schema that evolved since the last build
// simply reads the new columns as NULL.
func Decode(data []byte, columns []schema.Column) (*Map, error) {
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.NewDependencyError("open id map", err)
	}
	// Map records cannot derive a schema; read with the file's own schema so
	// columns dropped from the registry still decode.
	reader := parquet.NewGenericReader[map[string]interface{}](file, file.Schema())
	defer reader.Close()

	m := New(columns)
	batch := make([]map[string]interface{}, 256)
	for {
		for i := range batch {
			batch[i] = make(map[string]interface{}, 8)
		}
		n, err := reader.Read(batch)
		for _, record := range batch[:n] {
			row, rerr := rowFromRecord(record, columns)
			if rerr != nil {
				return nil, rerr
			}
			m.rows = append(m.rows, row)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewDependencyError("read id map", err)
		}
		if n == 0 {
			break
		}
	}

	for i, r := range m.rows {
		m.byKey[r.Key] = i
	}
	return m, nil
}

func rowFromRecord(record map[string]interface{}, columns []schema.Column) (Row, error) {
	row := Row{Cells: make(map[string]interface{})}

	id, ok := asInt64(record["id"])
	if !ok {
		return Row{}, apperrors.NewDependencyError("decode id map row", errors.New("missing id column"))
	}
	row.ID = id
	row.Key = asString(record["key"])
	row.MetadataJSON = asString(record["metadata_json"])
	if alive, ok := record["alive"].(bool); ok {
		row.Alive = alive
	}
	row.Vector = asFloat32Slice(record["vector"])

	for _, c := range columns {
		value, present := record[c.Name]
		if !present || value == nil {
			continue
		}
		switch c.Type {
		case schema.TypeBool:
			if b, ok := value.(bool); ok {
				row.Cells[c.Name] = b
			}
		case schema.TypeInt64:
			if n, ok := asInt64(value); ok {
				row.Cells[c.Name] = n
			}
		case schema.TypeFloat64:
			if f, ok := asFloat64(value); ok {
				row.Cells[c.Name] = f
			}
		case schema.TypeString:
			row.Cells[c.Name] = asString(value)
		}
	}
	return row, nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

func asFloat32Slice(v interface{}) []float32 {
	switch vec := v.(type) {
	case []float32:
		return vec
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out
	case []interface{}:
		out := make([]float32, 0, len(vec))
		for _, item := range vec {
			switch f := item.(type) {
			case float32:
				out = append(out, f)
			case float64:
				out = append(out, float32(f))
			}
		}
		return out
	}
	return nil
}
