package slice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3vectors/infrastructure/config"
)

func sampleRows() []Row {
	return []Row{
		{Key: "a", Vector: []float32{1, 2, 3}, MetadataJSON: `{"genre":"jazz"}`},
		{Key: "b", Vector: []float32{-0.5, 0, 4.25}, MetadataJSON: "{}"},
		{Key: "c", Vector: []float32{0, 0, 0}, MetadataJSON: `{"year":1959,"live":true}`},
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "parquet", Ext(config.SliceFormatParquet))
	assert.Equal(t, "jsonl", Ext(config.SliceFormatJSONL))
	assert.Equal(t, "application/vnd.apache.parquet", ContentType(config.SliceFormatParquet))
	assert.Equal(t, "application/x-ndjson", ContentType(config.SliceFormatJSONL))
}

func TestParquetRoundTrip(t *testing.T) {
	rows := sampleRows()
	data, err := Encode(config.SliceFormatParquet, rows)
	require.NoError(t, err)

	decoded, err := Decode("staged/songs/slice-0000000000001.parquet", data)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded)
}

func TestJSONLRoundTrip(t *testing.T) {
	rows := sampleRows()
	data, err := Encode(config.SliceFormatJSONL, rows)
	require.NoError(t, err)

	decoded, err := Decode("staged/songs/slice-0000000000001.jsonl", data)
	require.NoError(t, err)
	assert.Equal(t, rows, decoded)
}

func TestDecodeDispatchesOnExtension(t *testing.T) {
	rows := sampleRows()

	jsonl, err := Encode(config.SliceFormatJSONL, rows)
	require.NoError(t, err)

	// A jsonl body under a parquet key must fail the parquet decoder, not
	// silently half-parse.
	_, err = Decode("staged/songs/slice-0000000000001.parquet", jsonl)
	assert.Error(t, err)
}

func TestDecodeJSONLSkipsBlankLines(t *testing.T) {
	body := []byte("\n" + `{"key":"a","vector":[1],"metadata_json":"{}"}` + "\n\n")
	rows, err := decodeJSONL(body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Key)
}

func TestDecodeCorruptParquet(t *testing.T) {
	_, err := Decode("staged/songs/slice-0000000000001.parquet", []byte("not parquet"))
	assert.Error(t, err)
}
