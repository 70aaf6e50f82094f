// Package slice encodes and decodes staged write batches. A slice is a
// write-once columnar file of (key, vector, metadata_json) rows; parquet
// with zstd-compressed columns is the default, newline-delimited JSON the
// fallback. Both carry identical semantics and are selected per-install.
package slice

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"

	"github.com/parquet-go/parquet-go"

	"s3vectors/infrastructure/config"
	apperrors "s3vectors/pkg/errors"
)

// Row is one vector row of a staged batch
type Row struct {
	Key          string    `parquet:"key,zstd" json:"key"`
	Vector       []float32 `parquet:"vector" json:"vector"`
	MetadataJSON string    `parquet:"metadata_json,zstd" json:"metadata_json"`
}

// Ext returns the file extension for a slice format
func Ext(format config.SliceFormat) string {
	if format == config.SliceFormatJSONL {
		return "jsonl"
	}
	return "parquet"
}

// ContentType returns the MIME type for a slice format
func ContentType(format config.SliceFormat) string {
	if format == config.SliceFormatJSONL {
		return "application/x-ndjson"
	}
	return "application/vnd.apache.parquet"
}

// Encode serializes a batch in the configured format
func Encode(format config.SliceFormat, rows []Row) ([]byte, error) {
	if format == config.SliceFormatJSONL {
		return encodeJSONL(rows)
	}
	return encodeParquet(rows)
}

// Decode deserializes a slice, dispatching on the key's extension
func Decode(key string, data []byte) ([]Row, error) {
	if strings.HasSuffix(key, ".jsonl") {
		return decodeJSONL(data)
	}
	return decodeParquet(data)
}

func encodeParquet(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := parquet.Write(&buf, rows); err != nil {
		return nil, apperrors.NewInternalError("encode parquet slice").WithCause(err)
	}
	return buf.Bytes(), nil
}

func decodeParquet(data []byte) ([]Row, error) {
	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.NewDependencyError("decode parquet slice", err)
	}
	return rows, nil
}

func encodeJSONL(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return nil, apperrors.NewInternalError("encode jsonl slice").WithCause(err)
		}
	}
	return buf.Bytes(), nil
}

func decodeJSONL(data []byte) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r Row
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, apperrors.NewDependencyError("decode jsonl slice", err)
		}
		rows = append(rows, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewDependencyError("scan jsonl slice", err)
	}
	return rows, nil
}
