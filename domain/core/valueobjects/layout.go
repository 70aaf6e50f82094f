package valueobjects

import (
	"fmt"
	"strings"
)

// Object layout inside a vector bucket. Everything below is fixed; only the
// bucket-name prefix (applied by the object store adapter) is configurable.
const (
	MetaDir   = "_meta"
	IndexDir  = "indexes"
	StagedDir = "staged"

	BucketConfigKey = MetaDir + "/bucket.json"
)

// BucketMetaKey returns the key of the bucket metadata document
func BucketMetaKey() string {
	return BucketConfigKey
}

// IndexPrefix returns the durable-state prefix of an index
func IndexPrefix(index string) string {
	return fmt.Sprintf("%s/%s/", IndexDir, index)
}

// IndexConfigKey returns the key of the immutable index configuration
func IndexConfigKey(index string) string {
	return fmt.Sprintf("%s/%s/_index_config.json", IndexDir, index)
}

// SchemaKey returns the key of the typed filterable column registry
func SchemaKey(index string) string {
	return fmt.Sprintf("%s/%s/_schema.json", IndexDir, index)
}

// ManifestKey returns the key of the live ANN manifest
func ManifestKey(index string) string {
	return fmt.Sprintf("%s/%s/manifest.json", IndexDir, index)
}

// IDMapKey returns the key of the columnar ID map
func IDMapKey(index string) string {
	return fmt.Sprintf("%s/%s/idmap.parquet", IndexDir, index)
}

// IndexBlobKey returns the key of the serialized backend blob
func IndexBlobKey(index string, algo Algorithm) string {
	return fmt.Sprintf("%s/%s/index.%s", IndexDir, index, algo.BlobExt())
}

// BuilderLockKey returns the key of the advisory builder lease
func BuilderLockKey(index string) string {
	return fmt.Sprintf("%s/%s/.builder.lock", IndexDir, index)
}

// StagedPrefix returns the pending-slice prefix of an index
func StagedPrefix(index string) string {
	return fmt.Sprintf("%s/%s/", StagedDir, index)
}

// SliceKey returns the staged key for a slice written at the given
// millisecond timestamp. Lexicographic order of keys equals ingest order
// because the timestamp is zero-padded.
func SliceKey(index string, unixMillis int64, ext string) string {
	return fmt.Sprintf("%s/%s/slice-%013d.%s", StagedDir, index, unixMillis, ext)
}

// IndexNameFromConfigKey recovers the index name from an _index_config.json
// key, or "" when the key is not one.
func IndexNameFromConfigKey(key string) string {
	if !strings.HasPrefix(key, IndexDir+"/") || !strings.HasSuffix(key, "/_index_config.json") {
		return ""
	}
	name := strings.TrimPrefix(key, IndexDir+"/")
	name = strings.TrimSuffix(name, "/_index_config.json")
	if strings.Contains(name, "/") {
		return ""
	}
	return name
}
