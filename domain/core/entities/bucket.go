package entities

// BucketMeta is the _meta/bucket.json document of a vector bucket
type BucketMeta struct {
	Name    string `json:"name"`
	Created string `json:"created"`
	Engine  string `json:"engine"`
	Version string `json:"version"`
}

// NewBucketMeta builds the metadata document written at bucket creation
func NewBucketMeta(name, created string) BucketMeta {
	return BucketMeta{
		Name:    name,
		Created: created,
		Engine:  "s3vectors",
		Version: "1.0",
	}
}
