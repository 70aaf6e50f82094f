package entities

// VectorData is the wire shape of a vector payload
type VectorData struct {
	Float32 []float32 `json:"float32"`
}

// PutVector is a single row of a write batch
type PutVector struct {
	Key      string                 `json:"key"`
	Data     VectorData             `json:"data"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OutputVector is a row returned by get/list operations
type OutputVector struct {
	Key      string                 `json:"key"`
	Data     *VectorData            `json:"data,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// QueryResultVector is a ranked row returned by query operations
type QueryResultVector struct {
	Key      string                 `json:"key"`
	Distance *float32               `json:"distance,omitempty"`
	Data     *VectorData            `json:"data,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
