package types

import (
	"encoding/json"
	"time"
)

// EmbeddingDim is the vector length shared by the engine and the catalog matcher.
const EmbeddingDim = 768

// RawImage is an uploaded image before decoding
type RawImage struct {
	Data     []byte
	Encoding string // declared encoding, e.g. "jpeg"; empty when unknown
}

// ColorProfile holds up to three dominant colors as "#rrggbb", most frequent first
type ColorProfile []string

// EmbeddingVector is a unit-length image embedding
type EmbeddingVector []float32

// MatchQuery is the request sent to the catalog matcher
type MatchQuery struct {
	Embedding EmbeddingVector `json:"query_embedding"`
	Colors    ColorProfile    `json:"query_colors"`
	Threshold float64         `json:"match_threshold"`
	Count     int             `json:"match_count"`
}

// MatchResult is the ordered list of catalog records returned by the matcher.
// Records are kept as raw JSON so they reach the caller unchanged.
type MatchResult []json.RawMessage

// Product is a catalog record held by the local catalog store
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Category   string          `json:"category,omitempty"`
	ImagePath  string          `json:"image_path"`
	Colors     ColorProfile    `json:"colors"`
	Embedding  EmbeddingVector `json:"-"`
	CreatedAt  string          `json:"created_at,omitempty"`
	ModifiedAt string          `json:"modified_at,omitempty"`
}

// ProductMatch is a product with its similarity scores
type ProductMatch struct {
	Product
	Similarity float64 `json:"similarity"`
	Score      float64 `json:"score"`
}

// StageTimings records how long each pipeline stage took
type StageTimings struct {
	Decode    time.Duration
	Colors    time.Duration
	Normalize time.Duration
	Embed     time.Duration
	Match     time.Duration
}
