package domain

import (
	"encoding/json"
	"time"
)

// EmbeddingDimensions is the fixed dimension of every stored vector.
const EmbeddingDimensions = 1024

// Chunk is a bounded contiguous slice of a page's text, stored with its
// embedding. (PageID, ChunkIndex) is unique and kept contiguous by the
// delete-then-insert replacement on ingestion.
type Chunk struct {
	ID           int64
	UniversityID int64
	PageID       int64
	SchoolID     string
	SourceURL    string
	PageType     PageType
	ChunkIndex   int
	Text         string
	Embedding    []float32
	Metadata     ChunkMetadata
	CreatedAt    time.Time
}

// ChunkMetadata carries structured facts extracted upstream from the page.
// Every documented key has a named field; anything else round-trips through
// Extra untouched so new extraction fields do not require a schema change.
type ChunkMetadata struct {
	SchoolID  string   `json:"school_id,omitempty"`
	PageType  PageType `json:"page_type,omitempty"`
	SourceURL string   `json:"source_url,omitempty"`

	FallDeadline          string   `json:"fall_deadline,omitempty"`
	SpringDeadline        string   `json:"spring_deadline,omitempty"`
	MinimumGPA            *float64 `json:"minimum_gpa,omitempty"`
	TOEFLMin              *float64 `json:"toefl_min,omitempty"`
	TOEFLRequired         *bool    `json:"toefl_required,omitempty"`
	IELTSMin              *float64 `json:"ielts_min,omitempty"`
	IELTSRequired         *bool    `json:"ielts_required,omitempty"`
	GREStatus             string   `json:"gre_status,omitempty"`
	RecommendationLetters *int     `json:"recommendation_letters,omitempty"`
	InterviewRequired     *bool    `json:"interview_required,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownMetadataKeys = map[string]struct{}{
	"school_id":              {},
	"page_type":              {},
	"source_url":             {},
	"fall_deadline":          {},
	"spring_deadline":        {},
	"minimum_gpa":            {},
	"toefl_min":              {},
	"toefl_required":         {},
	"ielts_min":              {},
	"ielts_required":         {},
	"gre_status":             {},
	"recommendation_letters": {},
	"interview_required":     {},
}

// MarshalJSON flattens the named fields and the residual Extra map into a
// single object. Named fields win on key collision.
func (m ChunkMetadata) MarshalJSON() ([]byte, error) {
	type plain ChunkMetadata
	base, err := json.Marshal(plain(m))
	if err != nil {
		return nil, err
	}

	if len(m.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(m.Extra)+8)
	for k, v := range m.Extra {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	var named map[string]json.RawMessage
	if err := json.Unmarshal(base, &named); err != nil {
		return nil, err
	}
	for k, v := range named {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits incoming keys between the named fields and Extra.
func (m *ChunkMetadata) UnmarshalJSON(data []byte) error {
	type plain ChunkMetadata
	var named plain
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = ChunkMetadata(named)
	for k, v := range raw {
		if _, known := knownMetadataKeys[k]; known {
			continue
		}
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[k] = value
	}
	return nil
}
