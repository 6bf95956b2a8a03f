package domain

// RetrievalResult is an ephemeral, request-scoped view of a stored chunk.
// It is never persisted and never mutates the chunk it was derived from;
// the auditor annotates Text, the stored row keeps the original.
type RetrievalResult struct {
	ChunkID        int64
	PageID         int64
	SchoolID       string
	UniversityName string
	SourceURL      string
	PageType       PageType
	Text           string
	Metadata       ChunkMetadata
	VectorScore    float64
	RerankScore    *float64
	SanityWarnings []SanityWarning
}

// SanityWarning flags an implausible numeric claim found in retrieved text.
// It is a data-quality signal, not an error: it always travels with the
// result into the answer path instead of aborting anything.
type SanityWarning struct {
	Rule        string
	MatchedText string
	Reason      string
}
