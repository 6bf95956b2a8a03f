package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeIngestion     = "INGESTION_ERROR"
	ErrCodeRetrieval     = "RETRIEVAL_ERROR"
	ErrCodeToolExecution = "TOOL_EXECUTION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Configuration errors are fatal at process start.
var (
	ErrMissingDatabaseURL = NewDomainError(ErrCodeConfiguration, "DATABASE_URL is not set")
)

// Validation errors
var (
	ErrInvalidPageType      = NewDomainError(ErrCodeValidation, "invalid page type")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrPageNotFound   = NewDomainError(ErrCodeNotFound, "web page not found")
	ErrSchoolNotFound = NewDomainError(ErrCodeNotFound, "school not found")
)

// Ingestion errors: a malformed page is skipped and the batch continues.
var (
	ErrPageTooShort  = NewDomainError(ErrCodeIngestion, "page text too short to ingest")
	ErrUnknownSchool = NewDomainError(ErrCodeIngestion, "could not identify school from url")
	ErrEmptyChunking = NewDomainError(ErrCodeIngestion, "chunking produced no usable segments")
)

// Retrieval errors: the caller receives an empty result set plus the error,
// never a raw transport failure leaking through the search boundary.
var (
	ErrEmbeddingService = NewDomainError(ErrCodeRetrieval, "embedding service unreachable")
	ErrVectorStore      = NewDomainError(ErrCodeRetrieval, "vector store unreachable")
	ErrRerankService    = NewDomainError(ErrCodeRetrieval, "rerank service unreachable")
)

// Tool execution errors surface to the model as inline text, never as
// exceptions across the agent loop boundary.
var (
	ErrUnknownTool = NewDomainError(ErrCodeToolExecution, "unknown tool")
)
