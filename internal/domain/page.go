package domain

import (
	"strings"
	"time"
)

// PageType classifies a harvested web page and drives chunk sizing.
type PageType string

const (
	PageTypeFAQ        PageType = "faq"
	PageTypeChecklist  PageType = "checklist"
	PageTypeAdmissions PageType = "admissions"
	PageTypeApply      PageType = "apply"
	PageTypeAccepting  PageType = "accepting"
	PageTypeReddit     PageType = "reddit"
	PageTypeGeneral    PageType = "general"
)

// ValidPageTypes lists every accepted page type.
var ValidPageTypes = []PageType{
	PageTypeFAQ,
	PageTypeChecklist,
	PageTypeAdmissions,
	PageTypeApply,
	PageTypeAccepting,
	PageTypeReddit,
	PageTypeGeneral,
}

// IsValid returns true if the page type is a known value.
func (t PageType) IsValid() bool {
	for _, v := range ValidPageTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Page represents a harvested web page. Pages are immutable once ingested
// except by re-ingestion, which fully replaces the stored text and chunks.
type Page struct {
	ID           int64
	UniversityID int64
	SchoolID     string
	URL          string
	PageType     PageType
	RawText      string
	CharCount    int
	ArchivedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InferPageType derives the page type from URL path keywords.
func InferPageType(url string) PageType {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "faq") || strings.Contains(lower, "frequently-asked"):
		return PageTypeFAQ
	case strings.Contains(lower, "checklist") || strings.Contains(lower, "requirements"):
		return PageTypeChecklist
	case strings.Contains(lower, "admissions") || strings.Contains(lower, "graduate-admissions"):
		return PageTypeAdmissions
	case strings.Contains(lower, "apply"):
		return PageTypeApply
	case strings.Contains(lower, "accepting") || strings.Contains(lower, "acceptance"):
		return PageTypeAccepting
	case strings.Contains(lower, "reddit.com"):
		return PageTypeReddit
	default:
		return PageTypeGeneral
	}
}
