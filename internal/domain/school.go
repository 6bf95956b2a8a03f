package domain

import (
	"net/url"
	"strings"
)

// School identifies a university whose pages are in the corpus.
type School struct {
	ID     int64
	Slug   string
	Name   string
	Domain string
}

// schoolRegistry maps a hostname fragment to the school it belongs to.
// The registry is data; adding a school means adding a row here plus
// re-running ingestion for its pages.
var schoolRegistry = []struct {
	domain string
	slug   string
	name   string
}{
	{"cmu.edu", "cmu", "Carnegie Mellon University"},
	{"caltech.edu", "caltech", "California Institute of Technology"},
	{"stanford.edu", "stanford", "Stanford University"},
	{"berkeley.edu", "berkeley", "UC Berkeley"},
	{"mit.edu", "mit", "MIT"},
	{"gatech.edu", "gatech", "Georgia Tech"},
	{"illinois.edu", "uiuc", "UIUC"},
	{"cornell.edu", "cornell", "Cornell University"},
	{"ucla.edu", "ucla", "UCLA"},
	{"ucsd.edu", "ucsd", "UC San Diego"},
	{"washington.edu", "uw", "University of Washington"},
}

// KnownSchoolSlugs returns the slugs of every registered school, in
// registry order.
func KnownSchoolSlugs() []string {
	slugs := make([]string, 0, len(schoolRegistry))
	for _, s := range schoolRegistry {
		slugs = append(slugs, s.slug)
	}
	return slugs
}

// IdentifySchool resolves a page URL to a registered school. When the
// hostname does not match, hint (typically the source filename stem) is
// tried against slugs and names before giving up.
func IdentifySchool(pageURL, hint string) (*School, error) {
	hostname := ""
	if parsed, err := url.Parse(pageURL); err == nil {
		hostname = strings.ToLower(parsed.Hostname())
	}

	for _, entry := range schoolRegistry {
		if hostname != "" && strings.Contains(hostname, entry.domain) {
			return &School{Slug: entry.slug, Name: entry.name, Domain: hostname}, nil
		}
	}

	if hint != "" {
		lowered := strings.ToLower(hint)
		for _, entry := range schoolRegistry {
			if entry.slug == lowered || strings.Contains(strings.ToLower(entry.name), lowered) {
				domain := hostname
				if domain == "" {
					domain = entry.domain
				}
				return &School{Slug: entry.slug, Name: entry.name, Domain: domain}, nil
			}
		}
	}

	return nil, ErrUnknownSchool
}
