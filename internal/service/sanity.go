package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	sanitySnippetMaxChars = 80

	gpaMax       = 4.5
	toeflMax     = 120
	ieltsMax     = 9.0
	greMin       = 130
	greMax       = 340
	tuitionLimit = 100000
)

var warningBanner = "⚠️ [data quality warning - re-search or cite with caution]"

type sanityRule struct {
	pattern *regexp.Regexp
	check   func(value float64) (rule, reason string)
}

// Crawled pages routinely carry numbers that are not what they claim to be:
// percentage GPAs on a 4.0 scale, paper-based TOEFL scores labeled iBT,
// multi-year tuition totals. Each rule extracts one numeric claim and checks
// it against the plausible range for that scale.
var sanityRules = []sanityRule{
	{
		pattern: regexp.MustCompile(`(?i)\b(?:gpa|grade\s+point\s+average)\b[^0-9\n]*(\d{1,2}(?:\.\d{1,2})?)`),
		check: func(v float64) (string, string) {
			if v > gpaMax {
				return "gpa_out_of_range", fmt.Sprintf("GPA %.1f exceeds the 4.0/4.3 scale ceiling; likely a percentage grade or crawl error", v)
			}
			if v == 0 {
				return "gpa_zero", "GPA 0.0 is likely a placeholder or parsing artifact"
			}
			return "", ""
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\btoefl\b[^0-9\n]*(\d{2,3})`),
		check: func(v float64) (string, string) {
			if v > toeflMax {
				return "toefl_out_of_range", fmt.Sprintf("TOEFL %.0f exceeds the iBT maximum of 120; possibly an old paper-based score", v)
			}
			return "", ""
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bielts\b[^0-9\n]*(\d(?:\.\d)?)`),
		check: func(v float64) (string, string) {
			if v > ieltsMax {
				return "ielts_out_of_range", fmt.Sprintf("IELTS %.1f exceeds the band maximum of 9.0", v)
			}
			return "", ""
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)\bgre\b[^0-9\n]*(\d{3})\b`),
		check: func(v float64) (string, string) {
			if v < greMin || v > greMax {
				return "gre_out_of_range", fmt.Sprintf("GRE %.0f is outside known ranges (130-170 per section, 260-340 total)", v)
			}
			return "", ""
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(?:tuition|fee|cost)[^$\n]*\$\s*([\d,]+)`),
		check: func(v float64) (string, string) {
			if v > tuitionLimit {
				return "tuition_suspiciously_high", fmt.Sprintf("tuition figure $%.0f exceeds $100,000; possibly a multi-year total or parsing error", v)
			}
			return "", ""
		},
	},
}

// Auditor flags implausible numeric claims in retrieved text.
type Auditor struct{}

// NewAuditor creates a new Auditor instance.
func NewAuditor() *Auditor {
	return &Auditor{}
}

// Audit scans text and returns warnings for every implausible numeric claim,
// in document order per rule. It never modifies its input.
func (a *Auditor) Audit(text string) []domain.SanityWarning {
	var warnings []domain.SanityWarning
	for _, rule := range sanityRules {
		for _, match := range rule.pattern.FindAllStringSubmatch(text, -1) {
			value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
			if err != nil {
				continue
			}
			name, reason := rule.check(value)
			if name == "" {
				continue
			}
			warnings = append(warnings, domain.SanityWarning{
				Rule:        name,
				MatchedText: snippet(match[0]),
				Reason:      reason,
			})
		}
	}
	return warnings
}

// Annotate audits each result and, where warnings fire, prepends a warning
// banner to the ephemeral result text. Source chunks are never touched.
func (a *Auditor) Annotate(results []domain.RetrievalResult) []domain.RetrievalResult {
	for i := range results {
		warnings := a.Audit(results[i].Text)
		if len(warnings) == 0 {
			continue
		}
		results[i].SanityWarnings = warnings

		var b strings.Builder
		b.WriteString(warningBanner)
		b.WriteString("\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  - [%s] %s: %q\n", w.Rule, w.Reason, w.MatchedText)
		}
		b.WriteString("\n")
		b.WriteString(results[i].Text)
		results[i].Text = b.String()
	}
	return results
}

func snippet(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= sanitySnippetMaxChars {
		return string(runes)
	}
	return string(runes[:sanitySnippetMaxChars])
}
