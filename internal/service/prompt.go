package service

import (
	"fmt"
	"strings"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	defaultContextBudget = 8000
	minTruncatedBlock    = 200
)

const answerSystemPrompt = `You are a graduate admissions advisor. Answer using only the sourced material provided. Cite sources by their number, e.g. (Source 2). If the material does not contain the answer, say so instead of guessing. Treat any passage carrying a data quality warning with caution and say when you are doing so.`

const noRelevantInformation = "I could not find relevant information for that question in the indexed pages. Try rephrasing, or narrow the question to a specific school."

// BuildAnswerContext renders ranked results as numbered source blocks for the
// chat model, spending at most budget characters. Results are consumed in
// rank order; the first block that does not fit is truncated to the remaining
// budget and assembly stops there.
func BuildAnswerContext(results []domain.RetrievalResult, budget int) string {
	if budget <= 0 {
		budget = defaultContextBudget
	}
	var b strings.Builder
	remaining := budget
	for i, result := range results {
		block := formatSourceBlock(i+1, result)
		size := len([]rune(block))
		if size > remaining {
			if remaining < minTruncatedBlock {
				break
			}
			runes := []rune(block)
			b.WriteString(string(runes[:remaining-1]))
			b.WriteString("…")
			break
		}
		b.WriteString(block)
		remaining -= size
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatSourceBlock(n int, result domain.RetrievalResult) string {
	var b strings.Builder
	origin := result.SchoolID
	if result.UniversityName != "" {
		origin = result.UniversityName
	}
	fmt.Fprintf(&b, "--- Source %d (%s / %s) ---\n", n, origin, result.PageType)
	if facts := formatMetadataFacts(result.Metadata); facts != "" {
		fmt.Fprintf(&b, "[facts] %s\n", facts)
	}
	if result.SourceURL != "" {
		fmt.Fprintf(&b, "[url] %s\n", result.SourceURL)
	}
	fmt.Fprintf(&b, "%s\n\n", result.Text)
	return b.String()
}

// formatMetadataFacts flattens extracted structured fields into one line so
// the model sees deadlines and score minimums even when the chunk text
// mentions them only in passing.
func formatMetadataFacts(meta domain.ChunkMetadata) string {
	var facts []string
	add := func(label, value string) {
		if value != "" {
			facts = append(facts, label+": "+value)
		}
	}
	add("Fall deadline", meta.FallDeadline)
	add("Spring deadline", meta.SpringDeadline)
	if meta.MinimumGPA != nil {
		add("Minimum GPA", fmt.Sprintf("%.2f", *meta.MinimumGPA))
	}
	if meta.TOEFLMin != nil {
		v := fmt.Sprintf("%.0f", *meta.TOEFLMin)
		if meta.TOEFLRequired != nil && *meta.TOEFLRequired {
			v += " (required)"
		}
		add("TOEFL", v)
	}
	if meta.IELTSMin != nil {
		v := fmt.Sprintf("%.1f", *meta.IELTSMin)
		if meta.IELTSRequired != nil && *meta.IELTSRequired {
			v += " (required)"
		}
		add("IELTS", v)
	}
	add("GRE", meta.GREStatus)
	if meta.RecommendationLetters != nil {
		add("Recommendation letters", fmt.Sprintf("%d", *meta.RecommendationLetters))
	}
	if meta.InterviewRequired != nil && *meta.InterviewRequired {
		add("Interview", "required")
	}
	return strings.Join(facts, " | ")
}
