package service

import (
	"strings"
	"unicode"

	"github.com/gradnav/gradnav/internal/domain"
)

const (
	minChunkChars          = 30
	overlapFloor           = 50
	faqMinFragment         = 60
	defaultOverlapFraction = 0.1
)

// SplitParams controls window sizing for one page type.
type SplitParams struct {
	TargetSize      int
	OverlapFraction float64
}

// OverlapChars returns the overlap between consecutive windows.
func (p SplitParams) OverlapChars() int {
	overlap := int(float64(p.TargetSize) * p.OverlapFraction)
	if overlap < overlapFloor {
		overlap = overlapFloor
	}
	return overlap
}

// DefaultSplitParams provides the per-page-type window sizes. FAQ pages get
// wide windows so a question and its answer stay together, checklists get
// narrow ones so individual requirements stay separable.
func DefaultSplitParams() map[domain.PageType]SplitParams {
	return map[domain.PageType]SplitParams{
		domain.PageTypeFAQ:        {TargetSize: 1200, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeChecklist:  {TargetSize: 600, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeAdmissions: {TargetSize: 800, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeApply:      {TargetSize: 800, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeAccepting:  {TargetSize: 700, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeReddit:     {TargetSize: 1500, OverlapFraction: defaultOverlapFraction},
		domain.PageTypeGeneral:    {TargetSize: 700, OverlapFraction: defaultOverlapFraction},
	}
}

// Chunker splits page text into embedding-sized chunks using page-type-aware
// window parameters.
type Chunker struct {
	params   map[domain.PageType]SplitParams
	fallback SplitParams
}

// NewChunker creates a new Chunker instance. A nil params map selects the
// defaults.
func NewChunker(params map[domain.PageType]SplitParams) *Chunker {
	if params == nil {
		params = DefaultSplitParams()
	}
	fallback, ok := params[domain.PageTypeGeneral]
	if !ok {
		fallback = SplitParams{TargetSize: 700, OverlapFraction: defaultOverlapFraction}
	}
	return &Chunker{params: params, fallback: fallback}
}

// Split chunks text according to the page type's window parameters. FAQ pages
// are first split at interrogative sentence starts so each question-answer
// pair lands in its own chunk where possible.
func (c *Chunker) Split(text string, pageType domain.PageType) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	params, ok := c.params[pageType]
	if !ok {
		params = c.fallback
	}
	var chunks []string
	if pageType == domain.PageTypeFAQ {
		chunks = splitFAQ(clean, params)
	} else {
		chunks = splitWindows(clean, params)
	}
	out := chunks[:0]
	for _, chunk := range chunks {
		if len([]rune(strings.TrimSpace(chunk))) >= minChunkChars {
			out = append(out, strings.TrimSpace(chunk))
		}
	}
	return out
}

// splitWindows produces greedy windows of at most TargetSize characters on the
// unoverlapped axis. Window boundaries are pulled back to the strongest nearby
// separator, and every window after the first extends backwards by the overlap,
// so a chunk may exceed TargetSize by at most OverlapChars.
func splitWindows(text string, params SplitParams) []string {
	runes := []rune(text)
	target := params.TargetSize
	if target <= 0 {
		return []string{text}
	}
	if len(runes) <= target {
		return []string{text}
	}
	overlap := params.OverlapChars()

	boundaries := []int{0}
	pos := 0
	for pos+target < len(runes) {
		cut := findCut(runes, pos, pos+target)
		if cut <= pos {
			cut = pos + target
		}
		boundaries = append(boundaries, cut)
		pos = cut
	}
	boundaries = append(boundaries, len(runes))

	chunks := make([]string, 0, len(boundaries)-1)
	for i := 1; i < len(boundaries); i++ {
		start := boundaries[i-1]
		if i > 1 {
			start -= overlap
			if start < 0 {
				start = 0
			}
		}
		chunks = append(chunks, string(runes[start:boundaries[i]]))
	}
	return chunks
}

// findCut searches backwards from end for the strongest separator, preferring
// paragraph breaks over line breaks over sentence-ending punctuation over
// spaces. The cut never lands before the window midpoint so pathological
// inputs cannot produce degenerate windows.
func findCut(runes []rune, start, end int) int {
	minCut := start + (end-start)/2
	best := 0
	bestRank := 0
	for i := end; i > minCut; i-- {
		rank := separatorRank(runes, i)
		if rank > bestRank {
			best = i
			bestRank = rank
			if rank == 4 {
				break
			}
		}
	}
	if bestRank == 0 {
		return end
	}
	return best
}

// separatorRank rates position i as a cut point: 4 paragraph break, 3 line
// break, 2 sentence end, 1 space, 0 none. A cut at i means the chunk ends
// just before runes[i].
func separatorRank(runes []rune, i int) int {
	prev := runes[i-1]
	switch {
	case prev == '\n':
		if i >= 2 && runes[i-2] == '\n' {
			return 4
		}
		return 3
	case prev == '。' || prev == '.' || prev == '?' || prev == '!':
		if i < len(runes) && !unicode.IsSpace(runes[i]) {
			return 0
		}
		return 2
	case unicode.IsSpace(prev):
		return 1
	}
	return 0
}

// Question-leading words that mark the start of a new FAQ entry.
var faqQuestionWords = map[string]struct{}{
	"what":   {},
	"how":    {},
	"when":   {},
	"where":  {},
	"why":    {},
	"who":    {},
	"which":  {},
	"can":    {},
	"do":     {},
	"does":   {},
	"is":     {},
	"are":    {},
	"should": {},
	"will":   {},
	"may":    {},
}

// splitFAQ splits at interrogative sentence starts, merges undersized
// fragments into their neighbor, and falls back to window splitting for any
// fragment still over the size bound.
func splitFAQ(text string, params SplitParams) []string {
	fragments := splitAtQuestionStarts(text)
	merged := mergeShortFragments(fragments, faqMinFragment)

	chunks := make([]string, 0, len(merged))
	for _, frag := range merged {
		if len([]rune(frag)) > params.TargetSize {
			chunks = append(chunks, splitWindows(frag, params)...)
		} else {
			chunks = append(chunks, frag)
		}
	}
	return chunks
}

// splitAtQuestionStarts cuts text wherever a sentence begins with a question
// word. A sentence start is the start of the text, the start of a line, or the
// first word after sentence-ending punctuation.
func splitAtQuestionStarts(text string) []string {
	runes := []rune(text)
	boundaries := []int{0}
	atStart := true
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' || r == '。' || r == '.' || r == '?' || r == '!' {
			atStart = true
			continue
		}
		if unicode.IsSpace(r) {
			continue
		}
		if atStart {
			atStart = false
			if i > 0 && startsWithQuestionWord(runes[i:]) {
				boundaries = append(boundaries, i)
			}
		}
	}

	fragments := make([]string, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(runes)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		frag := strings.TrimSpace(string(runes[start:end]))
		if frag != "" {
			fragments = append(fragments, frag)
		}
	}
	return fragments
}

func startsWithQuestionWord(runes []rune) bool {
	end := 0
	for end < len(runes) && unicode.IsLetter(runes[end]) {
		end++
	}
	if end == 0 {
		return false
	}
	word := strings.ToLower(string(runes[:end]))
	_, ok := faqQuestionWords[word]
	return ok
}

// mergeShortFragments folds any fragment shorter than minLen into the
// preceding fragment. A short leading fragment is folded forward instead.
func mergeShortFragments(fragments []string, minLen int) []string {
	merged := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		if len([]rune(frag)) < minLen && len(merged) > 0 {
			merged[len(merged)-1] = merged[len(merged)-1] + "\n" + frag
			continue
		}
		merged = append(merged, frag)
	}
	if len(merged) >= 2 && len([]rune(merged[0])) < minLen {
		merged[1] = merged[0] + "\n" + merged[1]
		merged = merged[1:]
	}
	return merged
}
