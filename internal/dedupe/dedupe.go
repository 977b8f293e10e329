// Package dedupe collapses near-duplicate candidate records within a
// single batch.
package dedupe

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/eventscout/internal/model"
)

var lower = cases.Lower(language.English)

// Deduplicator removes near-duplicate candidates using pairwise
// similarity. Batch sizes are bounded by the upstream query and result
// caps, so the O(n²) comparison is acceptable.
type Deduplicator struct {
	threshold float64
}

// New creates a Deduplicator. threshold is the minimum normalized
// similarity score at which two records collapse; values outside (0,1]
// fall back to 0.85.
func New(threshold float64) *Deduplicator {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Deduplicator{threshold: threshold}
}

// DeduplicateBatch returns the unique records in first-seen order and
// the number of duplicates removed. Two records are duplicates when
// their URLs are identical or the similarity of their title+snippet
// text meets the threshold. The earlier record always wins, so the
// operation is idempotent.
func (d *Deduplicator) DeduplicateBatch(records []model.CandidateRecord) ([]model.CandidateRecord, int) {
	unique := make([]model.CandidateRecord, 0, len(records))
	removed := 0

	for _, rec := range records {
		dup := false
		for _, kept := range unique {
			if d.isDuplicate(rec, kept) {
				dup = true
				break
			}
		}
		if dup {
			removed++
			continue
		}
		unique = append(unique, rec)
	}

	return unique, removed
}

func (d *Deduplicator) isDuplicate(a, b model.CandidateRecord) bool {
	if a.URL != "" && a.URL == b.URL {
		return true
	}
	return Similarity(a.Title+" "+a.Snippet, b.Title+" "+b.Snippet) >= d.threshold
}

// Similarity computes Jaccard similarity on case-folded,
// whitespace-normalized word sets.
func Similarity(a, b string) float64 {
	wordsA := wordSet(lower.String(a))
	wordsB := wordSet(lower.String(b))

	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}

	union := len(wordsA)
	for w := range wordsB {
		if !wordsA[w] {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if w != "" {
			set[w] = true
		}
	}
	return set
}
