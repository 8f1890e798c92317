package domain

import (
	"strings"
	"time"
)

// Business is the root of one analysis corpus: every review for a single
// product and version.
type Business struct {
	BusinessID string
	Version    string
	Name       string
	Reviews    []Review
}

type Review struct {
	ID         int64
	BusinessID string
	Version    string
	SourceID   string
	UserName   string
	Rating     int // 1..5; anything else is dropped from summaries
	Text       string
	Lang       string
	Date       *time.Time
	Sentences  []Sentence
}

// Sentence is one segmented sentence of a review. Review is the index of the
// owning review inside Business.Reviews.
type Sentence struct {
	Text    string
	Tokens  []string
	Aspects [][]string // candidate noun phrases, each with at least one word
	Review  int
}

// HasAspect reports whether one of the sentence's candidate phrases matches
// aspect, ignoring case.
func (s Sentence) HasAspect(aspect string) bool {
	for _, a := range s.Aspects {
		if strings.EqualFold(strings.Join(a, " "), aspect) {
			return true
		}
	}
	return false
}

// Features is the lower-cased word bag handed to scorers.
func (s Sentence) Features() []string {
	out := make([]string, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		if w := strings.ToLower(strings.TrimSpace(t)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Sentences flattens the corpus in review order.
func (b *Business) Sentences() []Sentence {
	var out []Sentence
	for _, r := range b.Reviews {
		out = append(out, r.Sentences...)
	}
	return out
}

// RatingOf resolves the star rating of the review that owns s.
func (b *Business) RatingOf(s Sentence) (int, bool) {
	if s.Review < 0 || s.Review >= len(b.Reviews) {
		return 0, false
	}
	r := b.Reviews[s.Review].Rating
	if r < 1 || r > 5 {
		return r, false
	}
	return r, true
}

// ReviewOf returns the owning review of s, or nil for a dangling index.
func (b *Business) ReviewOf(s Sentence) *Review {
	if s.Review < 0 || s.Review >= len(b.Reviews) {
		return nil
	}
	return &b.Reviews[s.Review]
}
