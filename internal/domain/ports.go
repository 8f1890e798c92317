package domain

import "context"

// SentenceScorer must be safe for concurrent use; one instance is shared by
// every aspect summarization.
type SentenceScorer interface {
	ScorePositive(ctx context.Context, s Sentence) (float64, error)
	ScoreOpinionated(ctx context.Context, s Sentence) (float64, error)
}

// TextAnalyzer splits review text into tagged sentences and detects language.
type TextAnalyzer interface {
	Language(text string) string
	Segment(text string) ([]Sentence, error)
}

type Lemmatizer interface {
	Lemma(word string) string
}

type ReviewRepository interface {
	UpsertReviews(ctx context.Context, rs []Review) error
	ListReviews(ctx context.Context, businessID, version string) ([]Review, error)
}

type SummaryRepository interface {
	SaveSummary(ctx context.Context, s BusinessSummary) error
	// GetSummary returns the latest summary when version is empty.
	GetSummary(ctx context.Context, businessID, version string) (BusinessSummary, error)
	ListSummaries(ctx context.Context, limit int) ([]SummaryRef, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
