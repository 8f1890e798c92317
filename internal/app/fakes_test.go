package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"opinion_mining/internal/domain"
)

// ---- fakes ----

// fakeScorer returns a fixed positive probability per sentence text and 0.5
// otherwise.
type fakeScorer struct {
	pos map[string]float64
	err error
}

func (f *fakeScorer) ScorePositive(ctx context.Context, s domain.Sentence) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if p, ok := f.pos[s.Text]; ok {
		return p, nil
	}
	return 0.5, nil
}

func (f *fakeScorer) ScoreOpinionated(ctx context.Context, s domain.Sentence) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 0.5, nil
}

// fakeAnalyzer splits on ". " and treats runs of known nouns as aspects.
type fakeAnalyzer struct {
	nouns map[string]bool
}

func newFakeAnalyzer(nouns ...string) *fakeAnalyzer {
	m := make(map[string]bool, len(nouns))
	for _, n := range nouns {
		m[n] = true
	}
	return &fakeAnalyzer{nouns: m}
}

func (f *fakeAnalyzer) Language(text string) string {
	if strings.Contains(strings.ToLower(text), "hola") {
		return "es"
	}
	return "en"
}

func (f *fakeAnalyzer) Segment(text string) ([]domain.Sentence, error) {
	var out []domain.Sentence
	for _, raw := range strings.Split(text, ". ") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		s := domain.Sentence{Text: raw}
		var run []string
		for _, w := range strings.Fields(strings.Trim(raw, ".!?")) {
			s.Tokens = append(s.Tokens, w)
			if f.nouns[strings.ToLower(w)] {
				run = append(run, strings.ToLower(w))
				continue
			}
			if len(run) > 0 {
				s.Aspects = append(s.Aspects, run)
				run = nil
			}
		}
		if len(run) > 0 {
			s.Aspects = append(s.Aspects, run)
		}
		out = append(out, s)
	}
	return out, nil
}

// fakeLemmatizer strips a plural "s".
type fakeLemmatizer struct{}

func (fakeLemmatizer) Lemma(w string) string { return strings.TrimSuffix(w, "s") }

type fakeReviewRepo struct {
	mu       sync.Mutex
	upserted []domain.Review
	stored   []domain.Review
	err      error
}

func (f *fakeReviewRepo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, rs...)
	return nil
}

func (f *fakeReviewRepo) ListReviews(ctx context.Context, businessID, version string) ([]domain.Review, error) {
	var out []domain.Review
	for _, r := range f.stored {
		if r.BusinessID == businessID && (version == "" || r.Version == version) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSummaryRepo struct {
	saved []domain.BusinessSummary
	refs  []domain.SummaryRef
	gets  int
}

func (f *fakeSummaryRepo) SaveSummary(ctx context.Context, s domain.BusinessSummary) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSummaryRepo) GetSummary(ctx context.Context, id, version string) (domain.BusinessSummary, error) {
	f.gets++
	for i := len(f.saved) - 1; i >= 0; i-- {
		s := f.saved[i]
		if s.BusinessID == id && (version == "" || s.Version == version) {
			return s, nil
		}
	}
	return domain.BusinessSummary{}, domain.ErrNotFound
}

func (f *fakeSummaryRepo) ListSummaries(ctx context.Context, limit int) ([]domain.SummaryRef, error) {
	if len(f.refs) > limit {
		return f.refs[:limit], nil
	}
	return f.refs, nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store   map[string][]byte
	deleted []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
	return nil
}

var errBoom = errors.New("boom")
