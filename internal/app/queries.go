package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opinion_mining/internal/domain"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func summaryKey(id, version string) string { return fmt.Sprintf("summary:%s:%s", id, version) }
func listKey(limit int) string             { return fmt.Sprintf("summaries:%d", limit) }

type QueryService struct {
	repo     domain.SummaryRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.SummaryRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

// GetSummary serves a stored summary; an empty version means the latest one.
func (s *QueryService) GetSummary(ctx context.Context, id, version string) (domain.BusinessSummary, error) {
	key := summaryKey(id, version)
	var bs domain.BusinessSummary
	if ok, _ := s.cache.Get(ctx, key, &bs); ok {
		return bs, nil
	}
	bs, err := s.repo.GetSummary(ctx, id, version)
	if err != nil {
		return domain.BusinessSummary{}, err
	}

	// summaries of big apps can be large; don't let one evict the rest
	if b, _ := json.Marshal(bs); len(b) < 4_000_000 {
		_ = s.cache.Set(ctx, key, bs, int(s.cacheTTL.Seconds()))
	}
	return bs, nil
}

func (s *QueryService) ListSummaries(ctx context.Context, limit int) (domain.SummariesPage, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	key := listKey(limit)
	var out domain.SummariesPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	refs, err := s.repo.ListSummaries(ctx, limit)
	if err != nil {
		return domain.SummariesPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	out = domain.SummariesPage{Items: make([]domain.SummaryRef, len(refs))}
	copy(out.Items, refs)

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}
