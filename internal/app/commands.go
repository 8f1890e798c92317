package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"opinion_mining/internal/domain"
)

// Selection narrows an export to the reviews one summary is built from.
// Version applies to exports carrying a version column; Start/End to the
// rest, as (Start, End].
type Selection struct {
	Version     string
	Start, End  *time.Time
	EnglishOnly bool
}

// label names the selection when the export has no version column, so
// summaries of different date ranges do not overwrite each other.
func (s Selection) label() string {
	if s.Start == nil && s.End == nil {
		return ""
	}
	f := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return f(s.Start) + ".." + f(s.End)
}

// parseLabel is the inverse of label. ok is false for plain app versions.
func parseLabel(v string) (start, end *time.Time, ok bool) {
	from, to, found := strings.Cut(v, "..")
	if !found {
		return nil, nil, false
	}
	day := func(s string) (*time.Time, bool) {
		if s == "" {
			return nil, true
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, false
		}
		return &t, true
	}
	start, ok1 := day(from)
	end, ok2 := day(to)
	return start, end, ok1 && ok2
}

func versionsOf(rs []domain.Review) []string {
	seen := map[string]bool{}
	for _, r := range rs {
		seen[r.Version] = true
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type AnalysisService struct {
	builder   *SummaryBuilder
	text      domain.TextAnalyzer
	reviews   domain.ReviewRepository // optional
	summaries domain.SummaryRepository
	cache     domain.Cache // optional
}

func NewAnalysisService(b *SummaryBuilder, ta domain.TextAnalyzer, rr domain.ReviewRepository, sr domain.SummaryRepository, c domain.Cache) *AnalysisService {
	return &AnalysisService{builder: b, text: ta, reviews: rr, summaries: sr, cache: c}
}

// AnalyzeExport maps, filters and summarizes one uploaded store export. The
// raw reviews are stored before filtering; the summary is stored only if the
// whole build succeeds. An export spanning several versions needs
// sel.Version, since a summary covers exactly one version.
func (s *AnalysisService) AnalyzeExport(ctx context.Context, rows []map[string]any, sel Selection) (domain.BusinessSummary, error) {
	reviews, meta := mapExport(rows)
	if len(reviews) == 0 {
		return domain.BusinessSummary{}, domain.ErrEmptyUpload
	}
	if meta.HasVersion && sel.Version == "" {
		vs := versionsOf(reviews)
		if len(vs) > 1 {
			return domain.BusinessSummary{}, fmt.Errorf("%w: export has versions %s", domain.ErrVersionRequired, strings.Join(vs, ", "))
		}
		sel.Version = vs[0]
	}

	if s.reviews != nil {
		if err := s.reviews.UpsertReviews(ctx, reviews); err != nil {
			return domain.BusinessSummary{}, fmt.Errorf("upsert reviews failed for %s: %w", reviews[0].BusinessID, err)
		}
	}

	selected := reviews
	if meta.HasVersion && sel.Version != "" {
		selected = FilterVersion(selected, sel.Version)
	}
	selected = FilterDate(selected, sel.Start, sel.End)
	if len(selected) == 0 {
		return domain.BusinessSummary{}, fmt.Errorf("%w: selection matched none of %d reviews", domain.ErrEmptyUpload, len(reviews))
	}
	if !meta.HasVersion {
		label := sel.label()
		for i := range selected {
			selected[i].Version = label
		}
	}

	return s.analyze(ctx, businessName(rows), selected, sel.EnglishOnly)
}

// AnalyzeStored rebuilds the summary of a business from reviews already in
// the review store. version is an app version or a "start..end" date label
// as produced for exports without a version column.
func (s *AnalysisService) AnalyzeStored(ctx context.Context, businessID, version string, englishOnly bool) (domain.BusinessSummary, error) {
	if s.reviews == nil {
		return domain.BusinessSummary{}, fmt.Errorf("no review store configured")
	}
	start, end, windowed := parseLabel(version)
	query := version
	if windowed {
		// unversioned reviews are stored without a label
		query = ""
	}
	rs, err := s.reviews.ListReviews(ctx, businessID, query)
	if err != nil {
		return domain.BusinessSummary{}, err
	}
	if windowed {
		rs = FilterDate(FilterVersion(rs, ""), start, end)
		for i := range rs {
			rs[i].Version = version
		}
	}
	if len(rs) == 0 {
		return domain.BusinessSummary{}, domain.ErrNotFound
	}

	name := ""
	if prev, err := s.summaries.GetSummary(ctx, businessID, ""); err == nil {
		name = prev.BusinessName
	}
	return s.analyze(ctx, name, rs, englishOnly)
}

func (s *AnalysisService) analyze(ctx context.Context, name string, rs []domain.Review, englishOnly bool) (domain.BusinessSummary, error) {
	biz, err := NewBusiness(name, rs, s.text, englishOnly)
	if err != nil {
		return domain.BusinessSummary{}, err
	}

	sum, err := s.builder.Build(ctx, biz)
	if err != nil {
		return domain.BusinessSummary{}, err
	}

	if err := s.summaries.SaveSummary(ctx, sum); err != nil {
		return domain.BusinessSummary{}, fmt.Errorf("save summary failed for %s: %w", sum.BusinessID, err)
	}
	if s.cache != nil {
		s.invalidateSummary(ctx, sum.BusinessID, sum.Version)
	}
	log.Info().
		Str("business_id", sum.BusinessID).
		Str("version", sum.Version).
		Msg("summary stored")
	return sum, nil
}

// invalidate the exact version, the "latest" alias and the common list pages
func (s *AnalysisService) invalidateSummary(ctx context.Context, id, version string) {
	_ = s.cache.Del(ctx, summaryKey(id, version))
	_ = s.cache.Del(ctx, summaryKey(id, ""))
	for _, lim := range []int{DefaultListLimit, 100, 200} {
		_ = s.cache.Del(ctx, listKey(lim))
	}
}
