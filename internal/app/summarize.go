package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"opinion_mining/internal/domain"
)

const DefaultMinSentenceTokens = 5

// Summarizer scores and buckets the sentences of one aspect.
type Summarizer struct {
	scorer    domain.SentenceScorer
	minTokens int
}

func NewSummarizer(scorer domain.SentenceScorer, minTokens int) *Summarizer {
	if minTokens <= 0 {
		minTokens = DefaultMinSentenceTokens
	}
	return &Summarizer{scorer: scorer, minTokens: minTokens}
}

// Summarize builds the rating-bucketed summary of aspect from the sentences
// that mention it. Short sentences and sentences whose review has a rating
// outside 1..5 are skipped; any scorer error aborts.
func (s *Summarizer) Summarize(ctx context.Context, biz *domain.Business, aspect string, sents []domain.Sentence) (domain.AspectSummary, error) {
	out := domain.NewAspectSummary()

	for _, sent := range sents {
		if len(sent.Tokens) < s.minTokens {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.AspectSummary{}, err
		}

		rating, ok := biz.RatingOf(sent)
		if !ok {
			log.Debug().
				Str("aspect", aspect).
				Int("rating", rating).
				Str("sentence", sent.Text).
				Msg("skipping sentence with malformed rating")
			continue
		}

		pPos, err := s.scorer.ScorePositive(ctx, sent)
		if err != nil {
			return domain.AspectSummary{}, fmt.Errorf("%w: positive score for aspect %q: %w", domain.ErrScoringFailure, aspect, err)
		}
		pOpin, err := s.scorer.ScoreOpinionated(ctx, sent)
		if err != nil {
			return domain.AspectSummary{}, fmt.Errorf("%w: opinion score for aspect %q: %w", domain.ErrScoringFailure, aspect, err)
		}

		rec := domain.SentenceRecord{
			Text:     sent.Text,
			Tokens:   sent.Tokens,
			Aspects:  joinPhrases(sent.Aspects),
			Rating:   rating,
			ProbPos:  pPos,
			ProbNeg:  1 - pPos,
			ProbOpin: pOpin,
		}
		if rv := biz.ReviewOf(sent); rv != nil {
			rec.UserName = rv.UserName
		}

		b := out.Bucket(rating)
		*b = append(*b, rec)
	}

	// low-star buckets surface complaints, high-star buckets praise
	for r := 1; r <= 3; r++ {
		sortDesc(*out.Bucket(r), func(x domain.SentenceRecord) float64 { return x.ProbNeg })
	}
	for r := 4; r <= 5; r++ {
		sortDesc(*out.Bucket(r), func(x domain.SentenceRecord) float64 { return x.ProbPos })
	}

	out.NumOne = len(out.One)
	out.NumTwo = len(out.Two)
	out.NumThree = len(out.Three)
	out.NumFour = len(out.Four)
	out.NumFive = len(out.Five)

	n := out.Total()
	if n == 0 {
		n = 1
	}
	// Only the four-star count is divided by the total; kept as the
	// dashboard has always computed it.
	out.FracPos = float64(out.NumFive) + float64(out.NumFour)/float64(n)

	return out, nil
}

func sortDesc(recs []domain.SentenceRecord, key func(domain.SentenceRecord) float64) {
	sort.SliceStable(recs, func(i, j int) bool { return key(recs[i]) > key(recs[j]) })
}

func joinPhrases(ps [][]string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, strings.Join(p, " "))
	}
	return out
}
