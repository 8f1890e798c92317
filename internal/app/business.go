package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"opinion_mining/internal/domain"
)

// NewBusiness assembles an analysis corpus. Identity (business id, version)
// is taken from the first review before any filtering. With englishOnly set,
// reviews detected as another language are dropped; undetermined ones are
// kept. Every remaining review is segmented and its sentences point back at
// it.
func NewBusiness(name string, reviews []domain.Review, ta domain.TextAnalyzer, englishOnly bool) (*domain.Business, error) {
	if len(reviews) == 0 {
		return nil, domain.ErrEmptyUpload
	}
	biz := &domain.Business{
		BusinessID: reviews[0].BusinessID,
		Version:    reviews[0].Version,
		Name:       name,
	}

	dropped := 0
	for _, rv := range reviews {
		if strings.TrimSpace(rv.Text) == "" {
			dropped++
			continue
		}
		if rv.Lang == "" || rv.Lang == "english" {
			rv.Lang = ta.Language(rv.Text)
		}
		if englishOnly && rv.Lang != "" && rv.Lang != "en" && rv.Lang != "english" {
			dropped++
			continue
		}

		sents, err := ta.Segment(rv.Text)
		if err != nil {
			return nil, fmt.Errorf("segment review %s: %w", rv.SourceID, err)
		}
		idx := len(biz.Reviews)
		for i := range sents {
			sents[i].Review = idx
		}
		rv.Sentences = sents
		biz.Reviews = append(biz.Reviews, rv)
	}

	log.Debug().
		Str("business_id", biz.BusinessID).
		Int("kept", len(biz.Reviews)).
		Int("dropped", dropped).
		Msg("corpus assembled")
	return biz, nil
}
