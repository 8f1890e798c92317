package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"opinion_mining/internal/adapters/observability"
	"opinion_mining/internal/domain"
)

// DefaultCoreAspects are always tracked, however rarely they come up.
var DefaultCoreAspects = []string{
	"light", "Light", "Lights", "lights", "lighting", "scene", "Scene", "scenes",
	"old", "previous", "gen", "Gen", "room", "rooms", "Room", "home & away",
	"Home Away", "Routine", "routine", "groups", "Siri", "SiRi", "HomeKit",
	"Home Kit", "Homekit", "Alexa", "UX", "Design", "designs", "New", "Bridge",
	"connect", "uninstall", "Updates", "home away", "leaving", "coming",
	"out of home", "grouping", "group", "lab", "siri", "homekit", "alexa",
	"setting", "design", "ux", "bridge", "new", "update",
}

type BuilderConfig struct {
	Thresholds  AspectThresholds
	CoreAspects []string
	// MergeLemmas collapses aspect names sharing a lemma ("light", "Lights")
	// into one entry.
	MergeLemmas bool
	Workers     int
}

type SummaryBuilder struct {
	summarizer *Summarizer
	lemmatizer domain.Lemmatizer
	cfg        BuilderConfig
}

func NewSummaryBuilder(s *Summarizer, l domain.Lemmatizer, cfg BuilderConfig) *SummaryBuilder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Thresholds == (AspectThresholds{}) {
		cfg.Thresholds = DefaultThresholds
	}
	return &SummaryBuilder{summarizer: s, lemmatizer: l, cfg: cfg}
}

// aspectGroup is one output entry and the surface forms feeding it.
type aspectGroup struct {
	key      string
	variants []string
}

// Build runs aspect discovery and per-aspect summarization for biz. Any error
// aborts the whole build; no partial summary is returned.
func (b *SummaryBuilder) Build(ctx context.Context, biz *domain.Business) (domain.BusinessSummary, error) {
	start := time.Now()
	sentences := biz.Sentences()

	discovered, err := ExtractAspects(sentences, b.cfg.Thresholds)
	if err != nil {
		observability.ObserveBuild("invariant", 0, time.Since(start))
		return domain.BusinessSummary{}, err
	}
	log.Debug().
		Str("business_id", biz.BusinessID).
		Strs("discovered", discovered).
		Msg("aspects discovered")

	aspects := unionAspects(discovered, b.cfg.CoreAspects)
	groups := b.groupAspects(aspects, sentences)

	results := make([]domain.AspectSummary, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, grp := range groups {
		i, grp := i, grp
		g.Go(func() error {
			sum, err := b.summarizer.Summarize(gctx, biz, grp.key, mentioning(sentences, grp.variants))
			if err != nil {
				return err
			}
			results[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.ObserveBuild("failed", 0, time.Since(start))
		return domain.BusinessSummary{}, err
	}

	out := domain.BusinessSummary{
		BusinessID:    biz.BusinessID,
		Version:       biz.Version,
		BusinessName:  biz.Name,
		AspectSummary: make(map[string]domain.AspectSummary, len(groups)),
	}
	for i, grp := range groups {
		out.AspectSummary[grp.key] = results[i]
	}

	observability.ObserveBuild("ok", len(groups), time.Since(start))
	log.Info().
		Str("business_id", biz.BusinessID).
		Str("version", biz.Version).
		Int("reviews", len(biz.Reviews)).
		Int("sentences", len(sentences)).
		Int("aspects", len(groups)).
		Dur("took", time.Since(start)).
		Msg("summary built")
	return out, nil
}

// unionAspects merges discovered and core aspects as a set and sorts the
// result so iteration order never depends on map order.
func unionAspects(discovered, core []string) []string {
	set := make(map[string]struct{}, len(discovered)+len(core))
	for _, a := range discovered {
		set[a] = struct{}{}
	}
	for _, a := range core {
		set[a] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// lemmaOf lower-cases and lemmatizes every word of an aspect name.
func (b *SummaryBuilder) lemmaOf(aspect string) string {
	words := strings.Fields(strings.ToLower(aspect))
	if b.lemmatizer != nil {
		for i, w := range words {
			words[i] = b.lemmatizer.Lemma(w)
		}
	}
	return strings.Join(words, " ")
}

func (b *SummaryBuilder) groupAspects(aspects []string, sentences []domain.Sentence) []aspectGroup {
	if !b.cfg.MergeLemmas {
		lemmas := make([]string, len(aspects))
		for i, a := range aspects {
			lemmas[i] = b.lemmaOf(a)
		}
		log.Debug().Strs("lemmas", lemmas).Msg("aspect lemmas (merge disabled)")

		out := make([]aspectGroup, len(aspects))
		for i, a := range aspects {
			out[i] = aspectGroup{key: a, variants: []string{a}}
		}
		return out
	}

	byLemma := map[string][]string{}
	var order []string
	for _, a := range aspects {
		l := b.lemmaOf(a)
		if _, ok := byLemma[l]; !ok {
			order = append(order, l)
		}
		byLemma[l] = append(byLemma[l], a)
	}

	out := make([]aspectGroup, 0, len(order))
	for _, l := range order {
		variants := byLemma[l]
		out = append(out, aspectGroup{key: displayKey(variants, sentences), variants: variants})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// displayKey picks the lower-cased variant mentioned by the most sentences;
// ties go to the alphabetically first.
func displayKey(variants []string, sentences []domain.Sentence) string {
	best, bestN := "", -1
	for _, v := range variants {
		k := strings.ToLower(v)
		n := 0
		for _, s := range sentences {
			if s.HasAspect(v) {
				n++
			}
		}
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

// mentioning selects sentences matching any variant, each sentence once.
func mentioning(sentences []domain.Sentence, variants []string) []domain.Sentence {
	var out []domain.Sentence
	for _, s := range sentences {
		for _, v := range variants {
			if s.HasAspect(v) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
