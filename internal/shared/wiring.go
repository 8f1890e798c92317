package shared

import (
	"opinion_mining/internal/adapters/modelsrv"
	"opinion_mining/internal/adapters/nlp"
	"opinion_mining/internal/adapters/scoring"
	"opinion_mining/internal/app"
	"opinion_mining/internal/domain"
)

// NewScorer picks the in-process model or the model server per SCORER.
func NewScorer(cfg Config) (domain.SentenceScorer, error) {
	if cfg.Scorer == "remote" {
		c, err := modelsrv.New(cfg.ModelBase, cfg.ModelKey, cfg.ModelRPS)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	nb, err := scoring.NewNaiveBayes()
	if err != nil {
		return nil, err
	}
	return nb, nil
}

func NewBuilder(cfg Config, scorer domain.SentenceScorer) *app.SummaryBuilder {
	core := cfg.CoreAspects
	if core == nil {
		core = app.DefaultCoreAspects
	}
	return app.NewSummaryBuilder(
		app.NewSummarizer(scorer, cfg.MinSentenceTokens),
		nlp.NounLemmatizer{},
		app.BuilderConfig{
			Thresholds:  app.AspectThresholds{SingleWord: cfg.SingleWordThresh, MultiWord: cfg.MultiWordThresh},
			CoreAspects: core,
			MergeLemmas: cfg.MergeLemmas,
			Workers:     cfg.Workers,
		},
	)
}
