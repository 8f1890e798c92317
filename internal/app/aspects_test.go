package app_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"opinion_mining/internal/app"
	"opinion_mining/internal/domain"
)

func sentenceWith(aspects ...[]string) domain.Sentence {
	return domain.Sentence{Text: "x", Aspects: aspects}
}

func corpus(n int, fill func(i int) domain.Sentence) []domain.Sentence {
	out := make([]domain.Sentence, n)
	for i := range out {
		out[i] = fill(i)
	}
	return out
}

func TestExtractAspects_ThresholdsAndSubsumption(t *testing.T) {
	// 10 sentences: "app" x5, "bug" x1, "dark mode" x3, "mode" x4
	sents := corpus(10, func(i int) domain.Sentence {
		var as [][]string
		if i < 5 {
			as = append(as, []string{"app"})
		}
		if i == 5 {
			as = append(as, []string{"bug"})
		}
		if i >= 6 && i < 9 {
			as = append(as, []string{"dark", "mode"})
		}
		if i >= 6 {
			as = append(as, []string{"mode"})
		}
		return sentenceWith(as...)
	})

	got, err := app.ExtractAspects(sents, app.AspectThresholds{SingleWord: 0.1, MultiWord: 0.1})
	require.NoError(t, err)
	// "bug" sits exactly on the threshold and "mode" is part of "dark mode"
	require.Equal(t, []string{"dark mode", "app"}, got)
}

func TestExtractAspects_HigherThresholdIsSubset(t *testing.T) {
	sents := corpus(20, func(i int) domain.Sentence {
		return sentenceWith([]string{fmt.Sprintf("w%d", i%4)}, []string{"screen"})
	})
	lo, err := app.ExtractAspects(sents, app.AspectThresholds{SingleWord: 0.1, MultiWord: 0.1})
	require.NoError(t, err)
	hi, err := app.ExtractAspects(sents, app.AspectThresholds{SingleWord: 0.5, MultiWord: 0.5})
	require.NoError(t, err)

	require.Subset(t, lo, hi)
	require.Equal(t, []string{"screen"}, hi)
	require.Len(t, lo, 5)
}

func TestExtractAspects_AscendingFrequency(t *testing.T) {
	sents := corpus(10, func(i int) domain.Sentence {
		as := [][]string{{"price"}}
		if i < 7 {
			as = append(as, []string{"sync"})
		}
		if i < 3 {
			as = append(as, []string{"login", "screen"})
		}
		return sentenceWith(as...)
	})
	got, err := app.ExtractAspects(sents, app.AspectThresholds{})
	require.NoError(t, err)
	require.Equal(t, []string{"login screen", "sync", "price"}, got)
}

func TestExtractAspects_TopCandidatesCap(t *testing.T) {
	// 31 distinct single words with equal counts: first-seen order wins ties
	sents := corpus(62, func(i int) domain.Sentence {
		return sentenceWith([]string{fmt.Sprintf("word%02d", i%31)})
	})
	got, err := app.ExtractAspects(sents, app.AspectThresholds{})
	require.NoError(t, err)
	require.Len(t, got, 30)
	require.NotContains(t, got, "word30")
}

func TestExtractAspects_EmptyCorpus(t *testing.T) {
	got, err := app.ExtractAspects(nil, app.DefaultThresholds)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestExtractAspects_EmptyPhraseIsInvariantViolation(t *testing.T) {
	sents := []domain.Sentence{sentenceWith([]string{"ok"}), sentenceWith([]string{})}
	_, err := app.ExtractAspects(sents, app.DefaultThresholds)
	require.ErrorIs(t, err, domain.ErrInvariantViolation)
}
