// Package scoring provides in-process sentence scorers.
package scoring

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cdipaolo/sentiment"

	"opinion_mining/internal/domain"
)

// opinionCutoff is the per-word class probability above which a word counts
// as carrying polarity.
const opinionCutoff = 0.75

// NaiveBayes scores sentences with the pretrained English model shipped in
// github.com/cdipaolo/sentiment. The model's text sanitizer keeps state, so
// calls are serialised.
type NaiveBayes struct {
	mu    sync.Mutex
	model sentiment.Models
}

// NewNaiveBayes restores the bundled model. Load it once at startup and
// share the instance.
func NewNaiveBayes() (*NaiveBayes, error) {
	m, err := sentiment.Restore()
	if err != nil {
		return nil, fmt.Errorf("restore sentiment model: %w", err)
	}
	return &NaiveBayes{model: m}, nil
}

// ScorePositive returns P(positive | sentence).
func (n *NaiveBayes) ScorePositive(ctx context.Context, s domain.Sentence) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	text := strings.Join(s.Features(), " ")
	if text == "" {
		text = strings.ToLower(s.Text)
	}
	return n.positive(text), nil
}

// ScoreOpinionated returns the share of the sentence's words whose own
// polarity is confident. Plain factual sentences score near 0.
func (n *NaiveBayes) ScoreOpinionated(ctx context.Context, s domain.Sentence) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	words := s.Features()
	if len(words) == 0 {
		return 0, nil
	}
	strong := 0
	for _, w := range words {
		p := n.positive(w)
		if p >= opinionCutoff || 1-p >= opinionCutoff {
			strong++
		}
	}
	return float64(strong) / float64(len(words)), nil
}

func (n *NaiveBayes) positive(text string) float64 {
	n.mu.Lock()
	class, p := n.model[sentiment.English].Probability(text)
	n.mu.Unlock()
	if class == 1 {
		return p
	}
	return 1 - p
}
