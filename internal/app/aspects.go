package app

import (
	"fmt"
	"sort"
	"strings"

	"opinion_mining/internal/domain"
)

// topCandidates caps how many of the most frequent phrases per group are
// considered before thresholding.
const topCandidates = 30

// AspectThresholds are minimum frequencies, as a fraction of all sentences,
// an aspect must exceed to be reported. Single-word phrases are noisier and
// get their own cutoff.
type AspectThresholds struct {
	SingleWord float64
	MultiWord  float64
}

var DefaultThresholds = AspectThresholds{SingleWord: 0.002, MultiWord: 0.001}

type aspectCount struct {
	name  string
	count int
}

// phraseCounter counts phrases and remembers first-seen order so ties
// resolve the same way on every run.
type phraseCounter struct {
	idx   map[string]int
	items []aspectCount
}

func (c *phraseCounter) add(p string) {
	if c.idx == nil {
		c.idx = make(map[string]int)
	}
	if i, ok := c.idx[p]; ok {
		c.items[i].count++
		return
	}
	c.idx[p] = len(c.items)
	c.items = append(c.items, aspectCount{name: p, count: 1})
}

func (c *phraseCounter) mostCommon(n int) []aspectCount {
	out := make([]aspectCount, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ExtractAspects returns the aspects discussed often enough to report,
// least frequent first. Callers wanting most-frequent-first must reverse.
func ExtractAspects(sentences []domain.Sentence, th AspectThresholds) ([]string, error) {
	var single, multi phraseCounter
	for _, s := range sentences {
		for _, asp := range s.Aspects {
			switch {
			case len(asp) == 1:
				single.add(asp[0])
			case len(asp) > 1:
				multi.add(strings.Join(asp, " "))
			default:
				return nil, fmt.Errorf("%w: empty aspect phrase in sentence %q", domain.ErrInvariantViolation, s.Text)
			}
		}
	}

	n := len(sentences)
	if n == 0 {
		return nil, nil
	}

	singles := aboveThreshold(single.mostCommon(topCandidates), n, th.SingleWord)
	multis := aboveThreshold(multi.mostCommon(topCandidates), n, th.MultiWord)
	singles = filterSubsumed(singles, multis)

	all := append(singles, multis...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].count < all[j].count })

	out := make([]string, len(all))
	for i, a := range all {
		out[i] = a.name
	}
	return out, nil
}

func aboveThreshold(in []aspectCount, total int, thresh float64) []aspectCount {
	out := in[:0:0]
	for _, a := range in {
		if float64(a.count)/float64(total) > thresh {
			out = append(out, a)
		}
	}
	return out
}

// filterSubsumed drops single-word aspects contained in a surviving
// multi-word aspect, e.g. "chicken" when "pesto chicken" is kept.
func filterSubsumed(singles, multis []aspectCount) []aspectCount {
	out := make([]aspectCount, 0, len(singles))
	for _, s := range singles {
		subsumed := false
		for _, m := range multis {
			if strings.Contains(m.name, s.name) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, s)
		}
	}
	return out
}
