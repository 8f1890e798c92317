// Package nlp prepares raw review text for the summarizer: sentence
// segmentation, noun-phrase aspect candidates, lemmas and language.
package nlp

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball/english"

	"opinion_mining/internal/domain"
)

// Analyzer implements domain.TextAnalyzer on top of prose's segmenter and
// averaged-perceptron tagger.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

// minLangConfidence is the detector confidence below which a review's
// language is reported as unknown.
const minLangConfidence = 0.5

// Language returns the ISO 639-1 code of text, or "" when detection is not
// confident enough.
func (a *Analyzer) Language(text string) string {
	info := whatlanggo.Detect(text)
	if info.Confidence < minLangConfidence {
		return ""
	}
	return info.Lang.Iso6391()
}

// Segment splits text into sentences, each with tokens and noun-phrase
// aspect candidates. Review back references are left for the caller.
func (a *Analyzer) Segment(text string) ([]domain.Sentence, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	var out []domain.Sentence
	for _, sent := range doc.Sentences() {
		sd, err := prose.NewDocument(sent.Text,
			prose.WithSegmentation(false),
			prose.WithExtraction(false))
		if err != nil {
			return nil, fmt.Errorf("tag sentence: %w", err)
		}
		toks := sd.Tokens()
		words := make([]string, 0, len(toks))
		for _, t := range toks {
			if isWord(t.Text) {
				words = append(words, t.Text)
			}
		}
		out = append(out, domain.Sentence{
			Text:    sent.Text,
			Tokens:  words,
			Aspects: NounPhrases(toks),
		})
	}
	return out, nil
}

// NounPhrases returns maximal runs of nouns (NN, NNS, NNP, NNPS) as aspect
// candidates, lower-cased. Every phrase has at least one word.
func NounPhrases(toks []prose.Token) [][]string {
	var out [][]string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	for _, t := range toks {
		if strings.HasPrefix(t.Tag, "NN") && isWord(t.Text) {
			cur = append(cur, strings.ToLower(t.Text))
			continue
		}
		flush()
	}
	flush()
	return out
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// NounLemmatizer implements domain.Lemmatizer for aspect nouns. Regular
// plurals fold to their singular; derived forms such as "lighting" or
// "connection" are left alone. A singular candidate is accepted only when
// its Snowball stem matches the plural's. The result is a merge key, never
// shown.
type NounLemmatizer struct{}

func (NounLemmatizer) Lemma(word string) string {
	w := strings.ToLower(word)
	stem := english.Stem(w, false)
	for _, c := range singulars(w) {
		if english.Stem(c, false) == stem {
			return c
		}
	}
	return w
}

// singulars lists candidate singular forms of w, most likely first.
func singulars(w string) []string {
	n := len(w)
	switch {
	case n <= 3:
		return nil
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"), strings.HasSuffix(w, "is"):
		return nil
	case strings.HasSuffix(w, "ies"):
		return []string{w[:n-3] + "y", w[:n-1]}
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "zes"),
		strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		return []string{w[:n-2], w[:n-1]}
	case strings.HasSuffix(w, "s"):
		return []string{w[:n-1], w[:n-2]}
	}
	return nil
}
