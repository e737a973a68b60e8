package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
	sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// FrequencySummarizer picks the sentences of a text that best cover its
// frequent terms, optionally biased towards the terms of a question.
type FrequencySummarizer struct {
	stopwords map[string]struct{}
	// queryBoost is added to a term's normalized frequency when the term
	// also appears in the question.
	queryBoost float64
}

func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{stopwords: defaultStopwords(), queryBoost: 2}
}

// Summarize returns up to maxSentences sentences of text, in their original
// order. A sentence that shares no term with a non-empty question only wins a
// slot when nothing better is left.
func (s *FrequencySummarizer) Summarize(text, question string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sentences []string
	for _, sent := range sentencePattern.FindAllString(text, -1) {
		// passages joined with ", " leave the comma in front of the next sentence
		if sent = strings.TrimLeft(strings.TrimSpace(sent), ",; "); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}

	freq := map[string]float64{}
	tokenized := make([][]string, len(sentences))
	for i, sent := range sentences {
		tokenized[i] = s.terms(sent)
		for _, tok := range tokenized[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	for _, tok := range s.terms(question) {
		if _, ok := freq[tok]; ok {
			freq[tok] += s.queryBoost
		}
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i, toks := range tokenized {
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		if n := len(toks); n > 0 {
			score /= math.Sqrt(float64(n))
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if maxSentences > len(scores) {
		maxSentences = len(scores)
	}

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}

func (s *FrequencySummarizer) terms(text string) []string {
	toks := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := toks[:0]
	for _, tok := range toks {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "who", "how", "why", "which", "do", "does", "tell", "me",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
