// Package ranker orders passages by cosine similarity to a query.
//
// The search is brute force: every candidate is scored and the whole set is
// sorted. Corpora are expected to stay in the low thousands of passages, so no
// approximate index is kept.
package ranker

import (
	"log/slog"
	"sort"

	"ragindex/internal/vector"
)

// Candidate is a passage and its embedding.
type Candidate struct {
	Text      string
	Embedding vector.Embedding
}

// Scored is a ranked passage.
type Scored struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Rank scores every candidate against query and returns them most similar
// first. Equal scores keep their input order.
func Rank(query vector.Embedding, corpus []Candidate) []Scored {
	out := make([]Scored, len(corpus))
	for i, c := range corpus {
		out[i] = Scored{Text: c.Text, Score: vector.Cosine(query, c.Embedding)}
		slog.Debug("similarity", "passage", truncate(c.Text, 60), "score", out[i].Score)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Top returns the first k entries of ranked, or all of them when k exceeds
// the length.
func Top(ranked []Scored, k int) []Scored {
	if k < 0 {
		k = 0
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// Texts projects ranked results onto their passages.
func Texts(ranked []Scored) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Text
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
