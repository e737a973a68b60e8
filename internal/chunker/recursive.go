package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"ragindex/internal/domain"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Separators are tried from document level down to character level.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize collapses every newline to a single space and trims the result.
func Normalize(raw string) string {
	return strings.TrimSpace(newlines.Replace(raw))
}

// RecursiveSplitter packs text greedily into chunks of at most chunkSize
// runes. Consecutive chunks share up to chunkOverlap runes.
type RecursiveSplitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveSplitter creates a splitter. A non-positive chunkSize selects
// DefaultChunkSize.
func NewRecursiveSplitter(chunkSize, chunkOverlap int) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return &RecursiveSplitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Split returns the chunk texts of document. Empty input yields no chunks.
func (c *RecursiveSplitter) Split(document string) ([]string, error) {
	if !utf8.ValidString(document) {
		return nil, &domain.ChunkingError{Op: "split", Err: errors.New("input is not valid UTF-8 text")}
	}
	if strings.TrimSpace(document) == "" {
		return nil, nil
	}
	return c.split(document, c.separators), nil
}

// Chunks is Split with source positions attached.
func (c *RecursiveSplitter) Chunks(document string) ([]domain.Chunk, error) {
	texts, err := c.Split(document)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{Text: t, Index: i}
	}
	return chunks, nil
}

func (c *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			next = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, s := range splitKeep(text, separator) {
		if runeLen(s) < c.chunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.split(s, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge glues small pieces into chunks, carrying the trailing pieces of each
// emitted chunk into the next one until at most chunkOverlap runes remain.
func (c *RecursiveSplitter) merge(splits []string) []string {
	var docs, current []string
	total := 0
	for _, d := range splits {
		n := runeLen(d)
		if total+n > c.chunkSize && len(current) > 0 {
			if doc := join(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, d)
		total += n
	}
	if doc := join(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep cuts text before every occurrence of sep, so each piece after the
// first starts with the separator. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	var out []string
	start := 0
	for i := 1; i < len(text); {
		j := strings.Index(text[i:], sep)
		if j < 0 {
			break
		}
		cut := i + j
		out = append(out, text[start:cut])
		start = cut
		i = cut + 1
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
