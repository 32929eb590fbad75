// Package ragstore implements the RAG Context Store (spec.md §4.C4): a
// per-job store of text chunks, queried by approximate similarity. Chunking
// and the degraded keyword-overlap fallback are stdlib-only — no library in
// the retrieved pack does naive keyword-overlap ranking, and this is
// intentionally a small, local algorithm, not something worth a dependency
// for. Embeddings and nearest-neighbor search are delegated to
// pkg/vectorindex (github.com/qdrant/go-client) when available.
package ragstore

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nellia/prospectord/pkg/vectorindex"
)

const maxChunkChars = 1000

// Embedder turns text into a fixed-dimension vector. The concrete
// implementation lives behind the LLM Gateway's provider (spec.md §6); tests
// use a hand-written fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Match is one query result.
type Match struct {
	Text  string
	Score float32
}

// Store owns one job's chunk collection. A Store degrades to keyword
// overlap when the vector index or embedder is unavailable; Query reports
// whether it degraded so the caller can surface a status_update event
// instead of hiding the degradation (spec.md §4.C4).
type Store struct {
	index    *vectorindex.Index
	embedder Embedder

	mu     sync.RWMutex
	chunks map[string][]string // jobID -> chunk texts, kept for the keyword-overlap fallback
}

// New builds a Store. index or embedder may be nil — Query then always uses
// the keyword-overlap fallback.
func New(index *vectorindex.Index, embedder Embedder) *Store {
	return &Store{
		index:    index,
		embedder: embedder,
		chunks:   make(map[string][]string),
	}
}

// Build chunks seedText, stores it for the fallback path, and — when the
// vector index is available — embeds and upserts it into a fresh
// per-job collection. Idempotent: only the first Build for a jobID seeds the
// store; any later or concurrent Build for a jobID the store already holds
// (including one that has only seen Add) returns nil without adding chunks.
func (s *Store) Build(ctx context.Context, jobID string, seedText []string) error {
	s.mu.Lock()
	if _, built := s.chunks[jobID]; built {
		s.mu.Unlock()
		return nil
	}
	s.chunks[jobID] = nil
	s.mu.Unlock()
	return s.Add(ctx, jobID, seedText)
}

// Add appends new_text_chunks to the job's store (spec.md §4.C4).
func (s *Store) Add(ctx context.Context, jobID string, texts []string) error {
	var chunks []string
	for _, t := range texts {
		chunks = append(chunks, Chunk(t)...)
	}
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	s.chunks[jobID] = append(s.chunks[jobID], chunks...)
	s.mu.Unlock()

	if s.index == nil || s.embedder == nil {
		return nil
	}

	if err := s.index.EnsureCollection(ctx, jobID, s.embedder.Dimensions()); err != nil {
		return nil // degrade silently here; Query reports degradation per-call
	}

	points := make([]vectorindex.Point, 0, len(chunks))
	for _, c := range chunks {
		vec, err := s.embedder.Embed(ctx, c)
		if err != nil {
			return nil
		}
		points = append(points, vectorindex.Point{Text: c, Vector: normalize(vec)})
	}
	_ = s.index.Upsert(ctx, jobID, points) // best-effort; fallback covers failure
	return nil
}

// Query returns the top-k chunks by similarity to queryText, and whether the
// result came from the degraded keyword-overlap path.
func (s *Store) Query(ctx context.Context, jobID, queryText string, k int) ([]Match, bool) {
	if s.index != nil && s.embedder != nil {
		if vec, err := s.embedder.Embed(ctx, queryText); err == nil {
			if matches, err := s.index.Query(ctx, jobID, normalize(vec), k); err == nil {
				out := make([]Match, len(matches))
				for i, m := range matches {
					out[i] = Match{Text: m.Text, Score: m.Score}
				}
				return out, false
			}
		}
	}

	s.mu.RLock()
	chunks := append([]string(nil), s.chunks[jobID]...)
	s.mu.RUnlock()

	return keywordOverlap(queryText, chunks, k), true
}

var paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)

// Chunk splits text into paragraphs on blank lines, then greedily merges
// paragraphs into chunks of up to ~1000 characters, never splitting a
// paragraph across chunks (spec.md §4.C4).
func Chunk(text string) []string {
	paragraphs := paragraphSplitRe.Split(strings.TrimSpace(text), -1)

	var chunks []string
	var current strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(p)+2 > maxChunkChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

var wordRe = regexp.MustCompile(`[a-zA-Z0-9]+`)

// keywordOverlap ranks chunks by the fraction of query terms they contain,
// descending, returning at most k.
func keywordOverlap(query string, chunks []string, k int) []Match {
	queryTerms := termSet(query)
	if len(queryTerms) == 0 || len(chunks) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		chunkTerms := termSet(c)
		overlap := 0
		for t := range queryTerms {
			if chunkTerms[t] {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		score := float32(overlap) / float32(len(queryTerms))
		matches = append(matches, Match{Text: c, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func termSet(s string) map[string]bool {
	terms := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	return set
}

// normalize L2-normalizes every vector Add upserts and Query searches with
// before it reaches the vector index (spec.md §4.C4: "similarity: L2
// distance on unit-normalized vectors equivalent").
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
