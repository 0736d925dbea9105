// Package semindex provides nearest-neighbor search over the template
// corpus using vector embeddings.
package semindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/your-org/ocean-query-assistant/internal/corpus"
	"github.com/your-org/ocean-query-assistant/internal/embedding"
	"go.uber.org/zap"
)

const (
	// MaxSearchVariations bounds how many phrasing variations are embedded
	// per search call.
	MaxSearchVariations = 5
	// buildBatchSize is the embedding batch size during index construction.
	buildBatchSize = 10
)

// SearchResult is one ranked template match.
type SearchResult struct {
	TemplateID string            `json:"template_id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float64           `json:"similarity"`
	// Variation is the phrasing variation that produced the best match.
	Variation string `json:"variation"`
}

// Index holds the corpus and its embedding vectors. It is built once at
// startup and read-only afterwards.
type Index struct {
	corpus   *corpus.Corpus
	provider embedding.Provider
	logger   *zap.Logger

	buildOnce sync.Once
	buildErr  error
	vectors   [][]float32
}

// NewIndex creates an index over the given corpus. Build must be called
// before Search.
func NewIndex(c *corpus.Corpus, provider embedding.Provider, logger *zap.Logger) *Index {
	return &Index{
		corpus:   c,
		provider: provider,
		logger:   logger,
	}
}

// Build embeds every template's content. It is safe to invoke more than
// once; only the first call does work.
func (idx *Index) Build(ctx context.Context) error {
	idx.buildOnce.Do(func() {
		idx.buildErr = idx.build(ctx)
	})
	return idx.buildErr
}

func (idx *Index) build(ctx context.Context) error {
	templates := idx.corpus.Templates()
	idx.logger.Info("Building semantic index",
		zap.Int("template_count", len(templates)),
		zap.String("provider", idx.provider.Name()),
	)

	vectors := make([][]float32, 0, len(templates))
	for start := 0; start < len(templates); start += buildBatchSize {
		end := start + buildBatchSize
		if end > len(templates) {
			end = len(templates)
		}

		batch := make([]string, 0, end-start)
		for _, tpl := range templates[start:end] {
			batch = append(batch, tpl.Content)
		}

		batchVectors, err := idx.provider.Embed(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to embed corpus batch %d: %w", start/buildBatchSize, err)
		}
		vectors = append(vectors, batchVectors...)
	}

	idx.vectors = vectors
	idx.logger.Info("Semantic index built", zap.Int("vector_count", len(vectors)))
	return nil
}

// Corpus returns the underlying template corpus.
func (idx *Index) Corpus() *corpus.Corpus {
	return idx.corpus
}

// Search embeds up to MaxSearchVariations variations and returns the topK
// templates ranked by maximum cosine similarity across variations. Results
// are deduplicated by template id, sorted descending; ties break by corpus
// insertion order. An unreachable embedding backend degrades to an empty
// result list rather than an error.
func (idx *Index) Search(ctx context.Context, variations []string, topK int) []SearchResult {
	if len(idx.vectors) == 0 || len(variations) == 0 || topK <= 0 {
		return nil
	}

	if len(variations) > MaxSearchVariations {
		variations = variations[:MaxSearchVariations]
	}

	queryVectors, err := idx.provider.Embed(ctx, variations)
	if err != nil {
		idx.logger.Warn("Embedding backend unavailable, degrading to empty search results",
			zap.String("provider", idx.provider.Name()),
			zap.Error(err),
		)
		return nil
	}

	templates := idx.corpus.Templates()
	best := make(map[int]SearchResult)

	for vi, queryVec := range queryVectors {
		for ti, tplVec := range idx.vectors {
			similarity := cosineSimilarity(queryVec, tplVec)
			existing, seen := best[ti]
			if !seen || similarity > existing.Similarity {
				best[ti] = SearchResult{
					TemplateID: templates[ti].ID,
					Content:    templates[ti].Content,
					Metadata:   templates[ti].Metadata,
					Similarity: similarity,
					Variation:  variations[vi],
				}
			}
		}
	}

	type ranked struct {
		position int
		result   SearchResult
	}
	merged := make([]ranked, 0, len(best))
	for pos, result := range best {
		merged = append(merged, ranked{position: pos, result: result})
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].result.Similarity != merged[j].result.Similarity {
			return merged[i].result.Similarity > merged[j].result.Similarity
		}
		return merged[i].position < merged[j].position
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}

	results := make([]SearchResult, len(merged))
	for i, r := range merged {
		results[i] = r.result
	}
	return results
}

// cosineSimilarity computes the dot product of two unit vectors, clamped to
// [0,1]. Vectors of mismatched length score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot < 0 {
		return 0
	}
	if dot > 1 {
		return 1
	}
	return dot
}
