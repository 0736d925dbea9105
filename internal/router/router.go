// Package router implements the three-tier routing decision: reuse a
// retrieved template, refine with the generative model, or generate from
// scratch.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/your-org/ocean-query-assistant/internal/extract"
	"github.com/your-org/ocean-query-assistant/internal/generate"
	"github.com/your-org/ocean-query-assistant/internal/preprocess"
	"github.com/your-org/ocean-query-assistant/internal/semindex"
	"github.com/your-org/ocean-query-assistant/internal/thresholds"
	"go.uber.org/zap"
)

// Tier identifies the routing strategy selected for a request.
type Tier string

// Routing tiers, ordered by decreasing retrieval confidence.
const (
	TierDirectReuse  Tier = "DirectReuse"
	TierLLMEnhanced  Tier = "LLMEnhanced"
	TierLLMGenerated Tier = "LLMGenerated"
)

// Method names recorded in provenance metadata.
const (
	methodDirectReuse  = "rag_direct_high_similarity"
	methodLLMEnhanced  = "llm_enhanced_medium_similarity"
	methodLLMGenerated = "llm_generated_low_similarity"
)

// Decision is the terminal outcome of routing one request.
type Decision struct {
	Tier       Tier          `json:"tier"`
	SQL        string        `json:"sql"`
	Similarity float64       `json:"similarity"`
	Duration   time.Duration `json:"duration"`
	Method     string        `json:"method"`
	// TemplateID is the matched template, empty when generation produced
	// the query without a direct match.
	TemplateID string `json:"template_id,omitempty"`
}

// Router selects a tier per request. Each request resolves to exactly one
// terminal tier; generation failures degrade the tier's output but never
// abort the request.
type Router struct {
	generator generate.Generator
	logger    *zap.Logger
}

// NewRouter creates a Router around a generation adapter.
func NewRouter(generator generate.Generator, logger *zap.Logger) *Router {
	return &Router{generator: generator, logger: logger}
}

// Route evaluates the transition rule once: search results and adaptive
// thresholds in, terminal decision out.
func (r *Router) Route(ctx context.Context, req *preprocess.Request, results []semindex.SearchResult, ts thresholds.Set) Decision {
	var topSimilarity float64
	if len(results) > 0 {
		topSimilarity = results[0].Similarity
	}

	if len(results) > 0 && topSimilarity >= ts.High {
		if sql, ok := extract.Query(results[0].Content); ok {
			r.logger.Debug("Routing to direct reuse",
				zap.Float64("similarity", topSimilarity),
				zap.Float64("high_threshold", ts.High),
				zap.String("template_id", results[0].TemplateID),
			)
			return Decision{
				Tier:       TierDirectReuse,
				SQL:        sql,
				Similarity: topSimilarity,
				Method:     methodDirectReuse,
				TemplateID: results[0].TemplateID,
			}
		}
		// High similarity but nothing to reuse; fall through to the
		// enhancement tier.
	}

	if len(results) > 0 && topSimilarity >= ts.Medium {
		sql := r.generateSQL(ctx, req, results)
		templateID := ""
		if sql == "" {
			sql, templateID = bestExtractable(results)
		}
		r.logger.Debug("Routing to LLM enhancement",
			zap.Float64("similarity", topSimilarity),
			zap.Float64("medium_threshold", ts.Medium),
			zap.Bool("fallback_to_template", templateID != ""),
		)
		return Decision{
			Tier:       TierLLMEnhanced,
			SQL:        sql,
			Similarity: topSimilarity,
			Method:     methodLLMEnhanced,
			TemplateID: templateID,
		}
	}

	// Low confidence: generate with minimal context. The result is used
	// even when empty; the caller must handle an empty final query.
	sql := r.generateSQL(ctx, req, nil)
	r.logger.Debug("Routing to LLM generation",
		zap.Float64("similarity", topSimilarity),
		zap.Int("candidate_count", len(results)),
	)
	return Decision{
		Tier:       TierLLMGenerated,
		SQL:        sql,
		Similarity: topSimilarity,
		Method:     methodLLMGenerated,
	}
}

// generateSQL invokes the generation adapter and extracts a statement from
// the completion. Adapter failures are swallowed here and surface as an
// empty result.
func (r *Router) generateSQL(ctx context.Context, req *preprocess.Request, results []semindex.SearchResult) string {
	prompt := generate.Prompt{
		System: generate.BuildSystemPrompt(req),
		User:   generate.BuildUserPrompt(req.Normalized, results),
	}

	completion, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("Generation adapter failed, degrading tier output", zap.Error(err))
		return ""
	}

	if sql, ok := extract.Query(completion); ok {
		return sql
	}
	return strings.TrimSpace(completion)
}

// bestExtractable returns the highest-ranked candidate with an extractable
// statement, or empty values when none qualifies.
func bestExtractable(results []semindex.SearchResult) (string, string) {
	for _, result := range results {
		if sql, ok := extract.Query(result.Content); ok {
			return sql, result.TemplateID
		}
	}
	return "", ""
}
