// Package pipeline wires the translation components into one service
// object: preprocessing, semantic retrieval, adaptive thresholds, routing,
// and execution. The service is constructed once at startup and passed into
// every request-handling call; there is no ambient global state.
package pipeline

import (
	"context"
	"time"

	"github.com/your-org/ocean-query-assistant/internal/engine"
	"github.com/your-org/ocean-query-assistant/internal/preprocess"
	"github.com/your-org/ocean-query-assistant/internal/router"
	"github.com/your-org/ocean-query-assistant/internal/semindex"
	"github.com/your-org/ocean-query-assistant/internal/thresholds"
	"go.uber.org/zap"
)

// DefaultTopK is the number of candidates retrieved per request.
const DefaultTopK = 8

// Result is the full outcome of translating one question, including
// provenance metadata for operators and the API layer.
type Result struct {
	Decision   router.Decision     `json:"decision"`
	Request    *preprocess.Request `json:"request"`
	Thresholds thresholds.Set      `json:"thresholds"`
	// CandidateCount is how many templates retrieval returned.
	CandidateCount int `json:"candidate_count"`
	// BestCandidateType is the metadata type of the top match, empty when
	// retrieval returned nothing.
	BestCandidateType string `json:"best_candidate_type,omitempty"`
}

// Service is the dependency-injected translation pipeline.
type Service struct {
	preprocessor *preprocess.Preprocessor
	index        *semindex.Index
	router       *router.Router
	engine       *engine.Engine
	logger       *zap.Logger
	topK         int
}

// NewService constructs the pipeline from its collaborators. topK bounds
// how many candidates retrieval returns per request; non-positive values
// fall back to DefaultTopK. The engine may be nil for translate-only
// deployments; Execute-based calls then report failure.
func NewService(pp *preprocess.Preprocessor, idx *semindex.Index, rt *router.Router, eng *engine.Engine, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		preprocessor: pp,
		index:        idx,
		router:       rt,
		engine:       eng,
		logger:       logger,
		topK:         topK,
	}
}

// ProcessQuery translates one natural-language question into a routing
// decision. Only empty input is rejected; every downstream failure degrades
// to a valid (possibly empty-SQL) decision.
func (s *Service) ProcessQuery(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	req, err := s.preprocessor.Process(raw)
	if err != nil {
		return nil, err
	}

	results := s.index.Search(ctx, req.Variations, s.topK)

	var bestType, bestComplexity string
	if len(results) > 0 {
		bestType = results[0].Metadata["type"]
		bestComplexity = results[0].Metadata["complexity"]
	}

	ts := thresholds.Calculate(thresholds.Inputs{
		QueryType:         bestType,
		Complexity:        bestComplexity,
		Intent:            req.Intent,
		BestCandidateType: bestType,
	})

	decision := s.router.Route(ctx, req, results, ts)
	decision.Duration = time.Since(start)

	s.logger.Info("Query translated",
		zap.String("tier", string(decision.Tier)),
		zap.String("method", decision.Method),
		zap.Float64("similarity", decision.Similarity),
		zap.Int("candidates", len(results)),
		zap.String("intent", req.Intent),
		zap.Duration("duration", decision.Duration),
	)

	return &Result{
		Decision:          decision,
		Request:           req,
		Thresholds:        ts,
		CandidateCount:    len(results),
		BestCandidateType: bestType,
	}, nil
}

// QueryAndExecute translates a question and runs the final statement
// against the analytic engine. Execution failures are reported as
// (nil rows, false), never as errors.
func (s *Service) QueryAndExecute(ctx context.Context, raw string) (*Result, []engine.Row, bool, error) {
	result, err := s.ProcessQuery(ctx, raw)
	if err != nil {
		return nil, nil, false, err
	}

	if result.Decision.SQL == "" {
		s.logger.Warn("No SQL produced for query", zap.String("tier", string(result.Decision.Tier)))
		return result, nil, false, nil
	}

	if s.engine == nil {
		return result, nil, false, nil
	}

	rows, ok := s.engine.Execute(ctx, result.Decision.SQL)
	return result, rows, ok, nil
}
