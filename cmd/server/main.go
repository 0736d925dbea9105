// Copyright 2024 Ocean Query Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the HTTP API service for the ocean query assistant.
// It exposes the natural-language query pipeline and filtered data access
// over the ARGO float dataset.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/your-org/ocean-query-assistant/internal/config"
	"github.com/your-org/ocean-query-assistant/internal/corpus"
	"github.com/your-org/ocean-query-assistant/internal/embedding"
	"github.com/your-org/ocean-query-assistant/internal/engine"
	"github.com/your-org/ocean-query-assistant/internal/generate"
	"github.com/your-org/ocean-query-assistant/internal/health"
	"github.com/your-org/ocean-query-assistant/internal/pipeline"
	"github.com/your-org/ocean-query-assistant/internal/preprocess"
	"github.com/your-org/ocean-query-assistant/internal/router"
	"github.com/your-org/ocean-query-assistant/internal/semindex"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ServiceVersion is reported by the health endpoint
	ServiceVersion = "1.0.0"
	// BuildTimeout bounds the initial index build
	BuildTimeout = 2 * time.Minute
)

// QueryRequest represents an incoming natural-language query
type QueryRequest struct {
	Query    string `json:"query" binding:"required"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	// Execute controls whether the translated statement runs against the
	// engine. Translate-only callers set it to false.
	Execute *bool `json:"execute,omitempty"`
}

// QueryResponse represents the outcome of one translated query
type QueryResponse struct {
	SQL        string        `json:"sql"`
	Tier       string        `json:"tier"`
	Method     string        `json:"method"`
	Similarity float64       `json:"similarity"`
	TemplateID string        `json:"template_id,omitempty"`
	Intent     string        `json:"intent"`
	DurationMS int64         `json:"duration_ms"`
	Executed   bool          `json:"executed"`
	Rows       []engine.Row  `json:"rows,omitempty"`
	Pagination *engine.Page  `json:"pagination,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// Server wires the pipeline into HTTP handlers
type Server struct {
	config        *config.Config
	logger        *zap.Logger
	pipeline      *pipeline.Service
	engine        *engine.Engine
	healthManager *health.Manager
}

func main() {
	configPath := configPathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initializeLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	server, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}
	defer server.engine.Close()

	// Reloads are picked up for the next restart; collaborators keep their
	// startup configuration.
	if err := config.WatchConfig(configPath, func(updated *config.Config) {
		logger.Info("Configuration file changed, restart to apply",
			zap.String("path", configPath),
			zap.Any("config", updated.MaskSensitiveValues()))
	}); err != nil {
		logger.Warn("Configuration watching unavailable", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", server.handleHealth)
	r.POST("/api/query", server.handleQuery)
	r.POST("/api/filtered-data", server.handleFilteredData)
	r.GET("/api/filter-options", server.handleFilterOptions)
	r.GET("/api/tables", server.handleTables)

	logger.Info("Starting ocean query assistant server",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", ServiceVersion),
	)

	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// buildServer constructs all pipeline collaborators from configuration and
// builds the semantic index.
func buildServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	corp, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	eng, err := engine.Open(cfg.Engine.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytic engine: %w", err)
	}

	remote, err := embedding.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Endpoint, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	var provider embedding.Provider = remote
	if cfg.Retrieval.LocalFallback {
		provider = embedding.NewFallbackProvider(remote, embedding.NewLocalProvider(logger), logger)
	}

	index := semindex.NewIndex(corp, provider, logger)
	buildCtx, cancel := context.WithTimeout(context.Background(), BuildTimeout)
	defer cancel()
	if err := index.Build(buildCtx); err != nil {
		// A failed build is survivable: retrieval degrades and requests
		// route to generation.
		logger.Warn("Semantic index build failed, retrieval will degrade", zap.Error(err))
	}

	generator, err := generate.NewOpenAIGenerator(cfg.OpenAI.APIKey, generate.Options{
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: float32(cfg.Generation.Temperature),
		Endpoint:    cfg.OpenAI.Endpoint,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation adapter: %w", err)
	}

	pp := preprocess.NewPreprocessor(corp.ColumnNames())
	rt := router.NewRouter(generator, logger)
	svc := pipeline.NewService(pp, index, rt, eng, cfg.Retrieval.TopK, logger)

	healthManager := health.NewManager("ocean-query-assistant", ServiceVersion, logger)
	healthManager.AddChecker("engine", health.EngineHealthChecker(eng.Ping))
	healthManager.AddChecker("corpus", health.CorpusHealthChecker(corp.Len))
	healthManager.AddChecker("embedding_provider", health.ProviderHealthChecker(provider.Name(),
		func(ctx context.Context) error {
			_, err := provider.Embed(ctx, []string{"health check"})
			return err
		}))

	return &Server{
		config:        cfg,
		logger:        logger,
		pipeline:      svc,
		engine:        eng,
		healthManager: healthManager,
	}, nil
}

// handleHealth returns the aggregated health status
func (s *Server) handleHealth(c *gin.Context) {
	result := s.healthManager.Check(c.Request.Context())

	statusCode := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, result)
}

// handleQuery translates a natural-language question and optionally executes
// the resulting statement with pagination.
func (s *Server) handleQuery(c *gin.Context) {
	ctx := c.Request.Context()

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := s.pipeline.ProcessQuery(ctx, req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := QueryResponse{
		SQL:        result.Decision.SQL,
		Tier:       string(result.Decision.Tier),
		Method:     result.Decision.Method,
		Similarity: result.Decision.Similarity,
		TemplateID: result.Decision.TemplateID,
		Intent:     result.Request.Intent,
		DurationMS: result.Decision.Duration.Milliseconds(),
	}

	execute := req.Execute == nil || *req.Execute
	if execute && resp.SQL != "" {
		page, pageSize := s.normalizePaging(req.Page, req.PageSize)
		rows, pagination, err := s.engine.ExecutePaginated(ctx, resp.SQL, nil, page, pageSize)
		if err != nil {
			s.logger.Warn("Translated query failed to execute", zap.Error(err))
			resp.Error = "query execution failed"
		} else {
			resp.Executed = true
			resp.Rows = rows
			resp.Pagination = &pagination
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleFilteredData serves structured filter requests against the
// measurement tables. All filter values are bound as parameters.
func (s *Server) handleFilteredData(c *gin.Context) {
	ctx := c.Request.Context()

	var filters engine.Filters
	if err := c.ShouldBindJSON(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter format"})
		return
	}

	query, args, err := engine.BuildFilteredQuery(filters)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, pageSize := s.normalizePaging(
		queryInt(c, "page", 1),
		queryInt(c, "page_size", s.config.Server.DefaultPageSize),
	)

	rows, pagination, err := s.engine.ExecutePaginated(ctx, query, args, page, pageSize)
	if err != nil {
		s.logger.Error("Filtered query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "filtered query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       rows,
		"pagination": pagination,
	})
}

// handleFilterOptions reports the filterable value ranges in the dataset
func (s *Server) handleFilterOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.FilterOptions(c.Request.Context()))
}

// handleTables lists the tables available to translated queries
func (s *Server) handleTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": s.engine.AvailableTables()})
}

// normalizePaging clamps page and page size to configured bounds
func (s *Server) normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.config.Server.DefaultPageSize
	}
	if pageSize > s.config.Server.MaxPageSize {
		pageSize = s.config.Server.MaxPageSize
	}
	return page, pageSize
}

// queryInt reads an integer query parameter with a default
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// configPathFromEnv resolves the config file path, defaulting to the
// repository layout.
func configPathFromEnv() string {
	if path := os.Getenv("OCEAN_ASSISTANT_CONFIG"); path != "" {
		return path
	}
	return "./configs/config.yaml"
}

// initializeLogger creates a zap logger from logging configuration
func initializeLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Logging.Format == "text" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{cfg.Logging.Output}

	return zapConfig.Build()
}
