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

// Package main provides the oceanctl command-line tool: one-shot query
// translation and dataset seeding for local development.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/your-org/ocean-query-assistant/internal/config"
	"github.com/your-org/ocean-query-assistant/internal/corpus"
	"github.com/your-org/ocean-query-assistant/internal/embedding"
	"github.com/your-org/ocean-query-assistant/internal/engine"
	"github.com/your-org/ocean-query-assistant/internal/generate"
	"github.com/your-org/ocean-query-assistant/internal/pipeline"
	"github.com/your-org/ocean-query-assistant/internal/preprocess"
	"github.com/your-org/ocean-query-assistant/internal/router"
	"github.com/your-org/ocean-query-assistant/internal/semindex"
	"go.uber.org/zap"
)

const (
	// QueryTimeout bounds one-shot query translation including the index
	// build.
	QueryTimeout = 2 * time.Minute
)

var (
	configPath string
	noExecute  bool
	maxRows    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oceanctl",
		Short: "Ocean Query Assistant command-line tool",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "Path to configuration file")

	queryCmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Translate a natural-language question into SQL and run it",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuery,
	}
	queryCmd.Flags().BoolVar(&noExecute, "no-execute", false, "Translate only, do not run the statement")
	queryCmd.Flags().IntVar(&maxRows, "max-rows", 20, "Maximum rows to print")
	rootCmd.AddCommand(queryCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo ARGO dataset for local development",
		RunE:  runSeed,
	}
	rootCmd.AddCommand(seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runQuery performs one-shot translation against the configured corpus and
// engine.
func runQuery(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	corp, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	eng, err := engine.Open(cfg.Engine.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open analytic engine: %w", err)
	}
	defer eng.Close()

	remote, err := embedding.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Endpoint, logger)
	if err != nil {
		return err
	}
	var provider embedding.Provider = remote
	if cfg.Retrieval.LocalFallback {
		provider = embedding.NewFallbackProvider(remote, embedding.NewLocalProvider(logger), logger)
	}

	generator, err := generate.NewOpenAIGenerator(cfg.OpenAI.APIKey, generate.Options{
		Model:       cfg.Generation.Model,
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: float32(cfg.Generation.Temperature),
		Endpoint:    cfg.OpenAI.Endpoint,
	}, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), QueryTimeout)
	defer cancel()

	index := semindex.NewIndex(corp, provider, logger)
	if err := index.Build(ctx); err != nil {
		logger.Warn("Semantic index build failed, retrieval will degrade", zap.Error(err))
	}

	svc := pipeline.NewService(
		preprocess.NewPreprocessor(corp.ColumnNames()),
		index,
		router.NewRouter(generator, logger),
		eng,
		cfg.Retrieval.TopK,
		logger,
	)

	if noExecute {
		result, err := svc.ProcessQuery(ctx, args[0])
		if err != nil {
			return err
		}
		printDecision(result)
		return nil
	}

	result, rows, ok, err := svc.QueryAndExecute(ctx, args[0])
	if err != nil {
		return err
	}
	printDecision(result)
	if !ok {
		fmt.Println("Execution: failed (see logs)")
		return nil
	}
	printRows(rows)
	return nil
}

// printDecision writes the translation outcome to stdout
func printDecision(result *pipeline.Result) {
	fmt.Printf("Tier:       %s\n", result.Decision.Tier)
	fmt.Printf("Method:     %s\n", result.Decision.Method)
	fmt.Printf("Similarity: %.3f\n", result.Decision.Similarity)
	if result.Decision.TemplateID != "" {
		fmt.Printf("Template:   %s\n", result.Decision.TemplateID)
	}
	fmt.Printf("Intent:     %s\n", result.Request.Intent)
	fmt.Printf("SQL:\n%s\n", result.Decision.SQL)
}

// printRows writes result rows as JSON lines, capped at maxRows
func printRows(rows []engine.Row) {
	fmt.Printf("Rows: %d\n", len(rows))
	limit := len(rows)
	if maxRows > 0 && limit > maxRows {
		limit = maxRows
	}
	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows[:limit] {
		_ = enc.Encode(row)
	}
	if limit < len(rows) {
		fmt.Printf("... %d more rows\n", len(rows)-limit)
	}
}

// runSeed creates a small demo dataset so the pipeline can run end to end
// without real ARGO data.
func runSeed(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := engine.Seed(cfg.Engine.DBPath, logger); err != nil {
		return fmt.Errorf("failed to seed dataset: %w", err)
	}

	fmt.Printf("Seeded demo dataset at %s\n", cfg.Engine.DBPath)
	return nil
}
