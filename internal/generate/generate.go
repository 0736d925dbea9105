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

// Package generate provides the generation adapter: a capability interface
// to a remote text-completion service used to produce or refine SQL.
package generate

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the completion model used for SQL generation
	DefaultModel = openai.GPT4oMini
	// DefaultMaxTokens bounds completion length; generated SQL is short
	DefaultMaxTokens = 800
	// DefaultTemperature keeps generation near-deterministic
	DefaultTemperature = 0.1
	// MaxRetries defines the maximum number of retry attempts
	MaxRetries = 3
	// BaseRetryDelay defines the base delay for exponential backoff
	BaseRetryDelay = time.Second
)

// Prompt is a structured completion request.
type Prompt struct {
	System string
	User   string
}

// Generator produces a single completion string for a structured prompt.
// An empty string with nil error means the provider had nothing to offer;
// callers must handle both empty results and errors as degradations.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// completionAPI is the subset of the OpenAI client used by the adapter.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the OpenAI generation adapter. An empty Endpoint uses
// the default API base URL.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Endpoint    string
}

// OpenAIGenerator calls the OpenAI chat completion API with retry logic.
type OpenAIGenerator struct {
	client      completionAPI
	logger      *zap.Logger
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIGenerator creates a generation adapter. Zero-valued options fall
// back to package defaults.
func NewOpenAIGenerator(apiKey string, opts Options, logger *zap.Logger) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if opts.Endpoint != "" {
		clientConfig.BaseURL = opts.Endpoint
	}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientConfig),
		logger:      logger,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}, nil
}

// Generate requests one completion, retrying rate-limit and server errors
// with exponential backoff.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	}

	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying completion request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastErr = err

			if retryable, retryAfter := isRetryable(err); retryable {
				if retryAfter > 0 {
					delay = retryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}
				continue
			}

			g.logger.Error("Non-retryable completion error",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			return "", err
		}

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices returned from completion provider")
		}

		g.logger.Debug("Completion successful",
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// isRetryable reports whether an API error warrants a retry and any
// server-requested delay.
func isRetryable(err error) (bool, time.Duration) {
	apiErr, ok := err.(*openai.APIError)
	if !ok {
		return false, 0
	}

	switch apiErr.HTTPStatusCode {
	case http.StatusTooManyRequests:
		if apiErr.RetryAfter != nil {
			return true, time.Duration(*apiErr.RetryAfter) * time.Second
		}
		return true, 0
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, 0
	default:
		return false, 0
	}
}
