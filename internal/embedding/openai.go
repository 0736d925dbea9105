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

package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	// Model defines the embedding model used for corpus and query vectors
	Model = openai.SmallEmbedding3
	// Dimensions defines the expected embedding dimensions
	Dimensions = 1536
)

// embeddingAPI is the subset of the OpenAI client used by this provider,
// narrowed so tests can stub the remote call.
type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAIProvider generates embeddings through the OpenAI API with bounded
// exponential-backoff retry on rate-limit and server errors.
type OpenAIProvider struct {
	client embeddingAPI
	logger *zap.Logger
	model  openai.EmbeddingModel
}

// NewOpenAIProvider creates a remote embedding provider. An empty endpoint
// uses the default API base URL.
func NewOpenAIProvider(apiKey, endpoint string, logger *zap.Logger) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = endpoint
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
		model:  Model,
	}, nil
}

// Name identifies the provider in logs and provenance metadata.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Embed generates L2-normalized embeddings for a batch of texts, retrying
// retryable API errors with exponential backoff.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var lastErr error
	delay := BaseRetryDelay

	for attempt := 0; attempt < MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Warn("Retrying embedding request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", MaxRetries),
				zap.Duration("delay", delay),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		embeddings, err := p.createEmbeddings(ctx, texts)
		if err != nil {
			lastErr = err

			if retryErr, ok := err.(*RetryableError); ok {
				if retryErr.RetryAfter > 0 {
					delay = retryErr.RetryAfter
				} else {
					delay = BaseRetryDelay * time.Duration(1<<uint(attempt))
				}
				continue
			}

			p.logger.Error("Non-retryable embedding error",
				zap.Error(err),
				zap.Int("attempt", attempt+1),
			)
			return nil, err
		}

		if attempt > 0 {
			p.logger.Info("Embedding request succeeded after retry",
				zap.Int("attempt", attempt+1),
			)
		}
		return embeddings, nil
	}

	p.logger.Error("All embedding retry attempts exhausted",
		zap.Int("max_retries", MaxRetries),
		zap.Error(lastErr),
	)
	return nil, fmt.Errorf("exhausted all retry attempts: %w", lastErr)
}

// createEmbeddings performs one embedding API call.
func (p *OpenAIProvider) createEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return nil, p.classifyAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected response: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		if len(item.Embedding) != Dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(item.Embedding), Dimensions)
		}
		embeddings[i] = Normalize(item.Embedding)
	}

	p.logger.Debug("Embedding request completed",
		zap.Int("embeddings_count", len(embeddings)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
	)

	return embeddings, nil
}

// classifyAPIError converts OpenAI API errors into retryable or terminal
// errors.
func (p *OpenAIProvider) classifyAPIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("invalid API key or unauthorized access: %w", err)
		case http.StatusTooManyRequests:
			retryAfter := BaseRetryDelay
			if apiErr.RetryAfter != nil {
				retryAfter = time.Duration(*apiErr.RetryAfter) * time.Second
			}
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
				RetryAfter: retryAfter,
			}
		case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return &RetryableError{
				StatusCode: apiErr.HTTPStatusCode,
				Message:    apiErr.Message,
			}
		default:
			return fmt.Errorf("OpenAI API error (status %d): %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
	}

	return fmt.Errorf("OpenAI client error: %w", err)
}
