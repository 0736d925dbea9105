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

	"github.com/your-org/ocean-query-assistant/internal/resilience"
	"go.uber.org/zap"
)

// FallbackProvider tries a primary provider and falls back to a secondary
// only when the primary fails entirely (after its own retries). A circuit
// breaker skips the primary outright once it has failed repeatedly, so a
// sustained outage does not add a full retry cycle to every request.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	breaker   *resilience.Breaker
	logger    *zap.Logger
}

// NewFallbackProvider chains two providers.
func NewFallbackProvider(primary, secondary Provider, logger *zap.Logger) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		breaker:   resilience.NewBreaker(primary.Name(), resilience.DefaultMaxFailures, resilience.DefaultResetTimeout, logger),
		logger:    logger,
	}
}

// Name identifies the provider chain.
func (p *FallbackProvider) Name() string {
	return p.primary.Name() + "+" + p.secondary.Name()
}

// Embed delegates to the primary provider, switching to the secondary on
// failure. Context cancellation is not retried against the secondary.
func (p *FallbackProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if !p.breaker.Allow() {
		p.logger.Debug("Primary embedding provider circuit open, using local fallback",
			zap.String("primary", p.primary.Name()),
			zap.String("fallback", p.secondary.Name()),
		)
		return p.secondary.Embed(ctx, texts)
	}

	embeddings, err := p.primary.Embed(ctx, texts)
	if err == nil {
		p.breaker.RecordSuccess()
		return embeddings, nil
	}

	if ctx.Err() != nil {
		// The caller abandoned the request; this says nothing about the
		// provider's health, so free the probe slot instead of recording.
		p.breaker.Release()
		return nil, ctx.Err()
	}

	p.breaker.RecordFailure()
	p.logger.Warn("Primary embedding provider failed, using local fallback",
		zap.String("primary", p.primary.Name()),
		zap.String("fallback", p.secondary.Name()),
		zap.Error(err),
	)

	return p.secondary.Embed(ctx, texts)
}
