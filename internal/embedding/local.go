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
	"hash/fnv"
	"strings"

	"go.uber.org/zap"
)

// LocalDimensions is the vector size of the local fallback provider,
// matching the compact model it replaces.
const LocalDimensions = 384

// LocalProvider is a deterministic in-process embedder used when the remote
// provider fails entirely. It hashes unigrams and bigrams into a fixed-size
// feature vector and L2-normalizes the result. Quality is far below the
// remote model but vectors are stable across runs, which keeps retrieval
// deterministic during outages.
type LocalProvider struct {
	logger *zap.Logger
}

// NewLocalProvider creates the local fallback provider.
func NewLocalProvider(logger *zap.Logger) *LocalProvider {
	return &LocalProvider{logger: logger}
}

// Name identifies the provider in logs and provenance metadata.
func (p *LocalProvider) Name() string {
	return "local-hash"
}

// Embed generates one normalized feature-hash vector per input text.
func (p *LocalProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = hashEmbed(text)
	}
	return embeddings, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, LocalDimensions)
	tokens := strings.Fields(strings.ToLower(text))

	for i, token := range tokens {
		addFeature(vec, token)
		if i+1 < len(tokens) {
			addFeature(vec, token+" "+tokens[i+1])
		}
	}

	return Normalize(vec)
}

func addFeature(vec []float32, feature string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	// Signed hashing: the low bit picks the sign, the rest picks the bucket.
	idx := int((sum >> 1) % uint64(len(vec)))
	if sum&1 == 0 {
		vec[idx]++
	} else {
		vec[idx]--
	}
}
