package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// stubEmbeddingAPI scripts a sequence of API responses.
type stubEmbeddingAPI struct {
	responses []stubResponse
	calls     int
}

type stubResponse struct {
	resp openai.EmbeddingResponse
	err  error
}

func (s *stubEmbeddingAPI) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	if s.calls >= len(s.responses) {
		return openai.EmbeddingResponse{}, errors.New("no more scripted responses")
	}
	r := s.responses[s.calls]
	s.calls++
	return r.resp, r.err
}

func embeddingOf(dims int) openai.Embedding {
	vec := make([]float32, dims)
	vec[0] = 1
	return openai.Embedding{Embedding: vec}
}

func newStubbedProvider(api *stubEmbeddingAPI) *OpenAIProvider {
	return &OpenAIProvider{
		client: api,
		logger: zap.NewNop(),
		model:  Model,
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider("", "", zap.NewNop()); err == nil {
		t.Error("Expected error for empty API key")
	}
	if _, err := NewOpenAIProvider("sk-test", "", zap.NewNop()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{resp: openai.EmbeddingResponse{Data: []openai.Embedding{embeddingOf(Dimensions), embeddingOf(Dimensions)}}},
	}}
	p := newStubbedProvider(api)

	vectors, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("Expected 2 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != Dimensions {
		t.Errorf("Expected %d dimensions, got %d", Dimensions, len(vectors[0]))
	}
	if api.calls != 1 {
		t.Errorf("Expected 1 API call, got %d", api.calls)
	}
}

func TestOpenAIProvider_EmptyBatch(t *testing.T) {
	api := &stubEmbeddingAPI{}
	p := newStubbedProvider(api)

	vectors, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("Expected empty result, got %v", vectors)
	}
	if api.calls != 0 {
		t.Errorf("Expected no API calls for empty batch, got %d", api.calls)
	}
}

func TestOpenAIProvider_RetriesServerErrors(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 503, Message: "unavailable"}},
		{resp: openai.EmbeddingResponse{Data: []openai.Embedding{embeddingOf(Dimensions)}}},
	}}
	p := newStubbedProvider(api)

	vectors, err := p.Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("Embed returned error after retry: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("Expected 1 vector, got %d", len(vectors))
	}
	if api.calls != 2 {
		t.Errorf("Expected 2 API calls, got %d", api.calls)
	}
}

func TestOpenAIProvider_NonRetryableError(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}},
	}}
	p := newStubbedProvider(api)

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("Expected error for unauthorized response")
	}
	if api.calls != 1 {
		t.Errorf("Expected no retry on auth error, got %d calls", api.calls)
	}
}

func TestOpenAIProvider_ExhaustsRetries(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{err: &openai.APIError{HTTPStatusCode: 500, Message: "boom"}},
		{err: &openai.APIError{HTTPStatusCode: 500, Message: "boom"}},
		{err: &openai.APIError{HTTPStatusCode: 500, Message: "boom"}},
	}}
	p := newStubbedProvider(api)

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if api.calls != MaxRetries {
		t.Errorf("Expected %d API calls, got %d", MaxRetries, api.calls)
	}
}

func TestOpenAIProvider_DimensionMismatch(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{resp: openai.EmbeddingResponse{Data: []openai.Embedding{embeddingOf(12)}}},
	}}
	p := newStubbedProvider(api)

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("Expected error for wrong embedding dimensions")
	}
}

func TestOpenAIProvider_CountMismatch(t *testing.T) {
	api := &stubEmbeddingAPI{responses: []stubResponse{
		{resp: openai.EmbeddingResponse{Data: []openai.Embedding{embeddingOf(Dimensions)}}},
	}}
	p := newStubbedProvider(api)

	if _, err := p.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("Expected error when response count differs from input count")
	}
}
