package semindex

import (
	"context"
	"errors"
	"testing"

	"github.com/your-org/ocean-query-assistant/internal/corpus"
	"go.uber.org/zap"
)

// stubProvider returns fixed vectors keyed by input text.
type stubProvider struct {
	vectors   map[string][]float32
	err       error
	calls     int
	lastBatch int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	s.lastBatch = len(texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		out[i] = vec
	}
	return out, nil
}

func testCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	c, err := corpus.New(corpus.Document{
		Queries: []corpus.Template{
			{ID: "q1", Content: "count floats", Metadata: map[string]string{"type": "count_query"}},
			{ID: "q2", Content: "show profiles", Metadata: map[string]string{"type": "table_query"}},
			{ID: "q3", Content: "average temperature", Metadata: map[string]string{"type": "measurement_query"}},
		},
	})
	if err != nil {
		t.Fatalf("Failed to build corpus: %v", err)
	}
	return c
}

func builtIndex(t *testing.T, provider *stubProvider) *Index {
	t.Helper()
	idx := NewIndex(testCorpus(t), provider, zap.NewNop())
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	return idx
}

func TestBuild_Idempotent(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
	}}

	idx := NewIndex(testCorpus(t), provider, zap.NewNop())
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	firstCalls := provider.calls

	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Second Build returned error: %v", err)
	}
	if provider.calls != firstCalls {
		t.Errorf("Expected no additional embedding calls, got %d extra", provider.calls-firstCalls)
	}
}

func TestSearch_Ranking(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
		"how many floats":     {0.9, 0.1, 0},
	}}
	idx := builtIndex(t, provider)

	results := idx.Search(context.Background(), []string{"how many floats"}, 2)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].TemplateID != "q1" {
		t.Errorf("Expected q1 first, got %s", results[0].TemplateID)
	}
	if results[0].Similarity <= results[1].Similarity {
		t.Errorf("Results not sorted by similarity: %.3f then %.3f",
			results[0].Similarity, results[1].Similarity)
	}
}

func TestSearch_DeduplicatesByTemplate(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
		"variation a":         {0.8, 0, 0},
		"variation b":         {0.95, 0, 0},
	}}
	idx := builtIndex(t, provider)

	results := idx.Search(context.Background(), []string{"variation a", "variation b"}, 10)
	if len(results) != 3 {
		t.Fatalf("Expected 3 deduplicated results, got %d", len(results))
	}
	if results[0].TemplateID != "q1" {
		t.Fatalf("Expected q1 first, got %s", results[0].TemplateID)
	}
	// The kept similarity must be the maximum across variations.
	if results[0].Similarity < 0.94 {
		t.Errorf("Expected max similarity kept, got %.3f", results[0].Similarity)
	}
	if results[0].Variation != "variation b" {
		t.Errorf("Expected winning variation recorded, got %q", results[0].Variation)
	}
}

func TestSearch_TieBreaksByInsertionOrder(t *testing.T) {
	// All templates equidistant from the query.
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {1, 0, 0},
		"average temperature": {1, 0, 0},
		"query":               {1, 0, 0},
	}}
	idx := builtIndex(t, provider)

	results := idx.Search(context.Background(), []string{"query"}, 3)
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	expected := []string{"q1", "q2", "q3"}
	for i, id := range expected {
		if results[i].TemplateID != id {
			t.Errorf("Expected position %d to be %s, got %s", i, id, results[i].TemplateID)
		}
	}
}

func TestSearch_EmbeddingFailureDegrades(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
	}}
	idx := builtIndex(t, provider)

	provider.err = errors.New("backend unreachable")
	results := idx.Search(context.Background(), []string{"anything"}, 5)
	if results != nil {
		t.Errorf("Expected nil results on embedding failure, got %v", results)
	}
}

func TestSearch_VariationLimit(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
	}}
	idx := builtIndex(t, provider)
	provider.calls = 0

	variations := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	idx.Search(context.Background(), variations, 3)
	if provider.calls != 1 {
		t.Fatalf("Expected one embedding call, got %d", provider.calls)
	}
	if provider.lastBatch != MaxSearchVariations {
		t.Errorf("Expected %d variations embedded, got %d", MaxSearchVariations, provider.lastBatch)
	}
}

func TestSearch_EmptyInputs(t *testing.T) {
	provider := &stubProvider{vectors: map[string][]float32{
		"count floats":        {1, 0, 0},
		"show profiles":       {0, 1, 0},
		"average temperature": {0, 0, 1},
	}}
	idx := builtIndex(t, provider)

	if results := idx.Search(context.Background(), nil, 5); results != nil {
		t.Errorf("Expected nil for no variations, got %v", results)
	}
	if results := idx.Search(context.Background(), []string{"x"}, 0); results != nil {
		t.Errorf("Expected nil for topK=0, got %v", results)
	}
}

func TestCosineSimilarity(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "Identical unit vectors", a: []float32{1, 0}, b: []float32{1, 0}, expected: 1},
		{name: "Orthogonal vectors", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "Negative dot clamps to zero", a: []float32{1, 0}, b: []float32{-1, 0}, expected: 0},
		{name: "Mismatched lengths score zero", a: []float32{1, 0, 0}, b: []float32{1, 0}, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cosineSimilarity(tc.a, tc.b); got != tc.expected {
				t.Errorf("Expected %.3f, got %.3f", tc.expected, got)
			}
		})
	}
}
