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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
)

// staticGenerator returns a fixed completion, replacing the remote model.
type staticGenerator struct {
	completion string
}

func (g staticGenerator) Generate(context.Context, generate.Prompt) (string, error) {
	return g.completion, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := filepath.Join(t.TempDir(), "argo.db")
	require.NoError(t, engine.Seed(dbPath, zap.NewNop()))
	eng, err := engine.Open(dbPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	corp, err := corpus.New(corpus.Document{
		SchemaInfo: map[string]corpus.TableInfo{
			"measurements": {Columns: []corpus.ColumnInfo{{Name: "temperature", Type: "REAL"}}},
		},
		Queries: []corpus.Template{
			{ID: "q1", Content: "count floats SQL: SELECT COUNT(*) AS n FROM floats;", Metadata: map[string]string{"type": "count_query", "complexity": "simple"}},
		},
	})
	require.NoError(t, err)

	idx := semindex.NewIndex(corp, embedding.NewLocalProvider(zap.NewNop()), zap.NewNop())
	require.NoError(t, idx.Build(context.Background()))

	svc := pipeline.NewService(
		preprocess.NewPreprocessor(corp.ColumnNames()),
		idx,
		router.NewRouter(staticGenerator{completion: "SELECT COUNT(*) AS n FROM floats"}, zap.NewNop()),
		eng,
		0,
		zap.NewNop(),
	)

	healthManager := health.NewManager("ocean-query-assistant", ServiceVersion, zap.NewNop())
	healthManager.AddChecker("engine", health.EngineHealthChecker(eng.Ping))
	healthManager.AddChecker("corpus", health.CorpusHealthChecker(corp.Len))

	return &Server{
		config: &config.Config{
			Server: config.ServerConfig{Port: 8080, DefaultPageSize: 100, MaxPageSize: 1000},
		},
		logger:        zap.NewNop(),
		pipeline:      svc,
		engine:        eng,
		healthManager: healthManager,
	}
}

func testRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.GET("/health", s.handleHealth)
	r.POST("/api/query", s.handleQuery)
	r.POST("/api/filtered-data", s.handleFilteredData)
	r.GET("/api/filter-options", s.handleFilterOptions)
	r.GET("/api/tables", s.handleTables)
	return r
}

func TestHandleHealth(t *testing.T) {
	r := testRouter(testServer(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp health.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Contains(t, resp.Dependencies, "engine")
	assert.Contains(t, resp.Dependencies, "corpus")
}

func TestHandleQuery(t *testing.T) {
	r := testRouter(testServer(t))

	body, _ := json.Marshal(QueryRequest{Query: "count floats"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SQL)
	assert.True(t, resp.Executed)
	assert.Len(t, resp.Rows, 1)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, 1, resp.Pagination.TotalRecords)
}

func TestHandleQuery_TranslateOnly(t *testing.T) {
	r := testRouter(testServer(t))

	execute := false
	body, _ := json.Marshal(QueryRequest{Query: "count floats", Execute: &execute})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp QueryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SQL)
	assert.False(t, resp.Executed)
	assert.Nil(t, resp.Rows)
}

func TestHandleQuery_BadRequests(t *testing.T) {
	r := testRouter(testServer(t))

	testCases := []struct {
		name string
		body string
	}{
		{name: "Missing query field", body: `{}`},
		{name: "Malformed JSON", body: `{nope`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleFilteredData(t *testing.T) {
	r := testRouter(testServer(t))

	body := `{"depth_range": [0, 100], "quality_levels": [1, 2]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/filtered-data", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data       []map[string]interface{} `json:"data"`
		Pagination engine.Page              `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, len(resp.Data), resp.Pagination.TotalRecords)
}

func TestHandleFilteredData_RejectsBadFilters(t *testing.T) {
	r := testRouter(testServer(t))

	body := `{"lat_range": [1, 2, 3]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/filtered-data", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleFilterOptions(t *testing.T) {
	r := testRouter(testServer(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/filter-options", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var opts engine.FilterOptions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opts))
	assert.NotEmpty(t, opts.Parameters)
	assert.NotEmpty(t, opts.QualityLevels)
}

func TestHandleTables(t *testing.T) {
	r := testRouter(testServer(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "floats")
	assert.Contains(t, w.Body.String(), "measurements")
}

func TestNormalizePaging(t *testing.T) {
	s := testServer(t)

	testCases := []struct {
		name         string
		page         int
		pageSize     int
		expectedPage int
		expectedSize int
	}{
		{name: "Defaults applied", page: 0, pageSize: 0, expectedPage: 1, expectedSize: 100},
		{name: "Negative page clamped", page: -5, pageSize: 50, expectedPage: 1, expectedSize: 50},
		{name: "Oversized page size clamped", page: 2, pageSize: 5000, expectedPage: 2, expectedSize: 1000},
		{name: "Valid values pass through", page: 3, pageSize: 25, expectedPage: 3, expectedSize: 25},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			page, size := s.normalizePaging(tc.page, tc.pageSize)
			assert.Equal(t, tc.expectedPage, page)
			assert.Equal(t, tc.expectedSize, size)
		})
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&bad=x", nil)

	assert.Equal(t, 3, queryInt(c, "page", 1))
	assert.Equal(t, 1, queryInt(c, "bad", 1))
	assert.Equal(t, 7, queryInt(c, "missing", 7))
}
