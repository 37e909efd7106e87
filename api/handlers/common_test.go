// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/linkindex/config"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/meghashyamc/linkindex/metrics"
	"github.com/meghashyamc/linkindex/services/enrich"
	"github.com/meghashyamc/linkindex/services/index"
	"github.com/meghashyamc/linkindex/services/scoring"
	"github.com/meghashyamc/linkindex/services/search"
	"github.com/meghashyamc/linkindex/services/tokenize"
	"github.com/meghashyamc/linkindex/validation"
	"github.com/stretchr/testify/require"
)

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	queryParams      map[string]string
	expectedStatus   int
	expectedResponse map[string]any
}

type testServer struct {
	router  *gin.Engine
	db      *searchdb.Index
	metrics *metrics.Metrics
}

// stubEnricher answers every lookup with fixed metadata.
type stubEnricher struct {
	metadata enrich.Metadata
}

func (s stubEnricher) Enrich(context.Context, string) (*enrich.Metadata, error) {
	metadata := s.metadata
	return &metadata, nil
}

func newTestLogger() logger.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupTestServer(t *testing.T, assert *require.Assertions, enricher enrich.Enricher) *testServer {

	t.Setenv("ENV", "test")
	t.Setenv("STORAGE_PATH", t.TempDir())

	cfg, err := config.Load("")
	assert.NoError(err, "could not load config")

	testLogger := newTestLogger()

	tokenizer, err := tokenize.New(testLogger, cfg)
	assert.NoError(err, "could not create tokenizer")
	algorithm, err := scoring.Parse(cfg.GetDefaultAlgorithm())
	assert.NoError(err, "could not parse default algorithm")
	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	db := searchdb.New(testLogger)
	testMetrics := metrics.New()
	indexService := index.New(testLogger, db, tokenizer, enricher, index.Options{
		MaxTitleLength:       cfg.GetMaxTitleLength(),
		MaxDescriptionLength: cfg.GetMaxDescriptionLength(),
	})
	searchService := search.New(testLogger, db, tokenizer, search.Options{
		DefaultAlgorithm: algorithm,
		DefaultPageSize:  cfg.GetDefaultPageSize(),
		MaxPageWidth:     cfg.GetMaxPageWidth(),
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupIndex(router, testLogger, indexService, db, validator, testMetrics)
	SetupSearch(router, testLogger, searchService, validator, testMetrics)
	SetupStatus(router, db)

	return &testServer{router: router, db: db, metrics: testMetrics}
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}, queryParams map[string]string) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	if len(queryParams) > 0 {
		values := url.Values{}
		for key, value := range queryParams {
			values.Set(key, value)
		}
		endpoint = endpoint + "?" + values.Encode()
	}
	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var responseMap map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &responseMap), "response was %s", w.Body.String())
	return responseMap
}

func addTestDocument(server *testServer, assert *require.Assertions, body map[string]any) map[string]any {
	w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/add", defaultTestRequestHeaders, body, nil)
	assert.Equal(http.StatusOK, w.Code, "response was %s", w.Body.String())
	return decodeResponse(assert, w)["data"].(map[string]any)
}
