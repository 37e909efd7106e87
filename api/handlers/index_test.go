package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/meghashyamc/linkindex/services/enrich"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

var addHandlerTestCases = []testCase{
	{
		name:           "NoRequestBody",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    nil,
		expectedStatus: http.StatusUnprocessableEntity,
	},
	{
		name:           "MissingURL",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"title": "No url"},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "MalformedURL",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"url": "not a url"},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "UnknownTag",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"url": "https://example.com/", "tags": []string{"wiki", "video"}},
		expectedStatus: http.StatusBadRequest,
	},
	{
		name:           "Success",
		requestHeaders: defaultTestRequestHeaders,
		requestBody: map[string]any{
			"url":         "https://example.com/",
			"title":       "Example",
			"description": "Example Domain text",
			"tags":        []string{"WIKI"},
		},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"success": true,
			"errors":  nil,
			"data": map[string]any{
				"id":          float64(0),
				"url":         "https://example.com/",
				"title":       "Example",
				"favicon":     nil,
				"tags":        []any{"wiki"},
				"description": "Example Domain text",
				"length":      float64(4),
				"created":     true,
			},
		},
	},
	{
		name:           "SuccessDuplicate",
		requestHeaders: defaultTestRequestHeaders,
		requestBody: map[string]any{
			"url":         "https://EXAMPLE.com/#section",
			"title":       "Example",
			"description": "Example Domain text",
		},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"success": true,
			"errors":  nil,
			"data": map[string]any{
				"id":          float64(0),
				"url":         "https://example.com/",
				"title":       "Example",
				"favicon":     nil,
				"tags":        []any{},
				"description": "Example Domain text",
				"length":      float64(4),
				"created":     false,
			},
		},
	},
}

func TestHandleAdd(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert, enrich.Noop{})

	for _, testCase := range addHandlerTestCases {

		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			w := makeTestHTTPRequest(server.router, assert, http.MethodPost, "/add", testCase.requestHeaders, testCase.requestBody, testCase.queryParams)
			responseBytes := w.Body.Bytes()
			assert.Equal(testCase.expectedStatus, w.Code, fmt.Sprintf("response gotten was %s", string(responseBytes)))

			responseMap := decodeResponse(assert, w)
			if testCase.expectedResponse != nil {
				assert.Equal(testCase.expectedResponse, responseMap)
			}
			if testCase.expectedStatus != http.StatusOK {
				assert.Equal(false, responseMap["success"])
				assert.NotEmpty(responseMap["errors"])
			}
		})
	}

	assert.Equal(1, server.db.Stats().Documents, "re-adding a url must not duplicate it")
	assert.Equal(1.0, testutil.ToFloat64(server.metrics.DocumentsAddedTotal.WithLabelValues("created")))
	assert.Equal(1.0, testutil.ToFloat64(server.metrics.DocumentsAddedTotal.WithLabelValues("updated")))
	assert.Equal(4.0, testutil.ToFloat64(server.metrics.DocumentsAddedTotal.WithLabelValues("failed")))
	assert.Equal(1.0, testutil.ToFloat64(server.metrics.IndexedDocuments))
}

func TestHandleAddBackfillsFromEnrichment(t *testing.T) {
	assert := require.New(t)
	server := setupTestServer(t, assert, stubEnricher{metadata: enrich.Metadata{
		Title:       strPtr("Scraped Title"),
		Description: strPtr("Scraped body text"),
		Favicon:     strPtr("https://example.com/favicon.ico"),
	}})

	data := addTestDocument(server, assert, map[string]any{"url": "https://example.com/"})
	assert.Equal("Scraped Title", data["title"])
	assert.Equal("Scraped body text", data["description"])
	assert.Equal("https://example.com/favicon.ico", data["favicon"])

	data = addTestDocument(server, assert, map[string]any{"url": "https://other.example/", "title": "Mine", "description": "Own text", "favicon": "https://other.example/icon.png"})
	assert.Equal("Mine", data["title"])
	assert.Equal("https://other.example/icon.png", data["favicon"])
}
