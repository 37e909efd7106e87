package index

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/db/searchdb"
	"github.com/meghashyamc/linkindex/services/enrich"
	"github.com/meghashyamc/linkindex/services/tokenize"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

type stubEnricher struct {
	metadata *enrich.Metadata
	err      error
	calls    int
}

func (s *stubEnricher) Enrich(context.Context, string) (*enrich.Metadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.metadata, nil
}

type failingTokenizer struct{}

func (failingTokenizer) Tokenize(context.Context, string) ([]string, error) {
	return nil, apperrors.New(apperrors.ErrTokenizationUnavailable, "backend down")
}

func newTestService(t *testing.T, enricher enrich.Enricher) (*Service, *searchdb.Index) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	tokenizer, err := tokenize.NewBleve(tokenize.AnalyzerLinkIndex)
	require.NoError(t, err)
	db := searchdb.New(logger)
	return New(logger, db, tokenizer, enricher, Options{}), db
}

func TestAddDocument(t *testing.T) {
	assert := require.New(t)
	enricher := &stubEnricher{}
	service, db := newTestService(t, enricher)

	result, err := service.Add(context.Background(), Request{
		URL:         "HTTPS://Example.com#top",
		Title:       strPtr("Example"),
		Description: strPtr("Example Domain text"),
		Tags:        []string{"Wiki", " news "},
	})
	assert.NoError(err)
	assert.True(result.Created)
	assert.Equal(0, enricher.calls, "complete documents are not enriched")

	doc := result.Document
	assert.Equal(uint64(0), doc.ID)
	assert.Equal("https://example.com/", doc.URL)
	assert.Equal("Example", *doc.Title)
	assert.Equal("Example Domain text", *doc.Description)
	assert.Nil(doc.Favicon)
	assert.Equal(searchdb.TagWiki|searchdb.TagNews, doc.Tags)
	assert.Equal(4, doc.Length)
	assert.Equal([]searchdb.Posting{{DocID: 0, TermFrequency: 2}}, db.Postings("example"))
}

func TestAddEnrichesMissingFields(t *testing.T) {
	assert := require.New(t)
	enricher := &stubEnricher{metadata: &enrich.Metadata{
		Title:       strPtr("Scraped title"),
		Description: strPtr(strings.Repeat("body ", 60)),
		Favicon:     strPtr("https://example.com/favicon.ico"),
	}}
	service, db := newTestService(t, enricher)

	result, err := service.Add(context.Background(), Request{URL: "https://example.com/page", Title: strPtr("Given title")})
	assert.NoError(err)
	assert.Equal(1, enricher.calls)

	doc := result.Document
	assert.Equal("Given title", *doc.Title)
	assert.Equal("https://example.com/favicon.ico", *doc.Favicon)
	assert.Len([]rune(*doc.Description), DefaultMaxDescriptionLength)
	assert.Equal([]searchdb.Posting{{DocID: 0, TermFrequency: 60}}, db.Postings("body"), "the full description is indexed")
}

func TestAddSurvivesEnrichmentFailure(t *testing.T) {
	assert := require.New(t)
	enricher := &stubEnricher{err: apperrors.New(apperrors.ErrEnrichmentUnavailable, "timeout")}
	service, _ := newTestService(t, enricher)

	result, err := service.Add(context.Background(), Request{URL: "https://example.com/", Title: strPtr("Only title")})
	assert.NoError(err)
	assert.Nil(result.Document.Description)
	assert.Nil(result.Document.Favicon)
	assert.Equal(2, result.Document.Length)

	result, err = service.Add(context.Background(), Request{URL: "https://empty.example/"})
	assert.NoError(err)
	assert.Nil(result.Document.Title)
	assert.Equal(0, result.Document.Length)
}

func TestAddWithEmptyEnrichmentAnswer(t *testing.T) {
	assert := require.New(t)
	enricher := &stubEnricher{}
	service, _ := newTestService(t, enricher)

	result, err := service.Add(context.Background(), Request{URL: "https://example.com/", Title: strPtr("Only title")})
	assert.NoError(err)
	assert.Equal(1, enricher.calls)
	assert.Equal("Only title", *result.Document.Title)
	assert.Nil(result.Document.Description)
	assert.Nil(result.Document.Favicon)
}

func TestAddDropsOversizedTerms(t *testing.T) {
	assert := require.New(t)
	service, db := newTestService(t, &stubEnricher{})

	result, err := service.Add(context.Background(), Request{
		URL:         "https://long.example/",
		Title:       strPtr("Long page"),
		Description: strPtr(strings.Repeat("a", 40000) + " tail"),
	})
	assert.NoError(err)
	assert.Equal(3, result.Document.Length)
	assert.Empty(db.Postings(strings.Repeat("a", 40000)))
	assert.Len(db.Postings("tail"), 1)
}

func TestAddReplacesExistingURL(t *testing.T) {
	assert := require.New(t)
	service, db := newTestService(t, nil)

	first, err := service.Add(context.Background(), Request{URL: "https://example.com/", Title: strPtr("old words"), Description: strPtr("x"), Tags: []string{"blog"}})
	assert.NoError(err)
	second, err := service.Add(context.Background(), Request{URL: "https://EXAMPLE.com/", Title: strPtr("new words"), Description: strPtr("y"), Tags: []string{"forum"}})
	assert.NoError(err)

	assert.False(second.Created)
	assert.Equal(first.Document.ID, second.Document.ID)
	assert.Equal(searchdb.TagForum, second.Document.Tags)
	assert.Empty(db.Postings("old"))
	assert.Len(db.Postings("new"), 1)
	assert.Equal(1, db.Stats().Documents)
}

func TestAddValidation(t *testing.T) {
	testCases := []struct {
		name          string
		request       Request
		expectedError error
	}{
		{name: "MissingURL", request: Request{Title: strPtr("t")}, expectedError: apperrors.ErrInvalidDocument},
		{name: "RelativeURL", request: Request{URL: "/just/a/path", Title: strPtr("t")}, expectedError: apperrors.ErrInvalidDocument},
		{name: "UnsupportedScheme", request: Request{URL: "ftp://example.com/", Title: strPtr("t")}, expectedError: apperrors.ErrInvalidDocument},
		{name: "Malformed", request: Request{URL: "http://%zz", Title: strPtr("t")}, expectedError: apperrors.ErrInvalidDocument},
		{name: "UnknownTag", request: Request{URL: "https://example.com/", Title: strPtr("t"), Tags: []string{"video"}}, expectedError: apperrors.ErrInvalidTag},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			service, db := newTestService(t, nil)
			_, err := service.Add(context.Background(), testCase.request)
			assert.True(errors.Is(err, testCase.expectedError), "expected %v, got %v", testCase.expectedError, err)
			assert.Equal(0, db.Stats().Documents)
		})
	}
}

func TestAddAbortsOnTokenizerFailure(t *testing.T) {
	assert := require.New(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	db := searchdb.New(logger)
	service := New(logger, db, failingTokenizer{}, nil, Options{})

	_, err := service.Add(context.Background(), Request{URL: "https://example.com/", Title: strPtr("t"), Description: strPtr("d")})
	assert.True(errors.Is(err, apperrors.ErrTokenizationUnavailable))
	assert.Equal(0, db.Stats().Documents)
	assert.Equal(uint64(0), db.Version())
}

func TestCanonicalURL(t *testing.T) {
	assert := require.New(t)
	canonical, err := CanonicalURL(" http://Example.COM/Path?q=1#frag ")
	assert.NoError(err)
	assert.Equal("http://example.com/Path?q=1", canonical)
}

func TestTruncateCountsRunes(t *testing.T) {
	assert := require.New(t)
	assert.Equal("日本", *truncate(strPtr("日本語"), 2))
	assert.Equal("short", *truncate(strPtr("short"), 10))
	assert.Nil(truncate(nil, 10))
}
