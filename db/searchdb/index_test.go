package searchdb

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/logger"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func strPtr(s string) *string {
	return &s
}

func TestUpsertAssignsIDsAndStatistics(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	first, isNew, err := idx.Upsert(Document{URL: "https://a.example/", Title: strPtr("A")}, map[string]int{"go": 2, "search": 1})
	assert.NoError(err)
	assert.True(isNew)
	assert.Equal(uint64(0), first.ID)
	assert.Equal(3, first.Length)

	second, isNew, err := idx.Upsert(Document{URL: "https://b.example/"}, map[string]int{"go": 1})
	assert.NoError(err)
	assert.True(isNew)
	assert.Equal(uint64(1), second.ID)

	stats := idx.Stats()
	assert.Equal(2, stats.Documents)
	assert.Equal(2, stats.Terms)
	assert.Equal(4, stats.TotalTokens)
	assert.InDelta(2.0, stats.AvgDocLength, 1e-9)

	assert.Equal([]Posting{{DocID: 0, TermFrequency: 2}, {DocID: 1, TermFrequency: 1}}, idx.Postings("go"))
	assert.Empty(idx.Postings("unseen"))
}

func TestUpsertSameURLIsIdempotentOnStatistics(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())
	counts := map[string]int{"example": 2, "domain": 1}

	original, _, err := idx.Upsert(Document{URL: "https://example.com/"}, counts)
	assert.NoError(err)
	_, _, err = idx.Upsert(Document{URL: "https://other.example/"}, map[string]int{"example": 1})
	assert.NoError(err)
	before := idx.Stats()

	again, isNew, err := idx.Upsert(Document{URL: "https://example.com/"}, counts)
	assert.NoError(err)
	assert.False(isNew)
	assert.Equal(original.ID, again.ID)
	assert.Equal(before, idx.Stats())

	err = idx.Read(func(r Reader) error {
		assert.Equal(2, r.DocFreq("example"))
		assert.Equal(1, r.DocFreq("domain"))
		return nil
	})
	assert.NoError(err)
}

func TestUpsertReplacesPriorContent(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	_, _, err := idx.Upsert(Document{URL: "https://example.com/", Tags: TagWiki, Description: strPtr("old")}, map[string]int{"old": 3})
	assert.NoError(err)
	updated, _, err := idx.Upsert(Document{URL: "https://example.com/", Tags: TagNews}, map[string]int{"new": 1})
	assert.NoError(err)

	assert.Equal(TagNews, updated.Tags)
	assert.Nil(updated.Description)
	assert.Empty(idx.Postings("old"))
	assert.Len(idx.Postings("new"), 1)

	stats := idx.Stats()
	assert.Equal(1, stats.Documents)
	assert.Equal(1, stats.TotalTokens)
	assert.Equal(1, stats.Terms)
}

func TestUpsertValidation(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	_, _, err := idx.Upsert(Document{}, map[string]int{"a": 1})
	assert.True(errors.Is(err, apperrors.ErrInvalidDocument))

	_, _, err = idx.Upsert(Document{URL: "https://example.com/"}, map[string]int{"a": -1})
	assert.True(errors.Is(err, apperrors.ErrInvalidDocument))
	assert.Equal(0, idx.Stats().Documents)
}

func TestUpsertDropsZeroFrequencies(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	doc, _, err := idx.Upsert(Document{URL: "https://example.com/"}, map[string]int{"kept": 1, "dropped": 0})
	assert.NoError(err)
	assert.Equal(1, doc.Length)
	assert.Empty(idx.Postings("dropped"))
}

func TestZeroLengthDocument(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	doc, _, err := idx.Upsert(Document{URL: "https://empty.example/"}, nil)
	assert.NoError(err)
	assert.Equal(0, doc.Length)

	stats := idx.Stats()
	assert.Equal(1, stats.Documents)
	assert.Equal(0.0, stats.AvgDocLength)
}

func TestEmptyIndexStatistics(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	err := idx.Read(func(r Reader) error {
		assert.Equal(0, r.DocCount())
		assert.Equal(0.0, r.AvgDocLength())
		assert.Equal(0, r.DocFreq("anything"))
		_, ok := r.Document(0)
		assert.False(ok)
		return nil
	})
	assert.NoError(err)
}

func TestDocumentFrequencyIsMonotonic(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	previous := 0
	for i := range 10 {
		_, _, err := idx.Upsert(Document{URL: fmt.Sprintf("https://example.com/%d", i)}, map[string]int{"shared": i + 1})
		assert.NoError(err)
		current := len(idx.Postings("shared"))
		assert.GreaterOrEqual(current, previous)
		previous = current
	}
	assert.Equal(10, previous)
}

func TestConcurrentReadersSeeCompleteUpserts(t *testing.T) {
	assert := require.New(t)
	idx := New(newTestLogger())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := idx.Upsert(Document{URL: fmt.Sprintf("https://example.com/%d", i%5)}, map[string]int{"alpha": 1, "beta": 2})
			assert.NoError(err)
		}()
	}
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = idx.Read(func(r Reader) error {
				if r.DocCount() == 0 {
					return nil
				}
				// every visible document carries both of its terms
				assert.Equal(r.DocFreq("alpha"), r.DocFreq("beta"))
				assert.Equal(r.DocCount(), r.DocFreq("alpha"))
				return nil
			})
		}()
	}
	wg.Wait()

	stats := idx.Stats()
	assert.Equal(5, stats.Documents)
	assert.Equal(15, stats.TotalTokens)
}
