package searchdb

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/meghashyamc/linkindex/apperrors"
	"github.com/meghashyamc/linkindex/logger"
)

// Index owns the document store and the inverted index behind one RWMutex.
// Readers never observe a partially applied Upsert.
type Index struct {
	mu          sync.RWMutex
	logger      logger.Logger
	documents   map[uint64]*Document
	urls        map[string]uint64
	postings    map[string]map[uint64]int
	forward     map[uint64]map[string]int
	totalTokens int
	nextID      uint64
	version     uint64
}

var _ DB = (*Index)(nil)

func New(logger logger.Logger) *Index {
	return &Index{
		logger:    logger,
		documents: make(map[uint64]*Document),
		urls:      make(map[string]uint64),
		postings:  make(map[string]map[uint64]int),
		forward:   make(map[uint64]map[string]int),
	}
}

// Upsert stores doc under its URL and replaces its postings with termCounts.
// A known URL keeps its id and has its previous contribution removed first.
// The stored document length is the sum of termCounts.
func (idx *Index) Upsert(doc Document, termCounts map[string]int) (Document, bool, error) {
	if doc.URL == "" {
		return Document{}, false, apperrors.New(apperrors.ErrInvalidDocument, "document url cannot be empty")
	}

	counts := make(map[string]int, len(termCounts))
	length := 0
	for term, frequency := range termCounts {
		if frequency < 0 {
			return Document{}, false, apperrors.Newf(apperrors.ErrInvalidDocument, "negative frequency %d for term '%s'", frequency, term)
		}
		if frequency == 0 || term == "" {
			continue
		}
		counts[term] = frequency
		length += frequency
	}
	doc.Length = length
	if doc.AddedAt.IsZero() {
		doc.AddedAt = time.Now().UTC()
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	id, exists := idx.urls[doc.URL]
	if exists {
		idx.removeLocked(id)
	} else {
		id = idx.nextID
		idx.nextID++
	}
	doc.ID = id

	stored := doc
	idx.documents[id] = &stored
	idx.urls[doc.URL] = id
	idx.forward[id] = counts
	for term, frequency := range counts {
		termPostings, ok := idx.postings[term]
		if !ok {
			termPostings = make(map[uint64]int)
			idx.postings[term] = termPostings
		}
		termPostings[id] = frequency
	}
	idx.totalTokens += length
	idx.version++

	idx.logger.Debug("upserted document", "id", id, "url", doc.URL, "new", !exists, "length", length, "terms", len(counts))

	return stored, !exists, nil
}

// removeLocked drops the postings and token contribution of id. The document
// record itself is overwritten by the caller.
func (idx *Index) removeLocked(id uint64) {
	for term := range idx.forward[id] {
		termPostings := idx.postings[term]
		delete(termPostings, id)
		if len(termPostings) == 0 {
			delete(idx.postings, term)
		}
	}
	delete(idx.forward, id)
	if doc, ok := idx.documents[id]; ok {
		idx.totalTokens -= doc.Length
	}
}

// Read runs fn while holding shared access to the index.
func (idx *Index) Read(fn func(r Reader) error) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return fn(reader{idx: idx})
}

func (idx *Index) Postings(term string) []Posting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return reader{idx: idx}.Postings(term)
}

func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	r := reader{idx: idx}
	return Stats{
		Documents:    r.DocCount(),
		Terms:        len(idx.postings),
		TotalTokens:  idx.totalTokens,
		AvgDocLength: r.AvgDocLength(),
	}
}

// Version increases on every mutation.
func (idx *Index) Version() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.version
}

type reader struct {
	idx *Index
}

func (r reader) DocCount() int {
	return len(r.idx.documents)
}

func (r reader) AvgDocLength() float64 {
	if len(r.idx.documents) == 0 {
		return 0
	}
	return float64(r.idx.totalTokens) / float64(len(r.idx.documents))
}

func (r reader) DocFreq(term string) int {
	return len(r.idx.postings[term])
}

// Postings returns the postings of term ordered by document id.
func (r reader) Postings(term string) []Posting {
	termPostings := r.idx.postings[term]
	result := make([]Posting, 0, len(termPostings))
	for id, frequency := range termPostings {
		result = append(result, Posting{DocID: id, TermFrequency: frequency})
	}
	slices.SortFunc(result, func(a, b Posting) int {
		return cmp.Compare(a.DocID, b.DocID)
	})
	return result
}

func (r reader) Document(id uint64) (Document, bool) {
	doc, ok := r.idx.documents[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

func (r reader) TermFreqs(id uint64) map[string]int {
	return r.idx.forward[id]
}
