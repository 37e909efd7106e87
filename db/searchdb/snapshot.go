package searchdb

import (
	"cmp"
	"slices"

	"github.com/meghashyamc/linkindex/apperrors"
)

// Snapshot copies the whole index. It takes exclusive access so that the copy
// is consistent with a single point between writes.
func (idx *Index) Snapshot() *Snapshot {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	snapshot := &Snapshot{
		FormatVersion: SnapshotFormatVersion,
		NextID:        idx.nextID,
		TotalTokens:   idx.totalTokens,
		Documents:     make([]Document, 0, len(idx.documents)),
		Postings:      make(map[string][]Posting, len(idx.postings)),
	}
	for _, doc := range idx.documents {
		snapshot.Documents = append(snapshot.Documents, *doc)
	}
	slices.SortFunc(snapshot.Documents, func(a, b Document) int {
		return cmp.Compare(a.ID, b.ID)
	})

	r := reader{idx: idx}
	for term := range idx.postings {
		snapshot.Postings[term] = r.Postings(term)
	}

	return snapshot
}

// Restore replaces the index content with snapshot after checking that the
// snapshot satisfies every index invariant. On error the index is left untouched.
func (idx *Index) Restore(snapshot *Snapshot) error {
	if snapshot == nil {
		return apperrors.New(apperrors.ErrPersistenceCorrupt, "snapshot is nil")
	}
	if snapshot.FormatVersion != SnapshotFormatVersion {
		return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "unsupported snapshot format version %d", snapshot.FormatVersion)
	}

	documents := make(map[uint64]*Document, len(snapshot.Documents))
	urls := make(map[string]uint64, len(snapshot.Documents))
	for i := range snapshot.Documents {
		doc := snapshot.Documents[i]
		if doc.URL == "" {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "document %d has no url", doc.ID)
		}
		if doc.ID >= snapshot.NextID {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "document id %d is not below next id %d", doc.ID, snapshot.NextID)
		}
		if _, ok := documents[doc.ID]; ok {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "duplicate document id %d", doc.ID)
		}
		if _, ok := urls[doc.URL]; ok {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "duplicate document url %s", doc.URL)
		}
		documents[doc.ID] = &doc
		urls[doc.URL] = doc.ID
	}

	postings := make(map[string]map[uint64]int, len(snapshot.Postings))
	forward := make(map[uint64]map[string]int, len(documents))
	lengths := make(map[uint64]int, len(documents))
	for term, termPostings := range snapshot.Postings {
		if term == "" || len(termPostings) == 0 {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "empty posting list for term '%s'", term)
		}
		byDoc := make(map[uint64]int, len(termPostings))
		for _, posting := range termPostings {
			if _, ok := documents[posting.DocID]; !ok {
				return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "term '%s' references unknown document %d", term, posting.DocID)
			}
			if posting.TermFrequency < 1 {
				return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "term '%s' has frequency %d in document %d", term, posting.TermFrequency, posting.DocID)
			}
			if _, ok := byDoc[posting.DocID]; ok {
				return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "term '%s' lists document %d twice", term, posting.DocID)
			}
			byDoc[posting.DocID] = posting.TermFrequency
			if forward[posting.DocID] == nil {
				forward[posting.DocID] = make(map[string]int)
			}
			forward[posting.DocID][term] = posting.TermFrequency
			lengths[posting.DocID] += posting.TermFrequency
		}
		postings[term] = byDoc
	}

	totalTokens := 0
	for id, doc := range documents {
		if lengths[id] != doc.Length {
			return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "document %d has length %d but postings sum to %d", id, doc.Length, lengths[id])
		}
		if forward[id] == nil {
			forward[id] = make(map[string]int)
		}
		totalTokens += doc.Length
	}
	if totalTokens != snapshot.TotalTokens {
		return apperrors.Newf(apperrors.ErrPersistenceCorrupt, "total tokens %d does not match document lengths %d", snapshot.TotalTokens, totalTokens)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.documents = documents
	idx.urls = urls
	idx.postings = postings
	idx.forward = forward
	idx.totalTokens = totalTokens
	idx.nextID = snapshot.NextID
	idx.version++

	return nil
}
