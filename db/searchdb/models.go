package searchdb

import "time"

type Document struct {
	ID          uint64    `json:"id"`
	URL         string    `json:"url"`
	Title       *string   `json:"title"`
	Favicon     *string   `json:"favicon"`
	Description *string   `json:"description"`
	Tags        Tags      `json:"tags"`
	Length      int       `json:"length"`
	AddedAt     time.Time `json:"added_at"`
}

// Posting is the term frequency of one term inside one document. TermFrequency is always >= 1.
type Posting struct {
	DocID         uint64 `json:"doc_id"`
	TermFrequency int    `json:"tf"`
}

type Stats struct {
	Documents    int     `json:"documents"`
	Terms        int     `json:"terms"`
	TotalTokens  int     `json:"total_tokens"`
	AvgDocLength float64 `json:"avg_doc_length"`
}

const SnapshotFormatVersion = 1

// Snapshot is the full state of an Index: the document store plus the inverted index.
type Snapshot struct {
	FormatVersion int                  `json:"format_version"`
	NextID        uint64               `json:"next_id"`
	TotalTokens   int                  `json:"total_tokens"`
	Documents     []Document           `json:"documents"`
	Postings      map[string][]Posting `json:"postings"`
}
