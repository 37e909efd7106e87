package searchdb

// Reader is a consistent view over the index, valid only inside Index.Read.
// Returned maps and slices must not be modified or retained.
type Reader interface {
	DocCount() int
	AvgDocLength() float64
	DocFreq(term string) int
	Postings(term string) []Posting
	Document(id uint64) (Document, bool)
	TermFreqs(id uint64) map[string]int
}

type DB interface {
	Upsert(doc Document, termCounts map[string]int) (Document, bool, error)
	Read(fn func(r Reader) error) error
	Stats() Stats
	Snapshot() *Snapshot
	Restore(snapshot *Snapshot) error
	Version() uint64
}
