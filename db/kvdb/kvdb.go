package kvdb

// Buckets holding the persisted index snapshot.
const (
	DocumentsBucket = "documents"
	PostingsBucket  = "postings"
	MetaBucket      = "meta"
)

var snapshotBuckets = []string{DocumentsBucket, PostingsBucket, MetaBucket}

type DB interface {
	Get(bucket string, key string) ([]byte, error)
	GetAll(bucket string) (map[string][]byte, error)
	ReplaceBuckets(contents map[string]map[string][]byte) error
	Close() error
}
