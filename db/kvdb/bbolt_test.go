package kvdb

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, assert *require.Assertions) (*BoltDB, string) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.db")
	db, err := Open(slog.New(slog.NewJSONHandler(io.Discard, nil)), path)
	assert.NoError(err, "could not open kv database")
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestGet(t *testing.T) {
	assert := require.New(t)
	db, _ := openTestDB(t, assert)

	assert.NoError(db.ReplaceBuckets(map[string]map[string][]byte{MetaBucket: {"state": []byte(`{"a":1}`)}}))
	value, err := db.Get(MetaBucket, "state")
	assert.NoError(err)
	assert.Equal(`{"a":1}`, string(value))

	_, err = db.Get(MetaBucket, "missing")
	assert.True(errors.Is(err, ErrNotFound))

	_, err = db.Get("no-such-bucket", "state")
	assert.True(errors.Is(err, ErrNotFound))

	_, err = db.Get(MetaBucket, "")
	assert.True(errors.Is(err, ErrInvalidKey))
}

func TestReplaceBuckets(t *testing.T) {
	assert := require.New(t)
	db, _ := openTestDB(t, assert)

	assert.NoError(db.ReplaceBuckets(map[string]map[string][]byte{
		DocumentsBucket: {"1": []byte("one"), "2": []byte("two")},
		PostingsBucket:  {"go": []byte("[]")},
	}))
	assert.NoError(db.ReplaceBuckets(map[string]map[string][]byte{
		DocumentsBucket: {"3": []byte("three")},
	}))

	documents, err := db.GetAll(DocumentsBucket)
	assert.NoError(err)
	assert.Equal(map[string][]byte{"3": []byte("three")}, documents)

	postings, err := db.GetAll(PostingsBucket)
	assert.NoError(err)
	assert.Len(postings, 1, "buckets not named in the replacement are left alone")

	err = db.ReplaceBuckets(map[string]map[string][]byte{
		DocumentsBucket: {"": []byte("bad")},
	})
	assert.True(errors.Is(err, ErrInvalidKey))
	documents, err = db.GetAll(DocumentsBucket)
	assert.NoError(err)
	assert.Contains(documents, "3", "a failed replacement rolls back")
}

func TestReopenKeepsData(t *testing.T) {
	assert := require.New(t)
	db, path := openTestDB(t, assert)
	assert.NoError(db.ReplaceBuckets(map[string]map[string][]byte{MetaBucket: {"state": []byte("kept")}}))
	assert.NoError(db.Close())

	reopened, err := Open(slog.New(slog.NewJSONHandler(io.Discard, nil)), path)
	assert.NoError(err)
	defer reopened.Close()

	value, err := reopened.Get(MetaBucket, "state")
	assert.NoError(err)
	assert.Equal("kept", string(value))
}
