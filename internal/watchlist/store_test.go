package watchlist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreInsertAndGet(t *testing.T) {
	store := tempStore(t)

	entry := &Entry{
		ID:        uuid.New().String(),
		Name:      "Alice",
		Embedding: []float32{0.1, -0.2, 0.3},
		Type:      Whitelist,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Insert(entry))

	got, err := store.Get(entry.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Name, got.Name)
	assert.Equal(t, Whitelist, got.Type)
	assert.Equal(t, entry.Embedding, got.Embedding)
}

func TestStoreGetMissing(t *testing.T) {
	store := tempStore(t)

	got, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreInsertRejectsBadType(t *testing.T) {
	store := tempStore(t)

	err := store.Insert(&Entry{ID: "x", Name: "Bob", Type: FaceType("greylist")})
	assert.Error(t, err)
}

func TestStoreDelete(t *testing.T) {
	store := tempStore(t)

	entry := &Entry{ID: "e1", Name: "Carol", Embedding: []float32{1}, Type: Blacklist}
	require.NoError(t, store.Insert(entry))
	require.NoError(t, store.Delete("e1"))

	got, err := store.Get("e1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete("e1"))
}

func TestStoreSnapshotAll(t *testing.T) {
	store := tempStore(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, store.Insert(&Entry{
			ID:        name,
			Name:      name,
			Embedding: []float32{float32(i)},
			Type:      Blacklist,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.SnapshotAll()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Name)
	assert.Equal(t, "third", entries[2].Name)
	assert.Equal(t, []float32{2}, entries[2].Embedding)
}
