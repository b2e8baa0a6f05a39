package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/noteku/internal/apperr"
	"github.com/starford/noteku/internal/checksum"
	"github.com/starford/noteku/internal/kv"
	"github.com/starford/noteku/internal/models"
)

// memStore is an in-memory kv.Store whose failures can be switched on.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setHits int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, kv.ErrNotExist
	}
	return append([]byte(nil), v...), nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setHits++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testRepo(t *testing.T, store kv.Store) *Blob {
	t.Helper()
	clock := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	return NewBlob(store,
		WithLogger(quietLogger()),
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	)
}

func TestSave_NewNoteOnEmptyCollection(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	saved, err := repo.Save(ctx, models.Note{Title: "A", Content: "x", Category: models.CategoryWork})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "1/1/2025, 9:31 AM", saved.Date)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, saved, notes[0])
}

func TestSave_ReplacesInPlace(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	first, err := repo.Save(ctx, models.Note{Title: "first", Content: "1", Category: models.CategoryWork})
	require.NoError(t, err)
	_, err = repo.Save(ctx, models.Note{Title: "second", Content: "2", Category: models.CategoryIdeas})
	require.NoError(t, err)

	first.Title = "first, edited"
	updated, err := repo.Save(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	// Replacement keeps the stored position: "second" is still the newest.
	assert.Equal(t, "second", notes[0].Title)
	assert.Equal(t, "first, edited", notes[1].Title)
	assert.Equal(t, first.ID, notes[1].ID)
}

func TestSave_UnknownIDAppends(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	saved, err := repo.Save(ctx, models.Note{ID: "ghost", Title: "boo", Category: models.CategoryIdeas})
	require.NoError(t, err)
	assert.Equal(t, "ghost", saved.ID)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "ghost", notes[0].ID)
}

func TestSave_TitlePlaceholder(t *testing.T) {
	repo := testRepo(t, newMemStore())
	saved, err := repo.Save(context.Background(), models.Note{Content: "body", Category: models.CategoryWork})
	require.NoError(t, err)
	assert.Equal(t, models.UntitledPlaceholder, saved.Title)
}

func TestList_NewestFirst(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		_, err := repo.Save(ctx, models.Note{Title: title, Category: models.CategoryWork})
		require.NoError(t, err)
	}
	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, titles(notes))
}

func TestIDs_UniqueAndNeverReused(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n, err := repo.Save(ctx, models.Note{Title: fmt.Sprint(i), Category: models.CategoryWork})
		require.NoError(t, err)
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
		require.NoError(t, repo.Delete(ctx, n.ID))
	}
}

func TestMintID_RetriesOnCollision(t *testing.T) {
	store := newMemStore()
	ids := []string{"dup", "dup", "fresh"}
	repo := NewBlob(store, WithLogger(quietLogger()), WithIDSource(func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}))
	ctx := context.Background()

	first, err := repo.Save(ctx, models.Note{Title: "one"})
	require.NoError(t, err)
	assert.Equal(t, "dup", first.ID)
	second, err := repo.Save(ctx, models.Note{Title: "two"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", second.ID)
}

func TestDelete_Idempotent(t *testing.T) {
	store := newMemStore()
	repo := testRepo(t, store)
	ctx := context.Background()

	keep, _ := repo.Save(ctx, models.Note{Title: "keep", Category: models.CategoryWork})
	gone, _ := repo.Save(ctx, models.Note{Title: "gone", Category: models.CategoryWork})

	require.NoError(t, repo.Delete(ctx, gone.ID))
	once, err := repo.List(ctx)
	require.NoError(t, err)

	writes := store.setHits
	require.NoError(t, repo.Delete(ctx, gone.ID))
	twice, err := repo.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{keep.ID}, ids(twice))
	assert.Equal(t, writes, store.setHits, "deleting a missing id must not write")
}

func TestDelete_UnknownIDNoError(t *testing.T) {
	repo := testRepo(t, newMemStore())
	assert.NoError(t, repo.Delete(context.Background(), "nope"))
}

func TestGet(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()
	saved, _ := repo.Save(ctx, models.Note{Title: "find me", Category: models.CategoryIdeas})

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestList_StorageUnavailable(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("disk on fire")
	repo := testRepo(t, store)

	notes, err := repo.List(context.Background())
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestList_CorruptData(t *testing.T) {
	cases := []string{
		`{"id":"1"}`,
		`not json`,
		`[{"id":1}]`,
		`[{"id":"1","title":["x"]}]`,
		`[1,2,3]`,
	}
	for _, raw := range cases {
		store := newMemStore()
		store.data[DefaultKey] = []byte(raw)
		repo := testRepo(t, store)

		notes, err := repo.List(context.Background())
		assert.ErrorIs(t, err, apperr.ErrCorruptData, "payload %s", raw)
		assert.NotNil(t, notes)
		assert.Empty(t, notes)
	}
}

func TestList_DefensiveParsing(t *testing.T) {
	store := newMemStore()
	store.data[DefaultKey] = []byte(`[{"id":"1","title":"Groceries","content":"<li>milk</li>","category":"To-Do","date":"1/1","pinned":true},{"id":"2"}]`)
	repo := testRepo(t, store)

	notes, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "2", notes[0].ID)
	assert.Equal(t, "", notes[0].Title)
	assert.Equal(t, models.Note{ID: "1", Title: "Groceries", Content: "<li>milk</li>", Category: models.CategoryTodo, Date: "1/1"}, notes[1])
}

func TestList_EmptyAndNullPayloads(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "[]"} {
		store := newMemStore()
		store.data[DefaultKey] = []byte(raw)
		notes, err := testRepo(t, store).List(context.Background())
		assert.NoError(t, err, "payload %q", raw)
		assert.Empty(t, notes)
	}
}

func TestSave_CorruptDataNotOverwritten(t *testing.T) {
	store := newMemStore()
	store.data[DefaultKey] = []byte(`garbage`)
	repo := testRepo(t, store)

	_, err := repo.Save(context.Background(), models.Note{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrCorruptData)
	assert.Equal(t, "garbage", string(store.data[DefaultKey]))
}

func TestSave_WriteFailure(t *testing.T) {
	store := newMemStore()
	store.setErr = errors.New("read-only")
	repo := testRepo(t, store)

	_, err := repo.Save(context.Background(), models.Note{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}

func TestSaveIfMatch(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	n, err := repo.Save(ctx, models.Note{Title: "v1", Content: "a", Category: models.CategoryWork})
	require.NoError(t, err)
	rev := checksum.Note(n)

	n.Title = "v2"
	_, err = repo.SaveIfMatch(ctx, n, rev)
	require.NoError(t, err)

	// The revision is stale now.
	n.Title = "v3"
	_, err = repo.SaveIfMatch(ctx, n, rev)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = repo.SaveIfMatch(ctx, models.Note{ID: "missing"}, rev)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, _ := repo.Get(ctx, n.ID)
	assert.Equal(t, "v2", got.Title)
}

func TestSaveIfMatch_EmptyRevisionStillNeedsTheNote(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	n, err := repo.Save(ctx, models.Note{Title: "v1", Category: models.CategoryWork})
	require.NoError(t, err)

	n.Title = "v2"
	updated, err := repo.SaveIfMatch(ctx, n, "")
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Title)

	require.NoError(t, repo.Delete(ctx, n.ID))
	n.Title = "v3"
	_, err = repo.SaveIfMatch(ctx, n, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = repo.SaveIfMatch(ctx, models.Note{Title: "no id"}, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestSave_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	repo := testRepo(t, newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Save(ctx, models.Note{Title: fmt.Sprint(i), Category: models.CategoryWork})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 20)
}

func TestBlob_OverFileStore(t *testing.T) {
	store, err := kv.NewFile(t.TempDir())
	require.NoError(t, err)
	repo := testRepo(t, store)
	ctx := context.Background()

	saved, err := repo.Save(ctx, models.Note{Title: "Groceries", Content: "<li>milk</li>", Category: models.CategoryTodo})
	require.NoError(t, err)

	again := NewBlob(store, WithLogger(quietLogger()))
	notes, err := again.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, saved.ID, notes[0].ID)
	assert.Equal(t, "Groceries", notes[0].Title)
	assert.Equal(t, "<li>milk</li>", notes[0].Content)
	assert.Equal(t, models.CategoryTodo, notes[0].Category)
}

func TestWithKey(t *testing.T) {
	store := newMemStore()
	repo := NewBlob(store, WithKey("OTHER"), WithLogger(quietLogger()))
	_, err := repo.Save(context.Background(), models.Note{Title: "x"})
	require.NoError(t, err)
	_, ok := store.data["OTHER"]
	assert.True(t, ok)
	_, ok = store.data[DefaultKey]
	assert.False(t, ok)
}

func titles(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return out
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}
