package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/udecfit/backend/internal/docstore"
	"github.com/udecfit/backend/internal/model"
	"github.com/udecfit/backend/internal/objectstore"
)

func newTestService(docs docstore.Store, objects objectstore.Store) *Service {
	return NewService(docs, objects, zap.NewNop())
}

func seedStore(t *testing.T, docs docstore.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, docs.PutDocument(ctx, "maquinas", model.Document{
		ID:   "m1",
		Data: map[string]any{"nombre": "Press banca", "categoria": "pecho"},
	}))
	require.NoError(t, docs.PutDocument(ctx, "maquinas", model.Document{
		ID:   "m2",
		Data: map[string]any{"nombre": "Remo", "categoria": "espalda"},
	}))
	require.NoError(t, docs.PutDocument(ctx, "users", model.Document{
		ID:   "u1",
		Data: map[string]any{"email": "ana@example.com", "role": "admin"},
	}))
}

func TestCreateBackup_ConcreteScenario(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemoryStore()
	objects := objectstore.NewMemoryStore()
	seedStore(t, docs)

	svc := newTestService(docs, objects)
	svc.now = func() time.Time {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	folder, err := svc.CreateBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "backups/2025-01-01T00-00-00-000Z", folder)

	maquinas, err := objects.Get(ctx, folder+"/maquinas.json")
	require.NoError(t, err)
	var maquinasDocs []model.Document
	require.NoError(t, json.Unmarshal(maquinas, &maquinasDocs))
	assert.Len(t, maquinasDocs, 2)

	users, err := objects.Get(ctx, folder+"/users.json")
	require.NoError(t, err)
	var userDocs []model.Document
	require.NoError(t, json.Unmarshal(users, &userDocs))
	assert.Len(t, userDocs, 1)
}

func TestBackupRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	source := docstore.NewMemoryStore()
	objects := objectstore.NewMemoryStore()
	seedStore(t, source)

	folder, err := newTestService(source, objects).CreateBackup(ctx)
	require.NoError(t, err)

	// Restore into an empty database and compare every document.
	target := docstore.NewMemoryStore()
	err = newTestService(target, objects).Restore(ctx, folder[len("backups/"):])
	require.NoError(t, err)

	for _, collection := range []string{"maquinas", "users"} {
		want, err := source.ExportCollection(ctx, collection)
		require.NoError(t, err)
		got, err := target.ExportCollection(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, want, got, "collection %s should round-trip unchanged", collection)
	}
}

func TestRestore_MissingFolderParameter(t *testing.T) {
	svc := newTestService(docstore.NewMemoryStore(), objectstore.NewMemoryStore())

	err := svc.Restore(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingFolder)
}

// importCounter wraps a Store to count batch writes during restore.
type importCounter struct {
	docstore.Store
	imports int
}

func (c *importCounter) ImportCollection(ctx context.Context, collection string, docs []model.Document) error {
	c.imports++
	return c.Store.ImportCollection(ctx, collection, docs)
}

func TestRestore_UnknownFolder_NoWrites(t *testing.T) {
	docs := &importCounter{Store: docstore.NewMemoryStore()}
	svc := newTestService(docs, objectstore.NewMemoryStore())

	err := svc.Restore(context.Background(), "nonexistent-folder")
	assert.ErrorIs(t, err, ErrNoFiles)
	assert.Zero(t, docs.imports)
}

func TestListBackups_DescendingOrder(t *testing.T) {
	ctx := context.Background()
	objects := objectstore.NewMemoryStore()
	require.NoError(t, objects.Put(ctx, "backups/2024-01-01T10-00-00-000Z/users.json", []byte("[]")))
	require.NoError(t, objects.Put(ctx, "backups/2024-01-02T10-00-00-000Z/users.json", []byte("[]")))
	require.NoError(t, objects.Put(ctx, "backups/2024-01-02T10-00-00-000Z/maquinas.json", []byte("[]")))

	svc := newTestService(docstore.NewMemoryStore(), objects)
	folders, err := svc.ListBackups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02T10-00-00-000Z", "2024-01-01T10-00-00-000Z"}, folders)
}

// failingPuts fails every Put after the first.
type failingPuts struct {
	*objectstore.MemoryStore
	puts int
}

func (f *failingPuts) Put(ctx context.Context, name string, data []byte) error {
	f.puts++
	if f.puts > 1 {
		return fmt.Errorf("bucket unavailable")
	}
	return f.MemoryStore.Put(ctx, name, data)
}

func TestCreateBackup_FailureLeavesPartialBackup(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemoryStore()
	objects := &failingPuts{MemoryStore: objectstore.NewMemoryStore()}
	seedStore(t, docs)

	_, err := newTestService(docs, objects).CreateBackup(ctx)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoFiles))

	// The first collection's file was written before the failure and is
	// intentionally not cleaned up.
	names, listErr := objects.List(ctx, "backups/")
	require.NoError(t, listErr)
	assert.Len(t, names, 1)
}
