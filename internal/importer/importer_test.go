package importer

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivist/internal/config"
	"archivist/internal/library"
	"archivist/internal/metrics"
	"archivist/internal/storage/sqlite"
)

type memorySaver struct {
	mu       sync.Mutex
	archives map[string]library.Archive
}

func (m *memorySaver) SaveArchive(ctx context.Context, a *library.Archive) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.archives == nil {
		m.archives = map[string]library.Archive{}
	}
	m.archives[filepath.Base(a.Path)] = *a
	return int64(len(m.archives)), nil
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range entries {
		e, err := w.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(e, body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func newTestImporter(store Saver) *Importer {
	im := New(store, config.ImportConfig{Threads: 2, Extensions: []string{".cbz", ".zip"}}, config.MetadataConfig{})
	im.Progress = io.Discard
	return im
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "with-info.cbz"), map[string]string{
		"003.png":   "c",
		"001.png":   "a",
		"002.jpg":   "b",
		"info.yaml": "title: Embedded Title\ntags:\n  - artist:someone\n",
	})
	writeZip(t, filepath.Join(dir, "sidecar.zip"), map[string]string{
		"01.webp":         "a",
		"02.webp":         "b",
		"notes.txt":       "not a page",
		"__MACOSX/01.png": "junk",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sidecar.yaml"), []byte("title: Sidecar Title\n"), 0o644))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	writeZip(t, filepath.Join(dir, "nested", "plain.cbz"), map[string]string{"1.png": "a"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cbz"), []byte("not a zip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644))

	failedBefore := testutil.ToFloat64(metrics.ImportArchivesTotal.WithLabelValues("failed"))
	importedBefore := testutil.ToFloat64(metrics.ImportArchivesTotal.WithLabelValues("imported"))

	store := &memorySaver{}
	report, err := newTestImporter(store).Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures, filepath.Join(dir, "broken.cbz"))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(metrics.ImportArchivesTotal.WithLabelValues("failed")))
	assert.Equal(t, importedBefore+3, testutil.ToFloat64(metrics.ImportArchivesTotal.WithLabelValues("imported")))

	embedded := store.archives["with-info.cbz"]
	assert.Equal(t, "Embedded Title", embedded.Title)
	assert.Equal(t, "embedded-title", embedded.Slug)
	assert.Equal(t, []string{"someone"}, embedded.Artists)
	assert.Equal(t, 3, embedded.Pages)
	assert.Equal(t, 1, embedded.Thumbnail)
	assert.True(t, embedded.HasMetadata)
	assert.True(t, filepath.IsAbs(embedded.Path))

	raw, err := os.ReadFile(filepath.Join(dir, "with-info.cbz"))
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	assert.Equal(t, hex.EncodeToString(sum[:])[:HashLength], embedded.Hash)
	assert.Equal(t, int64(len(raw)), embedded.Size)

	sidecar := store.archives["sidecar.zip"]
	assert.Equal(t, "Sidecar Title", sidecar.Title)
	assert.Equal(t, 2, sidecar.Pages)

	plain := store.archives["plain.cbz"]
	assert.Equal(t, "plain", plain.Title)
	assert.False(t, plain.HasMetadata)
	assert.Equal(t, 1, plain.Pages)
}

func TestRunKeepsFilenameTitleOnBadMetadata(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "[Circle] Nice Book.cbz"), map[string]string{
		"1.png":     "a",
		"info.yaml": "tags: [no title here]\n",
	})

	store := &memorySaver{}
	im := newTestImporter(store)
	im.metadata.ParseFilenameAsTitle = true
	report, err := im.Run(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Imported)
	a := store.archives["[Circle] Nice Book.cbz"]
	assert.Equal(t, "Nice Book", a.Title)
	assert.False(t, a.HasMetadata)
}

func TestRunMissingDir(t *testing.T) {
	_, err := newTestImporter(&memorySaver{}).Run(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRunIntoStoreIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "book.cbz"), map[string]string{"1.png": "a", "2.png": "b"})

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		report, err := newTestImporter(store).Run(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Imported)
	}

	items, total, err := store.Search(ctx, library.SearchQuery{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "book", items[0].Title)
	assert.Equal(t, 2, items[0].Pages)
}
