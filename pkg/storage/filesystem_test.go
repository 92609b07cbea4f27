package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveAndOpenRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	payload := []byte("%PDF-1.4 fake certificate body with binary bits \x00\x01\x02")
	relPath, err := store.SaveStream("inst-42", "decret_creation", "decret.pdf", bytes.NewReader(payload))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(relPath, "inst-42"+string(filepath.Separator)))
	assert.True(t, strings.HasSuffix(relPath, ".pdf"))

	file, err := store.Open(relPath)
	require.NoError(t, err)
	defer file.Close()

	got, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSynthesizeFilenameKeepsTypeAndExtension(t *testing.T) {
	name := SynthesizeFilename("logo", "/tmp/up/Logo Officiel.png")

	assert.True(t, strings.HasPrefix(name, "logo_"))
	assert.True(t, strings.HasSuffix(name, "_Logo Officiel.png"))
	assert.NotContains(t, name, "/")
}

func TestLocalStorageRelocateMovesEveryFile(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	first, err := store.SaveStream("temp-id", "decret_creation", "a.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := store.SaveStream("temp-id", "logo", "b.png", strings.NewReader("second"))
	require.NoError(t, err)

	moved, err := store.Relocate("temp-id", "real-id")
	require.NoError(t, err)
	require.Len(t, moved, 2)

	for _, old := range []string{first, second} {
		newRel, ok := moved[old]
		require.True(t, ok, "expected %s to be relocated", old)
		assert.True(t, strings.HasPrefix(newRel, "real-id"+string(filepath.Separator)))

		file, err := store.Open(newRel)
		require.NoError(t, err)
		file.Close()
	}

	// Temp directory is gone once its content has moved.
	_, err = os.Stat(store.Path("temp-id"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageRelocateMissingTempDirIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	moved, err := store.Relocate("never-created", "real-id")
	assert.NoError(t, err)
	assert.Empty(t, moved)
}

func TestLocalStorageDeleteTolerate(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	relPath, err := store.SaveStream("inst-1", "brochure", "flyer.pdf", strings.NewReader("doc"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(relPath))
	_, err = store.Open(relPath)
	assert.Error(t, err)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(relPath))
}

func TestLocalStorageSweepTempRemovesOnlyStaleStagingDirs(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	stale, err := store.SaveStream(TempPrefix+"stale", "logo", "a.png", strings.NewReader("a"))
	require.NoError(t, err)
	fresh, err := store.SaveStream(TempPrefix+"fresh", "logo", "b.png", strings.NewReader("b"))
	require.NoError(t, err)
	owned, err := store.SaveStream("real-institution", "logo", "c.png", strings.NewReader("c"))
	require.NoError(t, err)

	// Age the stale staging dir and, as a control, the institution dir.
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(TempPrefix+"stale"), old, old))
	require.NoError(t, os.Chtimes(store.Path("real-institution"), old, old))

	removed, err := store.SweepTemp(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Open(stale)
	assert.Error(t, err)
	for _, kept := range []string{fresh, owned} {
		file, err := store.Open(kept)
		require.NoError(t, err)
		file.Close()
	}
}

func TestLocalStorageDeleteAllIgnoresMissing(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	kept, err := store.SaveStream("inst-1", "logo", "keep.png", strings.NewReader("keep"))
	require.NoError(t, err)
	gone, err := store.SaveStream("inst-1", "logo", "gone.png", strings.NewReader("gone"))
	require.NoError(t, err)

	store.DeleteAll([]string{gone, "inst-1/never-existed.pdf"})

	_, err = store.Open(gone)
	assert.Error(t, err)
	file, err := store.Open(kept)
	require.NoError(t, err)
	file.Close()
}
