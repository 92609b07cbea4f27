package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix marks staging directories holding uploads whose owning
// institution does not exist yet. The sweeper only ever deletes
// directories carrying this prefix.
const TempPrefix = "tmp-"

// LocalStorage persists uploaded documents on disk under a base directory.
// Files are keyed by institution id: each institution owns one subdirectory
// and no other component writes into it.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveStream writes the reader's content under the institution's directory,
// creating it on demand, and returns the stored relative path. The filename
// is synthesized as {docType}_{unixMilli}_{base}{ext} so repeated uploads of
// same-named files never collide within an institution.
func (s *LocalStorage) SaveStream(institutionID, docType, originalName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.baseDir, institutionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare institution directory: %w", err)
	}

	relPath := filepath.Join(institutionID, SynthesizeFilename(docType, originalName))
	file, err := os.Create(filepath.Join(s.baseDir, relPath))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write upload stream: %w", err)
	}
	return relPath, nil
}

// SynthesizeFilename builds the collision-free stored name for a document.
func SynthesizeFilename(docType, originalName string) string {
	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%d_%s%s", docType, time.Now().UnixMilli(), base, ext)
}

// Relocate moves every file stored under the temporary id's directory to the
// real id's directory and returns old-path → new-path. A missing temp
// directory is not an error: there was simply nothing to move.
func (s *LocalStorage) Relocate(tempID, realID string) (map[string]string, error) {
	tempDir := filepath.Join(s.baseDir, tempID)
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read temp upload directory: %w", err)
	}

	realDir := filepath.Join(s.baseDir, realID)
	if err := os.MkdirAll(realDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare institution directory: %w", err)
	}

	moved := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		oldRel := filepath.Join(tempID, entry.Name())
		newRel := filepath.Join(realID, entry.Name())
		if err := os.Rename(filepath.Join(s.baseDir, oldRel), filepath.Join(s.baseDir, newRel)); err != nil {
			return moved, fmt.Errorf("relocate upload %s: %w", entry.Name(), err)
		}
		moved[oldRel] = newRel
	}

	// The temp dir may already be gone if a concurrent cleanup won; both
	// outcomes leave the tree in the desired state.
	if err := os.Remove(tempDir); err != nil && !os.IsNotExist(err) {
		return moved, nil
	}
	return moved, nil
}

// SweepTemp removes staging directories older than maxAge. Registration
// normally relocates or cleans its own staging dir; this catches the ones
// orphaned by crashed requests. Returns how many directories were removed.
func (s *LocalStorage) SweepTemp(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read uploads directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), TempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove stale staging dir %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(relPath string) (*os.File, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// DeleteAll removes every listed file, ignoring ones already gone.
func (s *LocalStorage) DeleteAll(relPaths []string) {
	for _, p := range relPaths {
		_ = s.Delete(p)
	}
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(relPath string) string {
	return s.resolve(relPath)
}

func (s *LocalStorage) resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.baseDir, relPath)
}
