package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Compile-time check that LocalStorage implements Publisher.
var _ Publisher = (*LocalStorage)(nil)

// LocalStorage writes frames to a directory served by this process under /frames/.
// It only works when publicBaseURL is reachable by the video provider.
type LocalStorage struct {
	dir           string
	publicBaseURL string
}

// NewLocalStorage creates a new LocalStorage instance.
// If dir is empty, a reelchain/frames directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(dir, publicBaseURL string) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "reelchain", "frames")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create frames directory: %w", err)
	}

	return &LocalStorage{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Dir returns the frames directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Publish writes data to <dir>/<name> and returns <publicBaseURL>/frames/<name>.
func (s *LocalStorage) Publish(ctx context.Context, name, _ string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if !validName(name) {
		return "", ErrInvalidName
	}

	f, err := os.CreateTemp(s.dir, "."+name+"_*")
	if err != nil {
		return "", fmt.Errorf("create frame file: %w", err)
	}

	tmp := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write frame file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close frame file: %w", err)
	}

	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename frame file: %w", err)
	}

	return s.publicBaseURL + "/frames/" + name, nil
}

// Open returns the stored frame. The caller must close it.
func (s *LocalStorage) Open(_ context.Context, name string) (*os.File, error) {
	if !validName(name) || strings.HasPrefix(name, ".") {
		return nil, ErrInvalidName
	}

	f, err := os.Open(filepath.Join(s.dir, name)) // #nosec G304 - name is a validated single path element
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	return f, nil
}

// PruneOlderThan removes frames last modified before cutoff.
// It continues even if some files fail to delete, returning the first error.
func (s *LocalStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read frames directory: %w", err)
	}

	removed := 0
	var firstErr error
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return removed, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove frame %s: %w", e.Name(), err)
			}
			continue
		}
		removed++
	}
	return removed, firstErr
}
