package media

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// Dir is an Uploader backed by a local directory, returning file:// URLs.
// Used by tests and by sessions configured without an object store.
type Dir struct {
	root string
}

// NewDir creates the root directory if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Upload writes the object under the root directory.
func (d *Dir) Upload(_ context.Context, data []byte, objectPath string) (string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(objectPath))
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return "", fmt.Errorf("create %q: %w", objectPath, err)
	}
	if err := os.WriteFile(full, data, 0600); err != nil {
		return "", fmt.Errorf("write %q: %w", objectPath, err)
	}
	return fileURL(full), nil
}

// DownloadURL resolves an already stored object; absent objects fail.
func (d *Dir) DownloadURL(_ context.Context, objectPath string) (string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(objectPath))
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("stat %q: %w", objectPath, err)
	}
	return fileURL(full), nil
}

func fileURL(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
