package imagestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is where the HTTP server exposes a Local store's directory.
const URLPrefix = "/uploads"

// Local writes images to a directory served by the API itself.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory to serve under URLPrefix.
func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Put(_ context.Context, name, _ string, data []byte) (Ref, error) {
	if len(data) == 0 {
		return Ref{}, ErrEmptyImage
	}

	key := objectKey(name)
	if err := os.WriteFile(filepath.Join(l.dir, key), data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("write %s: %w", key, err)
	}
	return Ref{Key: key, URL: l.baseURL + URLPrefix + "/" + key}, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	if key == "" || key != filepath.Base(key) {
		return fmt.Errorf("invalid image key %q", key)
	}
	err := os.Remove(filepath.Join(l.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
