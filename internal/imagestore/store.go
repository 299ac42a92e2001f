// Package imagestore keeps uploaded skin photos and hands back a stable URL
// for each one.
package imagestore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"path"
	"regexp"
	"strings"
)

var ErrEmptyImage = errors.New("image is empty")

// Ref locates a stored image.
type Ref struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (Ref, error)
	Delete(ctx context.Context, key string) error
}

var nonSafe = regexp.MustCompile(`[^a-z0-9\-_.]+`)

func sanitizeFileName(name string) string {
	name = strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.ReplaceAll(name, " ", "-")
	name = nonSafe.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-_.")
	if name == "" {
		name = "image"
	}
	return name
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// objectKey builds a collision-resistant key that keeps the original
// extension so the browser can guess the type.
func objectKey(name string) string {
	clean := sanitizeFileName(name)
	ext := path.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if base == "" {
		base = "image"
	}
	if ext == "" {
		ext = ".bin"
	}
	return "skin-" + randomHex(6) + "-" + base + ext
}
