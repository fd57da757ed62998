// Package storage holds the blob store adapters used for documents and credentials.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrExists      = errors.New("object already exists")
	ErrInvalidPath = errors.New("invalid object path")
)

// Store is a flat key/blob namespace. Keys use forward slashes.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, keys ...string) error
	// RemovePrefix deletes every object stored under the folder prefix.
	RemovePrefix(ctx context.Context, prefix string) error
}

// CleanKey normalizes a key and rejects ones that escape the namespace.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return cleaned, nil
}

// SafeFileName strips directories and characters that do not belong in a key segment.
func SafeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}
