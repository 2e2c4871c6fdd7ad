// Package storage persists uploaded triage images on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for empty keys or keys escaping the store root
var ErrInvalidKey = errors.New("invalid object key")

// Store saves and removes objects by key
type Store interface {
	// Put stores body and returns a URL the object can be fetched from
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds a unique date-partitioned key that keeps the file extension
func NewKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext
	return path.Join(strings.Trim(prefix, "/"), now.UTC().Format("2006/01/02"), name)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
