package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// FileStore persists uploaded files (payment receipts, promo images) and
// returns a URL the browser can fetch them from.
type FileStore interface {
	Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._/-]*$`)

// validateKey rejects keys that could escape the upload root or confuse the
// object store. Keys are always generated server-side, so a failure here is a
// programming error rather than user input.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage key is empty")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage key %q escapes the upload root", key)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("storage key %q contains invalid characters", key)
	}
	return nil
}
