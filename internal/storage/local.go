package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes uploads below a single root directory and serves them
// through the /uploads static route.
type LocalStore struct {
	rootAbs string
	baseURL string
}

func NewLocalStore(root, publicBaseURL string) (*LocalStore, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}

	if err := os.MkdirAll(rootAbs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	return &LocalStore{
		rootAbs: rootAbs,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// RootAbs returns the absolute upload root, used to mount the static route.
func (s *LocalStore) RootAbs() string {
	return s.rootAbs
}

func (s *LocalStore) resolve(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	resolved := filepath.Join(s.rootAbs, filepath.FromSlash(key))
	if !strings.HasPrefix(resolved, s.rootAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage key %q resolves outside the upload root", key)
	}

	return resolved, nil
}

func (s *LocalStore) Upload(_ context.Context, key string, _ string, r io.Reader) (string, error) {
	resolved, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir for %q: %w", key, err)
	}

	file, err := os.OpenFile(resolved, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open %q: %w", key, err)
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(resolved)
		return "", fmt.Errorf("write %q: %w", key, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(resolved)
		return "", fmt.Errorf("close %q: %w", key, closeErr)
	}

	return s.baseURL + "/uploads/" + key, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	resolved, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", key, err)
	}

	return nil
}
