// Package storage persists uploaded files (payment receipts and roster
// workbooks) on local disk and hands back relative paths that are stored on
// the registration records and served by the files endpoint.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Buckets group uploads by purpose, mirroring the record columns that
// reference them.
const (
	BucketReceipts = "receipts"
	BucketRosters  = "rosters"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ErrOutsideStore is returned when a stored path would escape the store's
// base directory.
var ErrOutsideStore = errors.New("path escapes file store")

// FileStore writes uploads under one base directory:
// <base>/<bucket>/<dir>/<timestamp>_<sanitized name>.
type FileStore struct {
	base string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(base string) (*FileStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &FileStore{base: base}, nil
}

// Save stores the content of r and returns the relative path to keep on
// the record.  The original filename is sanitized and prefixed with a
// timestamp so repeated uploads never collide.
func (s *FileStore) Save(bucket, dir, filename string, r io.Reader) (string, error) {
	name := unsafeNameChars.ReplaceAllString(filepath.Base(filename), "_")
	rel := filepath.Join(bucket, dir, fmt.Sprintf("%d_%s", time.Now().UnixMilli(), name))

	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}

	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(abs)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// Open returns the stored file for a previously returned relative path.
func (s *FileStore) Open(rel string) (*os.File, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// resolve joins rel under the base directory and rejects traversal.
func (s *FileStore) resolve(rel string) (string, error) {
	abs := filepath.Join(s.base, filepath.FromSlash(rel))
	base, err := filepath.Abs(s.base)
	if err != nil {
		return "", err
	}
	full, err := filepath.Abs(abs)
	if err != nil {
		return "", err
	}
	if full != base && !strings.HasPrefix(full, base+string(os.PathSeparator)) {
		return "", ErrOutsideStore
	}
	return full, nil
}
