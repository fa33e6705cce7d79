package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	fileDirPerm  = 0o700
	fileDataPerm = 0o600
	fileTempGlob = ".session-*"
)

// FileKV stores each key as a file under a directory.
type FileKV struct {
	dir string
	ttl time.Duration
}

// NewFileKV creates the directory if needed; ttl <= 0 disables expiry.
func NewFileKV(dir string, ttl time.Duration) (*FileKV, error) {
	if err := os.MkdirAll(dir, fileDirPerm); err != nil {
		return nil, fmt.Errorf("session: create dir %s: %w", dir, err)
	}
	return &FileKV{dir: dir, ttl: ttl}, nil
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	path := f.path(key)

	if f.ttl > 0 {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		if err != nil {
			return nil, err
		}
		if time.Since(info.ModTime()) > f.ttl {
			return nil, ErrKeyNotFound
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	return data, err
}

// Set writes through a temp file and rename so readers never see a partial value.
func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(f.dir, fileTempGlob)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(fileDataPerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, f.path(key))
}

func (f *FileKV) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FileKV) Close() error {
	return nil
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, sanitizeKey(key))
}

// sanitizeKey keeps keys inside the store directory.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
}
