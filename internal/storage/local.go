package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"tripcatalog/internal/models"

	"github.com/sirupsen/logrus"
)

const createAttempts = 3

// LocalStore keeps assets as flat files in one directory.
type LocalStore struct {
	basePath string
	prefix   string
	log      logrus.FieldLogger

	once    sync.Once
	initErr error
}

// NewLocalStore returns a store rooted at basePath. The directory is created
// on first use; prefix is the public URL path the files are served under.
func NewLocalStore(basePath, prefix string, log logrus.FieldLogger) *LocalStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &LocalStore{basePath: basePath, prefix: prefix, log: log}
}

// Dir returns the directory that backs the store.
func (s *LocalStore) Dir() string { return s.basePath }

// Prefix returns the public URL prefix of stored references.
func (s *LocalStore) Prefix() string { return s.prefix }

func (s *LocalStore) ensureDir() error {
	s.once.Do(func() {
		if err := os.MkdirAll(s.basePath, 0o755); err != nil {
			s.initErr = fmt.Errorf("failed to create upload directory: %w: %v", models.ErrStorage, err)
		}
	})
	return s.initErr
}

// Store validates f and writes it under a fresh unique name.
func (s *LocalStore) Store(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFile(f); err != nil {
		return "", err
	}
	if err := s.ensureDir(); err != nil {
		return "", err
	}

	var (
		name string
		file *os.File
		err  error
	)
	for i := 0; i < createAttempts; i++ {
		name = newName(f.Name)
		file, err = os.OpenFile(filepath.Join(s.basePath, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w: %v", models.ErrStorage, err)
	}

	filePath := file.Name()
	if _, err := limitedCopy(ctx, file, f.Content); err != nil {
		if cerr := file.Close(); cerr != nil {
			s.log.WithError(cerr).Error("failed to close file after write error")
		}
		if rerr := os.Remove(filePath); rerr != nil {
			s.log.WithError(rerr).Error("failed to remove file after write error")
		}
		if errors.Is(err, models.ErrUploadRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("failed to write file: %w: %v", models.ErrStorage, err)
	}
	if err := file.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			s.log.WithError(rerr).Error("failed to remove file after close error")
		}
		return "", fmt.Errorf("failed to close file: %w: %v", models.ErrStorage, err)
	}

	ref := joinRef(s.prefix, name)
	s.log.WithFields(logrus.Fields{"ref": ref, "original": f.Name}).Debug("asset stored")
	return ref, nil
}

// Delete removes the file behind ref. A missing file counts as deleted.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filePath, err := s.safeJoin(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w: %v", models.ErrStorage, err)
	}
	return nil
}

// Exists reports whether ref names a stored file. Malformed refs do not exist.
func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	filePath, err := s.safeJoin(ref)
	if err != nil {
		return false, nil
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w: %v", models.ErrStorage, err)
	}
	return info.Mode().IsRegular(), nil
}

// safeJoin resolves ref to a path inside basePath and rejects directory traversal.
func (s *LocalStore) safeJoin(ref string) (string, error) {
	name, err := refName(s.prefix, ref)
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if filepath.Dir(absPath) != absBase {
		return "", fmt.Errorf("path traversal attempt: %q", ref)
	}
	return absPath, nil
}
