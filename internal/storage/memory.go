package storage

import (
	"bytes"
	"context"
	"sync"
)

// MemoryStore keeps assets in a map. It serves tests and throwaway deployments.
type MemoryStore struct {
	prefix string
	mu     sync.RWMutex
	files  map[string][]byte
}

func NewMemoryStore(prefix string) *MemoryStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &MemoryStore{prefix: prefix, files: make(map[string][]byte)}
}

func (s *MemoryStore) Store(ctx context.Context, f File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateFile(f); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := limitedCopy(ctx, &buf, f.Content); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := newName(f.Name)
	for _, taken := s.files[name]; taken; _, taken = s.files[name] {
		name = newName(f.Name)
	}
	s.files[name] = buf.Bytes()
	return joinRef(s.prefix, name), nil
}

func (s *MemoryStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := refName(s.prefix, ref)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.files, name)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name, err := refName(s.prefix, ref)
	if err != nil {
		return false, nil
	}
	s.mu.RLock()
	_, ok := s.files[name]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored assets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
