// Package storage provides content-addressed blob storage for serialized
// radix ciphertexts and key material. Handles are content hashes, so storing
// the same ciphertext twice is free and a handle can never refer to stale
// data.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	ErrNotFound      = errors.New("blob not found")
	ErrStorageFull   = errors.New("storage budget exceeded")
	ErrStorageClosed = errors.New("storage closed")
)

// Handle identifies a stored blob by the hex SHA-256 of its content.
type Handle string

// ComputeHandle derives the handle a blob would be stored under.
func ComputeHandle(data []byte) Handle {
	hash := sha256.Sum256(data)
	return Handle(hex.EncodeToString(hash[:]))
}

// Storage is the blob store the worker reads operands from and writes
// results to.
type Storage interface {
	// Store saves a blob and returns its content handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load retrieves a blob by handle.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a blob.
	Delete(ctx context.Context, handle Handle) error
	// Exists reports whether a handle is present.
	Exists(ctx context.Context, handle Handle) (bool, error)
	// Close releases the store.
	Close() error
}

// MemoryStorage keeps blobs in memory under a byte budget. Ciphertexts are
// large, so the budget guards against an unbounded queue pinning the whole
// working set.
type MemoryStorage struct {
	mu     sync.RWMutex
	blobs  map[Handle][]byte
	budget int64
	used   int64
	closed bool
}

// NewMemoryStorage creates an in-memory store holding up to budgetMB
// megabytes of blob data.
func NewMemoryStorage(budgetMB int64) *MemoryStorage {
	return &MemoryStorage{
		blobs:  make(map[Handle][]byte),
		budget: budgetMB << 20,
	}
}

func (s *MemoryStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStorageClosed
	}

	handle := ComputeHandle(data)
	if _, ok := s.blobs[handle]; ok {
		return handle, nil
	}
	if s.used+int64(len(data)) > s.budget {
		return "", ErrStorageFull
	}
	s.blobs[handle] = append([]byte(nil), data...)
	s.used += int64(len(data))
	return handle, nil
}

func (s *MemoryStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	data, ok := s.blobs[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	data, ok := s.blobs[handle]
	if !ok {
		return ErrNotFound
	}
	s.used -= int64(len(data))
	delete(s.blobs, handle)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrStorageClosed
	}
	_, ok := s.blobs[handle]
	return ok, nil
}

// Used returns the bytes currently held.
func (s *MemoryStorage) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs = nil
	s.used = 0
	s.closed = true
	return nil
}

// FileStorage keeps blobs as files sharded by handle prefix, one file per
// blob. Writes go through a temp file and rename so readers never observe a
// partial ciphertext.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a file-backed store rooted at baseDir.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) string {
	h := string(handle)
	if len(h) < 4 {
		return filepath.Join(s.baseDir, h)
	}
	// Two-character shard keeps directories small at millions of blobs.
	return filepath.Join(s.baseDir, h[:2], h)
}

func (s *FileStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path := s.path(handle)

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	return handle, nil
}

func (s *FileStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	data, err := os.ReadFile(s.path(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Delete(ctx context.Context, handle Handle) error {
	if err := os.Remove(s.path(handle)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	_, err := os.Stat(s.path(handle))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob: %w", err)
}

func (s *FileStorage) Close() error { return nil }
