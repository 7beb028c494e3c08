package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorageRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)
	defer s.Close()

	data := []byte("serialized ciphertext")
	handle, err := s.Store(ctx, data)
	require.NoError(t, err)
	require.Equal(t, ComputeHandle(data), handle)

	got, err := s.Load(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, data, got)

	ok, err := s.Exists(ctx, handle)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(ctx, handle))
	_, err = s.Load(ctx, handle)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, handle), ErrNotFound)
}

func TestMemoryStorageDedup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)
	defer s.Close()

	data := []byte("same blob twice")
	h1, err := s.Store(ctx, data)
	require.NoError(t, err)
	used := s.Used()

	h2, err := s.Store(ctx, data)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.Equal(t, used, s.Used(), "dedup must not grow the store")
}

func TestMemoryStorageBudget(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)
	defer s.Close()

	big := make([]byte, 1<<20)
	_, err := s.Store(ctx, big)
	require.NoError(t, err)

	_, err = s.Store(ctx, []byte("one more byte than fits"))
	require.ErrorIs(t, err, ErrStorageFull)
}

func TestMemoryStorageClosed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)
	require.NoError(t, s.Close())

	_, err := s.Store(ctx, []byte("x"))
	require.ErrorIs(t, err, ErrStorageClosed)
	_, err = s.Load(ctx, "deadbeef")
	require.ErrorIs(t, err, ErrStorageClosed)
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(1)
	defer s.Close()

	data := []byte("immutable once stored")
	handle, err := s.Store(ctx, data)
	require.NoError(t, err)

	got, err := s.Load(ctx, handle)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := s.Load(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestFileStorageRoundtrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	data := []byte("ciphertext on disk")
	handle, err := s.Store(ctx, data)
	require.NoError(t, err)

	got, err := s.Load(ctx, handle)
	require.NoError(t, err)
	require.Equal(t, data, got)

	// Storing again is a no-op thanks to content addressing.
	h2, err := s.Store(ctx, data)
	require.NoError(t, err)
	require.Equal(t, handle, h2)

	ok, err := s.Exists(ctx, handle)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(ctx, handle))
	ok, err = s.Exists(ctx, handle)
	require.NoError(t, err)
	require.False(t, ok)
	require.ErrorIs(t, s.Delete(ctx, handle), ErrNotFound)
}

func TestFileStorageMissingHandle(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(ctx, ComputeHandle([]byte("never stored")))
	require.ErrorIs(t, err, ErrNotFound)
}
