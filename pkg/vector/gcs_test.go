package vector_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/kioku/pkg/adapter"
	"github.com/m-mizutani/kioku/pkg/vector"
)

// fakeStorage is an in-memory adapter.Storage for exercising the cloud
// storage document layout without a bucket.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	missing bool // simulate a bucket that was never created
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

type fakeWriter struct {
	bytes.Buffer
	commit func([]byte)
}

func (w *fakeWriter) Close() error {
	w.commit(w.Bytes())
	return nil
}

func (s *fakeStorage) Put(_ context.Context, key string) (io.WriteCloser, error) {
	return &fakeWriter{commit: func(data []byte) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.objects[key] = data
	}}, nil
}

func (s *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, goerr.Wrap(adapter.ErrNotExist, "object not found", goerr.V("key", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing {
		return nil, goerr.Wrap(adapter.ErrNotExist, "bucket not found")
	}
	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func TestCloudStorageStore(t *testing.T) {
	testStore(t, func(t *testing.T) vector.Store {
		return vector.NewCloudStorageStore(newFakeStorage())
	})
}

func TestCloudStorageStoreMissingBucket(t *testing.T) {
	storage := newFakeStorage()
	storage.missing = true
	store := vector.NewCloudStorageStore(storage)

	_, err := store.ListAll(context.Background())
	gt.Error(t, err)
	gt.True(t, errors.Is(err, vector.ErrNotProvisioned))
}
