package adapter

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// ErrNotExist is returned by Get and iterated by List callers when the
// requested object, or its containing bucket, does not exist.
var ErrNotExist = goerr.New("object does not exist")

// Storage is the interface for object storage holding indexed documents.
type Storage interface {
	// Put returns a writer to save an object to storage
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads an object from storage
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns all object keys under the prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	return obj.NewWriter(ctx), nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, goerr.Wrap(ErrNotExist, "object not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}

func (s *storageClient) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if errors.Is(err, storage.ErrBucketNotExist) {
				return nil, goerr.Wrap(ErrNotExist, "bucket not found", goerr.V("prefix", prefix))
			}
			return nil, goerr.Wrap(err, "failed to list objects", goerr.V("prefix", prefix))
		}
		keys = append(keys, attrs.Name)
	}

	return keys, nil
}

func (s *storageClient) Delete(ctx context.Context, key string) error {
	obj := s.client.Bucket(s.bucketName).Object(key)
	if err := obj.Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to delete object", goerr.V("key", key))
	}
	return nil
}
