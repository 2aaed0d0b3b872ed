// Package gcs keeps a ledger grid as a CSV object in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrConflict is returned by ObjectStore.Write when the object changed
// since it was read.
var ErrConflict = errors.New("object generation changed")

// ObjectStore reads and conditionally writes a single object.
// This interface enables mocking of GCS in tests.
type ObjectStore interface {
	// Read returns the object content and generation. A missing object
	// reads as empty with generation 0.
	Read(ctx context.Context) ([]byte, int64, error)

	// Write replaces the object if its generation is still generation
	// (0 meaning it must not exist yet).
	Write(ctx context.Context, data []byte, generation int64) error
}

// StorageObject is the concrete implementation of ObjectStore.
type StorageObject struct {
	client *storage.Client
	bucket string
	object string
}

// NewStorageObject creates a storage client for bucket/object. It assumes
// Application Default Credentials are configured.
func NewStorageObject(ctx context.Context, bucket, object string) (*StorageObject, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &StorageObject{client: client, bucket: bucket, object: object}, nil
}

// Close closes the storage client.
func (o *StorageObject) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

// Read implements ObjectStore.
func (o *StorageObject) Read(ctx context.Context) ([]byte, int64, error) {
	r, err := o.client.Bucket(o.bucket).Object(o.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("read GCS object: %w", err)
	}
	return data, r.Attrs.Generation, nil
}

// Write implements ObjectStore.
func (o *StorageObject) Write(ctx context.Context, data []byte, generation int64) error {
	cond := storage.Conditions{GenerationMatch: generation}
	if generation == 0 {
		cond = storage.Conditions{DoesNotExist: true}
	}

	w := o.client.Bucket(o.bucket).Object(o.object).If(cond).NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return ErrConflict
		}
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
