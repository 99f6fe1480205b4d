package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// BlobStore keeps opaque file content on the local filesystem, addressed by
// file id. Blobs are write-once: Put refuses to overwrite.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob store: create root: %w", err)
	}
	return &BlobStore{root: root}, nil
}

// Put stores the content of r under id and returns the number of bytes
// written. The blob is written to a temp file and renamed, so readers never
// observe a partial blob.
func (b *BlobStore) Put(ctx context.Context, id string, r io.Reader) (int64, error) {
	target := b.path(id)
	if _, err := os.Stat(target); err == nil {
		return 0, fmt.Errorf("blob store: blob %s already exists", id)
	}

	tmp, err := os.CreateTemp(b.root, "incoming-*")
	if err != nil {
		return 0, fmt.Errorf("blob store: create temp: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("blob store: write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("blob store: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("blob store: publish blob: %w", err)
	}
	return written, nil
}

// Open returns a seekable reader over the blob. The caller closes it.
func (b *BlobStore) Open(ctx context.Context, id string) (io.ReadSeekCloser, error) {
	f, err := os.Open(b.path(id))
	if err != nil {
		return nil, fmt.Errorf("blob store: open blob %s: %w", id, err)
	}
	return f, nil
}

// Remove deletes a blob. Used only to clean up after failed artifact
// commits; published blobs are otherwise immutable.
func (b *BlobStore) Remove(ctx context.Context, id string) error {
	if err := os.Remove(b.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob store: remove blob %s: %w", id, err)
	}
	return nil
}

func (b *BlobStore) path(id string) string {
	return filepath.Join(b.root, id)
}
