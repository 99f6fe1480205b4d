package store

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestBlobPutOpenRemove(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	ctx := context.Background()

	written, err := blobs.Put(ctx, "blob-1", strings.NewReader("raw log content"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if written != int64(len("raw log content")) {
		t.Fatalf("unexpected size: %d", written)
	}

	r, err := blobs.Open(ctx, "blob-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	_ = r.Close()
	if string(data) != "raw log content" {
		t.Fatalf("unexpected content: %q", data)
	}

	if err := blobs.Remove(ctx, "blob-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := blobs.Open(ctx, "blob-1"); err == nil {
		t.Fatal("expected open to fail after remove")
	}
}

func TestBlobPutRefusesOverwrite(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	ctx := context.Background()

	if _, err := blobs.Put(ctx, "blob-1", strings.NewReader("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := blobs.Put(ctx, "blob-1", strings.NewReader("second")); err == nil {
		t.Fatal("expected overwrite to be refused")
	}

	r, err := blobs.Open(ctx, "blob-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "first" {
		t.Fatalf("blob changed by refused overwrite: %q", data)
	}
}

func TestBlobRemoveMissingIsNoop(t *testing.T) {
	blobs, err := NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	if err := blobs.Remove(context.Background(), "never-existed"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}
