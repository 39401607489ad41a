package objectstore

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"learnlink-server/internal/domain"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	url, err := store.Upload(ctx, "users/u1/f1/notes.txt", bytes.NewBufferString("hello"), 5, "text/plain")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "http://localhost:8080/objects/users/u1/f1/notes.txt" {
		t.Errorf("unexpected url %s", url)
	}

	data, err := store.Download(ctx, "users/u1/f1/notes.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("Download() = %q, %v", data, err)
	}

	if _, err := store.Upload(ctx, "users/u1/f1/notes.txt", bytes.NewBufferString("bye"), 3, "text/plain"); err != nil {
		t.Fatalf("overwrite error = %v", err)
	}
	data, _ = store.Download(ctx, "users/u1/f1/notes.txt")
	if string(data) != "bye" {
		t.Errorf("expected overwrite, got %q", data)
	}

	if err := store.Delete(ctx, "users/u1/f1/notes.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "users/u1/f1/notes.txt"); err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if _, err := store.Download(ctx, "users/u1/f1/notes.txt"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	_, err = store.Upload(context.Background(), "../escape.txt", bytes.NewBufferString("x"), 1, "text/plain")
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublicURLs(t *testing.T) {
	gcs := &GCSStore{bucket: "b"}
	if got := gcs.PublicURL("audio/f1/a.mp3"); got != "https://storage.googleapis.com/b/audio/f1/a.mp3" {
		t.Errorf("gcs url %s", got)
	}
	s3 := &S3Store{baseURL: "https://cdn.example.com"}
	if got := s3.PublicURL("/x/y.pdf"); got != "https://cdn.example.com/x/y.pdf" {
		t.Errorf("s3 url %s", got)
	}
	minio := &MinIOStore{baseURL: "http://localhost:9000/learnlink"}
	if got := minio.PublicURL("x.docx"); got != "http://localhost:9000/learnlink/x.docx" {
		t.Errorf("minio url %s", got)
	}
}
