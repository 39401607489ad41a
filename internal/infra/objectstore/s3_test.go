package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"learnlink-server/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// fakeS3 is a path-style S3 endpoint holding objects in memory
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	t.Helper()
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if key == "" {
		switch {
		case r.URL.Query().Has("location"):
			w.Header().Set("Content-Type", "application/xml")
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><LocationConstraint xmlns="http://s3.amazonaws.com/doc/2006-03-01/">us-east-1</LocationConstraint>`)
		case r.Method == http.MethodPut:
			f.buckets[bucket] = true
		case r.Method == http.MethodHead && f.buckets[bucket]:
		default:
			f.writeError(w, http.StatusNotFound, "NoSuchBucket")
		}
		return
	}

	name := bucket + "/" + key
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[name] = data
		f.types[name] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag-`+strconv.Itoa(len(data))+`"`)
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[name]
		if !ok {
			f.writeError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Type", f.types[name])
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Last-Modified", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.Header().Set("ETag", `"etag-`+strconv.Itoa(len(data))+`"`)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, name)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *fakeS3) writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>not found</Message><RequestId>req-1</RequestId></Error>`)
}

func newTestS3Store(srv *httptest.Server) *S3Store {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
	})
	return &S3Store{client: client, bucket: "learnlink", baseURL: "https://cdn.example.com"}
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake, srv := newFakeS3(t)
	store := newTestS3Store(srv)
	ctx := context.Background()

	url, err := store.Upload(ctx, "processed/u1/reading_writing_f1.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if url != "https://cdn.example.com/processed/u1/reading_writing_f1.pdf" {
		t.Errorf("unexpected url %s", url)
	}
	if fake.types["learnlink/processed/u1/reading_writing_f1.pdf"] != "application/pdf" {
		t.Errorf("content type not sent: %v", fake.types)
	}

	data, err := store.Download(ctx, "processed/u1/reading_writing_f1.pdf")
	if err != nil || string(data) != "%PDF-1.4" {
		t.Fatalf("Download() = %q, %v", data, err)
	}

	if err := store.Delete(ctx, "processed/u1/reading_writing_f1.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Download(ctx, "processed/u1/reading_writing_f1.pdf"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestS3Store_PublicURLTrimsSlashes(t *testing.T) {
	store := &S3Store{baseURL: "https://bucket.s3.us-east-1.amazonaws.com"}
	if got := store.PublicURL("/audio/f1/a.mp3"); got != "https://bucket.s3.us-east-1.amazonaws.com/audio/f1/a.mp3" {
		t.Errorf("unexpected url %s", got)
	}
}
