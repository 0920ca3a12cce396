package blobstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPStore_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/api/v1/buckets/uploads/objects/cat.jpg" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, 5*time.Second)
	data, info, err := store.Get(context.Background(), "uploads", "cat.jpg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("data = %q", data)
	}
	if info.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", info.ContentType)
	}
	if info.Size != int64(len("jpeg-bytes")) {
		t.Errorf("Size = %d", info.Size)
	}
}

func TestHTTPStore_Get_KeyEscaping(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte("x"))
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, 5*time.Second)
	if _, _, err := store.Get(context.Background(), "uploads", "photos/cat 1.jpg"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := "/api/v1/buckets/uploads/objects/photos%2Fcat%201.jpg"
	if gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
}

func TestHTTPStore_Get_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"no such object"}`, http.StatusNotFound)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, 5*time.Second)
	_, _, err := store.Get(context.Background(), "uploads", "missing.jpg")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("error = %v, want ErrObjectNotFound", err)
	}
}

func TestHTTPStore_Put(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/api/v1/buckets/quarantine/objects/cat.jpg" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %q, want image/jpeg", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "blurred-bytes" {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, 5*time.Second)
	err := store.Put(context.Background(), "quarantine", "cat.jpg", []byte("blurred-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
}

func TestHTTPStore_Put_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"disk full"}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewHTTPStore(server.URL, 5*time.Second)
	err := store.Put(context.Background(), "quarantine", "cat.jpg", []byte("x"), "image/jpeg")
	if err == nil {
		t.Fatal("Put() error = nil, want error")
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, _, err := store.Get(ctx, "uploads", "cat.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Get() on empty store = %v, want ErrObjectNotFound", err)
	}

	if err := store.Put(ctx, "uploads", "cat.jpg", []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, info, err := store.Get(ctx, "uploads", "cat.jpg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "jpeg" || info.ContentType != "image/jpeg" || info.Size != 4 {
		t.Errorf("Get() = %q, %+v", data, info)
	}

	// Mutating the returned slice must not affect the stored object.
	data[0] = 'X'
	again, _, _ := store.Get(ctx, "uploads", "cat.jpg")
	if string(again) != "jpeg" {
		t.Errorf("stored object mutated: %q", again)
	}
}
