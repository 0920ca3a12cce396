package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wardenworks/imgwarden/internal/blobstore"
	"github.com/wardenworks/imgwarden/internal/models"
)

var testRef = models.ObjectReference{Bucket: "uploads", Key: "cat.jpg"}

type mockExecutor struct {
	applyFunc func(ctx context.Context, src, dst string) error
}

func (m *mockExecutor) Apply(ctx context.Context, src, dst string) error {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, src, dst)
	}
	// Default: copy src to dst.
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}

// failingPutStore wraps a Store so uploads fail.
type failingPutStore struct {
	blobstore.Store
}

func (s *failingPutStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	return errors.New("gateway unavailable")
}

func scratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func seededStore(t *testing.T) *blobstore.MemoryStore {
	t.Helper()
	store := blobstore.NewMemoryStore()
	if err := store.Put(context.Background(), "uploads", "cat.jpg", []byte("jpeg-bytes"), "image/jpeg"); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRemediate_Success(t *testing.T) {
	store := seededStore(t)
	scratch := t.TempDir()
	r := New(store, &mockExecutor{}, "quarantine", scratch, nil)

	if err := r.Remediate(context.Background(), testRef); err != nil {
		t.Fatalf("Remediate() error = %v", err)
	}

	// Blurred object published under the same key with the original content type.
	data, info, err := store.Get(context.Background(), "quarantine", "cat.jpg")
	if err != nil {
		t.Fatalf("quarantine object missing: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("quarantine data = %q", data)
	}
	if info.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", info.ContentType)
	}

	if files := scratchFiles(t, scratch); len(files) != 0 {
		t.Errorf("transient artifacts remain: %v", files)
	}
}

func TestRemediate_DownloadFails(t *testing.T) {
	store := blobstore.NewMemoryStore() // empty: download will fail
	scratch := t.TempDir()
	r := New(store, &mockExecutor{}, "quarantine", scratch, nil)

	err := r.Remediate(context.Background(), testRef)
	if err == nil {
		t.Fatal("Remediate() error = nil, want download failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageDownload {
		t.Errorf("error = %v, want download StageError", err)
	}
	if !errors.Is(err, blobstore.ErrObjectNotFound) {
		t.Errorf("error = %v, want wrapped ErrObjectNotFound", err)
	}
	if files := scratchFiles(t, scratch); len(files) != 0 {
		t.Errorf("transient artifacts remain: %v", files)
	}
}

func TestRemediate_TransformFails(t *testing.T) {
	store := seededStore(t)
	scratch := t.TempDir()
	executor := &mockExecutor{
		applyFunc: func(ctx context.Context, src, dst string) error {
			return errors.New("convert exited with status 1")
		},
	}
	r := New(store, executor, "quarantine", scratch, nil)

	err := r.Remediate(context.Background(), testRef)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageTransform {
		t.Fatalf("error = %v, want transform StageError", err)
	}

	// Nothing uploaded, nothing left on disk.
	if _, _, err := store.Get(context.Background(), "quarantine", "cat.jpg"); !errors.Is(err, blobstore.ErrObjectNotFound) {
		t.Errorf("quarantine Get() = %v, want ErrObjectNotFound", err)
	}
	if files := scratchFiles(t, scratch); len(files) != 0 {
		t.Errorf("transient artifacts remain: %v", files)
	}
}

func TestRemediate_UploadFails(t *testing.T) {
	store := seededStore(t)
	scratch := t.TempDir()
	r := New(&failingPutStore{Store: store}, &mockExecutor{}, "quarantine", scratch, nil)

	err := r.Remediate(context.Background(), testRef)
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageUpload {
		t.Fatalf("error = %v, want upload StageError", err)
	}
	if files := scratchFiles(t, scratch); len(files) != 0 {
		t.Errorf("transient artifacts remain: %v", files)
	}
}

func TestRemediate_UniqueArtifactNames(t *testing.T) {
	store := seededStore(t)
	scratch := t.TempDir()

	var seen []string
	executor := &mockExecutor{
		applyFunc: func(ctx context.Context, src, dst string) error {
			seen = append(seen, src, dst)
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, data, 0o600)
		},
	}
	r := New(store, executor, "quarantine", scratch, nil)

	for i := 0; i < 2; i++ {
		if err := r.Remediate(context.Background(), testRef); err != nil {
			t.Fatalf("Remediate() error = %v", err)
		}
	}

	paths := make(map[string]bool)
	for _, p := range seen {
		if paths[p] {
			t.Errorf("artifact path reused across invocations: %s", p)
		}
		paths[p] = true
	}
}

func TestRemediate_NestedKeyStaysInScratchDir(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ref := models.ObjectReference{Bucket: "uploads", Key: "photos/2026/cat.jpg"}
	if err := store.Put(context.Background(), ref.Bucket, ref.Key, []byte("jpeg"), "image/jpeg"); err != nil {
		t.Fatal(err)
	}

	scratch := t.TempDir()
	executor := &mockExecutor{
		applyFunc: func(ctx context.Context, src, dst string) error {
			if filepath.Dir(src) != scratch || filepath.Dir(dst) != scratch {
				t.Errorf("artifact escaped scratch dir: src=%s dst=%s", src, dst)
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			return os.WriteFile(dst, data, 0o600)
		},
	}
	r := New(store, executor, "quarantine", scratch, nil)

	if err := r.Remediate(context.Background(), ref); err != nil {
		t.Fatalf("Remediate() error = %v", err)
	}

	// Published under the original nested key, not the sanitized name.
	if _, _, err := store.Get(context.Background(), "quarantine", ref.Key); err != nil {
		t.Errorf("quarantine Get() error = %v", err)
	}
}
