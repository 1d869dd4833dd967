package blob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"smarthika/internal/blob"
)

func drivers(t *testing.T) map[string]blob.Store {
	t.Helper()
	ctx := context.Background()
	fsStore, err := blob.Open(ctx, blob.Config{FSRoot: t.TempDir(), BaseURL: "http://localhost:8080/"})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	mem, err := blob.Open(ctx, blob.Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	return map[string]blob.Store{
		"fs":     fsStore,
		"memory": mem,
		"s3":     blob.NewMockS3ForTests(),
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key := blob.MapKey("India")
			info, err := store.Put(ctx, key, strings.NewReader(`{"type":"Topology"}`), blob.PutOptions{
				ContentType: "application/json",
				Metadata:    map[string]string{"source": "test"},
			})
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Key != key || info.Size != 19 {
				t.Fatalf("unexpected info %+v", info)
			}
			if _, err := store.Put(ctx, key, strings.NewReader("x"), blob.PutOptions{}); !errors.Is(err, blob.ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, err := store.Put(ctx, key, strings.NewReader(`{"type":"Topology","v":2}`), blob.PutOptions{ContentType: "application/json", Overwrite: true}); err != nil {
				t.Fatalf("overwrite: %v", err)
			}

			got, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != `{"type":"Topology","v":2}` || got.ContentType != "application/json" {
				t.Fatalf("unexpected object %q %+v", body, got)
			}
			if _, err := store.Head(ctx, key); err != nil {
				t.Fatalf("head: %v", err)
			}

			archive := blob.ArchiveKey("sess-1", "a1", "json")
			if _, err := store.Put(ctx, archive, strings.NewReader("{}"), blob.PutOptions{}); err != nil {
				t.Fatalf("put archive: %v", err)
			}
			list, err := store.List(ctx, blob.ArchivePrefix("sess-1"))
			if err != nil || len(list) != 1 || list[0].Key != archive {
				t.Fatalf("list archives: %+v %v", list, err)
			}
			all, _ := store.List(ctx, "")
			if len(all) != 2 {
				t.Fatalf("expected 2 objects, got %+v", all)
			}

			if _, _, err := store.Get(ctx, "maps/missing.topo.json"); !errors.Is(err, blob.ErrNotFound) {
				t.Fatalf("expected ErrNotFound from get, got %v", err)
			}
			if _, err := store.Head(ctx, "maps/missing.topo.json"); !errors.Is(err, blob.ErrNotFound) {
				t.Fatalf("expected ErrNotFound from head, got %v", err)
			}
			deleted, err := store.Delete(ctx, archive)
			if err != nil || !deleted {
				t.Fatalf("delete: %v %v", deleted, err)
			}
			if deleted, _ := store.Delete(ctx, archive); deleted {
				t.Fatalf("second delete should report false")
			}
		})
	}
}

func TestPresign(t *testing.T) {
	ctx := context.Background()
	stores := drivers(t)

	if _, err := stores["memory"].PresignURL(ctx, "k", blob.SignedURLOptions{}); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("memory presign should be unsupported, got %v", err)
	}

	fsStore := stores["fs"]
	if _, err := fsStore.Put(ctx, "maps/india.topo.json", strings.NewReader("{}"), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	url, err := fsStore.PresignURL(ctx, "maps/india.topo.json", blob.SignedURLOptions{})
	if err != nil || url != "http://localhost:8080/maps/india.topo.json" {
		t.Fatalf("unexpected fs url %q %v", url, err)
	}

	url, err = stores["s3"].PresignURL(ctx, "submissions/s/a.json", blob.SignedURLOptions{})
	if err != nil || !strings.Contains(url, "X-Amz-Signature") {
		t.Fatalf("expected signed s3 url, got %q %v", url, err)
	}
}

func TestKeysAndOpen(t *testing.T) {
	if got := blob.MapKey(" India "); got != "maps/india.topo.json" {
		t.Fatalf("MapKey = %q", got)
	}
	if got := blob.ArchiveKey("s1", "a1", ".csv"); got != "submissions/s1/a1.csv" {
		t.Fatalf("ArchiveKey = %q", got)
	}
	if got := blob.ArchivePrefix("s1"); got != "submissions/s1/" {
		t.Fatalf("ArchivePrefix = %q", got)
	}
	ctx := context.Background()
	if _, err := blob.Open(ctx, blob.Config{Driver: "gcs"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
	if _, err := blob.Open(ctx, blob.Config{Driver: "s3"}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if blob.NewMemory().Driver() != blob.DriverMemory {
		t.Fatalf("unexpected memory driver")
	}
}
