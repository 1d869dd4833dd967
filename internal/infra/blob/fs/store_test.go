package fs

import (
	"context"
	"strings"
	"testing"

	"smarthika/internal/blob/core"
)

func TestSanitizeKey(t *testing.T) {
	bad := []string{"", "  ", "../etc/passwd", "/abs", "maps/../../x", "maps/india.topo.json.meta"}
	for _, k := range bad {
		if _, err := sanitizeKey(k); err == nil {
			t.Fatalf("expected %q to be rejected", k)
		}
	}
	got, err := sanitizeKey("maps//india.topo.json")
	if err != nil || got != "maps/india.topo.json" {
		t.Fatalf("unexpected clean key %q %v", got, err)
	}
}

func TestStoreDefaultsAndLocalURL(t *testing.T) {
	root := t.TempDir()
	s, err := New(root, "")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.Root() != root || s.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected store %+v", s)
	}
	ctx := context.Background()
	info, err := s.Put(ctx, "submissions/s/a.csv", strings.NewReader("a,b\n"), core.PutOptions{ContentType: "text/csv"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.URL != "http://local.blob/submissions/s/a.csv" || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := s.PresignURL(ctx, "submissions/s/missing.csv", core.SignedURLOptions{}); err == nil {
		t.Fatalf("expected presign of missing key to fail")
	}
	if _, err := s.Put(ctx, "../x", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal rejection")
	}
}
