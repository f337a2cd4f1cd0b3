package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestStoreAndOverwrite(t *testing.T) {
	root := t.TempDir()
	s, err := New(logger.Nop(), root, "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := t.TempDir()
	key := "courses/c1/modules/m1_lecture.mp4"

	url, err := s.Store(context.Background(), writeFile(t, src, "a.mp4", "first"), key, "video/mp4")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if url != "http://localhost:8080/media/courses/c1/modules/m1_lecture.mp4" {
		t.Fatalf("url: got %s", url)
	}
	if _, err := s.Store(context.Background(), writeFile(t, src, "b.mp4", "second"), key, "video/mp4"); err != nil {
		t.Fatalf("Store overwrite: %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(root, "courses", "c1", "modules", "m1_lecture.mp4"))
	if string(b) != "second" {
		t.Fatalf("overwrite: want=second got=%q", string(b))
	}
	entries, _ := os.ReadDir(filepath.Join(root, "courses", "c1", "modules"))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %d entries", len(entries))
	}

	if err := s.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestStoreKeepsKeysInsideRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := New(logger.Nop(), filepath.Join(root, "media"), "")
	src := writeFile(t, t.TempDir(), "x.txt", "x")

	url, err := s.Store(context.Background(), src, "../../escape.txt", "text/plain")
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if url != "/media/escape.txt" {
		t.Fatalf("url: got %s", url)
	}
	if _, err := os.Stat(filepath.Join(root, "media", "escape.txt")); err != nil {
		t.Fatalf("object should land inside root: %v", err)
	}
	if _, err := s.Store(context.Background(), src, "  ", "text/plain"); err == nil {
		t.Fatalf("blank key should fail")
	}
}

func TestStoreMissingSource(t *testing.T) {
	s, _ := New(logger.Nop(), t.TempDir(), "")
	if _, err := s.Store(context.Background(), "/nope/missing.mp4", "k.mp4", "video/mp4"); err == nil {
		t.Fatalf("want error for missing source")
	}
}
