package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PersistLoadRoundtrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := fs.Persist(context.Background(), "doc-1", "# hello\n\n正文。\n", 3); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	got, err := fs.Load("doc-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "# hello\n\n正文。\n" {
		t.Fatalf("Load() = %q, want %q", got, "# hello\n\n正文。\n")
	}
}

func TestFileStore_LoadMissingReturnsEmpty(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	got, err := fs.Load("never-saved")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != "" {
		t.Fatalf("Load() = %q for missing doc, want empty", got)
	}
}

func TestFileStore_OverwriteKeepsLatest(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	if err := fs.Persist(ctx, "doc-1", "v1", 1); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := fs.Persist(ctx, "doc-1", "v2", 2); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	got, _ := fs.Load("doc-1")
	if got != "v2" {
		t.Fatalf("Load() = %q, want %q", got, "v2")
	}

	// 没有残留的临时文件
	entries, _ := os.ReadDir(filepath.Dir(fs.Path("doc-1")))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("leftover temp file %q", e.Name())
		}
	}
}

func TestFileStore_DocIDCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := fs.Persist(context.Background(), "../evil", "x", 1); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	// 路径分隔符被剥掉，文件仍落在存储目录内
	if got := fs.Path("../evil"); filepath.Dir(got) != dir {
		t.Fatalf("Path() = %q escaped storage dir %q", got, dir)
	}
}
