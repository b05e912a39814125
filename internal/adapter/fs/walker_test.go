package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalker_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "beaches.json"), "[]")
	writeFile(t, filepath.Join(root, "guides", "north.md"), "# North")
	writeFile(t, filepath.Join(root, "guides", "notes.docx"), "binary")
	writeFile(t, filepath.Join(root, ".rag", "embeddings.json"), "[]")

	w := NewWalker([]string{"**/*.json", "**/*.md"}, []string{"**/.rag/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if filepath.Base(files[0].Path) != "beaches.json" {
		t.Errorf("expected sorted output starting with beaches.json, got %s", files[0].Path)
	}
	if filepath.Base(files[1].Path) != "north.md" {
		t.Errorf("expected north.md second, got %s", files[1].Path)
	}
	if files[0].Size != 2 {
		t.Errorf("expected size 2, got %d", files[0].Size)
	}
}

func TestWalker_DefaultIncludesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b", "c.html"), "c")

	files, err := NewWalker(nil, nil).Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %d", len(files))
	}
}

func TestWalker_MissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for missing root")
	}
}
