package project

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("<p>x</p>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestScanFindsComponents(t *testing.T) {
	root := t.TempDir()
	a := touch(t, root, "app.veld")
	b := touch(t, root, "widgets/card.veld")
	touch(t, root, "widgets/card.go")

	files, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files, want 2: %v", len(files), files)
	}
	if files[0] != a || files[1] != b {
		t.Errorf("files = %v, want [%s %s]", files, a, b)
	}
}

func TestScanSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "testdata/fixture.veld")
	touch(t, root, ".git/junk.veld")
	touch(t, root, "_examples/demo.veld")
	keep := touch(t, root, "ok/view.veld")

	files, err := Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0] != keep {
		t.Errorf("files = %v, want [%s]", files, keep)
	}
}

func TestScanSingleFile(t *testing.T) {
	root := t.TempDir()
	a := touch(t, root, "app.veld")

	files, err := Scan(a)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0] != a {
		t.Errorf("files = %v, want [%s]", files, a)
	}
}

func TestScanNonComponentFile(t *testing.T) {
	root := t.TempDir()
	g := touch(t, root, "main.go")

	files, err := Scan(g)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestScanMissingPath(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing path")
	}
}
