package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestResolveDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/shop\n\ngo 1.24\n")

	r, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.ModulePath != "example.com/shop" {
		t.Errorf("module path = %q", r.ModulePath)
	}
	if r.Package != "" {
		t.Errorf("package = %q, want empty default", r.Package)
	}
	if !r.Header {
		t.Error("header should default to on")
	}
}

func TestResolveReadsYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/shop\n")
	writeFile(t, dir, "veld.yaml", "generate:\n  package: views\n  header: false\n")

	r, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Package != "views" {
		t.Errorf("package = %q, want views", r.Package)
	}
	if r.Header {
		t.Error("header = true, want false")
	}
}

func TestResolveRejectsBadPackageName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module example.com/shop\n")
	writeFile(t, dir, "veld.yaml", "generate:\n  package: \"my-views\"\n")

	if _, err := Resolve(dir); err == nil {
		t.Fatal("expected error for invalid package name")
	}
}

func TestResolveRejectsInvalidModulePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module EXAMPLE!!\n")

	if _, err := Resolve(dir); err == nil {
		t.Fatal("expected error for invalid module path")
	}
}

func TestResolveMissingGoMod(t *testing.T) {
	if _, err := Resolve(t.TempDir()); err == nil {
		t.Fatal("expected error without go.mod")
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	cfg, err := LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.Generate.Package != "" || cfg.Generate.Header != nil {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoadOptionalBadYaml(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "veld.yaml", "generate: [oops\n")

	if _, err := LoadOptional(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
