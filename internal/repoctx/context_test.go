package repoctx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func buildIn(t *testing.T, root string) (int, string) {
	t.Helper()
	cwd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	count, path, err := Build(root, "s1")
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return count, path
}

func TestBuildBundlesAllowedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), "package main")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a source file")
	writeFile(t, filepath.Join(root, "sub", "app.py"), "print('hi')")

	count, path := buildIn(t, root)
	if count != 2 {
		t.Fatalf("expected 2 files bundled, got %d", count)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(blob)
	if !strings.Contains(s, "--- FILE: main.go ---") || !strings.Contains(s, "print('hi')") {
		t.Fatalf("blob missing expected files:\n%s", s)
	}
	if strings.Contains(s, "notes.txt") {
		t.Fatalf("disallowed extension leaked into the blob")
	}
}

func TestBuildSkipsIgnoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "config.json"), "{}")
	writeFile(t, filepath.Join(root, "node_modules", "dep.js"), "x")
	writeFile(t, filepath.Join(root, "src", "ok.js"), "ok")

	count, path := buildIn(t, root)
	if count != 1 {
		t.Fatalf("expected only src/ok.js, got %d files", count)
	}
	blob, _ := os.ReadFile(path)
	if strings.Contains(string(blob), "dep.js") {
		t.Fatalf("ignored dir leaked into the blob")
	}
}

func TestBuildHonorsSizeCap(t *testing.T) {
	root := t.TempDir()
	big := strings.Repeat("a", maxContextSize)
	writeFile(t, filepath.Join(root, "big.md"), big)
	writeFile(t, filepath.Join(root, "small.md"), "tiny")

	count, path := buildIn(t, root)
	// the oversized chunk is dropped; the small file still fits
	if count != 1 {
		t.Fatalf("expected 1 file within the cap, got %d", count)
	}
	blob, _ := os.ReadFile(path)
	if len(blob) > maxContextSize {
		t.Fatalf("blob exceeds cap: %d", len(blob))
	}
}

func TestBuildMissingRoot(t *testing.T) {
	if _, _, err := Build(filepath.Join(t.TempDir(), "nope"), "s1"); err == nil {
		t.Fatalf("expected error for missing root")
	}
}

func TestCloneRejectsUntrustedURL(t *testing.T) {
	for _, url := range []string{
		"http://github.com/a/b",
		"https://gitlab.com/a/b",
		"git@github.com:a/b.git",
	} {
		if _, err := Clone(url, "s1"); err != ErrUntrustedURL {
			t.Fatalf("expected ErrUntrustedURL for %q, got %v", url, err)
		}
	}
}
