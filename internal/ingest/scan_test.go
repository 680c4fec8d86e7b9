package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanFindsVideosRecursively(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.mp4"))
	touch(t, filepath.Join(dir, "sub", "a.MOV"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "thumb.jpg"))

	files, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("found %d files: %v", len(files), files)
	}
	// Sorted by path.
	if filepath.Base(files[0]) != "b.mp4" || filepath.Base(files[1]) != "a.MOV" {
		t.Fatalf("order = %v", files)
	}
}

func TestScanMissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing assets dir")
	}
}

func TestScanEmptyDir(t *testing.T) {
	files, err := Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := map[string]string{
		"assets/heart_valve-closeup.mp4": "heart valve closeup",
		"Aorta.mov":                      "Aorta",
		"a__b.mkv":                       "a b",
	}
	for in, want := range cases {
		if got := DeriveTitle(in); got != want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
