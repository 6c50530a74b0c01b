package download

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "natives.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractNatives_SkipsMetaInf(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"libnative.so":        "binary",
		"META-INF/MANIFEST.MF": "manifest",
	})
	dest := t.TempDir()

	if err := ExtractNatives(zipPath, dest); err != nil {
		t.Fatalf("ExtractNatives: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "libnative.so")); err != nil {
		t.Errorf("expected libnative.so to be extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "META-INF")); err == nil {
		t.Error("expected META-INF to be skipped")
	}
}

func TestExtractNatives_ContentMatches(t *testing.T) {
	zipPath := buildZip(t, map[string]string{"a/b.dll": "hello world"})
	dest := t.TempDir()

	if err := ExtractNatives(zipPath, dest); err != nil {
		t.Fatalf("ExtractNatives: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "a", "b.dll"))
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("content = %q, want %q", data, "hello world")
	}
}
