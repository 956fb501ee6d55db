package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "bdn.xml")

	if err := fs.WriteFile(path, []byte("<BDN/>")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "<BDN/>" {
		t.Errorf("expected %q, got %q", "<BDN/>", data)
	}

	// Overwrite replaces the content and leaves no temporary file behind.
	if err := fs.WriteFile(path, []byte("<BDN></BDN>")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	names, err := fs.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(names) != 1 || names[0] != "bdn.xml" {
		t.Errorf("unexpected directory content %v", names)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "out", "png", "00000000.png")

	if err := fs.WriteFile(path, []byte("png")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	exists, err := fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}
}

func TestFileSystem_MkdirAllAndExists(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if ok, err := fs.Exists(dir); err != nil || !ok {
		t.Errorf("Exists(dir) = %v, %v", ok, err)
	}
	if ok, err := fs.Exists(filepath.Join(dir, "missing")); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "events.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if ok, _ := fs.Exists(path); ok {
		t.Error("expected file to be removed")
	}
}

func TestFileSystem_ReadDir(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	for _, name := range []string{"b.ttf", "a.otf", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.ttf"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err := fs.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	want := []string{"a.otf", "b.ttf", "c.txt"}
	if len(names) != len(want) {
		t.Fatalf("ReadDir = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ReadDir[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if _, err := fs.ReadDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
