package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func symlinkOrSkip(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported here: %v", err)
	}
}

// TestClassify verifies every kind is reported without following links
func TestClassify(t *testing.T) {
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "file.txt")
	if err := os.WriteFile(file, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	dir := filepath.Join(tmpDir, "dir")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	linkToDir := filepath.Join(tmpDir, "link-dir")
	linkToFile := filepath.Join(tmpDir, "link-file")
	dangling := filepath.Join(tmpDir, "dangling")
	symlinkOrSkip(t, dir, linkToDir)
	symlinkOrSkip(t, file, linkToFile)
	symlinkOrSkip(t, filepath.Join(tmpDir, "nowhere"), dangling)

	tests := []struct {
		name     string
		path     string
		kind     Kind
		size     int64
		dangling bool
	}{
		{"regular file", file, File, 5, false},
		{"directory", dir, Directory, 0, false},
		{"link to directory", linkToDir, SymlinkToDir, 0, false},
		{"link to file", linkToFile, SymlinkToFile, 0, false},
		{"dangling link", dangling, SymlinkToFile, 0, true},
		{"missing", filepath.Join(tmpDir, "does-not-exist"), Missing, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := OS{}.Classify(tt.path)
			if err != nil {
				t.Fatalf("Classify(%s) failed: %v", tt.path, err)
			}
			if e.Kind != tt.kind {
				t.Errorf("Classify(%s) kind = %v, expected %v", tt.path, e.Kind, tt.kind)
			}
			if e.Size != tt.size {
				t.Errorf("Classify(%s) size = %d, expected %d", tt.path, e.Size, tt.size)
			}
			if e.Dangling != tt.dangling {
				t.Errorf("Classify(%s) dangling = %v, expected %v", tt.path, e.Dangling, tt.dangling)
			}
			if e.Path != tt.path {
				t.Errorf("Classify(%s) path = %s", tt.path, e.Path)
			}
		})
	}
}

// TestKindPredicates verifies link and directory helpers
func TestKindPredicates(t *testing.T) {
	tests := []struct {
		kind   Kind
		isLink bool
		isDir  bool
		name   string
	}{
		{Missing, false, false, "missing"},
		{File, false, false, "file"},
		{Directory, false, true, "directory"},
		{SymlinkToFile, true, false, "symlink_file"},
		{SymlinkToDir, true, true, "symlink_directory"},
	}

	for _, tt := range tests {
		if tt.kind.IsLink() != tt.isLink {
			t.Errorf("%v.IsLink() = %v", tt.kind, tt.kind.IsLink())
		}
		if tt.kind.IsDir() != tt.isDir {
			t.Errorf("%v.IsDir() = %v", tt.kind, tt.kind.IsDir())
		}
		if tt.kind.String() != tt.name {
			t.Errorf("String() = %s, expected %s", tt.kind.String(), tt.name)
		}
	}
}

// TestReadDirNamesSorted verifies listing is sorted and works through links
func TestReadDirNamesSorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), nil, 0644); err != nil {
			t.Fatalf("Failed to create %s: %v", name, err)
		}
	}

	names, err := OS{}.ReadDirNames(tmpDir)
	if err != nil {
		t.Fatalf("ReadDirNames failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Errorf("Expected sorted names, got %v", names)
	}

	link := filepath.Join(t.TempDir(), "link")
	symlinkOrSkip(t, tmpDir, link)
	names, err = OS{}.ReadDirNames(link)
	if err != nil {
		t.Fatalf("ReadDirNames through link failed: %v", err)
	}
	if len(names) != 3 {
		t.Errorf("Expected 3 names through link, got %v", names)
	}
}

// TestRemoveLinkKeepsTarget proves removing a link leaves its target alone
func TestRemoveLinkKeepsTarget(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "target")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}
	link := filepath.Join(tmpDir, "link")
	symlinkOrSkip(t, target, link)

	if err := (OS{}).Remove(link); err != nil {
		t.Fatalf("Remove(link) failed: %v", err)
	}
	if _, err := os.Lstat(link); !errors.Is(err, fs.ErrNotExist) {
		t.Error("link should be gone")
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("link target should survive: %v", err)
	}
}

// TestFakeDeleter verifies call recording and failure injection
func TestFakeDeleter(t *testing.T) {
	boom := errors.New("boom")
	fake := &FakeDeleter{
		Errors:    map[string]error{"/a": boom, "/b": boom},
		FailTimes: map[string]int{"/b": 1},
	}

	if err := fake.Remove("/a"); !errors.Is(err, boom) {
		t.Errorf("Expected boom for /a, got %v", err)
	}
	if err := fake.Remove("/a"); !errors.Is(err, boom) {
		t.Errorf("Expected /a to keep failing, got %v", err)
	}
	if err := fake.Remove("/b"); !errors.Is(err, boom) {
		t.Errorf("Expected first /b call to fail, got %v", err)
	}
	if err := fake.Remove("/b"); err != nil {
		t.Errorf("Expected second /b call to succeed, got %v", err)
	}
	if err := fake.Remove("/c"); err != nil {
		t.Errorf("Expected /c to succeed, got %v", err)
	}

	expected := []string{"/a", "/a", "/b", "/b", "/c"}
	if !reflect.DeepEqual(fake.Removed(), expected) {
		t.Errorf("Removed() = %v, expected %v", fake.Removed(), expected)
	}
}

// TestFakeDeleterDelegates verifies pass-through to a real deleter
func TestFakeDeleterDelegates(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	fake := &FakeDeleter{Delegate: OS{}}
	if err := fake.Remove(file); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("file should have been removed by delegate")
	}
}
