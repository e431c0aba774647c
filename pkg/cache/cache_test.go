package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jxtool/jx/pkg/maven"
)

func testKey(version string) Key {
	return Key{Coordinate: maven.Coordinate{Group: "com.example", Artifact: "lib", Version: version}}
}

// stage writes content to a temp file inside the cache's staging area
// and returns its path.
func stage(t *testing.T, c *Cache, content string) string {
	t.Helper()
	f, err := c.TempFile("test-*")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestCachePutAndHas(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := testKey("1.0")
	if c.Has(key) {
		t.Fatal("empty cache reports entry present")
	}

	path, err := c.Put(key, stage(t, c, "jar bytes"), "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !c.Has(key) {
		t.Fatal("entry missing after Put")
	}
	if path != c.Path(key) {
		t.Errorf("Put path = %q, want %q", path, c.Path(key))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jar bytes" {
		t.Errorf("cached content = %q", data)
	}
}

func TestCachePathLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	key := Key{
		Coordinate: maven.Coordinate{Group: "com.google.guava", Artifact: "guava", Version: "32.1.3-jre"},
	}
	want := filepath.Join(dir, "com", "google", "guava", "guava", "32.1.3-jre", "guava-32.1.3-jre.jar")
	if got := c.Path(key); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}

	key.Classifier = "sources"
	want = filepath.Join(dir, "com", "google", "guava", "guava", "32.1.3-jre", "guava-32.1.3-jre-sources.jar")
	if got := c.Path(key); got != want {
		t.Errorf("Path with classifier = %q, want %q", got, want)
	}
}

func TestCachePutVerifiesChecksum(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key := testKey("1.0")
	src := stage(t, c, "corrupted bytes")

	_, err = c.Put(key, src, "sha256:0000000000000000000000000000000000000000000000000000000000000000")
	var intErr *IntegrityError
	if !errors.As(err, &intErr) {
		t.Fatalf("err = %v, want *IntegrityError", err)
	}
	if c.Has(key) {
		t.Error("entry present after failed verification")
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("rejected temp file not removed")
	}
}

func TestCachePutAcceptsMatchingChecksum(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	src := stage(t, c, "verified bytes")
	checksum, err := FileChecksum(src)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Put(testKey("1.0"), src, checksum); err != nil {
		t.Fatalf("Put with matching checksum: %v", err)
	}
}

func TestCacheSizeAndClear(t *testing.T) {
	c, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Put(testKey("1.0"), stage(t, c, "12345"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put(testKey("2.0"), stage(t, c, "123"), ""); err != nil {
		t.Fatal(err)
	}

	size, err := c.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size < 8 {
		t.Errorf("Size = %d, want at least 8", size)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Has(testKey("1.0")) || c.Has(testKey("2.0")) {
		t.Error("entries present after Clear")
	}

	// The cache stays usable after Clear.
	if _, err := c.Put(testKey("3.0"), stage(t, c, "new"), ""); err != nil {
		t.Fatalf("Put after Clear: %v", err)
	}
}

func TestFileChecksumFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FileChecksum(path)
	if err != nil {
		t.Fatal(err)
	}
	// sha256("hello")
	want := "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("FileChecksum = %q, want %q", got, want)
	}
}
