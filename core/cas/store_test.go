package cas

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestPutAndGet(t *testing.T) {
	store := newTestStore(t)
	data := []byte("Undefined variable 'x'.\n[line 5] in script\n")

	d, err := store.Put(data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if d.SHA256 != Hash(data) || d.BLAKE3 != Blake3Hash(data) || d.Size != int64(len(data)) {
		t.Errorf("Put() digest = %+v", d)
	}

	got, err := store.Get(d.SHA256)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, want %q", got, data)
	}

	byB3, err := store.GetByBlake3(d.BLAKE3)
	if err != nil {
		t.Fatalf("GetByBlake3 failed: %v", err)
	}
	if string(byB3) != string(data) {
		t.Errorf("GetByBlake3() = %q, want %q", byB3, data)
	}

	if _, err := os.Stat(filepath.Join(store.root, filepath.FromSlash(BlobName(d.SHA256)))); err != nil {
		t.Errorf("blob not at BlobName(): %v", err)
	}
}

func TestPutDeduplicates(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Put([]byte("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Put([]byte("hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("digests differ: %+v vs %+v", first, second)
	}

	entries, err := os.ReadDir(filepath.Join(store.root, "sha256", first.SHA256[:2]))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("stored %d copies, want 1", len(entries))
	}
}

func TestEmptyBlob(t *testing.T) {
	store := newTestStore(t)

	d, err := store.Put(nil)
	if err != nil {
		t.Fatalf("Put(nil) failed: %v", err)
	}
	got, err := store.Get(d.SHA256)
	if err != nil || len(got) != 0 {
		t.Errorf("Get() = %q, %v", got, err)
	}
}

func TestGetErrors(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Get("not-a-hash"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("Get(invalid) error = %v, want ErrInvalidHash", err)
	}
	missing := Hash([]byte("never stored"))
	if _, err := store.Get(missing); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrBlobNotFound", err)
	}
	if _, err := store.GetByBlake3("XYZ"); !errors.Is(err, ErrInvalidHash) {
		t.Errorf("GetByBlake3(invalid) error = %v, want ErrInvalidHash", err)
	}
	if _, err := store.GetByBlake3(Blake3Hash([]byte("never stored"))); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("GetByBlake3(missing) error = %v, want ErrBlobNotFound", err)
	}
}

func TestNames(t *testing.T) {
	sha := Hash([]byte("x"))
	if got, want := BlobName(sha), "sha256/"+sha[:2]+"/"+sha; got != want {
		t.Errorf("BlobName() = %s, want %s", got, want)
	}
	b3 := Blake3Hash([]byte("x"))
	if got, want := IndexName(b3), "blake3/"+b3[:2]+"/"+b3; got != want {
		t.Errorf("IndexName() = %s, want %s", got, want)
	}
	for s, want := range map[string]bool{
		sha:                  true,
		"bogus":              false,
		strings.ToUpper(sha): false,
		sha[:63]:             false,
	} {
		if got := ValidDigest(s); got != want {
			t.Errorf("ValidDigest(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestPutWriteFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func() func()
	}{
		{
			name: "write",
			setup: func() func() {
				orig := tempFileWrite
				tempFileWrite = func(*os.File, []byte) (int, error) { return 0, fmt.Errorf("disk full") }
				return func() { tempFileWrite = orig }
			},
		},
		{
			name: "close",
			setup: func() func() {
				orig := tempFileClose
				tempFileClose = func(c io.Closer) error {
					c.Close()
					return fmt.Errorf("close failed")
				}
				return func() { tempFileClose = orig }
			},
		},
		{
			name: "rename",
			setup: func() func() {
				orig := osRename
				osRename = func(string, string) error { return fmt.Errorf("rename failed") }
				return func() { osRename = orig }
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			restore := tt.setup()
			defer restore()

			if _, err := store.Put([]byte("data")); err == nil {
				t.Error("Put should fail")
			}
			if _, err := store.Get(Hash([]byte("data"))); !errors.Is(err, ErrBlobNotFound) {
				t.Errorf("failed Put left a blob behind: %v", err)
			}
		})
	}
}

func TestNewStoreFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(filepath.Join(file, "store")); err == nil {
		t.Error("NewStore under a regular file should fail")
	}
}

func TestKnownDigests(t *testing.T) {
	if got, want := Hash([]byte("")), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"; got != want {
		t.Errorf("Hash(\"\") = %s, want %s", got, want)
	}
	if got, want := Blake3Hash([]byte("")), "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"; got != want {
		t.Errorf("Blake3Hash(\"\") = %s, want %s", got, want)
	}
}
