// Package cas keeps captured interpreter streams in a content-addressed
// blob store. Blobs are named by their SHA-256 digest; a BLAKE3 index maps
// the faster digest used in transcripts and history back to the blob.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/zeebo/blake3"
)

// osRename is a variable to allow testing of rename errors.
var osRename = os.Rename

// tempFileWrite is a function variable for writing to temp files (for testing).
var tempFileWrite = func(f *os.File, data []byte) (int, error) {
	return f.Write(data)
}

// tempFileClose is a function variable for closing temp files (for testing).
var tempFileClose = func(f io.Closer) error {
	return f.Close()
}

// ErrBlobNotFound is returned when no blob matches a digest.
var ErrBlobNotFound = errors.New("blob not found")

// ErrInvalidHash is returned when a digest is not 64 lowercase hex characters.
var ErrInvalidHash = errors.New("invalid hash format")

var hexDigestPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// Digest names one stored blob.
type Digest struct {
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`
	Size   int64  `json:"bytes"`
}

// Store is a content-addressed blob store rooted at a directory:
//
//	<root>/sha256/<ab>/<digest>   blob bytes
//	<root>/blake3/<ab>/<digest>   SHA-256 digest of the same blob
type Store struct {
	root string
}

// NewStore opens (creating if needed) a store rooted at root.
func NewStore(root string) (*Store, error) {
	for _, sub := range []string{"sha256", "blake3"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create blob directory: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Put stores data and returns its digests. Storing the same bytes twice is
// a no-op.
func (s *Store) Put(data []byte) (Digest, error) {
	d := DigestOf(data)

	if err := s.writeOnce(s.blobPath(d.SHA256), data); err != nil {
		return Digest{}, fmt.Errorf("failed to store blob: %w", err)
	}
	if err := s.writeOnce(s.indexPath(d.BLAKE3), []byte(d.SHA256)); err != nil {
		return Digest{}, fmt.Errorf("failed to index blob: %w", err)
	}

	return d, nil
}

// writeOnce writes data to path through a temp file unless path exists.
func (s *Store) writeOnce(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create prefix directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFileWrite(tempFile, data); err != nil {
		tempFileClose(tempFile)
		os.Remove(tempPath)
		return fmt.Errorf("failed to write: %w", err)
	}
	if err := tempFileClose(tempFile); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := osRename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename: %w", err)
	}

	return nil
}

// Get returns the blob with the given SHA-256 digest.
func (s *Store) Get(sha string) ([]byte, error) {
	if !hexDigestPattern.MatchString(sha) {
		return nil, ErrInvalidHash
	}

	data, err := os.ReadFile(s.blobPath(sha))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// GetByBlake3 returns the blob with the given BLAKE3 digest.
func (s *Store) GetByBlake3(b3 string) ([]byte, error) {
	if !hexDigestPattern.MatchString(b3) {
		return nil, ErrInvalidHash
	}

	sha, err := os.ReadFile(s.indexPath(b3))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return s.Get(string(sha))
}

func (s *Store) blobPath(sha string) string {
	return filepath.Join(s.root, filepath.FromSlash(BlobName(sha)))
}

func (s *Store) indexPath(b3 string) string {
	return filepath.Join(s.root, filepath.FromSlash(IndexName(b3)))
}

// BlobName returns the slash-separated location of a blob relative to the
// store root. sha must be a valid digest.
func BlobName(sha string) string {
	return path.Join("sha256", sha[:2], sha)
}

// IndexName returns the location of a BLAKE3 index entry relative to the
// store root.
func IndexName(b3 string) string {
	return path.Join("blake3", b3[:2], b3)
}

// ValidDigest reports whether s is 64 lowercase hex characters.
func ValidDigest(s string) bool {
	return hexDigestPattern.MatchString(s)
}

// DigestOf computes the digests of data without storing it.
func DigestOf(data []byte) Digest {
	return Digest{
		SHA256: Hash(data),
		BLAKE3: Blake3Hash(data),
		Size:   int64(len(data)),
	}
}

// Hash computes the SHA-256 digest of data.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Blake3Hash computes the BLAKE3 digest of data.
func Blake3Hash(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}
