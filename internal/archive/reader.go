// Package archive reads and writes the compressed tar archives transcript
// bundles are shipped in.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/loxoracle/core/errors"
)

// Reader wraps a tar.Reader over an xz stream.
type Reader struct {
	*tar.Reader
	file *os.File
}

// NewReader opens a .tar.xz archive.
func NewReader(path string) (*Reader, error) {
	if !strings.HasSuffix(path, ".tar.xz") {
		return nil, errors.NewUnsupported("archive format", "only .tar.xz is read: "+filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	xzr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xz reader: %w", err)
	}

	return &Reader{
		Reader: tar.NewReader(xzr),
		file:   f,
	}, nil
}

// Close closes the archive file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Visitor is called for each archive entry. Return true to stop.
type Visitor func(header *tar.Header, content io.Reader) (stop bool, err error)

// Iterate walks through all entries in the archive, calling the visitor for each.
func (r *Reader) Iterate(visitor Visitor) error {
	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}

		stop, err := visitor(header, r)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// IterateArchive opens an archive and iterates through its entries.
func IterateArchive(path string, visitor Visitor) error {
	r, err := NewReader(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Iterate(visitor)
}

// List returns the names of the regular files in an archive.
func List(path string) ([]string, error) {
	var names []string
	err := IterateArchive(path, func(h *tar.Header, _ io.Reader) (bool, error) {
		if h.Typeflag == tar.TypeReg {
			names = append(names, h.Name)
		}
		return false, nil
	})
	return names, err
}

// ReadFile returns the contents of the entry named filename.
func ReadFile(archivePath, filename string) ([]byte, error) {
	var data []byte
	found := false
	err := IterateArchive(archivePath, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Name != filename {
			return false, nil
		}
		var err error
		data, err = io.ReadAll(r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", filename, err)
		}
		found = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("file not found in archive: %s", filename)
	}
	return data, nil
}

// FindFile returns the contents and name of the first entry matching
// predicate.
func FindFile(archivePath string, predicate func(name string) bool) ([]byte, string, error) {
	var data []byte
	var found string
	err := IterateArchive(archivePath, func(h *tar.Header, r io.Reader) (bool, error) {
		if h.Typeflag != tar.TypeReg || !predicate(h.Name) {
			return false, nil
		}
		var err error
		data, err = io.ReadAll(r)
		if err != nil {
			return true, fmt.Errorf("read %s: %w", h.Name, err)
		}
		found = h.Name
		return true, nil
	})
	if err != nil {
		return nil, "", err
	}
	if found == "" {
		return nil, "", fmt.Errorf("no matching file in archive: %s", archivePath)
	}
	return data, found, nil
}
