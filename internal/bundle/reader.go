package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/loxoracle/core/cas"
	"github.com/FocuswithJustin/loxoracle/core/errors"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/internal/archive"
)

// Bundle is a capture opened for reading, either a capture directory or a
// packed tar.xz.
type Bundle struct {
	Index *Index

	path string
	// base is the archive's top directory; empty for a capture directory.
	base  string
	store *cas.Store
}

// Open opens the capture directory or packed bundle at p. A packed bundle
// must contain every transcript its index names.
func Open(p string) (*Bundle, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, errors.NewIO("stat", p, err)
	}
	if info.IsDir() {
		return openDir(p)
	}
	return openArchive(p)
}

func openDir(dir string) (*Bundle, error) {
	indexPath := filepath.Join(dir, IndexFile)
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, errors.NewIO("read", indexPath, err)
	}
	idx, err := decodeIndex(data)
	if err != nil {
		return nil, err
	}
	store, err := cas.NewStore(filepath.Join(dir, BlobDir))
	if err != nil {
		return nil, err
	}
	return &Bundle{Index: idx, path: dir, store: store}, nil
}

func openArchive(p string) (*Bundle, error) {
	data, name, err := archive.FindFile(p, func(name string) bool {
		dir, file := path.Split(name)
		return file == IndexFile && strings.Count(dir, "/") == 1
	})
	if err != nil {
		return nil, err
	}
	idx, err := decodeIndex(data)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Index: idx, path: p, base: path.Dir(name)}

	names, err := archive.List(p)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(names))
	for _, n := range names {
		have[n] = true
	}
	for _, e := range idx.Fixtures {
		if !have[b.entryName(e.Transcript)] {
			return nil, errors.NewParse("bundle", p, fmt.Sprintf("transcript %s for %s is missing", e.Transcript, e.Path))
		}
	}
	return b, nil
}

func decodeIndex(data []byte) (*Index, error) {
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse bundle index: %w", err)
	}
	return &idx, nil
}

func (b *Bundle) entryName(rel string) string {
	return path.Join(b.base, rel)
}

// Entry returns the index entry of fixture.
func (b *Bundle) Entry(fixture string) (IndexEntry, error) {
	for _, e := range b.Index.Fixtures {
		if e.Path == fixture {
			return e, nil
		}
	}
	return IndexEntry{}, errors.NewNotFound("fixture", fixture)
}

// Transcript loads the transcript of fixture.
func (b *Bundle) Transcript(fixture string) (*runner.Transcript, error) {
	e, err := b.Entry(fixture)
	if err != nil {
		return nil, err
	}
	if b.base == "" {
		return runner.LoadTranscript(filepath.Join(b.path, filepath.FromSlash(e.Transcript)))
	}

	data, err := archive.ReadFile(b.path, b.entryName(e.Transcript))
	if err != nil {
		return nil, err
	}
	events, err := runner.ReadTranscript(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &runner.Transcript{Events: events, Path: e.Transcript}, nil
}

// Stream returns the bytes referenced by a STREAM_CAPTURED event.
func (b *Bundle) Stream(ev runner.TranscriptEvent) ([]byte, error) {
	if b.store != nil {
		return b.store.GetByBlake3(ev.BLAKE3)
	}
	if !cas.ValidDigest(ev.SHA256) {
		return nil, cas.ErrInvalidHash
	}
	data, err := archive.ReadFile(b.path, b.entryName(path.Join(BlobDir, cas.BlobName(ev.SHA256))))
	if err != nil {
		return nil, err
	}
	if cas.Hash(data) != ev.SHA256 {
		return nil, errors.NewParse("bundle", b.path, "stream "+ev.SHA256+" does not match its digest")
	}
	return data, nil
}
