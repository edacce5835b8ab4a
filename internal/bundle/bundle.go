// Package bundle captures per-fixture transcripts of a suite run. Each
// transcript is a JSONL event log; the interpreter's output streams go to
// a content-addressed store and are referenced by digest. A capture
// directory can be packed into a single tar.xz for post-mortem analysis.
package bundle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/cas"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/internal/archive"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

// Layout of a capture directory.
const (
	TranscriptDir = "transcripts"
	BlobDir       = "blobs"
	IndexFile     = "index.json"
)

// Index lists the transcripts of a capture.
type Index struct {
	RunID       string       `json:"run_id,omitempty"`
	Interpreter string       `json:"interpreter"`
	CreatedAt   string       `json:"created_at"`
	Tally       suite.Tally  `json:"tally"`
	Fixtures    []IndexEntry `json:"fixtures"`
}

// IndexEntry points at one transcript.
type IndexEntry struct {
	Path       string `json:"path"`
	Verdict    string `json:"verdict"`
	Transcript string `json:"transcript"`
}

// Capture is a suite.Reporter that writes a transcript per fixture.
type Capture struct {
	ctx         context.Context
	dir         string
	interpreter string
	store       *cas.Store

	mu    sync.Mutex
	index Index
	err   error
}

// NewCapture prepares dir for a run of interpreter.
func NewCapture(ctx context.Context, dir, interpreter string) (*Capture, error) {
	if err := os.MkdirAll(filepath.Join(dir, TranscriptDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	store, err := cas.NewStore(filepath.Join(dir, BlobDir))
	if err != nil {
		return nil, err
	}
	return &Capture{
		ctx:         ctx,
		dir:         dir,
		interpreter: interpreter,
		store:       store,
		index:       Index{RunID: logging.GetRunID(ctx), Interpreter: interpreter, Fixtures: []IndexEntry{}},
	}, nil
}

// Err returns the first write error.
func (c *Capture) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Capture) fail(err error) {
	if err == nil {
		return
	}
	logging.WarnContext(c.ctx, "transcript_write_failed", "dir", c.dir, "error", err.Error())
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *Capture) Start(string, suite.Tally) {}

func (c *Capture) Result(o suite.Outcome, _ suite.Tally) {
	t, err := c.Transcript(o)
	if err != nil {
		c.fail(err)
		return
	}

	rel := path.Join(TranscriptDir, transcriptName(o.Path))
	dst := filepath.Join(c.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		c.fail(fmt.Errorf("failed to create transcript directory: %w", err))
		return
	}
	if err := t.Save(dst); err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	c.index.Fixtures = append(c.index.Fixtures, IndexEntry{Path: o.Path, Verdict: string(o.Verdict), Transcript: rel})
	c.mu.Unlock()
}

func (c *Capture) Finish(t suite.Tally) {
	c.mu.Lock()
	c.index.Tally = t
	c.index.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.mu.Unlock()
	if err != nil {
		c.fail(fmt.Errorf("failed to marshal index: %w", err))
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, IndexFile), data, 0644); err != nil {
		c.fail(fmt.Errorf("failed to write index: %w", err))
	}
}

// Transcript builds the event log for one outcome, storing its streams.
func (c *Capture) Transcript(o suite.Outcome) (*runner.Transcript, error) {
	t := runner.NewTranscript(o.Path)

	parsed := runner.TranscriptEvent{
		Type:        runner.EventFixtureParsed,
		Fixture:     o.Path,
		Interpreter: c.interpreter,
		Attributes:  map[string]interface{}{"expectations": o.Expectations},
	}
	if o.Set != nil {
		parsed.Attributes["output"] = len(o.Set.Output)
		parsed.Attributes["compile_errors"] = len(o.Set.CompileErrors)
		parsed.Attributes["exit_code"] = o.Set.ExitCode()
	}
	t.Append(parsed)

	if r := o.Result; r != nil {
		code := r.ExitCode
		t.Append(runner.TranscriptEvent{
			Type:     runner.EventInterpreterExited,
			ExitCode: &code,
			Attributes: map[string]interface{}{
				"duration_ms": r.Duration.Milliseconds(),
				"timed_out":   r.TimedOut,
			},
		})
		for _, s := range []struct {
			name string
			data []byte
		}{{"stdout", r.Stdout}, {"stderr", r.Stderr}} {
			d, err := c.store.Put(s.data)
			if err != nil {
				return nil, fmt.Errorf("failed to store %s of %s: %w", s.name, o.Path, err)
			}
			t.Append(runner.TranscriptEvent{
				Type:   runner.EventStreamCaptured,
				Stream: s.name,
				SHA256: d.SHA256,
				BLAKE3: d.BLAKE3,
				Bytes:  d.Size,
			})
		}
	}

	for _, f := range o.Failures {
		ev := runner.TranscriptEvent{Type: runner.EventFailure, Kind: string(f.Kind), Message: f.Message}
		if len(f.Context) > 0 {
			ev.Attributes = map[string]interface{}{"context": f.Context}
		}
		t.Append(ev)
	}

	t.Append(runner.TranscriptEvent{Type: runner.EventVerdict, Verdict: string(o.Verdict), Message: o.SkipReason})
	return t, nil
}

// transcriptName maps a reported fixture path to a transcript location
// inside the transcript directory. Parent segments become "_up_" so paths
// reported relative to a sibling directory stay inside the capture.
func transcriptName(fixture string) string {
	var out []string
	for _, seg := range strings.Split(path.Clean(filepath.ToSlash(fixture)), "/") {
		switch seg {
		case "", ".":
		case "..":
			out = append(out, "_up_")
		default:
			out = append(out, seg)
		}
	}
	return strings.Join(out, "/") + ".jsonl"
}

// Pack writes the capture directory dir to a tar.xz archive at dst. The
// archive's top directory is named after dst.
func Pack(dir, dst string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	absDst, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	if strings.HasPrefix(absDst, absDir+string(filepath.Separator)) {
		return fmt.Errorf("bundle %s must not be inside the capture directory %s", dst, dir)
	}

	base := strings.TrimSuffix(filepath.Base(dst), ".tar.xz")
	if err := archive.CreateTarXz(dir, dst, base); err != nil {
		return fmt.Errorf("failed to pack %s: %w", dir, err)
	}
	return nil
}
