package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/loxoracle/core/cas"
	"github.com/FocuswithJustin/loxoracle/core/errors"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
	"github.com/FocuswithJustin/loxoracle/internal/archive"
	"github.com/FocuswithJustin/loxoracle/internal/logging"
)

func failingOutcome() suite.Outcome {
	return suite.Outcome{
		Path:         "test/closure/a.lox",
		Verdict:      suite.VerdictFail,
		Expectations: 2,
		Result: &runner.Result{
			ExitCode: 70,
			Stdout:   []byte("1\n"),
			Stderr:   []byte("Undefined variable 'x'.\n[line 3]\n"),
			Duration: 3 * time.Millisecond,
		},
		Failures: []validate.Failure{
			{Kind: validate.KindMissingOutput, Message: "Missing expected output \"2\" on line 4."},
			{Kind: validate.KindUnexpectedError, Message: "Unexpected error:", Context: []string{"[line 3]"}},
		},
	}
}

func TestTranscriptEvents(t *testing.T) {
	c, err := NewCapture(context.Background(), t.TempDir(), "./clox")
	if err != nil {
		t.Fatalf("NewCapture() error = %v", err)
	}

	tr, err := c.Transcript(failingOutcome())
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}

	var types []string
	for _, ev := range tr.Events {
		types = append(types, ev.Type)
	}
	want := []string{
		runner.EventFixtureParsed,
		runner.EventInterpreterExited,
		runner.EventStreamCaptured,
		runner.EventStreamCaptured,
		runner.EventFailure,
		runner.EventFailure,
		runner.EventVerdict,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Errorf("event types mismatch (-want +got):\n%s", diff)
	}

	if exit := tr.GetExit(); exit == nil || *exit.ExitCode != 70 {
		t.Errorf("GetExit() = %+v", exit)
	}
	streams := tr.GetStreams()
	if streams["stderr"].BLAKE3 != cas.Blake3Hash([]byte("Undefined variable 'x'.\n[line 3]\n")) {
		t.Errorf("stderr event = %+v", streams["stderr"])
	}
	if streams["stdout"].Bytes != 2 {
		t.Errorf("stdout bytes = %d", streams["stdout"].Bytes)
	}
	if tr.Verdict() != "fail" || len(tr.GetFailures()) != 2 {
		t.Errorf("verdict %q, %d failures", tr.Verdict(), len(tr.GetFailures()))
	}
}

func TestTranscriptSkipped(t *testing.T) {
	c, err := NewCapture(context.Background(), t.TempDir(), "./clox")
	if err != nil {
		t.Fatal(err)
	}
	tr, err := c.Transcript(suite.Outcome{Path: "test/benchmark/fib.lox", Verdict: suite.VerdictSkip, SkipReason: suite.SkipExcluded})
	if err != nil {
		t.Fatal(err)
	}
	if tr.EventCount() != 2 || tr.GetExit() != nil {
		t.Errorf("skipped fixture events = %+v", tr.Events)
	}
	if last := tr.Events[1]; last.Verdict != "skip" || last.Message != suite.SkipExcluded {
		t.Errorf("verdict event = %+v", last)
	}
}

func TestCaptureAndPack(t *testing.T) {
	ctx := logging.WithRunID(context.Background(), "run-7")
	dir := filepath.Join(t.TempDir(), "capture")
	c, err := NewCapture(ctx, dir, "./clox")
	if err != nil {
		t.Fatal(err)
	}

	pass := suite.Outcome{Path: "test/a.lox", Verdict: suite.VerdictPass, Expectations: 1, Result: &runner.Result{Stdout: []byte("1\n")}}
	fail := failingOutcome()
	var tally suite.Tally
	for _, o := range []suite.Outcome{pass, fail} {
		c.Start(o.Path, tally)
		tally.Add(o)
		c.Result(o, tally)
	}
	c.Finish(tally)
	if err := c.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	saved, err := runner.LoadTranscript(filepath.Join(dir, "transcripts", "test", "closure", "a.lox.jsonl"))
	if err != nil {
		t.Fatalf("LoadTranscript() error = %v", err)
	}
	if saved.Verdict() != "fail" {
		t.Errorf("saved verdict = %q", saved.Verdict())
	}

	dst := filepath.Join(t.TempDir(), "run-7.tar.xz")
	if err := Pack(dir, dst); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	b, err := Open(dst)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	idx := b.Index
	if idx.RunID != "run-7" || idx.Interpreter != "./clox" || idx.Tally != tally {
		t.Errorf("index = %+v", idx)
	}
	wantEntries := []IndexEntry{
		{Path: "test/a.lox", Verdict: "pass", Transcript: "transcripts/test/a.lox.jsonl"},
		{Path: "test/closure/a.lox", Verdict: "fail", Transcript: "transcripts/test/closure/a.lox.jsonl"},
	}
	if diff := cmp.Diff(wantEntries, idx.Fixtures); diff != "" {
		t.Errorf("index entries mismatch (-want +got):\n%s", diff)
	}

	names, err := archive.List(dst)
	if err != nil {
		t.Fatal(err)
	}
	blobs := 0
	for _, n := range names {
		if strings.HasPrefix(n, "run-7/blobs/sha256/") {
			blobs++
		}
	}
	// "1\n" is shared by both fixtures; the passing run has an empty stderr.
	if blobs != 3 {
		t.Errorf("archive holds %d blobs, want 3: %v", blobs, names)
	}
}

func TestPackRejectsNestedDestination(t *testing.T) {
	dir := t.TempDir()
	if err := Pack(dir, filepath.Join(dir, "out.tar.xz")); err == nil {
		t.Error("packing into the capture directory should fail")
	}
}

func TestCaptureWriteError(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCapture(context.Background(), dir, "./clox")
	if err != nil {
		t.Fatal(err)
	}
	// A file where the fixture's directory should be.
	if err := os.WriteFile(filepath.Join(dir, "transcripts", "test"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	c.Result(suite.Outcome{Path: "test/a.lox", Verdict: suite.VerdictPass}, suite.Tally{})
	if c.Err() == nil {
		t.Error("Err() should report the failed write")
	}
}

// capture runs outcomes through a fresh capture in dir.
func capture(t *testing.T, dir string, outcomes ...suite.Outcome) suite.Tally {
	t.Helper()
	c, err := NewCapture(context.Background(), dir, "./clox")
	if err != nil {
		t.Fatal(err)
	}
	var tally suite.Tally
	for _, o := range outcomes {
		tally.Add(o)
		c.Result(o, tally)
	}
	c.Finish(tally)
	if err := c.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	return tally
}

func TestTranscriptStaysInCaptureDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b", "capture")
	outside := suite.Outcome{Path: "../../../../outside/x.lox", Verdict: suite.VerdictPass}
	capture(t, dir, outside)

	if _, err := os.Stat(filepath.Join(root, "outside", "x.lox.jsonl")); err == nil {
		t.Fatal("transcript written outside the capture directory")
	}
	want := filepath.Join(dir, "transcripts", "_up_", "_up_", "_up_", "_up_", "outside", "x.lox.jsonl")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("transcript not at %s: %v", want, err)
	}

	dst := filepath.Join(root, "out.tar.xz")
	if err := Pack(dir, dst); err != nil {
		t.Fatal(err)
	}
	b, err := Open(dst)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	tr, err := b.Transcript(outside.Path)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if tr.Verdict() != "pass" {
		t.Errorf("verdict = %q", tr.Verdict())
	}
}

func TestTranscriptName(t *testing.T) {
	tests := map[string]string{
		"test/a.lox":           "test/a.lox.jsonl",
		"./test/../test/a.lox": "test/a.lox.jsonl",
		"../x/a.lox":           "_up_/x/a.lox.jsonl",
		"/abs/a.lox":           "abs/a.lox.jsonl",
		"a/../../b.lox":        "_up_/b.lox.jsonl",
	}
	for in, want := range tests {
		if got := transcriptName(in); got != want {
			t.Errorf("transcriptName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenDirectoryAndArchive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "capture")
	fail := failingOutcome()
	capture(t, dir, fail)

	dst := filepath.Join(t.TempDir(), "run.tar.xz")
	if err := Pack(dir, dst); err != nil {
		t.Fatal(err)
	}

	for name, p := range map[string]string{"directory": dir, "archive": dst} {
		t.Run(name, func(t *testing.T) {
			b, err := Open(p)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			tr, err := b.Transcript(fail.Path)
			if err != nil {
				t.Fatalf("Transcript() error = %v", err)
			}
			if !tr.HasFailures() || len(tr.GetFailures()) != 2 {
				t.Errorf("failures = %+v", tr.GetFailures())
			}
			if exit := tr.GetExit(); exit == nil || *exit.ExitCode != 70 {
				t.Errorf("GetExit() = %+v", exit)
			}
			stderr, err := b.Stream(tr.GetStreams()["stderr"])
			if err != nil {
				t.Fatalf("Stream() error = %v", err)
			}
			if string(stderr) != string(fail.Result.Stderr) {
				t.Errorf("stderr = %q", stderr)
			}

			if _, err := b.Transcript("test/none.lox"); !errors.Is(err, errors.ErrNotFound) {
				t.Errorf("Transcript(unknown) error = %v, want ErrNotFound", err)
			}
			if _, err := b.Stream(runner.TranscriptEvent{SHA256: "bogus", BLAKE3: "bogus"}); err == nil {
				t.Error("Stream() with an invalid digest should fail")
			}
		})
	}
}

func TestOpenRejectsMissingTranscript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "capture")
	capture(t, dir, failingOutcome())
	if err := os.Remove(filepath.Join(dir, "transcripts", "test", "closure", "a.lox.jsonl")); err != nil {
		t.Fatal(err)
	}

	dst := filepath.Join(t.TempDir(), "run.tar.xz")
	if err := Pack(dir, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dst); err == nil {
		t.Error("Open() should reject a bundle whose index names a missing transcript")
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.tar.xz")); err == nil {
		t.Error("Open() of a missing bundle should fail")
	}
}
