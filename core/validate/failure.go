package validate

import "strings"

// FailureKind classifies a discrepancy between a fixture's expectations and
// an interpreter run.
type FailureKind string

const (
	KindMalformedFixture  FailureKind = "malformed-fixture"
	KindDecode            FailureKind = "decode"
	KindRuntimeMissing    FailureKind = "runtime-missing"
	KindRuntimeMessage    FailureKind = "runtime-message"
	KindStackTraceMissing FailureKind = "stack-trace-missing"
	KindStackTraceLine    FailureKind = "stack-trace-line"
	KindUnexpectedError   FailureKind = "unexpected-error"
	KindUnexpectedStderr  FailureKind = "unexpected-stderr"
	KindTruncated         FailureKind = "truncated"
	KindMissingError      FailureKind = "missing-error"
	KindExitCode          FailureKind = "exit-code"
	KindUnexpectedOutput  FailureKind = "unexpected-output"
	KindOutputMismatch    FailureKind = "output-mismatch"
	KindMissingOutput     FailureKind = "missing-output"
)

// Failure is one discrepancy. Context holds the raw interpreter lines that
// support the message, if any.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	Context []string    `json:"context,omitempty"`
}

// Lines returns the message followed by its context lines.
func (f Failure) Lines() []string {
	lines := make([]string, 0, 1+len(f.Context))
	lines = append(lines, f.Message)
	return append(lines, f.Context...)
}

func (f Failure) String() string {
	return strings.Join(f.Lines(), "\n")
}

// Lines flattens a failure list into the line-oriented form printed under a
// "FAIL: <path>" header.
func Lines(failures []Failure) []string {
	var lines []string
	for _, f := range failures {
		lines = append(lines, f.Lines()...)
	}
	return lines
}

// Count returns the number of failures of the given kind.
func Count(failures []Failure, kind FailureKind) int {
	n := 0
	for _, f := range failures {
		if f.Kind == kind {
			n++
		}
	}
	return n
}
