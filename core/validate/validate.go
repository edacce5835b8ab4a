// Package validate checks a completed interpreter run against the
// expectations its fixture declares.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/loxoracle/core/expect"
)

// maxReported caps unexpected stderr reports and exit-code context lines.
const maxReported = 10

var (
	syntaxErrorPattern = regexp.MustCompile(`\[.*line (\d+)\] (Error.+)`)
	stackTracePattern  = regexp.MustCompile(`\[line (\d+)\]`)
)

// Validator compares a run with an expectation set.
type Validator struct {
	// Strict rejects fixtures that declare more than one runtime error
	// marker instead of keeping the last one.
	Strict bool
}

// collector accumulates failures for one run.
type collector struct {
	failures []Failure
}

func (c *collector) add(kind FailureKind, context []string, format string, args ...interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	c.failures = append(c.failures, Failure{Kind: kind, Message: msg, Context: context})
}

// Validate returns every discrepancy between set and the run's exit code
// and captured streams. An empty result means the run passed.
func (v Validator) Validate(set *expect.Set, exitCode int, stdout, stderr []byte) []Failure {
	c := &collector{}

	if set.Malformed() {
		c.add(KindMalformedFixture, nil, "Test error: Cannot expect both compile and runtime errors.")
		return c.failures
	}
	if v.Strict && set.RuntimeMarkers > 1 {
		c.add(KindMalformedFixture, nil, "Test error: Cannot expect more than one runtime error.")
		return c.failures
	}

	if !utf8.Valid(stdout) || !utf8.Valid(stderr) {
		c.add(KindDecode, nil, "Error decoding output.")
		return c.failures
	}
	out := normalize(stdout)
	errLines := strings.Split(normalize(stderr), "\n")

	if set.Runtime != nil {
		c.runtimeError(set.Runtime, errLines)
	} else {
		c.compileErrors(set, errLines)
	}

	c.exitCode(set.ExitCode(), exitCode, errLines)
	c.output(set.Output, out)

	return c.failures
}

func normalize(b []byte) string {
	return strings.ReplaceAll(string(b), "\r\n", "\n")
}

func (c *collector) runtimeError(rt *expect.RuntimeErrorExpectation, errLines []string) {
	if len(errLines) < 2 {
		c.add(KindRuntimeMissing, nil, "Expected runtime error \"%s\" and got none.", rt.Message)
		return
	}

	// Leading compile errors can come from a module the fixture loads.
	line := 0
	for line < len(errLines) && syntaxErrorPattern.MatchString(errLines[line]) {
		line++
	}
	if line == len(errLines) {
		c.add(KindRuntimeMissing, nil, "Expected runtime error \"%s\" and got none.", rt.Message)
		return
	}

	if errLines[line] != rt.Message {
		c.add(KindRuntimeMessage, []string{errLines[line]}, "Expected runtime error \"%s\" and got:", rt.Message)
	}

	// Frames from builtin libraries may precede the script frame.
	stack := errLines[line+1:]
	for _, frame := range stack {
		m := stackTracePattern.FindStringSubmatch(frame)
		if m == nil {
			continue
		}
		got, _ := strconv.Atoi(m[1])
		if got != rt.Line {
			c.add(KindStackTraceLine, nil, "Expected runtime error on line %d but was on line %d.", rt.Line, got)
		}
		return
	}

	c.add(KindStackTraceMissing, append([]string(nil), stack...), "Expected stack trace and got:")
}

func (c *collector) compileErrors(set *expect.Set, errLines []string) {
	found := make(map[expect.ErrorKey]bool)
	unexpected := 0

	for _, line := range errLines {
		if m := syntaxErrorPattern.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[1])
			key := expect.ErrorKey{Line: n, Message: m[2]}
			if set.HasCompileError(key) {
				found[key] = true
				continue
			}
			if unexpected < maxReported {
				c.add(KindUnexpectedError, []string{line}, "Unexpected error:")
			}
			unexpected++
		} else if line != "" {
			if unexpected < maxReported {
				c.add(KindUnexpectedStderr, []string{line}, "Unexpected output on stderr:")
			}
			unexpected++
		}
	}

	if unexpected > maxReported {
		c.add(KindTruncated, nil, "(truncated %d more...)", unexpected-maxReported)
	}

	for _, key := range set.CompileErrors {
		if !found[key] {
			c.add(KindMissingError, nil, "Missing expected error: %s", key)
		}
	}
}

func (c *collector) exitCode(want, got int, errLines []string) {
	if want == got {
		return
	}

	context := errLines
	if len(context) > maxReported {
		context = append(append([]string(nil), context[:maxReported]...), "(truncated...)")
	} else {
		context = append([]string(nil), context...)
	}
	c.add(KindExitCode, context, "Expected return code %d and got %d. Stderr:", want, got)
}

func (c *collector) output(expected []expect.OutputExpectation, out string) {
	lines := strings.Split(out, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	index := 0
	for _, line := range lines {
		switch {
		case index >= len(expected):
			c.add(KindUnexpectedOutput, nil, "Got output \"%s\" when none was expected.", line)
		case expected[index].Text != line:
			c.add(KindOutputMismatch, nil, "Expected output \"%s\" on line %d and got \"%s\".",
				expected[index].Text, expected[index].Line, line)
		}
		index++
	}

	for ; index < len(expected); index++ {
		c.add(KindMissingOutput, nil, "Missing expected output \"%s\" on line %d.",
			expected[index].Text, expected[index].Line)
	}
}
