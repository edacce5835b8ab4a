package expect

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/FocuswithJustin/loxoracle/core/errors"
)

// DefaultLanguage is the interpreter language assumed when none is given.
const DefaultLanguage = "c"

// maxLineBytes bounds a single fixture line. Generated stress fixtures
// stay far below it.
const maxLineBytes = 4 * 1024 * 1024

// Parser builds expectation sets for one interpreter language.
type Parser struct {
	// Language gates "[<lang> line N]" compile error markers. Markers with
	// no language apply to every interpreter.
	Language string
}

// NewParser creates a parser for the given interpreter language.
func NewParser(language string) Parser {
	if language == "" {
		language = DefaultLanguage
	}
	return Parser{Language: language}
}

// ParseFile reads and parses the fixture at path.
func (p Parser) ParseFile(path string) (*Set, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, errors.NewIO("open", path, err)
	}
	defer f.Close()

	return p.Parse(path, f)
}

// ParseBytes parses fixture contents held in memory.
func (p Parser) ParseBytes(path string, data []byte) (*Set, bool, error) {
	return p.Parse(path, bytes.NewReader(data))
}

// Parse scans r line by line and returns the fixture's expectation set.
// The boolean result is false when the file carries a non-test marker; the
// set is nil in that case. Lines are numbered from 1.
func (p Parser) Parse(path string, r io.Reader) (*Set, bool, error) {
	set := newSet(path)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		for _, exp := range ClassifyLine(scanner.Text(), lineNum) {
			switch e := exp.(type) {
			case OutputExpectation:
				set.Output = append(set.Output, e)
				set.Expectations++
			case CompileErrorExpectation:
				if !e.AppliesTo(p.Language) {
					continue
				}
				set.addCompileError(e.Key)
			case RuntimeErrorExpectation:
				rt := e
				set.Runtime = &rt
				set.RuntimeMarkers++
				set.Expectations++
			case NonTestMarker:
				return nil, false, nil
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, false, errors.NewFixture(path, lineNum+1, err)
	}

	return set, true, nil
}
