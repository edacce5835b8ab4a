package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/FocuswithJustin/loxoracle/core/cas"
	"github.com/FocuswithJustin/loxoracle/core/suite"
)

// Summary is the reproducible part of a suite run: timings and run IDs are
// left out so equal behaviour yields an equal fingerprint.
type Summary struct {
	Interpreter string           `json:"interpreter"`
	Language    string           `json:"language"`
	Tally       suite.Tally      `json:"tally"`
	Fixtures    []FixtureSummary `json:"fixtures"`
}

// FixtureSummary is the verdict of one fixture.
type FixtureSummary struct {
	Path     string   `json:"path"`
	Verdict  string   `json:"verdict"`
	Failures []string `json:"failures,omitempty"`
}

// Collector builds a Summary as a suite.Reporter.
type Collector struct {
	summary Summary
}

// NewCollector creates a collector for a run of interpreter in language.
func NewCollector(interpreter, language string) *Collector {
	return &Collector{summary: Summary{
		Interpreter: interpreter,
		Language:    language,
		Fixtures:    []FixtureSummary{},
	}}
}

func (c *Collector) Start(string, suite.Tally) {}

func (c *Collector) Result(o suite.Outcome, tally suite.Tally) {
	fs := FixtureSummary{Path: o.Path, Verdict: string(o.Verdict)}
	for _, f := range o.Failures {
		fs.Failures = append(fs.Failures, f.String())
	}
	c.summary.Fixtures = append(c.summary.Fixtures, fs)
	c.summary.Tally = tally
}

func (c *Collector) Finish(tally suite.Tally) {
	c.summary.Tally = tally
}

// Summary returns the collected summary with fixtures sorted by path.
func (c *Collector) Summary() Summary {
	s := c.summary
	s.Fixtures = append([]FixtureSummary(nil), c.summary.Fixtures...)
	sort.Slice(s.Fixtures, func(i, j int) bool { return s.Fixtures[i].Path < s.Fixtures[j].Path })
	return s
}

// Canonical returns the RFC 8785 canonical JSON form of s.
func Canonical(s Summary) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}
	canon, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize summary: %w", err)
	}
	return canon, nil
}

// Fingerprint returns the BLAKE3 digest of the canonical summary.
func Fingerprint(s Summary) (string, error) {
	canon, err := Canonical(s)
	if err != nil {
		return "", err
	}
	return cas.Blake3Hash(canon), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
