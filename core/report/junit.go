// Package report renders suite results for other tools: JUnit XML for CI
// systems and a canonical JSON summary whose digest fingerprints a run.
package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
)

// junitTestSuites is the <testsuites> document root.
type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       string          `xml:"time,attr"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitTestCase `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

// JUnit collects outcomes as a suite.Reporter and renders them as a JUnit
// XML report.
type JUnit struct {
	Name       string
	Properties map[string]string

	outcomes []suite.Outcome
	tally    suite.Tally
	started  time.Time
	elapsed  time.Duration
}

// NewJUnit creates an empty JUnit collector.
func NewJUnit(name string) *JUnit {
	return &JUnit{Name: name, Properties: map[string]string{}}
}

func (j *JUnit) Start(string, suite.Tally) {
	if j.started.IsZero() {
		j.started = time.Now()
	}
}

func (j *JUnit) Result(outcome suite.Outcome, tally suite.Tally) {
	j.outcomes = append(j.outcomes, outcome)
	j.tally = tally
}

func (j *JUnit) Finish(tally suite.Tally) {
	j.tally = tally
	if !j.started.IsZero() {
		j.elapsed = time.Since(j.started)
	}
}

// Write renders the report. Fixtures are grouped into one testsuite per
// directory, in first-seen order.
func (j *JUnit) Write(w io.Writer) error {
	doc := junitTestSuites{
		Name:     j.Name,
		Tests:    j.tally.Total(),
		Failures: j.tally.Failed,
		Skipped:  j.tally.Skipped,
		Time:     seconds(j.elapsed),
	}

	index := make(map[string]int)
	for _, o := range j.outcomes {
		dir := path.Dir(o.Path)
		i, ok := index[dir]
		if !ok {
			i = len(doc.Suites)
			index[dir] = i
			doc.Suites = append(doc.Suites, junitTestSuite{Name: dir, Time: seconds(0)})
		}

		s := &doc.Suites[i]
		s.Tests++
		tc := junitTestCase{
			Name:      o.Path,
			ClassName: strings.ReplaceAll(dir, "/", "."),
			Time:      seconds(o.Duration),
		}
		switch o.Verdict {
		case suite.VerdictFail:
			s.Failures++
			tc.Failure = failureElement(o.Failures)
		case suite.VerdictSkip:
			s.Skipped++
			tc.Skipped = &junitSkipped{Message: o.SkipReason}
		}
		s.Cases = append(s.Cases, tc)
	}

	if len(doc.Suites) > 0 && len(j.Properties) > 0 {
		for _, name := range sortedKeys(j.Properties) {
			doc.Suites[0].Properties = append(doc.Suites[0].Properties, junitProperty{Name: name, Value: j.Properties[name]})
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write JUnit header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JUnit report: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write JUnit report: %w", err)
	}
	return nil
}

func failureElement(failures []validate.Failure) *junitFailure {
	f := &junitFailure{}
	if len(failures) > 0 {
		f.Message = failures[0].Message
		f.Type = string(failures[0].Kind)
	}
	f.Body = strings.Join(validate.Lines(failures), "\n")
	return f
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
