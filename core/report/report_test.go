package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
)

func sampleOutcomes() []suite.Outcome {
	return []suite.Outcome{
		{Path: "test/assignment/global.lox", Verdict: suite.VerdictPass, Expectations: 3, Duration: 12 * time.Millisecond},
		{
			Path:    "test/assignment/undefined.lox",
			Verdict: suite.VerdictFail,
			Failures: []validate.Failure{
				{Kind: validate.KindRuntimeMessage, Message: "Expected runtime error 'Undefined variable 'unknown'.' and got:", Context: []string{"boom"}},
				{Kind: validate.KindExitCode, Message: "Expected return code 70 and got 1. Stderr:"},
			},
			Expectations: 1,
		},
		{Path: "test/benchmark/fib.lox", Verdict: suite.VerdictSkip, SkipReason: suite.SkipExcluded},
		{Path: "test/scanning/keywords.lox", Verdict: suite.VerdictPass, Expectations: 16},
	}
}

// feed drives a reporter the way the suite does.
func feed(r suite.Reporter, outcomes []suite.Outcome) suite.Tally {
	var tally suite.Tally
	for _, o := range outcomes {
		if o.Verdict != suite.VerdictSkip {
			r.Start(o.Path, tally)
		}
		tally.Add(o)
		r.Result(o, tally)
	}
	r.Finish(tally)
	return tally
}

func TestJUnitWrite(t *testing.T) {
	j := NewJUnit("loxoracle")
	j.Properties["interpreter"] = "./clox"
	feed(j, sampleOutcomes())

	var buf bytes.Buffer
	if err := j.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<testsuites name="loxoracle" tests="4" failures="1" skipped="1"`,
		`<testsuite name="test/assignment" tests="2" failures="1" skipped="0"`,
		`<property name="interpreter" value="./clox"></property>`,
		`<testcase name="test/assignment/global.lox" classname="test.assignment" time="0.012">`,
		`<failure message="Expected runtime error &#39;Undefined variable &#39;unknown&#39;.&#39; and got:" type="runtime-message">`,
		`<skipped message="excluded"></skipped>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<testsuite ") != 3 {
		t.Errorf("want one testsuite per directory:\n%s", out)
	}
}

func TestJUnitEmpty(t *testing.T) {
	j := NewJUnit("empty")
	j.Finish(suite.Tally{})

	var buf bytes.Buffer
	if err := j.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), `tests="0"`) {
		t.Errorf("empty report = %s", buf.String())
	}
}

func TestSummarizeJUnitRoundTrip(t *testing.T) {
	j := NewJUnit("loxoracle")
	feed(j, sampleOutcomes())
	var buf bytes.Buffer
	if err := j.Write(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := SummarizeJUnit(buf.Bytes())
	if err != nil {
		t.Fatalf("SummarizeJUnit() error = %v", err)
	}
	want := &JUnitSummary{
		Tests:    4,
		Failures: 1,
		Skipped:  1,
		Failing:  []string{"test/assignment/undefined.lox"},
		Kinds:    map[string]int{"runtime-message": 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SummarizeJUnit() mismatch (-want +got):\n%s", diff)
	}
	if got.Passed() != 2 {
		t.Errorf("Passed() = %d, want 2", got.Passed())
	}
}

func TestSummarizeJUnitForeign(t *testing.T) {
	data := []byte(`<testsuite name="other">
  <testcase name="a"/>
  <testcase name="b"><error message="panic"/></testcase>
  <testcase name="c"><failure type="assert">x</failure></testcase>
</testsuite>`)

	got, err := SummarizeJUnit(data)
	if err != nil {
		t.Fatalf("SummarizeJUnit() error = %v", err)
	}
	if got.Tests != 3 || got.Failures != 2 || got.Skipped != 0 {
		t.Errorf("counts = %+v", got)
	}
	if diff := cmp.Diff(map[string]int{"error": 1, "assert": 1}, got.Kinds); diff != "" {
		t.Errorf("Kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeJUnitInvalid(t *testing.T) {
	for _, data := range []string{"<testsuite", "<html><body/></html>"} {
		if _, err := SummarizeJUnit([]byte(data)); err == nil {
			t.Errorf("SummarizeJUnit(%q) should fail", data)
		}
	}
}

func TestCollectorSummary(t *testing.T) {
	c := NewCollector("./clox", "c")
	outcomes := sampleOutcomes()
	// Reverse order must not change the summary.
	reversed := []suite.Outcome{outcomes[3], outcomes[2], outcomes[1], outcomes[0]}
	feed(c, reversed)

	s := c.Summary()
	wantPaths := []string{
		"test/assignment/global.lox",
		"test/assignment/undefined.lox",
		"test/benchmark/fib.lox",
		"test/scanning/keywords.lox",
	}
	var gotPaths []string
	for _, f := range s.Fixtures {
		gotPaths = append(gotPaths, f.Path)
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Errorf("fixture order mismatch (-want +got):\n%s", diff)
	}
	if s.Tally != (suite.Tally{Passed: 2, Failed: 1, Skipped: 1, Expectations: 20}) {
		t.Errorf("Tally = %+v", s.Tally)
	}
	if len(s.Fixtures[1].Failures) != 2 {
		t.Errorf("failing fixture failures = %v", s.Fixtures[1].Failures)
	}
}

func TestCanonical(t *testing.T) {
	s := Summary{
		Language:    "c",
		Interpreter: "./clox",
		Tally:       suite.Tally{Passed: 1, Expectations: 2},
		Fixtures:    []FixtureSummary{{Path: "a.lox", Verdict: "pass"}},
	}
	got, err := Canonical(s)
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}
	want := `{"fixtures":[{"path":"a.lox","verdict":"pass"}],"interpreter":"./clox","language":"c","tally":{"expectations":2,"failed":0,"passed":1,"skipped":0}}`
	if string(got) != want {
		t.Errorf("Canonical() =\n%s\nwant\n%s", got, want)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := NewCollector("./clox", "c")
	feed(a, sampleOutcomes())
	b := NewCollector("./clox", "c")
	o := sampleOutcomes()
	feed(b, []suite.Outcome{o[2], o[0], o[3], o[1]})

	fa, err := Fingerprint(a.Summary())
	if err != nil {
		t.Fatal(err)
	}
	fb, err := Fingerprint(b.Summary())
	if err != nil {
		t.Fatal(err)
	}
	if fa != fb {
		t.Errorf("fingerprints differ: %s vs %s", fa, fb)
	}
	if len(fa) != 64 {
		t.Errorf("fingerprint %q is not a hex BLAKE3 digest", fa)
	}

	c := NewCollector("./jlox", "java")
	feed(c, sampleOutcomes())
	fc, _ := Fingerprint(c.Summary())
	if fc == fa {
		t.Error("different interpreter should change the fingerprint")
	}
}
