package suite

import (
	"fmt"
	"strconv"
	"time"

	"github.com/FocuswithJustin/loxoracle/core/expect"
	"github.com/FocuswithJustin/loxoracle/core/runner"
	"github.com/FocuswithJustin/loxoracle/core/validate"
)

// Verdict is the result of evaluating one fixture.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
	VerdictSkip Verdict = "skip"
)

// Skip reasons.
const (
	SkipExcluded = "excluded"
	SkipNonTest  = "nontest"
)

// Outcome is everything known about one fixture evaluation.
type Outcome struct {
	// Path is relative to the suite base directory, with '/' separators.
	Path       string             `json:"path"`
	Verdict    Verdict            `json:"verdict"`
	SkipReason string             `json:"skip_reason,omitempty"`
	Set        *expect.Set        `json:"expectations_set,omitempty"`
	Result     *runner.Result     `json:"result,omitempty"`
	Failures   []validate.Failure `json:"failures,omitempty"`
	// Expectations is the number of markers the fixture declared.
	Expectations int           `json:"expectations"`
	Duration     time.Duration `json:"duration"`
}

// Tally accumulates suite totals.
type Tally struct {
	Passed       int `json:"passed"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	Expectations int `json:"expectations"`
}

// Add folds one outcome into the totals.
func (t *Tally) Add(o Outcome) {
	switch o.Verdict {
	case VerdictPass:
		t.Passed++
	case VerdictFail:
		t.Failed++
	case VerdictSkip:
		t.Skipped++
	}
	t.Expectations += o.Expectations
}

// Total is the number of fixtures seen.
func (t Tally) Total() int {
	return t.Passed + t.Failed + t.Skipped
}

// OK reports whether the suite succeeded.
func (t Tally) OK() bool {
	return t.Failed == 0
}

// Summary returns the final suite line.
func (t Tally) Summary() string {
	return t.FormatSummary(strconv.Itoa, strconv.Itoa)
}

// FormatSummary returns the final suite line with the passed and failed
// counts rendered by the given functions.
func (t Tally) FormatSummary(passed, failed func(int) string) string {
	if t.Failed == 0 {
		return fmt.Sprintf("All %s tests passed (%d expectations).", passed(t.Passed), t.Expectations)
	}
	return fmt.Sprintf("%s tests passed. %s tests failed.", passed(t.Passed), failed(t.Failed))
}
