package report

import (
	"bytes"
	"fmt"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// JUnitSummary is what SummarizeJUnit extracts from a JUnit report.
type JUnitSummary struct {
	Tests    int
	Failures int
	Skipped  int
	// Failing lists the names of failing test cases in document order.
	Failing []string
	// Kinds counts failing cases by their failure type.
	Kinds map[string]int
}

// Passed returns the number of cases that neither failed nor were skipped.
func (s *JUnitSummary) Passed() int {
	return s.Tests - s.Failures - s.Skipped
}

var (
	countCases    = xpath.MustCompile("count(//testcase)")
	countFailures = xpath.MustCompile("count(//testcase[failure or error])")
	countSkipped  = xpath.MustCompile("count(//testcase[skipped])")
)

// SummarizeJUnit reads a JUnit XML report, from loxoracle or any other
// tool, and counts its test cases.
func SummarizeJUnit(data []byte) (*JUnitSummary, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing JUnit XML: %w", err)
	}
	if xmlquery.FindOne(doc, "//testsuites|//testsuite") == nil {
		return nil, fmt.Errorf("parsing JUnit XML: no testsuite element")
	}

	nav := xmlquery.CreateXPathNavigator(doc)
	summary := &JUnitSummary{
		Tests:    evalCount(countCases, nav),
		Failures: evalCount(countFailures, nav),
		Skipped:  evalCount(countSkipped, nav),
		Kinds:    map[string]int{},
	}

	failing, err := xmlquery.QueryAll(doc, "//testcase[failure or error]")
	if err != nil {
		return nil, fmt.Errorf("xpath query failed: %w", err)
	}
	for _, tc := range failing {
		summary.Failing = append(summary.Failing, tc.SelectAttr("name"))
		kind := "error"
		if f := xmlquery.FindOne(tc, "failure"); f != nil {
			kind = f.SelectAttr("type")
		}
		summary.Kinds[kind]++
	}

	return summary, nil
}

func evalCount(expr *xpath.Expr, nav xpath.NodeNavigator) int {
	if v, ok := expr.Evaluate(nav.Copy()).(float64); ok {
		return int(v)
	}
	return 0
}
