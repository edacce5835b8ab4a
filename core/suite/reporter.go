package suite

// Reporter receives suite progress. Calls are made from the goroutine
// running the suite, in order: Start and Result for each evaluated fixture,
// Result alone for excluded fixtures, then Finish once.
type Reporter interface {
	// Start is called before a fixture is parsed and run.
	Start(path string, tally Tally)
	// Result is called with the fixture outcome and the updated totals.
	Result(outcome Outcome, tally Tally)
	// Finish is called once with the final totals.
	Finish(tally Tally)
}

// MultiReporter fans progress out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Start(path string, tally Tally) {
	for _, r := range m {
		r.Start(path, tally)
	}
}

func (m MultiReporter) Result(outcome Outcome, tally Tally) {
	for _, r := range m {
		r.Result(outcome, tally)
	}
}

func (m MultiReporter) Finish(tally Tally) {
	for _, r := range m {
		r.Finish(tally)
	}
}

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Start(string, Tally)   {}
func (NopReporter) Result(Outcome, Tally) {}
func (NopReporter) Finish(Tally)          {}
