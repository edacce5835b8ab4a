package live

import (
	"github.com/google/uuid"

	"github.com/FocuswithJustin/loxoracle/core/suite"
	"github.com/FocuswithJustin/loxoracle/core/validate"
)

// Message types.
const (
	TypeFixtureStarted = "fixture_started"
	TypeFixtureResult  = "fixture_result"
	TypeSuiteFinished  = "suite_finished"
)

// Message is one status update sent to websocket clients.
type Message struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id,omitempty"`
	Type      string      `json:"type"`
	Path      string      `json:"path,omitempty"`
	Verdict   string      `json:"verdict,omitempty"`
	Failures  []string    `json:"failures,omitempty"`
	Tally     suite.Tally `json:"tally"`
	Summary   string      `json:"summary,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Reporter is a suite.Reporter that broadcasts every event through a Hub.
type Reporter struct {
	Hub   *Hub
	RunID string
}

func (r *Reporter) Start(path string, t suite.Tally) {
	r.Hub.Broadcast(Message{ID: uuid.NewString(), RunID: r.RunID, Type: TypeFixtureStarted, Path: path, Tally: t})
}

func (r *Reporter) Result(o suite.Outcome, t suite.Tally) {
	r.Hub.Broadcast(Message{
		ID:       uuid.NewString(),
		RunID:    r.RunID,
		Type:     TypeFixtureResult,
		Path:     o.Path,
		Verdict:  string(o.Verdict),
		Failures: validate.Lines(o.Failures),
		Tally:    t,
	})
}

func (r *Reporter) Finish(t suite.Tally) {
	r.Hub.Broadcast(Message{ID: uuid.NewString(), RunID: r.RunID, Type: TypeSuiteFinished, Tally: t, Summary: t.Summary()})
}
