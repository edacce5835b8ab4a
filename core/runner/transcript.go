package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Injectable functions for testing.
var (
	osCreate    = os.Create
	jsonMarshal = json.Marshal
	fileWrite   = func(w io.Writer, data []byte) (int, error) { return w.Write(data) }
	writeString = func(w io.StringWriter, s string) (int, error) { return w.WriteString(s) }
)

// TranscriptEvent is a single event in a fixture transcript JSONL file.
type TranscriptEvent struct {
	Type        string                 `json:"t"`
	Seq         int                    `json:"seq"`
	Fixture     string                 `json:"fixture,omitempty"`
	Interpreter string                 `json:"interpreter,omitempty"`
	Stream      string                 `json:"stream,omitempty"`
	ExitCode    *int                   `json:"exit_code,omitempty"`
	Kind        string                 `json:"kind,omitempty"`
	Verdict     string                 `json:"verdict,omitempty"`
	SHA256      string                 `json:"sha256,omitempty"`
	BLAKE3      string                 `json:"blake3,omitempty"`
	Bytes       int64                  `json:"bytes,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
}

// Known event types
const (
	EventFixtureParsed     = "FIXTURE_PARSED"
	EventInterpreterExited = "INTERPRETER_EXITED"
	EventStreamCaptured    = "STREAM_CAPTURED"
	EventFailure           = "FAILURE"
	EventVerdict           = "VERDICT"
)

// ParseTranscript parses a transcript JSONL file and returns all events.
func ParseTranscript(path string) ([]TranscriptEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	return ReadTranscript(file)
}

// ReadTranscript parses transcript events from r.
func ReadTranscript(r io.Reader) ([]TranscriptEvent, error) {
	var events []TranscriptEvent
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var event TranscriptEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}

		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading transcript: %w", err)
	}

	return events, nil
}

// WriteTranscript writes a list of events to a transcript JSONL file.
func WriteTranscript(path string, events []TranscriptEvent) error {
	file, err := osCreate(path)
	if err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	defer file.Close()

	for _, event := range events {
		data, err := jsonMarshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if _, err := fileWrite(file, data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		if _, err := writeString(file, "\n"); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	return nil
}

// Transcript is an ordered event log for one fixture run.
type Transcript struct {
	Events []TranscriptEvent
	Path   string
}

// NewTranscript creates an empty transcript for a fixture.
func NewTranscript(fixture string) *Transcript {
	return &Transcript{Path: fixture}
}

// Append adds an event, assigning the next sequence number.
func (t *Transcript) Append(event TranscriptEvent) {
	event.Seq = len(t.Events)
	t.Events = append(t.Events, event)
}

// Save writes the transcript to path.
func (t *Transcript) Save(path string) error {
	return WriteTranscript(path, t.Events)
}

// LoadTranscript loads a transcript from a file.
func LoadTranscript(path string) (*Transcript, error) {
	events, err := ParseTranscript(path)
	if err != nil {
		return nil, err
	}
	return &Transcript{
		Events: events,
		Path:   path,
	}, nil
}

// GetExit returns the INTERPRETER_EXITED event if present.
func (t *Transcript) GetExit() *TranscriptEvent {
	for i := range t.Events {
		if t.Events[i].Type == EventInterpreterExited {
			return &t.Events[i]
		}
	}
	return nil
}

// GetStreams returns the captured stream events keyed by stream name.
func (t *Transcript) GetStreams() map[string]TranscriptEvent {
	streams := make(map[string]TranscriptEvent)
	for _, event := range t.Events {
		if event.Type == EventStreamCaptured {
			streams[event.Stream] = event
		}
	}
	return streams
}

// GetFailures returns all failure events.
func (t *Transcript) GetFailures() []TranscriptEvent {
	var failures []TranscriptEvent
	for _, event := range t.Events {
		if event.Type == EventFailure {
			failures = append(failures, event)
		}
	}
	return failures
}

// Verdict returns the recorded verdict, or "" if the run never finished.
func (t *Transcript) Verdict() string {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if t.Events[i].Type == EventVerdict {
			return t.Events[i].Verdict
		}
	}
	return ""
}

// HasFailures returns true if the transcript contains any failure events.
func (t *Transcript) HasFailures() bool {
	for _, event := range t.Events {
		if event.Type == EventFailure {
			return true
		}
	}
	return false
}

// EventCount returns the total number of events.
func (t *Transcript) EventCount() int {
	return len(t.Events)
}
