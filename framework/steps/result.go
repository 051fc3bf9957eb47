package steps

import (
	"strings"
	"time"
)

// StepID identifies a step by the name of its sequence followed by the name of the step.
type StepID []string

func (s StepID) String() string {
	return strings.Join(s, "/")
}

// Plus returns a new StepID with name appended.
func (s StepID) Plus(name string) StepID {
	return append(append(StepID(nil), s...), name)
}

// Sequence returns the first component of the ID, or "" for an empty ID.
func (s StepID) Sequence() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Label returns the last component of the ID, which is what the console shows.
func (s StepID) Label() string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// Notes is a block of verbatim text attached to a step result, such as the diagnostic output
// of a child process.
type Notes struct {
	Heading string
	Lines   []string
}

func (n Notes) IsEmpty() bool { return len(n.Lines) == 0 }

type StepResult struct {
	ID         StepID
	Failed     bool
	Skipped    bool
	SkipReason string
	Detail     string
	Notes      Notes
	Quiet      bool
	Duration   time.Duration
}

type Results struct {
	Steps    []StepResult
	Failures []StepResult
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Find returns the result for the step with the given label in the given sequence.
func (r Results) Find(sequence, label string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.ID.Sequence() == sequence && s.ID.Label() == label {
			return s, true
		}
	}
	return StepResult{}, false
}

// Merge returns the combined results of two runs, r first.
func (r Results) Merge(other Results) Results {
	return Results{
		Steps:    append(append([]StepResult(nil), r.Steps...), other.Steps...),
		Failures: append(append([]StepResult(nil), r.Failures...), other.Failures...),
	}
}

func (r *Results) add(result StepResult) {
	r.Steps = append(r.Steps, result)
	if result.Failed {
		r.Failures = append(r.Failures, result)
	}
}
