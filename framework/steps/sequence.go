package steps

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/relaygo/relay-test-harness/framework"
)

// Step is one named action in a Sequence.
type Step struct {
	Name   string
	Action func() Outcome

	// Gate means that if this step fails, the steps after it are not attempted.
	Gate bool

	// Always means the step runs even after a gate has failed. Teardown steps use this.
	Always bool

	// QuietOnPass means the step prints nothing when it passes; preconditions and teardown
	// only speak up when something is wrong.
	QuietOnPass bool
}

// Sequence is an ordered list of steps run against one transport.
type Sequence struct {
	Name  string
	Steps []Step

	logger framework.CapturingLogger
}

func NewSequence(name string) *Sequence {
	return &Sequence{Name: name}
}

// Add appends steps to the sequence.
func (s *Sequence) Add(steps ...Step) *Sequence {
	s.Steps = append(s.Steps, steps...)
	return s
}

// Logger returns the sequence's root logger. Components that outlive a single step, such as
// an MCP session, should log here; while a step runs, whatever is logged is captured as part
// of that step's debug output.
func (s *Sequence) Logger() framework.Logger {
	return &s.logger
}

// Run executes the steps in order and returns their results. It never panics because of a
// step.
func (s *Sequence) Run(reporter Reporter) Results {
	if reporter == nil {
		reporter = nullReporter{}
	}
	reporter.SequenceStarted(s.Name)

	var results Results
	failedGate := ""
	sequenceID := StepID{s.Name}
	for _, step := range s.Steps {
		id := sequenceID.Plus(step.Name)
		if failedGate != "" && !step.Always {
			reason := fmt.Sprintf("not attempted because %q failed", failedGate)
			results.add(StepResult{ID: id, Skipped: true, SkipReason: reason})
			reporter.StepSkipped(id, reason)
			continue
		}

		if !step.QuietOnPass {
			reporter.StepStarted(id)
		}
		var stepLogger framework.CapturingLogger
		s.logger.AddChildLogger(&stepLogger)
		started := time.Now()
		outcome := runAction(step.Action)
		duration := time.Since(started)
		s.logger.RemoveChildLogger(&stepLogger)

		result := StepResult{
			ID:       id,
			Failed:   outcome.Failed(),
			Detail:   outcome.Detail(),
			Notes:    outcome.Notes(),
			Quiet:    step.QuietOnPass,
			Duration: duration,
		}
		results.add(result)
		reporter.StepFinished(id, result, stepLogger.Output())

		if result.Failed && step.Gate && failedGate == "" {
			failedGate = step.Name
		}
	}
	return results
}

func runAction(action func() Outcome) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failf("unexpected panic in step: %+v\n%s", r, string(debug.Stack()))
		}
	}()
	if action == nil {
		return Failf("step has no action")
	}
	return action()
}
