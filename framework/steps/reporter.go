package steps

import (
	"errors"

	"github.com/relaygo/relay-test-harness/framework"
)

// Reporter receives status information about every step of every sequence.
type Reporter interface {
	SequenceStarted(name string)
	StepStarted(id StepID)
	StepFinished(id StepID, result StepResult, debugOutput framework.CapturedOutput)
	StepSkipped(id StepID, reason string)
	EndLog(results Results) error
}

type nullReporter struct{}

func (nullReporter) SequenceStarted(string)                                    {}
func (nullReporter) StepStarted(StepID)                                        {}
func (nullReporter) StepFinished(StepID, StepResult, framework.CapturedOutput) {}
func (nullReporter) StepSkipped(StepID, string)                                {}
func (nullReporter) EndLog(Results) error                                      { return nil }

// NullReporter returns a Reporter that discards everything.
func NullReporter() Reporter { return nullReporter{} }

// MultiReporter forwards everything to each of its Reporters in order.
type MultiReporter struct {
	Reporters []Reporter
}

func (m MultiReporter) SequenceStarted(name string) {
	for _, r := range m.Reporters {
		r.SequenceStarted(name)
	}
}

func (m MultiReporter) StepStarted(id StepID) {
	for _, r := range m.Reporters {
		r.StepStarted(id)
	}
}

func (m MultiReporter) StepFinished(id StepID, result StepResult, debugOutput framework.CapturedOutput) {
	for _, r := range m.Reporters {
		r.StepFinished(id, result, debugOutput)
	}
}

func (m MultiReporter) StepSkipped(id StepID, reason string) {
	for _, r := range m.Reporters {
		r.StepSkipped(id, reason)
	}
}

func (m MultiReporter) EndLog(results Results) error {
	var errs []error
	for _, r := range m.Reporters {
		if err := r.EndLog(results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
