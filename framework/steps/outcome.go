package steps

import "fmt"

// Outcome is what a step's action returns: pass or fail, a short detail string, and optionally
// a block of notes to print after the status line.
type Outcome struct {
	failed bool
	detail string
	notes  Notes
}

func Pass(detail string) Outcome { return Outcome{detail: detail} }

func Passf(format string, args ...interface{}) Outcome {
	return Outcome{detail: fmt.Sprintf(format, args...)}
}

// Fail returns a failed Outcome whose detail is the error text.
func Fail(err error) Outcome {
	if err == nil {
		return Outcome{failed: true, detail: "failed with no error"}
	}
	return Outcome{failed: true, detail: err.Error()}
}

func Failf(format string, args ...interface{}) Outcome {
	return Outcome{failed: true, detail: fmt.Sprintf(format, args...)}
}

// WithNotes attaches verbatim lines to the outcome; an empty slice leaves it unchanged.
func (o Outcome) WithNotes(heading string, lines []string) Outcome {
	if len(lines) == 0 {
		return o
	}
	o.notes = Notes{Heading: heading, Lines: append([]string(nil), lines...)}
	return o
}

func (o Outcome) Failed() bool   { return o.failed }
func (o Outcome) Detail() string { return o.detail }
func (o Outcome) Notes() Notes   { return o.notes }
