// Package steps runs short, strictly ordered sequences of named steps and reports their
// outcomes. It plays the part that Go's testing package plays for unit tests, but it runs as
// ordinary application code against a live service.
//
// A Sequence is declared up front as a list of Step values. Each step performs one exchange
// and returns an Outcome (pass or fail, with a short detail string). Failures never propagate
// out of a step: a returned failure, or even a panic, is converted into a StepResult. A step
// marked Gate abandons the rest of its sequence when it fails, except for steps marked Always,
// which is how teardown is guaranteed to run.
//
// Every result goes to a Reporter. ConsoleReporter prints one PASS or FAIL line per step;
// JUnitReporter records the run as JUnit XML.
package steps
