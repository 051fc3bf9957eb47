// Package relaytests contains the scripted conformance suites for the relay's two transports,
// and the mode selector that decides which of them run.
//
// Each suite is a steps.Sequence. Its steps decide pass or fail inline and report a short
// detail string; a failed gate step abandons the rest of the suite.
package relaytests
