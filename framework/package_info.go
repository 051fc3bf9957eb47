// Package framework contains the transport-independent pieces of the relay test harness. The
// base package holds shared types such as Logger; the subpackages are:
//
// opt: a generic optional value type
//
// helpers: small generic and JSON utilities
//
// steps: named step sequences, their results, and the reporters that print or record them
//
// The general model is that a driver for one relay transport declares a steps.Sequence. Each
// step performs one exchange with the relay and returns an Outcome; the sequence runs the
// steps in order, stops early when a gating step fails, and hands every result to a Reporter.
// Domain knowledge about the relay protocols lives outside this package tree, in relaydef,
// bridge, mcpstdio and relaytests.
package framework
