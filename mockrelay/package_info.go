// Package mockrelay contains fake relays for testing the harness against known behavior:
// a scripted Unix socket relay for the bridge protocol, and fake MCP relays that run as
// child processes.
package mockrelay
