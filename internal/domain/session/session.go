// Package session holds the upload session lifecycle primitives.
package session

import "sync/atomic"

// Status is the upload session state.
type Status string

// Session states.
const (
	Idle      Status = "idle"
	Ready     Status = "ready"
	Searching Status = "searching"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case Idle, Ready, Searching, Succeeded, Failed:
		return true
	default:
		return false
	}
}

// Token identifies one file selection. Zero means "no session".
type Token uint64

// Generator issues monotonically increasing tokens.
type Generator struct {
	last atomic.Uint64
}

// Next returns a fresh token, never zero.
func (g *Generator) Next() Token {
	return Token(g.last.Add(1))
}
