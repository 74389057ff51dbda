// Package tui provides a Bubble Tea-based terminal UI for watching a batch run.
package tui

import "github.com/imamik/fanout/pkg/async"

// EventMsg carries an executor lifecycle event.
type EventMsg struct {
	Event async.Event
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the batch has finished.
type DoneMsg struct{}
