package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/fanout/pkg/async"
)

// Run shows the dashboard while exec runs the batch. exec must pass the
// observer it is given to the executor. Run returns once both the program
// and exec have finished, so the caller can read exec's results.
func Run(m Model, exec func(obs async.Observer), opts ...tea.ProgramOption) (Model, error) {
	p := tea.NewProgram(m, opts...)

	// Each item produces at most two events, so the observer never blocks
	// the executor.
	events := make(chan async.Event, 2*len(m.Items)+1)
	obs := async.ObserverFunc(func(e async.Event) {
		select {
		case events <- e:
		default:
		}
	})

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for e := range events {
			p.Send(EventMsg{Event: e})
		}
	}()

	execDone := make(chan struct{})
	go func() {
		defer close(execDone)
		exec(obs)
		// The executor emits nothing after it returns.
		close(events)
		<-forwarded
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	<-execDone
	if err != nil {
		return m, fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(Model)
	if fm.Err != nil {
		return fm, fm.Err
	}
	return fm, nil
}
