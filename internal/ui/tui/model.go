package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/fanout/internal/ui/benchmarks"
	"github.com/imamik/fanout/pkg/async"
)

// ItemState is the display state of one item.
type ItemState int

const (
	StatePending ItemState = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateNotCompleted
)

func (s ItemState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateNotCompleted:
		return "not completed"
	default:
		return "pending"
	}
}

// Finished reports whether the item has reached a final state.
func (s ItemState) Finished() bool {
	return s >= StateSucceeded
}

// Item is one row of the dashboard.
type Item struct {
	Name      string
	Kind      string
	State     ItemState
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// Model is the Bubble Tea model for the batch dashboard.
type Model struct {
	// Batch info
	BatchName   string
	BatchID     string
	Concurrency int

	// Items in submission order
	Items []Item
	index map[string]int

	// ETA
	EstimatedRemaining time.Duration
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width      int
	Height     int
	Err        error
	Done       bool
	Cancelling bool

	cancel func()
}

// NewModel creates a dashboard for items. cancel is called when the user
// asks to stop the batch; it may be nil.
func NewModel(batchName string, items []Item, concurrency int, cancel func()) Model {
	m := Model{
		BatchName:   batchName,
		Concurrency: concurrency,
		Items:       make([]Item, len(items)),
		index:       make(map[string]int, len(items)),
		StartTime:   time.Now(),
		cancel:      cancel,
	}
	for i, item := range items {
		item.State = StatePending
		m.Items[i] = item
		m.index[item.Name] = i
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// First press stops the batch, second press leaves without
			// waiting for in-flight items.
			if m.Done || m.Cancelling || m.cancel == nil {
				return m, tea.Quit
			}
			m.Cancelling = true
			m.cancel()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA(time.Now())
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.EstimatedRemaining = 0
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(e async.Event) {
	if m.BatchID == "" {
		m.BatchID = e.BatchID
	}

	idx, ok := m.index[e.Item]
	if !ok {
		if m.index == nil {
			m.index = make(map[string]int)
		}
		m.Items = append(m.Items, Item{Name: e.Item})
		idx = len(m.Items) - 1
		m.index[e.Item] = idx
	}
	item := &m.Items[idx]

	switch e.Type {
	case async.EventItemStarted:
		item.State = StateRunning
		item.StartedAt = e.StartedAt
	case async.EventItemCompleted:
		item.State = stateOf(e.Status)
		item.Duration = e.Duration
		item.Err = e.Err
	case async.EventItemSkipped:
		item.State = StateNotCompleted
		item.Err = e.Err
	}
}

func stateOf(s async.Status) ItemState {
	switch s {
	case async.StatusSucceeded:
		return StateSucceeded
	case async.StatusFailed:
		return StateFailed
	default:
		return StateNotCompleted
	}
}

// Counts returns the number of items per state.
func (m Model) Counts() map[ItemState]int {
	counts := make(map[ItemState]int, 5)
	for _, item := range m.Items {
		counts[item.State]++
	}
	return counts
}

func (m Model) finished() int {
	n := 0
	for _, item := range m.Items {
		if item.State.Finished() {
			n++
		}
	}
	return n
}

func (m *Model) updateETA(now time.Time) {
	s := benchmarks.Sample{Concurrency: m.Concurrency}
	for _, item := range m.Items {
		switch item.State {
		case StatePending:
			s.Pending++
		case StateRunning:
			s.Running = append(s.Running, now.Sub(item.StartedAt))
		case StateSucceeded, StateFailed:
			s.Completed = append(s.Completed, item.Duration)
		}
	}
	m.EstimatedRemaining = benchmarks.EstimateRemaining(s)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
