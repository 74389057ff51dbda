package tui

import "github.com/charmbracelet/lipgloss"

// Palette, same as the styled report table.
var (
	colorOK          = lipgloss.Color("#22c55e")
	colorFailed      = lipgloss.Color("#ef4444")
	colorInterrupted = lipgloss.Color("#eab308")
	colorAccent      = lipgloss.Color("#3b82f6")
	colorMuted       = lipgloss.Color("#6b7280")
	colorText        = lipgloss.Color("#f9fafb")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)
	footerStyle   = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	// Item states
	readyStyle   = lipgloss.NewStyle().Foreground(colorOK)
	failedStyle  = lipgloss.NewStyle().Foreground(colorFailed)
	warningStyle = lipgloss.NewStyle().Foreground(colorInterrupted)
	activeStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	dimStyle     = lipgloss.NewStyle().Foreground(colorMuted)

	progressBarFull  = lipgloss.NewStyle().Foreground(colorOK)
	progressBarEmpty = lipgloss.NewStyle().Foreground(colorMuted)
)

// Row markers, padded to the same width so names line up.
const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
	pending   = "[  ]"
	spinner   = "[..]"
)

var spinnerFrames = []string{"[. ]", "[..]", "[ .]", "[  ]"}
