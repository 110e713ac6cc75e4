package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ChangedMsg is emitted after every edit so the host's change tracking
// keeps working. Value is the canonical E.164 number, empty while the
// input is incomplete.
type ChangedMsg struct {
	Value  string
	Region string
	Valid  bool
}

// CountryCommittedMsg is emitted when the picker commits a country.
type CountryCommittedMsg struct {
	Region      string
	CallingCode string
}

// SubmittedMsg is emitted when Enter is pressed with the picker closed.
// Message carries the field-level validation text when Valid is false.
type SubmittedMsg struct {
	Value   string
	Valid   bool
	Message string
}

// FocusedMsg is emitted when the field gains focus.
type FocusedMsg struct{}

// BlurredMsg is emitted once a pending blur survives the deferred
// focus re-check.
type BlurredMsg struct{}

// repositionTickMsg drives the overlay positioning-maintenance loop.
// The generation token scopes the subscription to one open() call;
// ticks from a closed picker are dropped.
type repositionTickMsg struct {
	generation int
}

func scheduleReposition(generation int) tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return repositionTickMsg{generation: generation}
	})
}

// caretPlacedMsg re-asserts the caret after the display text has been
// replaced. Runs after the current event turn; a newer edit makes a
// pending placement stale (last write wins).
type caretPlacedMsg struct {
	seq    int
	offset int
}

func scheduleCaretPlacement(seq, offset int) tea.Cmd {
	return func() tea.Msg {
		return caretPlacedMsg{seq: seq, offset: offset}
	}
}

// blurCheckMsg distinguishes a genuine blur from a transient focus move
// into the picker overlay: it fires after the current turn, and any
// picker interaction in between cancels it.
type blurCheckMsg struct {
	seq int
}

func scheduleBlurCheck(seq int) tea.Cmd {
	return func() tea.Msg {
		return blurCheckMsg{seq: seq}
	}
}
