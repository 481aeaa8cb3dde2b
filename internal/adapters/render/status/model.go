package status

import (
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pixzlo/pixzlo-bridge/internal/application"
)

var ErrRenderAborted = errors.New("status render ended without a frame")

// snapshotMsg fixes the instant the freshness bars are measured against.
type snapshotMsg struct {
	at time.Time
}

type statusModel struct {
	status application.Status
	opts   RenderOptions
	styles styles

	frame string
	drawn bool
}

func (m statusModel) Init() tea.Cmd {
	now := m.opts.Now
	return func() tea.Msg {
		if now.IsZero() {
			now = time.Now()
		}
		return snapshotMsg{at: now}
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	snapshot, ok := msg.(snapshotMsg)
	if !ok {
		return m, nil
	}

	m.opts.Now = snapshot.at
	m.frame = renderView(m.status, m.opts, m.styles)
	m.drawn = true
	return m, tea.Quit
}

func (m statusModel) View() string {
	return m.frame
}

// Render draws status once off-screen and returns the frame.
func Render(status application.Status, opts RenderOptions) (string, error) {
	program := tea.NewProgram(
		statusModel{status: status, opts: opts, styles: newStyles()},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	final, err := program.Run()
	if err != nil {
		return "", err
	}

	drawn, ok := final.(statusModel)
	if !ok || !drawn.drawn {
		return "", ErrRenderAborted
	}
	return drawn.frame, nil
}
