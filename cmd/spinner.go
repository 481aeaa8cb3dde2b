package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

type authOutcome int

const (
	authPending authOutcome = iota
	authConnected
	authCancelled
	authFailed
)

func outcomeOf(err error) authOutcome {
	switch {
	case err == nil:
		return authConnected
	case errors.Is(err, domain.ErrCancelled):
		return authCancelled
	default:
		return authFailed
	}
}

// authorizationSettledMsg ends the wait with the session outcome.
type authorizationSettledMsg struct {
	outcome authOutcome
	err     error
}

var (
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type authorizationWaitModel struct {
	spinner   spinner.Model
	workspace string
	authorize tea.Cmd

	started time.Time
	elapsed time.Duration
	outcome authOutcome
	err     error
}

func newAuthorizationWaitModel(workspace string, authorize tea.Cmd, started time.Time) authorizationWaitModel {
	return authorizationWaitModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		workspace: workspace,
		authorize: authorize,
		started:   started,
	}
}

func (m authorizationWaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.authorize)
}

func (m authorizationWaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.outcome != authPending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.elapsed = msg.Time.Sub(m.started).Truncate(time.Second)
		return m, cmd
	case authorizationSettledMsg:
		m.outcome = msg.outcome
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m authorizationWaitModel) View() string {
	switch m.outcome {
	case authConnected:
		return connectedStyle.Render("figma connected for "+m.workspace) + "\n"
	case authCancelled:
		return cancelledStyle.Render("authorization window closed") + "\n"
	case authFailed:
		return failedStyle.Render("authorization failed") + "\n"
	}

	line := fmt.Sprintf("%s waiting for figma authorization for %s in the browser window", m.spinner.View(), m.workspace)
	if m.elapsed >= time.Second {
		line += fmt.Sprintf(" (%s)", m.elapsed)
	}
	return line
}

// waitForAuthorization runs authorize behind a spinner on output and returns
// its error once the session settles.
func waitForAuthorization(ctx context.Context, output io.Writer, workspace string, authorize func(context.Context) error) error {
	authorizeCmd := func() tea.Msg {
		err := authorize(ctx)
		return authorizationSettledMsg{outcome: outcomeOf(err), err: err}
	}

	program := tea.NewProgram(
		newAuthorizationWaitModel(workspace, authorizeCmd, time.Now()),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := program.Run()
	if err != nil {
		return err
	}

	settled, ok := final.(authorizationWaitModel)
	if !ok {
		return fmt.Errorf("unexpected final authorization model type %T", final)
	}
	return settled.err
}
