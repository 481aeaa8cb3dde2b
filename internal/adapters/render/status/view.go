package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pixzlo/pixzlo-bridge/internal/application"
	"github.com/pixzlo/pixzlo-bridge/internal/domain"
)

type RenderOptions struct {
	Now time.Time
	// MetadataTTL scales the freshness bar. Zero hides it.
	MetadataTTL time.Duration
}

func renderView(status application.Status, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Pixzlo Bridge"),
		s.header.Render(headerLine(status)),
	}

	lines = append(lines,
		s.section.Render(renderAccount(status, s)),
		s.section.Render(renderWorkspaces(status, s)),
		s.section.Render(renderFigma(status, opts, s)),
		s.section.Render(renderLinear(status, s)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(status application.Status) string {
	parts := []string{fmt.Sprintf("render cache: %d %s", status.RenderCacheSize, plural(status.RenderCacheSize, "frame", "frames"))}
	if !status.CapturedAt.IsZero() {
		parts = append(parts, "captured "+status.CapturedAt.Format("15:04:05"))
	}
	return strings.Join(parts, " · ")
}

func renderAccount(status application.Status, s styles) string {
	parts := []string{s.heading.Render("Account")}
	if status.Profile == nil {
		parts = append(parts, s.warning.Render("profile unavailable"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	who := strings.TrimSpace(status.Profile.Email)
	if name := strings.TrimSpace(status.Profile.Name); name != "" {
		who = fmt.Sprintf("%s <%s>", name, who)
	}
	parts = append(parts, s.detail.Render(who))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderWorkspaces(status application.Status, s styles) string {
	parts := []string{s.heading.Render("Workspace")}
	if !status.WorkspaceResolved {
		parts = append(parts, s.warning.Render("no workspace selected"))
	}

	if len(status.Workspaces) == 0 {
		parts = append(parts, s.empty.Render("No active workspaces."))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	for _, workspace := range status.Workspaces {
		parts = append(parts, workspaceLine(workspace, status.WorkspaceID, s))
	}
	if status.WorkspaceResolved && !containsWorkspace(status.Workspaces, status.WorkspaceID) {
		parts = append(parts, s.selected.Render(fmt.Sprintf("* %s", status.WorkspaceID))+" "+s.empty.Render("(not in profile)"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func workspaceLine(workspace domain.Workspace, selected domain.WorkspaceID, s styles) string {
	label := string(workspace.ID)
	if name := strings.TrimSpace(workspace.Name); name != "" {
		label = fmt.Sprintf("%s (%s)", name, workspace.ID)
	}
	if workspace.ID == selected {
		return s.selected.Render("* " + label)
	}
	return s.detail.Render("  " + label)
}

func containsWorkspace(workspaces []domain.Workspace, id domain.WorkspaceID) bool {
	for _, workspace := range workspaces {
		if workspace.ID == id {
			return true
		}
	}
	return false
}

func renderFigma(status application.Status, opts RenderOptions, s styles) string {
	parts := []string{s.heading.Render("Figma")}
	if status.FigmaErr != nil {
		parts = append(parts, s.warning.Render(errorLabel(status.FigmaErr)))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	if status.Figma == nil {
		parts = append(parts, s.empty.Render("n/a"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	metadata := status.Figma
	if !metadata.Connected {
		parts = append(parts, s.warning.Render("not connected"), s.empty.Render("run `pixzlo figma connect`"))
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	connected := "connected"
	if metadata.User != nil && metadata.User.Handle != "" {
		connected = fmt.Sprintf("connected as %s", metadata.User.Handle)
	}
	parts = append(parts, s.ok.Render(connected))
	parts = append(parts, s.detail.Render(fmt.Sprintf("design links: %d", len(metadata.DesignLinks))))
	if metadata.Preference != nil && metadata.Preference.FrameID != "" {
		frame := metadata.Preference.FrameName
		if frame == "" {
			frame = metadata.Preference.FrameID
		}
		parts = append(parts, s.detail.Render("preferred frame: "+frame))
	}
	if line := freshnessLine(status.FigmaExpiresAt, opts, s); line != "" {
		parts = append(parts, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderLinear(status application.Status, s styles) string {
	parts := []string{s.heading.Render("Linear")}
	switch {
	case status.LinearErr != nil:
		parts = append(parts, s.warning.Render(errorLabel(status.LinearErr)))
	case status.Linear == nil:
		parts = append(parts, s.empty.Render("n/a"))
	case !status.Linear.Connected:
		parts = append(parts, s.warning.Render("not connected"))
	default:
		line := "connected"
		if status.Linear.Organization != "" {
			line = fmt.Sprintf("connected to %s", status.Linear.Organization)
		}
		if status.Linear.UserName != "" {
			line += fmt.Sprintf(" as %s", status.Linear.UserName)
		}
		parts = append(parts, s.ok.Render(line))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func errorLabel(err error) string {
	switch domain.CodeOf(err) {
	case domain.CodeNoWorkspace:
		return "select a workspace first"
	case domain.CodeAuthRequired:
		return "sign-in required"
	default:
		return err.Error()
	}
}

// freshnessLine draws how much of the metadata TTL is left.
func freshnessLine(expiresAt time.Time, opts RenderOptions, s styles) string {
	if expiresAt.IsZero() || opts.Now.IsZero() || opts.MetadataTTL <= 0 {
		return ""
	}

	remaining := expiresAt.Sub(opts.Now)
	leftPercent := clampPercent(100 * remaining.Seconds() / opts.MetadataTTL.Seconds())
	bar := renderProgressBar(leftPercent, 20, s)
	label := s.label.Render("cache:")

	var meta string
	if remaining <= 0 {
		meta = s.warning.Render("expired")
	} else {
		meta = s.detail.Render(fmt.Sprintf("expires in %s", formatRemaining(remaining)))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, label, " ", bar, " ", meta)
}

func renderProgressBar(leftPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(leftPercent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
