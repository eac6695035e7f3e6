// Package console renders one panel per control loop tick.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/ghalamif/AegisMaint/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)

	overridePanelStyle = panelStyle.BorderForeground(lipgloss.Color("196"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)

	statusNormal   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusUnknown  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	actionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
)

// Dashboard writes a rendered panel to w for every tick.
type Dashboard struct {
	mu    sync.Mutex
	w     io.Writer
	units [domain.ChannelCount]string
}

func NewDashboard(w io.Writer, channels domain.ChannelSet) *Dashboard {
	d := &Dashboard{w: w}
	for _, ch := range domain.Channels() {
		d.units[ch] = channels[ch].Unit
	}
	return d
}

// OnTick matches the control loop's tick hook.
func (d *Dashboard) OnTick(t domain.TickReport) {
	out := Render(t, d.units)
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.w, out)
}

// Render draws the reading, health, and selected action of one tick.
func Render(t domain.TickReport, units [domain.ChannelCount]string) string {
	var rows []string
	for _, ch := range domain.Channels() {
		hs := t.Health[ch]
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(ch.String()),
			fmt.Sprintf("%8.2f %-4s ", t.Reading.Value(ch), units[ch]),
			styleForStatus(hs.Status).Render(hs.Status.String()),
		))
	}

	d := t.Decision
	action := actionStyle.Render(d.Action.String())
	if d.Override {
		action += statusCritical.Render(" (safety override)")
	}
	rows = append(rows,
		"",
		labelStyle.Render("severity")+fmt.Sprintf("%s (score %d)", d.Severity, d.Score),
		labelStyle.Render("action")+action,
		labelStyle.Render("outcome")+outcome(t),
	)
	if len(d.Predictions) > 0 {
		preds := make([]string, 0, len(d.Predictions))
		for _, ap := range d.Predictions {
			preds = append(preds, fmt.Sprintf("%s=%.2f@%.0f%%", ap.Action, ap.Prediction.PredictedReward, ap.Prediction.Confidence*100))
		}
		rows = append(rows, labelStyle.Render("predictions")+strings.Join(preds, " "))
	}

	style := panelStyle
	if d.Override {
		style = overridePanelStyle
	}
	title := titleStyle.Render("AegisMaint " + t.Reading.Timestamp.Format("15:04:05"))
	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(strings.Join(rows, "\n")))
}

func outcome(t domain.TickReport) string {
	status := "ok"
	if !t.Outcome.Success {
		status = "failed"
	}
	s := fmt.Sprintf("%s, reward %+.1f", status, t.Reward)
	if !t.Recorded {
		s += " (not recorded)"
	}
	return s
}

func styleForStatus(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusNormal:
		return statusNormal
	case domain.StatusWarning:
		return statusWarning
	case domain.StatusCritical:
		return statusCritical
	default:
		return statusUnknown
	}
}
