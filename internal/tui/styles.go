package tui

import "github.com/charmbracelet/lipgloss"

// styles holds the dashboard's lipgloss styles. Built once per model;
// the no-color variant keeps layout (padding, borders, bold) but drops
// every foreground color.
type styles struct {
	activeNav   lipgloss.Style
	inactiveNav lipgloss.Style
	header      lipgloss.Style
	error       lipgloss.Style
	card        lipgloss.Style
	cardTitle   lipgloss.Style
	cardValue   lipgloss.Style
	muted       lipgloss.Style
	bot         lipgloss.Style
	user        lipgloss.Style
	slices      []lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		bordered := lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true)
		return styles{
			activeNav:   bordered.Bold(true),
			inactiveNav: bordered,
			header:      plain,
			error:       plain.Bold(true),
			card:        bordered,
			cardTitle:   plain,
			cardValue:   plain.Bold(true),
			muted:       plain,
			bot:         plain,
			user:        plain,
			slices:      []lipgloss.Style{plain, plain, plain, plain, plain},
		}
	}

	return styles{
		activeNav: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#8366D9")),
		inactiveNav: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B0B0B0")).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A")),
		header: lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E")),
		error:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")),
		card: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A")),
		cardTitle: lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		cardValue: lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true),
		muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")),
		bot:       lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		slices: []lipgloss.Style{
			lipgloss.NewStyle().Foreground(lipgloss.Color("#8366D9")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		},
	}
}
