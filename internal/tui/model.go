// Package tui implements the Bubble Tea dashboard: upload, analytics
// cards, distribution charts, upload history, and the assistant chat.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/chemviz/chemviz/internal/api"
	"github.com/chemviz/chemviz/internal/chart"
	"github.com/chemviz/chemviz/internal/chat"
	"github.com/chemviz/chemviz/internal/session"
)

const (
	tabOverview = iota
	tabDistribution
	tabHistory
	tabChat
)

const (
	replyDelay       = 800 * time.Millisecond
	fileColumnWidth  = 28
	chartLegendWidth = 24
	metricBarWidth   = 30
)

type historyMsg struct {
	sessions []api.Session
	err      error
}

type uploadMsg struct {
	session api.Session
	err     error
}

type reportMsg struct {
	path string
	err  error
}

type chatReplyMsg struct{}

// Model is the dashboard's Bubble Tea model. The current session is
// replaced wholesale by a fresh upload or a history selection; all
// chart output derives from it.
type Model struct {
	client  *api.Client
	manager *session.Manager
	log     *zap.Logger
	timeout time.Duration
	styles  styles

	tabs      []string
	activeTab int
	width     int
	height    int

	current *api.Session

	history        []api.Session
	historyTable   table.Model
	historyLoading bool

	uploadInput textinput.Model
	uploading   bool

	reporting bool
	note      string

	conv        *chat.Conversation
	chatInput   textinput.Model
	chatView    viewport.Model
	chatWaiting bool

	errMsg string
}

// NewModel constructs the dashboard model. noColor drops all foreground
// colors from the rendered output. log may be nil.
func NewModel(client *api.Client, manager *session.Manager, timeout time.Duration, noColor bool, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}

	uploadInput := textinput.New()
	uploadInput.Placeholder = "path/to/equipment.csv"
	uploadInput.CharLimit = 512

	chatInput := textinput.New()
	chatInput.Placeholder = "Ask the equipment assistant..."
	chatInput.CharLimit = 512

	m := &Model{
		client:       client,
		manager:      manager,
		log:          log,
		timeout:      timeout,
		styles:       newStyles(noColor),
		tabs:         []string{"Overview", "Distribution", "History", "Chat"},
		uploadInput:  uploadInput,
		chatInput:    chatInput,
		chatView:     viewport.New(80, 12),
		conv:         chat.New(),
		historyTable: newHistoryTable(nil),
	}
	m.refreshChatView()
	return m
}

func newHistoryTable(rows []table.Row) table.Model {
	return table.New(
		table.WithColumns([]table.Column{
			{Title: "File", Width: fileColumnWidth},
			{Title: "Date", Width: 10},
			{Title: "Items", Width: 6},
		}),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(8),
	)
}

// Init kicks off the initial history fetch.
func (m *Model) Init() tea.Cmd {
	m.historyLoading = true
	return m.fetchHistory()
}

func (m *Model) fetchHistory() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		sessions, err := m.client.History(ctx)
		return historyMsg{sessions: sessions, err: err}
	}
}

func (m *Model) upload(path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		s, err := m.client.UploadCSV(ctx, path)
		return uploadMsg{session: s, err: err}
	}
}

func (m *Model) generateReport(format api.ReportFormat) tea.Cmd {
	current := m.current
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		blob, err := m.client.GenerateReport(ctx, current.ID, format)
		if err != nil {
			return reportMsg{err: err}
		}
		name := current.ReportFileName(format)
		if err := os.WriteFile(name, blob, 0o644); err != nil {
			return reportMsg{err: fmt.Errorf("writing %s: %w", name, err)}
		}
		return reportMsg{path: name}
	}
}

// Update handles messages. Results of network commands arriving after
// quit are dropped by the runtime, which is the teardown boundary for
// state mutation.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chatView.Width = max(40, msg.Width-4)
		m.chatView.Height = max(6, msg.Height-12)
		m.refreshChatView()
		return m, nil

	case historyMsg:
		m.historyLoading = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("failed to load history: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.history = msg.sessions
		m.historyTable.SetRows(historyRows(msg.sessions))
		if m.current == nil && len(m.history) > 0 {
			m.current = &m.history[0]
		}
		return m, nil

	case uploadMsg:
		m.uploading = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("upload failed: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		s := msg.session
		m.current = &s
		m.note = fmt.Sprintf("uploaded %s", s.FileName)
		m.historyLoading = true
		return m, m.fetchHistory()

	case reportMsg:
		m.reporting = false
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("report failed: %v", msg.err)
			return m, nil
		}
		m.errMsg = ""
		m.note = fmt.Sprintf("report saved to %s", msg.path)
		return m, nil

	case chatReplyMsg:
		m.conv.Reply()
		m.chatWaiting = false
		m.refreshChatView()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.uploadInput.Focused() {
		switch msg.String() {
		case "esc":
			m.uploadInput.Blur()
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.uploadInput.Value())
			m.uploadInput.Blur()
			m.uploadInput.SetValue("")
			if path == "" {
				return m, nil
			}
			m.uploading = true
			m.note = ""
			return m, m.upload(path)
		}
		var cmd tea.Cmd
		m.uploadInput, cmd = m.uploadInput.Update(msg)
		return m, cmd
	}

	if m.activeTab == tabChat && m.chatInput.Focused() {
		switch msg.String() {
		case "esc":
			m.chatInput.Blur()
			return m, nil
		case "enter":
			text := m.chatInput.Value()
			if m.chatWaiting || !m.conv.Post(text) {
				return m, nil
			}
			m.chatInput.SetValue("")
			m.chatWaiting = true
			m.refreshChatView()
			return m, tea.Tick(replyDelay, func(time.Time) tea.Msg { return chatReplyMsg{} })
		}
		var cmd tea.Cmd
		m.chatInput, cmd = m.chatInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.setTab((m.activeTab + 1) % len(m.tabs))
		return m, nil
	case "shift+tab":
		m.setTab((m.activeTab + len(m.tabs) - 1) % len(m.tabs))
		return m, nil
	case "r":
		m.historyLoading = true
		return m, m.fetchHistory()
	case "u":
		if m.activeTab == tabOverview {
			return m, m.uploadInput.Focus()
		}
	case "p", "c", "j":
		if m.activeTab == tabOverview && m.current != nil && !m.reporting {
			m.reporting = true
			m.note = ""
			return m, m.generateReport(keyFormat(msg.String()))
		}
	case "i":
		if m.activeTab == tabChat {
			return m, m.chatInput.Focus()
		}
	case "enter":
		if m.activeTab == tabHistory && len(m.history) > 0 {
			idx := m.historyTable.Cursor()
			if idx >= 0 && idx < len(m.history) {
				m.current = &m.history[idx]
				m.setTab(tabOverview)
			}
			return m, nil
		}
	}

	if m.activeTab == tabHistory {
		var cmd tea.Cmd
		m.historyTable, cmd = m.historyTable.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) setTab(tab int) {
	m.activeTab = tab
	if tab == tabChat {
		m.refreshChatView()
	}
}

func keyFormat(key string) api.ReportFormat {
	switch key {
	case "c":
		return api.ReportCSV
	case "j":
		return api.ReportJSON
	}
	return api.ReportPDF
}

func historyRows(sessions []api.Session) []table.Row {
	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, table.Row{
			runewidth.Truncate(s.FileName, fileColumnWidth, "…"),
			s.CreatedAt.Format("2006-01-02"),
			fmt.Sprintf("%d", s.TotalCount),
		})
	}
	return rows
}

// View renders the dashboard.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteByte('\n')
	b.WriteString(m.renderNav())
	b.WriteString("\n\n")

	switch m.activeTab {
	case tabOverview:
		b.WriteString(m.renderOverview())
	case tabDistribution:
		b.WriteString(m.renderDistribution())
	case tabHistory:
		b.WriteString(m.renderHistory())
	case tabChat:
		b.WriteString(m.renderChat())
	}

	b.WriteString("\n\n")
	if m.errMsg != "" {
		b.WriteString(m.styles.error.Render(m.errMsg))
		b.WriteByte('\n')
	} else if m.note != "" {
		b.WriteString(m.styles.muted.Render(m.note))
		b.WriteByte('\n')
	}
	b.WriteString(m.styles.header.Render(m.helpLine()))
	return b.String()
}

func (m *Model) renderHeader() string {
	who := "anonymous"
	if u := m.manager.User(); u != nil {
		who = u.Username
	}
	title := m.styles.cardValue.Render("Chemical Equipment Visualizer")
	return title + "  " + m.styles.header.Render("signed in as "+who)
}

func (m *Model) renderNav() string {
	items := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			items = append(items, m.styles.activeNav.Render(tab))
		} else {
			items = append(items, m.styles.inactiveNav.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, items...)
}

func (m *Model) renderOverview() string {
	var b strings.Builder

	if m.uploading {
		b.WriteString(m.styles.muted.Render("Uploading..."))
	} else if m.uploadInput.Focused() {
		b.WriteString("Upload CSV: " + m.uploadInput.View())
	} else {
		b.WriteString(m.styles.muted.Render("Press u to upload a CSV file"))
	}
	b.WriteString("\n\n")

	if m.current == nil {
		if m.historyLoading {
			b.WriteString(m.styles.muted.Render("Loading..."))
		} else {
			b.WriteString(m.styles.muted.Render("No data yet. Upload a CSV to see analytics."))
		}
		return b.String()
	}

	s := m.current
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		m.metricCard("Equipment", fmt.Sprintf("%d", s.TotalCount)),
		m.metricCard("Avg Flowrate", fmt.Sprintf("%.1f", s.AvgFlowrate)),
		m.metricCard("Avg Pressure", fmt.Sprintf("%.1f", s.AvgPressure)),
		m.metricCard("Avg Temperature", fmt.Sprintf("%.1f", s.AvgTemperature)),
	)
	b.WriteString(cards)
	b.WriteString("\n")
	b.WriteString(m.styles.header.Render(fmt.Sprintf("%s · %s", s.FileName, s.CreatedAt.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")
	if m.reporting {
		b.WriteString(m.styles.muted.Render("Generating report..."))
	} else {
		b.WriteString(m.styles.muted.Render("Report: p = pdf, c = csv, j = json"))
	}
	return b.String()
}

func (m *Model) metricCard(title, value string) string {
	return m.styles.card.Render(m.styles.cardTitle.Render(title) + "\n" + m.styles.cardValue.Render(value))
}

func (m *Model) renderDistribution() string {
	if m.current == nil {
		return m.styles.muted.Render("No data yet. Upload a CSV to see the distribution.")
	}

	slices := chart.Slices(m.current.Distribution, chart.Total(m.current.Distribution))
	if len(slices) == 0 {
		return m.styles.muted.Render("The current dataset has no distribution data.")
	}

	labelWidth := 0
	for _, s := range slices {
		if w := runewidth.StringWidth(s.Category); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(m.styles.cardTitle.Render("Equipment Distribution"))
	b.WriteString("\n\n")
	for i, s := range slices {
		style := m.styles.slices[i%len(m.styles.slices)]
		bar := style.Render(chart.Bar(s.Span()/360, chartLegendWidth))
		fmt.Fprintf(&b, "%s %4d (%s%%) %s\n", runewidth.FillRight(s.Category, labelWidth), s.Count, s.Percentage, bar)
	}

	b.WriteString("\n")
	b.WriteString(m.styles.cardTitle.Render("Average Parameters"))
	b.WriteString("\n\n")
	bars := chart.Bars(
		[]string{"Flowrate", "Pressure", "Temperature"},
		[]float64{m.current.AvgFlowrate, m.current.AvgPressure, m.current.AvgTemperature},
	)
	for i, bar := range bars {
		style := m.styles.slices[i%len(m.styles.slices)]
		fmt.Fprintf(&b, "%-12s %8.1f %s\n", bar.Label, bar.Value, style.Render(chart.Bar(bar.Height, metricBarWidth)))
	}
	return b.String()
}

func (m *Model) renderHistory() string {
	if m.historyLoading {
		return m.styles.muted.Render("Loading...")
	}
	if len(m.history) == 0 {
		return m.styles.muted.Render("No uploads yet")
	}
	return m.historyTable.View() + "\n" + m.styles.header.Render("enter: open session · r: refresh")
}

func (m *Model) renderChat() string {
	var b strings.Builder
	b.WriteString(m.chatView.View())
	b.WriteString("\n")
	if m.chatWaiting {
		b.WriteString(m.styles.muted.Render("assistant is typing..."))
	} else if m.chatInput.Focused() {
		b.WriteString(m.chatInput.View())
	} else {
		b.WriteString(m.styles.muted.Render("Press i to write a message"))
	}
	return b.String()
}

func (m *Model) refreshChatView() {
	width := m.chatView.Width
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, msg := range m.conv.Messages() {
		var prefix string
		if msg.Sender == chat.SenderBot {
			prefix = m.styles.bot.Render("assistant")
		} else {
			prefix = m.styles.user.Render("you")
		}
		b.WriteString(prefix + " " + m.styles.header.Render(msg.Timestamp.Format("15:04")))
		b.WriteByte('\n')
		b.WriteString(wrap.Render(msg.Text))
		b.WriteString("\n\n")
	}
	m.chatView.SetContent(b.String())
	m.chatView.GotoBottom()
}

func (m *Model) helpLine() string {
	return "tab: switch panel · r: refresh · q: quit"
}
