// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/medjc09/pkg/hub"
	"github.com/Thermoquad/medjc09/pkg/medjc09"
)

// hubClient is the part of hub.Hub the monitor drives.
type hubClient interface {
	StartPolling(ctx context.Context) (*medjc09.StartPollingResult, error)
	StopPolling(ctx context.Context) (*medjc09.StopPollingResult, error)
	SetPollingRate(ctx context.Context, rateMs uint16) (*medjc09.SetPollingRateResult, error)
	GetPollingRate(ctx context.Context) (*medjc09.PollingRateResult, error)
	Stats() medjc09.Statistics
}

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Latest polling report
type reportData struct {
	received time.Time
	report   *medjc09.PollingReportResult
	meVolts  [medjc09.ChannelCount]float64
	smeVolts [medjc09.ChannelCount]float64
}

// TUI model
type monitorModel struct {
	client        hubClient
	connInfo      string
	stats         medjc09.Statistics
	tracker       medjc09.ReportTracker
	eventLog      []logEntry
	maxLogEntries int
	lastReport    *reportData
	reportCount   uint64
	polling       bool
	rate          uint16
	hasRate       bool
	rateInput     textinput.Model
	editingRate   bool
	start         time.Time
	width         int
	height        int
	quitting      bool
	lost          bool
}

// Messages
type monitorTickMsg time.Time

type reportMsg struct {
	report   *medjc09.PollingReportResult
	received time.Time
}

type deviceErrorMsg struct {
	err *medjc09.DeviceError
}

type pollingStateMsg struct {
	polling bool
	err     error
}

type rateMsg struct {
	rate uint16
	set  bool
	err  error
}

type connectionLostMsg struct {
	err error
}

// formatUptime formats milliseconds as a human-friendly duration
func formatUptime(ms uint64) string {
	if ms == 0 {
		return "0 seconds"
	}

	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialMonitorModel(client hubClient, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "100"
	ti.CharLimit = 5
	ti.Width = 10

	return monitorModel{
		client:        client,
		connInfo:      connInfo,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		rateInput:     ti,
		start:         time.Now(),
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	cmds := []tea.Cmd{monitorTickCmd(), tea.EnterAltScreen, m.queryRateCmd()}
	if monitorAutoStart {
		cmds = append(cmds, m.setPollingCmd(true))
	}
	return tea.Batch(cmds...)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) setPollingCmd(on bool) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var err error
		if on {
			_, err = client.StartPolling(ctx)
		} else {
			_, err = client.StopPolling(ctx)
		}
		return pollingStateMsg{polling: on, err: err}
	}
}

func (m monitorModel) queryRateCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		r, err := client.GetPollingRate(ctx)
		if err != nil {
			return rateMsg{err: err}
		}
		return rateMsg{rate: r.Rate}
	}
}

func (m monitorModel) setRateCmd(rate uint16) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := client.SetPollingRate(ctx, rate); err != nil {
			return rateMsg{set: true, err: err}
		}
		return rateMsg{rate: rate, set: true}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		m.stats = m.client.Stats()
		return m, monitorTickCmd()

	case reportMsg:
		m.reportCount++
		m.lastReport = &reportData{
			received: msg.received,
			report:   msg.report,
			meVolts:  hub.ChannelVoltages(msg.report.ME),
			smeVolts: hub.ChannelVoltages(msg.report.SME),
		}
		for _, a := range m.tracker.Check(msg.report) {
			m.addLogEntry(a.Message, true)
		}

	case deviceErrorMsg:
		m.addLogEntry(msg.err.Error(), true)

	case pollingStateMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Polling command failed: %v", msg.err), true)
			break
		}
		m.polling = msg.polling
		if msg.polling {
			m.addLogEntry("Polling started", false)
		} else {
			m.addLogEntry("Polling stopped", false)
		}

	case rateMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Polling rate: %v", msg.err), true)
			break
		}
		m.rate = msg.rate
		m.hasRate = true
		if msg.set {
			m.addLogEntry(fmt.Sprintf("Polling rate set to %d ms", msg.rate), false)
		}

	case connectionLostMsg:
		m.lost = true
		m.polling = false
		m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
	}

	return m, nil
}

func (m monitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editingRate {
		switch msg.String() {
		case "esc":
			m.editingRate = false
			m.rateInput.Blur()
			return m, nil
		case "enter":
			m.editingRate = false
			m.rateInput.Blur()
			rate, err := parseRate(m.rateInput.Value())
			m.rateInput.SetValue("")
			if err != nil {
				m.addLogEntry(err.Error(), true)
				return m, nil
			}
			return m, m.setRateCmd(rate)
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.rateInput, cmd = m.rateInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "s":
		if m.lost {
			return m, nil
		}
		return m, m.setPollingCmd(!m.polling)
	case "r":
		if m.lost {
			return m, nil
		}
		m.editingRate = true
		cmd := m.rateInput.Focus()
		return m, cmd
	}
	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	entry := logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("MEDJC09 - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Up %s | s: start/stop  r: rate  q: quit",
		m.connInfo, formatUptime(uint64(time.Since(m.start).Milliseconds())))))
	s.WriteString("\n\n")

	// Polling status
	switch {
	case m.lost:
		s.WriteString(errorStyle.Render("✗ Connection lost"))
	case m.polling:
		s.WriteString(valueStyle.Render("● Polling"))
	default:
		s.WriteString(warningStyle.Render("○ Polling stopped"))
	}
	if m.hasRate {
		s.WriteString(headerStyle.Render(fmt.Sprintf("  rate %d ms", m.rate)))
	}
	if m.editingRate {
		s.WriteString("  ")
		s.WriteString(labelStyle.Render("New rate (ms):"))
		s.WriteString(" ")
		s.WriteString(m.rateInput.View())
	}
	s.WriteString("\n\n")

	// Statistics
	st := m.stats
	var validPercent float64
	if st.TotalFrames > 0 {
		validPercent = float64(st.ValidFrames) * 100.0 / float64(st.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", st.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.ValidFrames, validPercent)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.Errors())),
	))
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Reports:"), valueStyle.Render(fmt.Sprintf("%d", st.ReportsDelivered)),
		labelStyle.Render("Timeouts:"), warningStyle.Render(fmt.Sprintf("%d", st.Timeouts)),
		labelStyle.Render("Discarded:"), warningStyle.Render(fmt.Sprintf("%d B", st.DiscardedBytes)),
	))
	if st.ErrorFrames > 0 || st.AnomalousValues > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Device Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.ErrorFrames)),
			labelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", st.AnomalousValues)),
		))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.1f fr/s", st.FrameRate)),
		labelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
			}
			return valueStyle.Render(fmt.Sprintf("%.1f err/s", st.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Latest report
	if m.lastReport != nil {
		r := m.lastReport.report
		s.WriteString(labelStyle.Render("Latest Report:"))
		s.WriteString("\n")

		reportContent := strings.Builder{}
		reportContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Voltage:"), valueStyle.Render(fmt.Sprintf("%.3f V", r.Voltage)),
			labelStyle.Render("Device time:"), valueStyle.Render(fmt.Sprintf("%d", r.Timestamp)),
			labelStyle.Render("Received:"), valueStyle.Render(m.lastReport.received.Format("15:04:05.000")),
		))
		for i := 0; i < medjc09.ChannelCount; i++ {
			reportContent.WriteString(fmt.Sprintf("%s ME %s  SME %s\n",
				labelStyle.Render(fmt.Sprintf("Ch %d:", i)),
				valueStyle.Render(fmt.Sprintf("%6d (%+.4f V)", r.ME[i], m.lastReport.meVolts[i])),
				valueStyle.Render(fmt.Sprintf("%6d (%+.4f V)", r.SME[i], m.lastReport.smeVolts[i])),
			))
		}

		s.WriteString(boxStyle.Render(strings.TrimRight(reportContent.String(), "\n")))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
