// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/hostlink/pkg/hostlink"
	"github.com/Thermoquad/hostlink/pkg/publish"
)

// watchDevice is the part of *device.PlcDevice the watch view drives.
type watchDevice interface {
	Node() hostlink.NodeID
	Status(ctx context.Context) (hostlink.Status, error)
	Test(ctx context.Context, data string) error
	Stats() hostlink.Statistics
	ResetStats()
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// TUI model
type watchModel struct {
	ctx       context.Context
	dev       watchDevice
	publisher *publish.Fanout
	connInfo  string
	interval  time.Duration

	// Last poll
	status   *hostlink.Status
	online   bool
	lastPoll time.Time
	lastErr  error
	stats    hostlink.Statistics

	eventLog      []eventLogEntry
	maxLogEntries int
	logCount      int // entries ever added

	spinner   spinner.Model
	polling   bool
	paused    bool
	testInput textinput.Model
	entering  bool

	width    int
	height   int
	quitting bool
}

// Messages
type watchTickMsg time.Time

type pollResultMsg struct {
	status     hostlink.Status
	err        error
	publishErr error
	at         time.Time
}

type testResultMsg struct {
	data string
	err  error
	rtt  time.Duration
}

func initialWatchModel(ctx context.Context, dev watchDevice, publisher *publish.Fanout, connInfo string, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	ti := textinput.New()
	ti.Placeholder = "HOSTLINK TEST"
	ti.CharLimit = hostlink.MaxTestDataSize
	ti.Width = 40

	return watchModel{
		ctx:           ctx,
		dev:           dev,
		publisher:     publisher,
		connInfo:      connInfo,
		interval:      interval,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		spinner:       sp,
		testInput:     ti,
		width:         80,
		height:        24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.pollCmd(),
		tea.EnterAltScreen,
	)
}

func watchTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

// pollCmd reads the status once and publishes the result.
func (m watchModel) pollCmd() tea.Cmd {
	ctx, dev, publisher := m.ctx, m.dev, m.publisher
	return func() tea.Msg {
		status, err := dev.Status(ctx)
		res := pollResultMsg{status: status, err: err, at: time.Now()}
		if publisher != nil && publisher.Len() > 0 {
			res.publishErr = publisher.Publish(ctx, publish.NewStatusMessage(dev.Node(), status, err))
		}
		return res
	}
}

func (m watchModel) testCmd(data string) tea.Cmd {
	ctx, dev := m.ctx, m.dev
	return func() tea.Msg {
		start := time.Now()
		err := dev.Test(ctx, data)
		return testResultMsg{data: data, err: err, rtt: time.Since(start)}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case watchTickMsg:
		if m.paused || m.polling {
			return m, watchTickCmd(m.interval)
		}
		m.polling = true
		return m, m.pollCmd()

	case pollResultMsg:
		m.polling = false
		m.applyPoll(msg)
		return m, watchTickCmd(m.interval)

	case testResultMsg:
		m.stats = m.dev.Stats()
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("TEST %q failed: %v", msg.data, msg.err), true)
		} else {
			m.addLogEntry(fmt.Sprintf("TEST %q echoed in %s", msg.data, msg.rtt.Round(time.Microsecond)), false)
		}
	}

	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entering {
		switch msg.String() {
		case "esc":
			m.entering = false
			m.testInput.Blur()
			return m, nil
		case "enter":
			data := m.testInput.Value()
			if data == "" {
				data = m.testInput.Placeholder
			}
			m.entering = false
			m.testInput.Blur()
			m.testInput.SetValue("")
			return m, m.testCmd(data)
		}
		var cmd tea.Cmd
		m.testInput, cmd = m.testInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "p":
		m.paused = !m.paused
		if m.paused {
			m.addLogEntry("Polling paused", false)
		} else {
			m.addLogEntry("Polling resumed", false)
		}
	case "r":
		m.dev.ResetStats()
		m.stats = m.dev.Stats()
		m.addLogEntry("Statistics reset", false)
	case "t":
		m.entering = true
		return m, m.testInput.Focus()
	}
	return m, nil
}

// applyPoll folds one poll result into the model and logs what changed.
func (m *watchModel) applyPoll(res pollResultMsg) {
	m.lastPoll = res.at
	m.lastErr = res.err
	m.stats = m.dev.Stats()

	if res.publishErr != nil {
		m.addLogEntry(fmt.Sprintf("PUBLISH: %v", res.publishErr), true)
	}

	if res.err != nil {
		if m.online {
			m.addLogEntry("Controller offline", true)
		}
		m.online = false
		m.addLogEntry(fmt.Sprintf("POLL: %v", res.err), true)
		return
	}

	for _, e := range statusEvents(m.status, m.online, res.status) {
		m.addLogEntry(e.message, e.isError)
	}
	status := res.status
	m.status = &status
	m.online = true
}

// statusEvents describes the differences between the previous and current
// status. prev is nil before the first successful poll.
func statusEvents(prev *hostlink.Status, wasOnline bool, cur hostlink.Status) []eventLogEntry {
	var events []eventLogEntry
	add := func(isError bool, format string, args ...interface{}) {
		events = append(events, eventLogEntry{timestamp: time.Now(), message: fmt.Sprintf(format, args...), isError: isError})
	}

	if prev == nil {
		add(false, "Controller online: %s", cur)
		return events
	}
	if !wasOnline {
		add(false, "Controller back online")
	}

	if prev.Mode != cur.Mode {
		add(false, "Mode changed: %s -> %s", prev.Mode, cur.Mode)
	}
	if prev.Memory.WriteProtected != cur.Memory.WriteProtected {
		add(false, "Write protection: %s", yesNo(cur.Memory.WriteProtected))
	}

	alarm := func(name string, was, is bool) {
		switch {
		case is && !was:
			add(true, "%s raised", name)
		case was && !is:
			add(false, "%s cleared", name)
		}
	}
	alarm("FALS", prev.Memory.FALSGenerated, cur.Memory.FALSGenerated)
	alarm("Fatal error", prev.Memory.FatalError, cur.Memory.FatalError)
	alarm("Message error", prev.Memory.MessageError, cur.Memory.MessageError)

	if cur.Message != "" && cur.Message != prev.Message {
		add(false, "Message: %q", cur.Message)
	}
	return events
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)
	m.logCount++

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (m watchModel) View() string {
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

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
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

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf("HOSTLINK - NODE %s", m.dev.Node())))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Every %s | q quit, p pause, r reset, t test",
		m.connInfo, m.interval)))
	s.WriteString("\n\n")

	// Poll state
	switch {
	case m.paused:
		s.WriteString(warningStyle.Render("⏸ Paused"))
	case m.polling:
		s.WriteString(m.spinner.View() + headerStyle.Render(" Polling..."))
	case m.lastPoll.IsZero():
		s.WriteString(m.spinner.View() + warningStyle.Render(" Waiting for first poll..."))
	case m.online:
		s.WriteString(statsValueStyle.Render("✓ Online"))
	default:
		s.WriteString(errorStyle.Render("✗ Offline"))
	}
	if !m.lastPoll.IsZero() {
		s.WriteString(headerStyle.Render(fmt.Sprintf("  last poll %s", m.lastPoll.Format("15:04:05"))))
	}
	s.WriteString("\n\n")

	// Status
	if m.status != nil {
		st := m.status
		statusContent := strings.Builder{}
		memory := "not reported"
		if st.Memory.SizeKnown() {
			memory = fmt.Sprintf("%d bytes", st.Memory.Size)
		}
		statusContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			statsLabelStyle.Render("Mode:"), statsValueStyle.Render(st.Mode.String()),
			statsLabelStyle.Render("Memory:"), statsValueStyle.Render(memory),
			statsLabelStyle.Render("Write Protected:"), statsValueStyle.Render(yesNo(st.Memory.WriteProtected)),
		))

		flag := func(on bool) string {
			if on {
				return errorStyle.Render("YES")
			}
			return statsValueStyle.Render("no")
		}
		statusContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
			statsLabelStyle.Render("FALS:"), flag(st.Memory.FALSGenerated),
			statsLabelStyle.Render("Fatal:"), flag(st.Memory.FatalError),
			statsLabelStyle.Render("Message Error:"), flag(st.Memory.MessageError),
		))
		if st.Message != "" {
			statusContent.WriteString(fmt.Sprintf("\n%s %s", statsLabelStyle.Render("Message:"), warningStyle.Render(st.Message)))
		}

		s.WriteString(statsLabelStyle.Render("Controller Status:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Render(statusContent.String()))
		s.WriteString("\n\n")
	}

	// Statistics
	st := m.stats
	var validPercent float64
	if st.TotalFrames > 0 {
		validPercent = float64(st.ValidFrames) * 100.0 / float64(st.TotalFrames)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Frames:"), statsValueStyle.Render(fmt.Sprintf("%d", st.TotalFrames)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", st.ValidFrames, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d", st.Errors())),
	))
	if st.Timeouts > 0 || st.TransportErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Timeouts:"), errorStyle.Render(fmt.Sprintf("%d", st.Timeouts)),
			statsLabelStyle.Render("Transport:"), errorStyle.Render(fmt.Sprintf("%d", st.TransportErrors)),
		))
	}
	if st.ChecksumErrors > 0 || st.FramingErrors > 0 || st.EndCodeErrors > 0 || st.StatusErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %d  %s %d  %s %d  %s %d\n",
			headerStyle.Render("fcs"), st.ChecksumErrors,
			headerStyle.Render("framing"), st.FramingErrors,
			headerStyle.Render("end code"), st.EndCodeErrors,
			headerStyle.Render("status"), st.StatusErrors,
		))
	}
	if m.publisher != nil && m.publisher.Len() > 0 {
		published, failed := m.publisher.Counts()
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("Published:"), statsValueStyle.Render(fmt.Sprintf("%d", published)),
			statsLabelStyle.Render("Publish Failures:"), func() string {
				if failed > 0 {
					return errorStyle.Render(fmt.Sprintf("%d", failed))
				}
				return statsValueStyle.Render("0")
			}(),
		))
	}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Frame Rate:"), statsValueStyle.Render(fmt.Sprintf("%.2f frames/s", st.FrameRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if st.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.2f err/s", st.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.2f err/s", st.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	if m.entering {
		s.WriteString(statsLabelStyle.Render("Test data: "))
		s.WriteString(m.testInput.View())
		s.WriteString(headerStyle.Render("  (enter send, esc cancel)"))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
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
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
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
