// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/joylink/pkg/crsf"
	"github.com/Thermoquad/joylink/pkg/link"
	"github.com/Thermoquad/joylink/pkg/sink"
	"github.com/Thermoquad/joylink/pkg/trainer"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	tuiBatchInterval = 50 * time.Millisecond
	maxLogEntries    = 200
	stickBarWidth    = 21
)

//////////////////////////////////////////////////////////////
// Sink
//////////////////////////////////////////////////////////////

// tuiSink hands loop output to the UI goroutine without blocking the loop.
// Telemetry is dropped when the UI falls behind; only the latest tick is
// kept.
type tuiSink struct {
	events chan link.TelemetryEvent
	ticks  chan link.TickStats
	logs   chan string
}

func newTUISink() *tuiSink {
	return &tuiSink{
		events: make(chan link.TelemetryEvent, 256),
		ticks:  make(chan link.TickStats, 1),
		logs:   make(chan string, 64),
	}
}

func (s *tuiSink) HandleTelemetry(ev link.TelemetryEvent) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *tuiSink) HandleTick(st link.TickStats) {
	select {
	case <-s.ticks:
	default:
	}
	select {
	case s.ticks <- st:
	default:
	}
}

// Write lets the sink stand in for stderr while the UI owns the terminal
func (s *tuiSink) Write(p []byte) (int, error) {
	select {
	case s.logs <- strings.TrimRight(string(p), "\n"):
	default:
	}
	return len(p), nil
}

// forward sends batched updates to the program at a fixed rate
func (s *tuiSink) forward(ctx context.Context, p *tea.Program) {
	ticker := time.NewTicker(tuiBatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var batch loopBatchMsg

		drainLoop:
			for {
				select {
				case ev := <-s.events:
					batch.events = append(batch.events, ev)
				case line := <-s.logs:
					batch.logs = append(batch.logs, line)
				default:
					break drainLoop
				}
			}
			select {
			case st := <-s.ticks:
				batch.tick = &st
			default:
			}

			if len(batch.events) > 0 || len(batch.logs) > 0 || batch.tick != nil {
				p.Send(batch)
			}
		}
	}
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type loopBatchMsg struct {
	events []link.TelemetryEvent
	logs   []string
	tick   *link.TickStats
}

type loopDoneMsg struct {
	err error
}

type runTickMsg time.Time

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

type runModel struct {
	connInfo string
	tick     time.Duration
	started  time.Time
	stats    *sink.Stats

	attitude     *crsf.Attitude
	lastDelay    time.Duration
	lastTick     link.TickStats
	haveTick     bool
	lastAttitude time.Time

	entries  []logEntry
	logView  viewport.Model
	spinner  spinner.Model
	width    int
	height   int
	quitting bool
	done     bool
	err      error
}

func initialRunModel(connInfo string, stats *sink.Stats, tick time.Duration) runModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	vp := viewport.New(76, 8)

	return runModel{
		connInfo: connInfo,
		tick:     tick,
		started:  time.Now(),
		stats:    stats,
		logView:  vp,
		spinner:  sp,
		width:    80,
		height:   24,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runTickCmd())
}

func runTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return runTickMsg(t)
	})
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLog()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case runTickMsg:
		return m, runTickCmd()

	case loopBatchMsg:
		for _, ev := range msg.events {
			m.handleTelemetry(ev)
		}
		for _, line := range msg.logs {
			m.addLogEntry(line, false)
		}
		if msg.tick != nil {
			m.handleTick(*msg.tick)
		}
		m.refreshLog()

	case loopDoneMsg:
		m.done = true
		m.err = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Control loop stopped: %v", msg.err), true)
		} else {
			m.addLogEntry("Control loop stopped", false)
		}
		m.refreshLog()
		return m, tea.Quit
	}

	return m, nil
}

func (m *runModel) handleTelemetry(ev link.TelemetryEvent) {
	if ev.Attitude != nil {
		if m.attitude == nil {
			m.addLogEntry("First attitude frame received", false)
		}
		m.attitude = ev.Attitude
		m.lastDelay = ev.Delay
		m.lastAttitude = ev.Timestamp
		return
	}

	switch {
	case errors.Is(ev.Err, crsf.ErrNotAttitude):
		// Other telemetry is expected; only counted
	case ev.Err != nil:
		m.addLogEntry(fmt.Sprintf("%v (% X)", ev.Err, ev.Frame.Bytes()), true)
	}
}

func (m *runModel) handleTick(st link.TickStats) {
	if m.haveTick && st.Devices != m.lastTick.Devices {
		m.addLogEntry(fmt.Sprintf("Joysticks connected: %d", st.Devices), st.Devices == 0)
	}
	m.lastTick = st
	m.haveTick = true
}

func (m *runModel) addLogEntry(message string, isError bool) {
	m.entries = append(m.entries, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.entries) > maxLogEntries {
		m.entries = m.entries[len(m.entries)-maxLogEntries:]
	}
}

func (m *runModel) resizeLog() {
	m.logView.Width = m.width - 4
	h := m.height - 18
	if h < 5 {
		h = 5
	}
	m.logView.Height = h
	m.refreshLog()
}

func (m *runModel) refreshLog() {
	atBottom := m.logView.AtBottom()

	var b strings.Builder
	for _, e := range m.entries {
		ts := headerStyle.Render(e.timestamp.Format("15:04:05.000"))
		if e.isError {
			b.WriteString(ts + " " + errorStyle.Render("✗ "+e.message) + "\n")
		} else {
			b.WriteString(ts + " " + warningStyle.Render("ℹ "+e.message) + "\n")
		}
	}
	if len(m.entries) == 0 {
		b.WriteString(headerStyle.Render("  (no events yet)"))
	}
	m.logView.SetContent(b.String())

	if atBottom {
		m.logView.GotoBottom()
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m runModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("JOYLINK"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Tick: %v | Up: %s | Press 'q' to quit",
		m.connInfo, m.tick, formatElapsed(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Attitude
	var att strings.Builder
	if m.attitude == nil {
		att.WriteString(m.spinner.View() + warningStyle.Render(" Waiting for telemetry..."))
	} else {
		att.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Roll:"), valueStyle.Render(fmt.Sprintf("%8.4f°", m.attitude.Roll)),
			labelStyle.Render("Pitch:"), valueStyle.Render(fmt.Sprintf("%8.4f°", m.attitude.Pitch)),
			labelStyle.Render("Yaw:"), valueStyle.Render(fmt.Sprintf("%8.4f°", m.attitude.Yaw)),
		))
		att.WriteString(headerStyle.Render(fmt.Sprintf("frame interval %v, last at %s",
			m.lastDelay.Round(100*time.Microsecond), m.lastAttitude.Format("15:04:05.000"))))
	}

	// Sticks
	var sticks strings.Builder
	if !m.haveTick {
		sticks.WriteString(headerStyle.Render("(loop starting)"))
	} else {
		st := m.lastTick
		devices := valueStyle.Render(fmt.Sprintf("%d", st.Devices))
		if st.Devices == 0 {
			devices = errorStyle.Render("0 (plug in a joystick)")
		}
		sticks.WriteString(fmt.Sprintf("%s %s %s\n", labelStyle.Render("H:"), stickBar(st.State.Horizontal), valueStyle.Render(fmt.Sprintf("%4d", st.State.Horizontal))))
		sticks.WriteString(fmt.Sprintf("%s %s %s\n", labelStyle.Render("V:"), stickBar(st.State.Vertical), valueStyle.Render(fmt.Sprintf("%4d", st.State.Vertical))))
		sticks.WriteString(fmt.Sprintf("%s %s   %s %s",
			labelStyle.Render("Joysticks:"), devices,
			labelStyle.Render("Work:"), valueStyle.Render(st.Work.Round(time.Microsecond).String()),
		))
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		boxStyle.Render(att.String()), " ", boxStyle.Render(sticks.String())))
	s.WriteString("\n")

	// Statistics
	snap := m.stats.Snapshot()
	errCount := snap.ShortFrames + snap.MalformedFrames
	errText := valueStyle.Render(fmt.Sprintf("%d", errCount))
	if errCount > 0 {
		errText = errorStyle.Render(fmt.Sprintf("%d", errCount))
	}
	s.WriteString(boxStyle.Render(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d", snap.TotalFrames)),
		labelStyle.Render("Attitude:"), valueStyle.Render(fmt.Sprintf("%d", snap.AttitudeFrames)),
		labelStyle.Render("Other:"), valueStyle.Render(fmt.Sprintf("%d", snap.IgnoredFrames)),
		labelStyle.Render("Errors:"), errText,
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f/s", snap.AttitudeRate)),
	)))
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.logView.View()))

	return s.String()
}

// stickBar draws a command value as a marker on a centered track
func stickBar(v int) string {
	half := stickBarWidth / 2
	pos := half + int(float64(v)/trainer.MaxValue*float64(half))
	if pos < 0 {
		pos = 0
	} else if pos >= stickBarWidth {
		pos = stickBarWidth - 1
	}

	track := []rune(strings.Repeat("─", stickBarWidth))
	track[half] = '┼'
	track[pos] = '●'
	return headerStyle.Render("[") + string(track) + headerStyle.Render("]")
}

// formatElapsed formats a duration as 1h02m03s, dropping leading zero units
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

//////////////////////////////////////////////////////////////
// Runner
//////////////////////////////////////////////////////////////

func runLoopTUI(ctx context.Context, ts *tuiSink, port link.Port, input link.InputSource, sinks link.MultiSink, stats *sink.Stats, opts link.Options, connInfo string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks = append(sinks, ts)
	p := tea.NewProgram(initialRunModel(connInfo, stats, opts.Tick), tea.WithAltScreen())

	loop := link.New(port, input, sinks, opts)
	loopErr := make(chan error, 1)
	go func() {
		err := loop.Run(ctx)
		loopErr <- err
		p.Send(loopDoneMsg{err: err})
	}()
	go ts.forward(ctx, p)

	_, runErr := p.Run()
	cancel()
	err := <-loopErr

	fmt.Print(stats.String())
	if runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return err
}
