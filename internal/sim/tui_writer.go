package sim

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

type positionMsg struct{ telemetry.PositionRow }

type alertMsg struct{ telemetry.AlertRow }

type missionMsg struct{ telemetry.MissionEventRow }

// stateMsg carries a dispatcher state update.
type stateMsg struct{ telemetry.DispatchStateRow }

// adminMsg reports admin API status.
type adminMsg struct {
	addr   string
	active bool
}

const maxLogLines = 1000

// TUIWriter renders the fleet table, the visible alert and an event log
// using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements PositionWriter. Arrivals are also logged.
func (w *TUIWriter) Write(row telemetry.PositionRow) error {
	w.program.Send(positionMsg{row})
	if row.Progress >= 1 {
		w.program.Send(logMsg{line: fmt.Sprintf("%s%sARRIVED%s drone=%s at %.5f,%.5f",
			stamp(row.Timestamp), colorGreen, colorReset, row.DroneID, row.Lon, row.Lat)})
	}
	return nil
}

// WriteBatch writes rows one by one.
func (w *TUIWriter) WriteBatch(rows []telemetry.PositionRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteAlert implements AlertWriter.
func (w *TUIWriter) WriteAlert(row telemetry.AlertRow) error {
	w.program.Send(alertMsg{row})
	w.program.Send(logMsg{line: fmt.Sprintf("%s%sALERT %s%s %s (%s)",
		stamp(row.Timestamp), colorRed, row.State, colorReset, row.Subject, row.AlertID)})
	return nil
}

// WriteMissionEvent implements MissionEventWriter.
func (w *TUIWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	w.program.Send(missionMsg{row})
	w.program.Send(logMsg{line: fmt.Sprintf("%s%sMISSION%s %s step=%d %s %s",
		stamp(row.Timestamp), colorMagenta, colorReset, row.MissionID, row.Step, row.EventType, row.Description)})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.DispatchStateRow) error {
	w.program.Send(stateMsg{row})
	return nil
}

// SetAdminStatus updates the admin API indicator.
func (w *TUIWriter) SetAdminStatus(addr string, listening bool) {
	w.program.Send(adminMsg{addr: addr, active: listening})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type droneView struct {
	drone    fleet.Drone
	progress float64
	flying   bool
}

type tuiModel struct {
	cfg        *config.Config
	stations   map[string]fleet.Station
	showETA    fleet.ETAPredicate
	order      []string
	drones     map[string]*droneView
	table      table.Model
	vp         viewport.Model
	logs       []string
	alert      *telemetry.AlertRow
	mission    *telemetry.MissionEventRow
	state      telemetry.DispatchStateRow
	admin      bool
	adminAddr  string
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
}

func newTUIModel(cfg *config.Config) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	m := tuiModel{
		cfg:        cfg,
		stations:   make(map[string]fleet.Station, len(cfg.Stations)),
		showETA:    fleet.EnRouteAllowList(cfg.ETA.AllowList...),
		drones:     make(map[string]*droneView, len(cfg.Drones)),
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	for _, s := range cfg.Stations {
		m.stations[s.ID] = s
	}
	for _, d := range cfg.Drones {
		m.order = append(m.order, d.ID)
		m.drones[d.ID] = &droneView{drone: d}
	}
	cols := []table.Column{
		{Title: "Drone", Width: 6},
		{Title: "Status", Width: 9},
		{Title: "Battery", Width: 8},
		{Title: "Station", Width: 14},
		{Title: "Position", Width: 20},
		{Title: "Flight", Width: 7},
		{Title: "ETA", Width: 8},
	}
	m.table = table.New(table.WithColumns(cols), table.WithRows(m.rows()), table.WithHeight(len(m.order)+1))
	return m
}

func (m tuiModel) rows() []table.Row {
	rows := make([]table.Row, 0, len(m.order))
	for _, id := range m.order {
		v := m.drones[id]
		d := v.drone
		station := d.StationID
		eta := "-"
		if st, ok := m.stations[d.StationID]; ok {
			station = st.Name
			if m.showETA(d) {
				if mins, err := geo.ETAMinutes(d.Position, st.Position, m.cfg.ETA.SpeedKmh); err == nil {
					eta = fmt.Sprintf("%d min", mins)
				}
			}
		}
		flight := "-"
		if v.flying {
			flight = fmt.Sprintf("%.0f%%", v.progress*100)
		}
		rows = append(rows, table.Row{
			d.ID,
			string(d.Status),
			fmt.Sprintf("%d%%", d.Battery),
			station,
			fmt.Sprintf("%.4f, %.4f", d.Position.Lon, d.Position.Lat),
			flight,
			eta,
		})
	}
	return rows
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case positionMsg:
		v, ok := m.drones[msg.DroneID]
		if !ok {
			v = &droneView{drone: fleet.Drone{ID: msg.DroneID, StationID: msg.StationID, Status: fleet.Status(msg.Status)}}
			m.drones[msg.DroneID] = v
			m.order = append(m.order, msg.DroneID)
			m.table.SetHeight(len(m.order) + 1)
		}
		v.drone.Position = geo.Pt(msg.Lon, msg.Lat)
		v.progress = msg.Progress
		v.flying = msg.Progress < 1
		m.table.SetRows(m.rows())
	case alertMsg:
		switch msg.State {
		case telemetry.AlertRaised:
			row := msg.AlertRow
			m.alert = &row
		case telemetry.AlertDismissed:
			m.alert = nil
		case telemetry.AlertExpired:
			if m.alert != nil && m.alert.AlertID == msg.AlertID {
				m.alert = nil
			}
		}
		m.updateViewportHeight()
	case missionMsg:
		row := msg.MissionEventRow
		m.mission = &row
		m.updateViewportHeight()
	case stateMsg:
		m.state = msg.DispatchStateRow
	case adminMsg:
		m.admin = msg.active
		m.adminAddr = msg.addr
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.help {
		switch msg.String() {
		case "?", "h", "esc":
			m.help = false
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
		m.updateViewportHeight()
		return m, nil
	case "s":
		m.autoscroll = !m.autoscroll
		if m.autoscroll {
			m.vp.GotoBottom()
		}
		return m, nil
	case "h", "?":
		m.help = true
		return m, nil
	}
	if m.autoscroll {
		return m, nil
	}
	switch msg.String() {
	case "j", "down":
		m.vp.LineDown(1)
	case "k", "up":
		m.vp.LineUp(1)
	case "pgdown", "ctrl+n":
		m.vp.LineDown(10)
	case "pgup", "ctrl+p":
		m.vp.LineUp(10)
	default:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.table.View()) + lipgloss.Height(m.renderAlert()) +
		lipgloss.Height(m.renderMission()) + lipgloss.Height(m.renderBottom()) + 4
	h := m.height - used
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	sections := []string{
		m.table.View(),
		divider,
		m.renderAlert(),
		m.renderMission(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

var alertStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("9")).
	Padding(0, 1)

func (m tuiModel) renderAlert() string {
	if m.alert == nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("No active alerts")
	}
	a := m.alert
	body := fmt.Sprintf("%s\nSubject: %s  Blood type: %s\nLocation: %.4f, %.4f  Expires: %s",
		a.Message, a.Subject, a.BloodType, a.Lon, a.Lat, a.ExpiresAt.Format("15:04:05"))
	if m.width > 4 {
		body = wordwrap.String(body, m.width-4)
	}
	return alertStyle.Render(body)
}

func (m tuiModel) renderMission() string {
	if m.mission == nil {
		return ""
	}
	r := m.mission
	return fmt.Sprintf("Mission %s  drone=%s  step=%d  %s  %s", r.MissionID, r.DroneID, r.Step, r.EventType, r.Description)
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	state := fmt.Sprintf("%sSTATE%s %sflights=%d%s %sdispatched=%d%s %salerts=%d%s",
		colorBlue, colorReset,
		colorGreen, m.state.ActiveFlights, colorReset,
		colorCyan, m.state.Dispatched, colorReset,
		colorRed, m.state.AlertsRaised, colorReset)
	admin := "Admin API " + indicator(m.admin)
	if m.admin && m.adminAddr != "" {
		admin += " " + m.adminAddr
	}
	return fmt.Sprintf("%s | %s | Wrap %s | Scroll %s | Help %s", state, admin, indicator(m.wrap), indicator(m.autoscroll), indicator(m.help))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the event log",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
