package ui

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spartamonitor/spartamon/internal/alert"
	"github.com/spartamonitor/spartamon/internal/config"
	"github.com/spartamonitor/spartamon/internal/format"
	"github.com/spartamonitor/spartamon/internal/model"
	"github.com/spartamonitor/spartamon/internal/sampler"
)

// alertTTL is how long a fired alert stays on screen.
const alertTTL = 5 * time.Second

// Model renders live snapshots and owns the alert engine; Check only ever runs inside Update.
type Model struct {
	cfg       config.Config
	settings  config.Settings
	latest    model.Snapshot
	stream    <-chan model.Snapshot
	reloads   <-chan config.Settings
	engine    *alert.Engine
	sustained *alert.Sustained
	alerts    []model.FiredAlert
	ctxCancel context.CancelFunc
	width     int
	height    int
}

func New(cfg config.Config, settings config.Settings) *Model {
	ctx, cancel := context.WithCancel(context.Background())
	s := sampler.New(sampler.WithGPU(cfg.EnableGPU), sampler.WithBattery(cfg.EnableBatt))

	reloads := make(chan config.Settings, 1)
	go func() {
		err := config.Watch(ctx, cfg.Path, func(next config.Settings, err error) {
			if err != nil {
				log.Printf("WARN settings reload: %v", err)
			}
			select {
			case reloads <- next:
			case <-ctx.Done():
			}
		})
		if err != nil {
			log.Printf("WARN settings watch disabled: %v", err)
		}
	}()

	m := newModel(cfg, settings, s.Stream(ctx, cfg.TickInterval(settings)), reloads)
	m.ctxCancel = cancel
	return m
}

func newModel(cfg config.Config, settings config.Settings, stream <-chan model.Snapshot, reloads <-chan config.Settings) *Model {
	engine := alert.NewEngine(settings.Rules(), settings.Cooldown())
	if cfg.KeyByMessage {
		engine.SetKeyMode(alert.KeyByMessage)
	}
	return &Model{
		cfg:       cfg,
		settings:  settings,
		latest:    model.Zero(),
		stream:    stream,
		reloads:   reloads,
		engine:    engine,
		sustained: alert.NewSustained(settings.Sustained()...),
		ctxCancel: func() {},
		width:     120,
		height:    40,
	}
}

// Messages
type tickMsg struct{}

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		}
	case tickMsg:
		select {
		case next := <-m.reloads:
			m.apply(next)
		default:
		}
		select {
		case snap, ok := <-m.stream:
			if ok {
				m.observe(snap)
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// apply swaps thresholds after a settings reload; cooldown history survives.
func (m *Model) apply(s config.Settings) {
	m.settings = s
	m.engine.SetRules(s.Rules())
	m.engine.SetCooldown(s.Cooldown())
	m.sustained.SetRules(s.Sustained()...)
}

func (m *Model) observe(snap model.Snapshot) {
	m.latest = snap
	fired := m.engine.Check(snap, snap.Timestamp)
	fired = append(fired, m.sustained.Observe(snap, snap.Timestamp)...)
	m.alerts = append(m.alerts, fired...)

	live := m.alerts[:0]
	for _, a := range m.alerts {
		if snap.Timestamp.Sub(a.FiredAt) < alertTTL {
			live = append(live, a)
		}
	}
	m.alerts = live
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	header := titleStyle.Render("SpartaMonitor") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006"))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard(s), memCard(s), netCard(s))
	row2 := []string{diskCard(s)}
	if c := gpuCard(s); c != "" {
		row2 = append(row2, c)
	}
	row2 = append(row2, systemCard(s))
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, row2...)

	parts := []string{header, line1, line2}
	if len(m.alerts) > 0 {
		parts = append(parts, alertCard(m.alerts))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func cpuCard(s model.Snapshot) string {
	temp := "N/A"
	if s.CPU.TemperatureC != nil {
		temp = fmt.Sprintf("%.1f°C", *s.CPU.TemperatureC)
	}
	freq := "N/A"
	if s.CPU.FrequencyMHz != nil {
		freq = fmt.Sprintf("%.0f MHz", *s.CPU.FrequencyMHz)
	}
	lines := []string{
		gaugeBar(s.CPU.Percent, 28),
		fmt.Sprintf("load %.2f %.2f %.2f  %s  %s", s.CPU.Load1, s.CPU.Load5, s.CPU.Load15, freq, temp),
	}
	for i, v := range s.CPU.PerCore {
		if i >= 8 {
			lines = append(lines, subtleStyle.Render(fmt.Sprintf("+%d more cores", len(s.CPU.PerCore)-i)))
			break
		}
		lines = append(lines, fmt.Sprintf("core %-2d %s", i, gaugeBar(v, 16)))
	}
	return card("CPU", strings.Join(lines, "\n"))
}

func memCard(s model.Snapshot) string {
	mem := s.Memory
	return card("Memory", fmt.Sprintf("%s\n%s / %s\nSwap %s",
		gaugeBar(mem.Percent, 28),
		format.Bytes(mem.UsedBytes), format.Bytes(mem.TotalBytes),
		gaugeBar(mem.Swap.Percent, 16)))
}

func netCard(s model.Snapshot) string {
	n := s.Network
	lines := []string{
		fmt.Sprintf("TX %s  RX %s", format.Rate(n.TxBitsPerSec), format.Rate(n.RxBitsPerSec)),
		fmt.Sprintf("sent %s  recv %s", format.Bytes(n.BytesSent), format.Bytes(n.BytesRecv)),
		fmt.Sprintf("disk R/W %s/s / %s/s",
			format.Bytes(uint64(s.DiskIO.ReadBytesPerSec)), format.Bytes(uint64(s.DiskIO.WriteBytesPerSec))),
	}
	for _, ifc := range n.Interfaces {
		if len(ifc.IPv4) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-8s %s", truncate(ifc.Name, 8), ifc.IPv4[0]))
	}
	return card("Network", strings.Join(lines, "\n"))
}

func diskCard(s model.Snapshot) string {
	if len(s.Disks) == 0 {
		return card("Disks", subtleStyle.Render("no readable mounts"))
	}
	lines := make([]string, 0, len(s.Disks))
	for _, d := range s.Disks {
		lines = append(lines, fmt.Sprintf("%-16s %s %s",
			truncate(d.Mountpoint, 16), gaugeBar(d.Percent, 16), format.Bytes(d.FreeBytes)+" free"))
	}
	return card("Disks", strings.Join(lines, "\n"))
}

func gpuCard(s model.Snapshot) string {
	if len(s.GPUs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(s.GPUs))
	for _, g := range s.GPUs {
		temp := ""
		if g.TemperatureC != nil {
			temp = fmt.Sprintf(" %2.0f°C", *g.TemperatureC)
		}
		lines = append(lines,
			fmt.Sprintf("%s %4.0f%% mem:%4.0f/%-4.0fMiB%s",
				truncate(g.Name, 10), g.LoadPercent, g.MemUsedMB, g.MemTotalMB, temp))
	}
	return card("GPU", strings.Join(lines, "\n"))
}

func systemCard(s model.Snapshot) string {
	p := s.System.Platform
	lines := []string{
		fmt.Sprintf("%s %s %s", p.OS, p.Release, p.Arch),
		"up " + format.Duration(s.System.UptimeSeconds),
	}
	if b := s.System.Battery; b != nil {
		state := "on battery"
		if b.Plugged {
			state = "plugged in"
		}
		lines = append(lines, fmt.Sprintf("battery %.0f%% (%s)", b.Percent, state))
	}
	if len(s.Unavailable) > 0 {
		names := make([]string, len(s.Unavailable))
		for i, u := range s.Unavailable {
			names[i] = string(u)
		}
		lines = append(lines, subtleStyle.Render("n/a: "+strings.Join(names, ", ")))
	}
	return card(p.Hostname, strings.Join(lines, "\n"))
}

func alertCard(alerts []model.FiredAlert) string {
	lines := make([]string, 0, len(alerts))
	for _, a := range alerts {
		style := warnStyle
		if a.Severity == model.SeverityCritical {
			style = critStyle
		}
		lines = append(lines, style.Render(strings.ToUpper(string(a.Severity)))+" "+a.Message)
	}
	return card("Alerts", strings.Join(lines, "\n"))
}

// Helpers
func gaugeBar(pct float64, width int) string {
	pct = model.ClampPercent(pct)
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return fmt.Sprintf("[%s%s] %5.1f%%",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		pct)
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RunTUI starts the Bubble Tea program.
func RunTUI(cfg config.Config, settings config.Settings) error {
	prog := tea.NewProgram(New(cfg, settings), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
