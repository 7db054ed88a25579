package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spartamonitor/spartamon/internal/config"
	"github.com/spartamonitor/spartamon/internal/model"
)

func testModel() (*Model, chan model.Snapshot, chan config.Settings) {
	stream := make(chan model.Snapshot, 4)
	reloads := make(chan config.Settings, 1)
	return newModel(config.Default(), config.DefaultSettings(), stream, reloads), stream, reloads
}

func TestTickConsumesSnapshotAndFiresAlerts(t *testing.T) {
	m, stream, _ := testModel()
	now := time.Unix(1_700_000_000, 0)
	stream <- model.Snapshot{Timestamp: now, CPU: model.CPU{Percent: 97}}

	m.Update(tickMsg{})
	if m.latest.CPU.Percent != 97 {
		t.Fatalf("snapshot not consumed: %+v", m.latest.CPU)
	}
	if len(m.alerts) != 1 || m.alerts[0].Key != model.MetricCPUPercent {
		t.Fatalf("alerts = %+v", m.alerts)
	}
	if !strings.Contains(m.View(), "High CPU usage: 97%") {
		t.Fatal("alert not rendered")
	}

	stream <- model.Snapshot{Timestamp: now.Add(6 * time.Second), CPU: model.CPU{Percent: 10}}
	m.Update(tickMsg{})
	if len(m.alerts) != 0 {
		t.Fatalf("alert should have expired: %+v", m.alerts)
	}
}

func TestReloadAppliesThresholds(t *testing.T) {
	m, stream, reloads := testModel()
	s := config.DefaultSettings()
	s.CPUPercent = 40
	reloads <- s
	stream <- model.Snapshot{Timestamp: time.Now(), CPU: model.CPU{Percent: 45}}

	m.Update(tickMsg{})
	if len(m.alerts) != 1 {
		t.Fatalf("reloaded threshold not used: %+v", m.alerts)
	}
}

func TestQuitKey(t *testing.T) {
	m, _, _ := testModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestViewWithEmptySnapshot(t *testing.T) {
	m, _, _ := testModel()
	out := m.View()
	for _, want := range []string{"CPU", "Memory", "Network", "Disks"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestGaugeBarClamps(t *testing.T) {
	if got := gaugeBar(150, 10); !strings.Contains(got, "100.0%") {
		t.Errorf("gaugeBar(150) = %q", got)
	}
	if got := gaugeBar(-5, 10); !strings.Contains(got, "0.0%") {
		t.Errorf("gaugeBar(-5) = %q", got)
	}
}
