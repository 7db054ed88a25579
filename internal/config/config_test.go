package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spartamonitor/spartamon/internal/alert"
	"github.com/spartamonitor/spartamon/internal/model"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Fatalf("got %+v, want defaults", s)
	}
}

func TestLoadEmptyObjectGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Fatalf("got %+v", s)
	}
	want := DefaultSettings()
	if want.RefreshRate != 1000 || want.TempThreshold != 85 || want.HeavyCPUThreshold != 85 ||
		want.HeavyCPUTicks != 8 || want.CPUPercent != 90 || want.MemPercent != 90 ||
		want.DiskPercent != 95 || want.GPUPercent != 95 || want.CooldownSeconds != 20 {
		t.Fatalf("documented defaults drifted: %+v", want)
	}
}

func TestLoadMalformedFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if !reflect.DeepEqual(s, DefaultSettings()) {
		t.Fatalf("malformed file should give defaults, got %+v", s)
	}
}

func TestLoadBadKeyKeepsDefaultForThatKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"refresh_rate": "fast", "cpu_percent": 75, "heavy_cpu_ticks": 0, "theme": "flatly"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err == nil {
		t.Fatal("expected per-key errors")
	}
	if !strings.Contains(err.Error(), "refresh_rate") || !strings.Contains(err.Error(), "heavy_cpu_ticks") {
		t.Fatalf("error should name the bad keys: %v", err)
	}
	if s.RefreshRate != 1000 || s.HeavyCPUTicks != 8 {
		t.Fatalf("bad keys should keep defaults: %+v", s)
	}
	if s.CPUPercent != 75 || s.Theme != "flatly" {
		t.Fatalf("good keys should load: %+v", s)
	}
}

func TestLoadOutOfRangeDurationsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"cooldown_seconds": 1e12, "refresh_rate": 10000000000000, "cpu_percent": 95}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err == nil {
		t.Fatal("expected range errors")
	}
	if !strings.Contains(err.Error(), "cooldown_seconds") || !strings.Contains(err.Error(), "refresh_rate") {
		t.Fatalf("error should name the out-of-range keys: %v", err)
	}
	if s.Cooldown() != 20*time.Second || s.Interval() != time.Second {
		t.Fatalf("cooldown=%v interval=%v, want defaults", s.Cooldown(), s.Interval())
	}

	e := alert.NewEngine(s.Rules(), s.Cooldown())
	start := time.Unix(1000, 0)
	snap := model.Zero()
	snap.CPU.Percent = 95
	if got := len(e.Check(snap, start)); got != 1 {
		t.Fatalf("first check fired %d alerts, want 1", got)
	}
	if got := len(e.Check(snap, start.Add(time.Second))); got != 0 {
		t.Fatalf("check inside cooldown fired %d alerts, want 0", got)
	}
}

func TestLoadLargestAcceptedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := fmt.Sprintf(`{"cooldown_seconds": %v, "refresh_rate": %d}`, maxCooldownSeconds, maxRefreshRate)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Cooldown() <= 0 || s.Interval() != time.Hour {
		t.Fatalf("cooldown=%v interval=%v", s.Cooldown(), s.Interval())
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			s := DefaultSettings()
			s.RefreshRate = 500
			s.CPUPercent = 87.5
			s.Theme = "cyborg"
			s.Extra = map[string]any{"custom": "kept"}

			if err := SaveSettings(path, s); err != nil {
				t.Fatal(err)
			}
			first, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			got, err := LoadSettings(path)
			if err != nil {
				t.Fatal(err)
			}
			for _, f := range fields {
				if a, b := f.get(&got), f.get(&s); a != b {
					t.Errorf("%s: reloaded %v, saved %v", f.key, a, b)
				}
			}
			if got.Extra["custom"] != "kept" {
				t.Errorf("unknown key lost: %v", got.Extra)
			}

			if err := SaveSettings(path, got); err != nil {
				t.Fatal(err)
			}
			second, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(first, second) {
				t.Errorf("second save differs:\n%s\n---\n%s", first, second)
			}
		})
	}
}

func TestSettingsRules(t *testing.T) {
	s := DefaultSettings()
	s.DiskPercent = 80
	rules := s.Rules()
	if r := rules[model.MetricDiskPercent]; r.Threshold != 80 || r.Key != model.MetricDiskPercent {
		t.Fatalf("disk rule = %+v", r)
	}
	if s.Interval() != time.Second || s.Cooldown() != 20*time.Second {
		t.Fatalf("interval %v cooldown %v", s.Interval(), s.Cooldown())
	}
	sus := s.Sustained()
	if len(sus) != 2 || sus[0].Ticks != 8 || sus[1].Threshold != 85 {
		t.Fatalf("sustained = %+v", sus)
	}
}

func TestFromFlags(t *testing.T) {
	t.Setenv("SPARTAMON_GPU", "0")
	t.Setenv("SPARTAMON_INTERVAL", "2")
	cfg, err := FromFlags([]string{"-json", "-config", "/tmp/x.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.JSON || cfg.Path != "/tmp/x.yaml" || cfg.EnableGPU || cfg.Interval != 2*time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}

	cfg, err = FromFlags([]string{"-interval", "250ms"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TickInterval(DefaultSettings()) != 250*time.Millisecond {
		t.Fatalf("flag should beat env: %v", cfg.Interval)
	}

	if _, err := FromFlags([]string{"-json", "-json-stream"}); err == nil {
		t.Fatal("expected conflict error")
	}
}

func TestTickIntervalFallsBackToSettings(t *testing.T) {
	s := DefaultSettings()
	s.RefreshRate = 1500
	if got := Default().TickInterval(s); got != 1500*time.Millisecond {
		t.Fatalf("got %v", got)
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := SaveSettings(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Settings, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(s Settings, err error) {
			if err == nil {
				got <- s
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	s := DefaultSettings()
	s.CPUPercent = 42
	if err := SaveSettings(path, s); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case s := <-got:
			if s.CPUPercent == 42 {
				cancel()
				if err := <-done; err != nil {
					t.Fatal(err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
