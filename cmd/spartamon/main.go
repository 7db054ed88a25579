package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/spartamonitor/spartamon/internal/alert"
	"github.com/spartamonitor/spartamon/internal/config"
	"github.com/spartamonitor/spartamon/internal/model"
	"github.com/spartamonitor/spartamon/internal/sampler"
	"github.com/spartamonitor/spartamon/internal/ui"
)

var version = "dev"

// tick is one line of -json / -json-stream output.
type tick struct {
	Snapshot model.Snapshot     `json:"snapshot"`
	Alerts   []model.FiredAlert `json:"alerts"`
}

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("spartamon: %v", err)
	}

	settings, err := config.LoadSettings(cfg.Path)
	if err != nil {
		log.Printf("WARN settings %s: %v (defaults substituted)", cfg.Path, err)
	}
	if cfg.Save {
		if err := config.SaveSettings(cfg.Path, settings); err != nil {
			log.Fatalf("saving settings: %v", err)
		}
		log.Printf("INFO saved settings to %s", cfg.Path)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.JSON:
		err = runOnce(ctx, cfg, settings, os.Stdout)
	case cfg.JSONStream:
		err = runStream(ctx, cfg, settings, os.Stdout)
	default:
		err = runTUI(cfg, settings)
	}
	if err != nil {
		log.Fatalf("spartamon %s: %v", version, err)
	}
}

func runTUI(cfg config.Config, settings config.Settings) error {
	// The alt screen owns stdout and stderr; logs go to a file instead.
	f, err := tea.LogToFile(filepath.Join(os.TempDir(), "spartamon.log"), "spartamon")
	if err == nil {
		defer f.Close()
	}
	return ui.RunTUI(cfg, settings)
}

// runOnce primes the rate counters, waits one interval and prints a single tick.
func runOnce(ctx context.Context, cfg config.Config, settings config.Settings, w io.Writer) error {
	s := newSampler(cfg)
	s.Sample(ctx)
	wait := cfg.TickInterval(settings)
	if wait > time.Second {
		wait = time.Second
	}
	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}
	snap := s.Sample(ctx)
	alerts := newEngine(cfg, settings).Check(snap, snap.Timestamp)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tick{Snapshot: snap, Alerts: nonNil(alerts)})
}

// runStream writes one NDJSON tick per interval until ctx is done. The engine is only
// touched by the sampling goroutine; reloads arrive over a channel.
func runStream(ctx context.Context, cfg config.Config, settings config.Settings, w io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	reloads := make(chan config.Settings, 1)

	g.Go(func() error {
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
		return nil
	})

	g.Go(func() error {
		engine := newEngine(cfg, settings)
		sustained := alert.NewSustained(settings.Sustained()...)
		enc := json.NewEncoder(w)
		missing := map[model.Subsystem]bool{}

		for snap := range newSampler(cfg).Stream(ctx, cfg.TickInterval(settings)) {
			select {
			case next := <-reloads:
				engine.SetRules(next.Rules())
				engine.SetCooldown(next.Cooldown())
				sustained.SetRules(next.Sustained()...)
				log.Printf("INFO settings reloaded from %s", cfg.Path)
			default:
			}

			logAvailability(snap, missing)
			alerts := engine.Check(snap, snap.Timestamp)
			alerts = append(alerts, sustained.Observe(snap, snap.Timestamp)...)
			for _, a := range alerts {
				log.Printf("%s %s", levelOf(a.Severity), a.Message)
			}
			if err := enc.Encode(tick{Snapshot: snap, Alerts: nonNil(alerts)}); err != nil {
				return fmt.Errorf("writing tick: %w", err)
			}
		}
		return nil
	})

	return g.Wait()
}

func newSampler(cfg config.Config) *sampler.Sampler {
	return sampler.New(sampler.WithGPU(cfg.EnableGPU), sampler.WithBattery(cfg.EnableBatt))
}

func newEngine(cfg config.Config, settings config.Settings) *alert.Engine {
	e := alert.NewEngine(settings.Rules(), settings.Cooldown())
	if cfg.KeyByMessage {
		e.SetKeyMode(alert.KeyByMessage)
	}
	return e
}

// logAvailability reports a subsystem only when it goes missing or comes back.
func logAvailability(snap model.Snapshot, missing map[model.Subsystem]bool) {
	now := make(map[model.Subsystem]bool, len(snap.Unavailable))
	for _, sub := range snap.Unavailable {
		now[sub] = true
		if !missing[sub] {
			log.Printf("WARN %s unavailable", sub)
		}
	}
	for _, sub := range recovered(missing, now) {
		log.Printf("INFO %s available again", sub)
		delete(missing, sub)
	}
	for sub := range now {
		missing[sub] = true
	}
}

// recovered lists, sorted, the subsystems in was that are no longer in now.
func recovered(was, now map[model.Subsystem]bool) []model.Subsystem {
	var out []model.Subsystem
	for sub := range was {
		if !now[sub] {
			out = append(out, sub)
		}
	}
	slices.Sort(out)
	return out
}

func levelOf(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "ERROR"
	case model.SeverityInfo:
		return "INFO"
	}
	return "WARN"
}

func nonNil(a []model.FiredAlert) []model.FiredAlert {
	if a == nil {
		return []model.FiredAlert{}
	}
	return a
}
