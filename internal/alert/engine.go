package alert

import (
	"fmt"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

// DefaultCooldown is the minimum gap between two firings of the same key.
const DefaultCooldown = 20 * time.Second

// Rules maps a metric key to its threshold rule.
type Rules map[model.MetricKey]model.AlertRule

// DefaultRules returns the stock thresholds: cpu 90, memory 90, disk 95, gpu 95.
func DefaultRules() Rules {
	return Rules{
		model.MetricCPUPercent:  {Key: model.MetricCPUPercent, Threshold: 90, Severity: model.SeverityWarning},
		model.MetricMemPercent:  {Key: model.MetricMemPercent, Threshold: 90, Severity: model.SeverityWarning},
		model.MetricDiskPercent: {Key: model.MetricDiskPercent, Threshold: 95, Severity: model.SeverityWarning},
		model.MetricGPUPercent:  {Key: model.MetricGPUPercent, Threshold: 95, Severity: model.SeverityWarning},
	}
}

// KeyMode selects what the cooldown table is keyed by.
type KeyMode int

const (
	// KeyByMetric debounces per metric key, independent of message wording.
	KeyByMetric KeyMode = iota
	// KeyByMessage debounces per rendered message text.
	KeyByMessage
)

// Engine decides which threshold alerts fire for a snapshot. It performs no I/O and is not
// safe for concurrent use: one goroutine owns it and its cooldown table.
type Engine struct {
	rules     Rules
	cooldown  time.Duration
	mode      KeyMode
	lastFired map[string]time.Time
}

func NewEngine(rules Rules, cooldown time.Duration) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if cooldown < 0 {
		cooldown = 0
	}
	return &Engine{
		rules:     copyRules(rules),
		cooldown:  cooldown,
		lastFired: make(map[string]time.Time),
	}
}

// SetRules replaces the thresholds on configuration reload. Cooldown history is kept.
func (e *Engine) SetRules(rules Rules) { e.rules = copyRules(rules) }

func (e *Engine) SetCooldown(d time.Duration) {
	if d < 0 {
		d = 0
	}
	e.cooldown = d
}

func (e *Engine) SetKeyMode(m KeyMode) { e.mode = m }

// Reset forgets every recorded firing.
func (e *Engine) Reset() { e.lastFired = make(map[string]time.Time) }

// Rules returns a copy of the active thresholds.
func (e *Engine) Rules() Rules { return copyRules(e.rules) }

// Check evaluates CPU, memory, the worst disk and the worst GPU in that order and returns
// the alerts that fire at now. Suppressed alerts leave the cooldown table untouched.
func (e *Engine) Check(snap model.Snapshot, now time.Time) []model.FiredAlert {
	var fired []model.FiredAlert
	seen := make(map[string]struct{})

	for _, c := range e.candidates(snap) {
		rule, ok := e.rules[c.key]
		if !ok || !rule.Exceeded(c.value) {
			continue
		}
		a := model.FiredAlert{
			Severity: rule.Severity,
			Message:  c.message,
			Key:      c.key,
			Value:    c.value,
			Subject:  c.subject,
			FiredAt:  now,
		}
		if a.Severity == "" {
			a.Severity = model.SeverityWarning
		}
		key := e.cooldownKey(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if last, ok := e.lastFired[key]; ok && now.Sub(last) < e.cooldown {
			continue
		}
		e.lastFired[key] = now
		fired = append(fired, a)
	}
	return fired
}

type candidate struct {
	key     model.MetricKey
	value   float64
	subject string
	message string
}

func (e *Engine) candidates(snap model.Snapshot) []candidate {
	out := make([]candidate, 0, 4)
	if snap.Available(model.SubsystemCPU) {
		out = append(out, candidate{
			key:     model.MetricCPUPercent,
			value:   snap.CPU.Percent,
			message: fmt.Sprintf("High CPU usage: %.0f%%", snap.CPU.Percent),
		})
	}
	if snap.Available(model.SubsystemMemory) {
		out = append(out, candidate{
			key:     model.MetricMemPercent,
			value:   snap.Memory.Percent,
			message: fmt.Sprintf("High memory usage: %.0f%%", snap.Memory.Percent),
		})
	}
	if d, ok := snap.WorstDisk(); ok {
		out = append(out, candidate{
			key:     model.MetricDiskPercent,
			value:   d.Percent,
			subject: d.Mountpoint,
			message: fmt.Sprintf("Low disk space: %.0f%% used on %s", d.Percent, d.Mountpoint),
		})
	}
	if g, ok := snap.WorstGPU(); ok {
		out = append(out, candidate{
			key:     model.MetricGPUPercent,
			value:   g.LoadPercent,
			subject: g.Name,
			message: fmt.Sprintf("High GPU load: %.0f%% on %s", g.LoadPercent, g.Name),
		})
	}
	return out
}

func (e *Engine) cooldownKey(a model.FiredAlert) string {
	if e.mode == KeyByMessage {
		return a.Message
	}
	return string(a.Key)
}

func copyRules(r Rules) Rules {
	out := make(Rules, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
