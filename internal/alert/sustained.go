package alert

import (
	"fmt"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

// SustainedRule escalates when a value stays at or above Threshold for Ticks consecutive
// observations.
type SustainedRule struct {
	Key       model.MetricKey
	Threshold float64
	Ticks     int
	Severity  model.Severity
	Format    string // fmt verb receives the value and the streak length
}

// Sustained counts consecutive over-threshold ticks per key. It lives outside Engine and
// fires once per streak; a key re-arms when its value drops below the threshold.
type Sustained struct {
	rules  []SustainedRule
	streak map[model.MetricKey]int
	armed  map[model.MetricKey]bool
}

func NewSustained(rules ...SustainedRule) *Sustained {
	s := &Sustained{}
	s.SetRules(rules...)
	return s
}

// SetRules replaces the rules. Keys that keep a rule keep their streak and arming, so a
// reload does not re-fire an alert that is already out.
func (s *Sustained) SetRules(rules ...SustainedRule) {
	s.rules = append([]SustainedRule(nil), rules...)
	streak := make(map[model.MetricKey]int, len(rules))
	armed := make(map[model.MetricKey]bool, len(rules))
	for _, r := range s.rules {
		streak[r.Key] = s.streak[r.Key]
		if was, ok := s.armed[r.Key]; ok {
			armed[r.Key] = was
		} else {
			armed[r.Key] = true
		}
	}
	s.streak, s.armed = streak, armed
}

// Streak returns the current consecutive count for key.
func (s *Sustained) Streak(key model.MetricKey) int { return s.streak[key] }

// Observe feeds one tick. An absent reading breaks the streak.
func (s *Sustained) Observe(snap model.Snapshot, now time.Time) []model.FiredAlert {
	var fired []model.FiredAlert
	for _, r := range s.rules {
		v, ok := sustainedValue(snap, r.Key)
		if !ok || v < r.Threshold {
			s.streak[r.Key] = 0
			s.armed[r.Key] = true
			continue
		}
		s.streak[r.Key]++
		ticks := r.Ticks
		if ticks < 1 {
			ticks = 1
		}
		if s.streak[r.Key] < ticks || !s.armed[r.Key] {
			continue
		}
		s.armed[r.Key] = false
		sev := r.Severity
		if sev == "" {
			sev = model.SeverityCritical
		}
		fired = append(fired, model.FiredAlert{
			Severity: sev,
			Message:  r.message(v, s.streak[r.Key]),
			Key:      r.Key,
			Value:    v,
			FiredAt:  now,
		})
	}
	return fired
}

func (r SustainedRule) message(v float64, ticks int) string {
	if r.Format == "" {
		return fmt.Sprintf("%s at %.0f for %d ticks", r.Key, v, ticks)
	}
	return fmt.Sprintf(r.Format, v, ticks)
}

func sustainedValue(snap model.Snapshot, key model.MetricKey) (float64, bool) {
	switch key {
	case model.MetricCPUPercent, model.MetricCPUSustained:
		return snap.CPU.Percent, snap.Available(model.SubsystemCPU)
	case model.MetricMemPercent:
		return snap.Memory.Percent, snap.Available(model.SubsystemMemory)
	case model.MetricCPUTemperature:
		if snap.CPU.TemperatureC == nil {
			return 0, false
		}
		return *snap.CPU.TemperatureC, true
	}
	return 0, false
}

// HeavyCPU is the sustained-load escalation rule.
func HeavyCPU(threshold float64, ticks int) SustainedRule {
	return SustainedRule{
		Key:       model.MetricCPUSustained,
		Threshold: threshold,
		Ticks:     ticks,
		Severity:  model.SeverityCritical,
		Format:    "Sustained CPU load: %.0f%% for %d ticks",
	}
}

// HotCPU fires on the first tick the CPU temperature reaches threshold.
func HotCPU(threshold float64) SustainedRule {
	return SustainedRule{
		Key:       model.MetricCPUTemperature,
		Threshold: threshold,
		Ticks:     1,
		Severity:  model.SeverityCritical,
		Format:    "CPU temperature high: %.0f°C (%d ticks)",
	}
}
