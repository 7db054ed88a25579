package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spartamonitor/spartamon/internal/alert"
	"github.com/spartamonitor/spartamon/internal/model"
)

// Settings is the flat key-value settings file. Missing or malformed keys take their
// documented default; unknown keys are carried through a save.
type Settings struct {
	Theme             string
	RefreshRate       int // milliseconds
	TempThreshold     float64
	HeavyCPUThreshold float64
	HeavyCPUTicks     int
	WindowSize        string
	SidebarWidth      int
	CPUPercent        float64
	MemPercent        float64
	DiskPercent       float64
	GPUPercent        float64
	CooldownSeconds   float64

	Extra map[string]any
}

func DefaultSettings() Settings {
	return Settings{
		Theme:             "darkly",
		RefreshRate:       1000,
		TempThreshold:     85,
		HeavyCPUThreshold: 85,
		HeavyCPUTicks:     8,
		WindowSize:        "900x700",
		SidebarWidth:      220,
		CPUPercent:        90,
		MemPercent:        90,
		DiskPercent:       95,
		GPUPercent:        95,
		CooldownSeconds:   alert.DefaultCooldown.Seconds(),
	}
}

type field struct {
	key string
	get func(*Settings) any
	set func(*Settings, any) error
}

// Upper bounds keep derived durations inside time.Duration.
const (
	maxRefreshRate     = int(time.Hour / time.Millisecond)
	maxCooldownSeconds = float64(365 * 24 * 60 * 60)
	maxCount           = math.MaxInt32
)

var fields = []field{
	stringField("theme", func(s *Settings) *string { return &s.Theme }),
	intField("refresh_rate", 1, maxRefreshRate, func(s *Settings) *int { return &s.RefreshRate }),
	floatField("temp_threshold", math.MaxFloat64, func(s *Settings) *float64 { return &s.TempThreshold }),
	floatField("heavy_cpu_threshold", math.MaxFloat64, func(s *Settings) *float64 { return &s.HeavyCPUThreshold }),
	intField("heavy_cpu_ticks", 1, maxCount, func(s *Settings) *int { return &s.HeavyCPUTicks }),
	stringField("window_size", func(s *Settings) *string { return &s.WindowSize }),
	intField("sidebar_width", 0, maxCount, func(s *Settings) *int { return &s.SidebarWidth }),
	floatField("cpu_percent", math.MaxFloat64, func(s *Settings) *float64 { return &s.CPUPercent }),
	floatField("mem_percent", math.MaxFloat64, func(s *Settings) *float64 { return &s.MemPercent }),
	floatField("disk_percent", math.MaxFloat64, func(s *Settings) *float64 { return &s.DiskPercent }),
	floatField("gpu_percent", math.MaxFloat64, func(s *Settings) *float64 { return &s.GPUPercent }),
	floatField("cooldown_seconds", maxCooldownSeconds, func(s *Settings) *float64 { return &s.CooldownSeconds }),
}

// Keys lists the recognized setting names.
func Keys() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.key
	}
	return out
}

// LoadSettings reads path. A missing file yields defaults and no error; an unreadable or
// malformed file yields defaults and an error; bad individual keys keep their default and
// are reported together.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}
	raw, err := decode(path, data)
	if err != nil {
		return s, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	var errs []error
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.key] = true
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		if err := f.set(&s, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.key, err))
		}
	}
	for k, v := range raw {
		if known[k] {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = v
	}
	return s, errors.Join(errs...)
}

// SaveSettings writes s to path, creating parent directories. YAML is used for .yaml and
// .yml files, indented JSON otherwise.
func SaveSettings(path string, s Settings) error {
	out := make(map[string]any, len(fields)+len(s.Extra))
	for k, v := range s.Extra {
		out[k] = v
	}
	for _, f := range fields {
		out[f.key] = f.get(&s)
	}

	var data []byte
	var err error
	if isYAML(path) {
		data, err = yaml.Marshal(out)
	} else {
		data, err = json.MarshalIndent(out, "", "    ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Interval is the refresh period.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.RefreshRate) * time.Millisecond
}

func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownSeconds * float64(time.Second))
}

// Rules builds the alert engine thresholds.
func (s Settings) Rules() alert.Rules {
	rule := func(k model.MetricKey, v float64) model.AlertRule {
		return model.AlertRule{Key: k, Threshold: v, Severity: model.SeverityWarning}
	}
	return alert.Rules{
		model.MetricCPUPercent:  rule(model.MetricCPUPercent, s.CPUPercent),
		model.MetricMemPercent:  rule(model.MetricMemPercent, s.MemPercent),
		model.MetricDiskPercent: rule(model.MetricDiskPercent, s.DiskPercent),
		model.MetricGPUPercent:  rule(model.MetricGPUPercent, s.GPUPercent),
	}
}

// Sustained builds the escalation rules evaluated outside the engine.
func (s Settings) Sustained() []alert.SustainedRule {
	return []alert.SustainedRule{
		alert.HeavyCPU(s.HeavyCPUThreshold, s.HeavyCPUTicks),
		alert.HotCPU(s.TempThreshold),
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte) (map[string]any, error) {
	raw := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, nil
	}
	if isYAML(path) {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func stringField(key string, ptr func(*Settings) *string) field {
	return field{
		key: key,
		get: func(s *Settings) any { return *ptr(s) },
		set: func(s *Settings, v any) error {
			str, ok := v.(string)
			if !ok {
				return fmt.Errorf("want string, got %T", v)
			}
			*ptr(s) = str
			return nil
		},
	}
}

func intField(key string, least, most int, ptr func(*Settings) *int) field {
	return field{
		key: key,
		get: func(s *Settings) any { return *ptr(s) },
		set: func(s *Settings, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			if f != math.Trunc(f) {
				return fmt.Errorf("want integer, got %v", f)
			}
			if f < float64(least) {
				return fmt.Errorf("must be at least %d, got %v", least, f)
			}
			if f > float64(most) {
				return fmt.Errorf("must be at most %d, got %v", most, f)
			}
			*ptr(s) = int(f)
			return nil
		},
	}
}

func floatField(key string, most float64, ptr func(*Settings) *float64) field {
	return field{
		key: key,
		get: func(s *Settings) any { return *ptr(s) },
		set: func(s *Settings, v any) error {
			f, err := toFloat(v)
			if err != nil {
				return err
			}
			if f < 0 {
				return fmt.Errorf("must not be negative, got %v", f)
			}
			if f > most {
				return fmt.Errorf("must be at most %v, got %v", most, f)
			}
			*ptr(s) = f
			return nil
		},
	}
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, err
		}
		f = parsed
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("want finite number, got %v", f)
	}
	return f, nil
}
