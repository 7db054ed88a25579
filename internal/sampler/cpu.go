package sampler

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/spartamonitor/spartamon/internal/model"
)

// cpuTracker keeps the previous cpu.Times so usage is the delta between two reads rather
// than a blocking interval.
type cpuTracker struct {
	primed    bool
	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat
}

func busyPercent(prevTotal, prevIdle, total, idle float64) float64 {
	dt := total - prevTotal
	if dt <= 0 {
		return 0
	}
	return model.ClampPercent(100 * (1 - (idle-prevIdle)/dt))
}

func idleOf(t cpu.TimesStat) float64 { return t.Idle + t.Iowait }

func (s *Sampler) readCPU(ctx context.Context) (model.CPU, error) {
	var out model.CPU

	times, err := s.src.CPUTimes(ctx, false)
	if err == nil && len(times) == 0 {
		err = ErrNoSensor
	}
	if err == nil {
		cur := times[0]
		if s.cpu.primed {
			out.Percent = busyPercent(s.cpu.prevTotal, s.cpu.prevIdle, cur.Total(), idleOf(cur))
		}
		s.cpu.prevTotal, s.cpu.prevIdle, s.cpu.primed = cur.Total(), idleOf(cur), true
	}

	out.PerCore = s.perCore(ctx)

	if info, ierr := s.src.CPUInfo(ctx); ierr == nil && len(info) > 0 && info[0].Mhz > 0 {
		mhz := info[0].Mhz
		out.FrequencyMHz = &mhz
	}
	if avg, lerr := s.src.LoadAvg(ctx); lerr == nil && avg != nil {
		out.Load1, out.Load5, out.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	return out, err
}

// perCore falls back to one zero per logical core, or a single zero, when per-core times
// cannot be read.
func (s *Sampler) perCore(ctx context.Context) []float64 {
	coreTimes, err := s.src.CPUTimes(ctx, true)
	if err != nil || len(coreTimes) == 0 {
		s.cpu.prevCore = nil
		n, cerr := s.src.CPUCounts(ctx)
		if cerr != nil || n < 1 {
			n = 1
		}
		return make([]float64, n)
	}
	perCore := make([]float64, len(coreTimes))
	for i, c := range coreTimes {
		if i >= len(s.cpu.prevCore) {
			continue
		}
		prev := s.cpu.prevCore[i]
		perCore[i] = busyPercent(prev.Total(), idleOf(prev), c.Total(), idleOf(c))
	}
	s.cpu.prevCore = coreTimes
	return perCore
}

// tempProbe selects the sensors belonging to one known CPU thermal driver.
type tempProbe struct {
	name  string
	match func(key string) bool
}

func prefixProbe(prefix string) tempProbe {
	return tempProbe{name: prefix, match: func(key string) bool {
		return strings.HasPrefix(strings.ToLower(key), prefix)
	}}
}

// temperatureProbes are tried in order; the first with a positive reading wins.
var temperatureProbes = []tempProbe{
	prefixProbe("coretemp"),
	prefixProbe("cpu_thermal"),
	prefixProbe("cpu-thermal"),
	prefixProbe("k10temp"),
	prefixProbe("acpitz"),
	{name: "any", match: func(string) bool { return true }},
}

// pickTemperature returns the hottest reading of the first probe that matches anything.
func pickTemperature(temps []host.TemperatureStat) (float64, bool) {
	for _, p := range temperatureProbes {
		var best float64
		found := false
		for _, t := range temps {
			if t.Temperature <= 0 || !p.match(t.SensorKey) {
				continue
			}
			if !found || t.Temperature > best {
				best, found = t.Temperature, true
			}
		}
		if found {
			return best, true
		}
	}
	return 0, false
}

func (s *Sampler) readTemperature(ctx context.Context) (float64, error) {
	temps, err := s.src.Temperatures(ctx)
	if err != nil {
		return 0, err
	}
	t, ok := pickTemperature(temps)
	if !ok {
		return 0, ErrNoSensor
	}
	return t, nil
}
