package sampler

import (
	"context"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

// Sampler builds Snapshots from a Source. It keeps only the previous counters needed to turn
// cumulative values into rates, so a fresh Sampler reports zero rates on its first call.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	src     Source
	now     func() time.Time
	gpu     bool
	battery bool

	cpu    cpuTracker
	net    counterRate
	diskIO counterRate
}

type Option func(*Sampler)

func WithSource(src Source) Option { return func(s *Sampler) { s.src = src } }

func WithClock(now func() time.Time) Option { return func(s *Sampler) { s.now = now } }

func WithGPU(enabled bool) Option { return func(s *Sampler) { s.gpu = enabled } }

func WithBattery(enabled bool) Option { return func(s *Sampler) { s.battery = enabled } }

func New(opts ...Option) *Sampler {
	s := &Sampler{
		src:     NewSystemSource(),
		now:     time.Now,
		gpu:     true,
		battery: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream emits a snapshot immediately and then once per interval until ctx is done.
// The returned channel is closed when the loop exits.
func (s *Sampler) Stream(ctx context.Context, interval time.Duration) <-chan model.Snapshot {
	if interval <= 0 {
		interval = time.Second
	}
	ch := make(chan model.Snapshot)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case ch <- s.Sample(ctx):
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Sample reads every subsystem once. It never fails: a reader error leaves its fields at
// their zero or nil value and records the subsystem in Snapshot.Unavailable.
func (s *Sampler) Sample(ctx context.Context) model.Snapshot {
	now := s.now()
	snap := model.Snapshot{Timestamp: now}
	miss := func(sub model.Subsystem) { snap.Unavailable = append(snap.Unavailable, sub) }

	cpuStat, err := s.readCPU(ctx)
	if err != nil {
		miss(model.SubsystemCPU)
	}
	if temp, err := s.readTemperature(ctx); err == nil {
		cpuStat.TemperatureC = &temp
	} else {
		miss(model.SubsystemTemperature)
	}
	snap.CPU = cpuStat

	if memStat, err := s.readMemory(ctx); err == nil {
		snap.Memory = memStat
	} else {
		miss(model.SubsystemMemory)
	}

	if disks, err := s.readDisks(ctx); err == nil {
		snap.Disks = disks
	} else {
		miss(model.SubsystemDisks)
	}
	if io, err := s.readDiskIO(ctx, now); err == nil {
		snap.DiskIO = io
	} else {
		miss(model.SubsystemDiskIO)
	}

	if netStat, err := s.readNetwork(ctx, now); err == nil {
		snap.Network = netStat
	} else {
		miss(model.SubsystemNetwork)
	}

	if s.gpu {
		if gpus, err := s.src.GPUs(ctx); err == nil {
			snap.GPUs = clampGPUs(gpus)
		} else {
			miss(model.SubsystemGPU)
		}
	}

	sys, err := s.readSystem(ctx, now)
	if err != nil {
		miss(model.SubsystemSystem)
	}
	if s.battery {
		if batt, err := s.src.Battery(ctx); err == nil && batt != nil {
			b := *batt
			b.Percent = model.ClampPercent(b.Percent)
			sys.Battery = &b
		} else {
			miss(model.SubsystemBattery)
		}
	}
	snap.System = sys

	return snap
}

func (s *Sampler) readMemory(ctx context.Context) (model.Memory, error) {
	vm, err := s.src.VirtualMemory(ctx)
	if err != nil {
		return model.Memory{}, err
	}
	out := model.Memory{
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		AvailableBytes: vm.Available,
		Percent:        model.ClampPercent(vm.UsedPercent),
	}
	// Swap is optional; hosts without swap report zeros.
	if sw, err := s.src.SwapMemory(ctx); err == nil && sw != nil {
		out.Swap = model.Swap{
			TotalBytes: sw.Total,
			UsedBytes:  sw.Used,
			Percent:    model.ClampPercent(sw.UsedPercent),
		}
	}
	return out, nil
}

func (s *Sampler) readSystem(ctx context.Context, now time.Time) (model.System, error) {
	sys := model.System{
		Platform: model.Platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
	}
	if info, err := s.src.HostInfo(ctx); err == nil && info != nil {
		sys.Platform.Hostname = info.Hostname
		if info.OS != "" {
			sys.Platform.OS = info.OS
		}
		sys.Platform.Release = info.KernelVersion
		if info.KernelArch != "" {
			sys.Platform.Arch = info.KernelArch
		}
	}
	boot, err := s.src.BootTime(ctx)
	if err != nil {
		return sys, err
	}
	if up := now.Unix() - int64(boot); up > 0 {
		sys.UptimeSeconds = uint64(up)
	}
	return sys, nil
}

func clampGPUs(gpus []model.GPU) []model.GPU {
	out := make([]model.GPU, len(gpus))
	for i, g := range gpus {
		g.LoadPercent = model.ClampPercent(g.LoadPercent)
		out[i] = g
	}
	return out
}

// Helpers
func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
