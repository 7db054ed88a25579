package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/spartamonitor/spartamon/internal/model"
)

var errFake = errors.New("fake: unavailable")

// fakeSource serves fixed readings; a nil field means the reader fails.
type fakeSource struct {
	times     []cpu.TimesStat
	coreTimes []cpu.TimesStat
	counts    int
	temps     []host.TemperatureStat
	vm        *mem.VirtualMemoryStat
	swap      *mem.SwapMemoryStat
	parts     []disk.PartitionStat
	usage     map[string]*disk.UsageStat
	diskIO    map[string]disk.IOCountersStat
	netIO     []net.IOCountersStat
	ifaces    net.InterfaceStatList
	boot      uint64
	gpus      []model.GPU
	gpuErr    error
	battery   *model.Battery
}

func healthySource() *fakeSource {
	return &fakeSource{
		times:     []cpu.TimesStat{{CPU: "cpu-total", User: 10, Idle: 90}},
		coreTimes: []cpu.TimesStat{{CPU: "cpu0", User: 5, Idle: 45}, {CPU: "cpu1", User: 5, Idle: 45}},
		counts:    2,
		temps:     []host.TemperatureStat{{SensorKey: "coretemp_core_0", Temperature: 50}},
		vm:        &mem.VirtualMemoryStat{Total: 1000, Used: 400, Available: 600, UsedPercent: 40},
		swap:      &mem.SwapMemoryStat{Total: 100, Used: 10, UsedPercent: 10},
		parts:     []disk.PartitionStat{{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"}},
		usage: map[string]*disk.UsageStat{
			"/": {Path: "/", Fstype: "ext4", Total: 100, Used: 50, Free: 50, UsedPercent: 50},
		},
		diskIO:  map[string]disk.IOCountersStat{"sda": {Name: "sda"}},
		netIO:   []net.IOCountersStat{{Name: "eth0"}},
		ifaces:  net.InterfaceStatList{{Name: "eth0", Addrs: net.InterfaceAddrList{{Addr: "10.0.0.2/24"}, {Addr: "fe80::1/64"}}}},
		boot:    1_000,
		gpus:    []model.GPU{{ID: "0", Name: "Test GPU", LoadPercent: 30}},
		battery: &model.Battery{Percent: 80, Plugged: true},
	}
}

func (f *fakeSource) CPUTimes(_ context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	if perCPU {
		if f.coreTimes == nil {
			return nil, errFake
		}
		return f.coreTimes, nil
	}
	if f.times == nil {
		return nil, errFake
	}
	return f.times, nil
}

func (f *fakeSource) CPUCounts(context.Context) (int, error) {
	if f.counts == 0 {
		return 0, errFake
	}
	return f.counts, nil
}

func (f *fakeSource) CPUInfo(context.Context) ([]cpu.InfoStat, error) {
	return []cpu.InfoStat{{Mhz: 2400}}, nil
}

func (f *fakeSource) Temperatures(context.Context) ([]host.TemperatureStat, error) {
	if f.temps == nil {
		return nil, errFake
	}
	return f.temps, nil
}

func (f *fakeSource) LoadAvg(context.Context) (*load.AvgStat, error) {
	return &load.AvgStat{Load1: 1, Load5: 0.5, Load15: 0.25}, nil
}

func (f *fakeSource) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	if f.vm == nil {
		return nil, errFake
	}
	return f.vm, nil
}

func (f *fakeSource) SwapMemory(context.Context) (*mem.SwapMemoryStat, error) {
	if f.swap == nil {
		return nil, errFake
	}
	return f.swap, nil
}

func (f *fakeSource) Partitions(context.Context) ([]disk.PartitionStat, error) {
	if f.parts == nil {
		return nil, errFake
	}
	return f.parts, nil
}

func (f *fakeSource) Usage(_ context.Context, path string) (*disk.UsageStat, error) {
	u, ok := f.usage[path]
	if !ok {
		return nil, errFake
	}
	return u, nil
}

func (f *fakeSource) DiskCounters(context.Context) (map[string]disk.IOCountersStat, error) {
	if f.diskIO == nil {
		return nil, errFake
	}
	return f.diskIO, nil
}

func (f *fakeSource) NetCounters(context.Context) ([]net.IOCountersStat, error) {
	if f.netIO == nil {
		return nil, errFake
	}
	return f.netIO, nil
}

func (f *fakeSource) Interfaces(context.Context) (net.InterfaceStatList, error) {
	if f.ifaces == nil {
		return nil, errFake
	}
	return f.ifaces, nil
}

func (f *fakeSource) BootTime(context.Context) (uint64, error) {
	if f.boot == 0 {
		return 0, errFake
	}
	return f.boot, nil
}

func (f *fakeSource) HostInfo(context.Context) (*host.InfoStat, error) {
	return &host.InfoStat{Hostname: "testhost", OS: "linux", KernelVersion: "6.1.0", KernelArch: "x86_64"}, nil
}

func (f *fakeSource) GPUs(context.Context) ([]model.GPU, error) {
	if f.gpuErr != nil {
		return nil, f.gpuErr
	}
	return f.gpus, nil
}

func (f *fakeSource) Battery(context.Context) (*model.Battery, error) {
	if f.battery == nil {
		return nil, ErrNoBattery
	}
	return f.battery, nil
}

// stepClock returns the queued instants in order and then repeats the last one.
type stepClock struct {
	ts []time.Time
	i  int
}

func (c *stepClock) now() time.Time {
	t := c.ts[c.i]
	if c.i < len(c.ts)-1 {
		c.i++
	}
	return t
}
