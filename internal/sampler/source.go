package sampler

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/spartamonitor/spartamon/internal/model"
)

var (
	ErrNoGPU     = errors.New("no gpu tooling available")
	ErrNoBattery = errors.New("no battery present")
	ErrNoSensor  = errors.New("no temperature sensor exposed")
)

// Source is the platform boundary. Every method may fail independently; the Sampler turns
// failures into absent fields.
type Source interface {
	CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error)
	CPUCounts(ctx context.Context) (int, error)
	CPUInfo(ctx context.Context) ([]cpu.InfoStat, error)
	Temperatures(ctx context.Context) ([]host.TemperatureStat, error)
	LoadAvg(ctx context.Context) (*load.AvgStat, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error)
	Partitions(ctx context.Context) ([]disk.PartitionStat, error)
	Usage(ctx context.Context, path string) (*disk.UsageStat, error)
	DiskCounters(ctx context.Context) (map[string]disk.IOCountersStat, error)
	NetCounters(ctx context.Context) ([]net.IOCountersStat, error)
	Interfaces(ctx context.Context) (net.InterfaceStatList, error)
	BootTime(ctx context.Context) (uint64, error)
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	GPUs(ctx context.Context) ([]model.GPU, error)
	Battery(ctx context.Context) (*model.Battery, error)
}

// SystemSource reads the local host through gopsutil, nvidia-smi and sysfs.
type SystemSource struct {
	PowerSupplyDir string
	NvidiaSMI      string
}

func NewSystemSource() *SystemSource {
	return &SystemSource{
		PowerSupplyDir: "/sys/class/power_supply",
		NvidiaSMI:      "nvidia-smi",
	}
}

func (s *SystemSource) CPUTimes(ctx context.Context, perCPU bool) ([]cpu.TimesStat, error) {
	return cpu.TimesWithContext(ctx, perCPU)
}

func (s *SystemSource) CPUCounts(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

func (s *SystemSource) CPUInfo(ctx context.Context) ([]cpu.InfoStat, error) {
	return cpu.InfoWithContext(ctx)
}

// Temperatures may return a partial list together with a warnings error on Linux.
func (s *SystemSource) Temperatures(ctx context.Context) ([]host.TemperatureStat, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) > 0 {
		return temps, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrNoSensor
}

func (s *SystemSource) LoadAvg(ctx context.Context) (*load.AvgStat, error) {
	return load.AvgWithContext(ctx)
}

func (s *SystemSource) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (s *SystemSource) SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

func (s *SystemSource) Partitions(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false)
}

func (s *SystemSource) Usage(ctx context.Context, path string) (*disk.UsageStat, error) {
	return disk.UsageWithContext(ctx, path)
}

func (s *SystemSource) DiskCounters(ctx context.Context) (map[string]disk.IOCountersStat, error) {
	return disk.IOCountersWithContext(ctx)
}

func (s *SystemSource) NetCounters(ctx context.Context) ([]net.IOCountersStat, error) {
	return net.IOCountersWithContext(ctx, true)
}

func (s *SystemSource) Interfaces(ctx context.Context) (net.InterfaceStatList, error) {
	return net.InterfacesWithContext(ctx)
}

func (s *SystemSource) BootTime(ctx context.Context) (uint64, error) {
	return host.BootTimeWithContext(ctx)
}

func (s *SystemSource) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (s *SystemSource) GPUs(ctx context.Context) ([]model.GPU, error) {
	return queryNvidiaSMI(ctx, s.NvidiaSMI)
}

func (s *SystemSource) Battery(ctx context.Context) (*model.Battery, error) {
	return readBattery(s.PowerSupplyDir)
}
