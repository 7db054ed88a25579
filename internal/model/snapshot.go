package model

import (
	"math"
	"time"
)

// CPU aggregates instantaneous CPU usage.
type CPU struct {
	Percent      float64   `json:"percent"`  // 0-100
	PerCore      []float64 `json:"per_core"` // per-core percent
	FrequencyMHz *float64  `json:"frequency_mhz,omitempty"`
	TemperatureC *float64  `json:"temperature_c,omitempty"`
	Load1        float64   `json:"load1"`
	Load5        float64   `json:"load5"`
	Load15       float64   `json:"load15"`
}

// Swap is the swap portion of Memory.
type Swap struct {
	TotalBytes uint64  `json:"total_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	Percent    float64 `json:"percent"`
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	Percent        float64 `json:"percent"`
	Swap           Swap    `json:"swap"`
}

// Disk is one mounted partition. Identify it by (Device, Mountpoint), not by position.
type Disk struct {
	Device     string  `json:"device"`
	Mountpoint string  `json:"mountpoint"`
	Fstype     string  `json:"fstype"`
	TotalBytes uint64  `json:"total_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	FreeBytes  uint64  `json:"free_bytes"`
	Percent    float64 `json:"percent"`
}

// DiskIO is aggregate block-device throughput.
type DiskIO struct {
	ReadBytesPerSec  float64 `json:"read_bytes_per_sec"`
	WriteBytesPerSec float64 `json:"write_bytes_per_sec"`
}

// Interface is a single network interface with its addresses and counters.
type Interface struct {
	Name      string   `json:"name"`
	IPv4      []string `json:"ipv4,omitempty"`
	IPv6      []string `json:"ipv6,omitempty"`
	BytesSent uint64   `json:"bytes_sent"`
	BytesRecv uint64   `json:"bytes_recv"`
}

// Network holds throughput rates in bits per second and the cumulative counters they came from.
type Network struct {
	TxBitsPerSec float64     `json:"tx_rate_bps"`
	RxBitsPerSec float64     `json:"rx_rate_bps"`
	BytesSent    uint64      `json:"bytes_sent"`
	BytesRecv    uint64      `json:"bytes_recv"`
	Interfaces   []Interface `json:"interfaces,omitempty"`
}

// GPU holds a single device snapshot.
type GPU struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	LoadPercent  float64  `json:"load_percent"`
	MemUsedMB    float64  `json:"mem_used_mb"`
	MemTotalMB   float64  `json:"mem_total_mb"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
}

// Battery shows power state.
type Battery struct {
	Percent float64 `json:"percent"`
	Plugged bool    `json:"plugged"`
}

// Platform describes the host.
type Platform struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Release  string `json:"release"`
	Arch     string `json:"arch"`
}

// System carries coarse host facts.
type System struct {
	UptimeSeconds uint64   `json:"uptime_seconds"`
	Battery       *Battery `json:"battery,omitempty"`
	Platform      Platform `json:"platform"`
}

// Subsystem names a reader that may be unavailable on a given host.
type Subsystem string

const (
	SubsystemCPU         Subsystem = "cpu"
	SubsystemMemory      Subsystem = "memory"
	SubsystemDisks       Subsystem = "disks"
	SubsystemDiskIO      Subsystem = "disk_io"
	SubsystemNetwork     Subsystem = "network"
	SubsystemGPU         Subsystem = "gpu"
	SubsystemTemperature Subsystem = "temperature"
	SubsystemBattery     Subsystem = "battery"
	SubsystemSystem      Subsystem = "system"
)

// Snapshot is the full point-in-time bundle exchanged between sampler, alert engine, UI and
// JSON exporter. It is passed by value and never modified after the sampler returns it.
type Snapshot struct {
	Timestamp   time.Time   `json:"timestamp"`
	CPU         CPU         `json:"cpu"`
	Memory      Memory      `json:"memory"`
	Disks       []Disk      `json:"disks"`
	DiskIO      DiskIO      `json:"disk_io"`
	Network     Network     `json:"network"`
	GPUs        []GPU       `json:"gpus"`
	System      System      `json:"system"`
	Unavailable []Subsystem `json:"unavailable,omitempty"`
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{Timestamp: time.Now()} }

// Available reports whether sub was read successfully.
func (s Snapshot) Available(sub Subsystem) bool {
	for _, u := range s.Unavailable {
		if u == sub {
			return false
		}
	}
	return true
}

// WorstDisk returns the disk with the highest Percent; ties go to the earliest entry.
func (s Snapshot) WorstDisk() (Disk, bool) {
	if len(s.Disks) == 0 {
		return Disk{}, false
	}
	worst := s.Disks[0]
	for _, d := range s.Disks[1:] {
		if d.Percent > worst.Percent {
			worst = d
		}
	}
	return worst, true
}

// WorstGPU returns the GPU with the highest LoadPercent; ties go to the earliest entry.
func (s Snapshot) WorstGPU() (GPU, bool) {
	if len(s.GPUs) == 0 {
		return GPU{}, false
	}
	worst := s.GPUs[0]
	for _, g := range s.GPUs[1:] {
		if g.LoadPercent > worst.LoadPercent {
			worst = g
		}
	}
	return worst, true
}

// ClampPercent bounds a reading to [0,100]. NaN maps to 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Percent returns used/total as a clamped percentage, 0 when total is 0.
func Percent(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return ClampPercent(float64(used) * 100 / float64(total))
}
