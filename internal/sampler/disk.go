package sampler

import (
	"context"
	"strings"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

// readDisks lists mounted partitions once per (device, mountpoint). Mounts whose usage
// cannot be read are left out.
func (s *Sampler) readDisks(ctx context.Context) ([]model.Disk, error) {
	parts, err := s.src.Partitions(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[[2]string]struct{}, len(parts))
	disks := make([]model.Disk, 0, len(parts))
	for _, p := range parts {
		key := [2]string{p.Device, p.Mountpoint}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		usage, err := s.src.Usage(ctx, p.Mountpoint)
		if err != nil || usage == nil {
			continue
		}
		fstype := p.Fstype
		if fstype == "" {
			fstype = usage.Fstype
		}
		disks = append(disks, model.Disk{
			Device:     p.Device,
			Mountpoint: p.Mountpoint,
			Fstype:     fstype,
			TotalBytes: usage.Total,
			UsedBytes:  usage.Used,
			FreeBytes:  usage.Free,
			Percent:    model.ClampPercent(usage.UsedPercent),
		})
	}
	return disks, nil
}

func (s *Sampler) readDiskIO(ctx context.Context, now time.Time) (model.DiskIO, error) {
	counters, err := s.src.DiskCounters(ctx)
	if err != nil {
		return model.DiskIO{}, err
	}
	var rd, wr uint64
	for name, st := range counters {
		if strings.HasPrefix(name, "loop") {
			continue
		}
		rd += st.ReadBytes
		wr += st.WriteBytes
	}
	r, w := s.diskIO.observe(now, rd, wr)
	return model.DiskIO{ReadBytesPerSec: r, WriteBytesPerSec: w}, nil
}
