package sampler

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

// readNetwork sums counters across every interface and converts them to bits per second.
func (s *Sampler) readNetwork(ctx context.Context, now time.Time) (model.Network, error) {
	counters, err := s.src.NetCounters(ctx)
	if err != nil {
		return model.Network{}, err
	}
	var out model.Network
	byName := make(map[string]int, len(counters))
	for i, c := range counters {
		out.BytesSent += c.BytesSent
		out.BytesRecv += c.BytesRecv
		byName[c.Name] = i
	}
	tx, rx := s.net.observe(now, out.BytesSent, out.BytesRecv)
	out.TxBitsPerSec, out.RxBitsPerSec = tx*8, rx*8

	ifaces, err := s.src.Interfaces(ctx)
	if err != nil {
		// Rates are still valid without the address table.
		return out, nil
	}
	for _, iface := range ifaces {
		entry := model.Interface{Name: iface.Name}
		for _, a := range iface.Addrs {
			addr, ok := parseAddr(a.Addr)
			if !ok {
				continue
			}
			if addr.Is4() || addr.Is4In6() {
				entry.IPv4 = append(entry.IPv4, addr.Unmap().String())
			} else {
				entry.IPv6 = append(entry.IPv6, addr.String())
			}
		}
		if i, ok := byName[iface.Name]; ok {
			entry.BytesSent = counters[i].BytesSent
			entry.BytesRecv = counters[i].BytesRecv
		}
		out.Interfaces = append(out.Interfaces, entry)
	}
	return out, nil
}

// parseAddr accepts both "10.0.0.2/24" and bare addresses.
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if p, err := netip.ParsePrefix(s); err == nil {
		return p.Addr(), true
	}
	a, err := netip.ParseAddr(s)
	return a, err == nil
}
