// Package format renders byte counts, bit rates and durations for display.
package format

import (
	"fmt"
	"strings"
)

var (
	byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}
	rateUnits = []string{"bps", "Kbps", "Mbps", "Gbps", "Tbps"}
)

// Bytes scales by 1024: "512 B", "1.5 KB".
func Bytes(n uint64) string {
	x := float64(n)
	for i, u := range byteUnits {
		if x < 1024 || i == len(byteUnits)-1 {
			if i == 0 {
				return fmt.Sprintf("%d %s", n, u)
			}
			return fmt.Sprintf("%.1f %s", x, u)
		}
		x /= 1024
	}
	return ""
}

// Rate scales bits per second by 1000: "1.0 Kbps".
func Rate(bps float64) string {
	x := bps
	for i, u := range rateUnits {
		if x < 1000 || i == len(rateUnits)-1 {
			return fmt.Sprintf("%.1f %s", x, u)
		}
		x /= 1000
	}
	return ""
}

// Duration prints seconds as "1d 2h 3m 4s", dropping leading zero units.
func Duration(seconds uint64) string {
	d := seconds / 86400
	h := seconds % 86400 / 3600
	m := seconds % 3600 / 60
	s := seconds % 60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 || d > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if m > 0 || h > 0 || d > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, " ")
}
