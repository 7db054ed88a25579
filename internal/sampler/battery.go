package sampler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spartamonitor/spartamon/internal/model"
)

// readBattery reports the first BAT* supply under dir. The host counts as plugged in unless
// the supply says it is discharging.
func readBattery(dir string) (*model.Battery, error) {
	capPaths, _ := filepath.Glob(filepath.Join(dir, "BAT*", "capacity"))
	for _, capPath := range capPaths {
		capBytes, err := os.ReadFile(capPath)
		if err != nil {
			continue
		}
		pct, ok := parseFloat(string(capBytes))
		if !ok {
			continue
		}
		stateBytes, _ := os.ReadFile(filepath.Join(filepath.Dir(capPath), "status"))
		state := strings.TrimSpace(string(stateBytes))
		return &model.Battery{
			Percent: pct,
			Plugged: !strings.EqualFold(state, "Discharging"),
		}, nil
	}
	return nil, ErrNoBattery
}
