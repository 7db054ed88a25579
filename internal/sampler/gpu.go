package sampler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spartamonitor/spartamon/internal/model"
)

const gpuQueryTimeout = 400 * time.Millisecond

var nvidiaQuery = []string{
	"--query-gpu=index,name,utilization.gpu,memory.used,memory.total,temperature.gpu",
	"--format=csv,noheader,nounits",
}

func queryNvidiaSMI(ctx context.Context, bin string) ([]model.GPU, error) {
	out, err := runCmd(ctx, gpuQueryTimeout, bin, nvidiaQuery...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrNoGPU
		}
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseNvidiaSMI(out), nil
}

// parseNvidiaSMI reads csv rows of index,name,util,mem.used,mem.total,temp.
// Fields reported as [N/A] or [Not Supported] become zero, or nil for temperature.
func parseNvidiaSMI(out string) []model.GPU {
	var gpus []model.GPU
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		parts := strings.Split(sc.Text(), ",")
		if len(parts) < 6 {
			continue
		}
		util, _ := parseFloat(parts[2])
		memUsed, _ := parseFloat(parts[3])
		memTotal, _ := parseFloat(parts[4])
		g := model.GPU{
			ID:          strings.TrimSpace(parts[0]),
			Name:        strings.TrimSpace(parts[1]),
			LoadPercent: util,
			MemUsedMB:   memUsed,
			MemTotalMB:  memTotal,
		}
		if temp, ok := parseFloat(parts[5]); ok {
			g.TemperatureC = &temp
		}
		gpus = append(gpus, g)
	}
	return gpus
}

func runCmd(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if ctx.Err() == context.DeadlineExceeded {
		return "", ctx.Err()
	}
	return string(out), err
}
