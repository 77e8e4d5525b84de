package scheduler

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
)

// resourceGate checks host pressure before a cleanup run. Every probe is
// best-effort: a host without /proc (or an unreadable file) reports OK, so
// missing introspection never blocks scheduling.
type resourceGate struct {
	memoryThresholdPct float64
	diskThresholdPct   float64
	cpuThresholdPct    float64
	diskPath           string

	mu      sync.Mutex
	prevCPU *cpuSample
}

type cpuSample struct {
	total uint64
	idle  uint64
}

func newResourceGate(memPct, diskPct, cpuPct float64, diskPath string) *resourceGate {
	if diskPath == "" {
		diskPath = "/"
	}
	return &resourceGate{
		memoryThresholdPct: memPct,
		diskThresholdPct:   diskPct,
		cpuThresholdPct:    cpuPct,
		diskPath:           diskPath,
	}
}

// check reports whether the run should be skipped and why.
func (g *resourceGate) check() (skip bool, reason string) {
	if pct, err := readMemoryPercent(); err == nil && pct > g.memoryThresholdPct {
		return true, fmt.Sprintf("memory usage %.1f%% exceeds %.1f%%", pct, g.memoryThresholdPct)
	}
	if pct, err := readDiskPercent(g.diskPath); err == nil && pct > g.diskThresholdPct {
		return true, fmt.Sprintf("disk usage %.1f%% exceeds %.1f%%", pct, g.diskThresholdPct)
	}
	if pct, err := g.readCPUPercent(); err == nil && pct > g.cpuThresholdPct {
		return true, fmt.Sprintf("cpu usage %.1f%% exceeds %.1f%%", pct, g.cpuThresholdPct)
	}
	return false, ""
}

func readMemoryPercent() (float64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var total, available uint64
	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			available, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if err := s.Err(); err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, errors.New("meminfo parse failed")
	}
	return 100 * (1 - float64(available)/float64(total)), nil
}

func readDiskPercent(path string) (float64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, err
	}
	total := st.Blocks * uint64(st.Bsize)
	if total == 0 {
		return 0, errors.New("statfs reported zero blocks")
	}
	free := st.Bavail * uint64(st.Bsize)
	return 100 * (1 - float64(free)/float64(total)), nil
}

// readCPUPercent derives utilization from the delta between consecutive
// /proc/stat samples. The first call has no baseline and reports 0.
func (g *resourceGate) readCPUPercent() (float64, error) {
	total, idle, err := readCPUSample()
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.prevCPU
	g.prevCPU = &cpuSample{total: total, idle: idle}
	if prev == nil {
		return 0, nil
	}

	deltaTotal := total - prev.total
	deltaIdle := idle - prev.idle
	if deltaTotal == 0 {
		return 0, nil
	}
	return 100 * (1 - float64(deltaIdle)/float64(deltaTotal)), nil
}

func readCPUSample() (total, idle uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 5 {
			return 0, 0, errors.New("invalid cpu line")
		}
		vals := make([]uint64, 0, len(parts)-1)
		for _, p := range parts[1:] {
			v, e := strconv.ParseUint(p, 10, 64)
			if e != nil {
				return 0, 0, e
			}
			vals = append(vals, v)
			total += v
		}
		idle = vals[3]
		if len(vals) > 4 {
			idle += vals[4] // iowait counts as idle
		}
		return total, idle, nil
	}
	if err := s.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, errors.New("cpu line not found")
}
