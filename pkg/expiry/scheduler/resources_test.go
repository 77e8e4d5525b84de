package scheduler

import (
	"os"
	"testing"
)

// TestResourceGate_Thresholds tests both directions of the gate on hosts
// that expose /proc; elsewhere the gate must assume resources are OK.
func TestResourceGate_Thresholds(t *testing.T) {
	// Impossible thresholds never skip
	relaxed := newResourceGate(101, 101, 101, "/")
	if skip, reason := relaxed.check(); skip {
		t.Errorf("Gate must not skip under impossible thresholds: %s", reason)
	}

	if _, err := os.Stat("/proc/meminfo"); err != nil {
		t.Skip("host has no /proc; gate treats unreadable probes as OK")
	}

	// Any real usage exceeds a negative threshold
	strict := newResourceGate(-1, -1, -1, "/")
	if skip, _ := strict.check(); !skip {
		t.Error("Gate should skip when every threshold is below zero")
	}
}

// TestResourceGate_MissingProc tests the assume-OK fallback for unreadable
// probes.
func TestResourceGate_MissingProc(t *testing.T) {
	gate := newResourceGate(-1, 101, 101, "/nonexistent-mount-point")
	// Disk probe fails (bad path) and must be treated as OK. Memory may
	// still trip on /proc hosts; only a disk skip reason is forbidden here.
	if skip, reason := gate.check(); skip && reason != "" {
		if got := reason; len(got) >= 4 && got[:4] == "disk" {
			t.Errorf("Disk probe failure must be assumed OK, got %q", got)
		}
	}
}

// TestReadCPUPercent_FirstSampleIsZero tests the no-baseline case.
func TestReadCPUPercent_FirstSampleIsZero(t *testing.T) {
	if _, err := os.Stat("/proc/stat"); err != nil {
		t.Skip("host has no /proc")
	}
	gate := newResourceGate(90, 95, 95, "/")
	pct, err := gate.readCPUPercent()
	if err != nil {
		t.Fatalf("readCPUPercent() failed: %v", err)
	}
	if pct != 0 {
		t.Errorf("First sample has no baseline, expected 0, got %f", pct)
	}
}
