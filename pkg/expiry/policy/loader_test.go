package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"slate-hq/slate/pkg/expiry"
)

// TestParse_Overrides tests that file values layer over defaults and
// untouched categories keep theirs.
func TestParse_Overrides(t *testing.T) {
	data := []byte(`
categories:
  anonymous_strokes:
    ttl: 48h
    grace_period: 2h
  temporary_uploads:
    tier_multipliers:
      free: 1.0
      premium: 5.0
`)

	table, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	anon, err := table.Policy(expiry.CategoryAnonymousStrokes)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if anon.BaseTTL != 48*time.Hour {
		t.Errorf("Expected 48h TTL, got %s", anon.BaseTTL)
	}
	if anon.GracePeriod != 2*time.Hour {
		t.Errorf("Expected 2h grace, got %s", anon.GracePeriod)
	}

	temp, err := table.Policy(expiry.CategoryTemporaryUploads)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if temp.BaseTTL != time.Hour {
		t.Errorf("Unoverridden TTL must keep its default, got %s", temp.BaseTTL)
	}
	if got := temp.Multiplier(expiry.TierPremium); got != 5.0 {
		t.Errorf("Expected premium multiplier 5.0, got %f", got)
	}

	// A category absent from the file is untouched
	exports, err := table.Policy(expiry.CategoryBoardExports)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if exports.BaseTTL != 48*time.Hour {
		t.Errorf("Expected default 48h export TTL, got %s", exports.BaseTTL)
	}
}

// TestParse_ZeroGraceOverride tests that an explicit zero grace period is
// honored rather than treated as unset.
func TestParse_ZeroGraceOverride(t *testing.T) {
	data := []byte(`
categories:
  login_history:
    grace_period: 0s
`)
	table, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	p, err := table.Policy(expiry.CategoryLoginHistory)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if p.GracePeriod != 0 {
		t.Errorf("Expected 0 grace, got %s", p.GracePeriod)
	}
}

// TestParse_Rejections tests the error paths.
func TestParse_Rejections(t *testing.T) {
	// Unknown category name
	if _, err := Parse([]byte("categories:\n  ghost_rows:\n    ttl: 1h\n")); err == nil {
		t.Error("Expected error for unknown category")
	}

	// Invalid YAML
	if _, err := Parse([]byte("categories: [not a map")); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	// Invalid override value caught by table validation
	if _, err := Parse([]byte("categories:\n  anonymous_strokes:\n    ttl: -1h\n")); err == nil {
		t.Error("Expected error for negative TTL")
	}
}

// TestLoadFile tests loading from disk.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	content := "categories:\n  board_exports:\n    ttl: 72h\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	p, err := table.Policy(expiry.CategoryBoardExports)
	if err != nil {
		t.Fatalf("Policy() failed: %v", err)
	}
	if p.BaseTTL != 72*time.Hour {
		t.Errorf("Expected 72h TTL, got %s", p.BaseTTL)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
