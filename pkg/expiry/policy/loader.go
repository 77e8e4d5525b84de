package policy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"slate-hq/slate/pkg/expiry"
)

// filePolicy is the YAML shape of one category override.
type filePolicy struct {
	TTL             time.Duration      `yaml:"ttl"`
	GracePeriod     *time.Duration     `yaml:"grace_period"`
	TierMultipliers map[string]float64 `yaml:"tier_multipliers"`
}

// policyFile is the YAML shape of a policy file. Categories absent from the
// file keep their built-in defaults.
type policyFile struct {
	Categories map[string]filePolicy `yaml:"categories"`
}

// LoadFile builds a Table from the built-in defaults overridden by the YAML
// policy file at path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Table from YAML policy data layered over the defaults.
func Parse(data []byte) (*Table, error) {
	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	defaults := DefaultTable()
	policies := make([]TTLPolicy, 0, len(defaults.policies))

	for _, category := range expiry.AllCategories() {
		p := defaults.policies[category]

		if override, ok := pf.Categories[string(category)]; ok {
			if override.TTL != 0 {
				p.BaseTTL = override.TTL
			}
			if override.GracePeriod != nil {
				p.GracePeriod = *override.GracePeriod
			}
			if len(override.TierMultipliers) > 0 {
				multipliers := make(map[expiry.Tier]float64, len(override.TierMultipliers))
				for tier, m := range override.TierMultipliers {
					multipliers[expiry.Tier(tier)] = m
				}
				p.TierMultipliers = multipliers
			}
		}

		policies = append(policies, p)
	}

	// Reject overrides for categories that do not exist.
	for name := range pf.Categories {
		if _, err := expiry.ParseCategory(name); err != nil {
			return nil, fmt.Errorf("policy file: %w", err)
		}
	}

	return NewTable(policies)
}
