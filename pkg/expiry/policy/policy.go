package policy

import (
	"fmt"
	"time"

	"slate-hq/slate/pkg/expiry"
)

// TTLPolicy is the expiration rule for one data category.
type TTLPolicy struct {
	// Category is the data category this policy applies to.
	Category expiry.Category

	// BaseTTL is the time-to-live before tier multipliers.
	BaseTTL time.Duration

	// GracePeriod is the buffer after expiry before permanent deletion.
	// Must be >= 0.
	GracePeriod time.Duration

	// TierMultipliers scales BaseTTL per user tier. Tiers absent from the
	// map multiply by 1.0. Multipliers must be >= 0.
	TierMultipliers map[expiry.Tier]float64
}

// Multiplier returns the TTL multiplier for a tier, defaulting to 1.0 for
// unknown tiers.
func (p TTLPolicy) Multiplier(tier expiry.Tier) float64 {
	if m, ok := p.TierMultipliers[tier]; ok {
		return m
	}
	return 1.0
}

// TTLFor returns the effective TTL for a tier.
func (p TTLPolicy) TTLFor(tier expiry.Tier) time.Duration {
	return time.Duration(float64(p.BaseTTL) * p.Multiplier(tier))
}

// Table holds the TTL policy for every category. A Table is immutable once
// built; build a new one to change policies between cleanup runs.
type Table struct {
	policies map[expiry.Category]TTLPolicy
}

// defaultMultipliers are the tier multipliers applied to registered-user
// data categories.
func defaultMultipliers() map[expiry.Tier]float64 {
	return map[expiry.Tier]float64{
		expiry.TierFree:       1.0,
		expiry.TierPremium:    3.0,
		expiry.TierEnterprise: 12.0,
	}
}

// DefaultTable returns the built-in policy table.
func DefaultTable() *Table {
	policies := []TTLPolicy{
		{
			Category:        expiry.CategoryAnonymousStrokes,
			BaseTTL:         24 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: map[expiry.Tier]float64{expiry.TierAnonymous: 1.0},
		},
		{
			Category:        expiry.CategoryRegisteredStrokes,
			BaseTTL:         30 * 24 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryUnusedTemplates,
			BaseTTL:         7 * 24 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryTemporaryUploads,
			BaseTTL:         time.Hour,
			GracePeriod:     0, // temp files are deleted as soon as they expire
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryBoardExports,
			BaseTTL:         48 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryUserAvatars,
			BaseTTL:         30 * 24 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryEphemeralPresence,
			BaseTTL:         time.Hour,
			GracePeriod:     0,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryLoginHistory,
			BaseTTL:         90 * 24 * time.Hour, // compliance retention
			GracePeriod:     24 * time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
		{
			Category:        expiry.CategoryEditHistory,
			BaseTTL:         30 * 24 * time.Hour,
			GracePeriod:     time.Hour,
			TierMultipliers: defaultMultipliers(),
		},
	}

	table := &Table{policies: make(map[expiry.Category]TTLPolicy, len(policies))}
	for _, p := range policies {
		table.policies[p.Category] = p
	}
	return table
}

// NewTable builds a Table from explicit policies, validating each one.
// Every category in expiry.AllCategories must be covered.
func NewTable(policies []TTLPolicy) (*Table, error) {
	table := &Table{policies: make(map[expiry.Category]TTLPolicy, len(policies))}

	for _, p := range policies {
		if _, err := expiry.ParseCategory(string(p.Category)); err != nil {
			return nil, expiry.NewPolicyError(p.Category, err)
		}
		if p.BaseTTL <= 0 {
			return nil, expiry.NewPolicyError(p.Category, fmt.Errorf("base TTL must be positive, got %s", p.BaseTTL))
		}
		if p.GracePeriod < 0 {
			return nil, expiry.NewPolicyError(p.Category, fmt.Errorf("grace period must be >= 0, got %s", p.GracePeriod))
		}
		for tier, m := range p.TierMultipliers {
			if m < 0 {
				return nil, expiry.NewPolicyError(p.Category, fmt.Errorf("multiplier for tier %q must be >= 0, got %f", tier, m))
			}
		}
		table.policies[p.Category] = p
	}

	for _, c := range expiry.AllCategories() {
		if _, ok := table.policies[c]; !ok {
			return nil, expiry.NewPolicyError(c, fmt.Errorf("no policy defined"))
		}
	}

	return table, nil
}

// Policies returns a copy of every policy in category order. Mutating the
// returned slice never affects the table; pass the result to NewTable to
// build a modified one.
func (t *Table) Policies() []TTLPolicy {
	policies := make([]TTLPolicy, 0, len(t.policies))
	for _, c := range expiry.AllCategories() {
		if p, ok := t.policies[c]; ok {
			policies = append(policies, p)
		}
	}
	return policies
}

// Policy returns the policy for a category. An unknown category is a
// programmer error: categories are fixed at startup.
func (t *Table) Policy(category expiry.Category) (TTLPolicy, error) {
	p, ok := t.policies[category]
	if !ok {
		return TTLPolicy{}, expiry.NewPolicyError(category, fmt.Errorf("no policy defined"))
	}
	return p, nil
}

// ExpiryFor returns the expires_at timestamp to stamp onto a record created
// at now by an owner of the given tier.
func (t *Table) ExpiryFor(category expiry.Category, tier expiry.Tier, now time.Time) (time.Time, error) {
	p, err := t.Policy(category)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(p.TTLFor(tier)), nil
}

// DeletionThresholdFor returns the earliest time a record created at
// createdAt may be permanently deleted: expiry plus the grace period.
func (t *Table) DeletionThresholdFor(category expiry.Category, tier expiry.Tier, createdAt time.Time) (time.Time, error) {
	p, err := t.Policy(category)
	if err != nil {
		return time.Time{}, err
	}
	return createdAt.Add(p.TTLFor(tier)).Add(p.GracePeriod), nil
}

// GracePeriod returns the grace period for a category.
func (t *Table) GracePeriod(category expiry.Category) (time.Duration, error) {
	p, err := t.Policy(category)
	if err != nil {
		return 0, err
	}
	return p.GracePeriod, nil
}

// StampRecord sets rec.ExpiresAt from the record's category and the owner's
// tier. Intended for the CRUD layer at record creation time.
func (t *Table) StampRecord(rec *expiry.Record, tier expiry.Tier, now time.Time) error {
	expiresAt, err := t.ExpiryFor(rec.Category, tier, now)
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.ExpiresAt = expiresAt
	return nil
}
