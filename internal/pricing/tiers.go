// Package pricing maps Klaviyo contact counts to monthly plan prices and
// derives the savings from shrinking an audience. The tier table is
// versioned data harvested from the vendor pricing page, not a
// vendor-confirmed contract; see cmd/pricing-scrape for refreshing it.
package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TableVersion identifies when the built-in tier table was last refreshed
// against the vendor pricing page.
const TableVersion = "2024-10"

// Tier is a contiguous contact-count range with a fixed monthly price in USD.
type Tier struct {
	Min   int     `json:"min" yaml:"min"`
	Max   int     `json:"max" yaml:"max"`
	Price float64 `json:"price" yaml:"price"`
}

// Savings is the billing impact of removing inactiveCount contacts.
type Savings struct {
	MonthlySavings float64
	AnnualSavings  float64
	CurrentTier    Tier
	NewTier        Tier
}

// Table is an ordered sequence of non-overlapping tiers. Counts above the
// last tier fall through to a linear extrapolation.
type Table struct {
	Version string `yaml:"version"`
	Tiers   []Tier `yaml:"tiers"`
}

// DefaultTable is the built-in tier table covering 0..150000 contacts.
var DefaultTable = Table{
	Version: TableVersion,
	Tiers: []Tier{
		{Min: 0, Max: 500, Price: 0},
		{Min: 501, Max: 1000, Price: 30},
		{Min: 1001, Max: 2500, Price: 50},
		{Min: 2501, Max: 5000, Price: 75},
		{Min: 5001, Max: 10000, Price: 125},
		{Min: 10001, Max: 15000, Price: 200},
		{Min: 15001, Max: 20000, Price: 275},
		{Min: 20001, Max: 25000, Price: 350},
		{Min: 25001, Max: 30000, Price: 425},
		{Min: 30001, Max: 35000, Price: 500},
		{Min: 35001, Max: 40000, Price: 575},
		{Min: 40001, Max: 45000, Price: 650},
		{Min: 45001, Max: 50000, Price: 725},
		{Min: 50001, Max: 60000, Price: 850},
		{Min: 60001, Max: 70000, Price: 975},
		{Min: 70001, Max: 85000, Price: 1150},
		{Min: 85001, Max: 100000, Price: 1400},
		{Min: 100001, Max: 125000, Price: 1700},
		{Min: 125001, Max: 150000, Price: 2000},
	},
}

// LoadTable reads a tier table override from a YAML file. An empty path
// returns the built-in table.
func LoadTable(path string) (Table, error) {
	if path == "" {
		return DefaultTable, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("failed to read pricing table: %w", err)
	}
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return Table{}, fmt.Errorf("failed to parse pricing table: %w", err)
	}
	if len(table.Tiers) == 0 {
		return Table{}, fmt.Errorf("pricing table %s has no tiers", path)
	}
	return table, nil
}

// TierFor returns the tier covering count. Counts beyond the table's top
// bound get a synthetic single-count tier priced at $15 per 100 contacts, a
// linear estimate for ranges the vendor does not publish.
func (t Table) TierFor(count int) Tier {
	for _, tier := range t.Tiers {
		if count >= tier.Min && count <= tier.Max {
			return tier
		}
	}
	return Tier{Min: count, Max: count, Price: float64(count/100) * 15}
}

// Savings computes the monthly and annual billing change from removing
// inactiveCount contacts out of currentCount. The post-removal count clamps
// at zero; the savings themselves are not clamped.
func (t Table) Savings(currentCount, inactiveCount int) Savings {
	currentTier := t.TierFor(currentCount)
	newCount := currentCount - inactiveCount
	if newCount < 0 {
		newCount = 0
	}
	newTier := t.TierFor(newCount)

	monthly := currentTier.Price - newTier.Price
	return Savings{
		MonthlySavings: monthly,
		AnnualSavings:  monthly * 12,
		CurrentTier:    currentTier,
		NewTier:        newTier,
	}
}
