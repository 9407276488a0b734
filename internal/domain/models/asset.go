package models

import (
	"fmt"
	"strings"
)

// AssetSpec binds a display name to a provider symbol and its deviation threshold.
type AssetSpec struct {
	Name                string  `json:"name" yaml:"name" validate:"required"`
	Symbol              string  `json:"symbol" yaml:"symbol" validate:"required"`
	AnomalyThresholdPct float64 `json:"anomaly_threshold_pct" yaml:"anomaly_threshold_pct" validate:"gte=0"`

	// Range is an optional sanity band [low, high] checked by the monitor.
	Range []float64 `json:"range,omitempty" yaml:"range,omitempty" validate:"omitempty,len=2"`
}

// InRange reports whether v sits inside the configured band. Assets without
// a band accept everything.
func (a AssetSpec) InRange(v float64) bool {
	if len(a.Range) != 2 {
		return true
	}
	return v >= a.Range[0] && v <= a.Range[1]
}

// DefaultAssets is the catalog used when no configuration overrides it.
func DefaultAssets() []AssetSpec {
	return []AssetSpec{
		{Name: "USDJPY", Symbol: "JPY=X", AnomalyThresholdPct: 0.05, Range: []float64{50, 300}},
		{Name: "BTC", Symbol: "BTC-USD", AnomalyThresholdPct: 0.20, Range: []float64{1000, 1_000_000}},
		{Name: "Gold", Symbol: "GC=F", AnomalyThresholdPct: 0.10, Range: []float64{100, 50_000}},
		{Name: "US10Y", Symbol: "^TNX", AnomalyThresholdPct: 0.25, Range: []float64{0, 20}},
		{Name: "Oil", Symbol: "CL=F", AnomalyThresholdPct: 0.15, Range: []float64{1, 500}},
		{Name: "VIX", Symbol: "^VIX", AnomalyThresholdPct: 0.50, Range: []float64{1, 200}},
	}
}

// AssetCatalog is the immutable, ordered set of assets a process works with.
// Its order fixes the column layout of every log row.
type AssetCatalog struct {
	specs    []AssetSpec
	byName   map[string]int
	bySymbol map[string]int
}

// NewAssetCatalog validates specs and freezes them.
func NewAssetCatalog(specs []AssetSpec) (*AssetCatalog, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("asset catalog: no assets configured")
	}

	c := &AssetCatalog{
		specs:    make([]AssetSpec, 0, len(specs)),
		byName:   make(map[string]int, len(specs)),
		bySymbol: make(map[string]int, len(specs)),
	}
	for i, s := range specs {
		s.Name = strings.TrimSpace(s.Name)
		s.Symbol = strings.TrimSpace(s.Symbol)
		switch {
		case s.Name == "":
			return nil, fmt.Errorf("asset catalog: entry %d has empty name", i)
		case strings.ContainsAny(s.Name, ",\"\r\n"):
			return nil, fmt.Errorf("asset catalog: name %q cannot be used as a column", s.Name)
		case s.Symbol == "":
			return nil, fmt.Errorf("asset catalog: asset %s has empty symbol", s.Name)
		case s.AnomalyThresholdPct < 0:
			return nil, fmt.Errorf("asset catalog: asset %s has negative threshold", s.Name)
		case len(s.Range) != 0 && (len(s.Range) != 2 || s.Range[0] > s.Range[1]):
			return nil, fmt.Errorf("asset catalog: asset %s has invalid range %v", s.Name, s.Range)
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("asset catalog: duplicate name %s", s.Name)
		}
		if _, dup := c.bySymbol[s.Symbol]; dup {
			return nil, fmt.Errorf("asset catalog: duplicate symbol %s", s.Symbol)
		}
		if s.Range != nil {
			s.Range = append([]float64(nil), s.Range...)
		}
		c.byName[s.Name] = len(c.specs)
		c.bySymbol[s.Symbol] = len(c.specs)
		c.specs = append(c.specs, s)
	}
	return c, nil
}

// Assets returns a copy of the specs in catalog order.
func (c *AssetCatalog) Assets() []AssetSpec {
	out := make([]AssetSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

func (c *AssetCatalog) Len() int { return len(c.specs) }

func (c *AssetCatalog) Names() []string {
	out := make([]string, len(c.specs))
	for i, s := range c.specs {
		out[i] = s.Name
	}
	return out
}
