package models

import (
	"math"
	"strconv"
	"strings"
)

// LogView resolves primary-log columns by name so readers tolerate column
// order changes and the older "<asset>_price" layout.
type LogView struct {
	cols map[string]int
}

func NewLogView(header []string) *LogView {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	return &LogView{cols: cols}
}

// Get returns the trimmed cell for col, if the column exists in the row.
func (v *LogView) Get(row []string, col string) (string, bool) {
	i, ok := v.cols[col]
	if !ok || i >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[i]), true
}

// AssetValue reads an asset's value and decides whether it counts as missing.
// The missing flag wins over the fail text; a non-numeric, NaN or
// non-positive value is missing whatever the flag says.
func (v *LogView) AssetValue(row []string, asset string) (value float64, raw string, missing bool) {
	raw, ok := v.Get(row, asset)
	if !ok {
		raw, _ = v.Get(row, asset+"_price")
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, raw, true
	}
	if value <= 0 {
		return value, raw, true
	}
	if flag, ok := v.Get(row, asset+"_missing"); ok && truthy(flag) {
		return value, raw, true
	}
	if flag, ok := v.Get(row, asset+"_ok"); ok && !truthy(flag) {
		return value, raw, true
	}
	if src, ok := v.Get(row, asset+"_src"); ok && src == string(SourceMissing) {
		return value, raw, true
	}
	return value, raw, false
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "1.0", "true", "yes":
		return true
	}
	return false
}
