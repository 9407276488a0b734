package models

import "time"

// FieldClose is the column the extractor looks for.
const FieldClose = "close"

// Layout tells how a TabularResult keys its columns.
type Layout int

const (
	// LayoutFlat has one column per field (single-symbol responses).
	LayoutFlat Layout = iota + 1
	// LayoutTwoLevel keys columns by a pair whose order varies by provider
	// settings: (field, symbol) or (symbol, field).
	LayoutTwoLevel
)

func (l Layout) String() string {
	switch l {
	case LayoutFlat:
		return "flat"
	case LayoutTwoLevel:
		return "two_level"
	}
	return "unknown"
}

// ColumnKey is a two-level column label.
type ColumnKey [2]string

// TabularResult is the raw time-indexed table returned by a provider.
// Cells hold whatever the provider produced (float64, string, nil...);
// the extractor is responsible for coercing them.
type TabularResult struct {
	Layout Layout
	Index  []time.Time
	Flat   map[string][]any
	Keyed  map[ColumnKey][]any
}

// NewFlatResult builds a flat table.
func NewFlatResult(index []time.Time) *TabularResult {
	return &TabularResult{Layout: LayoutFlat, Index: index, Flat: map[string][]any{}}
}

// NewTwoLevelResult builds a two-level table.
func NewTwoLevelResult(index []time.Time) *TabularResult {
	return &TabularResult{Layout: LayoutTwoLevel, Index: index, Keyed: map[ColumnKey][]any{}}
}

// Empty reports whether there is nothing to extract from.
func (t *TabularResult) Empty() bool {
	if t == nil || len(t.Index) == 0 {
		return true
	}
	switch t.Layout {
	case LayoutFlat:
		return len(t.Flat) == 0
	case LayoutTwoLevel:
		return len(t.Keyed) == 0
	}
	return true
}
