package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"MarketLog/internal/domain/models"
	"MarketLog/pkg/util"
)

// Quote is a successfully extracted close.
type Quote struct {
	Value float64
	Date  string
}

// ResultExtractor pulls the latest close for one symbol out of a provider table.
type ResultExtractor struct{}

func NewResultExtractor() *ResultExtractor {
	return &ResultExtractor{}
}

// Extract never panics; every failure comes back as an extraction *models.Failure.
func (e *ResultExtractor) Extract(raw *models.TabularResult, symbol string) (q Quote, err error) {
	defer func() {
		if r := recover(); r != nil {
			q = Quote{}
			err = extractionFailure(models.ReasonExtractErrPrefix+models.KindOf(r), fmt.Errorf("%v", r))
		}
	}()

	if raw.Empty() {
		return Quote{}, extractionFailure(models.ReasonEmptyResult, nil)
	}

	var series []any
	switch raw.Layout {
	case models.LayoutTwoLevel:
		s, ok := raw.Keyed[models.ColumnKey{models.FieldClose, symbol}]
		if !ok {
			s, ok = raw.Keyed[models.ColumnKey{symbol, models.FieldClose}]
		}
		if !ok {
			return Quote{}, extractionFailure(models.ReasonCloseNotFoundForSymbol, nil)
		}
		series = s
	case models.LayoutFlat:
		s, ok := raw.Flat[models.FieldClose]
		if !ok {
			return Quote{}, extractionFailure(models.ReasonCloseMissing, nil)
		}
		series = s
	default:
		return Quote{}, extractionFailure(models.ReasonExtractErrPrefix+"UnknownLayout", nil)
	}

	if len(series) != len(raw.Index) {
		return Quote{}, extractionFailure(models.ReasonExtractErrPrefix+"IndexMismatch",
			fmt.Errorf("series has %d cells, index has %d", len(series), len(raw.Index)))
	}

	for i := len(series) - 1; i >= 0; i-- {
		v, ok := toNumber(series[i])
		if !ok {
			continue
		}
		if v <= 0 {
			return Quote{}, extractionFailure(models.ReasonNonPositive, fmt.Errorf("last close %v", v))
		}
		return Quote{Value: v, Date: raw.Index[i].Format(util.DayLayout)}, nil
	}
	return Quote{}, extractionFailure(models.ReasonNoNumericClose, nil)
}

func extractionFailure(reason string, err error) error {
	return models.NewFailure(models.ClassExtraction, reason, err)
}

// toNumber coerces a provider cell, rejecting NaN and infinities.
func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
