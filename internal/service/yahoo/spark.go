package yahoo

import (
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"MarketLog/internal/domain/models"
	"MarketLog/pkg/util"
)

// series is one symbol's closes keyed by exchange-local calendar day.
type series map[time.Time]any

// parseSpark accepts the enveloped form
//
//	{"spark":{"result":[{"symbol":"X","response":[{"meta":{"gmtoffset":..},"timestamp":[..],"indicators":{"quote":[{"close":[..]}]}}]}]}}
//
// and the flat form {"X":{"timestamp":[..],"close":[..]}}.
func parseSpark(body []byte) (map[string]series, error) {
	if !gjson.ValidBytes(body) {
		return nil, decodeError("invalid json (%d bytes)", len(body))
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, decodeError("unexpected top-level %s", doc.Type)
	}

	out := make(map[string]series)
	if spark := doc.Get("spark"); spark.Exists() {
		if desc := spark.Get("error.description"); desc.Exists() && desc.String() != "" {
			return nil, decodeError("spark error: %s", desc.String())
		}
		spark.Get("result").ForEach(func(_, r gjson.Result) bool {
			sym := r.Get("symbol").String()
			resp := r.Get("response.0")
			if sym == "" || !resp.Exists() {
				return true
			}
			out[sym] = collect(resp.Get("timestamp"), resp.Get("indicators.quote.0.close"), resp.Get("meta.gmtoffset").Int())
			return true
		})
		return out, nil
	}

	doc.ForEach(func(key, v gjson.Result) bool {
		if !v.IsObject() || !v.Get("timestamp").IsArray() {
			return true
		}
		out[key.String()] = collect(v.Get("timestamp"), v.Get("close"), v.Get("gmtoffset").Int())
		return true
	})
	return out, nil
}

// collect folds timestamps into days; within a day the last non-null close wins.
func collect(ts, closes gjson.Result, gmtOffset int64) series {
	s := make(series)
	stamps := ts.Array()
	values := closes.Array()
	for i, stamp := range stamps {
		day := util.DayOf(stamp.Int(), gmtOffset)
		var cell any
		if i < len(values) {
			cell = cellValue(values[i])
		}
		if cell == nil {
			if _, seen := s[day]; !seen {
				s[day] = nil
			}
			continue
		}
		s[day] = cell
	}
	return s
}

func cellValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return v.String()
	}
	return nil
}

func seriesFor(data map[string]series, symbol string) (series, bool) {
	if s, ok := data[symbol]; ok {
		return s, true
	}
	for key, s := range data {
		if strings.EqualFold(key, symbol) {
			return s, true
		}
	}
	return nil, false
}

// buildTable aligns the requested symbols on the union of their days.
func buildTable(symbols []string, data map[string]series, order ColumnOrder) *models.TabularResult {
	// keys must name the requested symbol; only letter case may differ
	matched := make(map[string]series, len(symbols))
	for _, sym := range symbols {
		if ser, ok := seriesFor(data, sym); ok {
			matched[sym] = ser
		}
	}
	data = matched

	daySet := make(map[time.Time]struct{})
	for _, sym := range symbols {
		for day := range data[sym] {
			daySet[day] = struct{}{}
		}
	}

	index := make([]time.Time, 0, len(daySet))
	for day := range daySet {
		index = append(index, day)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	column := func(s series) []any {
		cells := make([]any, len(index))
		for i, day := range index {
			cells[i] = s[day]
		}
		return cells
	}

	if len(symbols) == 1 {
		t := models.NewFlatResult(index)
		if s, ok := data[symbols[0]]; ok && len(index) > 0 {
			t.Flat[models.FieldClose] = column(s)
		}
		return t
	}

	t := models.NewTwoLevelResult(index)
	for _, sym := range symbols {
		s, ok := data[sym]
		if !ok {
			continue
		}
		t.Keyed[order.key(sym)] = column(s)
	}
	return t
}
