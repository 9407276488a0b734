package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLog/internal/domain/models"
	"MarketLog/internal/service/ratelimit"
	"MarketLog/internal/usecase"
	pkghttp "MarketLog/pkg/http"
)

// timestamps: 2024-03-01 00:00 UTC and 2024-03-04 00:00 UTC
const envelopeBody = `{"spark":{"result":[
 {"symbol":"JPY=X","response":[{"meta":{"gmtoffset":0},"timestamp":[1709251200,1709510400],"indicators":{"quote":[{"close":[150.1,150.9]}]}}]},
 {"symbol":"BTC-USD","response":[{"meta":{"gmtoffset":0},"timestamp":[1709251200,1709510400],"indicators":{"quote":[{"close":[61000.5,null]}]}}]}
],"error":null}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL)}, opts...)
	return New(pkghttp.NewClient(pkghttp.WithTimeout(2*time.Second)), opts...).(*Client)
}

func TestFetchBatch_EnvelopeTwoLevel(t *testing.T) {
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sparkPath, r.URL.Path)
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(envelopeBody))
	})

	table, err := c.FetchBatch(context.Background(), []string{"JPY=X", "BTC-USD", "GC=F"}, "5d", "1d")
	require.NoError(t, err)

	assert.Equal(t, []string{"JPY=X,BTC-USD,GC=F"}, gotQuery["symbols"])
	assert.Equal(t, []string{"5d"}, gotQuery["range"])
	assert.Equal(t, models.LayoutTwoLevel, table.Layout)
	require.Len(t, table.Index, 2)
	assert.Equal(t, "2024-03-04", table.Index[1].Format("2006-01-02"))

	assert.Equal(t, []any{150.1, 150.9}, table.Keyed[models.ColumnKey{"close", "JPY=X"}])
	assert.Equal(t, []any{61000.5, nil}, table.Keyed[models.ColumnKey{"close", "BTC-USD"}])
	_, ok := table.Keyed[models.ColumnKey{"close", "GC=F"}]
	assert.False(t, ok)
}

func TestFetchBatch_SymbolFirstOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(envelopeBody))
	}, WithColumnOrder(SymbolFirst))

	table, err := c.FetchBatch(context.Background(), []string{"JPY=X", "BTC-USD"}, "5d", "1d")
	require.NoError(t, err)
	assert.Contains(t, table.Keyed, models.ColumnKey{"JPY=X", "close"})
}

func TestFetchBatch_FlatEnvelopeSingleSymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"^VIX":{"symbol":"^VIX","timestamp":[1709251200,1709280000,1709510400],"close":[13.1,13.4,"14.2"]}}`))
	})

	table, err := c.FetchBatch(context.Background(), []string{"^VIX"}, "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, models.LayoutFlat, table.Layout)
	require.Len(t, table.Index, 2)
	// two stamps on the first day collapse to the later close
	assert.Equal(t, []any{13.4, "14.2"}, table.Flat["close"])
}

func TestFetchBatch_SingleSymbolIgnoresOtherSymbolsSeries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"spark":{"result":[
 {"symbol":"BTC-USD","response":[{"meta":{"gmtoffset":0},"timestamp":[1709251200],"indicators":{"quote":[{"close":[61000.5]}]}}]}
]}}`))
	})

	table, err := c.FetchBatch(context.Background(), []string{"JPY=X"}, "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, models.LayoutFlat, table.Layout)
	_, ok := table.Flat[models.FieldClose]
	assert.False(t, ok)

	_, err = usecase.NewResultExtractor().Extract(table, "JPY=X")
	require.Error(t, err)
	assert.Equal(t, models.ReasonEmptyResult, models.ReasonOf(err))
}

func TestFetchBatch_SymbolKeyMatchIgnoresCase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"btc-usd":{"timestamp":[1709251200],"close":[61000.5]}}`))
	})

	table, err := c.FetchBatch(context.Background(), []string{"BTC-USD"}, "5d", "1d")
	require.NoError(t, err)
	assert.Equal(t, []any{61000.5}, table.Flat[models.FieldClose])
}

func TestFetchBatch_GMTOffsetShiftsDay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		// 2024-03-01 20:00 UTC is already 2024-03-02 in Tokyo
		_, _ = w.Write([]byte(`{"spark":{"result":[{"symbol":"^N225","response":[{"meta":{"gmtoffset":32400},"timestamp":[1709323200],"indicators":{"quote":[{"close":[39900]}]}}]}]}}`))
	})

	table, err := c.FetchBatch(context.Background(), []string{"^N225"}, "5d", "1d")
	require.NoError(t, err)
	require.Len(t, table.Index, 1)
	assert.Equal(t, "2024-03-02", table.Index[0].Format("2006-01-02"))
}

func TestFetchBatch_HTTPErrorClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
	})

	_, err := c.FetchBatch(context.Background(), []string{"JPY=X"}, "5d", "1d")
	require.Error(t, err)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 429, perr.StatusCode)
	assert.Equal(t, "HTTP429", models.ReasonOf(err))
}

func TestFetchBatch_DecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>blocked</html>`))
	})

	_, err := c.FetchBatch(context.Background(), []string{"JPY=X"}, "5d", "1d")
	assert.Equal(t, KindDecode, models.ReasonOf(err))
}

func TestFetchBatch_SparkErrorDescription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"spark":{"result":null,"error":{"code":"Bad Request","description":"Missing value for the \"symbols\" argument"}}}`))
	})

	_, err := c.FetchBatch(context.Background(), []string{""}, "5d", "1d")
	assert.Equal(t, KindDecode, models.ReasonOf(err))
}

func TestFetchBatch_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(envelopeBody))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchBatch(ctx, []string{"JPY=X"}, "5d", "1d")
	assert.Equal(t, KindCanceled, models.ReasonOf(err))
}

func TestFetchBatch_LimiterWaitsBeforeRequest(t *testing.T) {
	var hits int
	lim := ratelimit.New(0.001, 1)
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(envelopeBody))
	}, WithLimiter(lim))

	_, err := c.FetchBatch(context.Background(), []string{"JPY=X"}, "5d", "1d")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.FetchBatch(ctx, []string{"JPY=X"}, "5d", "1d")
	assert.Equal(t, KindTimeout, models.ReasonOf(err))
	assert.Equal(t, 1, hits)
}

func TestFetchBatch_EmptyResultIsEmptyTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"spark":{"result":[]}}`))
	})

	table, err := c.FetchBatch(context.Background(), []string{"JPY=X", "BTC-USD"}, "5d", "1d")
	require.NoError(t, err)
	assert.True(t, table.Empty())
}
