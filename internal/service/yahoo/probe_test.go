package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketLog/internal/domain/models"
	pkghttp "MarketLog/pkg/http"
	"MarketLog/pkg/logger"
)

func TestProbe_RecordsStatusHeadersAndPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Retry-After", "30")
		w.Header().Set("X-Unrelated", "x")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("Too Many\r\nRequests" + strings.Repeat("!", 100)))
	}))
	defer srv.Close()

	p := NewProbe(pkghttp.NewClient(pkghttp.WithTimeout(2*time.Second)), []string{srv.URL + "/probe"}, 12, logger.Nop())
	evs := p.Probe(context.Background(), "r1", models.PhasePostFailure, 2)

	require.Len(t, evs, 1)
	ev := evs[0]
	assert.Equal(t, "r1", ev.RunID)
	assert.Equal(t, models.PhasePostFailure, ev.Phase)
	assert.Equal(t, 2, ev.Attempt)
	require.NotNil(t, ev.StatusCode)
	assert.Equal(t, 429, *ev.StatusCode)
	assert.Equal(t, "text/html", ev.ContentType)
	assert.Equal(t, "30", ev.Headers["Retry-After"])
	assert.NotContains(t, ev.Headers, "X-Unrelated")
	assert.Equal(t, `Too Many\r\nRe`, ev.BodyPreview)
	assert.Empty(t, ev.Error)
}

func TestProbe_TransportErrorBecomesEvidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewProbe(nil, []string{url}, 50, nil)
	evs := p.Probe(context.Background(), "r1", models.PhasePre, 0)

	require.Len(t, evs, 1)
	assert.Nil(t, evs[0].StatusCode)
	assert.True(t, strings.HasPrefix(evs[0].Error, KindNetwork+": "))
}

func TestDefaultProbeURLs(t *testing.T) {
	urls := DefaultProbeURLs("", []string{"JPY=X", "^VIX"})
	require.Len(t, urls, 1)
	assert.Equal(t, "https://query1.finance.yahoo.com/v7/finance/spark?interval=1d&range=5d&symbols=JPY%3DX%2C%5EVIX", urls[0])
}
