package yahoo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketLog/internal/domain/models"
	pkghttp "MarketLog/pkg/http"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

var probeHeaders = []string{
	"Content-Type", "Content-Length", "Cache-Control", "Date", "Server",
	"Retry-After", "Location", "Via", "X-Cache", "X-Yahoo-Request-Id",
}

// Probe fetches diagnostic URLs directly, outside the provider, and records
// what came back. It never fails; transport errors become evidence.
type Probe struct {
	http    *pkghttp.Client
	urls    []string
	preview int
	log     *logger.Logger
	now     func() time.Time
}

// NewProbe creates a Probe over urls with a body preview of previewChars.
func NewProbe(httpClient *pkghttp.Client, urls []string, previewChars int, log *logger.Logger) *Probe {
	if httpClient == nil {
		httpClient = pkghttp.NewClient(pkghttp.WithTimeout(10 * time.Second))
	}
	if previewChars <= 0 {
		previewChars = 300
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Probe{
		http:    httpClient,
		urls:    urls,
		preview: previewChars,
		log:     log.With(logger.String("component", "probe")),
		now:     time.Now,
	}
}

// DefaultProbeURLs builds one spark URL for symbols on baseURL.
func DefaultProbeURLs(baseURL string, symbols []string) []string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	q.Set("range", "5d")
	q.Set("interval", "1d")
	return []string{baseURL + sparkPath + "?" + q.Encode()}
}

func (p *Probe) Probe(ctx context.Context, runID, phase string, attempt int) []models.TransportEvidence {
	out := make([]models.TransportEvidence, 0, len(p.urls))
	for _, u := range p.urls {
		out = append(out, p.one(ctx, runID, phase, attempt, u))
	}
	return out
}

func (p *Probe) one(ctx context.Context, runID, phase string, attempt int, u string) models.TransportEvidence {
	start := p.now()
	ev := models.TransportEvidence{
		RunID:        runID,
		Phase:        phase,
		Attempt:      attempt,
		URL:          u,
		TimestampUTC: start.UTC().Format(time.RFC3339),
	}

	resp, err := p.http.SendRequest(ctx, &pkghttp.RequestOptions{Method: pkghttp.MethodGet, URL: u})
	if err != nil {
		ev.Error = classify(err).Reason() + ": " + util.Preview(err.Error(), p.preview)
		ev.ElapsedMS = p.now().Sub(start).Milliseconds()
		p.log.Warn("probe failed", logger.String("url", u), logger.String("phase", phase), logger.Error(err))
		return ev
	}
	defer resp.Body.Close()

	status := resp.StatusCode
	ev.StatusCode = &status
	ev.ContentType = resp.Header.Get("Content-Type")
	ev.Headers = pickHeaders(resp.Header)

	// read a little past the preview so truncation is visible
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(p.preview)*4+4))
	if err != nil {
		ev.Error = "read body: " + err.Error()
	}
	ev.BodyPreview = util.Preview(string(body), p.preview)
	ev.ElapsedMS = p.now().Sub(start).Milliseconds()

	p.log.Info("probe",
		logger.String("url", u),
		logger.String("phase", phase),
		logger.Int("attempt", attempt),
		logger.Int("status", status),
		logger.Any("elapsed_ms", ev.ElapsedMS),
	)
	return ev
}

func pickHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for _, name := range probeHeaders {
		if v := h.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}
