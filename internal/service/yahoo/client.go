package yahoo

import (
	"context"
	"strings"
	"time"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/internal/service/ratelimit"
	pkghttp "MarketLog/pkg/http"
	"MarketLog/pkg/logger"
)

// DefaultBaseURL is the public Yahoo Finance query host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

const sparkPath = "/v7/finance/spark"

// ColumnOrder selects how multi-symbol results key their columns.
type ColumnOrder string

const (
	FieldFirst  ColumnOrder = "field_first"
	SymbolFirst ColumnOrder = "symbol_first"
)

func (o ColumnOrder) key(symbol string) models.ColumnKey {
	if o == SymbolFirst {
		return models.ColumnKey{symbol, models.FieldClose}
	}
	return models.ColumnKey{models.FieldClose, symbol}
}

// Client implements the Provider capability over the Yahoo spark endpoint.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	order   ColumnOrder
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the query host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithColumnOrder sets the two-level column order.
func WithColumnOrder(o ColumnOrder) Option {
	return func(c *Client) {
		if o != "" {
			c.order = o
		}
	}
}

// WithLimiter paces spark requests. A nil limiter does not pace.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Yahoo provider.
func New(httpClient *pkghttp.Client, opts ...Option) drepo.Provider {
	c := &Client{
		http:    httpClient,
		baseURL: DefaultBaseURL,
		order:   FieldFirst,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = pkghttp.NewClient(pkghttp.WithTimeout(20 * time.Second))
	}
	c.log = c.log.With(logger.String("component", "yahoo"))
	return c
}

func (c *Client) Name() string { return "yahoo" }

// FetchBatch requests every symbol in one spark call.
func (c *Client) FetchBatch(ctx context.Context, symbols []string, period, interval string) (*models.TabularResult, error) {
	if err := c.limiter.Wait(ctx, "spark"); err != nil {
		return nil, classify(err)
	}

	start := time.Now()
	var body []byte
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + sparkPath,
		QueryParams: map[string][]string{
			"symbols":  {strings.Join(symbols, ",")},
			"range":    {period},
			"interval": {interval},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}, &body)
	if err != nil {
		perr := classify(err)
		c.log.Warn("spark request failed",
			logger.Strings("symbols", symbols),
			logger.String("reason", perr.Reason()),
			logger.Duration("elapsed_ms", time.Since(start)),
		)
		return nil, perr
	}

	data, err := parseSpark(body)
	if err != nil {
		return nil, err
	}
	table := buildTable(symbols, data, c.order)
	c.log.Debug("spark response",
		logger.Int("symbols", len(symbols)),
		logger.Int("returned", len(data)),
		logger.Int("days", len(table.Index)),
		logger.String("layout", table.Layout.String()),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return table, nil
}
