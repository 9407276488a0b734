package repository

//go:generate mockgen -source=external.go -destination=mocks/mock_external.go -package=mocks

import (
	"context"

	"MarketLog/internal/domain/models"
)

// Provider is the upstream quote source. One call fetches every requested
// symbol at once.
type Provider interface {
	Name() string
	FetchBatch(ctx context.Context, symbols []string, period, interval string) (*models.TabularResult, error)
}

// PriorStore remembers the last known-good value per asset.
type PriorStore interface {
	LastGood(ctx context.Context, asset string) (float64, bool, error)
	Remember(ctx context.Context, asset string, value float64) error
}

// RunSink mirrors finalized run records to a secondary system.
type RunSink interface {
	Name() string
	Publish(ctx context.Context, rec *models.RunRecord) error
	Close() error
}
