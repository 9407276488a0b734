package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"MarketLog/internal/domain/models"
	drepo "MarketLog/internal/domain/repository"
	"MarketLog/pkg/cache"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/util"
)

// LogPriorStore answers last-good lookups from the primary log itself.
type LogPriorStore struct {
	path    string
	catalog *models.AssetCatalog

	mu     sync.Mutex
	loaded bool
	values map[string]float64
}

func NewLogPriorStore(path string, catalog *models.AssetCatalog) *LogPriorStore {
	return &LogPriorStore{path: path, catalog: catalog, values: make(map[string]float64)}
}

func (s *LogPriorStore) LastGood(_ context.Context, asset string) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if err := s.load(); err != nil {
			return 0, false, err
		}
		s.loaded = true
	}
	v, ok := s.values[asset]
	return v, ok, nil
}

func (s *LogPriorStore) Remember(_ context.Context, asset string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[asset] = value
	return nil
}

// load scans the whole log once; later rows overwrite earlier ones.
func (s *LogPriorStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read prior log: %w", err)
	}
	r := csv.NewReader(bytes.NewReader(util.TrimBOM(data)))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("read prior log header: %w", err)
	}
	view := models.NewLogView(header)
	names := s.catalog.Names()
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read prior log: %w", err)
		}
		for _, name := range names {
			if v, _, missing := view.AssetValue(row, name); !missing {
				s.values[name] = v
			}
		}
	}
}

// CachePriorStore keeps last-good values in a shared cache so that runs on
// different hosts see each other's results. Misses fall through to next.
type CachePriorStore struct {
	cache cache.Service
	next  drepo.PriorStore
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachePriorStore(c cache.Service, next drepo.PriorStore, ttl time.Duration, log *logger.Logger) *CachePriorStore {
	if log == nil {
		log = logger.Nop()
	}
	return &CachePriorStore{cache: c, next: next, ttl: ttl, log: log.With(logger.String("component", "prior_cache"))}
}

func priorKey(asset string) string {
	return cache.GenerateKey("prior", asset)
}

func (s *CachePriorStore) LastGood(ctx context.Context, asset string) (float64, bool, error) {
	var raw string
	err := s.cache.Get(ctx, priorKey(asset), &raw)
	if err == nil {
		v, perr := strconv.ParseFloat(raw, 64)
		if perr == nil && v > 0 {
			return v, true, nil
		}
		s.log.Warn("discarding unparsable cached prior", logger.String("asset", asset), logger.String("raw", raw))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("prior cache unavailable", logger.String("asset", asset), logger.Error(err))
	}

	if s.next == nil {
		return 0, false, nil
	}
	v, ok, err := s.next.LastGood(ctx, asset)
	if err != nil || !ok {
		return v, ok, err
	}
	if err := s.cache.Set(ctx, priorKey(asset), strconv.FormatFloat(v, 'f', -1, 64), s.ttl); err != nil {
		s.log.Warn("prior cache backfill failed", logger.String("asset", asset), logger.Error(err))
	}
	return v, true, nil
}

func (s *CachePriorStore) Remember(ctx context.Context, asset string, value float64) error {
	if s.next != nil {
		if err := s.next.Remember(ctx, asset, value); err != nil {
			return err
		}
	}
	if err := s.cache.Set(ctx, priorKey(asset), strconv.FormatFloat(value, 'f', -1, 64), s.ttl); err != nil {
		return fmt.Errorf("cache prior %s: %w", asset, err)
	}
	return nil
}
