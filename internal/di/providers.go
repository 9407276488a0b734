package di

import (
	"context"
	"fmt"
	"time"

	"MarketLog/internal/domain/models"
	"MarketLog/internal/domain/repository"
	internalrepo "MarketLog/internal/repository"
	"MarketLog/internal/service/ratelimit"
	"MarketLog/internal/service/yahoo"
	"MarketLog/internal/usecase"
	"MarketLog/pkg/cache"
	pkgch "MarketLog/pkg/clickhouse"
	"MarketLog/pkg/config"
	pkghttp "MarketLog/pkg/http"
	pkgkafka "MarketLog/pkg/kafka"
	"MarketLog/pkg/logger"
	"MarketLog/pkg/metrics"
	"MarketLog/pkg/server"
)

// ProvideLogger creates the process logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideCatalog freezes the configured assets.
func ProvideCatalog(cfg *config.Config) (*models.AssetCatalog, error) {
	return cfg.Catalog()
}

// ProvideRecorder creates a Prometheus metrics recorder.
func ProvideRecorder() *metrics.Recorder {
	return metrics.New()
}

// ProvideMetrics exposes the recorder through the domain interface.
func ProvideMetrics(r *metrics.Recorder) repository.Metrics {
	return r
}

// ProvideHTTPClient creates the outbound client shared by provider and probe.
func ProvideHTTPClient(cfg *config.Config) *pkghttp.Client {
	return pkghttp.NewClient(
		pkghttp.WithTimeout(cfg.Fetch.Timeout),
		pkghttp.WithUserAgent(cfg.Fetch.UserAgent),
	)
}

// ProvideQuoteProvider creates the Yahoo provider.
func ProvideQuoteProvider(cfg *config.Config, client *pkghttp.Client, log *logger.Logger) repository.Provider {
	return yahoo.New(client,
		yahoo.WithBaseURL(cfg.Fetch.BaseURL),
		yahoo.WithColumnOrder(yahoo.ColumnOrder(cfg.Fetch.ColumnOrder)),
		yahoo.WithLimiter(ratelimit.New(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)),
		yahoo.WithLogger(log),
	)
}

// ProvideSchemaGuard creates the log schema guard.
func ProvideSchemaGuard(m repository.Metrics, log *logger.Logger) *internalrepo.SchemaGuard {
	return internalrepo.NewSchemaGuard(m, log)
}

// ProvideRunLogger creates the append-only run logger.
func ProvideRunLogger(cfg *config.Config, catalog *models.AssetCatalog, guard *internalrepo.SchemaGuard, log *logger.Logger) *internalrepo.RunLogger {
	return internalrepo.NewRunLogger(internalrepo.RunLoggerConfig{
		PrimaryPath:     cfg.Output.PrimaryCSV,
		TrialsPath:      cfg.Output.TrialsCSV,
		EvidencePath:    cfg.Output.EvidenceJSONL,
		TimestampColumn: cfg.Output.TimestampColumn,
		IncludeRunID:    cfg.Output.IncludeRunID,
		BOM:             cfg.Output.BOM,
	}, catalog, guard, log)
}

// ProvidePriorStore reads last-good values from the primary log, fronted by
// Redis when configured. An unreachable Redis degrades to the log alone.
func ProvidePriorStore(cfg *config.Config, catalog *models.AssetCatalog, log *logger.Logger) repository.PriorStore {
	logStore := internalrepo.NewLogPriorStore(cfg.Output.PrimaryCSV, catalog)
	if !cfg.Redis.Enabled {
		return logStore
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		log.Warn("redis unavailable, using log for priors", logger.Error(err))
		return logStore
	}
	return internalrepo.NewCachePriorStore(rc, logStore, cfg.Redis.PriorTTL, log)
}

// ProvideBackoff creates the retry delay scheduler.
func ProvideBackoff(cfg *config.Config) *usecase.BackoffScheduler {
	return usecase.NewBackoffScheduler(usecase.BackoffConfig{
		BaseDelay:  cfg.Backoff.BaseDelay,
		Multiplier: cfg.Backoff.Multiplier,
		MaxDelay:   cfg.Backoff.MaxDelay,
		JitterMin:  cfg.Backoff.JitterMin,
		JitterMax:  cfg.Backoff.JitterMax,
	})
}

// ProvideEvidenceRecorder wires the transport probe when enabled.
func ProvideEvidenceRecorder(cfg *config.Config, client *pkghttp.Client, catalog *models.AssetCatalog, runLog *internalrepo.RunLogger, log *logger.Logger) *usecase.EvidenceRecorder {
	if !cfg.Probe.Enabled {
		return nil
	}
	urls := cfg.Probe.URLs
	if len(urls) == 0 {
		symbols := make([]string, 0, catalog.Len())
		for _, a := range catalog.Assets() {
			symbols = append(symbols, a.Symbol)
		}
		urls = yahoo.DefaultProbeURLs(cfg.Fetch.BaseURL, symbols)
	}
	return usecase.NewEvidenceRecorder(yahoo.NewProbe(client, urls, cfg.Probe.PreviewChars, log), runLog, log)
}

// ProvideFetcher creates the fetch/retry/extract loop.
func ProvideFetcher(
	cfg *config.Config,
	provider repository.Provider,
	backoff *usecase.BackoffScheduler,
	priors repository.PriorStore,
	runLog *internalrepo.RunLogger,
	evidence *usecase.EvidenceRecorder,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Fetcher {
	return usecase.NewFetcher(provider, usecase.NewResultExtractor(), backoff,
		usecase.FetcherConfig{
			Period:             cfg.Fetch.Period,
			Interval:           cfg.Fetch.Interval,
			MaxAttempts:        cfg.Fetch.MaxAttempts,
			IndividualFallback: cfg.Fetch.IndividualFallback,
		},
		log,
		usecase.WithPriorStore(priors),
		usecase.WithTrialLog(runLog),
		usecase.WithFetcherMetrics(m),
		usecase.WithFailedAttemptHook(evidence.AfterFailure()),
		usecase.WithClock(time.Now, cfg.Location()),
	)
}

// ProvideRunSinks connects the optional Kafka and ClickHouse mirrors. A sink
// that cannot be reached is skipped; the run goes on without it.
func ProvideRunSinks(cfg *config.Config, recorder *metrics.Recorder, log *logger.Logger) []repository.RunSink {
	var sinks []repository.RunSink

	if cfg.Kafka.Enabled {
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
			pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
			pkgkafka.WithHashByKey(true),
			pkgkafka.WithRegisterer(recorder.Registry()),
		)
		if err != nil {
			log.Warn("kafka sink disabled", logger.Error(err))
		} else {
			sinks = append(sinks, internalrepo.NewKafkaRunSink(producer, cfg.Kafka.Topic))
		}
	}

	if cfg.ClickHouse.Enabled {
		sink, err := clickHouseSink(cfg)
		if err != nil {
			log.Warn("clickhouse sink disabled", logger.Error(err))
		} else {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func clickHouseSink(cfg *config.Config) (repository.RunSink, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, true),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.RunTableDDL(cfg.ClickHouse.Table)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return &closingSink{RunSink: internalrepo.NewClickHouseRunSink(client.DB(), cfg.ClickHouse.Table), client: client}, nil
}

// closingSink releases the ClickHouse pool together with its sink.
type closingSink struct {
	repository.RunSink
	client *pkgch.Client
}

func (s *closingSink) Close() error {
	_ = s.RunSink.Close()
	return s.client.Close()
}

// ProvideRunCollector assembles one collection run.
func ProvideRunCollector(
	cfg *config.Config,
	catalog *models.AssetCatalog,
	fetcher *usecase.Fetcher,
	runLog *internalrepo.RunLogger,
	evidence *usecase.EvidenceRecorder,
	priors repository.PriorStore,
	sinks []repository.RunSink,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.RunCollector {
	return usecase.NewRunCollector(catalog, fetcher, runLog, log,
		usecase.WithEvidence(evidence),
		usecase.WithRememberedPriors(priors),
		usecase.WithSinks(sinks...),
		usecase.WithCollectorMetrics(m),
		usecase.WithLocation(cfg.Location()),
	)
}

// ProvideCollectorApp creates the collector application.
func ProvideCollectorApp(cfg *config.Config, collector *usecase.RunCollector, recorder *metrics.Recorder, log *logger.Logger) *server.CollectorApp {
	return server.NewCollectorApp(cfg, collector, recorder, log)
}

// ProvideMonitor creates the log monitor.
func ProvideMonitor(cfg *config.Config, catalog *models.AssetCatalog, m repository.Metrics, log *logger.Logger) *usecase.Monitor {
	return usecase.NewMonitor(catalog, usecase.MonitorConfig{
		TimestampColumn: cfg.Output.TimestampColumn,
		AnomalyFatal:    cfg.Monitor.AnomalyFatal,
		RangeFatal:      cfg.Monitor.RangeFatal,
	}, m, log)
}

// ProvideMonitorApp creates the monitor application.
func ProvideMonitorApp(cfg *config.Config, monitor *usecase.Monitor, recorder *metrics.Recorder, log *logger.Logger) *server.MonitorApp {
	return server.NewMonitorApp(cfg, monitor, recorder, log)
}
