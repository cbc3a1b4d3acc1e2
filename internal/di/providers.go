package di

import (
	"context"
	"fmt"
	"time"

	"StockLens/internal/domain/repository"
	"StockLens/internal/gateway"
	"StockLens/internal/handler/api"
	internalrepo "StockLens/internal/repository"
	"StockLens/internal/service/alphavantage"
	"StockLens/internal/service/ratelimit"
	"StockLens/internal/usecase"
	"StockLens/pkg/cache"
	pkgch "StockLens/pkg/clickhouse"
	"StockLens/pkg/config"
	xhttp "StockLens/pkg/http"
	pkgkafka "StockLens/pkg/kafka"
	applogger "StockLens/pkg/logger"
	"StockLens/pkg/metrics"
	"StockLens/pkg/server"
)

func noCleanup() {}

// ProvideKafkaProducer creates a Kafka producer when the kafka backend or the
// log topic needs one, and nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if cfg.Backend.Type != usecase.BackendKafka && cfg.Kafka.LogTopic == "" {
		return nil, noCleanup, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithAutoCreateTopics(cfg.Kafka.AutoCreateTopics),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideLogger builds the app logger. With a log topic configured, repeated
// error logs are aggregated and shipped through the producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, func(), error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	l = l.With(applogger.String("env", cfg.Environment))
	return l, l.RemoveCollector, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideHTTPClient creates the outbound client for the provider.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.AlphaVantage.Timeout),
		xhttp.WithMaxBodyBytes(cfg.AlphaVantage.MaxBodyBytes),
		xhttp.WithUserAgent("stocklens/1.0"),
	)
}

// ProvideMarketDataProvider creates the Alpha Vantage REST provider.
func ProvideMarketDataProvider(cfg *config.Config, client *xhttp.Client) repository.MarketDataProvider {
	return alphavantage.New(cfg.AlphaVantage.BaseURL, client)
}

// ProvideGateway creates the market data gateway. A missing API key is logged
// here and reported as a configuration error on every call.
func ProvideGateway(cfg *config.Config, provider repository.MarketDataProvider, m repository.Metrics, l *applogger.Logger) *gateway.Gateway {
	gcfg := gateway.Config{
		APIKey:      cfg.AlphaVantage.APIKey,
		Timeout:     cfg.AlphaVantage.Timeout,
		MaxAttempts: cfg.AlphaVantage.MaxAttempts,
		BackoffMin:  cfg.AlphaVantage.BackoffMin,
		BackoffMax:  cfg.AlphaVantage.BackoffMax,
	}
	if err := gcfg.Validate(); err != nil {
		l.Warn("market data gateway is not configured", applogger.Error(err))
	}
	return gateway.New(gcfg, provider, gateway.WithMetrics(m), gateway.WithLogger(l))
}

// ProvideClickHouseClient connects to ClickHouse for the clickhouse backend,
// nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Backend.Type != usecase.BackendClickHouse {
		return nil, noCleanup, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSeriesPublisher returns the Kafka publisher for the kafka backend.
func ProvideSeriesPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.SeriesPublisher {
	if cfg.Backend.Type != usecase.BackendKafka || producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSeriesPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSeriesStorage returns the ClickHouse store with its schema in place.
func ProvideSeriesStorage(cfg *config.Config, client *pkgch.Client, l *applogger.Logger) (repository.SeriesStorage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewCHSeriesStore(client, cfg.ClickHouse.Table, l)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSeriesRecorder creates the recorder for the configured backend.
func ProvideSeriesRecorder(
	cfg *config.Config,
	pub repository.SeriesPublisher,
	store repository.SeriesStorage,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.SeriesRecorder, error) {
	return usecase.NewSeriesRecorder(cfg.Backend.Type, pub, store, m, cfg.Backend.Timeout, l)
}

// ProvideStockUseCase creates the stock use case.
func ProvideStockUseCase(cfg *config.Config, gw *gateway.Gateway, rec *usecase.SeriesRecorder, l *applogger.Logger) *usecase.StockUseCase {
	return usecase.NewStockUseCase(gw, rec, cfg.Stock.Lookback, cfg.Stock.Display, l)
}

// ProvideCache creates the response cache, or nil when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MaxEntries)), nil
	case "redis", "layered":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedisCache(ctx,
			cache.WithRedisAddr(cfg.Cache.Redis.Addr),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		if cfg.Cache.Backend == "layered" {
			return cache.NewLayeredCache(rc, cfg.Cache.MaxEntries, 30*time.Second), nil
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Cache.Backend)
	}
}

// ProvideRateLimiter creates the inbound per-client limiter, nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Burst, cfg.RateLimit.RPS)
}

// ProvideStockHandler creates the Echo handler for the stock API.
func ProvideStockHandler(
	cfg *config.Config,
	uc *usecase.StockUseCase,
	c cache.Service,
	limiter *ratelimit.Limiter,
	ch *pkgch.Client,
	l *applogger.Logger,
) *api.StockEchoHandler {
	opts := []api.Option{}
	if c != nil {
		opts = append(opts, api.WithCache(c, cfg.Cache.TTL))
	}
	if limiter != nil {
		opts = append(opts, api.WithLimiter(limiter))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	return api.NewStockEchoHandler(l, uc, opts...)
}

// ProvideHTTPServer creates the Echo server with the API routes.
func ProvideHTTPServer(cfg *config.Config, h *api.StockEchoHandler, l *applogger.Logger) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{h},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)
}

// ProvideApp assembles the application and registers shutdown order: the
// recorder drains first, then cache, ClickHouse and the shared producer close.
func ProvideApp(
	srv *xhttp.Server,
	rec *usecase.SeriesRecorder,
	limiter *ratelimit.Limiter,
	c cache.Service,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) *server.App {
	app := server.New(srv, rec, limiter, l)
	if c != nil {
		app.AddCloser("cache", c)
	}
	if ch != nil {
		app.AddCloser("clickhouse", ch)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer)
	}
	return app
}
