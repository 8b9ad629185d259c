package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"StockCast/internal/domain/repository"
	"StockCast/internal/domain/service"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/scheduler"
	"StockCast/internal/service/cache"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/services/features"
	"StockCast/internal/services/forecast"
	"StockCast/internal/services/history"
	"StockCast/internal/services/insights"
	"StockCast/internal/services/ml"
	"StockCast/internal/services/report"
	"StockCast/internal/usecase"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	"StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/queue"
	"StockCast/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the logging section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideReportSource reads reports from the GCS bucket when one is
// configured and from the local directory otherwise.
func ProvideReportSource(cfg *config.Config, log *logger.Logger) (repository.ReportSource, error) {
	if cfg.Reports.Bucket == "" {
		return internalrepo.NewFSReportSource(cfg.Reports.Dir, log), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	src, err := internalrepo.NewGCSReportSource(ctx, cfg.Reports.Bucket, cfg.Reports.Prefix, cfg.Reports.CredentialsFile, log)
	if err != nil {
		return nil, fmt.Errorf("report source: %w", err)
	}
	return src, nil
}

func ProvideHistoryStore(cfg *config.Config, src repository.ReportSource, log *logger.Logger, m repository.Metrics) *history.Store {
	return history.NewStore(src, report.NewExtractor(), history.NewCanonicalizer(cfg.CanonicalNames), log, m,
		history.WithTTL(cfg.Reports.TTL),
		history.WithFetchConcurrency(cfg.Reports.FetchConcurrency),
	)
}

func ProvideForecaster(cfg *config.Config, log *logger.Logger, m repository.Metrics) *forecast.Forecaster {
	forest := ml.DefaultForestConfig()
	forest.Trees = cfg.Forecast.Trees
	forest.Seed = cfg.Forecast.Seed
	return forecast.NewForecaster(features.NewEngine(features.DefaultConfig()), forecast.Config{
		MinPoints:    cfg.Forecast.MinPoints,
		TestFraction: cfg.Forecast.TestFraction,
		SplitSeed:    cfg.Forecast.Seed,
		MinScore:     cfg.Forecast.MinScore,
		Forest:       forest,
	}, log, m)
}

// ProvideNarrativeGenerator returns nil when no provider is usable; the
// insight service then answers with a placeholder.
func ProvideNarrativeGenerator(cfg *config.Config, log *logger.Logger) (service.NarrativeGenerator, error) {
	switch cfg.Insights.Provider {
	case "gemini":
		if cfg.Insights.GeminiAPIKey == "" {
			log.Warn("GEMINI_API_KEY not set, insights disabled")
			return nil, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
		defer cancel()
		gen, err := insights.NewGeminiGenerator(ctx, cfg.Insights.GeminiAPIKey, cfg.Insights.Model)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "openai":
		if cfg.Insights.OpenAIAPIKey == "" {
			log.Warn("OPENAI_API_KEY not set, insights disabled")
			return nil, nil
		}
		client := xhttp.NewClient(
			xhttp.WithTimeout(cfg.Insights.Timeout),
			xhttp.WithRetry(2, time.Second),
		)
		gen, err := insights.NewOpenAIGenerator(client, cfg.Insights.BaseURL, cfg.Insights.OpenAIAPIKey, cfg.Insights.Model)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, nil
	}
}

func ProvideInsightService(cfg *config.Config, gen service.NarrativeGenerator, log *logger.Logger, m repository.Metrics) *insights.Service {
	return insights.NewService(gen, cfg.Insights.Timeout, log, m)
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

func ProvidePredictionCache(cfg *config.Config, rc *redis.Client) cache.BytesCache {
	switch cfg.PredictionCache.Backend {
	case "redis":
		if rc != nil {
			return cache.NewRedisCache(rc, "")
		}
		return cache.NewTTLCache()
	case "layered":
		if rc != nil {
			return cache.NewLayeredCache(cache.NewTTLCache(), cache.NewRedisCache(rc, ""), cfg.PredictionCache.LocalTTL)
		}
		return cache.NewTTLCache()
	case "memory":
		return cache.NewTTLCache()
	default:
		return nil
	}
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topics.Alerts, cfg.Kafka.Topics.Forecasts)
}

// ProvideClickHouseClient connects and creates the forecast table; nil when
// clickhouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.ForecastSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideForecastSink(ch *pkgch.Client, log *logger.Logger) repository.ForecastSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHForecastSink(ch, log)
}

func ProvideInventoryUseCase(
	cfg *config.Config,
	store *history.Store,
	forecaster *forecast.Forecaster,
	insightSvc *insights.Service,
	predictionCache cache.BytesCache,
	publisher repository.EventPublisher,
	sink repository.ForecastSink,
	log *logger.Logger,
	m repository.Metrics,
) *usecase.InventoryUseCase {
	opts := []usecase.InventoryOption{
		usecase.WithHorizons(cfg.Forecast.MaxHorizon, cfg.Forecast.InsightHorizon),
	}
	if predictionCache != nil {
		opts = append(opts, usecase.WithPredictionCache(predictionCache, cfg.PredictionCache.TTL))
	}
	if publisher != nil {
		opts = append(opts, usecase.WithEventPublisher(publisher))
	}
	if sink != nil {
		opts = append(opts, usecase.WithForecastSink(sink))
	}
	return usecase.NewInventoryUseCase(store, forecaster, insightSvc, log, m, opts...)
}

func ProvideIngredientStore(cfg *config.Config, log *logger.Logger) (repository.IngredientStore, error) {
	store, err := internalrepo.NewSQLiteIngredientStore(cfg.Ingredients.DBPath, log)
	if err != nil {
		return nil, fmt.Errorf("ingredient store: %w", err)
	}
	return store, nil
}

func ProvideAlertHub(log *logger.Logger) *api.AlertHub {
	return api.NewAlertHub(log, 30*time.Second)
}

func ProvideLowStockMonitor(store repository.IngredientStore, publisher repository.EventPublisher, hub *api.AlertHub, log *logger.Logger, m repository.Metrics) *usecase.LowStockMonitor {
	return usecase.NewLowStockMonitor(store, publisher, hub, log, m)
}

// ProvideJobQueue returns nil when the queue is disabled.
func ProvideJobQueue(cfg *config.Config, rc *redis.Client, uc *usecase.InventoryUseCase, log *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc)
	q.RegisterJob(usecase.NewRetrainJob(uc))
	return q
}

func ProvideRetrainDispatcher(q *queue.RedisQueue, uc *usecase.InventoryUseCase, log *logger.Logger) *usecase.RetrainDispatcher {
	var pub queue.Publisher
	if q != nil {
		pub = q
	}
	return usecase.NewRetrainDispatcher(pub, uc, log)
}

func ProvideReportHandler(cfg *config.Config, d *usecase.RetrainDispatcher, log *logger.Logger, m repository.Metrics) *usecase.ReportUploadedHandler {
	return usecase.NewReportUploadedHandler(cfg.Kafka.Topics.ReportUploaded, d, log, m)
}

// ProvideKafkaConsumer returns nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, h *usecase.ReportUploadedHandler, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(h)
	return consumer, nil
}

func ProvideScheduler(cfg *config.Config, d *usecase.RetrainDispatcher, monitor *usecase.LowStockMonitor, log *logger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.NewScheduler(context.Background(), d, monitor, log)
	if err := s.RegisterAll(cfg.Scheduler.RetrainCron, cfg.Scheduler.LowStockCron); err != nil {
		return nil, err
	}
	return s, nil
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if cfg.Insights.RateLimit.Burst <= 0 {
		return nil
	}
	return ratelimit.New(cfg.Insights.RateLimit.Burst, cfg.Insights.RateLimit.PerSecond)
}

func ProvideInventoryHandler(log *logger.Logger, uc *usecase.InventoryUseCase, limiter *ratelimit.Limiter) *api.InventoryEchoHandler {
	return api.NewInventoryEchoHandler(log, uc, limiter)
}

func ProvideAlertsHandler(log *logger.Logger, monitor *usecase.LowStockMonitor, hub *api.AlertHub) *api.AlertsEchoHandler {
	return api.NewAlertsEchoHandler(log, monitor, hub)
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, inv *api.InventoryEchoHandler, alerts *api.AlertsEchoHandler) *xhttp.Server {
	return xhttp.NewServer(log, []xhttp.Handler{inv, alerts},
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequest),
		xhttp.WithCORS(cfg.Server.AllowOrigins...),
	)
}

// ProvideApp creates the application server and hands it every resource that
// must be released at shutdown.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	uc *usecase.InventoryUseCase,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	q *queue.RedisQueue,
	hub *api.AlertHub,
	src repository.ReportSource,
	gen service.NarrativeGenerator,
	ingredients repository.IngredientStore,
	publisher repository.EventPublisher,
	ch *pkgch.Client,
	rc *redis.Client,
) *server.App {
	var closers []server.Closer
	if c, ok := src.(io.Closer); ok {
		closers = append(closers, server.Closer{Name: "report_source", Closer: c})
	}
	if c, ok := gen.(io.Closer); ok {
		closers = append(closers, server.Closer{Name: "narrative_generator", Closer: c})
	}
	closers = append(closers, server.Closer{Name: "ingredients", Closer: ingredients})
	if publisher != nil {
		closers = append(closers, server.Closer{Name: "kafka_producer", Closer: publisher})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Closer: ch})
	}
	if rc != nil {
		closers = append(closers, server.Closer{Name: "redis", Closer: rc})
	}
	return server.New(cfg, log, srv, uc, sched, consumer, q, hub, closers...)
}
