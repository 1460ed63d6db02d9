package di

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalTrader/internal/domain/repository"
	"SignalTrader/internal/domain/service"
	"SignalTrader/internal/handler/api"
	internalrepo "SignalTrader/internal/repository"
	"SignalTrader/internal/service/broker"
	"SignalTrader/internal/service/broker/binance"
	"SignalTrader/internal/service/broker/bybit"
	"SignalTrader/internal/service/heartbeat"
	"SignalTrader/internal/service/marketdata"
	"SignalTrader/internal/service/ratelimit"
	"SignalTrader/internal/service/strategy"
	"SignalTrader/internal/service/twelvedata"
	"SignalTrader/internal/usecase"
	pkgcache "SignalTrader/pkg/cache"
	pkgch "SignalTrader/pkg/clickhouse"
	"SignalTrader/pkg/config"
	xhttp "SignalTrader/pkg/http"
	pkgkafka "SignalTrader/pkg/kafka"
	applogger "SignalTrader/pkg/logger"
	"SignalTrader/pkg/metrics"
	"SignalTrader/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer when the ledger or the log
// sink publishes to Kafka, and nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Ledger.Backend != "kafka" && cfg.Sink.Backend != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.AutoCreateTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger creates the application logger and attaches the event sink
// before any component derives a child logger from it.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	var pub applogger.Publisher
	switch cfg.Sink.Backend {
	case "http":
		pub = internalrepo.NewHTTPLogPublisher(xhttp.NewClient(xhttp.WithTimeout(cfg.Sink.Timeout)), cfg.Sink.URL)
	case "kafka":
		pub = producer
	default:
		return l, nil
	}

	sink, err := applogger.NewSink(applogger.SinkConfig{
		Level:     cfg.Sink.Level,
		Topic:     cfg.Sink.Topic,
		Buffer:    cfg.Sink.Buffer,
		Timeout:   cfg.Sink.Timeout,
		Publisher: pub,
	})
	if err != nil {
		return nil, fmt.Errorf("log sink: %w", err)
	}
	l.AttachSink(sink)
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse when it backs the ledger.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Ledger.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithPool(4, 2),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTradeLedger selects the ledger backend. The ClickHouse table is
// created on startup.
func ProvideTradeLedger(
	cfg *config.Config,
	l *applogger.Logger,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) (repository.TradeLedger, error) {
	switch cfg.Ledger.Backend {
	case "webhook":
		return internalrepo.NewWebhookLedger(xhttp.NewClient(xhttp.WithTimeout(cfg.Scheduler.CallTimeout)), cfg.Ledger.WebhookURL), nil
	case "kafka":
		return internalrepo.NewKafkaLedger(producer, cfg.Ledger.KafkaTopic), nil
	case "clickhouse":
		ledger := internalrepo.NewClickHouseLedger(ch, cfg.ClickHouse.Database+"."+cfg.Ledger.ClickHouseTable)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ch.InitSchema(ctx, ledger.Schema()); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return ledger, nil
	default:
		return internalrepo.NewLogLedger(l.With(applogger.String("component", "ledger"))), nil
	}
}

// ProvideCache connects the redis-backed layered cache used for dedup
// persistence, or returns nil for the memory backend.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if cfg.Dedup.Backend != "redis" {
		return nil, nil
	}
	remote, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(remote, pkgcache.WithMemoryMaxSize(cfg.Dedup.L1Size)), nil
}

// ProvideDedupStore returns the cache-backed store when a cache exists.
func ProvideDedupStore(cfg *config.Config, c pkgcache.Service) repository.DedupStore {
	if c == nil {
		return internalrepo.NewMemoryDedupStore()
	}
	return internalrepo.NewCacheDedupStore(c, cfg.Dedup.KeyPrefix, cfg.Dedup.TTL)
}

func ProvideClientRegistry(cfg *config.Config, l *applogger.Logger) repository.ClientRegistry {
	return internalrepo.NewHTTPClientRegistry(
		xhttp.NewClient(xhttp.WithTimeout(cfg.Registry.Timeout)),
		cfg.Registry.ConfigURL,
		cfg.Registry.Timeout,
		l.With(applogger.String("component", "registry")),
	)
}

// ProvideRateLimiter configures one token bucket per broker.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := ratelimit.New(ratelimit.Limit{RPS: 5, Burst: 5})
	rl.Configure(binance.Name, ratelimit.Limit{RPS: cfg.Brokers.Binance.RPS, Burst: cfg.Brokers.Binance.Burst})
	rl.Configure(bybit.Name, ratelimit.Limit{RPS: cfg.Brokers.Bybit.RPS, Burst: cfg.Brokers.Bybit.Burst})
	return rl
}

func brokerTransport(name string, bc config.BrokerConfig, rl *ratelimit.Limiter, l *applogger.Logger, m repository.Metrics) *broker.Transport {
	client := xhttp.NewClient(
		xhttp.WithTimeout(bc.Timeout),
		xhttp.WithLimiter(rl.For(name)),
	)
	return broker.NewTransport(name, client,
		broker.Endpoints{Live: bc.LiveURL, Test: bc.TestURL},
		l.With(applogger.String("component", "broker")),
		m,
		broker.WithCallTimeout(bc.Timeout),
	)
}

func ProvideBinanceAdapter(cfg *config.Config, rl *ratelimit.Limiter, l *applogger.Logger, m repository.Metrics) *binance.Adapter {
	bc := cfg.Brokers.Binance
	return binance.New(brokerTransport(binance.Name, bc, rl, l, m), binance.WithRecvWindow(bc.RecvWindow))
}

func ProvideBybitAdapter(cfg *config.Config, rl *ratelimit.Limiter, l *applogger.Logger, m repository.Metrics) *bybit.Adapter {
	bc := cfg.Brokers.Bybit
	return bybit.New(brokerTransport(bybit.Name, bc, rl, l, m), bybit.WithRecvWindow(bc.RecvWindow))
}

func ProvideBrokerRegistry(b *binance.Adapter, y *bybit.Adapter) *broker.Registry {
	return broker.NewRegistry(b, y)
}

// ProvideCandleSource serves candles from each client's broker, or from
// Twelve Data for every client when that provider is configured.
func ProvideCandleSource(cfg *config.Config, l *applogger.Logger, b *binance.Adapter, y *bybit.Adapter) service.CandleSource {
	ml := l.With(applogger.String("component", "marketdata"))
	opts := []marketdata.RouterOption{
		marketdata.WithBrokerSource(binance.Name, b),
		marketdata.WithBrokerSource(bybit.Name, y),
	}
	if strings.EqualFold(cfg.MarketData.Provider, twelvedata.Name) {
		td := cfg.MarketData.TwelveData
		opts = append(opts, marketdata.WithFixedSource(
			twelvedata.New(xhttp.NewClient(xhttp.WithTimeout(td.Timeout)), td.BaseURL, td.APIKey, ml),
		))
	}
	return marketdata.NewRouter(ml, opts...)
}

func ProvideSignalEngine() service.SignalEngine {
	return strategy.NewFalcon()
}

func ProvideSignalNotifier(cfg *config.Config) repository.SignalNotifier {
	if len(cfg.SignalWebhooks) == 0 {
		return internalrepo.NopNotifier{}
	}
	return internalrepo.NewWebhookNotifier(xhttp.NewClient(xhttp.WithTimeout(cfg.Scheduler.CallTimeout)), cfg.SignalWebhooks)
}

func ProvideTradeReporter(
	cfg *config.Config,
	ledger repository.TradeLedger,
	dedup repository.DedupStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.TradeReporter {
	return usecase.NewTradeReporter(ledger, dedup, m,
		cfg.Scheduler.ClosedTradeLimit,
		cfg.Scheduler.CallTimeout,
		l.With(applogger.String("component", "reporter")),
	)
}

func ProvideCoordinator(
	cfg *config.Config,
	registry repository.ClientRegistry,
	brokers usecase.AdapterLookup,
	candles service.CandleSource,
	engine service.SignalEngine,
	reporter *usecase.TradeReporter,
	notifier repository.SignalNotifier,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Coordinator {
	return usecase.NewCoordinator(registry, brokers, candles, engine, reporter, notifier, m,
		usecase.CoordinatorConfig{
			Interval:    cfg.MarketData.Interval,
			CandleLimit: cfg.MarketData.Limit,
			CallTimeout: cfg.Scheduler.CallTimeout,
		},
		l.With(applogger.String("component", "coordinator")),
	)
}

func ProvideRunner(cfg *config.Config, coord *usecase.Coordinator, m repository.Metrics, l *applogger.Logger) *usecase.Runner {
	return usecase.NewRunner(coord, cfg.Scheduler.PollInterval, cfg.Scheduler.ErrorBackoff, m,
		l.With(applogger.String("component", "runner")))
}

func ProvideHeartbeat(cfg *config.Config, l *applogger.Logger) *heartbeat.Emitter {
	return heartbeat.New(
		xhttp.NewClient(xhttp.WithTimeout(cfg.Heartbeat.Timeout)),
		cfg.Heartbeat.URL,
		cfg.Heartbeat.Interval,
		cfg.Heartbeat.Timeout,
		l.With(applogger.String("component", "heartbeat")),
	)
}

func ProvideStatusHandler(l *applogger.Logger, runner *usecase.Runner, dedup repository.DedupStore) *api.StatusEchoHandler {
	return api.NewStatusEchoHandler(l, runner, dedup)
}

// ProvideHTTPServer builds the ops server, or nil when it is disabled.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, status *api.StatusEchoHandler) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(l.With(applogger.String("component", "http")), []xhttp.Handler{status},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp assembles the application and registers what it must close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.Runner,
	hb *heartbeat.Emitter,
	srv *xhttp.Server,
	ledger repository.TradeLedger,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c pkgcache.Service,
) *server.App {
	var closers []server.Closer
	closers = append(closers, server.Closer{Name: "ledger", Close: ledger.Close})
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	if c != nil {
		closers = append(closers, server.Closer{Name: "cache", Close: c.Close})
	}
	return server.New(cfg, l, runner, hb, srv, closers...)
}
