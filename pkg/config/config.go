package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logging"`
	Sink struct {
		Backend string        `yaml:"backend" default:"none" validate:"oneof=none http kafka"`
		URL     string        `yaml:"url" validate:"required_if=Backend http"`
		Topic   string        `yaml:"topic" default:"signaltrader.logs"`
		Level   string        `yaml:"level" default:"info"`
		Buffer  int           `yaml:"buffer" default:"256"`
		Timeout time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"sink"`
	Registry struct {
		ConfigURL string        `yaml:"config_url" validate:"required,url"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"registry"`
	Heartbeat struct {
		URL      string        `yaml:"url"`
		Interval time.Duration `yaml:"interval" default:"30s"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"heartbeat"`
	Scheduler struct {
		PollInterval     time.Duration `yaml:"poll_interval" default:"60s"`
		ErrorBackoff     time.Duration `yaml:"error_backoff" default:"10s"`
		CallTimeout      time.Duration `yaml:"call_timeout" default:"10s"`
		ClosedTradeLimit int           `yaml:"closed_trade_limit" default:"20" validate:"gt=0"`
	} `yaml:"scheduler"`
	MarketData struct {
		Provider   string `yaml:"provider" default:"broker" validate:"oneof=broker twelvedata"`
		Interval   string `yaml:"interval" default:"5m"`
		Limit      int    `yaml:"limit" default:"200" validate:"gte=2"`
		TwelveData struct {
			APIKey  string        `yaml:"api_key"`
			BaseURL string        `yaml:"base_url" default:"https://api.twelvedata.com"`
			Timeout time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"twelvedata"`
	} `yaml:"market_data"`
	Brokers struct {
		Binance BrokerConfig `yaml:"binance"`
		Bybit   BrokerConfig `yaml:"bybit"`
	} `yaml:"brokers"`
	Ledger struct {
		Backend         string `yaml:"backend" default:"log" validate:"oneof=log webhook kafka clickhouse"`
		WebhookURL      string `yaml:"webhook_url" validate:"required_if=Backend webhook"`
		KafkaTopic      string `yaml:"kafka_topic" default:"signaltrader.trades"`
		ClickHouseTable string `yaml:"clickhouse_table" default:"closed_trades"`
	} `yaml:"ledger"`
	Dedup struct {
		Backend   string        `yaml:"backend" default:"memory" validate:"oneof=memory redis"`
		TTL       time.Duration `yaml:"ttl"`
		KeyPrefix string        `yaml:"key_prefix" default:"signaltrader:reported"`
		L1Size    int           `yaml:"l1_size" default:"10000"`
	} `yaml:"dedup"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		Prefix       string        `yaml:"prefix"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers         []string `yaml:"brokers"`
		RequiredAcks    int      `yaml:"required_acks" default:"-1"`
		Compression     string   `yaml:"compression" default:"snappy"`
		AutoCreateTopic bool     `yaml:"auto_create_topic"`
		Producer        struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"10s"`
	} `yaml:"clickhouse"`
	// SignalWebhooks maps a broker name to the URL that receives its signals.
	SignalWebhooks map[string]string `yaml:"signal_webhooks"`
}

// BrokerConfig holds the endpoints and throttling of one exchange.
type BrokerConfig struct {
	LiveURL    string        `yaml:"live_url"`
	TestURL    string        `yaml:"test_url"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	RPS        float64       `yaml:"rps" default:"5"`
	Burst      int           `yaml:"burst" default:"5"`
	RecvWindow int           `yaml:"recv_window" default:"5000"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("REGISTRY_URL"); v != "" {
		c.Registry.ConfigURL = v
	}
	if v := os.Getenv("LOG_URL"); v != "" {
		c.Sink.URL = v
		if c.Sink.Backend == "none" {
			c.Sink.Backend = "http"
		}
	}
	if v := os.Getenv("HEARTBEAT_URL"); v != "" {
		c.Heartbeat.URL = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("LEDGER_WEBHOOK_URL"); v != "" {
		c.Ledger.WebhookURL = v
	}
	if v := os.Getenv("DEDUP_BACKEND"); v != "" {
		c.Dedup.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		c.MarketData.TwelveData.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyBrokerDefaults()
	return &c, nil
}

func (c *Config) applyBrokerDefaults() {
	if c.Brokers.Binance.LiveURL == "" {
		c.Brokers.Binance.LiveURL = "https://fapi.binance.com"
	}
	if c.Brokers.Binance.TestURL == "" {
		c.Brokers.Binance.TestURL = "https://testnet.binancefuture.com"
	}
	if c.Brokers.Bybit.LiveURL == "" {
		c.Brokers.Bybit.LiveURL = "https://api.bybit.com"
	}
	if c.Brokers.Bybit.TestURL == "" {
		c.Brokers.Bybit.TestURL = "https://api-demo.bybit.com"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Scheduler.ErrorBackoff >= c.Scheduler.PollInterval {
		return fmt.Errorf("scheduler.error_backoff (%s) must be shorter than scheduler.poll_interval (%s)",
			c.Scheduler.ErrorBackoff, c.Scheduler.PollInterval)
	}
	if (c.Ledger.Backend == "kafka" || c.Sink.Backend == "kafka") && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when a kafka backend is selected")
	}
	if c.MarketData.Provider == "twelvedata" && c.MarketData.TwelveData.APIKey == "" {
		return fmt.Errorf("market_data.twelvedata.api_key is required for the twelvedata provider")
	}
	return nil
}
