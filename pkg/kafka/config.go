package kafka

import "time"

type ProducerOption func(*ProducerConfig)

// ProducerConfig holds writer settings. Zero values fall back to
// defaultProducerConfig.
type ProducerConfig struct {
	Brokers     []string
	Compression string // snappy, gzip, lz4 or zstd

	// Delivery
	RequiredAcks int // -1 waits for all in-sync replicas
	MaxAttempts  int

	// Batching
	BatchSize    int
	BatchBytes   int
	BatchTimeout time.Duration

	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	Async bool
	// HashByKey routes equal keys to one partition, keeping a client's
	// records in order.
	HashByKey       bool
	AutoCreateTopic bool
}

func defaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Compression:  "snappy",
		RequiredAcks: -1,
		MaxAttempts:  5,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

// WithDelivery sets the ack level and the writer's retry budget.
func WithDelivery(acks, attempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if attempts > 0 {
			c.MaxAttempts = attempts
		}
	}
}

// WithBatching bounds a batch by message count, bytes and linger time.
// Non-positive values keep the defaults.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.BatchTimeout = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if write > 0 {
			c.WriteTimeout = write
		}
		if read > 0 {
			c.ReadTimeout = read
		}
	}
}

// WithAsync makes Publish return before the broker acknowledges.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

func WithHashByKey(hash bool) ProducerOption {
	return func(c *ProducerConfig) { c.HashByKey = hash }
}

func WithAutoCreateTopic(enabled bool) ProducerOption {
	return func(c *ProducerConfig) { c.AutoCreateTopic = enabled }
}
