package logger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Publisher delivers a sink record to an external collector.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type SinkConfig struct {
	Level     string        // minimum forwarded level
	Topic     string        // passed through to the publisher
	Buffer    int           // queued records before new ones are dropped
	Timeout   time.Duration // per-publish deadline
	Publisher Publisher
}

// Record is the wire shape of one forwarded log entry.
type Record struct {
	ClientID  string                 `json:"IDCliente"`
	Level     string                 `json:"Level"`
	Message   string                 `json:"Message"`
	Data      map[string]interface{} `json:"Data"`
	Timestamp string                 `json:"Timestamp"`
}

// Sink forwards log records asynchronously. A full buffer drops records so
// that a slow collector never stalls the caller.
type Sink struct {
	cfg     SinkConfig
	level   zerolog.Level
	records chan Record
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

func NewSink(cfg SinkConfig) (*Sink, error) {
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("sink publisher is required")
	}
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		lvl, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid sink level: %w", err)
		}
		level = lvl
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	s := &Sink{
		cfg:     cfg,
		level:   level,
		records: make(chan Record, cfg.Buffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

func (s *Sink) Accepts(level zerolog.Level) bool {
	return level >= s.level
}

// Emit queues a record. The client id is lifted out of the "client_id" field.
func (s *Sink) Emit(level zerolog.Level, msg string, data map[string]interface{}) {
	rec := Record{
		Level:     level.String(),
		Message:   msg,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if v, ok := data["client_id"]; ok {
		rec.ClientID = fmt.Sprint(v)
		delete(data, "client_id")
	}

	select {
	case <-s.done:
		return
	default:
	}

	select {
	case s.records <- rec:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns how many records were discarded because the buffer was full.
func (s *Sink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *Sink) loop() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.records:
			s.publish(rec)
		case <-s.done:
			for {
				select {
				case rec := <-s.records:
					s.publish(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) publish(rec Record) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := s.cfg.Publisher.PublishMessage(ctx, s.cfg.Topic, rec); err != nil {
		fmt.Fprintf(os.Stderr, "log sink publish failed: %v\n", err)
	}
}

// Close drains queued records and stops the worker.
func (s *Sink) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}
