package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"

	json "github.com/goccy/go-json"
)

// Endpoints are the REST base URLs of one exchange.
type Endpoints struct {
	Live string
	Test string
}

// LatencyObserver receives per-operation call durations.
type LatencyObserver interface {
	RecordLatency(op string, seconds float64)
}

// Transport performs exchange REST calls for one broker. It resolves the base
// URL from the environment, traces each request at debug level and wraps
// network failures as transport errors.
type Transport struct {
	name        string
	client      *xhttp.Client
	endpoints   Endpoints
	log         *applogger.Logger
	latency     LatencyObserver
	callTimeout time.Duration
}

type TransportOption func(*Transport)

// WithCallTimeout bounds every request with its own deadline, so one slow
// call cannot eat into the budget of the calls that follow it.
func WithCallTimeout(d time.Duration) TransportOption {
	return func(t *Transport) { t.callTimeout = d }
}

func NewTransport(name string, client *xhttp.Client, endpoints Endpoints, l *applogger.Logger, latency LatencyObserver, opts ...TransportOption) *Transport {
	if l == nil {
		l = applogger.NewNop()
	}
	t := &Transport{
		name:      name,
		client:    client,
		endpoints: endpoints,
		log:       l,
		latency:   latency,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Name() string { return t.name }

// Logger returns the transport logger.
func (t *Transport) Logger() *applogger.Logger { return t.log }

// BaseURL returns the base URL for env.
func (t *Transport) BaseURL(env models.Environment) string {
	if env == models.EnvTest {
		return strings.TrimRight(t.endpoints.Test, "/")
	}
	return strings.TrimRight(t.endpoints.Live, "/")
}

// Do sends opts with opts.URL interpreted as a path under the env base URL.
func (t *Transport) Do(ctx context.Context, op string, env models.Environment, opts xhttp.RequestOptions) (*xhttp.Response, error) {
	path := opts.URL
	opts.URL = t.BaseURL(env) + path

	t.log.Debug("broker request",
		applogger.String("broker", t.name),
		applogger.String("op", op),
		applogger.String("method", opts.Method),
		applogger.String("path", path),
		applogger.String("env", string(env)),
	)

	if t.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := t.client.Do(ctx, &opts)
	if t.latency != nil {
		t.latency.RecordLatency(t.name+"."+op, time.Since(start).Seconds())
	}
	if err != nil {
		return nil, errs.Transport(t.name, op, err)
	}
	return resp, nil
}

// Decode unmarshals body into dest, reporting failures as transport errors.
func (t *Transport) Decode(op string, body []byte, dest interface{}) error {
	if err := json.Unmarshal(body, dest); err != nil {
		return errs.Transport(t.name, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// Fail logs err with the broker and operation attached.
func (t *Transport) Fail(op string, err error, fields ...applogger.Field) {
	fields = append([]applogger.Field{
		applogger.String("broker", t.name),
		applogger.String("op", op),
		applogger.String("kind", string(errs.KindOf(err))),
		applogger.Error(err),
	}, fields...)
	t.log.Error("broker call failed", fields...)
}
