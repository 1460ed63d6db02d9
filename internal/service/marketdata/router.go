package marketdata

import (
	"context"
	"strings"

	"SignalTrader/internal/domain/models"
	applogger "SignalTrader/pkg/logger"
)

// Source fetches candles for one provider.
type Source interface {
	Candles(ctx context.Context, symbol, interval string, limit int, env models.Environment) []models.Candle
}

// Router implements service.CandleSource. With a fixed provider every
// request goes to it; otherwise the client's broker kline endpoint is used.
type Router struct {
	brokers map[string]Source
	fixed   Source
	log     *applogger.Logger
}

type RouterOption func(*Router)

// WithBrokerSource serves candles for clients of broker from src.
func WithBrokerSource(broker string, src Source) RouterOption {
	return func(r *Router) { r.brokers[strings.ToLower(broker)] = src }
}

// WithFixedSource sends every request to src regardless of broker.
func WithFixedSource(src Source) RouterOption {
	return func(r *Router) { r.fixed = src }
}

func NewRouter(l *applogger.Logger, opts ...RouterOption) *Router {
	if l == nil {
		l = applogger.NewNop()
	}
	r := &Router{brokers: make(map[string]Source), log: l}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candles returns normalized candles or nil when no provider serves broker
// or the provider failed.
func (r *Router) Candles(ctx context.Context, broker, symbol, interval string, limit int, env models.Environment) []models.Candle {
	src := r.fixed
	if src == nil {
		src = r.brokers[strings.ToLower(strings.TrimSpace(broker))]
	}
	if src == nil {
		r.log.Error("no market data source",
			applogger.String("broker", broker),
			applogger.String("symbol", symbol),
		)
		return nil
	}

	candles := src.Candles(ctx, symbol, interval, limit, env)
	if candles == nil {
		return nil
	}
	return Normalize(candles)
}
