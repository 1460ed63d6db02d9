// Package heartbeat posts a liveness ping on a fixed interval.
package heartbeat

import (
	"context"
	"time"

	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"
)

type payload struct {
	BotOnline int `json:"BotOnline"`
}

// Emitter shares nothing with the trading loop beyond its own settings.
type Emitter struct {
	client   *xhttp.Client
	url      string
	interval time.Duration
	timeout  time.Duration
	log      *applogger.Logger
}

func New(client *xhttp.Client, url string, interval, timeout time.Duration, l *applogger.Logger) *Emitter {
	if l == nil {
		l = applogger.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Emitter{client: client, url: url, interval: interval, timeout: timeout, log: l}
}

// Enabled reports whether a liveness URL is configured.
func (e *Emitter) Enabled() bool { return e.url != "" }

// Run beats immediately and then every interval until ctx is done.
func (e *Emitter) Run(ctx context.Context) error {
	if !e.Enabled() {
		e.log.Info("heartbeat disabled")
		return nil
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.Beat(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Beat sends one ping. Failures are logged at debug and otherwise ignored.
func (e *Emitter) Beat(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     e.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload{BotOnline: 1},
	}, nil)
	if err != nil {
		e.log.Debug("heartbeat failed", applogger.Error(err))
	}
}
