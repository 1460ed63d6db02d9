package repository

import (
	"context"
	"fmt"
	"strings"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/domain/repository"
	xhttp "SignalTrader/pkg/http"
)

type signalPayload struct {
	Symbol     string      `json:"symbol"`
	Side       models.Side `json:"side"`
	Qty        float64     `json:"qty"`
	Entry      float64     `json:"entry"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`
}

// WebhookNotifier posts evaluated signals to the webhook configured for the
// client's broker. Brokers without a webhook are skipped.
type WebhookNotifier struct {
	client *xhttp.Client
	urls   map[string]string
}

func NewWebhookNotifier(client *xhttp.Client, urls map[string]string) repository.SignalNotifier {
	m := make(map[string]string, len(urls))
	for broker, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			m[strings.ToLower(strings.TrimSpace(broker))] = u
		}
	}
	return &WebhookNotifier{client: client, urls: m}
}

func (n *WebhookNotifier) Notify(ctx context.Context, c models.ClientConfig, s models.Signal) error {
	url, ok := n.urls[c.BrokerName()]
	if !ok {
		return nil
	}
	err := n.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: signalPayload{
			Symbol:     c.Symbol,
			Side:       s.Side,
			Qty:        float64(c.LotSize),
			Entry:      s.Entry,
			StopLoss:   s.Stop,
			TakeProfit: s.Take,
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("notify %s signal: %w", c.BrokerName(), err)
	}
	return nil
}

// NopNotifier discards signals.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, models.ClientConfig, models.Signal) error { return nil }
