package repository

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"SignalTrader/internal/domain/models"
	"SignalTrader/internal/domain/repository"
	xhttp "SignalTrader/pkg/http"
	applogger "SignalTrader/pkg/logger"

	json "github.com/goccy/go-json"
)

// HTTPClientRegistry loads the tenant list from the configuration endpoint.
type HTTPClientRegistry struct {
	client  *xhttp.Client
	url     string
	timeout time.Duration
	log     *applogger.Logger
}

// NewHTTPClientRegistry creates the registry reader.
func NewHTTPClientRegistry(client *xhttp.Client, url string, timeout time.Duration, l *applogger.Logger) repository.ClientRegistry {
	if l == nil {
		l = applogger.NewNop()
	}
	return &HTTPClientRegistry{client: client, url: url, timeout: timeout, log: l}
}

// Clients accepts either a bare JSON array or an object wrapping it in
// "data". On failure it returns an empty slice with the error.
func (r *HTTPClientRegistry) Clients(ctx context.Context) ([]models.ClientConfig, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var body []byte
	if err := r.client.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: r.url}, &body); err != nil {
		return []models.ClientConfig{}, fmt.Errorf("fetch clients: %w", err)
	}

	clients, err := decodeClients(body, r.log)
	if err != nil {
		return []models.ClientConfig{}, err
	}
	r.log.Debug("clients loaded", applogger.Int("count", len(clients)))
	return clients, nil
}

// decodeClients decodes rows one at a time; a malformed row is logged and
// skipped so it cannot take the rest of the list down with it.
func decodeClients(body []byte, l *applogger.Logger) ([]models.ClientConfig, error) {
	body = bytes.TrimSpace(body)
	var rows []json.RawMessage
	if len(body) > 0 && body[0] == '{' {
		var wrapped struct {
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return []models.ClientConfig{}, fmt.Errorf("decode clients: %w", err)
		}
		rows = wrapped.Data
	} else if err := json.Unmarshal(body, &rows); err != nil {
		return []models.ClientConfig{}, fmt.Errorf("decode clients: %w", err)
	}

	clients := make([]models.ClientConfig, 0, len(rows))
	for i, raw := range rows {
		var c models.ClientConfig
		if err := json.Unmarshal(raw, &c); err != nil {
			l.Error("malformed client row skipped", applogger.Int("row", i), applogger.Error(err))
			continue
		}
		clients = append(clients, c)
	}
	return clients, nil
}
