package repository

import (
	"context"

	xhttp "SignalTrader/pkg/http"
)

// HTTPLogPublisher posts sink records to the log collector endpoint. The
// topic is ignored.
type HTTPLogPublisher struct {
	client *xhttp.Client
	url    string
}

func NewHTTPLogPublisher(client *xhttp.Client, url string) *HTTPLogPublisher {
	return &HTTPLogPublisher{client: client, url: url}
}

func (p *HTTPLogPublisher) PublishMessage(ctx context.Context, _ string, payload interface{}) error {
	return p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     p.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, nil)
}
