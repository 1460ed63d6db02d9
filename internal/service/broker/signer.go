// Package broker holds what the exchange adapters share: request signing,
// the HTTP transport and the adapter registry.
package broker

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SignalTrader/internal/domain/models"
)

// Sign returns the hex HMAC-SHA256 of payload keyed by secret.
func Sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Param is one query parameter. Order is preserved because the signed string
// must match the transmitted one byte for byte.
type Param struct {
	Key   string
	Value string
}

type Params []Param

func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Encode joins the pairs as key=value with '&', escaping values.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}
	return b.String()
}

// QueryStringSigner signs the literal query string, appends it as a
// signature parameter and authenticates with the raw key in a header.
type QueryStringSigner struct {
	KeyHeader  string
	RecvWindow int
	Now        func() time.Time
}

// Sign appends recvWindow (when set) and timestamp to params and returns the
// final query string and auth headers.
func (s QueryStringSigner) Sign(creds models.Credentials, params Params) (string, map[string]string) {
	if s.RecvWindow > 0 {
		params = params.Add("recvWindow", strconv.Itoa(s.RecvWindow))
	}
	params = params.Add("timestamp", strconv.FormatInt(now(s.Now).UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + Sign(creds.APISecret, query)
	return query, map[string]string{s.KeyHeader: creds.APIKey}
}

// EnvelopeSigner signs timestamp+apiKey+recvWindow+payload and transmits the
// signature, key, timestamp and window as headers.
type EnvelopeSigner struct {
	KeyHeader        string
	SignHeader       string
	TimestampHeader  string
	RecvWindowHeader string
	RecvWindow       int
	Now              func() time.Time
}

// Headers returns the authentication headers for payload, which is the JSON
// body for POST requests and the query string for GET requests.
func (s EnvelopeSigner) Headers(creds models.Credentials, payload string) map[string]string {
	ts := strconv.FormatInt(now(s.Now).UnixMilli(), 10)
	window := strconv.Itoa(s.RecvWindow)
	return map[string]string{
		s.KeyHeader:        creds.APIKey,
		s.SignHeader:       Sign(creds.APISecret, ts+creds.APIKey+window+payload),
		s.TimestampHeader:  ts,
		s.RecvWindowHeader: window,
		"Content-Type":     "application/json",
	}
}

func now(f func() time.Time) time.Time {
	if f != nil {
		return f()
	}
	return time.Now()
}
