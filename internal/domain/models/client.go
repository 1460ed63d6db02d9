package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Environment selects the broker's live or test endpoints.
type Environment string

const (
	EnvLive Environment = "real"
	EnvTest Environment = "testnet"
)

// ParseEnvironment maps registry values onto an Environment. Anything that
// is not explicitly a test value is treated as live, matching the registry
// default of "real".
func ParseEnvironment(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "testnet", "test", "demo":
		return EnvTest
	default:
		return EnvLive
	}
}

// ClientID accepts either a JSON number or string.
type ClientID string

func (id *ClientID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ClientID(s)
		return nil
	}
	*id = ClientID(string(b))
	return nil
}

// ClientConfig is one tenant's trading configuration as served by the
// client registry.
type ClientConfig struct {
	ID          ClientID `json:"IDCliente"`
	BotActive   Flag     `json:"BotActive"`
	Broker      string   `json:"Corretora" validate:"required,notblank"`
	Environment string   `json:"BybitEnvironment"`
	APIKey      string   `json:"CorretoraClientAPIKey" validate:"required,notblank"`
	APISecret   string   `json:"CorretoraClientAPISecret" validate:"required,notblank"`
	Symbol      string   `json:"TipoMoeda" validate:"required,notblank"`
	LotSize     Number   `json:"LotSize" validate:"gt=0"`
	StopLoss    Number   `json:"StopLoss" validate:"gt=0"`
	TakeProfit  Number   `json:"TakeProfit" validate:"gt=0"`
}

// Active reports whether the bot is switched on for this client.
func (c ClientConfig) Active() bool { return c.BotActive == 1 }

// Env returns the parsed environment selector.
func (c ClientConfig) Env() Environment { return ParseEnvironment(c.Environment) }

// BrokerName returns the normalized broker name used for adapter lookup.
func (c ClientConfig) BrokerName() string { return strings.ToLower(strings.TrimSpace(c.Broker)) }

// Risk returns the client's stop/take percentages.
func (c ClientConfig) Risk() RiskConfig {
	return RiskConfig{StopLossPct: float64(c.StopLoss), TakeProfitPct: float64(c.TakeProfit)}
}

// Number is a float64 that also decodes from a quoted JSON string, which is
// how some registry rows carry numeric columns.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// Flag is an integer switch that also decodes from a quoted number or a JSON
// boolean. Only 1 means on.
type Flag int

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "null", "false":
		*f = 0
		return nil
	case "true":
		*f = 1
		return nil
	}
	var n Number
	if err := n.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("flag: %w", err)
	}
	if float64(n) != math.Trunc(float64(n)) {
		return fmt.Errorf("flag: %v is not an integer", float64(n))
	}
	*f = Flag(n)
	return nil
}

// RiskConfig carries whole-number percentages (2 means 2%).
type RiskConfig struct {
	StopLossPct   float64
	TakeProfitPct float64
}

// Credentials are the per-client broker API key pair.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Credentials returns the client's broker API key pair.
func (c ClientConfig) Credentials() Credentials {
	return Credentials{APIKey: c.APIKey, APISecret: c.APISecret}
}
