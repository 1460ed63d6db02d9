package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"SignalTrader/internal/domain/errs"
	"SignalTrader/internal/domain/models"
	drepo "SignalTrader/internal/domain/repository"
	"SignalTrader/internal/domain/service"
	applogger "SignalTrader/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/google/uuid"
)

// State is a terminal state of one client's processing within a cycle.
type State string

const (
	StateSkip     State = "skip"
	StateBlocked  State = "blocked"
	StateNoData   State = "no_data"
	StateNoSignal State = "no_signal"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Skip reasons.
const (
	ReasonInactive          = "inactive"
	ReasonIncompleteConfig  = "incomplete-config"
	ReasonUnsupportedBroker = "unsupported-broker"
)

// Outcome describes how far one client got in a cycle.
type Outcome struct {
	ClientID string              `json:"client_id"`
	Broker   string              `json:"broker"`
	Symbol   string              `json:"symbol"`
	State    State               `json:"state"`
	Reason   string              `json:"reason,omitempty"`
	Trades   *ReportSummary      `json:"trades,omitempty"`
	Signal   *models.Signal      `json:"signal,omitempty"`
	Order    *models.OrderResult `json:"order,omitempty"`
	Error    string              `json:"error,omitempty"`
	Took     time.Duration       `json:"took_ns"`
}

// CycleReport is the result of one pass over the client list.
type CycleReport struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Clients    int       `json:"clients"`
	Outcomes   []Outcome `json:"outcomes"`
	Error      string    `json:"error,omitempty"`
}

// Counts tallies outcomes by state.
func (r CycleReport) Counts() map[State]int {
	out := make(map[State]int)
	for _, o := range r.Outcomes {
		out[o.State]++
	}
	return out
}

// AdapterLookup resolves a broker name to its adapter.
type AdapterLookup interface {
	Lookup(name string) (service.BrokerAdapter, bool)
}

type CoordinatorConfig struct {
	Interval    string
	CandleLimit int
	CallTimeout time.Duration
}

// Coordinator runs the per-client state machine sequentially over the
// registry's client list.
type Coordinator struct {
	registry drepo.ClientRegistry
	brokers  AdapterLookup
	candles  service.CandleSource
	engine   service.SignalEngine
	reporter *TradeReporter
	notifier drepo.SignalNotifier
	metrics  drepo.Metrics
	cfg      CoordinatorConfig
	validate *validator.Validate
	log      *applogger.Logger
}

func NewCoordinator(
	registry drepo.ClientRegistry,
	brokers AdapterLookup,
	candles service.CandleSource,
	engine service.SignalEngine,
	reporter *TradeReporter,
	notifier drepo.SignalNotifier,
	metrics drepo.Metrics,
	cfg CoordinatorConfig,
	l *applogger.Logger,
) *Coordinator {
	if l == nil {
		l = applogger.NewNop()
	}
	if cfg.Interval == "" {
		cfg.Interval = "5m"
	}
	if cfg.CandleLimit < 2 {
		cfg.CandleLimit = 200
	}
	return &Coordinator{
		registry: registry,
		brokers:  brokers,
		candles:  candles,
		engine:   engine,
		reporter: reporter,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		validate: newClientValidator(),
		log:      l,
	}
}

// RunCycle loads the client list and processes every client in order. A
// registry failure ends the cycle with no clients processed and is returned
// so the caller can back off.
func (c *Coordinator) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := c.log.With(applogger.String("cycle_id", report.ID))

	regCtx, cancel := withTimeout(ctx, c.cfg.CallTimeout)
	clients, err := c.registry.Clients(regCtx)
	cancel()
	if err != nil {
		log.Error("client registry unavailable", applogger.Error(err))
		c.metrics.RecordError("registry")
		report.Error = err.Error()
		report.FinishedAt = time.Now().UTC()
		return report, err
	}
	report.Clients = len(clients)
	log.Debug("cycle started", applogger.Int("clients", len(clients)))

	for _, client := range clients {
		if ctx.Err() != nil {
			break
		}
		out := c.ProcessClient(ctx, report.ID, client)
		c.metrics.RecordOutcome(string(out.State))
		report.Outcomes = append(report.Outcomes, out)
	}

	report.FinishedAt = time.Now().UTC()
	took := report.FinishedAt.Sub(report.StartedAt)
	c.metrics.RecordCycle(took.Seconds(), len(clients))
	log.Info("cycle finished",
		applogger.Int("clients", len(clients)),
		applogger.Int("orders", report.Counts()[StateDone]),
		applogger.Duration("took", took),
	)
	return report, nil
}

// ProcessClient drives one client from validation to order placement. It
// never panics; any fault ends in StateFailed.
func (c *Coordinator) ProcessClient(ctx context.Context, cycleID string, client models.ClientConfig) (out Outcome) {
	start := time.Now()
	out = Outcome{ClientID: string(client.ID), Broker: client.BrokerName(), Symbol: client.Symbol}
	log := c.log.With(
		applogger.String("cycle_id", cycleID),
		applogger.String("client_id", string(client.ID)),
		applogger.String("broker", client.BrokerName()),
		applogger.String("symbol", client.Symbol),
	)

	defer func() {
		if r := recover(); r != nil {
			err := errs.New(errs.KindUnexpected, fmt.Sprint(r))
			log.Error("client processing panicked",
				applogger.Error(err),
				applogger.String("stack", string(debug.Stack())),
			)
			c.metrics.RecordError(string(errs.KindUnexpected))
			out.State, out.Error = StateFailed, err.Error()
		}
		out.Took = time.Since(start)
	}()

	if !client.Active() {
		log.Debug("bot inactive, skipped")
		return skip(out, ReasonInactive)
	}
	if missing := c.missingFields(client); len(missing) > 0 {
		log.Info("incomplete client config, skipped", applogger.Strings("missing", missing))
		c.metrics.RecordError(string(errs.KindConfigIncomplete))
		return skip(out, ReasonIncompleteConfig)
	}
	adapter, ok := c.brokers.Lookup(client.BrokerName())
	if !ok {
		err := errs.New(errs.KindUnsupportedBroker, "no adapter registered", errs.WithBroker(client.Broker))
		log.Error("unsupported broker, skipped", applogger.Error(err))
		c.metrics.RecordError(string(errs.KindUnsupportedBroker))
		out.Error = err.Error()
		return skip(out, ReasonUnsupportedBroker)
	}

	creds, env := client.Credentials(), client.Env()

	// ReportTrades
	sum := c.reporter.Report(ctx, client, adapter)
	out.Trades = &sum

	// CheckPosition
	posCtx, cancel := withTimeout(ctx, c.cfg.CallTimeout)
	open := adapter.HasOpenPosition(posCtx, creds, client.Symbol, env)
	cancel()
	if open {
		log.Info("order blocked: position already open", applogger.String("env", string(env)))
		out.State = StateBlocked
		return out
	}

	// FetchData
	dataCtx, cancel := withTimeout(ctx, c.cfg.CallTimeout)
	candles := c.candles.Candles(dataCtx, client.BrokerName(), client.Symbol, c.cfg.Interval, c.cfg.CandleLimit, env)
	cancel()
	if len(candles) == 0 {
		log.Info("no candles available")
		out.State = StateNoData
		return out
	}

	// Evaluate
	signal, ok := c.engine.Evaluate(candles, client.Risk())
	if !ok {
		log.Debug("no signal", applogger.Float64("close", candles[len(candles)-1].Close))
		out.State = StateNoSignal
		return out
	}
	out.Signal = &signal
	log.Info("signal evaluated",
		applogger.String("side", string(signal.Side)),
		applogger.Float64("entry", signal.Entry),
		applogger.Float64("stop", signal.Stop),
		applogger.Float64("take", signal.Take),
	)

	if c.notifier != nil {
		nCtx, cancel := withTimeout(ctx, c.cfg.CallTimeout)
		if err := c.notifier.Notify(nCtx, client, signal); err != nil {
			log.Warn("signal webhook failed", applogger.Error(err))
		}
		cancel()
	}

	// Execute. The market and protective legs are separate requests, each
	// bounded by the broker transport.
	result := adapter.PlaceOrder(ctx, creds, models.OrderRequest{
		Symbol:    client.Symbol,
		Side:      signal.Side,
		Qty:       float64(client.LotSize),
		StopPrice: signal.Stop,
		TakePrice: signal.Take,
	}, env)

	out.State = StateDone
	out.Order = result
	switch {
	case result == nil:
		c.metrics.RecordOrder(adapter.Name(), "failed")
		log.Error("order failed", applogger.String("env", string(env)))
	case len(result.Unprotected()) > 0:
		c.metrics.RecordOrder(adapter.Name(), "unprotected")
		for _, leg := range result.Unprotected() {
			log.Warn("position unprotected",
				applogger.String("order_id", result.OrderID),
				applogger.String("leg", leg.Kind),
				applogger.String("price", leg.Price),
				applogger.String("error", leg.Error),
			)
		}
	default:
		c.metrics.RecordOrder(adapter.Name(), "placed")
		log.Info("order executed",
			applogger.String("env", string(env)),
			applogger.String("order_id", result.OrderID),
			applogger.String("qty", result.Qty),
		)
	}
	return out
}

func skip(out Outcome, reason string) Outcome {
	out.State = StateSkip
	out.Reason = reason
	return out
}

func newClientValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// missingFields lists the registry column names that fail validation.
func (c *Coordinator) missingFields(client models.ClientConfig) []string {
	err := c.validate.Struct(client)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, jsonName(fe.StructField()))
	}
	return out
}

var registryNames = map[string]string{
	"Broker":     "Corretora",
	"APIKey":     "CorretoraClientAPIKey",
	"APISecret":  "CorretoraClientAPISecret",
	"Symbol":     "TipoMoeda",
	"LotSize":    "LotSize",
	"StopLoss":   "StopLoss",
	"TakeProfit": "TakeProfit",
}

func jsonName(field string) string {
	if n, ok := registryNames[field]; ok {
		return n
	}
	return strings.ToLower(field)
}
