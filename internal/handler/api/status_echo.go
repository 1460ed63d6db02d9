package api

import (
	"SignalTrader/internal/domain/models"
	domrepo "SignalTrader/internal/domain/repository"
	"SignalTrader/internal/usecase"
	xhttp "SignalTrader/pkg/http"
	xlogger "SignalTrader/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CycleSource exposes the runner's view of completed cycles.
type CycleSource interface {
	LastReport() (usecase.CycleReport, bool)
	Runs() int
}

type CycleStatus struct {
	Runs   int                   `json:"runs"`
	Counts map[usecase.State]int `json:"counts"`
	Last   usecase.CycleReport   `json:"last"`
}

// StatusEchoHandler serves the operational API.
type StatusEchoHandler struct {
	logger *xlogger.Logger
	cycles CycleSource
	dedup  domrepo.DedupStore
}

func NewStatusEchoHandler(logger *xlogger.Logger, cycles CycleSource, dedup domrepo.DedupStore) *StatusEchoHandler {
	return &StatusEchoHandler{logger: logger, cycles: cycles, dedup: dedup}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/cycle", h.Cycle)
	g.GET("/dedup", h.Dedup)
}

// Cycle returns the last cycle report with per-client terminal states.
func (h *StatusEchoHandler) Cycle(c echo.Context) error {
	report, ok := h.cycles.LastReport()
	if !ok {
		return xhttp.Fail(c, xhttp.Unavailable("no cycle has completed yet"))
	}
	return xhttp.OK(c, CycleStatus{
		Runs:   h.cycles.Runs(),
		Counts: report.Counts(),
		Last:   report,
	})
}

// Dedup reports whether broker/order_id has been forwarded to the ledger.
func (h *StatusEchoHandler) Dedup(c echo.Context) error {
	req := &models.DedupQuery{}
	if invalid := xhttp.Bind(c, req); invalid != nil {
		return xhttp.Invalid(c, invalid)
	}

	id := models.TradeKey(req.Broker, req.OrderID)
	seen, err := h.dedup.AlreadyReported(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("dedup lookup failed", xlogger.String("trade_id", id), xlogger.Error(err))
		return xhttp.Fail(c, xhttp.Unavailable("dedup store unavailable").Wrap(err))
	}
	return xhttp.OK(c, models.DedupStatus{ID: id, Reported: seen})
}
