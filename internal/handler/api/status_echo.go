package api

import (
	"github.com/labstack/echo/v4"

	"MarketLog/internal/usecase"
	xhttp "MarketLog/pkg/http"
	xlogger "MarketLog/pkg/logger"
)

// StatusChecker is the monitor capability the handler serves.
type StatusChecker interface {
	Check(path string) (*usecase.Report, error)
}

// StatusEchoHandler exposes monitor verdicts over HTTP. Every request
// re-reads the log, so the answer always reflects the latest row.
type StatusEchoHandler struct {
	logger  *xlogger.Logger
	monitor StatusChecker
	path    string
}

func NewStatusEchoHandler(logger *xlogger.Logger, monitor StatusChecker, path string) *StatusEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &StatusEchoHandler{logger: logger, monitor: monitor, path: path}
}

type statusRequest struct {
	Asset string `query:"asset" validate:"omitempty,max=64,printascii"`
}

type healthView struct {
	State    string   `json:"state"`
	Latest   string   `json:"latest,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	ExitCode int      `json:"exit_code"`
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
}

// Status returns the full report, or one asset's status with ?asset=.
func (h *StatusEchoHandler) Status(c echo.Context) error {
	req := &statusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rep, err := h.monitor.Check(h.path)
	if err != nil {
		h.logger.Warn("status check failed", xlogger.String("path", h.path), xlogger.Error(err))
	}
	if rep == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("no report for %s", h.path).WithError(err))
	}
	if req.Asset == "" {
		return xhttp.SuccessResponse(c, rep)
	}

	for _, a := range rep.Assets {
		if a.Name == req.Asset {
			return xhttp.SuccessResponse(c, a)
		}
	}
	return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("asset %s not tracked", req.Asset).WithParam("asset", req.Asset))
}

// Health answers 200 when the monitor would exit 0, else 503.
func (h *StatusEchoHandler) Health(c echo.Context) error {
	rep, _ := h.monitor.Check(h.path)
	if rep == nil {
		return xhttp.ServiceUnavailableResponse(c, healthView{State: "unknown", ExitCode: 1})
	}
	view := healthView{State: rep.State, Latest: rep.Latest, Missing: rep.Missing, ExitCode: rep.ExitCode}
	if rep.ExitCode != 0 {
		return xhttp.ServiceUnavailableResponse(c, view)
	}
	return xhttp.SuccessResponse(c, view)
}
