package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"StockCast/internal/domain/models"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
)

// InventoryEchoHandler serves forecasts, history and training over HTTP.
type InventoryEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.InventoryUseCase
	limiter *ratelimit.Limiter
}

// NewInventoryEchoHandler builds the handler. limiter guards the insights
// route and may be nil.
func NewInventoryEchoHandler(logger *xlogger.Logger, uc *usecase.InventoryUseCase, limiter *ratelimit.Limiter) *InventoryEchoHandler {
	return &InventoryEchoHandler{logger: logger, uc: uc, limiter: limiter}
}

func (h *InventoryEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Banner)
	e.GET("/healthz", h.Health)

	g := e.Group("/api/inventory")
	g.GET("/predictions/:days", h.Predictions)
	g.GET("/historical/:item", h.Historical)
	g.GET("/items", h.Items)
	g.GET("/status", h.Status)
	g.POST("/train", h.Train)
	g.POST("/cache/clear", h.ClearCache)
	if h.limiter != nil {
		g.GET("/insights/:item", h.Insights, h.limiter.Middleware())
	} else {
		g.GET("/insights/:item", h.Insights)
	}
}

func (h *InventoryEchoHandler) Banner(c echo.Context) error {
	return xhttp.SuccessResponse(c, "StockCast demand forecasting API")
}

func (h *InventoryEchoHandler) Health(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func (h *InventoryEchoHandler) Predictions(c echo.Context) error {
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Predictions(c.Request().Context(), req.Days)
	if err != nil {
		return h.fail(c, "predictions", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *InventoryEchoHandler) Historical(c echo.Context) error {
	req := &models.HistoricalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Historical(c.Request().Context(), req.Item, req.Days)
	if err != nil {
		return h.fail(c, "historical", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *InventoryEchoHandler) Insights(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	text, err := h.uc.Insights(c.Request().Context(), req.Item)
	if err != nil {
		return h.fail(c, "insights", err)
	}
	return xhttp.SuccessResponse(c, models.InsightsResponse{ItemName: req.Item, Insights: text})
}

func (h *InventoryEchoHandler) Items(c echo.Context) error {
	items, err := h.uc.ListItems(c.Request().Context())
	if err != nil {
		return h.fail(c, "items", err)
	}
	return xhttp.SuccessResponse(c, models.ItemsResponse{Items: items})
}

func (h *InventoryEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.ModelStatus())
}

func (h *InventoryEchoHandler) Train(c echo.Context) error {
	report, err := h.uc.Train(c.Request().Context(), true)
	if err != nil {
		return h.fail(c, "train", err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *InventoryEchoHandler) ClearCache(c echo.Context) error {
	h.uc.ClearDataCache()
	if err := h.uc.ClearPredictionCache(c.Request().Context()); err != nil {
		return h.fail(c, "cache_clear", err)
	}
	return xhttp.SuccessResponse(c, models.CacheClearResponse{DataCache: true, PredictionCache: true})
}

func (h *InventoryEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrItemNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidHorizon):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrDataUnavailable):
		return xhttp.InternalError("historical data unavailable").WithError(err)
	default:
		return xhttp.InternalError("Something went wrong").WithError(err)
	}
}
