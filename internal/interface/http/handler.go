package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
	"github.com/yanqian/route-forecast/internal/domain/routeplanner"
	apperrors "github.com/yanqian/route-forecast/pkg/errors"
)

var validate = validator.New()

// Handler wires the HTTP transport to domain services.
type Handler struct {
	plannerSvc routeplanner.Service
	forecasts  forecast.Gateway
	logger     *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(plannerSvc routeplanner.Service, forecasts forecast.Gateway, logger *slog.Logger) *Handler {
	return &Handler{
		plannerSvc: plannerSvc,
		forecasts:  forecasts,
		logger:     logger.With("component", "http.handler"),
	}
}

type chatEventRequest struct {
	OwnerID string `json:"ownerId" validate:"required,max=128"`
	Text    string `json:"text" validate:"max=1024"`
	Choice  string `json:"choice" validate:"max=64"`
}

type rejectionBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatEventResponse struct {
	Text      string                `json:"text"`
	Choices   []routeplanner.Choice `json:"choices"`
	Stage     routeplanner.Stage    `json:"stage"`
	Rejection *rejectionBody        `json:"rejection,omitempty"`
}

// ChatEvent feeds one inbound chat event to the conversation and returns the reply.
func (h *Handler) ChatEvent(c *gin.Context) {
	var req chatEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if err := validate.Struct(req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	reply, err := h.plannerSvc.Handle(c.Request.Context(), routeplanner.Event{
		OwnerID: req.OwnerID,
		Text:    req.Text,
		Choice:  req.Choice,
	})
	if err != nil {
		abortWithError(c, fromAppError(err, "chat_failed"))
		return
	}

	resp := chatEventResponse{
		Text:    reply.Directive.Text,
		Choices: reply.Directive.Choices,
		Stage:   reply.Stage,
	}
	if resp.Choices == nil {
		resp.Choices = []routeplanner.Choice{}
	}
	if reply.Rejection != nil {
		resp.Rejection = &rejectionBody{
			Code:    apperrors.CodeOf(reply.Rejection),
			Message: apperrors.MessageOf(reply.Rejection),
		}
	}
	c.JSON(http.StatusOK, resp)
}

type forecastQuery struct {
	City string `validate:"required,max=100"`
	Days int    `validate:"min=1,max=5"`
}

// Forecast returns the aggregated daily forecast for one city.
func (h *Handler) Forecast(c *gin.Context) {
	q := forecastQuery{City: forecast.NormalizeCity(c.Param("city")), Days: forecast.MaxDays}
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "days must be an integer", err))
			return
		}
		q.Days = days
	}
	if err := validate.Struct(q); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	days, err := h.forecasts.FetchForecast(c.Request.Context(), q.City, q.Days)
	if err != nil {
		abortWithError(c, forecastHTTPError(err))
		return
	}
	c.JSON(http.StatusOK, days)
}

func forecastHTTPError(err error) *HTTPError {
	switch {
	case errors.Is(err, forecast.ErrInvalidRequest):
		return NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err)
	case errors.Is(err, forecast.ErrCityNotFound):
		return NewHTTPError(http.StatusNotFound, apperrors.CodeCityNotFound, "city not found", err)
	case errors.Is(err, forecast.ErrTimeout):
		return NewHTTPError(http.StatusGatewayTimeout, apperrors.CodeTimeout, "forecast provider timed out", err)
	case errors.Is(err, forecast.ErrServiceUnavailable), errors.Is(err, forecast.ErrInsufficientData):
		return NewHTTPError(http.StatusServiceUnavailable, apperrors.CodeServiceUnavailable, "forecast provider unavailable", err)
	default:
		return NewHTTPError(http.StatusBadGateway, apperrors.CodeTransport, "forecast provider failed", err)
	}
}

// Session returns a read-only view of the owner's current route.
func (h *Handler) Session(c *gin.Context) {
	sess, ok := h.plannerSvc.Session(c.Param("ownerId"))
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "session_not_found", "no session for owner", nil))
		return
	}
	if sess.Stops == nil {
		sess.Stops = []routeplanner.Stop{}
	}
	c.JSON(http.StatusOK, sess)
}

// ResetSession discards the owner's route without waiting for an in-flight turn.
func (h *Handler) ResetSession(c *gin.Context) {
	owner := c.Param("ownerId")
	if !h.plannerSvc.Reset(owner) {
		abortWithError(c, NewHTTPError(http.StatusNotFound, "session_not_found", "no session for owner", nil))
		return
	}
	h.logger.Info("session reset", "owner", owner)
	c.Status(http.StatusNoContent)
}

// Itineraries lists the owner's delivered itineraries, newest first.
func (h *Handler) Itineraries(c *gin.Context) {
	items, err := h.plannerSvc.Itineraries(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		abortWithError(c, fromAppError(err, "itineraries_failed"))
		return
	}
	if items == nil {
		items = []routeplanner.Itinerary{}
	}
	c.JSON(http.StatusOK, gin.H{"itineraries": items})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
