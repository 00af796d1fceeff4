package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "treasury/internal/errors"
	"treasury/internal/services"
)

const defaultForecastDays = 30

// ForecastHandler serves balance projections.
type ForecastHandler struct {
	forecastService services.ForecastServicer
}

// NewForecastHandler creates a new ForecastHandler.
func NewForecastHandler(forecastService services.ForecastServicer) *ForecastHandler {
	return &ForecastHandler{forecastService: forecastService}
}

// GetCashFlowForecast projects the boutique's balance day by day
// @Summary     Cash flow forecast
// @Description Projects the total balance of the boutique's active accounts from pending cash flows and recurring templates. Nothing is written.
// @Tags        forecast
// @Produce     json
// @Security    BearerAuth
// @Param       days            query int  false "Horizon in days (default 30)"
// @Param       include_pending query bool false "Include pending cash flows (default true)"
// @Success     200 {object} services.Forecast "Forecast"
// @Failure     400 {object} ErrorResponse "Invalid horizon"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /forecast [get]
func (h *ForecastHandler) GetCashFlowForecast(c *gin.Context) {
	actor, err := getActor(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days := defaultForecastDays
	if v := c.Query("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidHorizon, "days must be an integer"))
			return
		}
	}

	includePending := true
	if v := c.Query("include_pending"); v != "" {
		includePending, err = strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid include_pending"))
			return
		}
	}

	forecast, err := h.forecastService.GetCashFlowForecast(c.Request.Context(), actor.BoutiqueID, days, includePending)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, forecast)
}
