package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"cantonscan/config"
	"cantonscan/models"
	"cantonscan/services"
	"cantonscan/utils"
)

type Handler struct {
	Cfg       *config.Config
	Cache     *services.CacheService
	API       *services.ScanAPI
	Client    *services.ScanClient
	Alerts    *services.AlertService
	Geo       *utils.GeoResolver
	StartTime time.Time
}

func NewHandler(cfg *config.Config, cache *services.CacheService, api *services.ScanAPI, client *services.ScanClient, alerts *services.AlertService, geo *utils.GeoResolver) *Handler {
	return &Handler{
		Cfg:       cfg,
		Cache:     cache,
		API:       api,
		Client:    client,
		Alerts:    alerts,
		Geo:       geo,
		StartTime: time.Now(),
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps client errors to HTTP statuses: rate limits surface as
// 503 with a Retry-After hint, other upstream failures as 502.
func respondError(c echo.Context, err error) error {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case models.ErrCodeRateLimited:
			if apiErr.RetryAfter > 0 {
				c.Response().Header().Set("Retry-After", strconv.Itoa(apiErr.RetryAfter))
			}
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: apiErr.Message,
				Code:  apiErr.Code,
			})
		default:
			return c.JSON(http.StatusBadGateway, ErrorResponse{
				Error: apiErr.Message,
				Code:  apiErr.Code,
			})
		}
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}
