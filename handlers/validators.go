package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetNetworkStats serves the aggregated dashboard snapshot. Served from the
// warm cache; a cold cache triggers one synchronous refresh.
func (h *Handler) GetNetworkStats(c echo.Context) error {
	stats, found := h.Cache.GetNetworkStats()
	if !found {
		h.Cache.Refresh()
		stats, found = h.Cache.GetNetworkStats()
		if !found {
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "Network statistics temporarily unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, stats)
}

// GetValidators lists all validators with liveness and version status.
func (h *Handler) GetValidators(c echo.Context) error {
	if validators, found := h.Cache.GetValidators(); found {
		return c.JSON(http.StatusOK, validators)
	}

	validators, err := h.API.GetValidatorLiveness()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, validators)
}

// GetValidator resolves one validator by id (full or short form).
func (h *Handler) GetValidator(c echo.Context) error {
	info, err := h.API.GetValidatorInfo(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

// GetSuperValidators serves the synchronizer operator view.
func (h *Handler) GetSuperValidators(c echo.Context) error {
	state, err := h.API.GetDSOState()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, state)
}

// GetLatestRound serves the newest consensus round.
func (h *Handler) GetLatestRound(c echo.Context) error {
	round, err := h.API.GetLatestRound()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, round)
}
