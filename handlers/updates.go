package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// parseWindow reads start/end/limit query parameters, defaulting to the
// trailing 24 hours.
func (h *Handler) parseWindow(c echo.Context) (time.Time, time.Time, int, error) {
	end := time.Now()
	start := end.Add(-24 * time.Hour)

	if raw := c.QueryParam("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, 0, err
		}
		start = t
	}
	if raw := c.QueryParam("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, 0, err
		}
		end = t
	}

	limit := h.Cfg.Updates.DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return start, end, 0, err
		}
		limit = n
	}
	return start, end, limit, nil
}

// GetUpdates lists ledger updates in a time window.
func (h *Handler) GetUpdates(c echo.Context) error {
	start, end, limit, err := h.parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	updates, err := h.API.GetAllUpdates(start, end, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updates)
}

// GetUpdateDetail serves one update's full record.
func (h *Handler) GetUpdateDetail(c echo.Context) error {
	detail, err := h.API.GetUpdateDetail(c.Param("id"), c.Param("recordTime"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSONBlob(http.StatusOK, detail)
}

// GetActivity serves the global activity rollup for a window.
func (h *Handler) GetActivity(c echo.Context) error {
	start, end, limit, err := h.parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	summary, err := h.API.GetGlobalActivitySummary(start, end, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}
