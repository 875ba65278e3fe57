package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// GetHealth returns OK
func (h *Handler) GetHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// GetStatus returns backend status including the upstream node roster with
// geo annotation.
func (h *Handler) GetStatus(c echo.Context) error {
	nodes := h.Client.GetNodeStatus()
	for i := range nodes {
		loc := h.Geo.LookupHost(nodes[i].Node.URL)
		nodes[i].Country = loc.Country
		nodes[i].City = loc.City
	}

	status := map[string]interface{}{
		"status":     "running",
		"uptime":     time.Since(h.StartTime).String(),
		"nodes":      nodes,
		"cache_mode": h.Cache.Mode(),
		"timestamp":  time.Now(),
	}
	return c.JSON(http.StatusOK, status)
}

// GetCacheStatus reports the active cache backend and client cache size.
func (h *Handler) GetCacheStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"mode":           h.Cache.Mode(),
		"client_entries": h.Client.CacheSize(),
	})
}

// ClearCache drops both the warm snapshots and the client response cache.
func (h *Handler) ClearCache(c echo.Context) error {
	h.Cache.Clear()
	h.Client.ClearCache()
	return c.JSON(http.StatusOK, map[string]string{"status": "cleared"})
}

// GetAlertHistory returns recent alert firings.
func (h *Handler) GetAlertHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Alerts.History(50))
}
