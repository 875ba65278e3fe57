package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"cantonscan/models"
	"cantonscan/services"
)

// FinOpsResponse bundles every calculator output for one validator.
type FinOpsResponse struct {
	ValidatorID string                     `json:"validator_id"`
	Data        models.ValidatorFinOpsData `json:"data"`
	Runway      models.RunwayForecast      `json:"runway"`
	NetMargin   models.NetMargin           `json:"net_margin"`
	Changes     models.ChangeAnalysis      `json:"changes"`
	Scenarios   []models.Scenario          `json:"scenarios"`
	Health      models.FinancialHealth     `json:"health"`
}

// GetValidatorFinOps builds the full FinOps view for one validator.
// Infrastructure costs come from query parameters since they live off-chain.
func (h *Handler) GetValidatorFinOps(c echo.Context) error {
	validatorID := c.Param("validatorID")
	start, end, _, err := h.parseWindow(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if !c.QueryParams().Has("start") {
		start = end.AddDate(0, 0, -30)
	}

	infra := &models.InfrastructureCosts{
		Compute:    queryFloat(c, "compute"),
		Storage:    queryFloat(c, "storage"),
		Network:    queryFloat(c, "network"),
		Monitoring: queryFloat(c, "monitoring"),
	}

	data, err := services.FetchValidatorFinOpsData(h.API, services.FinOpsOptions{
		ValidatorID:    validatorID,
		Start:          start,
		End:            end,
		Infrastructure: infra,
	})
	if err != nil {
		return respondError(c, err)
	}

	calc := services.NewFinOpsCalculator(*data)
	return c.JSON(http.StatusOK, FinOpsResponse{
		ValidatorID: validatorID,
		Data:        *data,
		Runway:      calc.CalculateRunway(),
		NetMargin:   calc.CalculateNetMargin(),
		Changes:     calc.AnalyzeChanges(),
		Scenarios:   calc.GenerateScenarios(),
		Health:      calc.FinancialHealth(),
	})
}

func queryFloat(c echo.Context, name string) float64 {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f
}
