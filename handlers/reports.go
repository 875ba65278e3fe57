package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cantonscan/models"
	"cantonscan/services"
)

// ReportResponse bundles the generated artifacts with their provenance.
type ReportResponse struct {
	Evidence   models.EvidenceBundle      `json:"evidence"`
	Document   models.ReportDocument      `json:"document"`
	Checklist  []models.ChecklistCategory `json:"checklist"`
	Completion int                        `json:"completion_percent"`
}

// AssembledReportResponse carries the chain-assembled input alongside the
// artifacts so operators can review it, adjust fields and re-submit through
// CreateReport.
type AssembledReportResponse struct {
	Data       models.ReportData          `json:"data"`
	Evidence   models.EvidenceBundle      `json:"evidence"`
	Document   models.ReportDocument      `json:"document"`
	Checklist  []models.ChecklistCategory `json:"checklist"`
	Completion int                        `json:"completion_percent"`
}

// CreateReport generates all report artifacts from the posted report data.
func (h *Handler) CreateReport(c echo.Context) error {
	var data models.ReportData
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid report data"})
	}

	gen, err := services.NewReportGenerator(data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, ReportResponse{
		Evidence:   gen.EvidenceBundle(),
		Document:   gen.BuildDocument(),
		Checklist:  gen.RequirementsChecklist(),
		Completion: gen.CompletionPercent(),
	})
}

// AssembleReport builds report data for a party from on-chain activity over
// the requested window (default: the trailing month) and generates the report
// artifacts from it in one pass.
func (h *Handler) AssembleReport(c echo.Context) error {
	partyID := c.QueryParam("partyId")
	if partyID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "partyId query parameter is required"})
	}

	now := time.Now().UTC()
	start := now.AddDate(0, -1, 0)
	end := now
	if v := c.QueryParam("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start timestamp, expected RFC3339"})
		}
		start = parsed
	}
	if v := c.QueryParam("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end timestamp, expected RFC3339"})
		}
		end = parsed
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "end must be after start"})
	}

	data, err := services.AssembleReportData(h.API, services.ReportAssemblyOptions{
		PartyID: partyID,
		AppName: c.QueryParam("appName"),
		Start:   start,
		End:     end,
	})
	if err != nil {
		return respondError(c, err)
	}

	gen, err := services.NewReportGenerator(data)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, AssembledReportResponse{
		Data:       data,
		Evidence:   gen.EvidenceBundle(),
		Document:   gen.BuildDocument(),
		Checklist:  gen.RequirementsChecklist(),
		Completion: gen.CompletionPercent(),
	})
}

// CreateReportCSV renders the posted report data as a CSV export.
func (h *Handler) CreateReportCSV(c echo.Context) error {
	var data models.ReportData
	if err := c.Bind(&data); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid report data"})
	}

	gen, err := services.NewReportGenerator(data)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	csvText, err := gen.GenerateCSV()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="report.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(csvText))
}
