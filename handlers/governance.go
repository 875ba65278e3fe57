package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetGovernanceVotes lists open governance votes.
func (h *Handler) GetGovernanceVotes(c echo.Context) error {
	votes, err := h.API.GetOpenVotes()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, votes)
}

// GetGovernanceVote resolves one vote by contract or tracking id.
func (h *Handler) GetGovernanceVote(c echo.Context) error {
	vote, err := h.API.GetGovernanceVoteDetail(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	if vote == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "vote not found"})
	}
	return c.JSON(http.StatusOK, vote)
}
