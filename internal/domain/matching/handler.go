package matching

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the matcher over HTTP for interactive lookups against the
// loaded reference set. The candidate index is fixed for the lifetime of the
// server; statistics accumulate across requests until reset.
type Handler struct {
	matcher *Matcher
}

func NewHandler(matcher *Matcher) *Handler {
	return &Handler{matcher: matcher}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/match", h.MatchRecord)
	api.GET("/statistics", h.GetStatistics)
	api.POST("/statistics/reset", h.ResetStatistics)
}

// MatchRecord resolves one record against the reference set and returns the
// full match result, including the no-match outcome.
func (h *Handler) MatchRecord(c echo.Context) error {
	var rec PatientRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if rec.FamilyName == "" || rec.GivenName == "" || rec.DOB == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "family_name, given_name and dob are required")
	}

	result := h.matcher.Match(rec)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetStatistics(c echo.Context) error {
	return c.JSON(http.StatusOK, h.matcher.Statistics().Snapshot())
}

// ResetStatistics starts a fresh session and returns its empty counters.
func (h *Handler) ResetStatistics(c echo.Context) error {
	h.matcher.Statistics().Reset()
	return c.JSON(http.StatusOK, h.matcher.Statistics().Snapshot())
}
