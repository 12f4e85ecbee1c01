package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/roackb2/rollout/internal/pkg/storage"
)

type RunsController struct {
	storage storage.Storage
}

func NewRunsController(storage storage.Storage) *RunsController {
	return &RunsController{storage: storage}
}

// ListReports godoc
//
//	@Summary		List run reports
//	@Description	Returns the most recent collection reports of a run, oldest first
//	@Tags			runs
//	@Produce		json
//	@Param			id		path		string	true	"Run id"
//	@Param			limit	query		int		false	"Maximum number of reports"
//	@Success		200		{array}		reporting.Report
//	@Failure		400		{object}	map[string]string	"Bad request"
//	@Failure		500		{object}	map[string]string	"Internal server error"
//	@Router			/api/v1/runs/{id}/reports [get]
func (rc *RunsController) ListReports(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
	}

	reports, err := rc.storage.ListReports(c.Request.Context(), runID, limit)
	if err != nil {
		slog.Error("RunsController: failed to list reports", "run_id", runID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reports)
}
