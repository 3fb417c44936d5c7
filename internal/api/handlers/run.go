package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/conosleague/roster-optimizer/internal/models"
	"github.com/conosleague/roster-optimizer/internal/providers"
	"github.com/conosleague/roster-optimizer/internal/services"
	"github.com/conosleague/roster-optimizer/pkg/config"
	"github.com/conosleague/roster-optimizer/pkg/utils"
)

type RunHandler struct {
	service       *services.RosterService
	exportService *services.ExportService
	config        *config.Config
}

func NewRunHandler(service *services.RosterService, cfg *config.Config) *RunHandler {
	return &RunHandler{
		service:       service,
		exportService: services.NewExportService(),
		config:        cfg,
	}
}

// CreateRun accepts a Fantrax league CSV upload and optimizes every team.
func (h *RunHandler) CreateRun(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.SendError(c, http.StatusBadRequest,
			utils.NewAppError(utils.ErrCodeUploadFailed, "Missing CSV upload", err.Error()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.SendInternalError(c, "Failed to read upload")
		return
	}
	defer file.Close()

	pool, err := providers.ParseLeagueCSV(file)
	if err != nil {
		var parseErr *providers.ParseError
		if errors.As(err, &parseErr) {
			utils.SendValidationError(c, "League CSV could not be parsed", parseErr.Error())
			return
		}
		utils.SendInternalError(c, "Failed to read upload")
		return
	}

	logrus.WithFields(logrus.Fields{
		"file":  fileHeader.Filename,
		"teams": len(pool.Teams),
		"rows":  pool.PlayerRows,
	}).Info("League upload accepted")

	summary, err := h.service.RunOptimization(c.Request.Context(), fileHeader.Filename, pool)
	if err != nil {
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeOptimization, "Optimization run failed", err.Error()))
		return
	}

	utils.SendSuccess(c, summary)
}

// ListRuns returns stored runs, newest first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			utils.SendValidationError(c, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	runs, err := h.service.ListRuns(limit)
	if err != nil {
		utils.SendInternalError(c, "Failed to list runs")
		return
	}

	utils.SendSuccess(c, runs)
}

// GetRun returns the cross-team standings for a stored run.
func (h *RunHandler) GetRun(c *gin.Context) {
	summary, err := h.service.GetRunSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			utils.SendNotFound(c, "Run not found")
			return
		}
		utils.SendInternalError(c, "Failed to load run")
		return
	}

	utils.SendSuccess(c, summary)
}

// GetTeamRoster returns one team's detailed assignment within a run.
func (h *RunHandler) GetTeamRoster(c *gin.Context) {
	roster, err := h.service.GetTeamRoster(c.Request.Context(), c.Param("id"), c.Param("teamId"))
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			utils.SendNotFound(c, "Team roster not found")
			return
		}
		utils.SendInternalError(c, "Failed to load team roster")
		return
	}

	utils.SendSuccess(c, roster)
}

// ExportRun streams the run's rosters as a CSV download.
func (h *RunHandler) ExportRun(c *gin.Context) {
	runID := c.Param("id")

	summary, err := h.service.GetRunSummary(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, services.ErrRunNotFound) {
			utils.SendNotFound(c, "Run not found")
			return
		}
		utils.SendInternalError(c, "Failed to load run")
		return
	}

	rosters := make(map[string]*models.RosterResult, len(summary.Summary.Rows))
	for _, row := range summary.Summary.Rows {
		if row.Error != "" {
			continue
		}
		roster, err := h.service.GetTeamRoster(c.Request.Context(), runID, row.TeamID)
		if err != nil {
			utils.SendInternalError(c, "Failed to load team roster")
			return
		}
		rosters[row.TeamID] = roster
	}

	result := h.exportService.ExportRun(runID, summary.Summary, rosters)
	if result.CSVData == nil {
		utils.SendError(c, http.StatusInternalServerError,
			utils.NewAppError(utils.ErrCodeExportFailed, "Failed to export run",
				fmt.Sprintf("%d errors occurred", len(result.Errors))))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.FileName))
	c.Data(http.StatusOK, "text/csv", result.CSVData)
}
