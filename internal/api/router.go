package api

import (
	"github.com/gin-gonic/gin"

	"github.com/conosleague/roster-optimizer/internal/api/handlers"
	"github.com/conosleague/roster-optimizer/internal/api/middleware"
	"github.com/conosleague/roster-optimizer/internal/services"
	"github.com/conosleague/roster-optimizer/pkg/config"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, rosterService *services.RosterService, cfg *config.Config) {
	runHandler := handlers.NewRunHandler(rosterService, cfg)

	group.POST("/runs", middleware.UploadRateLimit(cfg.UploadRateLimit), runHandler.CreateRun)
	group.GET("/runs", runHandler.ListRuns)
	group.GET("/runs/:id", runHandler.GetRun)
	group.GET("/runs/:id/export", runHandler.ExportRun)
	group.GET("/runs/:id/teams/:teamId", runHandler.GetTeamRoster)
}
