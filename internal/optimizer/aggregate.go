package optimizer

import (
	"sort"

	"github.com/conosleague/roster-optimizer/internal/models"
)

// SummaryRow is one team's line in the cross-team standings.
type SummaryRow struct {
	TeamID         string                  `json:"team_id"`
	Status         models.ResultStatus     `json:"status"`
	TotalFPts      float64                 `json:"total_fpts"`
	PositionCounts map[models.Position]int `json:"position_counts,omitempty"`
	Error          string                  `json:"error,omitempty"`
}

// Summary is the league-wide view over every team's optimization outcome.
type Summary struct {
	Rows      []SummaryRow `json:"rows"`
	TeamCount int          `json:"team_count"`
}

// TeamOutcome pairs a team with either its roster result or the per-team
// error that prevented one. Exactly one of Result and Err is set.
type TeamOutcome struct {
	TeamID string
	Result *models.RosterResult
	Err    error
}

// Aggregate builds the summary table: rows sorted by total FPts descending,
// ties broken by team ID ascending. Infeasible and best-effort teams are
// flagged in place, never dropped.
func Aggregate(outcomes []TeamOutcome) Summary {
	rows := make([]SummaryRow, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			status := models.StatusFailed
			if IsInfeasible(outcome.Err) {
				status = models.StatusInfeasible
			}
			rows = append(rows, SummaryRow{
				TeamID: outcome.TeamID,
				Status: status,
				Error:  outcome.Err.Error(),
			})
			continue
		}
		rows = append(rows, SummaryRow{
			TeamID:         outcome.Result.TeamID,
			Status:         outcome.Result.Status,
			TotalFPts:      outcome.Result.TotalFPts,
			PositionCounts: outcome.Result.PositionCounts(),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalFPts != rows[j].TotalFPts {
			return rows[i].TotalFPts > rows[j].TotalFPts
		}
		return rows[i].TeamID < rows[j].TeamID
	})

	return Summary{Rows: rows, TeamCount: len(rows)}
}
