package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/conosleague/roster-optimizer/internal/models"
	"github.com/conosleague/roster-optimizer/internal/optimizer"
)

// ExportService renders a run's rosters as a downloadable CSV, one row per
// assigned player, matching the original results download.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportResult carries the rendered file and any per-team problems.
type ExportResult struct {
	FileName string
	CSVData  []byte
	Errors   []string
}

var exportHeader = []string{"Team", "Player", "Assigned Position", "Eligible Positions", "FPts", "Total Team FPts"}

// ExportRun writes every team's assignment in standings order. Teams
// without a roster (infeasible, failed) contribute no rows but are noted
// in Errors so the caller can warn.
func (s *ExportService) ExportRun(runID string, summary optimizer.Summary, rosters map[string]*models.RosterResult) *ExportResult {
	result := &ExportResult{
		FileName: fmt.Sprintf("optimal_rosters_%s.csv", runID),
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(exportHeader); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, row := range summary.Rows {
		roster, ok := rosters[row.TeamID]
		if !ok || roster == nil || len(roster.Assignment) == 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("team %s: no roster (%s)", row.TeamID, row.Status))
			continue
		}

		total := strconv.FormatFloat(roster.TotalFPts, 'f', 2, 64)
		for _, pos := range models.AllPositions {
			for _, player := range roster.Assignment[pos] {
				record := []string{
					row.TeamID,
					player.Name,
					string(pos),
					player.PositionsString(),
					strconv.FormatFloat(player.FPts, 'f', 2, 64),
					total,
				}
				if err := writer.Write(record); err != nil {
					result.Errors = append(result.Errors, err.Error())
					return result
				}
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.CSVData = buf.Bytes()
	return result
}
