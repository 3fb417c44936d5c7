package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// OptimizationRun records one uploaded league file and the optimization pass
// over every team in it.
type OptimizationRun struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	FileName   string    `json:"file_name"`
	TeamCount  int       `gorm:"not null" json:"team_count"`
	PlayerRows int       `gorm:"not null" json:"player_rows"`
	CreatedAt  time.Time `json:"created_at"`

	Rosters []TeamRoster `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"rosters,omitempty"`
}

// TableName specifies the table name for GORM
func (OptimizationRun) TableName() string {
	return "optimization_runs"
}

// TeamRoster persists one team's RosterResult within a run. The assignment
// is stored as JSON since it is read back whole, never queried by slot.
type TeamRoster struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RunID     string         `gorm:"type:uuid;not null;index:idx_run_team,unique" json:"run_id"`
	TeamID    string         `gorm:"not null;index:idx_run_team,unique" json:"team_id"`
	Status    ResultStatus   `gorm:"not null" json:"status"`
	TotalFPts float64        `gorm:"not null" json:"total_fpts"`
	Error     string         `json:"error,omitempty"`
	Result    datatypes.JSON `json:"result"`
	CreatedAt time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (TeamRoster) TableName() string {
	return "team_rosters"
}

// NewTeamRoster serializes a RosterResult for persistence.
func NewTeamRoster(runID string, result *RosterResult) (*TeamRoster, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal roster result: %w", err)
	}
	return &TeamRoster{
		RunID:     runID,
		TeamID:    result.TeamID,
		Status:    result.Status,
		TotalFPts: result.TotalFPts,
		Result:    datatypes.JSON(data),
	}, nil
}

// RosterResult deserializes the stored result payload.
func (tr *TeamRoster) RosterResult() (*RosterResult, error) {
	var result RosterResult
	if err := json.Unmarshal(tr.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster result for team %s: %w", tr.TeamID, err)
	}
	return &result, nil
}
