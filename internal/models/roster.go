package models

// ResultStatus tags how a team's optimization finished.
type ResultStatus string

const (
	// StatusOptimal means the search ran to exhaustion: no feasible
	// assignment has a strictly greater total.
	StatusOptimal ResultStatus = "optimal"
	// StatusBestEffort means the search hit its node or time budget
	// before proving optimality; the result is the best found so far.
	StatusBestEffort ResultStatus = "best_effort"
	// StatusInfeasible means the pool cannot fill every roster slot.
	StatusInfeasible ResultStatus = "infeasible"
	// StatusFailed means the team's pool was rejected before the search
	// ran, or the budget expired with nothing found.
	StatusFailed ResultStatus = "failed"
)

// RosterResult is the outcome of optimizing one team's pool. It is built
// once per optimization call and never mutated afterwards.
type RosterResult struct {
	TeamID        string                `json:"team_id"`
	Status        ResultStatus          `json:"status"`
	TotalFPts     float64               `json:"total_fpts"`
	Assignment    map[Position][]Player `json:"assignment,omitempty"`
	Unassigned    []Player              `json:"unassigned,omitempty"`
	NodesExplored int64                 `json:"nodes_explored"`
	ElapsedMs     int64                 `json:"elapsed_ms"`
}

// SelectedCount returns the number of players assigned to slots.
func (r *RosterResult) SelectedCount() int {
	count := 0
	for _, players := range r.Assignment {
		count += len(players)
	}
	return count
}

// PositionCounts returns how many slots were filled per position.
func (r *RosterResult) PositionCounts() map[Position]int {
	counts := make(map[Position]int, len(r.Assignment))
	for pos, players := range r.Assignment {
		counts[pos] = len(players)
	}
	return counts
}

// HasPlayer reports whether the player occupies a slot in the assignment.
func (r *RosterResult) HasPlayer(playerID string) bool {
	for _, players := range r.Assignment {
		for _, p := range players {
			if p.ID == playerID {
				return true
			}
		}
	}
	return false
}
