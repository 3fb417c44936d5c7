package optimizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conosleague/roster-optimizer/internal/models"
)

// ErrBudgetExceeded is returned when the search budget expires before any
// feasible assignment was found. When an incumbent exists the engine returns
// a best-effort result instead.
var ErrBudgetExceeded = errors.New("search budget exceeded before a feasible assignment was found")

// ValidationError reports a player record that must never reach the search.
type ValidationError struct {
	PlayerID string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.PlayerID == "" {
		return fmt.Sprintf("invalid player pool: %s", e.Reason)
	}
	return fmt.Sprintf("invalid player %s: %s", e.PlayerID, e.Reason)
}

// InfeasibleError reports that the pool cannot fill every roster slot.
// Short names the positions (or position group) lacking eligible players.
type InfeasibleError struct {
	TeamID string
	Short  []models.Position
}

func (e *InfeasibleError) Error() string {
	tags := make([]string, len(e.Short))
	for i, pos := range e.Short {
		tags[i] = string(pos)
	}
	return fmt.Sprintf("team %s: not enough eligible players for positions %s", e.TeamID, strings.Join(tags, ","))
}

// IsInfeasible reports whether err wraps an InfeasibleError.
func IsInfeasible(err error) bool {
	var infeasible *InfeasibleError
	return errors.As(err, &infeasible)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
