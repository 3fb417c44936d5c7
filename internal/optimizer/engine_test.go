package optimizer

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conosleague/roster-optimizer/internal/models"
)

func newPlayer(id string, fpts float64, positions ...models.Position) models.Player {
	return models.Player{
		ID:        id,
		Name:      "Player " + id,
		NHLTeam:   "BOS",
		Positions: positions,
		FPts:      fpts,
	}
}

// fullSingleEligiblePool builds exactly one player per roster slot, all
// single-eligible, with distinct FPts values.
func fullSingleEligiblePool() []models.Player {
	var players []models.Player
	fpts := 100.0
	id := 0
	for _, pos := range models.AllPositions {
		for i := 0; i < models.DefaultRequirements()[pos]; i++ {
			id++
			players = append(players, newPlayer(fmt.Sprintf("p%02d", id), fpts, pos))
			fpts -= 2.5
		}
	}
	return players
}

// bruteForceBest enumerates every feasible assignment and returns the
// maximum total. Only usable on small pools.
func bruteForceBest(players []models.Player, req models.PositionRequirements) (float64, bool) {
	remaining := make(map[models.Position]int, len(req))
	for pos, count := range req {
		remaining[pos] = count
	}
	slots := req.TotalSlots()

	best := 0.0
	found := false
	var rec func(i, used int, total float64)
	rec = func(i, used int, total float64) {
		if used == slots {
			if !found || total > best {
				best = total
				found = true
			}
			return
		}
		if i == len(players) {
			return
		}
		rec(i+1, used, total)
		for _, pos := range players[i].Positions {
			if remaining[pos] > 0 {
				remaining[pos]--
				rec(i+1, used+1, total+players[i].FPts)
				remaining[pos]++
			}
		}
	}
	rec(0, 0, 0)
	return best, found
}

func sumFPts(players []models.Player) float64 {
	total := 0.0
	for _, p := range players {
		total += p.FPts
	}
	return total
}

func TestOptimizeSelectsWholePoolWhenNoChoiceExists(t *testing.T) {
	players := fullSingleEligiblePool()
	req := models.DefaultRequirements()

	result, err := Optimize("AAA", players, req, Config{})
	require.NoError(t, err)

	assert.Equal(t, models.StatusOptimal, result.Status)
	assert.Equal(t, req.TotalSlots(), result.SelectedCount())
	assert.InDelta(t, sumFPts(players), result.TotalFPts, 1e-9)
	assert.Empty(t, result.Unassigned)
	for pos, count := range req {
		assert.Len(t, result.Assignment[pos], count, "position %s", pos)
	}
}

func TestOptimizeFillsEveryQuotaExactly(t *testing.T) {
	players := fullSingleEligiblePool()
	// Extra depth at every position plus some dual-eligible forwards.
	players = append(players,
		newPlayer("x1", 55.5, models.PositionCenter, models.PositionLeftWing),
		newPlayer("x2", 48.1, models.PositionRightWing, models.PositionLeftWing),
		newPlayer("x3", 12.0, models.PositionDefense),
		newPlayer("x4", 3.3, models.PositionGoalie),
	)
	req := models.DefaultRequirements()

	result, err := Optimize("BBB", players, req, Config{})
	require.NoError(t, err)

	for pos, count := range req {
		assert.Len(t, result.Assignment[pos], count, "position %s", pos)
	}

	// Exclusivity: nobody fills two slots.
	seen := make(map[string]bool)
	for _, assigned := range result.Assignment {
		for _, p := range assigned {
			assert.False(t, seen[p.ID], "player %s assigned twice", p.ID)
			seen[p.ID] = true
		}
	}

	// Eligibility: every assignment is legal.
	for pos, assigned := range result.Assignment {
		for _, p := range assigned {
			assert.True(t, p.CanPlay(pos), "player %s cannot play %s", p.ID, pos)
		}
	}

	// Internal consistency: total equals the sum of the selected FPts.
	selectedTotal := 0.0
	for _, assigned := range result.Assignment {
		selectedTotal += sumFPts(assigned)
	}
	assert.InDelta(t, selectedTotal, result.TotalFPts, 1e-9)
}

func TestOptimizeDualEligibleDisplacesWeakerSlot(t *testing.T) {
	players := fullSingleEligiblePool()

	// The dual C/LW player outscores the weakest player in both pools.
	// The weakest LW (fullSingleEligiblePool gives LW 85.0, 82.5, 80.0 and
	// C 100.0, 97.5, 95.0) is cheaper to displace than the weakest C, so
	// the optimum benches the 80.0 LW, not the 95.0 C.
	dual := newPlayer("dual", 90.0, models.PositionCenter, models.PositionLeftWing)
	players = append(players, dual)
	req := models.DefaultRequirements()

	result, err := Optimize("CCC", players, req, Config{})
	require.NoError(t, err)

	assert.True(t, result.HasPlayer("dual"))
	assert.True(t, containsPlayer(result.Assignment[models.PositionLeftWing], "dual"),
		"dual player should land in LW as the cheaper displacement")

	expected, found := bruteForceBest(players, req)
	require.True(t, found)
	assert.InDelta(t, expected, result.TotalFPts, 1e-9)

	// The displaced 80.0 LW sits on the bench.
	require.Len(t, result.Unassigned, 1)
	assert.InDelta(t, 80.0, result.Unassigned[0].FPts, 1e-9)
}

func containsPlayer(players []models.Player, id string) bool {
	for _, p := range players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func TestOptimizeMatchesBruteForceOnRandomPools(t *testing.T) {
	req := models.PositionRequirements{
		models.PositionCenter:    1,
		models.PositionRightWing: 1,
		models.PositionLeftWing:  1,
		models.PositionDefense:   2,
		models.PositionGoalie:    1,
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		n := 6 + rng.Intn(6)
		players := make([]models.Player, 0, n)
		for i := 0; i < n; i++ {
			positions := []models.Position{models.AllPositions[rng.Intn(len(models.AllPositions))]}
			if rng.Intn(3) == 0 {
				extra := models.AllPositions[rng.Intn(len(models.AllPositions))]
				if extra != positions[0] {
					positions = append(positions, extra)
				}
			}
			players = append(players, newPlayer(fmt.Sprintf("t%d-p%d", trial, i), float64(rng.Intn(800))/10, positions...))
		}

		expected, feasible := bruteForceBest(players, req)
		result, err := Optimize("RND", players, req, Config{})
		if !feasible {
			require.Error(t, err, "trial %d should be infeasible", trial)
			assert.True(t, IsInfeasible(err), "trial %d: %v", trial, err)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		assert.InDelta(t, expected, result.TotalFPts, 1e-9, "trial %d", trial)
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	players := fullSingleEligiblePool()
	players = append(players,
		newPlayer("d1", 90.0, models.PositionCenter, models.PositionLeftWing),
		newPlayer("d2", 90.0, models.PositionLeftWing, models.PositionRightWing),
	)
	req := models.DefaultRequirements()

	first, err := Optimize("DDD", players, req, Config{})
	require.NoError(t, err)
	second, err := Optimize("DDD", players, req, Config{})
	require.NoError(t, err)

	assert.Equal(t, first.TotalFPts, second.TotalFPts)
	assert.Equal(t, first.Assignment, second.Assignment)
}

func TestOptimizeInfeasibleWhenGoaliesShort(t *testing.T) {
	players := fullSingleEligiblePool()
	// Remove one goalie: quota is 3, only 2 remain. Surplus elsewhere
	// must not mask the shortage.
	trimmed := make([]models.Player, 0, len(players))
	goalies := 0
	for _, p := range players {
		if p.CanPlay(models.PositionGoalie) {
			goalies++
			if goalies == 3 {
				continue
			}
		}
		trimmed = append(trimmed, p)
	}
	trimmed = append(trimmed, newPlayer("extraC", 99.0, models.PositionCenter))

	_, err := Optimize("EEE", trimmed, models.DefaultRequirements(), Config{})
	require.Error(t, err)
	require.True(t, IsInfeasible(err))

	var infeasible *InfeasibleError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, []models.Position{models.PositionGoalie}, infeasible.Short)
}

func TestOptimizeInfeasibleAcrossOverlappingPositions(t *testing.T) {
	// Three players share eligibility over C and RW, but the two quotas
	// together need four bodies. No single position is short on its own.
	players := []models.Player{
		newPlayer("a", 10, models.PositionCenter, models.PositionRightWing),
		newPlayer("b", 9, models.PositionCenter, models.PositionRightWing),
		newPlayer("c", 8, models.PositionCenter, models.PositionRightWing),
	}
	req := models.PositionRequirements{
		models.PositionCenter:    2,
		models.PositionRightWing: 2,
	}

	_, err := Optimize("FFF", players, req, Config{})
	require.Error(t, err)
	assert.True(t, IsInfeasible(err))
}

func TestOptimizeValidationErrors(t *testing.T) {
	req := models.DefaultRequirements()

	tests := []struct {
		name    string
		players []models.Player
	}{
		{"empty pool", nil},
		{"empty eligibility", append(fullSingleEligiblePool(), models.Player{ID: "bad", FPts: 5})},
		{"negative fpts", append(fullSingleEligiblePool(), newPlayer("bad", -1, models.PositionCenter))},
		{"nan fpts", append(fullSingleEligiblePool(), newPlayer("bad", math.NaN(), models.PositionCenter))},
		{"duplicate id", append(fullSingleEligiblePool(), newPlayer("p01", 5, models.PositionCenter))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Optimize("GGG", tt.players, req, Config{})
			require.Error(t, err)
			assert.True(t, IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestOptimizeBudgetReturnsBestEffort(t *testing.T) {
	players := []models.Player{
		newPlayer("a", 10, models.PositionCenter),
		newPlayer("b", 9, models.PositionCenter),
	}
	req := models.PositionRequirements{models.PositionCenter: 1}

	// One node is enough to reach the first leaf (the top-sorted player
	// assigned to C) but not to prove it optimal.
	result, err := Optimize("HHH", players, req, Config{MaxNodes: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StatusBestEffort, result.Status)
	assert.InDelta(t, 10.0, result.TotalFPts, 1e-9)
}

func TestOptimizeBudgetWithoutIncumbentFails(t *testing.T) {
	players := fullSingleEligiblePool()

	// A 16-slot roster cannot reach any leaf within a single node.
	_, err := Optimize("III", players, models.DefaultRequirements(), Config{MaxNodes: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestOptimizeTimeoutBudget(t *testing.T) {
	players := fullSingleEligiblePool()
	for i := 0; i < 10; i++ {
		players = append(players, newPlayer(fmt.Sprintf("m%d", i), 50+float64(i),
			models.PositionCenter, models.PositionLeftWing))
	}

	result, err := Optimize("JJJ", players, models.DefaultRequirements(), Config{Timeout: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOptimal, result.Status)
}
