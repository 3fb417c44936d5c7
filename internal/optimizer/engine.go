package optimizer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/conosleague/roster-optimizer/internal/models"
)

// Config bounds a single team's search. The zero value means exhaustive:
// the returned roster is proven optimal.
type Config struct {
	// MaxNodes caps the number of branch decisions explored (0 = unlimited).
	MaxNodes int64
	// Timeout caps wall-clock search time (0 = unlimited).
	Timeout time.Duration
}

// timeoutCheckInterval controls how often the deadline is polled; checking
// the clock on every node is measurably slower than the search itself.
const timeoutCheckInterval = 1024

// frame is one level of the explicit backtracking stack: the player being
// decided, the branches still to try, and the branch currently applied.
type frame struct {
	idx     int
	next    int
	applied int8   // position index currently applied, -1 if none
	branch  []int8 // eligible position indexes with open capacity, then -1 (skip)
}

// Optimize finds the maximum-total-FPts assignment of players to roster
// slots for one team. Every selected player fills exactly one slot it is
// eligible for and every quota is met exactly. The search is a best-first
// branch and bound over players sorted by FPts descending (ties by ID
// ascending), so repeated calls with the same pool produce the same result.
func Optimize(teamID string, players []models.Player, req models.PositionRequirements, cfg Config) (*models.RosterResult, error) {
	started := time.Now()

	if err := validatePool(players, req); err != nil {
		return nil, err
	}
	if err := checkFeasibility(teamID, players, req); err != nil {
		return nil, err
	}

	// Work on a sorted copy; the input pool is immutable to callers.
	pool := make([]models.Player, len(players))
	copy(pool, players)
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].FPts != pool[j].FPts {
			return pool[i].FPts > pool[j].FPts
		}
		return pool[i].ID < pool[j].ID
	})

	n := len(pool)
	posIndex := make(map[models.Position]int8, len(models.AllPositions))
	for i, pos := range models.AllPositions {
		posIndex[pos] = int8(i)
	}

	remaining := make([]int, len(models.AllPositions))
	slotsLeft := 0
	for pos, count := range req {
		remaining[posIndex[pos]] = count
		slotsLeft += count
	}

	// prefix[i] is the FPts sum of the top i players; since the pool is
	// sorted descending, prefix[i+k]-prefix[i] bounds what any k picks
	// from pool[i:] can still add.
	prefix := make([]float64, n+1)
	for i, p := range pool {
		prefix[i+1] = prefix[i] + p.FPts
	}

	// suffix[i][pi] counts players in pool[i:] eligible for position pi,
	// so a branch that starves a quota is cut as soon as it happens.
	suffix := make([][]int, n+1)
	suffix[n] = make([]int, len(models.AllPositions))
	for i := n - 1; i >= 0; i-- {
		counts := make([]int, len(models.AllPositions))
		copy(counts, suffix[i+1])
		for _, pos := range pool[i].Positions {
			counts[posIndex[pos]]++
		}
		suffix[i] = counts
	}

	branchesFor := func(idx int) []int8 {
		branch := make([]int8, 0, len(pool[idx].Positions)+1)
		for _, pos := range models.AllPositions {
			pi := posIndex[pos]
			if remaining[pi] > 0 && pool[idx].CanPlay(pos) {
				branch = append(branch, pi)
			}
		}
		return append(branch, -1)
	}

	assigned := make([]int8, n)
	bestAssigned := make([]int8, n)
	for i := range assigned {
		assigned[i] = -1
	}
	bestTotal := 0.0
	bestFound := false
	running := 0.0

	var deadline time.Time
	if cfg.Timeout > 0 {
		deadline = started.Add(cfg.Timeout)
	}
	var nodes int64
	budgetHit := false

	stack := make([]frame, 0, n+1)
	stack = append(stack, frame{idx: 0, applied: -1, branch: branchesFor(0)})

	for len(stack) > 0 {
		f := &stack[len(stack)-1]

		// Undo the branch applied on the previous visit to this frame.
		if f.applied >= 0 {
			remaining[f.applied]++
			slotsLeft++
			running -= pool[f.idx].FPts
			assigned[f.idx] = -1
			f.applied = -1
		}

		if f.next >= len(f.branch) {
			stack = stack[:len(stack)-1]
			continue
		}
		b := f.branch[f.next]
		f.next++

		nodes++
		if cfg.MaxNodes > 0 && nodes > cfg.MaxNodes {
			budgetHit = true
			break
		}
		if cfg.Timeout > 0 && nodes%timeoutCheckInterval == 0 && time.Now().After(deadline) {
			budgetHit = true
			break
		}

		if b >= 0 {
			remaining[b]--
			slotsLeft--
			running += pool[f.idx].FPts
			assigned[f.idx] = b
			f.applied = b

			if slotsLeft == 0 {
				// Success leaf. Strictly greater keeps the first-found
				// maximum stable under the fixed sort order.
				if !bestFound || running > bestTotal {
					bestTotal = running
					bestFound = true
					copy(bestAssigned, assigned)
				}
				continue
			}
		}

		child := f.idx + 1
		if n-child < slotsLeft {
			continue
		}
		if bestFound && running+(prefix[child+slotsLeft]-prefix[child]) <= bestTotal {
			continue
		}
		starved := false
		for pi, need := range remaining {
			if need > suffix[child][pi] {
				starved = true
				break
			}
		}
		if starved {
			continue
		}

		stack = append(stack, frame{idx: child, applied: -1, branch: branchesFor(child)})
	}

	if !bestFound {
		// The feasibility pre-check guarantees an assignment exists, so
		// the only way to get here is an exhausted budget.
		return nil, fmt.Errorf("team %s: %w", teamID, ErrBudgetExceeded)
	}

	result := &models.RosterResult{
		TeamID:        teamID,
		Status:        models.StatusOptimal,
		Assignment:    make(map[models.Position][]models.Player, len(req)),
		NodesExplored: nodes,
		ElapsedMs:     time.Since(started).Milliseconds(),
	}
	if budgetHit {
		result.Status = models.StatusBestEffort
	}

	// Recompute the total from the selection itself so the reported value
	// is exactly the sum of the selected players' FPts.
	total := 0.0
	for i, b := range bestAssigned {
		if b < 0 {
			result.Unassigned = append(result.Unassigned, pool[i])
			continue
		}
		pos := models.AllPositions[b]
		result.Assignment[pos] = append(result.Assignment[pos], pool[i])
		total += pool[i].FPts
	}
	result.TotalFPts = total

	return result, nil
}

func validatePool(players []models.Player, req models.PositionRequirements) error {
	if len(players) == 0 {
		return &ValidationError{Reason: "player pool is empty"}
	}
	for pos, count := range req {
		if !pos.IsValid() {
			return &ValidationError{Reason: fmt.Sprintf("unknown position %q in requirements", pos)}
		}
		if count < 0 {
			return &ValidationError{Reason: fmt.Sprintf("negative quota %d for position %s", count, pos)}
		}
	}
	if req.TotalSlots() == 0 {
		return &ValidationError{Reason: "requirements define no roster slots"}
	}

	seen := make(map[string]bool, len(players))
	for _, p := range players {
		if p.ID == "" {
			return &ValidationError{PlayerID: p.ID, Reason: "missing player id"}
		}
		if seen[p.ID] {
			return &ValidationError{PlayerID: p.ID, Reason: "duplicate player id"}
		}
		seen[p.ID] = true
		if len(p.Positions) == 0 {
			return &ValidationError{PlayerID: p.ID, Reason: "empty eligibility set"}
		}
		for _, pos := range p.Positions {
			if !pos.IsValid() {
				return &ValidationError{PlayerID: p.ID, Reason: fmt.Sprintf("unknown position %q", pos)}
			}
		}
		if math.IsNaN(p.FPts) || math.IsInf(p.FPts, 0) {
			return &ValidationError{PlayerID: p.ID, Reason: "FPts is not a finite number"}
		}
		if p.FPts < 0 {
			return &ValidationError{PlayerID: p.ID, Reason: fmt.Sprintf("negative FPts %.2f", p.FPts)}
		}
	}
	return nil
}

// checkFeasibility verifies Hall's condition for every subset of positions:
// an assignment filling all quotas exists iff, for each subset, the players
// eligible for at least one position in it cover the subset's total quota.
// Five positions means 31 subsets, so the exact check is cheap.
func checkFeasibility(teamID string, players []models.Player, req models.PositionRequirements) error {
	posBit := make(map[models.Position]uint, len(models.AllPositions))
	for i, pos := range models.AllPositions {
		posBit[pos] = 1 << uint(i)
	}

	eligibility := make([]uint, len(players))
	for i, p := range players {
		for _, pos := range p.Positions {
			eligibility[i] |= posBit[pos]
		}
	}

	var failing uint
	failingBits := len(models.AllPositions) + 1
	for mask := uint(1); mask < 1<<uint(len(models.AllPositions)); mask++ {
		need := 0
		for _, pos := range models.AllPositions {
			if mask&posBit[pos] != 0 {
				need += req[pos]
			}
		}
		if need == 0 {
			continue
		}
		have := 0
		for _, bits := range eligibility {
			if bits&mask != 0 {
				have++
			}
		}
		if have < need {
			// Prefer the smallest failing subset for a readable error.
			if bits := popCount(mask); bits < failingBits {
				failing = mask
				failingBits = bits
			}
		}
	}

	if failing == 0 {
		return nil
	}
	short := make([]models.Position, 0, failingBits)
	for _, pos := range models.AllPositions {
		if failing&posBit[pos] != 0 {
			short = append(short, pos)
		}
	}
	return &InfeasibleError{TeamID: teamID, Short: short}
}

func popCount(mask uint) int {
	count := 0
	for mask > 0 {
		count += int(mask & 1)
		mask >>= 1
	}
	return count
}
