package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/conosleague/roster-optimizer/internal/models"
	"github.com/conosleague/roster-optimizer/internal/optimizer"
	"github.com/conosleague/roster-optimizer/internal/providers"
	"github.com/conosleague/roster-optimizer/pkg/config"
	"github.com/conosleague/roster-optimizer/pkg/database"
)

// RosterService runs the optimization pass over an uploaded league pool and
// persists the outcome. Teams are optimized concurrently; each team's search
// carries its own state, so the only coordination is collecting results.
type RosterService struct {
	db       *database.DB
	cache    *CacheService
	progress *ProgressHub
	cfg      *config.Config
}

func NewRosterService(db *database.DB, cache *CacheService, progress *ProgressHub, cfg *config.Config) *RosterService {
	return &RosterService{
		db:       db,
		cache:    cache,
		progress: progress,
		cfg:      cfg,
	}
}

// RunSummary is what the upload endpoint returns: the stored run plus the
// cross-team standings.
type RunSummary struct {
	Run     models.OptimizationRun `json:"run"`
	Summary optimizer.Summary      `json:"summary"`
}

// RunOptimization optimizes every team in the pool against the league's
// fixed roster shape. One team's infeasibility or budget expiry never stops
// the others.
func (s *RosterService) RunOptimization(ctx context.Context, fileName string, pool *providers.LeaguePool) (*RunSummary, error) {
	runID := uuid.NewString()
	teamIDs := pool.TeamIDs()
	requirements := models.DefaultRequirements()

	searchCfg := optimizer.Config{
		MaxNodes: s.cfg.OptimizerMaxNodes,
		Timeout:  s.cfg.OptimizerTimeout,
	}

	logrus.WithFields(logrus.Fields{
		"run_id": runID,
		"teams":  len(teamIDs),
		"rows":   pool.PlayerRows,
	}).Info("Starting optimization run")

	outcomes := make([]optimizer.TeamOutcome, len(teamIDs))
	var done int
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.workerCount())
	for i, teamID := range teamIDs {
		i, teamID := i, teamID
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := optimizer.Optimize(teamID, pool.Teams[teamID], requirements, searchCfg)
			outcomes[i] = optimizer.TeamOutcome{TeamID: teamID, Result: result, Err: err}

			mu.Lock()
			done++
			current := done
			mu.Unlock()

			status := models.StatusFailed
			if result != nil {
				status = result.Status
			} else if optimizer.IsInfeasible(err) {
				status = models.StatusInfeasible
			}
			if err != nil {
				logrus.WithFields(logrus.Fields{"run_id": runID, "team": teamID}).
					Warnf("Team optimization did not produce a roster: %v", err)
			}
			if s.progress != nil {
				s.progress.Publish(ProgressEvent{
					RunID:   runID,
					TeamID:  teamID,
					Current: current,
					Total:   len(teamIDs),
					Status:  status,
				})
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("optimization run cancelled: %w", err)
	}

	summary := optimizer.Aggregate(outcomes)

	run := models.OptimizationRun{
		ID:         runID,
		FileName:   fileName,
		TeamCount:  len(teamIDs),
		PlayerRows: pool.PlayerRows,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.persist(&run, outcomes); err != nil {
		return nil, err
	}

	runSummary := &RunSummary{Run: run, Summary: summary}
	if err := s.cache.Set(ctx, RunSummaryCacheKey(runID), runSummary, s.cfg.SummaryCacheTTL); err != nil {
		logrus.Warnf("Failed to cache run summary: %v", err)
	}

	logrus.WithField("run_id", runID).Info("Optimization run complete")
	return runSummary, nil
}

func (s *RosterService) workerCount() int {
	if s.cfg.OptimizerWorkers > 0 {
		return s.cfg.OptimizerWorkers
	}
	return 1
}

func (s *RosterService) persist(run *models.OptimizationRun, outcomes []optimizer.TeamOutcome) error {
	rosters := make([]models.TeamRoster, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			status := models.StatusFailed
			if optimizer.IsInfeasible(outcome.Err) {
				status = models.StatusInfeasible
			}
			rosters = append(rosters, models.TeamRoster{
				RunID:  run.ID,
				TeamID: outcome.TeamID,
				Status: status,
				Error:  outcome.Err.Error(),
			})
			continue
		}
		roster, err := models.NewTeamRoster(run.ID, outcome.Result)
		if err != nil {
			return err
		}
		rosters = append(rosters, *roster)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		if err := tx.Create(&rosters).Error; err != nil {
			return fmt.Errorf("failed to save team rosters: %w", err)
		}
		return nil
	})
}

// GetRunSummary rebuilds the standings for a stored run, via cache when warm.
func (s *RosterService) GetRunSummary(ctx context.Context, runID string) (*RunSummary, error) {
	var cached RunSummary
	if err := s.cache.Get(ctx, RunSummaryCacheKey(runID), &cached); err == nil {
		return &cached, nil
	}

	run, rosters, err := s.loadRun(runID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]optimizer.TeamOutcome, 0, len(rosters))
	for i := range rosters {
		tr := &rosters[i]
		if tr.Error != "" {
			outcomes = append(outcomes, optimizer.TeamOutcome{
				TeamID: tr.TeamID,
				Err:    storedTeamError{status: tr.Status, message: tr.Error},
			})
			continue
		}
		result, err := tr.RosterResult()
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, optimizer.TeamOutcome{TeamID: tr.TeamID, Result: result})
	}

	summary := &RunSummary{Run: *run, Summary: optimizer.Aggregate(outcomes)}
	// Statuses recorded at run time are authoritative; Aggregate cannot
	// distinguish infeasible from failed for stored errors.
	for i, row := range summary.Summary.Rows {
		for j := range rosters {
			if rosters[j].TeamID == row.TeamID && rosters[j].Error != "" {
				summary.Summary.Rows[i].Status = rosters[j].Status
			}
		}
	}

	if err := s.cache.Set(ctx, RunSummaryCacheKey(runID), summary, s.cfg.SummaryCacheTTL); err != nil {
		logrus.Warnf("Failed to cache run summary: %v", err)
	}
	return summary, nil
}

// GetTeamRoster returns the detailed breakdown for one team in a run.
func (s *RosterService) GetTeamRoster(ctx context.Context, runID, teamID string) (*models.RosterResult, error) {
	var tr models.TeamRoster
	err := s.db.Where("run_id = ? AND team_id = ?", runID, teamID).First(&tr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("team %s in run %s: %w", teamID, runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to load team roster: %w", err)
	}
	if tr.Error != "" {
		return &models.RosterResult{TeamID: tr.TeamID, Status: tr.Status}, nil
	}
	return tr.RosterResult()
}

// ListRuns returns stored runs, newest first.
func (s *RosterService) ListRuns(limit int) ([]models.OptimizationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.OptimizationRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *RosterService) loadRun(runID string) (*models.OptimizationRun, []models.TeamRoster, error) {
	var run models.OptimizationRun
	if err := s.db.First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, nil, fmt.Errorf("failed to load run: %w", err)
	}

	var rosters []models.TeamRoster
	if err := s.db.Where("run_id = ?", runID).Order("team_id ASC").Find(&rosters).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load team rosters: %w", err)
	}
	return &run, rosters, nil
}

// ErrRunNotFound marks lookups for runs or rosters that do not exist.
var ErrRunNotFound = errors.New("run not found")

// storedTeamError resurfaces a persisted per-team failure with its
// original status.
type storedTeamError struct {
	status  models.ResultStatus
	message string
}

func (e storedTeamError) Error() string { return e.message }
