package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/conosleague/roster-optimizer/internal/models"
	"github.com/conosleague/roster-optimizer/pkg/database"
)

// CleanupService purges optimization runs past the retention window on a
// cron schedule.
type CleanupService struct {
	db        *database.DB
	retention time.Duration
	schedule  string
	cron      *cron.Cron
}

func NewCleanupService(db *database.DB, retention time.Duration, schedule string) *CleanupService {
	return &CleanupService{
		db:        db,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
	}
}

func (s *CleanupService) Start() error {
	if s.retention <= 0 {
		logrus.Info("Run retention disabled, cleanup job not scheduled")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.PurgeExpired(); err != nil {
			logrus.Errorf("Run cleanup failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cleanup job: %w", err)
	}

	s.cron.Start()
	logrus.Infof("Run cleanup scheduled (%s, retention %s)", s.schedule, s.retention)
	return nil
}

func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// PurgeExpired deletes runs older than the retention window together with
// their team rosters.
func (s *CleanupService) PurgeExpired() error {
	cutoff := time.Now().UTC().Add(-s.retention)

	var expired []models.OptimizationRun
	if err := s.db.Where("created_at < ?", cutoff).Find(&expired).Error; err != nil {
		return fmt.Errorf("failed to find expired runs: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	ids := make([]string, len(expired))
	for i, run := range expired {
		ids[i] = run.ID
	}

	if err := s.db.Where("run_id IN ?", ids).Delete(&models.TeamRoster{}).Error; err != nil {
		return fmt.Errorf("failed to delete expired rosters: %w", err)
	}
	if err := s.db.Where("id IN ?", ids).Delete(&models.OptimizationRun{}).Error; err != nil {
		return fmt.Errorf("failed to delete expired runs: %w", err)
	}

	logrus.Infof("Purged %d expired optimization runs", len(expired))
	return nil
}
