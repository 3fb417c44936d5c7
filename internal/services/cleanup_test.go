package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conosleague/roster-optimizer/internal/models"
)

func TestPurgeExpiredDeletesOldRuns(t *testing.T) {
	db := newTestDB(t)
	service := NewCleanupService(db, 24*time.Hour, "@hourly")

	old := models.OptimizationRun{ID: "11111111-1111-1111-1111-111111111111", TeamCount: 1, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := models.OptimizationRun{ID: "22222222-2222-2222-2222-222222222222", TeamCount: 1, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&models.TeamRoster{RunID: old.ID, TeamID: "AAA", Status: models.StatusOptimal}).Error)
	require.NoError(t, db.Create(&models.TeamRoster{RunID: fresh.ID, TeamID: "AAA", Status: models.StatusOptimal}).Error)

	require.NoError(t, service.PurgeExpired())

	var runs []models.OptimizationRun
	require.NoError(t, db.Find(&runs).Error)
	require.Len(t, runs, 1)
	assert.Equal(t, fresh.ID, runs[0].ID)

	var rosters []models.TeamRoster
	require.NoError(t, db.Find(&rosters).Error)
	require.Len(t, rosters, 1)
	assert.Equal(t, fresh.ID, rosters[0].RunID)
}

func TestPurgeExpiredNoopWhenNothingExpired(t *testing.T) {
	db := newTestDB(t)
	service := NewCleanupService(db, 24*time.Hour, "@hourly")

	fresh := models.OptimizationRun{ID: "33333333-3333-3333-3333-333333333333", TeamCount: 1, CreatedAt: time.Now().UTC()}
	require.NoError(t, db.Create(&fresh).Error)

	require.NoError(t, service.PurgeExpired())

	var count int64
	require.NoError(t, db.Model(&models.OptimizationRun{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
