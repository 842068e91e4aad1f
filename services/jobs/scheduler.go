package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradeops_app_go/config"
	"tradeops_app_go/models"
	"tradeops_app_go/services"
	"tradeops_app_go/services/docgen"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartScheduler registers the housekeeping jobs and starts the cron runner.
// Callers stop it on shutdown.
func StartScheduler(database *gorm.DB, storage services.StorageProvider, cfg *config.Config) (*cron.Cron, error) {
	log := zap.L().Named("jobs")
	c := cron.New(cron.WithLocation(time.UTC))

	// Conversions that crashed the process leave their scratch dirs behind
	staleAfter := 2*cfg.ConversionTimeout + time.Minute
	if _, err := c.AddFunc("@every 30m", func() {
		removed, err := SweepStaleJobDirs(cfg.TempDir, staleAfter, time.Now())
		if err != nil {
			log.Warn("temp sweep failed", zap.Error(err))
			return
		}
		if removed > 0 {
			log.Info("removed stale conversion dirs", zap.Int("count", removed))
		}
	}); err != nil {
		return nil, err
	}

	if cfg.ArchiveRetentionDays > 0 {
		retention := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
		if _, err := c.AddFunc("0 3 * * *", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			pruned, err := PruneArchivedDocuments(ctx, database, storage, time.Now().Add(-retention))
			if err != nil {
				log.Error("archive pruning failed", zap.Int("pruned", pruned), zap.Error(err))
				return
			}
			log.Info("archive pruning completed", zap.Int("pruned", pruned))
		}); err != nil {
			return nil, err
		}
	}

	c.Start()
	log.Info("scheduler started", zap.Int("jobs", len(c.Entries())))
	return c, nil
}

// SweepStaleJobDirs removes conversion scratch dirs under tempDir last modified before now-olderThan
func SweepStaleJobDirs(tempDir string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), docgen.JobDirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(tempDir, entry.Name())); err != nil {
			zap.L().Named("jobs").Warn("failed to remove stale dir", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// PruneArchivedDocuments deletes archived documents created before cutoff, object first then row
func PruneArchivedDocuments(ctx context.Context, database *gorm.DB, storage services.StorageProvider, cutoff time.Time) (int, error) {
	var docs []models.GeneratedDocument
	if err := database.WithContext(ctx).Where("created_at < ?", cutoff).Order("created_at ASC").Find(&docs).Error; err != nil {
		return 0, err
	}

	pruned := 0
	for _, doc := range docs {
		if err := storage.Delete(ctx, doc.FilePath); err != nil {
			// Keep the row so the next run retries
			zap.L().Named("jobs").Warn("failed to delete archived object", zap.String("key", doc.FilePath), zap.Error(err))
			continue
		}
		if err := database.WithContext(ctx).Unscoped().Delete(&doc).Error; err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
