package main

import (
	"context"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/sirupsen/logrus"
)

// requeueDeadJobs puts abandoned jobs back on the queue with a fresh retry
// budget. Operators run this after fixing whatever drove the jobs to DEAD;
// it is wired to SYNC_REQUEUE_DEAD_ON_START for deploy-time recovery.
func requeueDeadJobs(ctx context.Context, logger *logrus.Logger, domain string) int64 {
	db := config.GetDB()
	now := time.Now().UTC()

	q := db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("status = ?", models.SyncJobStatusDead)
	if domain != "" {
		q = q.Where("domain = ?", domain)
	}

	res := q.Updates(map[string]interface{}{
		"status":          models.SyncJobStatusPending,
		"attempts":        0,
		"next_attempt_at": now,
		"locked_at":       nil,
		"locked_by":       nil,
	})
	if res.Error != nil {
		logger.WithFields(logrus.Fields{
			"field":  "requeueDeadJobs",
			"domain": domain,
		}).Error("dead job requeue failed: " + res.Error.Error())
		return 0
	}
	if res.RowsAffected > 0 {
		logger.WithFields(logrus.Fields{
			"field":    "requeueDeadJobs",
			"domain":   domain,
			"requeued": res.RowsAffected,
		}).Info("dead jobs returned to queue")
	}
	return res.RowsAffected
}
