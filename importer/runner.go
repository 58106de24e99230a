package importer

import (
	"context"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/sirupsen/logrus"
)

// RunJobById claims and executes one specific job, used by the Pub/Sub push
// path. A job already taken by another worker is left alone.
func (imp *Importer) RunJobById(ctx context.Context, id int) error {
	db := config.GetDB()
	now := time.Now().UTC()
	workerId := "push-" + now.Format("20060102-150405.000")

	res := db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ? AND status IN ?", id, []string{models.SyncJobStatusPending, models.SyncJobStatusFailed}).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Updates(map[string]interface{}{
			"status":    models.SyncJobStatusProcessing,
			"locked_at": now,
			"locked_by": workerId,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	job, err := models.GetSyncJob(ctx, id)
	if err != nil {
		return err
	}
	imp.FinishJob(ctx, job, imp.Process(ctx, job))
	return nil
}

// FinishJob records a job outcome. Mapping errors count as success (the
// remote data itself is the problem), consistency errors go straight to
// DEAD, anything else schedules a retry on the fixed delay until the budget
// runs out.
func (imp *Importer) FinishJob(ctx context.Context, job *models.SyncJob, procErr error) {
	// Bookkeeping must land even when the worker's context was canceled by a
	// shutdown mid-job; otherwise the row stays PROCESSING until the stale
	// lock window reclaims it.
	ctx = context.WithoutCancel(ctx)
	db := config.GetDB()
	now := time.Now().UTC()

	if procErr == nil || IsMappingError(procErr) {
		updates := map[string]interface{}{
			"status":       models.SyncJobStatusSucceeded,
			"processed_at": now,
			"locked_at":    nil,
			"locked_by":    nil,
		}
		if procErr != nil {
			msg := procErr.Error()
			updates["last_error"] = &msg
			imp.logger.WithFields(logrus.Fields{
				"module":   "importer",
				"jobId":    job.ID,
				"domain":   job.Domain,
				"remoteId": job.RemoteId,
			}).Error("record skipped: " + msg)
		}
		if err := db.WithContext(ctx).Model(&models.SyncJob{}).
			Where("id = ?", job.ID).Updates(updates).Error; err != nil {
			imp.logger.WithFields(logrus.Fields{
				"module": "importer",
				"jobId":  job.ID,
			}).Error("job success bookkeeping failed: " + err.Error())
		}
		return
	}

	msg := procErr.Error()
	attempts := job.Attempts + 1
	status := models.SyncJobStatusFailed
	var nextAttemptAt *time.Time

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = models.SyncJobMaxAttempts
	}

	switch {
	case IsConsistencyError(procErr):
		status = models.SyncJobStatusDead
	case attempts >= maxAttempts:
		status = models.SyncJobStatusDead
	default:
		t := now.Add(models.SyncJobRetryDelay)
		nextAttemptAt = &t
	}

	if status == models.SyncJobStatusDead {
		imp.logger.WithFields(logrus.Fields{
			"module":   "importer",
			"jobId":    job.ID,
			"domain":   job.Domain,
			"remoteId": job.RemoteId,
			"attempts": attempts,
		}).Error("job abandoned: " + msg)
	} else {
		imp.logger.WithFields(logrus.Fields{
			"module":   "importer",
			"jobId":    job.ID,
			"domain":   job.Domain,
			"remoteId": job.RemoteId,
			"attempts": attempts,
		}).Warn("job failed; retry scheduled: " + msg)
	}

	if err := db.WithContext(ctx).Model(&models.SyncJob{}).
		Where("id = ?", job.ID).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      &msg,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error; err != nil {
		imp.logger.WithFields(logrus.Fields{
			"module": "importer",
			"jobId":  job.ID,
		}).Error("job failure bookkeeping failed: " + err.Error())
	}
}
