package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorEpoch is the modifiedSince value used before a domain has ever been
// polled. The remote API treats it as "everything".
var CursorEpoch = time.Unix(0, 0).UTC()

// SyncCursor persists the "last synced at" watermark for one domain.
// It is written only by the poller for that domain.
type SyncCursor struct {
	Domain       SyncDomain `gorm:"primary_key;size:20" json:"domain"`
	LastSyncedAt time.Time  `gorm:"not null" json:"last_synced_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

const (
	SyncJobStatusPending    = "PENDING"
	SyncJobStatusProcessing = "PROCESSING"
	SyncJobStatusSucceeded  = "SUCCEEDED"
	SyncJobStatusFailed     = "FAILED"
	SyncJobStatusDead       = "DEAD"
)

const (
	// SyncJobMaxAttempts is the retry budget for one queued unit of work.
	SyncJobMaxAttempts = 31
	// SyncJobRetryDelay is the fixed delay between attempts.
	SyncJobRetryDelay = 24 * time.Hour
)

// SyncJob is one queued, retryable unit of synchronization work for a single
// remote id. Rows are claimed with FOR UPDATE SKIP LOCKED so multiple workers
// can drain the queue in parallel.
type SyncJob struct {
	ID            int        `gorm:"primary_key" json:"id"`
	Domain        SyncDomain `gorm:"index:idx_sync_jobs_claim,priority:1;size:20;not null" json:"domain"`
	RemoteId      string     `gorm:"index;size:64;not null" json:"remote_id"`
	PayloadJSON   []byte     `gorm:"type:json" json:"payload"`
	Status        string     `gorm:"index:idx_sync_jobs_claim,priority:2;size:20;not null;default:'PENDING'" json:"status"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts   int        `gorm:"not null;default:31" json:"max_attempts"`
	NextAttemptAt *time.Time `gorm:"index" json:"next_attempt_at"`
	LastError     *string    `gorm:"type:text" json:"last_error"`
	LockedAt      *time.Time `json:"locked_at"`
	LockedBy      *string    `gorm:"size:64" json:"locked_by"`
	CorrelationId string     `gorm:"size:64" json:"correlation_id"`
	ProcessedAt   *time.Time `json:"processed_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetSyncCursor(ctx context.Context, domain SyncDomain) (time.Time, error) {
	db := config.GetDB()
	var cursor SyncCursor
	err := db.WithContext(ctx).Where("domain = ?", domain).Take(&cursor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CursorEpoch, nil
		}
		return CursorEpoch, err
	}
	return cursor.LastSyncedAt.UTC(), nil
}

// SetSyncCursor advances the domain watermark. It refuses to move the cursor
// backwards so a stale poller cannot widen an already-closed window.
func SetSyncCursor(ctx context.Context, domain SyncDomain, lastSyncedAt time.Time) error {
	db := config.GetDB()
	current, err := GetSyncCursor(ctx, domain)
	if err != nil {
		return err
	}
	if lastSyncedAt.Before(current) {
		return nil
	}
	cursor := SyncCursor{Domain: domain, LastSyncedAt: lastSyncedAt.UTC()}
	return db.WithContext(ctx).Save(&cursor).Error
}

// ResetSyncCursor clears the watermark so the next poll re-reads everything.
func ResetSyncCursor(ctx context.Context, domain SyncDomain) error {
	db := config.GetDB()
	cursor := SyncCursor{Domain: domain, LastSyncedAt: CursorEpoch}
	return db.WithContext(ctx).Save(&cursor).Error
}

func CreateSyncJob(ctx context.Context, db *gorm.DB, domain SyncDomain, remoteId string, payload []byte) (*SyncJob, error) {
	if !IsValidSyncDomain(domain) {
		return nil, errors.New("invalid sync domain")
	}
	if remoteId == "" {
		return nil, errors.New("remote id is required")
	}
	job := SyncJob{
		Domain:        domain,
		RemoteId:      remoteId,
		PayloadJSON:   payload,
		Status:        SyncJobStatusPending,
		MaxAttempts:   SyncJobMaxAttempts,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func GetSyncJob(ctx context.Context, id int) (*SyncJob, error) {
	db := config.GetDB()
	var job SyncJob
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ClaimSyncJobs locks a batch of due jobs for one worker. A PROCESSING row
// whose lock is older than lockTTL belongs to a worker that died mid-job and
// is claimed again; its retry budget is what bounds the rework.
func ClaimSyncJobs(ctx context.Context, db *gorm.DB, workerId string, batchSize int, lockTTL time.Duration) ([]SyncJob, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-lockTTL)

	var claimed []SyncJob
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("status IN ?", []string{SyncJobStatusPending, SyncJobStatusFailed, SyncJobStatusProcessing}).
			Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("id ASC").
			Limit(batchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].Status = SyncJobStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &workerId
			if err := tx.Model(&SyncJob{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"status":    SyncJobStatusProcessing,
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// PendingSyncJobCount reports queue depth per domain for the status endpoint.
func PendingSyncJobCount(ctx context.Context, domain SyncDomain) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&SyncJob{}).
		Where("domain = ? AND status IN ?", domain, []string{SyncJobStatusPending, SyncJobStatusFailed}).
		Count(&count).Error
	return count, err
}
