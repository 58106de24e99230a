package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/importer"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// JobDirectProcessor drains the sync job table without Pub/Sub. It runs as
// a safety net even when push delivery is configured: a misdelivered push
// leaves the row PENDING and this loop picks it up.
type JobDirectProcessor struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Importer  *importer.Importer
	WorkerID  string
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewJobDirectProcessor(db *gorm.DB, logger *logrus.Logger, imp *importer.Importer) *JobDirectProcessor {
	return &JobDirectProcessor{
		DB:        db,
		Logger:    logger,
		Importer:  imp,
		WorkerID:  "direct-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  2 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

func shouldRunDirectJobProcessor() bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_DIRECT_PROCESSING")))
	if val == "true" {
		return true
	}
	if val == "false" {
		return false
	}
	return true
}

func (p *JobDirectProcessor) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

func (p *JobDirectProcessor) processOnce(ctx context.Context) {
	claimed, err := models.ClaimSyncJobs(ctx, p.DB, p.WorkerID, p.BatchSize, p.LockTTL)
	if err != nil {
		p.Logger.WithError(err).Error("sync job claim failed")
		return
	}
	for i := range claimed {
		job := claimed[i]
		p.Importer.FinishJob(ctx, &job, p.Importer.Process(ctx, &job))
	}
}

func intFromEnv(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
