package importer

import (
	"context"
	"encoding/json"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/sirupsen/logrus"
)

// Queue persists sync jobs and optionally announces them on Pub/Sub so the
// push endpoint can pick them up sooner. The direct DB processor is the
// delivery guarantee either way.
type Queue struct {
	logger *logrus.Logger
}

func NewQueue(logger *logrus.Logger) *Queue {
	return &Queue{logger: logger}
}

func (q *Queue) Enqueue(ctx context.Context, domain models.SyncDomain, remoteId string, payload []byte) (*models.SyncJob, error) {
	db := config.GetDB()
	job, err := models.CreateSyncJob(ctx, db, domain, remoteId, payload)
	if err != nil {
		return nil, err
	}

	if config.SyncJobPubSubDispatch() {
		if err := PublishSyncJob(ctx, job); err != nil {
			// Announcement only. The retry processor drains the table.
			q.logger.WithFields(logrus.Fields{
				"module": "importer",
				"jobId":  job.ID,
				"domain": domain,
			}).WithError(err).Warn("pubsub announce failed; job remains queued")
		}
	}
	return job, nil
}

// JobPayload decodes a job's stored payload into dst. Jobs enqueued by the
// poller carry no payload; handlers refetch by remote id instead.
func JobPayload(job *models.SyncJob, dst interface{}) (bool, error) {
	if len(job.PayloadJSON) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(job.PayloadJSON, dst); err != nil {
		return false, err
	}
	return true, nil
}

func withJobContext(ctx context.Context, job *models.SyncJob) context.Context {
	if job.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, job.CorrelationId)
	}
	return utils.SetSyncDomainInContext(ctx, string(job.Domain))
}

// Process runs one job through its domain handler. The returned error's
// class decides retry behavior: mapping errors count as success,
// consistency errors abandon the job, everything else retries.
func (imp *Importer) Process(ctx context.Context, job *models.SyncJob) error {
	ctx = withJobContext(ctx, job)
	switch job.Domain {
	case models.SyncDomainUser:
		return imp.ImportUser(ctx, job.RemoteId)
	case models.SyncDomainCompany:
		return imp.ImportCompany(ctx, job.RemoteId)
	case models.SyncDomainProduct:
		return imp.ImportProduct(ctx, job.RemoteId)
	case models.SyncDomainOrder:
		return imp.ImportOrder(ctx, job.RemoteId)
	case models.SyncDomainLicense:
		return imp.ProcessLicenseJob(ctx, job)
	}
	return MappingErrorf("unknown sync domain %q", job.Domain)
}
