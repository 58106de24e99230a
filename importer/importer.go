package importer

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/sirupsen/logrus"
)

// Importer wires the remote client, the job queue and the per-domain import
// handlers together. One instance serves the whole process.
type Importer struct {
	client syncdb.Client
	queue  *Queue
	logger *logrus.Logger
}

func New(client syncdb.Client, queue *Queue, logger *logrus.Logger) *Importer {
	return &Importer{client: client, queue: queue, logger: logger}
}

func (imp *Importer) Client() syncdb.Client {
	return imp.client
}

const remoteLockTTL = 30 * time.Second

// withRemoteLock serializes work on a single remote id across workers. Lock
// acquisition is best effort: without redis the work proceeds unlocked and
// idempotent upserts keep the outcome correct.
func (imp *Importer) withRemoteLock(ctx context.Context, domain, remoteId string, fn func(context.Context) error) error {
	locker := config.GetRedisLock()
	if locker == nil {
		return fn(ctx)
	}

	key := "sync:lock:" + domain + ":" + remoteId
	lock, err := locker.Obtain(ctx, key, remoteLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 50),
	})
	if err != nil {
		imp.logger.WithFields(logrus.Fields{
			"module":   "importer",
			"domain":   domain,
			"remoteId": remoteId,
		}).WithError(err).Warn("redis lock unavailable; continuing unlocked")
		return fn(ctx)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	return fn(ctx)
}
