package importer

import (
	"context"
	"time"

	"github.com/mmdatafocus/syncdb_backend/models"
)

// CursorStore reads and writes the per-domain high-water timestamp. A thin
// wrapper so the poller can be tested against a fake.
type CursorStore interface {
	Get(ctx context.Context, domain models.SyncDomain) (time.Time, error)
	Set(ctx context.Context, domain models.SyncDomain, at time.Time) error
}

type dbCursorStore struct{}

func NewCursorStore() CursorStore {
	return dbCursorStore{}
}

func (dbCursorStore) Get(ctx context.Context, domain models.SyncDomain) (time.Time, error) {
	return models.GetSyncCursor(ctx, domain)
}

func (dbCursorStore) Set(ctx context.Context, domain models.SyncDomain, at time.Time) error {
	return models.SetSyncCursor(ctx, domain, at)
}
