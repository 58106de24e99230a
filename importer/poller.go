package importer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/sirupsen/logrus"
)

// Poller walks the remote change feed for one domain and enqueues a job per
// modified record.
type Poller struct {
	client  syncdb.Client
	cursors CursorStore
	queue   *Queue
	logger  *logrus.Logger
}

func NewPoller(client syncdb.Client, cursors CursorStore, queue *Queue, logger *logrus.Logger) *Poller {
	return &Poller{client: client, cursors: cursors, queue: queue, logger: logger}
}

// remoteDomainName maps a local sync domain to the remote collection path.
// The license domain has no feed of its own; grants are derived from order
// line items.
func remoteDomainName(domain models.SyncDomain) string {
	switch domain {
	case models.SyncDomainUser:
		return syncdb.DomainUsers
	case models.SyncDomainCompany:
		return syncdb.DomainCompanies
	case models.SyncDomainProduct:
		return syncdb.DomainProducts
	case models.SyncDomainOrder:
		return syncdb.DomainOrders
	}
	return ""
}

type remoteIdEnvelope struct {
	Id string `json:"id"`
}

// Poll captures the run start time, pages through every record modified
// since the stored cursor, enqueues one job per collected id, and only then
// advances the cursor to the run start. A remote failure mid-walk returns
// without advancing, so the next poll retries the same window.
func (p *Poller) Poll(ctx context.Context, domain models.SyncDomain) ([]string, error) {
	remoteDomain := remoteDomainName(domain)
	if remoteDomain == "" {
		return nil, nil
	}

	runStartedAt := time.Now().UTC()
	cursor, err := p.cursors.Get(ctx, domain)
	if err != nil {
		return nil, err
	}

	var remoteIds []string
	var pages int
	for page := 1; ; page++ {
		recordPage, err := p.client.GetRecordList(ctx, remoteDomain, cursor, page)
		if err != nil {
			config.LogError(p.logger, "importer", "Poll", "remote list fetch failed", logrus.Fields{
				"domain": domain,
				"page":   page,
			}, err)
			return nil, err
		}
		for _, raw := range recordPage.Records {
			var env remoteIdEnvelope
			if err := json.Unmarshal(raw, &env); err != nil || env.Id == "" {
				p.logger.WithFields(logrus.Fields{
					"module": "importer",
					"domain": domain,
					"page":   page,
				}).Error("record without id in change feed; skipped")
				continue
			}
			remoteIds = append(remoteIds, env.Id)
		}
		pages = page
		if !recordPage.HasMore {
			break
		}
	}

	for _, remoteId := range remoteIds {
		if _, err := p.queue.Enqueue(ctx, domain, remoteId, nil); err != nil {
			return nil, err
		}
	}

	if err := p.cursors.Set(ctx, domain, runStartedAt); err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"module":   "importer",
		"domain":   domain,
		"cursor":   cursor.Format(time.RFC3339),
		"pages":    pages,
		"enqueued": len(remoteIds),
	}).Info("poll complete")
	return remoteIds, nil
}

// PollAll polls every feed-backed domain, honoring the per-domain disable
// flag. Failures are isolated per domain.
func (p *Poller) PollAll(ctx context.Context) map[models.SyncDomain]int {
	results := make(map[models.SyncDomain]int)
	for _, domain := range models.AllSyncDomains() {
		if remoteDomainName(domain) == "" {
			continue
		}
		if !config.SyncDomainEnabled(string(domain)) {
			continue
		}
		ids, err := p.Poll(ctx, domain)
		if err != nil {
			continue
		}
		results[domain] = len(ids)
	}
	return results
}
