package importer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/sirupsen/logrus"
)

// ProcessLicenseJob issues grants for a transaction's digital lines. The
// enqueuing order import stores the remote order payload on the job; an
// empty payload falls back to refetching by remote id.
func (imp *Importer) ProcessLicenseJob(ctx context.Context, job *models.SyncJob) error {
	var remote syncdb.RemoteOrder
	ok, err := JobPayload(job, &remote)
	if err != nil {
		return MappingErrorf("license job %d: invalid payload: %v", job.ID, err)
	}
	if !ok {
		raw, err := imp.client.GetRecord(ctx, syncdb.DomainOrders, job.RemoteId)
		if err != nil {
			if errors.Is(err, syncdb.ErrRecordNotFound) {
				return MappingErrorf("remote order %s no longer exists", job.RemoteId)
			}
			return err
		}
		if err := utils.UnmarshalFromJSON(raw, &remote); err != nil {
			return MappingErrorf("remote order %s: invalid payload: %v", job.RemoteId, err)
		}
	}
	return imp.IssueLicenses(ctx, &remote)
}

// IssueLicenses tops up grants for each digital line to the paid quantity.
// Counting existing grants per (variation, transaction) before issuing makes
// a replay of the same transaction a no-op.
func (imp *Importer) IssueLicenses(ctx context.Context, remote *syncdb.RemoteOrder) error {
	// A license job can outlive its order: if the order was canceled between
	// enqueue and processing, issuing now would undo the revocation.
	order, err := models.GetOrderByRemoteId(ctx, remote.Id)
	if err != nil {
		return err
	}
	if order != nil && order.Status == models.OrderStatusCanceled {
		imp.logger.WithFields(logrus.Fields{
			"module":        "importer",
			"remoteOrderId": remote.Id,
		}).Info("order canceled; license issuance skipped")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(remote.UserEmail))
	user, err := models.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return MappingErrorf("remote order %s: no local user for %s", remote.Id, email)
	}

	txDate, err := utils.ParseRemoteTime(remote.OrderDate)
	if err != nil {
		return MappingErrorf("remote order %s: bad order date %q", remote.Id, remote.OrderDate)
	}

	for _, line := range remote.LineItems {
		if !line.IsDigitalDownload {
			continue
		}
		variation, err := imp.ensureVariation(ctx, line.ProductId)
		if err != nil {
			return err
		}
		if variation == nil {
			imp.logger.WithFields(logrus.Fields{
				"module":          "importer",
				"remoteOrderId":   remote.Id,
				"remoteProductId": line.ProductId,
			}).Error("digital line without resolvable variation; grant skipped")
			continue
		}
		if err := imp.issueForLine(ctx, user.ID, variation, remote.Id, txDate, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (imp *Importer) issueForLine(ctx context.Context, userId int, variation *models.ProductVariation, transactionId string, txDate time.Time, quantity int) error {
	var expiresAt *time.Time
	if variation.ExpirationKind == models.ExpirationKindRolling {
		t := txDate.Add(time.Duration(variation.RollingIntervalDays) * 24 * time.Hour)
		if time.Now().After(t) {
			// Importing an already-expired grant is a no-op.
			imp.logger.WithFields(logrus.Fields{
				"module":        "importer",
				"variationId":   variation.ID,
				"transactionId": transactionId,
				"expiresAt":     t.Format(time.RFC3339),
			}).Info("rolling license window already past; issuance skipped")
			return nil
		}
		expiresAt = &t
	}

	existing, err := models.CountLicenseGrants(ctx, variation.ID, transactionId)
	if err != nil {
		return err
	}
	missing := quantity - existing
	if missing <= 0 {
		return nil
	}

	for i := 0; i < missing; i++ {
		_, err := models.CreateLicenseGrant(ctx, &models.NewLicenseGrant{
			UserId:                   userId,
			ProductVariationId:       variation.ID,
			OriginatingTransactionId: transactionId,
			ExpiresAt:                expiresAt,
			DownloadLimit:            variation.DownloadLimit,
		})
		if err != nil {
			return err
		}
	}

	imp.logger.WithFields(logrus.Fields{
		"module":        "importer",
		"variationId":   variation.ID,
		"transactionId": transactionId,
		"issued":        missing,
		"existing":      existing,
	}).Info("license grants issued")
	return nil
}
