package importer

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/utils"
)

type runSyncRequest struct {
	Domain string `json:"domain"`
}

// RunSyncHandler triggers a catch-up poll, for one domain or all of them.
func (imp *Importer) RunSyncHandler(poller *Poller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req runSyncRequest
		_ = c.ShouldBindJSON(&req)

		ctx := c.Request.Context()
		if req.Domain != "" {
			domain := models.SyncDomain(req.Domain)
			if !models.IsValidSyncDomain(domain) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown domain"})
				return
			}
			ids, err := poller.Poll(ctx, domain)
			if err != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			_ = config.RemoveRedisKey(syncStatusCacheKey)
			c.JSON(http.StatusOK, gin.H{"domain": domain, "enqueued": len(ids)})
			return
		}

		results := poller.PollAll(ctx)
		_ = config.RemoveRedisKey(syncStatusCacheKey)
		c.JSON(http.StatusOK, gin.H{"enqueued": results})
	}
}

// FullSyncHandler resets every cursor to the epoch and polls, re-walking the
// whole remote dataset. Idempotent matching makes the replay safe.
func (imp *Importer) FullSyncHandler(poller *Poller) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		for _, domain := range models.AllSyncDomains() {
			if remoteDomainName(domain) == "" {
				continue
			}
			if err := models.ResetSyncCursor(ctx, domain); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}
		results := poller.PollAll(ctx)
		_ = config.RemoveRedisKey(syncStatusCacheKey)
		c.JSON(http.StatusOK, gin.H{"enqueued": results})
	}
}

type domainStatus struct {
	Domain      models.SyncDomain `json:"domain"`
	LastSynced  string            `json:"lastSyncedAt"`
	PendingJobs int64             `json:"pendingJobs"`
}

const syncStatusCacheKey = "sync:status"
const syncStatusCacheTTL = 10 * time.Second

// SyncStatusHandler reports each domain's cursor position and queue depth.
// The response is briefly cached in redis since dashboards poll it.
func (imp *Importer) SyncStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var statuses []domainStatus
		if hit, err := config.GetRedisObject(syncStatusCacheKey, &statuses); err == nil && hit {
			c.JSON(http.StatusOK, gin.H{"domains": statuses})
			return
		}
		for _, domain := range models.AllSyncDomains() {
			cursor, err := models.GetSyncCursor(ctx, domain)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			pending, err := models.PendingSyncJobCount(ctx, domain)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			statuses = append(statuses, domainStatus{
				Domain:      domain,
				LastSynced:  cursor.UTC().Format(time.RFC3339),
				PendingJobs: pending,
			})
		}
		_ = config.SetRedisObject(syncStatusCacheKey, statuses, syncStatusCacheTTL)
		c.JSON(http.StatusOK, gin.H{"domains": statuses})
	}
}

// SyncJobsHandler lists recent jobs, newest first, optionally filtered by
// status or domain.
func (imp *Importer) SyncJobsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
				limit = n
			}
		}

		db := config.GetDB().WithContext(c.Request.Context())
		q := db.Model(&models.SyncJob{}).Order("id DESC").Limit(limit)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if domain := c.Query("domain"); domain != "" {
			q = q.Where("domain = ?", domain)
		}

		var jobs []models.SyncJob
		if err := q.Find(&jobs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

// SyncJobHandler returns a single job by id.
func (imp *Importer) SyncJobHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}

		job, err := utils.FetchModel[models.SyncJob](c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"job": job})
	}
}

// ExportOrderHandler posts one order to the remote system.
func (imp *Importer) ExportOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
			return
		}

		result, err := imp.ExportOrder(c.Request.Context(), id)
		if err != nil {
			if IsConsistencyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"transactionId": result.TransactionId})
	}
}
