package importer

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/utils"
)

const downloadURLExpiry = 15 * time.Minute

// LicenseDownloadHandler exchanges an active grant for a short-lived signed
// URL to the variation's file. Each issued URL consumes one download from
// the grant's limit.
func (imp *Importer) LicenseDownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license id"})
			return
		}
		ctx := c.Request.Context()

		grant, err := utils.FetchModel[models.LicenseGrant](ctx, id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
			return
		}

		if grant.State != models.LicenseStateActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "license is " + grant.State})
			return
		}
		if grant.ExpiresAt != nil && time.Now().After(*grant.ExpiresAt) {
			_ = models.SetLicenseState(ctx, grant.ID, models.LicenseStateExpired)
			c.JSON(http.StatusForbidden, gin.H{"error": "license expired"})
			return
		}
		if grant.DownloadLimit > 0 && grant.DownloadCount >= grant.DownloadLimit {
			c.JSON(http.StatusForbidden, gin.H{"error": "download limit reached"})
			return
		}

		variation, err := models.GetProductVariation(ctx, grant.ProductVariationId)
		if err != nil || variation.FileName == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "no file behind this license"})
			return
		}
		asset, err := models.GetFileAssetByName(ctx, variation.FileName)
		if err != nil || asset == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "file asset not found"})
			return
		}

		url, err := utils.SignDownload(ctx, asset.ObjectKey, downloadURLExpiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := models.IncrementDownloadCount(ctx, grant.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"url":       url,
			"expiresIn": int(downloadURLExpiry.Seconds()),
		})
	}
}
