package importer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/utils"
)

const uploadURLExpiry = 15 * time.Minute

type uploadURLRequest struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// FileUploadURLHandler mints a signed PUT URL for the file behind a digital
// variation and records the asset so downloads can find it later.
func (imp *Importer) FileUploadURLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req uploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		asset, err := models.GetOrCreateFileAsset(ctx, req.FileName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		signed, err := utils.SignUpload(ctx, asset.ObjectKey, req.ContentType, uploadURLExpiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, signed)
	}
}

// FileAssetsHandler lists the stored file assets.
func (imp *Importer) FileAssetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := utils.FetchAllModels[models.FileAsset](c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": assets})
	}
}
