package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ImportProduct fetches one remote product record and upserts the parent
// product and its variation. The remote feed is variation-grained: each
// record carries its parent's classification fields.
func (imp *Importer) ImportProduct(ctx context.Context, remoteId string) error {
	return imp.withRemoteLock(ctx, string(models.SyncDomainProduct), remoteId, func(ctx context.Context) error {
		raw, err := imp.client.GetRecord(ctx, syncdb.DomainProducts, remoteId)
		if err != nil {
			if errors.Is(err, syncdb.ErrRecordNotFound) {
				return MappingErrorf("remote product %s no longer exists", remoteId)
			}
			return err
		}
		var remote syncdb.RemoteProduct
		if err := utils.UnmarshalFromJSON(raw, &remote); err != nil {
			return MappingErrorf("remote product %s: invalid payload: %v", remoteId, err)
		}
		_, err = imp.upsertProduct(ctx, &remote)
		return err
	})
}

func parseProductType(v string) (models.ProductType, error) {
	switch models.ProductType(strings.ToLower(strings.TrimSpace(v))) {
	case models.ProductTypeDocument:
		return models.ProductTypeDocument, nil
	case models.ProductTypeKit:
		return models.ProductTypeKit, nil
	case models.ProductTypeService:
		return models.ProductTypeService, nil
	}
	return "", MappingErrorf("unknown product format code %q", v)
}

func (imp *Importer) upsertProduct(ctx context.Context, remote *syncdb.RemoteProduct) (*models.ProductVariation, error) {
	productType, err := parseProductType(remote.ProductType)
	if err != nil {
		return nil, err
	}
	if remote.VariationType == "" {
		return nil, MappingErrorf("remote product %s has no variation type", remote.Id)
	}

	// Classification terms cascade-create on first sight. Term-backed key
	// fields carry only two states: an empty string means no term, same as
	// an absent field, because a term cannot have an empty name. The full
	// unset/empty/value distinction applies to the string keys (program
	// code, special product code) only.
	var languageTermId, revisionTermId *int
	if remote.Language != nil && *remote.Language != "" {
		term, err := models.GetOrCreateTermByName(ctx, models.VocabularyLanguage, *remote.Language)
		if err != nil {
			return nil, err
		}
		languageTermId = &term.ID
	}
	if remote.Revision != nil && *remote.Revision != "" {
		term, err := models.GetOrCreateTermByName(ctx, models.VocabularyRevision, *remote.Revision)
		if err != nil {
			return nil, err
		}
		revisionTermId = &term.ID
	}
	if remote.ProgramCode != nil && *remote.ProgramCode != "" {
		if _, err := models.GetOrCreateTermByProgramCode(ctx, models.VocabularyProgram, *remote.ProgramCode); err != nil {
			return nil, err
		}
	}

	variation, err := models.GetVariationByTypeAndRemoteId(ctx, remote.VariationType, remote.Id)
	if err != nil {
		return nil, err
	}

	product, err := imp.resolveParentProduct(ctx, remote, productType, variation, languageTermId, revisionTermId)
	if err != nil {
		return nil, err
	}

	eligible := remote.Active && remote.Displayed && !remote.Discontinued

	if remote.IsDigitalDownload && remote.FileName != "" {
		if _, err := models.GetOrCreateFileAsset(ctx, remote.FileName); err != nil {
			return nil, err
		}
	}

	isDigital := utils.NewFalse()
	if remote.IsDigitalDownload {
		isDigital = utils.NewTrue()
	}
	expirationKind := models.ExpirationKindUnlimited
	if strings.EqualFold(remote.ExpirationKind, string(models.ExpirationKindRolling)) {
		expirationKind = models.ExpirationKindRolling
	}

	input := &models.NewProductVariation{
		RemoteId:            remote.Id,
		ProductId:           product.ID,
		VariationType:       remote.VariationType,
		Name:                strings.TrimSpace(remote.Name),
		Sku:                 strings.TrimSpace(remote.Sku),
		FileName:            remote.FileName,
		IsDigitalDownload:   isDigital,
		ExpirationKind:      expirationKind,
		RollingIntervalDays: remote.RollingDays,
		DownloadLimit:       remote.DownloadLimit,
	}

	if variation == nil {
		// New records are never auto-published; a human flips the switch.
		variation, err = models.CreateProductVariation(ctx, input)
		if err != nil {
			return nil, err
		}
	} else {
		oldParentId := variation.ProductId
		variation, err = models.UpdateProductVariation(ctx, variation.ID, input)
		if err != nil {
			return nil, err
		}
		if oldParentId != 0 && oldParentId != product.ID {
			if err := imp.repairOrphan(ctx, variation.ID, oldParentId, product.ID); err != nil {
				return nil, err
			}
		}
		if !eligible && utils.DereferencePtr(variation.IsPublished) {
			if err := models.SetVariationPublished(ctx, variation.ID, false); err != nil {
				return nil, err
			}
		}
	}

	if err := imp.recomputeParentPublished(ctx, product.ID); err != nil {
		return nil, err
	}

	imp.reconcilePricing(ctx, variation, remote.Pricing)
	return variation, nil
}

// resolveParentProduct finds or creates the parent for a remote record.
// Document and kit products match on the classification composite where
// absent and explicitly-empty fields are distinct states. Service products
// have no usable composite; they are reached only through their single
// variation.
func (imp *Importer) resolveParentProduct(ctx context.Context, remote *syncdb.RemoteProduct, productType models.ProductType, variation *models.ProductVariation, languageTermId, revisionTermId *int) (*models.Product, error) {
	input := &models.NewProduct{
		RemoteId:           remote.Id,
		ProductType:        productType,
		Name:               strings.TrimSpace(remote.Name),
		Description:        remote.Description,
		ProgramCode:        OptionalString(remote.ProgramCode),
		SpecialProductCode: OptionalString(remote.SpecialProductCode),
		LanguageTermId:     OptionalInt(languageTermId),
		RevisionTermId:     OptionalInt(revisionTermId),
	}

	if productType == models.ProductTypeService {
		if variation != nil {
			product, err := models.GetProduct(ctx, variation.ProductId)
			if err == nil {
				return models.UpdateProduct(ctx, product.ID, input)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		return models.CreateProduct(ctx, input)
	}

	db := config.GetDB()
	q := db.WithContext(ctx).Model(&models.Product{}).
		Where("product_type = ?", productType)
	q = whereOptionalString(q, "program_code", input.ProgramCode)
	q = whereOptionalString(q, "special_product_code", input.SpecialProductCode)
	q = whereOptionalInt(q, "language_term_id", input.LanguageTermId)
	q = whereOptionalInt(q, "revision_term_id", input.RevisionTermId)

	var product models.Product
	err := q.Take(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CreateProduct(ctx, input)
		}
		return nil, err
	}
	return models.UpdateProduct(ctx, product.ID, input)
}

// repairOrphan reattaches a variation whose remote classification moved it
// to a different product family. An old parent left with no variations is
// unpublished.
func (imp *Importer) repairOrphan(ctx context.Context, variationId, oldParentId, newParentId int) error {
	imp.logger.WithFields(logrus.Fields{
		"module":      "importer",
		"variationId": variationId,
		"oldParentId": oldParentId,
		"newParentId": newParentId,
	}).Info("variation reclassified; reattaching to new parent")

	if err := models.SetVariationParent(ctx, variationId, newParentId); err != nil {
		return err
	}
	remaining, err := models.CountVariationsForProduct(ctx, oldParentId)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return models.SetProductPublished(ctx, oldParentId, false)
	}
	return imp.recomputeParentPublished(ctx, oldParentId)
}

// recomputeParentPublished makes the parent's publish state the OR over its
// variations: published while any variation is, unpublished once none are.
func (imp *Importer) recomputeParentPublished(ctx context.Context, productId int) error {
	published, err := models.CountPublishedVariationsForProduct(ctx, productId)
	if err != nil {
		return err
	}
	return models.SetProductPublished(ctx, productId, published > 0)
}
