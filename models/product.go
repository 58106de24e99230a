package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductType string

const (
	ProductTypeDocument ProductType = "document"
	ProductTypeKit      ProductType = "kit"
	ProductTypeService  ProductType = "service"
)

type ExpirationKind string

const (
	ExpirationKindUnlimited ExpirationKind = "UNLIMITED"
	ExpirationKindRolling   ExpirationKind = "ROLLING"
)

// Product is a sellable catalog entry kept in sync with the remote system.
// The nullable natural-key columns (ProgramCode, SpecialProductCode,
// LanguageTermId, RevisionTermId) carry three distinct states: NULL (unset),
// ''/0 (explicitly empty) and a populated value. Matching must never collapse
// these, so they are pointers, not zero-valued scalars.
type Product struct {
	ID                 int                 `gorm:"primary_key" json:"id"`
	RemoteId           string              `gorm:"index;size:64" json:"remote_id"`
	ProductType        ProductType         `gorm:"index;type:enum('document','kit','service');not null" json:"product_type"`
	Name               string              `gorm:"size:255;not null" json:"name"`
	Description        string              `gorm:"type:text" json:"description"`
	ProgramCode        *string             `gorm:"index;size:50" json:"program_code"`
	SpecialProductCode *string             `gorm:"size:50" json:"special_product_code"`
	LanguageTermId     *int                `gorm:"index" json:"language_term_id"`
	RevisionTermId     *int                `gorm:"index" json:"revision_term_id"`
	IsPublished        *bool               `gorm:"not null;default:false" json:"is_published"`
	Variations         []*ProductVariation `gorm:"foreignkey:ProductId" json:"variations"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductVariation is one purchasable format of a product (PDF, print,
// redline, subscription seat). Its remote id is the id order line items
// reference.
type ProductVariation struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	RemoteId            string          `gorm:"index:idx_variations_type_remote,priority:2;size:64;not null" json:"remote_id"`
	ProductId           int             `gorm:"index;not null" json:"product_id"`
	VariationType       string          `gorm:"index:idx_variations_type_remote,priority:1;size:50;not null" json:"variation_type"`
	Name                string          `gorm:"size:255" json:"name"`
	Sku                 string          `gorm:"size:100" json:"sku"`
	BaseUnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_unit_price"`
	FileName            string          `gorm:"index;size:255" json:"file_name"`
	IsDigitalDownload   *bool           `gorm:"not null;default:false" json:"is_digital_download"`
	IsPublished         *bool           `gorm:"not null;default:false" json:"is_published"`
	ExpirationKind      ExpirationKind  `gorm:"type:enum('UNLIMITED','ROLLING');not null;default:'UNLIMITED'" json:"expiration_kind"`
	RollingIntervalDays int             `gorm:"default:0" json:"rolling_interval_days"`
	DownloadLimit       int             `gorm:"default:0" json:"download_limit"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	RemoteId           string      `json:"remote_id"`
	ProductType        ProductType `json:"product_type" binding:"required"`
	Name               string      `json:"name" binding:"required"`
	Description        string      `json:"description"`
	ProgramCode        *string     `json:"program_code"`
	SpecialProductCode *string     `json:"special_product_code"`
	LanguageTermId     *int        `json:"language_term_id"`
	RevisionTermId     *int        `json:"revision_term_id"`
}

type NewProductVariation struct {
	RemoteId            string          `json:"remote_id" binding:"required"`
	ProductId           int             `json:"product_id" binding:"required"`
	VariationType       string          `json:"variation_type" binding:"required"`
	Name                string          `json:"name"`
	Sku                 string          `json:"sku"`
	BaseUnitPrice       decimal.Decimal `json:"base_unit_price"`
	FileName            string          `json:"file_name"`
	IsDigitalDownload   *bool           `json:"is_digital_download"`
	ExpirationKind      ExpirationKind  `json:"expiration_kind"`
	RollingIntervalDays int             `json:"rolling_interval_days"`
	DownloadLimit       int             `json:"download_limit"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	product := Product{
		RemoteId:           input.RemoteId,
		ProductType:        input.ProductType,
		Name:               input.Name,
		Description:        input.Description,
		ProgramCode:        input.ProgramCode,
		SpecialProductCode: input.SpecialProductCode,
		LanguageTermId:     input.LanguageTermId,
		RevisionTermId:     input.RevisionTermId,
		// Newly imported products always start unpublished; publication
		// requires a manual review step.
		IsPublished: utils.NewFalse(),
	}
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	db := config.GetDB()

	var product Product
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&product).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"remote_id":            input.RemoteId,
		"product_type":         input.ProductType,
		"name":                 input.Name,
		"description":          input.Description,
		"program_code":         input.ProgramCode,
		"special_product_code": input.SpecialProductCode,
		"language_term_id":     input.LanguageTermId,
		"revision_term_id":     input.RevisionTermId,
	}
	if err := db.WithContext(ctx).Model(&product).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).Preload("Variations").Where("id = ?", id).Take(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func CreateProductVariation(ctx context.Context, input *NewProductVariation) (*ProductVariation, error) {
	db := config.GetDB()

	isDigital := input.IsDigitalDownload
	if isDigital == nil {
		isDigital = utils.NewFalse()
	}
	kind := input.ExpirationKind
	if kind == "" {
		kind = ExpirationKindUnlimited
	}

	variation := ProductVariation{
		RemoteId:            input.RemoteId,
		ProductId:           input.ProductId,
		VariationType:       input.VariationType,
		Name:                input.Name,
		Sku:                 input.Sku,
		BaseUnitPrice:       input.BaseUnitPrice,
		FileName:            input.FileName,
		IsDigitalDownload:   isDigital,
		IsPublished:         utils.NewFalse(),
		ExpirationKind:      kind,
		RollingIntervalDays: input.RollingIntervalDays,
		DownloadLimit:       input.DownloadLimit,
	}
	if err := db.WithContext(ctx).Create(&variation).Error; err != nil {
		return nil, err
	}
	return &variation, nil
}

func UpdateProductVariation(ctx context.Context, id int, input *NewProductVariation) (*ProductVariation, error) {
	db := config.GetDB()

	var variation ProductVariation
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&variation).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"remote_id":      input.RemoteId,
		"product_id":     input.ProductId,
		"variation_type": input.VariationType,
		"name":           input.Name,
		"sku":            input.Sku,
		"file_name":      input.FileName,
	}
	if input.IsDigitalDownload != nil {
		updates["is_digital_download"] = input.IsDigitalDownload
	}
	if input.ExpirationKind != "" {
		updates["expiration_kind"] = input.ExpirationKind
		updates["rolling_interval_days"] = input.RollingIntervalDays
		updates["download_limit"] = input.DownloadLimit
	}
	if err := db.WithContext(ctx).Model(&variation).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &variation, nil
}

func GetProductVariation(ctx context.Context, id int) (*ProductVariation, error) {
	db := config.GetDB()
	var variation ProductVariation
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&variation).Error; err != nil {
		return nil, err
	}
	return &variation, nil
}

// GetVariationByTypeAndRemoteId is the variation natural key lookup. Returns
// nil without error when no match exists.
func GetVariationByTypeAndRemoteId(ctx context.Context, variationType string, remoteId string) (*ProductVariation, error) {
	db := config.GetDB()
	var variation ProductVariation
	err := db.WithContext(ctx).
		Where("variation_type = ? AND remote_id = ?", variationType, remoteId).
		Take(&variation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variation, nil
}

// GetVariationByRemoteId matches a variation by remote id alone. Order line
// items carry only the remote product id, no variation type.
func GetVariationByRemoteId(ctx context.Context, remoteId string) (*ProductVariation, error) {
	db := config.GetDB()
	var variation ProductVariation
	err := db.WithContext(ctx).
		Where("remote_id = ?", remoteId).
		Take(&variation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &variation, nil
}

func SetProductPublished(ctx context.Context, id int, published bool) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Product{}).
		Where("id = ?", id).
		Update("is_published", published).Error
}

func SetVariationPublished(ctx context.Context, id int, published bool) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&ProductVariation{}).
		Where("id = ?", id).
		Update("is_published", published).Error
}

// SetVariationBasePrice writes the single-unit list price. The price
// reconciler owns this field.
func SetVariationBasePrice(ctx context.Context, id int, price decimal.Decimal) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&ProductVariation{}).
		Where("id = ?", id).
		Update("base_unit_price", price).Error
}

// SetVariationParent reattaches a variation to a different product. Used by
// orphan repair when the remote system reclassifies a variation.
func SetVariationParent(ctx context.Context, variationId int, productId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&ProductVariation{}).
		Where("id = ?", variationId).
		Update("product_id", productId).Error
}

func CountVariationsForProduct(ctx context.Context, productId int) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&ProductVariation{}).
		Where("product_id = ?", productId).
		Count(&count).Error
	return count, err
}

func CountPublishedVariationsForProduct(ctx context.Context, productId int) (int64, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&ProductVariation{}).
		Where("product_id = ? AND is_published = ?", productId, true).
		Count(&count).Error
	return count, err
}

// SetAllProductsPublished flips the publish flag over the whole catalog.
// Maintenance operation; the sync engine never calls it.
func SetAllProductsPublished(ctx context.Context, published bool) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Product{}).
		Where("is_published <> ?", published).
		Update("is_published", published)
	return result.RowsAffected, result.Error
}

// DeleteAllProducts removes every product and variation. Maintenance
// operation behind an explicit confirmation; the sync engine never deletes.
func DeleteAllProducts(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ProductVariation{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&Product{}).Error
	})
}
