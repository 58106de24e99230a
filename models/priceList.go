package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceList is a named tier of pricing, one per remote price level that
// carries quantity breaks. The base Non-Member single-unit price lives on
// the variation itself, not here.
type PriceList struct {
	ID              int       `gorm:"primary_key" json:"id"`
	Name            string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	RemoteLevelName string    `gorm:"index;size:100" json:"remote_level_name"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PriceListItem is one quantity break for a variation on a list.
type PriceListItem struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	PriceListId        int             `gorm:"uniqueIndex:idx_price_list_item,priority:1;not null" json:"price_list_id"`
	ProductVariationId int             `gorm:"uniqueIndex:idx_price_list_item,priority:2;not null" json:"product_variation_id"`
	MinQuantity        int             `gorm:"uniqueIndex:idx_price_list_item,priority:3;not null" json:"min_quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetOrCreatePriceList resolves a price list by name, creating it when
// missing.
func GetOrCreatePriceList(ctx context.Context, name, remoteLevelName string) (*PriceList, error) {
	if name == "" {
		return nil, errors.New("price list name is required")
	}
	db := config.GetDB()

	var list PriceList
	err := db.WithContext(ctx).Where("name = ?", name).Take(&list).Error
	if err == nil {
		return &list, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	list = PriceList{Name: name, RemoteLevelName: remoteLevelName}
	if err := db.WithContext(ctx).Create(&list).Error; err != nil {
		if isDuplicateKeyErr(err) {
			if err := db.WithContext(ctx).Where("name = ?", name).Take(&list).Error; err != nil {
				return nil, err
			}
			return &list, nil
		}
		return nil, err
	}
	return &list, nil
}

// UpsertPriceListItem writes a quantity break, updating the price in place
// when the break already exists.
func UpsertPriceListItem(ctx context.Context, listId, variationId, minQuantity int, unitPrice decimal.Decimal) (*PriceListItem, error) {
	db := config.GetDB()

	var item PriceListItem
	err := db.WithContext(ctx).
		Where("price_list_id = ? AND product_variation_id = ? AND min_quantity = ?",
			listId, variationId, minQuantity).
		Take(&item).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		item = PriceListItem{
			PriceListId:        listId,
			ProductVariationId: variationId,
			MinQuantity:        minQuantity,
			UnitPrice:          unitPrice,
		}
		if err := db.WithContext(ctx).Create(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}

	if err := db.WithContext(ctx).Model(&item).Update("unit_price", unitPrice).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetPriceListItems(ctx context.Context, variationId int) ([]*PriceListItem, error) {
	db := config.GetDB()
	var items []*PriceListItem
	err := db.WithContext(ctx).
		Where("product_variation_id = ?", variationId).
		Order("price_list_id, min_quantity").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeletePriceListItemsForVariation clears the breaks for a variation across
// all lists. Used when a variation is purged.
func DeletePriceListItemsForVariation(ctx context.Context, variationId int) error {
	db := config.GetDB()
	return db.WithContext(ctx).
		Where("product_variation_id = ?", variationId).
		Delete(&PriceListItem{}).Error
}
