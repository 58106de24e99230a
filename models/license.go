package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
)

const (
	LicenseStateActive  = "active"
	LicenseStateRevoked = "revoked"
	LicenseStateExpired = "expired"
)

// LicenseGrant is a digital access entitlement issued for a purchased
// variation. Idempotency runs on the originating transaction: the count of
// grants per (variation, transaction) is topped up to the paid quantity,
// never duplicated.
type LicenseGrant struct {
	ID                       int        `gorm:"primary_key" json:"id"`
	UserId                   int        `gorm:"index;not null" json:"user_id"`
	ProductVariationId       int        `gorm:"index:idx_license_variation_txn,priority:1;not null" json:"product_variation_id"`
	OriginatingTransactionId string     `gorm:"index:idx_license_variation_txn,priority:2;size:64;not null" json:"originating_transaction_id"`
	State                    string     `gorm:"size:20;not null;default:'active'" json:"state"`
	ExpiresAt                *time.Time `json:"expires_at"`
	DownloadLimit            int        `gorm:"default:0" json:"download_limit"`
	DownloadCount            int        `gorm:"default:0" json:"download_count"`
	CreatedAt                time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLicenseGrant struct {
	UserId                   int        `json:"user_id" binding:"required"`
	ProductVariationId       int        `json:"product_variation_id" binding:"required"`
	OriginatingTransactionId string     `json:"originating_transaction_id" binding:"required"`
	ExpiresAt                *time.Time `json:"expires_at"`
	DownloadLimit            int        `json:"download_limit"`
}

func CreateLicenseGrant(ctx context.Context, input *NewLicenseGrant) (*LicenseGrant, error) {
	if input.OriginatingTransactionId == "" {
		return nil, errors.New("originating transaction id is required")
	}
	db := config.GetDB()

	grant := LicenseGrant{
		UserId:                   input.UserId,
		ProductVariationId:       input.ProductVariationId,
		OriginatingTransactionId: input.OriginatingTransactionId,
		State:                    LicenseStateActive,
		ExpiresAt:                input.ExpiresAt,
		DownloadLimit:            input.DownloadLimit,
	}
	if err := db.WithContext(ctx).Create(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// CountLicenseGrants returns how many active grants exist for a variation
// under a given originating transaction. Expired and revoked grants no
// longer satisfy the paid quantity, so the issuer replaces them on replay.
func CountLicenseGrants(ctx context.Context, variationId int, transactionId string) (int, error) {
	db := config.GetDB()
	var count int64
	err := db.WithContext(ctx).Model(&LicenseGrant{}).
		Where("product_variation_id = ? AND originating_transaction_id = ? AND state = ?",
			variationId, transactionId, LicenseStateActive).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func GetLicenseGrantsForUser(ctx context.Context, userId int) ([]*LicenseGrant, error) {
	db := config.GetDB()
	var grants []*LicenseGrant
	err := db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("id").
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// RevokeLicenseGrantsForTransaction deactivates every active grant issued
// under a transaction. Used when the originating order is canceled remotely.
func RevokeLicenseGrantsForTransaction(ctx context.Context, transactionId string) (int64, error) {
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&LicenseGrant{}).
		Where("originating_transaction_id = ? AND state = ?", transactionId, LicenseStateActive).
		Update("state", LicenseStateRevoked)
	return res.RowsAffected, res.Error
}

func SetLicenseState(ctx context.Context, id int, state string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&LicenseGrant{}).Where("id = ?", id).
		Update("state", state).Error
}

// IncrementDownloadCount bumps the counter for a grant. The caller checks
// the limit before handing out a signed URL.
func IncrementDownloadCount(ctx context.Context, id int) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&LicenseGrant{}).Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error
}
