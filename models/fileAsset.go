package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
)

// FileAsset backs a digital product variation. One physical file may back the
// variation powering many transactions, so the natural key is the file name,
// not a remote id.
type FileAsset struct {
	ID          int       `gorm:"primary_key" json:"id"`
	FileName    string    `gorm:"uniqueIndex;size:255;not null" json:"file_name"`
	ObjectKey   string    `gorm:"size:512" json:"object_key"`
	ContentType string    `gorm:"size:100" json:"content_type"`
	SizeBytes   int64     `gorm:"default:0" json:"size_bytes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetOrCreateFileAsset(ctx context.Context, fileName string) (*FileAsset, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return nil, errors.New("file name is required")
	}
	db := config.GetDB()

	var asset FileAsset
	err := db.WithContext(ctx).Where("file_name = ?", fileName).Take(&asset).Error
	if err == nil {
		return &asset, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	asset = FileAsset{
		FileName:  fileName,
		ObjectKey: "assets/" + fileName,
	}
	if err := db.WithContext(ctx).Create(&asset).Error; err != nil {
		// Lost a create race with another worker; the row exists now.
		if isDuplicateKeyErr(err) {
			if err := db.WithContext(ctx).Where("file_name = ?", fileName).Take(&asset).Error; err != nil {
				return nil, err
			}
			return &asset, nil
		}
		return nil, err
	}
	return &asset, nil
}

func GetFileAssetByName(ctx context.Context, fileName string) (*FileAsset, error) {
	db := config.GetDB()
	var asset FileAsset
	err := db.WithContext(ctx).Where("file_name = ?", fileName).Take(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}
