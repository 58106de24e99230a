package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/syncdb_backend/config"
	"gorm.io/gorm"
)

func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	var model T
	dbCtx := db.WithContext(ctx)
	for _, association := range associations {
		dbCtx = dbCtx.Preload(association)
	}
	if err := dbCtx.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &model, nil
}

func FetchAllModels[T any](ctx context.Context, associations ...string) ([]*T, error) {
	db := config.GetDB()
	var models []*T
	dbCtx := db.WithContext(ctx)
	for _, association := range associations {
		dbCtx = dbCtx.Preload(association)
	}
	if err := dbCtx.Find(&models).Error; err != nil {
		return nil, err
	}
	return models, nil
}
