package models

import (
	"log"

	"github.com/mmdatafocus/syncdb_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SyncCursor{}, &SyncJob{},
		&Term{}, &FileAsset{},
		&Product{}, &ProductVariation{},
		&User{}, &Company{}, &AddressProfile{},
		&Order{}, &OrderDetail{}, &Quote{},
		&LicenseGrant{},
		&PriceList{}, &PriceListItem{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
