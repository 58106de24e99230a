package models

import (
	"context"
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mmdatafocus/syncdb_backend/utils"
)

// SyncDomain names one independently-cursored slice of the remote system.
type SyncDomain string

const (
	SyncDomainUser    SyncDomain = "user"
	SyncDomainCompany SyncDomain = "company"
	SyncDomainProduct SyncDomain = "product"
	SyncDomainOrder   SyncDomain = "order"
	SyncDomainLicense SyncDomain = "license"
)

func AllSyncDomains() []SyncDomain {
	return []SyncDomain{
		SyncDomainUser,
		SyncDomainCompany,
		SyncDomainProduct,
		SyncDomainOrder,
		SyncDomainLicense,
	}
}

func IsValidSyncDomain(domain SyncDomain) bool {
	switch domain {
	case SyncDomainUser, SyncDomainCompany, SyncDomainProduct, SyncDomainOrder, SyncDomainLicense:
		return true
	}
	return false
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
