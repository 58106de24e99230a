package utils

import (
	"context"

	"github.com/mmdatafocus/syncdb_backend/appctx"
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func GetSyncDomainFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeySyncDomain)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

func SetSyncDomainInContext(ctx context.Context, domain string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeySyncDomain, domain)
}
