package config

import (
	"os"
	"strings"
)

// SyncJobPubSubDispatch enables publishing a Pub/Sub notification for every
// enqueued sync job in addition to writing the job row. The direct DB
// processor still runs as a safety net either way.
//
// Set via env:
// - SYNC_JOB_PUBSUB_DISPATCH=true
func SyncJobPubSubDispatch() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SYNC_JOB_PUBSUB_DISPATCH")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SyncDomainEnabled allows disabling individual sync domains without a deploy.
//
// Set via env:
// - SYNC_DISABLED_DOMAINS="order,license"
//
// Domain keys are case-insensitive.
func SyncDomainEnabled(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	raw := os.Getenv("SYNC_DISABLED_DOMAINS")
	if strings.TrimSpace(raw) == "" {
		return true
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToLower(strings.TrimSpace(part)) == domain {
			return false
		}
	}
	return true
}
