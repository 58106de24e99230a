package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/importer"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
)

// full-import resets the sync cursors and re-walks the entire remote
// dataset. Jobs are enqueued; a running service (or --drain here) processes
// them.
func main() {
	domainFlag := flag.String("domain", "", "Limit to one domain (user, company, product, order)")
	drain := flag.Bool("drain", false, "Process enqueued jobs inline instead of leaving them for the service")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()

	logger := config.GetLogger()
	client, err := syncdb.NewClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "remote client: %v\n", err)
		os.Exit(1)
	}
	queue := importer.NewQueue(logger)
	imp := importer.New(client, queue, logger)
	poller := importer.NewPoller(client, importer.NewCursorStore(), queue, logger)

	ctx := context.Background()

	domains := models.AllSyncDomains()
	if *domainFlag != "" {
		domain := models.SyncDomain(*domainFlag)
		if !models.IsValidSyncDomain(domain) {
			fmt.Fprintf(os.Stderr, "unknown domain %q\n", *domainFlag)
			os.Exit(1)
		}
		domains = []models.SyncDomain{domain}
	}

	total := 0
	for _, domain := range domains {
		if err := models.ResetSyncCursor(ctx, domain); err != nil {
			fmt.Fprintf(os.Stderr, "cursor reset %s: %v\n", domain, err)
			os.Exit(1)
		}
		ids, err := poller.Poll(ctx, domain)
		if err != nil {
			fmt.Fprintf(os.Stderr, "poll %s: %v\n", domain, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d records enqueued\n", domain, len(ids))
		total += len(ids)
	}
	fmt.Printf("total: %d\n", total)

	if *drain {
		drainQueue(ctx, imp)
	}
}

func drainQueue(ctx context.Context, imp *importer.Importer) {
	db := config.GetDB()
	processed := 0
	for {
		var jobs []models.SyncJob
		err := db.WithContext(ctx).
			Where("status = ?", models.SyncJobStatusPending).
			Order("id ASC").
			Limit(100).
			Find(&jobs).Error
		if err != nil || len(jobs) == 0 {
			break
		}
		for i := range jobs {
			imp.FinishJob(ctx, &jobs[i], imp.Process(ctx, &jobs[i]))
			processed++
		}
	}
	fmt.Printf("processed: %d\n", processed)
}
