package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
)

// purge-records deletes synced data so a full import can rebuild from a
// clean slate. Cursors are reset alongside; a purge without a cursor reset
// would leave the store empty until records change remotely.
func main() {
	scope := flag.String("scope", "all", "What to purge: products, parties, orders, all")
	confirm := flag.String("confirm", "", "Type PURGE to proceed")
	flag.Parse()

	if strings.TrimSpace(*confirm) != "PURGE" {
		fmt.Fprintln(os.Stderr, "set --confirm=PURGE to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()

	switch *scope {
	case "products":
		purgeProducts(ctx)
	case "parties":
		purgeParties(ctx)
	case "orders":
		purgeOrders(ctx)
	case "all":
		purgeOrders(ctx)
		purgeProducts(ctx)
		purgeParties(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown scope %q\n", *scope)
		os.Exit(1)
	}

	for _, domain := range models.AllSyncDomains() {
		if err := models.ResetSyncCursor(ctx, domain); err != nil {
			fmt.Fprintf(os.Stderr, "cursor reset %s: %v\n", domain, err)
			os.Exit(1)
		}
	}
	fmt.Println("done")
}

func purgeProducts(ctx context.Context) {
	if err := models.DeleteAllProducts(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "product purge: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("products purged")
}

func purgeParties(ctx context.Context) {
	if err := models.DeleteAllParties(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "party purge: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("users, companies and addresses purged")
}

func purgeOrders(ctx context.Context) {
	if err := models.DeleteAllOrders(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "order purge: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("orders and quotes purged")
}
