package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
)

// set-published flips publish state in bulk, or for a single product by id.
// New records import unpublished; this is the manual switch.
func main() {
	productId := flag.Int("product-id", 0, "Limit to one product (0 = all)")
	published := flag.Bool("published", true, "Target publish state")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()

	if *productId > 0 {
		if err := models.SetProductPublished(ctx, *productId, *published); err != nil {
			fmt.Fprintf(os.Stderr, "publish update: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("product %d published=%v\n", *productId, *published)
		return
	}

	affected, err := models.SetAllProductsPublished(ctx, *published)
	if err != nil {
		fmt.Fprintf(os.Stderr, "publish update: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d products published=%v\n", affected, *published)
}
