package importer

import (
	"context"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/sirupsen/logrus"
)

const pricingCurrency = "USD"

const (
	priceLevelNonMember   = "Non-Member"
	priceLevelMember      = "Member"
	priceLevelDistributor = "Distributor"
)

// priceListNameForLevel resolves a remote price level to the local price
// list it feeds. Unknown levels get no list and their breaks are dropped.
func priceListNameForLevel(level string) string {
	switch level {
	case priceLevelNonMember:
		return "Nonmember bulk pricing"
	case priceLevelMember:
		return "Member bulk pricing"
	case priceLevelDistributor:
		return "Distributor bulk pricing"
	}
	return ""
}

// missingPriceLevels lists the expected tiers the remote matrix did not
// carry. A matrix without a USD branch is missing all three.
func missingPriceLevels(levels []syncdb.PriceLevel) []string {
	found := map[string]bool{}
	for _, level := range levels {
		found[level.LevelName] = true
	}
	var missing []string
	for _, want := range []string{priceLevelNonMember, priceLevelMember, priceLevelDistributor} {
		if !found[want] {
			missing = append(missing, want)
		}
	}
	return missing
}

// normalizeMinQuantity maps the remote convention for the single-unit break
// (quantity 0) onto 1.
func normalizeMinQuantity(q int) int {
	if q == 0 {
		return 1
	}
	return q
}

// isBasePriceBreak reports whether a break sets the variation's base price
// instead of a tiered price-list row.
func isBasePriceBreak(levelName string, minQuantity int) bool {
	return levelName == priceLevelNonMember && minQuantity == 1
}

// reconcilePricing applies the USD branch of the remote pricing matrix to a
// variation. Pricing problems are reported, never fatal: a product with a
// pricing gap still syncs.
func (imp *Importer) reconcilePricing(ctx context.Context, variation *models.ProductVariation, pricing map[string][]syncdb.PriceLevel) {
	if len(pricing) == 0 {
		return
	}
	levels := pricing[pricingCurrency]
	for _, level := range levels {
		imp.applyPriceLevel(ctx, variation, level)
	}

	for _, want := range missingPriceLevels(levels) {
		imp.logger.WithFields(logrus.Fields{
			"module":      "importer",
			"variationId": variation.ID,
			"sku":         variation.Sku,
			"priceLevel":  want,
		}).Error("price tier missing from remote pricing matrix")
	}
}

func (imp *Importer) applyPriceLevel(ctx context.Context, variation *models.ProductVariation, level syncdb.PriceLevel) {
	listName := priceListNameForLevel(level.LevelName)

	for _, brk := range level.Breaks {
		price, err := utils.ParseDecimal(brk.UnitPrice)
		if err != nil {
			config.LogError(imp.logger, "importer", "applyPriceLevel", "unparseable unit price", logrus.Fields{
				"variationId": variation.ID,
				"priceLevel":  level.LevelName,
				"minQuantity": brk.MinQuantity,
				"unitPrice":   brk.UnitPrice,
			}, err)
			continue
		}

		minQuantity := normalizeMinQuantity(brk.MinQuantity)

		if isBasePriceBreak(level.LevelName, minQuantity) {
			if err := models.SetVariationBasePrice(ctx, variation.ID, price); err != nil {
				config.LogError(imp.logger, "importer", "applyPriceLevel", "base price update failed", logrus.Fields{
					"variationId": variation.ID,
				}, err)
			}
			continue
		}

		if listName == "" {
			imp.logger.WithFields(logrus.Fields{
				"module":      "importer",
				"variationId": variation.ID,
				"priceLevel":  level.LevelName,
			}).Warn("no price list mapped for level; break dropped")
			continue
		}

		list, err := models.GetOrCreatePriceList(ctx, listName, level.LevelName)
		if err != nil {
			config.LogError(imp.logger, "importer", "applyPriceLevel", "price list resolve failed", logrus.Fields{
				"variationId": variation.ID,
				"priceList":   listName,
			}, err)
			continue
		}
		if _, err := models.UpsertPriceListItem(ctx, list.ID, variation.ID, minQuantity, price); err != nil {
			config.LogError(imp.logger, "importer", "applyPriceLevel", "price break upsert failed", logrus.Fields{
				"variationId": variation.ID,
				"priceList":   listName,
				"minQuantity": minQuantity,
			}, err)
		}
	}
}
