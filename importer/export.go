package importer

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/sirupsen/logrus"
)

// CheckOrderTotal recomputes the expected grand total and compares it to
// the stored one with exact decimal equality. Separated out so the check is
// testable without a database.
func CheckOrderTotal(order *models.Order) error {
	expected := order.SubTotal.
		Add(order.TaxAmount).
		Add(order.ShippingAmount).
		Add(order.HandlingAmount)
	if !expected.Equal(order.OrderTotal) {
		return ConsistencyErrorf("order %d total mismatch: stored %s, computed %s",
			order.ID, order.OrderTotal.String(), expected.String())
	}
	return nil
}

// ExportOrder posts a completed order to the remote system. A total
// mismatch is a permanent failure; retrying cannot repair stored data. A
// remote or network failure surfaces as a plain error and the queue's retry
// policy takes it from there.
func (imp *Importer) ExportOrder(ctx context.Context, orderId int) (*syncdb.TransactionResult, error) {
	order, err := models.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}

	if err := CheckOrderTotal(order); err != nil {
		imp.logger.WithFields(logrus.Fields{
			"module":  "importer",
			"orderId": order.ID,
		}).Error(err.Error())
		return nil, err
	}

	payload, err := imp.buildTransactionPayload(ctx, order)
	if err != nil {
		return nil, err
	}

	result, err := imp.client.PostTransaction(ctx, payload)
	if err != nil {
		return nil, err
	}

	if err := models.MarkOrderExported(ctx, order.ID, result.TransactionId); err != nil {
		return nil, err
	}
	imp.logger.WithFields(logrus.Fields{
		"module":        "importer",
		"orderId":       order.ID,
		"transactionId": result.TransactionId,
	}).Info("order exported")

	if topic := strings.TrimSpace(os.Getenv("SYNC_EXPORT_TOPIC")); topic != "" {
		event := map[string]interface{}{
			"orderId":       order.ID,
			"orderNumber":   order.OrderNumber,
			"transactionId": result.TransactionId,
		}
		if err := config.PublishJSON(ctx, topic, event); err != nil {
			imp.logger.WithFields(logrus.Fields{
				"module":  "importer",
				"orderId": order.ID,
			}).WithError(err).Warn("export announce failed")
		}
	}
	return result, nil
}

func (imp *Importer) buildTransactionPayload(ctx context.Context, order *models.Order) (*syncdb.TransactionPayload, error) {
	payload := &syncdb.TransactionPayload{
		OrderNumber:     order.OrderNumber,
		TransactionDate: order.OrderDate.UTC().Format(time.RFC3339),
		SubTotal:        order.SubTotal.String(),
		TaxTotal:        order.TaxAmount.String(),
		ShippingCost:    order.ShippingAmount.String(),
		HandlingCost:    order.HandlingAmount.String(),
		GrandTotal:      order.OrderTotal.String(),
		PaymentMethod:   order.PaymentMethod,
	}

	// Purchase-order and card payments carry different reference fields.
	switch strings.ToLower(order.PaymentMethod) {
	case "purchase_order", "po":
		payload.PONumber = order.PONumber
	case "card", "credit_card":
		payload.CardAuthCode = order.CardAuthCode
		payload.CardLastFour = order.CardLastFour
	}

	if order.UserId != 0 {
		user, err := models.GetUser(ctx, order.UserId)
		if err != nil {
			return nil, err
		}
		payload.CustomerEmail = user.Email
		billing, shipping := pickAddresses(user.Addresses)
		payload.BillingAddress = billing
		payload.ShippingAddress = shipping
	}
	if order.CompanyId != 0 {
		company, err := models.GetCompany(ctx, order.CompanyId)
		if err != nil {
			return nil, err
		}
		payload.AccountNumber = company.AccountNumber
		if payload.BillingAddress == nil {
			billing, shipping := pickAddresses(company.Addresses)
			payload.BillingAddress = billing
			if payload.ShippingAddress == nil {
				payload.ShippingAddress = shipping
			}
		}
	}

	for _, d := range order.Details {
		taxShare := "0"
		if order.SubTotal.IsPositive() && !order.TaxAmount.IsZero() {
			taxShare = d.LineTotal.Div(order.SubTotal).Mul(order.TaxAmount).Round(4).String()
		}
		payload.Items = append(payload.Items, syncdb.TransactionItem{
			Sku:       d.Sku,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice.String(),
			TaxAmount: taxShare,
		})
	}

	if order.HasShipment != nil && *order.HasShipment && payload.ShippingAddress != nil {
		country := payload.ShippingAddress.Country
		if country != "" && !strings.EqualFold(country, "US") && !strings.EqualFold(country, "United States") {
			payload.Customs = &syncdb.CustomsDeclaration{
				ContentsType:    "merchandise",
				DeclaredValue:   order.SubTotal.String(),
				CountryOfOrigin: "US",
			}
		}
	}
	return payload, nil
}

// pickAddresses maps saved addresses to the payload's billing/shipping
// slots: labeled ones win, then the default, then the first on file.
func pickAddresses(addresses []*models.AddressProfile) (*syncdb.RemoteAddress, *syncdb.RemoteAddress) {
	var billing, shipping, fallback *syncdb.RemoteAddress
	for _, a := range addresses {
		ra := &syncdb.RemoteAddress{
			Id:        a.RemoteAddressId,
			Label:     a.Label,
			Attention: a.Attention,
			Line1:     a.Line1,
			Line2:     a.Line2,
			City:      a.City,
			State:     a.State,
			Zip:       a.Zip,
			Country:   a.Country,
			Phone:     a.Phone,
		}
		switch strings.ToLower(a.Label) {
		case "billing":
			billing = ra
		case "shipping":
			shipping = ra
		}
		if fallback == nil || (a.IsDefault != nil && *a.IsDefault) {
			fallback = ra
		}
	}
	if billing == nil {
		billing = fallback
	}
	if shipping == nil {
		shipping = fallback
	}
	return billing, shipping
}
