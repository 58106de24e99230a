package importer

import (
	"context"
	"errors"
	"strings"

	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/mmdatafocus/syncdb_backend/syncdb"
	"github.com/mmdatafocus/syncdb_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ImportOrder fetches one remote order and upserts it, walking the order's
// local state through the transitions the remote status implies. Quote-type
// records take the quote path instead.
func (imp *Importer) ImportOrder(ctx context.Context, remoteId string) error {
	return imp.withRemoteLock(ctx, string(models.SyncDomainOrder), remoteId, func(ctx context.Context) error {
		raw, err := imp.client.GetRecord(ctx, syncdb.DomainOrders, remoteId)
		if err != nil {
			if errors.Is(err, syncdb.ErrRecordNotFound) {
				return MappingErrorf("remote order %s no longer exists", remoteId)
			}
			return err
		}
		var remote syncdb.RemoteOrder
		if err := utils.UnmarshalFromJSON(raw, &remote); err != nil {
			return MappingErrorf("remote order %s: invalid payload: %v", remoteId, err)
		}

		if remote.IsQuote {
			return imp.upsertQuote(ctx, &remote)
		}
		return imp.upsertOrder(ctx, raw, &remote)
	})
}

func (imp *Importer) upsertOrder(ctx context.Context, raw []byte, remote *syncdb.RemoteOrder) error {
	userId, companyId, err := imp.resolveOrderParties(ctx, remote)
	if err != nil {
		return err
	}

	amounts, err := parseOrderAmounts(remote)
	if err != nil {
		return err
	}
	orderDate, err := utils.ParseRemoteTime(remote.OrderDate)
	if err != nil {
		return MappingErrorf("remote order %s: bad order date %q", remote.Id, remote.OrderDate)
	}

	hasShipment := utils.NewFalse()
	if remote.HasShipment {
		hasShipment = utils.NewTrue()
	}
	input := &models.NewOrder{
		RemoteId:       remote.Id,
		OrderNumber:    remote.OrderNumber,
		UserId:         userId,
		CompanyId:      companyId,
		OrderDate:      orderDate,
		SubTotal:       amounts.subTotal,
		ShippingAmount: amounts.shipping,
		HandlingAmount: amounts.handling,
		TaxAmount:      amounts.tax,
		OrderTotal:     amounts.total,
		PaymentMethod:  remote.PaymentMethod,
		PONumber:       remote.PONumber,
		CardAuthCode:   remote.CardAuthCode,
		CardLastFour:   remote.CardLastFour,
		HasShipment:    hasShipment,
	}

	details, hasDigital, err := imp.buildOrderDetails(ctx, remote)
	if err != nil {
		return err
	}

	order, err := models.GetOrderByRemoteId(ctx, remote.Id)
	if err != nil {
		return err
	}
	if order == nil {
		order, err = models.CreateOrder(ctx, input, details)
		if err != nil {
			return err
		}
	} else {
		if err := models.UpdateOrderAmounts(ctx, order.ID, input); err != nil {
			return err
		}
		if err := models.ReplaceOrderDetails(ctx, order.ID, details); err != nil {
			return err
		}
	}

	imp.applyRemoteStatus(ctx, order, remote.Status)

	// A canceled order must not re-issue the grants the cancel just revoked.
	if hasDigital && order.Status != models.OrderStatusCanceled {
		if _, err := imp.queue.Enqueue(ctx, models.SyncDomainLicense, remote.Id, raw); err != nil {
			return err
		}
	}
	return nil
}

// applyRemoteStatus walks the order through the transitions the remote
// status implies. An invalid transition is logged and skipped; it must not
// undo the field update that carried it.
func (imp *Importer) applyRemoteStatus(ctx context.Context, order *models.Order, remoteStatus string) {
	steps, err := OrderTransitions(order.Status, remoteStatus)
	if err != nil {
		imp.logger.WithFields(logrus.Fields{
			"module":       "importer",
			"orderId":      order.ID,
			"localStatus":  order.Status,
			"remoteStatus": remoteStatus,
		}).Error("invalid order state transition: " + err.Error())
		return
	}
	for _, next := range steps {
		if err := models.SetOrderStatus(ctx, order.ID, next); err != nil {
			imp.logger.WithFields(logrus.Fields{
				"module":  "importer",
				"orderId": order.ID,
				"status":  next,
			}).Error("order status update failed: " + err.Error())
			return
		}
		order.Status = next

		if next == models.OrderStatusCanceled {
			revoked, err := models.RevokeLicenseGrantsForTransaction(ctx, order.RemoteId)
			if err != nil {
				imp.logger.WithFields(logrus.Fields{
					"module":  "importer",
					"orderId": order.ID,
				}).Error("license revocation on cancel failed: " + err.Error())
			} else if revoked > 0 {
				imp.logger.WithFields(logrus.Fields{
					"module":  "importer",
					"orderId": order.ID,
					"revoked": revoked,
				}).Info("licenses revoked for canceled order")
			}
		}
	}
}

func (imp *Importer) upsertQuote(ctx context.Context, remote *syncdb.RemoteOrder) error {
	// Quotes the remote side keeps out of the customer center never
	// materialize locally.
	if !remote.AvailableInCC {
		return nil
	}

	userId, companyId, err := imp.resolveOrderParties(ctx, remote)
	if err != nil {
		return err
	}
	total, err := utils.ParseDecimal(remote.OrderTotal)
	if err != nil {
		return MappingErrorf("remote quote %s: bad total %q", remote.Id, remote.OrderTotal)
	}

	status := models.QuoteStatusOpen
	if remote.Status == RemoteStatusBilled {
		status = models.QuoteStatusCreated
	}

	_, err = models.UpsertQuote(ctx, &models.NewQuote{
		RemoteId:                  remote.Id,
		QuoteNumber:               remote.OrderNumber,
		UserId:                    userId,
		CompanyId:                 companyId,
		Status:                    status,
		QuoteTotal:                total,
		AvailableInCustomerCenter: utils.NewTrue(),
	})
	return err
}

// resolveOrderParties maps the order's customer references to local rows,
// fetching from the remote directory when the feeds have not caught up yet.
func (imp *Importer) resolveOrderParties(ctx context.Context, remote *syncdb.RemoteOrder) (int, int, error) {
	userId := 0
	email := strings.ToLower(strings.TrimSpace(remote.UserEmail))
	if email == "" {
		return 0, 0, MappingErrorf("remote order %s has no customer email", remote.Id)
	}
	user, err := models.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, 0, err
	}
	if user == nil {
		raw, err := imp.client.GetRecordByKey(ctx, syncdb.DomainUsers, "email", email)
		if err != nil {
			if errors.Is(err, syncdb.ErrRecordNotFound) {
				return 0, 0, MappingErrorf("remote order %s references unknown customer %s", remote.Id, email)
			}
			return 0, 0, err
		}
		var remoteUser syncdb.RemoteUser
		if err := utils.UnmarshalFromJSON(raw, &remoteUser); err != nil {
			return 0, 0, MappingErrorf("remote order %s: invalid customer payload: %v", remote.Id, err)
		}
		user, err = imp.upsertUser(ctx, &remoteUser)
		if err != nil {
			return 0, 0, err
		}
	}
	userId = user.ID

	companyId := 0
	accountNumber := strings.TrimSpace(remote.AccountNumber)
	if accountNumber != "" {
		company, err := models.GetCompanyByAccountNumber(ctx, accountNumber)
		if err != nil {
			return 0, 0, err
		}
		if company == nil {
			raw, err := imp.client.GetRecordByKey(ctx, syncdb.DomainCompanies, "accountNumber", accountNumber)
			if err != nil && !errors.Is(err, syncdb.ErrRecordNotFound) {
				return 0, 0, err
			}
			if err == nil {
				var remoteCompany syncdb.RemoteCompany
				if uerr := utils.UnmarshalFromJSON(raw, &remoteCompany); uerr == nil && remoteCompany.Id != "" {
					company, err = imp.ensureCompany(ctx, remoteCompany.Id)
					if err != nil {
						return 0, 0, err
					}
				}
			}
		}
		if company != nil {
			companyId = company.ID
		}
	}
	return userId, companyId, nil
}

type orderAmounts struct {
	subTotal decimal.Decimal
	shipping decimal.Decimal
	handling decimal.Decimal
	tax      decimal.Decimal
	total    decimal.Decimal
}

func parseOrderAmounts(remote *syncdb.RemoteOrder) (*orderAmounts, error) {
	parse := func(field, v string) (decimal.Decimal, error) {
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, nil
		}
		d, err := utils.ParseDecimal(v)
		if err != nil {
			return decimal.Zero, MappingErrorf("remote order %s: bad %s %q", remote.Id, field, v)
		}
		return d, nil
	}

	var amounts orderAmounts
	var err error
	if amounts.subTotal, err = parse("subtotal", remote.SubTotal); err != nil {
		return nil, err
	}
	if amounts.shipping, err = parse("shipping amount", remote.ShippingAmount); err != nil {
		return nil, err
	}
	if amounts.handling, err = parse("handling amount", remote.HandlingAmount); err != nil {
		return nil, err
	}
	if amounts.tax, err = parse("tax amount", remote.TaxAmount); err != nil {
		return nil, err
	}
	if amounts.total, err = parse("order total", remote.OrderTotal); err != nil {
		return nil, err
	}
	return &amounts, nil
}

func (imp *Importer) buildOrderDetails(ctx context.Context, remote *syncdb.RemoteOrder) ([]*models.NewOrderDetail, bool, error) {
	var details []*models.NewOrderDetail
	hasDigital := false
	for _, line := range remote.LineItems {
		variationId := 0
		if line.ProductId != "" {
			variation, err := imp.ensureVariation(ctx, line.ProductId)
			if err != nil {
				return nil, false, err
			}
			if variation != nil {
				variationId = variation.ID
			}
		}

		unitPrice, err := utils.ParseDecimal(line.UnitPrice)
		if err != nil {
			return nil, false, MappingErrorf("remote order %s line %s: bad unit price %q", remote.Id, line.Id, line.UnitPrice)
		}
		lineTotal, err := utils.ParseDecimal(line.LineTotal)
		if err != nil {
			return nil, false, MappingErrorf("remote order %s line %s: bad line total %q", remote.Id, line.Id, line.LineTotal)
		}

		isDigital := utils.NewFalse()
		if line.IsDigitalDownload {
			isDigital = utils.NewTrue()
			hasDigital = true
		}
		details = append(details, &models.NewOrderDetail{
			ProductVariationId: variationId,
			RemoteLineId:       line.Id,
			Sku:                line.Sku,
			Description:        line.Description,
			Quantity:           line.Quantity,
			UnitPrice:          unitPrice,
			LineTotal:          lineTotal,
			IsDigitalDownload:  isDigital,
		})
	}
	return details, hasDigital, nil
}

// ensureVariation resolves a line item's variation by remote id, importing
// the product on a miss so the order never references a variation the
// catalog does not hold.
func (imp *Importer) ensureVariation(ctx context.Context, remoteProductId string) (*models.ProductVariation, error) {
	variation, err := models.GetVariationByRemoteId(ctx, remoteProductId)
	if err != nil {
		return nil, err
	}
	if variation != nil {
		return variation, nil
	}
	if err := imp.ImportProduct(ctx, remoteProductId); err != nil {
		if IsMappingError(err) {
			// Line survives without a catalog link.
			imp.logger.WithFields(logrus.Fields{
				"module":          "importer",
				"remoteProductId": remoteProductId,
			}).Error("line item product unmappable: " + err.Error())
			return nil, nil
		}
		return nil, err
	}
	return models.GetVariationByRemoteId(ctx, remoteProductId)
}
