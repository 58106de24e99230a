package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/syncdb_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusDraft       = "draft"
	OrderStatusPending     = "pending"
	OrderStatusFulfillment = "fulfillment"
	OrderStatusCompleted   = "completed"
	OrderStatusCanceled    = "canceled"
)

const (
	QuoteStatusOpen    = "open"
	QuoteStatusCreated = "created"
)

// Order is a sales order kept in sync with the remote system. The natural
// key is the remote order id.
type Order struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	RemoteId            string          `gorm:"uniqueIndex;size:64;not null" json:"remote_id"`
	OrderNumber         string          `gorm:"index;size:64" json:"order_number"`
	UserId              int             `gorm:"index;default:0" json:"user_id"`
	CompanyId           int             `gorm:"index;default:0" json:"company_id"`
	Status              string          `gorm:"size:20;not null;default:'draft'" json:"status"`
	OrderDate           time.Time       `json:"order_date"`
	SubTotal            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sub_total"`
	ShippingAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_amount"`
	HandlingAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"handling_amount"`
	TaxAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	OrderTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_total"`
	PaymentMethod       string          `gorm:"size:30" json:"payment_method"`
	PONumber            string          `gorm:"size:64" json:"po_number"`
	CardAuthCode        string          `gorm:"size:64" json:"card_auth_code"`
	CardLastFour        string          `gorm:"size:4" json:"card_last_four"`
	HasShipment         *bool           `gorm:"not null;default:false" json:"has_shipment"`
	RemoteTransactionId *string         `gorm:"size:64" json:"remote_transaction_id"`
	ExportedAt          *time.Time      `json:"exported_at"`
	Details             []*OrderDetail  `json:"details"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// OrderDetail is a single line item on an order.
type OrderDetail struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	OrderId            int             `gorm:"index;not null" json:"order_id"`
	ProductVariationId int             `gorm:"index;default:0" json:"product_variation_id"`
	RemoteLineId       string          `gorm:"size:64" json:"remote_line_id"`
	Sku                string          `gorm:"size:100" json:"sku"`
	Description        string          `gorm:"size:255" json:"description"`
	Quantity           int             `gorm:"not null;default:1" json:"quantity"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
	IsDigitalDownload  *bool           `gorm:"not null;default:false" json:"is_digital_download"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Quote is a saved quote kept alongside orders. Quotes surface in the
// customer center once the remote side marks them available.
type Quote struct {
	ID                        int             `gorm:"primary_key" json:"id"`
	RemoteId                  string          `gorm:"uniqueIndex;size:64;not null" json:"remote_id"`
	QuoteNumber               string          `gorm:"index;size:64" json:"quote_number"`
	UserId                    int             `gorm:"index;default:0" json:"user_id"`
	CompanyId                 int             `gorm:"index;default:0" json:"company_id"`
	Status                    string          `gorm:"size:20;not null;default:'open'" json:"status"`
	QuoteTotal                decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quote_total"`
	AvailableInCustomerCenter *bool           `gorm:"not null;default:false" json:"available_in_customer_center"`
	ExpiresAt                 *time.Time      `json:"expires_at"`
	CreatedAt                 time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrder struct {
	RemoteId       string          `json:"remote_id" binding:"required"`
	OrderNumber    string          `json:"order_number"`
	UserId         int             `json:"user_id"`
	CompanyId      int             `json:"company_id"`
	Status         string          `json:"status"`
	OrderDate      time.Time       `json:"order_date"`
	SubTotal       decimal.Decimal `json:"sub_total"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	HandlingAmount decimal.Decimal `json:"handling_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	OrderTotal     decimal.Decimal `json:"order_total"`
	PaymentMethod  string          `json:"payment_method"`
	PONumber       string          `json:"po_number"`
	CardAuthCode   string          `json:"card_auth_code"`
	CardLastFour   string          `json:"card_last_four"`
	HasShipment    *bool           `json:"has_shipment"`
}

type NewOrderDetail struct {
	ProductVariationId int             `json:"product_variation_id"`
	RemoteLineId       string          `json:"remote_line_id"`
	Sku                string          `json:"sku"`
	Description        string          `json:"description"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	LineTotal          decimal.Decimal `json:"line_total"`
	IsDigitalDownload  *bool           `json:"is_digital_download"`
}

type NewQuote struct {
	RemoteId                  string          `json:"remote_id" binding:"required"`
	QuoteNumber               string          `json:"quote_number"`
	UserId                    int             `json:"user_id"`
	CompanyId                 int             `json:"company_id"`
	Status                    string          `json:"status"`
	QuoteTotal                decimal.Decimal `json:"quote_total"`
	AvailableInCustomerCenter *bool           `json:"available_in_customer_center"`
	ExpiresAt                 *time.Time      `json:"expires_at"`
}

func CreateOrder(ctx context.Context, input *NewOrder, details []*NewOrderDetail) (*Order, error) {
	if input.RemoteId == "" {
		return nil, errors.New("remote id is required")
	}
	status := input.Status
	if status == "" {
		status = OrderStatusDraft
	}
	db := config.GetDB()

	order := Order{
		RemoteId:       input.RemoteId,
		OrderNumber:    input.OrderNumber,
		UserId:         input.UserId,
		CompanyId:      input.CompanyId,
		Status:         status,
		OrderDate:      input.OrderDate,
		SubTotal:       input.SubTotal,
		ShippingAmount: input.ShippingAmount,
		HandlingAmount: input.HandlingAmount,
		TaxAmount:      input.TaxAmount,
		OrderTotal:     input.OrderTotal,
		PaymentMethod:  input.PaymentMethod,
		PONumber:       input.PONumber,
		CardAuthCode:   input.CardAuthCode,
		CardLastFour:   input.CardLastFour,
		HasShipment:    input.HasShipment,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, d := range details {
			detail := OrderDetail{
				OrderId:            order.ID,
				ProductVariationId: d.ProductVariationId,
				RemoteLineId:       d.RemoteLineId,
				Sku:                d.Sku,
				Description:        d.Description,
				Quantity:           d.Quantity,
				UnitPrice:          d.UnitPrice,
				LineTotal:          d.LineTotal,
				IsDigitalDownload:  d.IsDigitalDownload,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
			order.Details = append(order.Details, &detail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ReplaceOrderDetails swaps the full line item set of an order. Incoming
// records always carry the complete set, so partial merges are never needed.
func ReplaceOrderDetails(ctx context.Context, orderId int, details []*NewOrderDetail) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderId).Delete(&OrderDetail{}).Error; err != nil {
			return err
		}
		for _, d := range details {
			detail := OrderDetail{
				OrderId:            orderId,
				ProductVariationId: d.ProductVariationId,
				RemoteLineId:       d.RemoteLineId,
				Sku:                d.Sku,
				Description:        d.Description,
				Quantity:           d.Quantity,
				UnitPrice:          d.UnitPrice,
				LineTotal:          d.LineTotal,
				IsDigitalDownload:  d.IsDigitalDownload,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func UpdateOrderAmounts(ctx context.Context, id int, input *NewOrder) error {
	db := config.GetDB()
	updates := map[string]interface{}{
		"order_number":    input.OrderNumber,
		"user_id":         input.UserId,
		"company_id":      input.CompanyId,
		"order_date":      input.OrderDate,
		"sub_total":       input.SubTotal,
		"shipping_amount": input.ShippingAmount,
		"handling_amount": input.HandlingAmount,
		"tax_amount":      input.TaxAmount,
		"order_total":     input.OrderTotal,
		"payment_method":  input.PaymentMethod,
		"po_number":       input.PONumber,
		"card_auth_code":  input.CardAuthCode,
		"card_last_four":  input.CardLastFour,
	}
	if input.HasShipment != nil {
		updates["has_shipment"] = input.HasShipment
	}
	return db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).Updates(updates).Error
}

// SetOrderStatus writes a status without checking the transition. Callers
// must validate transitions first.
func SetOrderStatus(ctx context.Context, id int, status string) error {
	db := config.GetDB()
	return db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).
		Update("status", status).Error
}

// MarkOrderExported records the remote transaction id returned by the
// posting endpoint.
func MarkOrderExported(ctx context.Context, id int, remoteTransactionId string) error {
	db := config.GetDB()
	now := time.Now()
	return db.WithContext(ctx).Model(&Order{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"remote_transaction_id": remoteTransactionId,
			"exported_at":           now,
		}).Error
}

// GetOrderByRemoteId is the order natural key lookup. Returns nil without
// error when no match exists.
func GetOrderByRemoteId(ctx context.Context, remoteId string) (*Order, error) {
	db := config.GetDB()
	var order Order
	err := db.WithContext(ctx).Preload("Details").Where("remote_id = ?", remoteId).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	db := config.GetDB()
	var order Order
	if err := db.WithContext(ctx).Preload("Details").Where("id = ?", id).Take(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func UpsertQuote(ctx context.Context, input *NewQuote) (*Quote, error) {
	if input.RemoteId == "" {
		return nil, errors.New("remote id is required")
	}
	status := input.Status
	if status == "" {
		status = QuoteStatusOpen
	}
	db := config.GetDB()

	var quote Quote
	err := db.WithContext(ctx).Where("remote_id = ?", input.RemoteId).Take(&quote).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		quote = Quote{
			RemoteId:                  input.RemoteId,
			QuoteNumber:               input.QuoteNumber,
			UserId:                    input.UserId,
			CompanyId:                 input.CompanyId,
			Status:                    status,
			QuoteTotal:                input.QuoteTotal,
			AvailableInCustomerCenter: input.AvailableInCustomerCenter,
			ExpiresAt:                 input.ExpiresAt,
		}
		if err := db.WithContext(ctx).Create(&quote).Error; err != nil {
			return nil, err
		}
		return &quote, nil
	}

	updates := map[string]interface{}{
		"quote_number": input.QuoteNumber,
		"user_id":      input.UserId,
		"company_id":   input.CompanyId,
		"status":       status,
		"quote_total":  input.QuoteTotal,
		"expires_at":   input.ExpiresAt,
	}
	if input.AvailableInCustomerCenter != nil {
		updates["available_in_customer_center"] = input.AvailableInCustomerCenter
	}
	if err := db.WithContext(ctx).Model(&quote).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &quote, nil
}

// DeleteAllOrders removes every order, order detail and quote. Maintenance
// operation behind an explicit confirmation.
func DeleteAllOrders(ctx context.Context) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&OrderDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&Order{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&Quote{}).Error
	})
}
