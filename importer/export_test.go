package importer

import (
	"testing"

	"github.com/mmdatafocus/syncdb_backend/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCheckOrderTotal(t *testing.T) {
	tests := []struct {
		name     string
		sub      string
		tax      string
		shipping string
		handling string
		total    string
		wantErr  bool
	}{
		{
			name: "exact match passes",
			sub:  "100.00", tax: "8.00", shipping: "5.00", handling: "0.00",
			total: "113.00",
		},
		{
			name: "mismatch fails",
			sub:  "100.00", tax: "8.00", shipping: "5.00", handling: "0.00",
			total: "110.00", wantErr: true,
		},
		{
			name: "different scale but equal value passes",
			sub:  "100", tax: "8", shipping: "5", handling: "0",
			total: "113.0000",
		},
		{
			name: "penny drift fails",
			sub:  "19.99", tax: "1.60", shipping: "0", handling: "0",
			total: "21.60", wantErr: true,
		},
		{
			name: "zero order passes",
			sub:  "0", tax: "0", shipping: "0", handling: "0",
			total: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &models.Order{
				SubTotal:       d(tt.sub),
				TaxAmount:      d(tt.tax),
				ShippingAmount: d(tt.shipping),
				HandlingAmount: d(tt.handling),
				OrderTotal:     d(tt.total),
			}
			err := CheckOrderTotal(order)
			if tt.wantErr {
				if err == nil {
					t.Fatal("CheckOrderTotal: want error, got nil")
				}
				if !IsConsistencyError(err) {
					t.Fatalf("CheckOrderTotal: mismatch must be a consistency error, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CheckOrderTotal: %v", err)
			}
		})
	}
}
