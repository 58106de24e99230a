package importer

import (
	"reflect"
	"testing"

	"github.com/mmdatafocus/syncdb_backend/models"
)

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name         string
		current      string
		remoteStatus string
		want         []string
		wantErr      bool
	}{
		{
			name:         "pending approval from draft",
			current:      models.OrderStatusDraft,
			remoteStatus: RemoteStatusPendingApproval,
			want:         []string{models.OrderStatusPending},
		},
		{
			name:         "pending billing already pending is a no-op",
			current:      models.OrderStatusPending,
			remoteStatus: RemoteStatusPendingBilling,
			want:         nil,
		},
		{
			name:         "pending fulfillment from draft",
			current:      models.OrderStatusDraft,
			remoteStatus: RemoteStatusPendingFulfillment,
			want:         []string{models.OrderStatusFulfillment},
		},
		{
			name:         "partially fulfilled from pending",
			current:      models.OrderStatusPending,
			remoteStatus: RemoteStatusPartiallyFulfilled,
			want:         []string{models.OrderStatusFulfillment},
		},
		{
			name:         "billed from fulfillment completes",
			current:      models.OrderStatusFulfillment,
			remoteStatus: RemoteStatusBilled,
			want:         []string{models.OrderStatusCompleted},
		},
		{
			name:         "billed from draft passes through fulfillment",
			current:      models.OrderStatusDraft,
			remoteStatus: RemoteStatusBilled,
			want:         []string{models.OrderStatusFulfillment, models.OrderStatusCompleted},
		},
		{
			name:         "billed from pending passes through fulfillment",
			current:      models.OrderStatusPending,
			remoteStatus: RemoteStatusBilled,
			want:         []string{models.OrderStatusFulfillment, models.OrderStatusCompleted},
		},
		{
			name:         "cancelled from draft",
			current:      models.OrderStatusDraft,
			remoteStatus: RemoteStatusCancelled,
			want:         []string{models.OrderStatusCanceled},
		},
		{
			name:         "closed from fulfillment",
			current:      models.OrderStatusFulfillment,
			remoteStatus: RemoteStatusClosed,
			want:         []string{models.OrderStatusCanceled},
		},
		{
			name:         "billed on a canceled order is rejected",
			current:      models.OrderStatusCanceled,
			remoteStatus: RemoteStatusBilled,
			wantErr:      true,
		},
		{
			name:         "cancelled on a completed order cancels it",
			current:      models.OrderStatusCompleted,
			remoteStatus: RemoteStatusCancelled,
			want:         []string{models.OrderStatusCanceled},
		},
		{
			name:         "closed on a canceled order is a no-op",
			current:      models.OrderStatusCanceled,
			remoteStatus: RemoteStatusClosed,
			want:         nil,
		},
		{
			name:         "pending approval from fulfillment is rejected",
			current:      models.OrderStatusFulfillment,
			remoteStatus: RemoteStatusPendingApproval,
			wantErr:      true,
		},
		{
			name:         "unknown remote status is rejected",
			current:      models.OrderStatusDraft,
			remoteStatus: "Mystery State",
			wantErr:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OrderTransitions(tt.current, tt.remoteStatus)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("OrderTransitions(%q, %q) = %v, want error", tt.current, tt.remoteStatus, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("OrderTransitions(%q, %q): %v", tt.current, tt.remoteStatus, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("OrderTransitions(%q, %q) = %v, want %v", tt.current, tt.remoteStatus, got, tt.want)
			}
		})
	}
}
