package importer

import (
	"fmt"

	"github.com/mmdatafocus/syncdb_backend/models"
)

// Remote status codes as the system of record spells them.
const (
	RemoteStatusPendingApproval       = "Pending Approval"
	RemoteStatusPendingBilling        = "Pending Billing"
	RemoteStatusPendingFulfillment    = "Pending Fulfillment"
	RemoteStatusPartiallyFulfilled    = "Partially Fulfilled"
	RemoteStatusPendingBillingPartial = "Pending Billing-Partially Fulfilled"
	RemoteStatusBilled                = "Billed"
	RemoteStatusCancelled             = "Cancelled"
	RemoteStatusClosed                = "Closed"
)

// OrderTransitions resolves a remote status code against the current local
// state and returns the ordered states to walk through. Billed from draft or
// pending passes through fulfillment before completing, so history never
// skips a stage. An empty slice means the order is already where the remote
// status would put it.
func OrderTransitions(current, remoteStatus string) ([]string, error) {
	switch remoteStatus {
	case RemoteStatusPendingApproval, RemoteStatusPendingBilling:
		switch current {
		case models.OrderStatusDraft:
			return []string{models.OrderStatusPending}, nil
		case models.OrderStatusPending:
			return nil, nil
		}
	case RemoteStatusPendingFulfillment, RemoteStatusPartiallyFulfilled, RemoteStatusPendingBillingPartial:
		switch current {
		case models.OrderStatusDraft, models.OrderStatusPending:
			return []string{models.OrderStatusFulfillment}, nil
		case models.OrderStatusFulfillment:
			return nil, nil
		}
	case RemoteStatusBilled:
		switch current {
		case models.OrderStatusFulfillment:
			return []string{models.OrderStatusCompleted}, nil
		case models.OrderStatusDraft, models.OrderStatusPending:
			return []string{models.OrderStatusFulfillment, models.OrderStatusCompleted}, nil
		case models.OrderStatusCompleted:
			return nil, nil
		}
	case RemoteStatusCancelled, RemoteStatusClosed:
		// Cancellation lands from any state, completed included: the remote
		// side refunds billed orders by closing them.
		if current == models.OrderStatusCanceled {
			return nil, nil
		}
		return []string{models.OrderStatusCanceled}, nil
	default:
		return nil, fmt.Errorf("unrecognized remote status %q", remoteStatus)
	}
	return nil, fmt.Errorf("remote status %q not allowed from local state %q", remoteStatus, current)
}
