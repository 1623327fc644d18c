package roles

import (
	"marketplace/internal/models"
)

// ownerTransitions are the edges a vendor owner may apply. The
// delivered -> return_requested edge is applied by the owner when the
// customer asks for a return; customers hold no direct edges themselves.
var ownerTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPaymentReceived:  {models.StatusProcessing, models.StatusOnHold},
	models.StatusProcessing:       {models.StatusReadyForShipment, models.StatusOnHold},
	models.StatusReadyForShipment: {models.StatusShipped},
	models.StatusShipped:          {models.StatusOutForDelivery},
	models.StatusOutForDelivery:   {models.StatusDelivered},
	models.StatusDelivered:        {models.StatusReturnRequested},
	models.StatusReturnRequested:  {models.StatusReturnApproved, models.StatusCancelled},
}

// staffTransitions are the fulfillment edges available to manager and
// customer-service employees whose permission row grants status updates.
var staffTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPaymentReceived:  {models.StatusProcessing},
	models.StatusProcessing:       {models.StatusReadyForShipment},
	models.StatusReadyForShipment: {models.StatusShipped},
}

// adminBlocked are the states admins cannot leave. Delivered is terminal too
// but keeps its own row: admins may still move a delivered order anywhere as
// the support escape hatch.
var adminBlocked = map[models.OrderStatus]bool{
	models.StatusCancelled: true,
	models.StatusRefunded:  true,
	models.StatusFailed:    true,
}

// AllowedTransitions returns the statuses the role may move an order to from
// the given status. The result is ordered by the status declaration order
// and is a pure function of its inputs.
func AllowedTransitions(role Role, from models.OrderStatus) []models.OrderStatus {
	switch role.Kind {
	case KindAdmin:
		if adminBlocked[from] {
			return nil
		}
		out := make([]models.OrderStatus, 0, len(models.AllStatuses)-1)
		for _, s := range models.AllStatuses {
			if s != from {
				out = append(out, s)
			}
		}
		return out
	case KindVendorOwner:
		return append([]models.OrderStatus(nil), ownerTransitions[from]...)
	case KindVendorEmployee:
		if role.EmployeeRole != models.EmployeeManager && role.EmployeeRole != models.EmployeeCustomerService {
			return nil
		}
		return append([]models.OrderStatus(nil), staffTransitions[from]...)
	default:
		return nil
	}
}

// CanTransition reports whether the role may move an order from one status
// to another.
func CanTransition(role Role, from, to models.OrderStatus) bool {
	for _, s := range AllowedTransitions(role, from) {
		if s == to {
			return true
		}
	}
	return false
}
