package journey

import (
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// StatusMap maps a logistics provider's raw status values to delivery
// classes. New provider statuses are added here (or via config) without
// touching matcher or flag logic.
type StatusMap map[string]model.DeliveryClass

// DefaultStatusMap covers the stock provider vocabulary.
func DefaultStatusMap() StatusMap {
	return StatusMap{
		"DELIVERED":            model.DeliveryDelivered,
		"SHIPMENT_DELAYED":     model.DeliveryInTransit,
		"OUT_FOR_DELIVERY":     model.DeliveryInTransit,
		"IN_TRANSIT":           model.DeliveryInTransit,
		"PICKED_UP":            model.DeliveryInTransit,
		"FAILED_DELIVERY":      model.DeliveryInTransit,
		"CANCELLED_ORDER":      model.DeliveryCancelled,
		"RTO_DELIVERED":        model.DeliveryRTO,
		"RTO_REQUESTED":        model.DeliveryRTO,
		"RTO_INTRANSIT":        model.DeliveryRTO,
		"RTO_OUT_FOR_DELIVERY": model.DeliveryRTO,
	}
}

// ClassifyDelivery maps a raw provider status to a delivery class. An order
// with no shipment at all is not_shipped. An unmapped status classifies as
// in_transit until a mapping is added; classification stays total either way.
func (m StatusMap) ClassifyDelivery(statusRaw string, hasShipment bool) model.DeliveryClass {
	if !hasShipment {
		return model.DeliveryNotShipped
	}
	if class, ok := m[strings.ToUpper(strings.TrimSpace(statusRaw))]; ok {
		return class
	}
	return model.DeliveryInTransit
}
