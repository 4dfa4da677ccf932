// Package journey derives the canonical lifecycle stage and the categorical
// delivery/dispatch/payment classes from a merged order's per-source status
// fields. Every classifier here is a total pure function: each input
// combination maps to exactly one output, and re-running on unchanged inputs
// never changes it.
package journey

import (
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// Signals are the per-source status fields a stage classification reads.
type Signals struct {
	FinancialStatus   string // storefront, verbatim: paid, pending, partially_paid, refunded, ...
	PaymentStatus     string // gateway, verbatim: captured, refunded, failed
	DeliveryClass     model.DeliveryClass
	DeliveryStatusRaw string // provider status, verbatim
	HasShipment       bool
	Cancelled         bool // storefront cancelled_at present
	RTOCompleted      bool // provider reported RTO delivered back to origin
}

// ClassifyStage maps merged source signals to one lifecycle stage.
//
// Precedence, highest first: a refund signal from either the storefront or
// the gateway overrides any paid state; a pre-ship cancellation is terminal;
// a terminal provider status (delivered, RTO) overrides in-transit; then the
// remaining delivery and payment signals in lifecycle order.
func ClassifyStage(s Signals) model.Stage {
	fin := strings.ToLower(strings.TrimSpace(s.FinancialStatus))
	pay := strings.ToLower(strings.TrimSpace(s.PaymentStatus))

	if fin == "refunded" || fin == "partially_refunded" || pay == "refunded" {
		return model.StageRefunded
	}

	if (s.Cancelled || fin == "voided" || s.DeliveryClass == model.DeliveryCancelled) && !s.HasShipment {
		return model.StageCancelledPre
	}

	switch s.DeliveryClass {
	case model.DeliveryDelivered:
		return model.StageDelivered
	case model.DeliveryRTO:
		if s.RTOCompleted || strings.EqualFold(s.DeliveryStatusRaw, "RTO_DELIVERED") {
			return model.StageRTOCompleted
		}
		return model.StageRTOInitiated
	case model.DeliveryCancelled:
		// Cancelled after pickup: treat like a pre-ship cancel, the order
		// never reached the customer.
		return model.StageCancelledPre
	case model.DeliveryInTransit:
		if strings.EqualFold(s.DeliveryStatusRaw, "FAILED_DELIVERY") {
			return model.StageDeliveryFailed
		}
		return model.StageInTransit
	}

	if s.HasShipment {
		return model.StageShipped
	}

	switch {
	case pay == "captured" || fin == "paid":
		return model.StagePaymentCaptured
	case fin == "pending" || fin == "partially_paid":
		return model.StagePaymentPending
	}
	return model.StageOrderPlaced
}

// ClassifyRevenue groups an order by whether its revenue is realized,
// pending, or lost.
func ClassifyRevenue(stage model.Stage, deliveryClass model.DeliveryClass) model.RevenueCategory {
	if stage == model.StageDelivered {
		return model.RevenueActual
	}
	switch deliveryClass {
	case model.DeliveryInTransit, model.DeliveryNotShipped:
		if stage == model.StageRefunded || stage == model.StageCancelledPre {
			return model.RevenueLost
		}
		return model.RevenuePending
	}
	return model.RevenueLost
}
