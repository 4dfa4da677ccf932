package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/topbeat/reconcile-cli/internal/model"
)

func TestClassifyStage(t *testing.T) {
	tests := []struct {
		name string
		in   Signals
		want model.Stage
	}{
		{
			"no signals at all",
			Signals{DeliveryClass: model.DeliveryNotShipped},
			model.StageOrderPlaced,
		},
		{
			"pending payment",
			Signals{FinancialStatus: "pending", DeliveryClass: model.DeliveryNotShipped},
			model.StagePaymentPending,
		},
		{
			"paid not shipped",
			Signals{FinancialStatus: "paid", DeliveryClass: model.DeliveryNotShipped},
			model.StagePaymentCaptured,
		},
		{
			"gateway captured overrides missing storefront status",
			Signals{PaymentStatus: "captured", DeliveryClass: model.DeliveryNotShipped},
			model.StagePaymentCaptured,
		},
		{
			"cancelled before shipping",
			Signals{FinancialStatus: "paid", Cancelled: true, DeliveryClass: model.DeliveryNotShipped},
			model.StageCancelledPre,
		},
		{
			"voided equals cancelled",
			Signals{FinancialStatus: "voided", DeliveryClass: model.DeliveryNotShipped},
			model.StageCancelledPre,
		},
		{
			"in transit",
			Signals{FinancialStatus: "paid", HasShipment: true, DeliveryClass: model.DeliveryInTransit, DeliveryStatusRaw: "OUT_FOR_DELIVERY"},
			model.StageInTransit,
		},
		{
			"failed delivery is its own stage",
			Signals{FinancialStatus: "paid", HasShipment: true, DeliveryClass: model.DeliveryInTransit, DeliveryStatusRaw: "FAILED_DELIVERY"},
			model.StageDeliveryFailed,
		},
		{
			"terminal provider status overrides transit-looking storefront state",
			Signals{FinancialStatus: "pending", HasShipment: true, DeliveryClass: model.DeliveryDelivered, DeliveryStatusRaw: "DELIVERED"},
			model.StageDelivered,
		},
		{
			"rto in progress",
			Signals{FinancialStatus: "paid", HasShipment: true, DeliveryClass: model.DeliveryRTO, DeliveryStatusRaw: "RTO_INTRANSIT"},
			model.StageRTOInitiated,
		},
		{
			"rto completed",
			Signals{FinancialStatus: "paid", HasShipment: true, DeliveryClass: model.DeliveryRTO, DeliveryStatusRaw: "RTO_DELIVERED"},
			model.StageRTOCompleted,
		},
		{
			"gateway refund overrides storefront paid",
			Signals{FinancialStatus: "paid", PaymentStatus: "refunded", HasShipment: true, DeliveryClass: model.DeliveryDelivered},
			model.StageRefunded,
		},
		{
			"storefront refund overrides delivered",
			Signals{FinancialStatus: "refunded", HasShipment: true, DeliveryClass: model.DeliveryDelivered, DeliveryStatusRaw: "DELIVERED"},
			model.StageRefunded,
		},
		{
			"shipment exists but provider has no transit status yet",
			Signals{FinancialStatus: "paid", HasShipment: true, DeliveryClass: ""},
			model.StageShipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStage(tt.in))
		})
	}
}

// Classification must be total and deterministic: every combination of the
// enumerated inputs yields exactly one stage, and the same combination
// always yields the same stage.
func TestClassifyStage_TotalAndDeterministic(t *testing.T) {
	finStatuses := []string{"", "paid", "pending", "partially_paid", "refunded", "partially_refunded", "voided"}
	payStatuses := []string{"", "captured", "refunded", "failed"}
	classes := []model.DeliveryClass{"", model.DeliveryNotShipped, model.DeliveryInTransit, model.DeliveryDelivered, model.DeliveryRTO, model.DeliveryCancelled}
	raws := []string{"", "DELIVERED", "FAILED_DELIVERY", "RTO_DELIVERED", "RTO_INTRANSIT"}

	for _, fin := range finStatuses {
		for _, pay := range payStatuses {
			for _, class := range classes {
				for _, raw := range raws {
					for _, shipped := range []bool{false, true} {
						for _, cancelled := range []bool{false, true} {
							s := Signals{
								FinancialStatus:   fin,
								PaymentStatus:     pay,
								DeliveryClass:     class,
								DeliveryStatusRaw: raw,
								HasShipment:       shipped,
								Cancelled:         cancelled,
							}
							first := ClassifyStage(s)
							assert.NotEmpty(t, first, "no stage for %+v", s)
							assert.Equal(t, first, ClassifyStage(s), "unstable for %+v", s)
						}
					}
				}
			}
		}
	}
}

func TestClassifyRevenue(t *testing.T) {
	assert.Equal(t, model.RevenueActual, ClassifyRevenue(model.StageDelivered, model.DeliveryDelivered))
	assert.Equal(t, model.RevenuePending, ClassifyRevenue(model.StageInTransit, model.DeliveryInTransit))
	assert.Equal(t, model.RevenuePending, ClassifyRevenue(model.StagePaymentCaptured, model.DeliveryNotShipped))
	assert.Equal(t, model.RevenueLost, ClassifyRevenue(model.StageRTOCompleted, model.DeliveryRTO))
	assert.Equal(t, model.RevenueLost, ClassifyRevenue(model.StageRefunded, model.DeliveryNotShipped))
	assert.Equal(t, model.RevenueLost, ClassifyRevenue(model.StageCancelledPre, model.DeliveryCancelled))
}
