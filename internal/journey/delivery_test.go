package journey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/topbeat/reconcile-cli/internal/model"
)

func TestClassifyDelivery(t *testing.T) {
	m := DefaultStatusMap()

	assert.Equal(t, model.DeliveryNotShipped, m.ClassifyDelivery("", false))
	assert.Equal(t, model.DeliveryNotShipped, m.ClassifyDelivery("DELIVERED", false))
	assert.Equal(t, model.DeliveryDelivered, m.ClassifyDelivery("DELIVERED", true))
	assert.Equal(t, model.DeliveryDelivered, m.ClassifyDelivery(" delivered ", true))
	assert.Equal(t, model.DeliveryInTransit, m.ClassifyDelivery("OUT_FOR_DELIVERY", true))
	assert.Equal(t, model.DeliveryInTransit, m.ClassifyDelivery("FAILED_DELIVERY", true))
	assert.Equal(t, model.DeliveryRTO, m.ClassifyDelivery("RTO_REQUESTED", true))
	assert.Equal(t, model.DeliveryCancelled, m.ClassifyDelivery("CANCELLED_ORDER", true))

	// Unmapped provider statuses stay total: pending, not an error.
	assert.Equal(t, model.DeliveryInTransit, m.ClassifyDelivery("TELEPORTING", true))
}

func TestClassifyDelivery_CustomMapping(t *testing.T) {
	m := StatusMap{"HANDED_OVER": model.DeliveryDelivered}
	assert.Equal(t, model.DeliveryDelivered, m.ClassifyDelivery("handed_over", true))
}

func TestDispatchHours(t *testing.T) {
	ordered := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pickup := ordered.Add(30 * time.Hour)

	h := DispatchHours(&ordered, &pickup)
	if assert.NotNil(t, h) {
		assert.InDelta(t, 30, *h, 0.001)
	}

	assert.Nil(t, DispatchHours(nil, &pickup))
	assert.Nil(t, DispatchHours(&ordered, nil))

	// Pickup before order placement is bad data, not a negative duration.
	early := ordered.Add(-2 * time.Hour)
	assert.Nil(t, DispatchHours(&ordered, &early))
}

func TestClassifyDispatch(t *testing.T) {
	th := DefaultDispatchThresholds()

	hours := func(h float64) *float64 { return &h }

	assert.Equal(t, model.DispatchNotDispatched, th.ClassifyDispatch(nil))
	assert.Equal(t, model.DispatchFast, th.ClassifyDispatch(hours(5)))
	assert.Equal(t, model.DispatchFast, th.ClassifyDispatch(hours(24)))
	assert.Equal(t, model.DispatchNormal, th.ClassifyDispatch(hours(36)))
	assert.Equal(t, model.DispatchNormal, th.ClassifyDispatch(hours(48)))
	assert.Equal(t, model.DispatchDelayed, th.ClassifyDispatch(hours(49)))
}

func TestClassifyPayment(t *testing.T) {
	tests := []struct {
		fin    string
		method string
		want   model.PaymentClass
	}{
		{"paid", "Razorpay", model.PaymentPrepaid},
		{"pending", "", model.PaymentCOD},
		{"pending", "Cash on Delivery (COD)", model.PaymentCOD},
		{"partially_paid", "Razorpay", model.PaymentPartial},
		{"refunded", "Razorpay", model.PaymentPrepaid},
		{"refunded", "", model.PaymentCOD},
		{"voided", "UPI", model.PaymentPrepaid},
		{"", "razorpay", model.PaymentPrepaid},
		{"", "", model.PaymentUnknown},
		{"paid", "manual COD entry", model.PaymentCOD}, // method beats status
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyPayment(tt.fin, tt.method), "fin=%q method=%q", tt.fin, tt.method)
	}
}
