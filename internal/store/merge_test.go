package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topbeat/reconcile-cli/internal/model"
)

func mergedOrderFixture() MergeInput {
	ordered := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pickup := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	delivered := time.Date(2026, 3, 5, 15, 0, 0, 0, time.UTC)
	paid := time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC)

	return MergeInput{
		OrderKey: "GB1234",
		Order: &model.RawOrder{
			OrderKey:        "GB1234",
			Email:           "anjali@example.com",
			Phone:           "9876543210",
			ShippingName:    "Anjali Demo",
			ShippingCity:    "Mumbai",
			ShippingState:   "MH",
			ShippingPincode: "400001",
			Total:           decimal.NewFromInt(2999),
			FinancialStatus: "paid",
			PaymentMethod:   "razorpay",
			LineItems:       "Silk Saree x1",
			OrderedAt:       &ordered,
		},
		Shipment: &model.RawShipment{
			OrderKey:    "GB1234",
			AWB:         "AWB001",
			Courier:     "Delhivery",
			StatusRaw:   "DELIVERED",
			DropPincode: "400001",
			PickupAt:    &pickup,
			DeliveredAt: &delivered,
		},
		Payment: &model.RawPayment{
			TransactionID: "pay_001",
			Amount:        decimal.NewFromInt(2999),
			Status:        "captured",
			Method:        "upi",
			PaidAt:        &paid,
		},
	}
}

func TestMerge_DeliveredPrepaidOrder(t *testing.T) {
	u, conflicts := Merge(mergedOrderFixture())

	assert.Empty(t, conflicts)
	assert.Equal(t, "GB1234", u.OrderKey)
	assert.True(t, u.HasOrder)
	assert.True(t, u.HasShipment)
	assert.True(t, u.HasPayment)

	assert.Equal(t, "anjali@example.com", u.Email)
	assert.Equal(t, "9876543210", u.Phone)
	assert.Equal(t, "Anjali Demo", u.Name)
	assert.Equal(t, "400001", u.Pincode)

	assert.Equal(t, model.StageDelivered, u.Stage)
	assert.Equal(t, model.DeliveryDelivered, u.DeliveryClass)
	assert.Equal(t, model.PaymentPrepaid, u.PaymentClass)
	assert.Equal(t, model.RevenueActual, u.Revenue)

	require.NotNil(t, u.DispatchHours)
	assert.InDelta(t, 18.0, *u.DispatchHours, 0.001)
	assert.Equal(t, model.DispatchFast, u.DispatchClass)
}

func TestMerge_Idempotent(t *testing.T) {
	in := mergedOrderFixture()

	first, conflicts1 := Merge(in)
	second, conflicts2 := Merge(in)

	assert.Equal(t, first, second)
	assert.Equal(t, conflicts1, conflicts2)
}

func TestMerge_PincodeConflictReported(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment.DropPincode = "110011"

	u, conflicts := Merge(in)

	assert.Contains(t, conflicts, "pincode")
	// Storefront value still wins.
	assert.Equal(t, "400001", u.Pincode)
}

func TestMerge_CityDisagreementSilent(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment.DropCity = "Bombay"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.Equal(t, "Mumbai", u.City)
}

func TestMerge_FormattedDropPhoneNoConflict(t *testing.T) {
	in := mergedOrderFixture()
	// Same number in the provider's usual formatting.
	in.Shipment.DropPhone = "+91 98765 43210"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.Equal(t, "9876543210", u.Phone)
}

func TestMerge_PhoneDisagreementReported(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment.DropPhone = "9999999999"

	u, conflicts := Merge(in)

	assert.Contains(t, conflicts, "phone")
	assert.Equal(t, "9876543210", u.Phone)
}

func TestMerge_GiftOrderBillingNameSilent(t *testing.T) {
	in := mergedOrderFixture()
	// Buyer and recipient differ on a gift order; that is not a data
	// quality problem.
	in.Order.BillingName = "Ravi Kumar"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.Equal(t, "Anjali Demo", u.Name)
}

func TestMerge_DropNameHonorificNoConflict(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment.DropName = "Mrs. Anjali Demo"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.Equal(t, "Anjali Demo", u.Name)
}

func TestMerge_DropNameDisagreementReported(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment.DropName = "Sunita Verma"

	_, conflicts := Merge(in)

	assert.Contains(t, conflicts, "customer_name")
}

func TestMerge_FillsIdentityFromLowerPrioritySources(t *testing.T) {
	in := mergedOrderFixture()
	in.Order.Phone = ""
	in.Payment.Phone = "9876543210"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.Equal(t, "9876543210", u.Phone)
}

func TestMerge_OrderOnly_PendingCOD(t *testing.T) {
	in := mergedOrderFixture()
	in.Shipment = nil
	in.Payment = nil
	in.Order.FinancialStatus = "pending"
	in.Order.PaymentMethod = "Cash on Delivery (COD)"

	u, conflicts := Merge(in)

	assert.Empty(t, conflicts)
	assert.False(t, u.HasShipment)
	assert.False(t, u.HasPayment)
	assert.Equal(t, model.StagePaymentPending, u.Stage)
	assert.Equal(t, model.DeliveryNotShipped, u.DeliveryClass)
	assert.Equal(t, model.DispatchNotDispatched, u.DispatchClass)
	assert.Equal(t, model.PaymentCOD, u.PaymentClass)
	assert.Equal(t, model.RevenuePending, u.Revenue)
	assert.Nil(t, u.DispatchHours)
}

func TestMerge_RTOCompleted(t *testing.T) {
	in := mergedOrderFixture()
	rto := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	in.Shipment.StatusRaw = "RTO_DELIVERED"
	in.Shipment.RTODeliveredAt = &rto
	in.Order.FinancialStatus = "pending"
	in.Payment = nil

	u, _ := Merge(in)

	assert.Equal(t, model.StageRTOCompleted, u.Stage)
	assert.Equal(t, model.DeliveryRTO, u.DeliveryClass)
	assert.Equal(t, model.RevenueLost, u.Revenue)
}

func TestMerge_AttendanceAggregation(t *testing.T) {
	in := mergedOrderFixture()
	in.Attendance = []model.RawAttendance{
		{MeetingID: "mtg-1", MeetingTopic: "Styling Workshop", MeetingDate: "2026-02-15"},
		{MeetingID: "mtg-2", MeetingTopic: "Summer Launch", MeetingDate: "2026-03-20"},
		{MeetingID: "mtg-3", MeetingTopic: "Internal Standup", MeetingDate: "2026-03-25", Internal: true},
	}

	u, _ := Merge(in)

	assert.Equal(t, 2, u.EventsAttended)
	assert.Equal(t, "Summer Launch", u.LatestEvent)
}
