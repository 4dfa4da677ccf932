package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
	"github.com/topbeat/reconcile-cli/internal/store"
)

var passNow = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestRunner(t *testing.T) (*Runner, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "reconcile.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	r := &Runner{
		Store: st,
		Norm:  normalize.Default(),
		Now:   func() time.Time { return passNow },
	}
	return r, st
}

func seedOrder(t *testing.T, st store.Store, o model.RawOrder) {
	t.Helper()
	_, err := st.UpsertRawOrder(context.Background(), o)
	require.NoError(t, err)
}

func ts(day, hour int) *time.Time {
	v := time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
	return &v
}

// seedCorpus loads three orders: one fully delivered and reconciled, one COD
// order four days old with no shipment, and one whose gateway payment
// disagrees with the storefront total.
func seedCorpus(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	seedOrder(t, st, model.RawOrder{
		OrderKey:        "GB1234",
		Email:           "a@example.com",
		Phone:           "9876543210",
		ShippingName:    "Anjali Demo",
		ShippingPincode: "400001",
		Total:           decimal.NewFromInt(2999),
		FinancialStatus: "paid",
		PaymentMethod:   "Razorpay",
		GatewayOrderID:  "order_A",
		OrderedAt:       ts(1, 10),
	})
	seedOrder(t, st, model.RawOrder{
		OrderKey:        "GB1235",
		Email:           "b@example.com",
		Phone:           "9812345678",
		ShippingName:    "Ravi Kumar",
		Total:           decimal.NewFromInt(1500),
		FinancialStatus: "pending",
		PaymentMethod:   "Cash on Delivery (COD)",
		OrderedAt:       ts(1, 10),
	})
	seedOrder(t, st, model.RawOrder{
		OrderKey:        "GB1236",
		Email:           "c@example.com",
		Phone:           "9800000000",
		ShippingName:    "Priya Singh",
		Total:           decimal.NewFromInt(3050),
		FinancialStatus: "paid",
		PaymentMethod:   "Razorpay",
		OrderedAt:       ts(5, 9),
	})

	_, err := st.UpsertRawShipment(ctx, model.RawShipment{
		OrderKey:    "GB1234",
		AWB:         "AWB001",
		Courier:     "Delhivery",
		StatusRaw:   "DELIVERED",
		DropName:    "Mrs. Anjali Demo",
		DropPhone:   "+91 98765 43210",
		DropPincode: "400001",
		PickupAt:    ts(2, 4),
		DeliveredAt: ts(4, 12),
	})
	require.NoError(t, err)

	_, err = st.UpsertRawPayment(ctx, model.RawPayment{
		TransactionID:  "pay_A",
		GatewayOrderID: "order_A",
		Email:          "a@example.com",
		Amount:         decimal.NewFromInt(2999),
		Status:         "captured",
		Method:         "upi",
		PaidAt:         ts(1, 10),
	})
	require.NoError(t, err)
	_, err = st.UpsertRawPayment(ctx, model.RawPayment{
		TransactionID: "pay_C",
		Email:         "c@example.com",
		Amount:        decimal.NewFromInt(2999),
		Status:        "captured",
		Method:        "card",
		PaidAt:        ts(5, 9),
	})
	require.NoError(t, err)

	_, err = st.UpsertRawAttendance(ctx, model.RawAttendance{
		MeetingID:       "mtg-1",
		MeetingTopic:    "Styling Workshop",
		MeetingDate:     "2026-02-15",
		ParticipantName: "Anjali Demo",
		Email:           "a@example.com",
		Sessions:        1,
	})
	require.NoError(t, err)
	_, err = st.UpsertRawAttendance(ctx, model.RawAttendance{
		MeetingID:       "mtg-1",
		ParticipantName: "Zzyzx Qwerty",
		Email:           "z@nowhere.example",
		Sessions:        1,
	})
	require.NoError(t, err)
}

func TestRunner_FullPass(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	summary, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Orders)
	assert.Equal(t, 1, summary.Linked[model.SourceLogistics])
	assert.Equal(t, 2, summary.Linked[model.SourcePayment])
	assert.Equal(t, 1, summary.Linked[model.SourceAttendance])
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 2, summary.FlagsRaised)

	u, err := st.GetUnified(ctx, "GB1234")
	require.NoError(t, err)
	assert.Equal(t, model.StageDelivered, u.Stage)
	assert.Equal(t, model.RevenueActual, u.Revenue)
	assert.Equal(t, 1, u.EventsAttended)
	assert.True(t, u.HasPayment)

	u, err = st.GetUnified(ctx, "GB1235")
	require.NoError(t, err)
	assert.Equal(t, model.StagePaymentPending, u.Stage)
	assert.Equal(t, model.PaymentCOD, u.PaymentClass)
	assert.Equal(t, model.DeliveryNotShipped, u.DeliveryClass)
}

func TestRunner_FlagAssignment(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	_, err := r.Run(ctx)
	require.NoError(t, err)

	open, err := st.ListFlags(ctx, store.FlagFilter{})
	require.NoError(t, err)
	require.Len(t, open, 2)

	byKey := map[string]model.Flag{}
	for _, f := range open {
		byKey[f.OrderKey] = f
	}

	// The delivered order reconciles cleanly even though the provider
	// formats its phone and name differently.
	assert.NotContains(t, byKey, "GB1234")

	require.Contains(t, byKey, "GB1235")
	assert.Equal(t, "DEL-001", byKey["GB1235"].Code)
	assert.Equal(t, model.SeverityHigh, byKey["GB1235"].Severity)

	require.Contains(t, byKey, "GB1236")
	assert.Equal(t, "PAY-001", byKey["GB1236"].Code)
	assert.Equal(t, model.SeverityMedium, byKey["GB1236"].Severity)
}

func TestRunner_AuditTrail(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	_, err := r.Run(ctx)
	require.NoError(t, err)

	decisions, err := st.ListDecisions(ctx, "GB1234")
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	methods := map[model.Source]model.MatchMethod{}
	for _, d := range decisions {
		methods[d.CandidateSource] = d.Method
	}
	assert.Equal(t, model.MatchExactKey, methods[model.SourceLogistics])
	assert.Equal(t, model.MatchExactKey, methods[model.SourcePayment]) // via gateway order id
	assert.Equal(t, model.MatchExactEmail, methods[model.SourceAttendance])

	review, err := st.ListReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "mtg-1/Zzyzx Qwerty", review[0].NaturalKey)
}

func TestRunner_Rerun_NoDuplicateFlags(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	_, err := r.Run(ctx)
	require.NoError(t, err)
	_, err = r.Run(ctx)
	require.NoError(t, err)

	open, err := st.ListFlags(ctx, store.FlagFilter{})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	// The audit trail is append-only: the second pass re-records its
	// decisions rather than rewriting history.
	decisions, err := st.ListDecisions(ctx, "GB1234")
	require.NoError(t, err)
	assert.Len(t, decisions, 6)
}

func TestRunner_RepeatRTOCustomer(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()

	for i, key := range []string{"GB2001", "GB2002"} {
		seedOrder(t, st, model.RawOrder{
			OrderKey:        key,
			Email:           "repeat@example.com",
			Phone:           "9811111111",
			ShippingName:    "Repeat Customer",
			Total:           decimal.NewFromInt(1000),
			FinancialStatus: "pending",
			PaymentMethod:   "COD",
			OrderedAt:       ts(1, 10+i),
		})
		_, err := st.UpsertRawShipment(ctx, model.RawShipment{
			OrderKey:       key,
			AWB:            "AWB" + key,
			StatusRaw:      "RTO_DELIVERED",
			PickupAt:       ts(2, 4),
			RTODeliveredAt: ts(4, 12),
		})
		require.NoError(t, err)
	}

	summary, err := r.Run(ctx)
	require.NoError(t, err)

	open, err := st.ListFlags(ctx, store.FlagFilter{Family: model.FamilyRTO})
	require.NoError(t, err)
	assert.Len(t, open, 2) // one RTO-001 per order

	u, err := st.GetUnified(ctx, "GB2001")
	require.NoError(t, err)
	assert.Equal(t, model.StageRTOCompleted, u.Stage)
	assert.Equal(t, model.RevenueLost, u.Revenue)

	assert.InDelta(t, 1.0, summary.Metrics.RTORate, 1e-9)
}

func TestRunner_LowConfidenceAttendanceLink(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	// Name-only match: linked at 0.70 confidence, below the review bar.
	_, err := st.UpsertRawAttendance(ctx, model.RawAttendance{
		MeetingID:       "mtg-2",
		MeetingTopic:    "Summer Launch",
		ParticipantName: "Priya Singh",
		Sessions:        1,
	})
	require.NoError(t, err)

	_, err = r.Run(ctx)
	require.NoError(t, err)

	u, err := st.GetUnified(ctx, "GB1236")
	require.NoError(t, err)
	assert.Equal(t, 1, u.EventsAttended)

	review, err := st.ListReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, review, 2)

	var reasons []string
	for _, it := range review {
		reasons = append(reasons, it.Reason)
	}
	assert.Contains(t, reasons, "low-confidence attendance link to GB1236 (exact_name, 0.70)")
}

func TestSummarize(t *testing.T) {
	r, st := newTestRunner(t)
	ctx := context.Background()
	seedCorpus(t, st)

	summary, err := r.Run(ctx)
	require.NoError(t, err)
	m := summary.Metrics

	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 1, m.Shipped)
	assert.Equal(t, 1, m.Delivered)
	assert.Equal(t, 0, m.RTO)
	assert.InDelta(t, 1.0, m.DeliveryRate, 1e-9)

	assert.True(t, m.RevenueActual.Equal(decimal.NewFromInt(2999)))
	assert.True(t, m.RevenuePending.Equal(decimal.NewFromInt(4550)))
	assert.True(t, m.RevenueLost.IsZero())

	assert.Equal(t, 1, m.ByStage[model.StageDelivered])
	assert.Equal(t, 1, m.ByStage[model.StagePaymentPending])
	assert.Equal(t, 1, m.ByStage[model.StagePaymentCaptured])
	assert.Equal(t, 1, m.ByDispatch[model.DispatchFast])
	assert.Equal(t, 2, m.ByDispatch[model.DispatchNotDispatched])
}
