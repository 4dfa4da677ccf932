package flags

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topbeat/reconcile-cli/internal/model"
)

func baseOrder() model.UnifiedOrder {
	ordered := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return model.UnifiedOrder{
		OrderKey:        "GB1234",
		Email:           "anjali@example.com",
		Phone:           "9876543210",
		Total:           decimal.NewFromInt(2999),
		PaymentAmount:   decimal.NewFromInt(2999),
		FinancialStatus: "paid",
		PaymentStatus:   "captured",
		Stage:           model.StageDelivered,
		DeliveryClass:   model.DeliveryDelivered,
		PaymentClass:    model.PaymentPrepaid,
		HasOrder:        true,
		HasShipment:     true,
		HasPayment:      true,
		OrderedAt:       &ordered,
	}
}

func evalCtx() Context {
	return DefaultContext(time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC))
}

func codes(fs []model.Flag) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Code
	}
	return out
}

func TestEngine_CleanRecordNoFlags(t *testing.T) {
	e := NewEngine()
	assert.Empty(t, e.Evaluate(evalCtx(), baseOrder()))
}

func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine()
	rec := baseOrder()
	rec.PaymentAmount = decimal.NewFromInt(3050)
	rec.DeliveryStatusRaw = "FAILED_DELIVERY"

	first := e.Evaluate(evalCtx(), rec)
	second := e.Evaluate(evalCtx(), rec)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"DEL-002", "PAY-001"}, codes(first))
}

func TestAmountMismatch(t *testing.T) {
	e := NewEngine()

	// Paid 2999, storefront says 3050: beyond the 10-rupee tolerance.
	rec := baseOrder()
	rec.Total = decimal.NewFromInt(3050)
	rec.PaymentAmount = decimal.NewFromInt(2999)

	fs := e.Evaluate(evalCtx(), rec)
	require.Len(t, fs, 1)
	assert.Equal(t, "PAY-001", fs[0].Code)
	assert.Equal(t, model.FamilyPayment, fs[0].Family)
	assert.Equal(t, model.SeverityMedium, fs[0].Severity)

	// Within tolerance: silent.
	rec.PaymentAmount = decimal.NewFromInt(3045)
	assert.Empty(t, e.Evaluate(evalCtx(), rec))

	// Way off: high severity.
	rec.PaymentAmount = decimal.NewFromInt(2000)
	fs = e.Evaluate(evalCtx(), rec)
	require.Len(t, fs, 1)
	assert.Equal(t, model.SeverityHigh, fs[0].Severity)
}

func TestAmountMismatch_MissingDataDoesNotFire(t *testing.T) {
	e := NewEngine()
	rec := baseOrder()
	rec.HasPayment = false
	rec.PaymentAmount = decimal.Decimal{}
	rec.PaymentStatus = ""
	rec.FinancialStatus = "pending"
	assert.Empty(t, e.Evaluate(evalCtx(), rec))
}

func TestPaidWithoutPayment(t *testing.T) {
	e := NewEngine()
	rec := baseOrder()
	rec.HasPayment = false
	rec.PaymentAmount = decimal.Decimal{}
	rec.PaymentStatus = ""

	fs := e.Evaluate(evalCtx(), rec)
	require.Len(t, fs, 1)
	assert.Equal(t, "PAY-002", fs[0].Code)
}

func TestRefundDisagreement(t *testing.T) {
	e := NewEngine()
	rec := baseOrder()
	rec.PaymentStatus = "refunded"

	fs := e.Evaluate(evalCtx(), rec)
	require.Len(t, fs, 1)
	assert.Equal(t, "PAY-003", fs[0].Code)
	assert.Equal(t, model.SeverityHigh, fs[0].Severity)

	rec.FinancialStatus = "refunded"
	rec.Stage = model.StageRefunded
	assert.Empty(t, e.Evaluate(evalCtx(), rec))
}

func TestNotShipped(t *testing.T) {
	e := NewEngine()
	rec := baseOrder()
	rec.HasShipment = false
	rec.HasPayment = false
	rec.PaymentAmount = decimal.Decimal{}
	rec.PaymentStatus = ""
	rec.FinancialStatus = "pending"
	rec.Stage = model.StagePaymentPending
	rec.DeliveryClass = model.DeliveryNotShipped
	rec.PaymentClass = model.PaymentCOD

	// Four days old with no shipment.
	fs := e.Evaluate(evalCtx(), rec)
	require.Len(t, fs, 1)
	assert.Equal(t, "DEL-001", fs[0].Code)
	assert.Equal(t, model.SeverityHigh, fs[0].Severity)

	// A fresh order is fine.
	fresh := evalCtx()
	fresh.Now = rec.OrderedAt.Add(3 * time.Hour)
	assert.Empty(t, e.Evaluate(fresh, rec))

	// A cancelled order is legitimately unshipped.
	rec.Stage = model.StageCancelledPre
	assert.Empty(t, e.Evaluate(evalCtx(), rec))
}

func TestCustomerAndPincodeRTO(t *testing.T) {
	e := NewEngine()
	ctx := evalCtx()
	ctx.CustomerRTO = map[string]RateStat{"9876543210": {RTO: 2, Total: 3}}
	ctx.PincodeRTO = map[string]RateStat{"110011": {RTO: 3, Total: 10}}

	rec := baseOrder()
	rec.Pincode = "110011"

	fs := e.Evaluate(ctx, rec)
	assert.Equal(t, []string{"RTO-001", "RTO-002"}, codes(fs))

	// Below min sample sizes: silent.
	ctx.CustomerRTO = map[string]RateStat{"9876543210": {RTO: 1, Total: 1}}
	ctx.PincodeRTO = map[string]RateStat{"110011": {RTO: 2, Total: 4}}
	assert.Empty(t, e.Evaluate(ctx, rec))
}

func TestMergeConflictFlag(t *testing.T) {
	e := NewEngine()
	ctx := evalCtx()
	ctx.Conflicts = map[string][]string{"GB1234": {"customer_name"}}

	fs := e.Evaluate(ctx, baseOrder())
	require.Len(t, fs, 1)
	assert.Equal(t, "DQ-002", fs[0].Code)
	assert.Contains(t, fs[0].Message, "customer_name")
}

func TestQualityAndBusinessRules(t *testing.T) {
	e := NewEngine()

	rec := baseOrder()
	rec.Email = ""
	rec.Phone = ""
	fs := e.Evaluate(evalCtx(), rec)
	assert.Contains(t, codes(fs), "DQ-001")

	rec = baseOrder()
	rec.Total = decimal.Decimal{}
	rec.PaymentAmount = decimal.Decimal{}
	fs = e.Evaluate(evalCtx(), rec)
	assert.Contains(t, codes(fs), "DQ-003")

	rec = baseOrder()
	rec.PaymentClass = model.PaymentCOD
	rec.Total = decimal.NewFromInt(7500)
	rec.PaymentAmount = rec.Total
	fs = e.Evaluate(evalCtx(), rec)
	assert.Contains(t, codes(fs), "BIZ-001")

	rec.RefundedAmount = decimal.NewFromInt(9000)
	fs = e.Evaluate(evalCtx(), rec)
	assert.Contains(t, codes(fs), "COST-001")
}

func TestEngine_Disable(t *testing.T) {
	e := NewEngine()
	e.Disable("PAY-001")

	rec := baseOrder()
	rec.PaymentAmount = decimal.NewFromInt(100)
	assert.Empty(t, e.Evaluate(evalCtx(), rec))
}
