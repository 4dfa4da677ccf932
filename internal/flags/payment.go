package flags

import (
	"fmt"
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// amountMismatchRule (PAY-001): gateway amount differs from the storefront
// total beyond the configured tolerance. Escalates to high severity past
// ten times the tolerance.
type amountMismatchRule struct{}

func (amountMismatchRule) Code() string             { return "PAY-001" }
func (amountMismatchRule) Family() model.FlagFamily { return model.FamilyPayment }

func (r amountMismatchRule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasOrder || !rec.HasPayment || rec.Total.IsZero() || rec.PaymentAmount.IsZero() {
		return nil
	}
	diff := rec.Total.Sub(rec.PaymentAmount).Abs()
	if diff.LessThanOrEqual(ctx.AmountTolerance) {
		return nil
	}
	sev := model.SeverityMedium
	if diff.GreaterThan(ctx.AmountTolerance.Mul(ten)) {
		sev = model.SeverityHigh
	}
	return newFlag(r.Code(), r.Family(), sev, rec.OrderKey,
		fmt.Sprintf("payment amount %s differs from order total %s by %s",
			rec.PaymentAmount.StringFixed(2), rec.Total.StringFixed(2), diff.StringFixed(2)))
}

// paidWithoutPaymentRule (PAY-002): storefront marks the order paid but no
// gateway transaction was matched.
type paidWithoutPaymentRule struct{}

func (paidWithoutPaymentRule) Code() string             { return "PAY-002" }
func (paidWithoutPaymentRule) Family() model.FlagFamily { return model.FamilyPayment }

func (r paidWithoutPaymentRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasOrder || rec.HasPayment {
		return nil
	}
	if !strings.EqualFold(rec.FinancialStatus, "paid") {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityMedium, rec.OrderKey,
		"storefront reports paid but no gateway transaction matched")
}

// refundDisagreementRule (PAY-003): the gateway refunded but the storefront
// still shows a paid state.
type refundDisagreementRule struct{}

func (refundDisagreementRule) Code() string             { return "PAY-003" }
func (refundDisagreementRule) Family() model.FlagFamily { return model.FamilyPayment }

func (r refundDisagreementRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasPayment || !strings.EqualFold(rec.PaymentStatus, "refunded") {
		return nil
	}
	fin := strings.ToLower(rec.FinancialStatus)
	if fin == "refunded" || fin == "partially_refunded" || fin == "" {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityHigh, rec.OrderKey,
		fmt.Sprintf("gateway refunded but storefront financial status is %q", rec.FinancialStatus))
}
