package flags

import (
	"fmt"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// refundExceedsTotalRule (COST-001): more money refunded than the order was
// worth.
type refundExceedsTotalRule struct{}

func (refundExceedsTotalRule) Code() string             { return "COST-001" }
func (refundExceedsTotalRule) Family() model.FlagFamily { return model.FamilyCost }

func (r refundExceedsTotalRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if rec.Total.IsZero() || rec.RefundedAmount.IsZero() {
		return nil
	}
	if rec.RefundedAmount.LessThanOrEqual(rec.Total) {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityHigh, rec.OrderKey,
		fmt.Sprintf("refunded %s exceeds order total %s",
			rec.RefundedAmount.StringFixed(2), rec.Total.StringFixed(2)))
}
