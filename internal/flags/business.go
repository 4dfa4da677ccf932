package flags

import (
	"fmt"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// highValueCODRule (BIZ-001): large cash-on-delivery orders carry outsized
// RTO exposure.
type highValueCODRule struct{}

func (highValueCODRule) Code() string             { return "BIZ-001" }
func (highValueCODRule) Family() model.FlagFamily { return model.FamilyBusiness }

func (r highValueCODRule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	if rec.PaymentClass != model.PaymentCOD || rec.Total.IsZero() {
		return nil
	}
	if rec.Total.LessThan(ctx.HighValueCOD) {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityLow, rec.OrderKey,
		fmt.Sprintf("cash-on-delivery order worth %s", rec.Total.StringFixed(2)))
}
