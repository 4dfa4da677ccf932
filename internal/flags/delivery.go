package flags

import (
	"fmt"
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// notShippedRule (DEL-001): no logistics record long after the order was
// placed. Cancelled and refunded orders are legitimately unshipped.
type notShippedRule struct{}

func (notShippedRule) Code() string             { return "DEL-001" }
func (notShippedRule) Family() model.FlagFamily { return model.FamilyDelivery }

func (r notShippedRule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasOrder || rec.HasShipment || rec.OrderedAt == nil {
		return nil
	}
	if rec.Stage == model.StageCancelledPre || rec.Stage == model.StageRefunded {
		return nil
	}
	age := ctx.Now.Sub(*rec.OrderedAt)
	if age < ctx.NotShippedAfter {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityHigh, rec.OrderKey,
		fmt.Sprintf("no shipment %.0f hours after order placement", age.Hours()))
}

// deliveryFailedRule (DEL-002): the provider reported a failed delivery
// attempt.
type deliveryFailedRule struct{}

func (deliveryFailedRule) Code() string             { return "DEL-002" }
func (deliveryFailedRule) Family() model.FlagFamily { return model.FamilyDelivery }

func (r deliveryFailedRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if !strings.EqualFold(rec.DeliveryStatusRaw, "FAILED_DELIVERY") {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityMedium, rec.OrderKey,
		"provider reported a failed delivery attempt")
}

// delayedDispatchRule (DEL-003): pickup took longer than the normal window.
type delayedDispatchRule struct{}

func (delayedDispatchRule) Code() string             { return "DEL-003" }
func (delayedDispatchRule) Family() model.FlagFamily { return model.FamilyDelivery }

func (r delayedDispatchRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if rec.DispatchClass != model.DispatchDelayed || rec.DispatchHours == nil {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityLow, rec.OrderKey,
		fmt.Sprintf("dispatch took %.0f hours", *rec.DispatchHours))
}
