package journey

import (
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// ClassifyPayment maps the storefront financial status plus the raw payment
// method string to a payment class. Cancelled and refunded are lifecycle
// outcomes, not payment modes: for those the original mode is recovered from
// the payment method field.
func ClassifyPayment(financialStatus, paymentMethod string) model.PaymentClass {
	fin := strings.ToLower(strings.TrimSpace(financialStatus))
	method := strings.ToLower(strings.TrimSpace(paymentMethod))

	if strings.Contains(method, "cod") || strings.Contains(method, "cash") {
		return model.PaymentCOD
	}

	switch fin {
	case "paid":
		return model.PaymentPrepaid
	case "partially_paid":
		return model.PaymentPartial
	case "pending":
		return model.PaymentCOD
	case "voided", "refunded", "partially_refunded":
		if strings.Contains(method, "razorpay") || strings.Contains(method, "upi") || strings.Contains(method, "card") {
			return model.PaymentPrepaid
		}
		return model.PaymentCOD
	}

	if strings.Contains(method, "razorpay") {
		return model.PaymentPrepaid
	}
	return model.PaymentUnknown
}
