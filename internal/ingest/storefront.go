package ingest

import (
	"regexp"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
)

var (
	razorpayOrderRe = regexp.MustCompile(`(?i)razorpay_order_id["':=\s]+(order_[A-Za-z0-9]+)`)
	rtoRiskRe       = regexp.MustCompile(`(?i)rto[-_ ]risk["':=\s]+(\w+)`)
)

// timeLayouts are tried in order when parsing export timestamps. Storefront
// exports mix zone-qualified and bare formats even within one file.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func parseDecimal(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Decimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

func parseInt(raw string) int {
	d := parseDecimal(raw)
	return int(d.IntPart())
}

// StorefrontParser maps storefront order export rows to RawOrder. Identity
// fields keep both the uploaded value and the normalized form; normalization
// failure leaves the normalized field empty instead of rejecting the row.
type StorefrontParser struct {
	Norm normalize.Normalizer
}

// Parse converts one export row. Only a missing order identifier is fatal.
func (p StorefrontParser) Parse(row Row) (model.RawOrder, error) {
	key := normalize.OrderKey(row.Get("name", "order name", "order id", "order number"))
	if key == "" {
		return model.RawOrder{}, eris.New("ingest: storefront row has no order identifier")
	}

	o := model.RawOrder{
		OrderKey:        key,
		StorefrontID:    row.Get("id"),
		EmailRaw:        row.Get("email", "customer email"),
		PhoneRaw:        row.Get("phone", "billing phone", "shipping phone"),
		BillingName:     row.Get("billing name"),
		ShippingName:    row.Get("shipping name", "customer name"),
		ShippingCity:    row.Get("shipping city"),
		ShippingState:   row.Get("shipping province", "shipping province name", "shipping state"),
		ShippingPincode: row.Get("shipping zip", "shipping pincode"),
		Total:           parseDecimal(row.Get("total", "total amount")),
		Subtotal:        parseDecimal(row.Get("subtotal")),
		DiscountCode:    row.Get("discount code"),
		DiscountAmount:  parseDecimal(row.Get("discount amount")),
		RefundedAmount:  parseDecimal(row.Get("refunded amount")),
		FinancialStatus: row.Get("financial status"),
		Fulfillment:     row.Get("fulfillment status"),
		PaymentMethod:   row.Get("payment method"),
		LineItems:       row.Get("lineitem name", "line items", "products"),
		Quantity:        parseInt(row.Get("lineitem quantity", "quantity")),
		Tags:            row.Get("tags"),
		OrderedAt:       parseTime(row.Get("created at", "order date")),
		CancelledAt:     parseTime(row.Get("cancelled at")),
	}

	if email, err := normalize.Email(o.EmailRaw); err == nil {
		o.Email = email
	}
	if phone, err := p.Norm.Phone(o.PhoneRaw); err == nil {
		o.Phone = phone
	}

	// The gateway order id hides in the note attributes blob; the RTO risk
	// grade hides in tags. Both survive round-trips through the export UI.
	if m := razorpayOrderRe.FindStringSubmatch(row.Get("note attributes", "notes")); m != nil {
		o.GatewayOrderID = m[1]
	}
	if m := rtoRiskRe.FindStringSubmatch(o.Tags); m != nil {
		o.RTORisk = m[1]
	}

	return o, nil
}
