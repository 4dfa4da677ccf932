package store

import (
	"strings"

	"github.com/topbeat/reconcile-cli/internal/journey"
	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
)

// MergeInput bundles the per-source rows linked to one canonical order key,
// plus the classification tables the derived fields are computed with.
type MergeInput struct {
	OrderKey   string
	Order      *model.RawOrder
	Shipment   *model.RawShipment
	Payment    *model.RawPayment
	Attendance []model.RawAttendance

	StatusMap journey.StatusMap
	Dispatch  journey.DispatchThresholds
	Norm      normalize.Normalizer
}

// fieldRule resolves one identity field from candidate values listed in
// source priority order. The first non-empty value wins. When authoritative
// is false and a lower-priority source carries a different non-empty value,
// the disagreement is reported as a conflict. Sources format the same value
// differently ("+91 98765 43210" vs "9876543210"), so rules with a canon
// function compare canonical forms, not surface text.
type fieldRule struct {
	name          string
	authoritative bool
	values        func(in MergeInput) []string
	canon         func(norm normalize.Normalizer, v string) string
	assign        func(u *model.UnifiedOrder, v string)
}

func identityRules() []fieldRule {
	return []fieldRule{
		{
			name: "email",
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					vs = append(vs, in.Order.Email)
				}
				if in.Payment != nil {
					vs = append(vs, strings.ToLower(strings.TrimSpace(in.Payment.Email)))
				}
				for _, a := range in.Attendance {
					vs = append(vs, a.Email)
				}
				return vs
			},
			assign: func(u *model.UnifiedOrder, v string) { u.Email = v },
		},
		{
			name: "phone",
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					vs = append(vs, in.Order.Phone)
				}
				if in.Payment != nil {
					vs = append(vs, in.Payment.Phone)
				}
				if in.Shipment != nil {
					vs = append(vs, in.Shipment.DropPhone)
				}
				return vs
			},
			canon: func(norm normalize.Normalizer, v string) string {
				if p, err := norm.Phone(v); err == nil {
					return p
				}
				return v
			},
			assign: func(u *model.UnifiedOrder, v string) { u.Phone = v },
		},
		{
			// Billing name is a fallback when the shipping name is blank,
			// never a second witness: gift orders routinely ship to someone
			// other than the buyer.
			name: "customer_name",
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					v := in.Order.ShippingName
					if strings.TrimSpace(v) == "" {
						v = in.Order.BillingName
					}
					vs = append(vs, v)
				}
				if in.Shipment != nil {
					vs = append(vs, in.Shipment.DropName)
				}
				return vs
			},
			canon: func(norm normalize.Normalizer, v string) string {
				if name, err := norm.Name(v); err == nil {
					return name
				}
				return v
			},
			assign: func(u *model.UnifiedOrder, v string) { u.Name = v },
		},
		{
			// Storefront shipping address wins over the provider's drop
			// address; disagreement is routine (provider truncates), silent.
			name:          "city",
			authoritative: true,
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					vs = append(vs, in.Order.ShippingCity)
				}
				if in.Shipment != nil {
					vs = append(vs, in.Shipment.DropCity)
				}
				return vs
			},
			assign: func(u *model.UnifiedOrder, v string) { u.City = v },
		},
		{
			name:          "state",
			authoritative: true,
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					vs = append(vs, in.Order.ShippingState)
				}
				if in.Shipment != nil {
					vs = append(vs, in.Shipment.DropState)
				}
				return vs
			},
			assign: func(u *model.UnifiedOrder, v string) { u.State = v },
		},
		{
			// A pincode mismatch means the parcel may be heading to the
			// wrong place, so it is reported.
			name: "pincode",
			values: func(in MergeInput) []string {
				var vs []string
				if in.Order != nil {
					vs = append(vs, in.Order.ShippingPincode)
				}
				if in.Shipment != nil {
					vs = append(vs, in.Shipment.DropPincode)
				}
				return vs
			},
			assign: func(u *model.UnifiedOrder, v string) { u.Pincode = v },
		},
	}
}

// Merge builds the unified view of one order from its linked source rows and
// reports identity fields whose sources disagree without a precedence rule.
// Merge is a pure function: merging the same inputs again yields the same
// unified order and the same conflicts.
func Merge(in MergeInput) (model.UnifiedOrder, []string) {
	u := model.UnifiedOrder{OrderKey: in.OrderKey}
	var conflicts []string

	norm := in.Norm
	if norm.CountryCode == "" && norm.Honorifics == nil {
		norm = normalize.Default()
	}

	for _, rule := range identityRules() {
		winner, winnerCanon := "", ""
		for _, v := range rule.values(in) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			cv := v
			if rule.canon != nil {
				cv = rule.canon(norm, v)
			}
			if winner == "" {
				winner, winnerCanon = v, cv
				continue
			}
			if !rule.authoritative && !strings.EqualFold(cv, winnerCanon) {
				conflicts = append(conflicts, rule.name)
				break
			}
		}
		rule.assign(&u, winner)
	}

	if in.Order != nil {
		u.HasOrder = true
		u.Total = in.Order.Total
		u.Subtotal = in.Order.Subtotal
		u.DiscountAmount = in.Order.DiscountAmount
		u.RefundedAmount = in.Order.RefundedAmount
		u.FinancialStatus = in.Order.FinancialStatus
		u.FulfillmentStatus = in.Order.Fulfillment
		u.RTORisk = in.Order.RTORisk
		u.Products = in.Order.LineItems
		u.OrderedAt = in.Order.OrderedAt
		u.CancelledAt = in.Order.CancelledAt
	}

	if in.Shipment != nil {
		u.HasShipment = true
		u.AWB = in.Shipment.AWB
		u.Courier = in.Shipment.Courier
		u.DeliveryStatusRaw = in.Shipment.StatusRaw
		u.PickupAt = in.Shipment.PickupAt
		u.DeliveredAt = in.Shipment.DeliveredAt
	}

	if in.Payment != nil {
		u.HasPayment = true
		u.PaymentAmount = in.Payment.Amount
		u.PaymentStatus = in.Payment.Status
	}

	latestDate := ""
	for _, a := range in.Attendance {
		if a.Internal {
			continue
		}
		u.EventsAttended++
		if a.MeetingDate >= latestDate {
			latestDate = a.MeetingDate
			u.LatestEvent = a.MeetingTopic
		}
	}

	statusMap := in.StatusMap
	if statusMap == nil {
		statusMap = journey.DefaultStatusMap()
	}
	thresholds := in.Dispatch
	if thresholds.FastHours == 0 && thresholds.NormalHours == 0 {
		thresholds = journey.DefaultDispatchThresholds()
	}

	u.DeliveryClass = statusMap.ClassifyDelivery(u.DeliveryStatusRaw, u.HasShipment)
	if in.Shipment != nil {
		u.DispatchHours = journey.DispatchHours(u.OrderedAt, in.Shipment.PickupAt)
	}
	u.DispatchClass = thresholds.ClassifyDispatch(u.DispatchHours)

	method := ""
	if in.Order != nil {
		method = in.Order.PaymentMethod
	}
	if method == "" && in.Payment != nil {
		method = in.Payment.Method
	}
	u.PaymentClass = journey.ClassifyPayment(u.FinancialStatus, method)

	rtoCompleted := in.Shipment != nil && in.Shipment.RTODeliveredAt != nil
	u.Stage = journey.ClassifyStage(journey.Signals{
		FinancialStatus:   u.FinancialStatus,
		PaymentStatus:     u.PaymentStatus,
		DeliveryClass:     u.DeliveryClass,
		DeliveryStatusRaw: u.DeliveryStatusRaw,
		HasShipment:       u.HasShipment,
		Cancelled:         u.CancelledAt != nil,
		RTOCompleted:      rtoCompleted,
	})
	u.Revenue = journey.ClassifyRevenue(u.Stage, u.DeliveryClass)

	return u, conflicts
}
