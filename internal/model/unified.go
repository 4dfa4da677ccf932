package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the canonical order lifecycle stage derived from merged signals.
type Stage string

const (
	StageOrderPlaced     Stage = "order_placed"
	StagePaymentPending  Stage = "payment_pending"
	StagePaymentCaptured Stage = "payment_captured"
	StageCancelledPre    Stage = "cancelled_pre_ship"
	StageShipped         Stage = "shipped"
	StageInTransit       Stage = "in_transit"
	StageDeliveryFailed  Stage = "delivery_failed"
	StageDelivered       Stage = "delivered"
	StageRTOInitiated    Stage = "rto_initiated"
	StageRTOCompleted    Stage = "rto_completed"
	StageRefunded        Stage = "refunded"
)

// Terminal reports whether no further transitions are possible from s.
func (s Stage) Terminal() bool {
	switch s {
	case StageDelivered, StageRTOCompleted, StageCancelledPre, StageRefunded:
		return true
	}
	return false
}

// DeliveryClass is the simplified delivery status category.
type DeliveryClass string

const (
	DeliveryDelivered  DeliveryClass = "delivered"
	DeliveryInTransit  DeliveryClass = "in_transit"
	DeliveryRTO        DeliveryClass = "rto"
	DeliveryCancelled  DeliveryClass = "cancelled"
	DeliveryNotShipped DeliveryClass = "not_shipped"
)

// DispatchClass buckets order-to-pickup duration.
type DispatchClass string

const (
	DispatchFast          DispatchClass = "fast"
	DispatchNormal        DispatchClass = "normal"
	DispatchDelayed       DispatchClass = "delayed"
	DispatchNotDispatched DispatchClass = "not_dispatched"
)

// PaymentClass is the simplified payment mode category.
type PaymentClass string

const (
	PaymentPrepaid PaymentClass = "prepaid"
	PaymentCOD     PaymentClass = "cod"
	PaymentPartial PaymentClass = "partial"
	PaymentUnknown PaymentClass = "unknown"
)

// RevenueCategory groups an order by whether its revenue is realized.
type RevenueCategory string

const (
	RevenueActual  RevenueCategory = "actual"
	RevenuePending RevenueCategory = "pending"
	RevenueLost    RevenueCategory = "lost"
)

// UnifiedOrder is the single merged per-order view across all sources.
// Owned exclusively by the store; everything else reads or proposes.
type UnifiedOrder struct {
	OrderKey string `json:"order_key"`

	// Merged identity.
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Name    string `json:"name"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`

	// Financials (storefront-authoritative).
	Total          decimal.Decimal `json:"total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"` // gateway-authoritative

	// Per-source statuses, verbatim.
	FinancialStatus   string `json:"financial_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	DeliveryStatusRaw string `json:"delivery_status_raw"`
	PaymentStatus     string `json:"payment_status"`

	// Logistics detail.
	AWB      string `json:"awb"`
	Courier  string `json:"courier"`
	RTORisk  string `json:"rto_risk"`
	Products string `json:"products"`

	// Derived, recomputed on every merge.
	Stage         Stage           `json:"stage"`
	DeliveryClass DeliveryClass   `json:"delivery_class"`
	DispatchClass DispatchClass   `json:"dispatch_class"`
	PaymentClass  PaymentClass    `json:"payment_class"`
	Revenue       RevenueCategory `json:"revenue_category"`
	DispatchHours *float64        `json:"dispatch_hours,omitempty"`

	// Engagement (attendance use case).
	EventsAttended int    `json:"events_attended"`
	LatestEvent    string `json:"latest_event,omitempty"`

	OrderedAt   *time.Time `json:"ordered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	PickupAt    *time.Time `json:"pickup_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	HasOrder    bool `json:"has_order"`
	HasShipment bool `json:"has_shipment"`
	HasPayment  bool `json:"has_payment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
