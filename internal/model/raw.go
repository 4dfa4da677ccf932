package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawOrder is one storefront order row as received. Identity fields carry
// both the value as uploaded and the normalized form; a row whose identity
// could not be normalized is kept with the normalized field empty.
type RawOrder struct {
	OrderKey        string          `json:"order_key"` // canonical, "#" stripped
	StorefrontID    string          `json:"storefront_id"`
	Email           string          `json:"email"`
	EmailRaw        string          `json:"email_raw"`
	Phone           string          `json:"phone"`
	PhoneRaw        string          `json:"phone_raw"`
	BillingName     string          `json:"billing_name"`
	ShippingName    string          `json:"shipping_name"`
	ShippingCity    string          `json:"shipping_city"`
	ShippingState   string          `json:"shipping_state"`
	ShippingPincode string          `json:"shipping_pincode"`
	Total           decimal.Decimal `json:"total"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountCode    string          `json:"discount_code"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	RefundedAmount  decimal.Decimal `json:"refunded_amount"`
	FinancialStatus string          `json:"financial_status"`
	Fulfillment     string          `json:"fulfillment_status"`
	PaymentMethod   string          `json:"payment_method"`
	LineItems       string          `json:"line_items"`
	Quantity        int             `json:"quantity"`
	GatewayOrderID  string          `json:"gateway_order_id"` // extracted from note attributes
	RTORisk         string          `json:"rto_risk"`         // extracted from tags
	Tags            string          `json:"tags"`
	OrderedAt       *time.Time      `json:"ordered_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	BatchID         string          `json:"batch_id"`
	ReceivedAt      time.Time       `json:"received_at"`
}

// RawShipment is one logistics provider row.
type RawShipment struct {
	OrderKey       string     `json:"order_key"` // channel order name, normalized
	AWB            string     `json:"awb"`
	Courier        string     `json:"courier"`
	StatusRaw      string     `json:"status_raw"` // provider status verbatim
	DropName       string     `json:"drop_name"`
	DropPhone      string     `json:"drop_phone"`
	DropCity       string     `json:"drop_city"`
	DropState      string     `json:"drop_state"`
	DropPincode    string     `json:"drop_pincode"`
	PickupAt       *time.Time `json:"pickup_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	RTODeliveredAt *time.Time `json:"rto_delivered_at,omitempty"`
	BatchID        string     `json:"batch_id"`
	ReceivedAt     time.Time  `json:"received_at"`
}

// RawPayment is one payment gateway transaction row.
type RawPayment struct {
	TransactionID  string          `json:"transaction_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	OrderKey       string          `json:"order_key"` // when the gateway carries the storefront key
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"` // captured, refunded, failed
	Method         string          `json:"method"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	BatchID        string          `json:"batch_id"`
	ReceivedAt     time.Time       `json:"received_at"`
}

// RawAttendance is one event attendance row. Attendance has no order key;
// linking relies entirely on the waterfall.
type RawAttendance struct {
	MeetingID       string    `json:"meeting_id"`
	MeetingTopic    string    `json:"meeting_topic"`
	MeetingDate     string    `json:"meeting_date"`
	ParticipantName string    `json:"participant_name"`
	Email           string    `json:"email"`
	EmailRaw        string    `json:"email_raw"`
	DurationMinutes int       `json:"duration_minutes"`
	Sessions        int       `json:"sessions"`
	Internal        bool      `json:"internal"`
	BatchID         string    `json:"batch_id"`
	ReceivedAt      time.Time `json:"received_at"`
}
