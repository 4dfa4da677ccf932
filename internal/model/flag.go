package model

import "time"

// Severity ranks a reconciliation flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// FlagFamily groups rules by concern.
type FlagFamily string

const (
	FamilyPayment  FlagFamily = "payment"
	FamilyDelivery FlagFamily = "delivery"
	FamilyRTO      FlagFamily = "rto"
	FamilyCost     FlagFamily = "cost"
	FamilyQuality  FlagFamily = "data_quality"
	FamilyBusiness FlagFamily = "business"
)

// Flag is a recorded anomaly on a unified order requiring human review.
// Flags are upserted by (Code, OrderKey); resolution happens only through
// an explicit external action, never by rule re-evaluation.
type Flag struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Family     FlagFamily `json:"family"`
	Severity   Severity   `json:"severity"`
	OrderKey   string     `json:"order_key"`
	Message    string     `json:"message"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
