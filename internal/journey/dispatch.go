package journey

import (
	"time"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// DispatchThresholds set the bucket boundaries in hours.
type DispatchThresholds struct {
	FastHours   float64
	NormalHours float64
}

// DefaultDispatchThresholds: fast under 24h, normal up to 48h.
func DefaultDispatchThresholds() DispatchThresholds {
	return DispatchThresholds{FastHours: 24, NormalHours: 48}
}

// DispatchHours returns the hours between order placement and pickup, or nil
// when either timestamp is missing or pickup precedes the order.
func DispatchHours(orderedAt, pickupAt *time.Time) *float64 {
	if orderedAt == nil || pickupAt == nil {
		return nil
	}
	h := pickupAt.Sub(*orderedAt).Hours()
	if h < 0 {
		return nil
	}
	return &h
}

// ClassifyDispatch buckets a dispatch duration.
func (t DispatchThresholds) ClassifyDispatch(hours *float64) model.DispatchClass {
	switch {
	case hours == nil:
		return model.DispatchNotDispatched
	case *hours <= t.FastHours:
		return model.DispatchFast
	case *hours <= t.NormalHours:
		return model.DispatchNormal
	}
	return model.DispatchDelayed
}
