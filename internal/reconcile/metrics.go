package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// Metrics is the roll-up over one reconciliation pass. Rates are computed
// over dispatched orders only: an order that never left the warehouse can
// neither deliver nor return.
type Metrics struct {
	Total     int `json:"total"`
	Shipped   int `json:"shipped"`
	Delivered int `json:"delivered"`
	RTO       int `json:"rto"`

	DeliveryRate float64 `json:"delivery_rate"`
	RTORate      float64 `json:"rto_rate"`

	RevenueActual  decimal.Decimal `json:"revenue_actual"`
	RevenuePending decimal.Decimal `json:"revenue_pending"`
	RevenueLost    decimal.Decimal `json:"revenue_lost"`

	ByStage    map[model.Stage]int         `json:"by_stage"`
	ByDispatch map[model.DispatchClass]int `json:"by_dispatch"`
	ByPayment  map[model.PaymentClass]int  `json:"by_payment"`
}

// Summarize computes metrics over a merged order set.
func Summarize(unified []model.UnifiedOrder) Metrics {
	m := Metrics{
		Total:      len(unified),
		ByStage:    map[model.Stage]int{},
		ByDispatch: map[model.DispatchClass]int{},
		ByPayment:  map[model.PaymentClass]int{},
	}

	for _, u := range unified {
		m.ByStage[u.Stage]++
		m.ByDispatch[u.DispatchClass]++
		m.ByPayment[u.PaymentClass]++

		if u.HasShipment {
			m.Shipped++
		}
		switch u.DeliveryClass {
		case model.DeliveryDelivered:
			m.Delivered++
		case model.DeliveryRTO:
			m.RTO++
		}

		switch u.Revenue {
		case model.RevenueActual:
			m.RevenueActual = m.RevenueActual.Add(u.Total)
		case model.RevenuePending:
			m.RevenuePending = m.RevenuePending.Add(u.Total)
		case model.RevenueLost:
			m.RevenueLost = m.RevenueLost.Add(u.Total)
		}
	}

	if m.Shipped > 0 {
		m.DeliveryRate = float64(m.Delivered) / float64(m.Shipped)
		m.RTORate = float64(m.RTO) / float64(m.Shipped)
	}
	return m
}
