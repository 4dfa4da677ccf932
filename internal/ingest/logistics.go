package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
)

// LogisticsParser maps logistics provider export rows (CSV or XLSX) to
// RawShipment. The provider's channel order id carries the storefront key.
type LogisticsParser struct {
	Norm normalize.Normalizer
}

// Parse converts one provider row. A row without an order reference cannot
// be linked and is fatal for that row.
func (p LogisticsParser) Parse(row Row) (model.RawShipment, error) {
	key := normalize.OrderKey(row.Get("channel order id", "order id", "order number", "channel order name"))
	if key == "" {
		return model.RawShipment{}, eris.New("ingest: logistics row has no order identifier")
	}

	// Providers format phones their own way; store the canonical form so the
	// merge compares like with like. Unparseable values stay verbatim.
	dropPhone := row.Get("customer phone", "consignee phone", "drop phone", "phone")
	if phone, err := p.Norm.Phone(dropPhone); err == nil {
		dropPhone = phone
	}

	return model.RawShipment{
		OrderKey:       key,
		AWB:            row.Get("awb", "awb code", "awb number"),
		Courier:        row.Get("courier", "courier company", "courier name"),
		StatusRaw:      row.Get("status", "shipment status", "current status"),
		DropName:       row.Get("customer name", "consignee name", "drop name"),
		DropPhone:      dropPhone,
		DropCity:       row.Get("city", "drop city", "customer city"),
		DropState:      row.Get("state", "drop state", "customer state"),
		DropPincode:    row.Get("pincode", "zip", "drop pincode", "customer pincode"),
		PickupAt:       parseTime(row.Get("picked up date", "pickup date", "pickup at")),
		DeliveredAt:    parseTime(row.Get("delivered date", "delivery date", "delivered at")),
		RTODeliveredAt: parseTime(row.Get("rto delivered date", "rto delivered at")),
	}, nil
}
