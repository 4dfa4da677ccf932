package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
)

// PaymentParser maps payment gateway settlement export rows to RawPayment.
type PaymentParser struct {
	Norm normalize.Normalizer
}

// Parse converts one gateway row. The transaction id is the natural key and
// is required; the storefront key (receipt) is optional, the waterfall links
// the rest.
func (p PaymentParser) Parse(row Row) (model.RawPayment, error) {
	txn := row.Get("id", "payment id", "transaction id")
	if txn == "" {
		return model.RawPayment{}, eris.New("ingest: payment row has no transaction id")
	}

	pay := model.RawPayment{
		TransactionID:  txn,
		GatewayOrderID: row.Get("order_id", "order id", "gateway order id"),
		OrderKey:       normalize.OrderKey(row.Get("receipt", "order key", "notes.order_key")),
		Amount:         parseDecimal(row.Get("amount")),
		Status:         row.Get("status"),
		Method:         row.Get("method", "payment method"),
		PaidAt:         parseTime(row.Get("created at", "paid at")),
	}

	if email, err := normalize.Email(row.Get("email", "customer email")); err == nil {
		pay.Email = email
	}
	if phone, err := p.Norm.Phone(row.Get("contact", "phone", "customer phone")); err == nil {
		pay.Phone = phone
	}

	return pay, nil
}
