// Package model defines the domain types shared across the reconciliation
// pipeline: raw per-source rows, the unified order view, match decisions,
// reconciliation flags, and import batches.
package model

// Source identifies which upstream system a raw record came from.
type Source string

const (
	SourceStorefront Source = "storefront_order"
	SourceLogistics  Source = "logistics_shipment"
	SourcePayment    Source = "payment_transaction"
	SourceAttendance Source = "attendance_record"
)

// KnownSources lists every accepted source identifier.
var KnownSources = []Source{
	SourceStorefront,
	SourceLogistics,
	SourcePayment,
	SourceAttendance,
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}
