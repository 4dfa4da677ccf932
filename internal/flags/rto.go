package flags

import (
	"fmt"

	"github.com/topbeat/reconcile-cli/internal/model"
)

const (
	customerRTOThreshold = 0.5
	customerRTOMinOrders = 2
	pincodeRTOThreshold  = 0.3
	pincodeRTOMinOrders  = 5
)

// customerRTORule (RTO-001): this customer's orders bounce back often.
type customerRTORule struct{}

func (customerRTORule) Code() string             { return "RTO-001" }
func (customerRTORule) Family() model.FlagFamily { return model.FamilyRTO }

func (r customerRTORule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	if rec.Phone == "" || ctx.CustomerRTO == nil {
		return nil
	}
	stat, ok := ctx.CustomerRTO[rec.Phone]
	if !ok || stat.Total < customerRTOMinOrders || stat.Rate() < customerRTOThreshold {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityHigh, rec.OrderKey,
		fmt.Sprintf("customer RTO rate %.0f%% across %d orders", stat.Rate()*100, stat.Total))
}

// pincodeRTORule (RTO-002): the destination pincode has an elevated RTO rate.
type pincodeRTORule struct{}

func (pincodeRTORule) Code() string             { return "RTO-002" }
func (pincodeRTORule) Family() model.FlagFamily { return model.FamilyRTO }

func (r pincodeRTORule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	if rec.Pincode == "" || ctx.PincodeRTO == nil {
		return nil
	}
	stat, ok := ctx.PincodeRTO[rec.Pincode]
	if !ok || stat.Total < pincodeRTOMinOrders || stat.Rate() < pincodeRTOThreshold {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityMedium, rec.OrderKey,
		fmt.Sprintf("pincode %s RTO rate %.0f%% across %d orders", rec.Pincode, stat.Rate()*100, stat.Total))
}
