package flags

import (
	"fmt"
	"strings"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// missingIdentityRule (DQ-001): neither a normalized email nor phone
// survived normalization; the record cannot participate in identity tiers.
type missingIdentityRule struct{}

func (missingIdentityRule) Code() string             { return "DQ-001" }
func (missingIdentityRule) Family() model.FlagFamily { return model.FamilyQuality }

func (r missingIdentityRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasOrder || rec.Email != "" || rec.Phone != "" {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityLow, rec.OrderKey,
		"no normalizable email or phone on record")
}

// mergeConflictRule (DQ-002): the merge found sources disagreeing on a field
// with no configured precedence.
type mergeConflictRule struct{}

func (mergeConflictRule) Code() string             { return "DQ-002" }
func (mergeConflictRule) Family() model.FlagFamily { return model.FamilyQuality }

func (r mergeConflictRule) Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag {
	fields := ctx.Conflicts[rec.OrderKey]
	if len(fields) == 0 {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityMedium, rec.OrderKey,
		fmt.Sprintf("sources disagree without precedence on: %s", strings.Join(fields, ", ")))
}

// missingTotalRule (DQ-003): a storefront order with no financial total.
type missingTotalRule struct{}

func (missingTotalRule) Code() string             { return "DQ-003" }
func (missingTotalRule) Family() model.FlagFamily { return model.FamilyQuality }

func (r missingTotalRule) Evaluate(_ Context, rec model.UnifiedOrder) *model.Flag {
	if !rec.HasOrder || !rec.Total.IsZero() {
		return nil
	}
	return newFlag(r.Code(), r.Family(), model.SeverityMedium, rec.OrderKey,
		"order has no financial total")
}
