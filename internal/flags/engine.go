// Package flags evaluates independent reconciliation rules over unified
// orders. Each rule is a side-effect-free predicate returning zero or one
// flag; rules tolerate missing upstream data by not firing. The engine is
// order-independent: output is sorted, and persistence upserts by
// (code, order key) so re-evaluation never duplicates open flags.
package flags

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// RateStat is a count-based rate used by aggregate rules.
type RateStat struct {
	RTO   int
	Total int
}

// Rate returns RTO/Total, or 0 when there is no data.
func (r RateStat) Rate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.RTO) / float64(r.Total)
}

// Context carries the tunables and aggregate data rules may consult.
// Aggregates are precomputed per evaluation pass so each rule stays a pure
// function of (Context, record).
type Context struct {
	Now             time.Time
	AmountTolerance decimal.Decimal
	HighValueCOD    decimal.Decimal
	NotShippedAfter time.Duration

	CustomerRTO map[string]RateStat // keyed by normalized phone
	PincodeRTO  map[string]RateStat
	Conflicts   map[string][]string // order key -> unresolvable field conflicts from merge
}

// DefaultContext returns a Context with stock thresholds.
func DefaultContext(now time.Time) Context {
	return Context{
		Now:             now,
		AmountTolerance: decimal.NewFromInt(10),
		HighValueCOD:    decimal.NewFromInt(5000),
		NotShippedAfter: 48 * time.Hour,
	}
}

// Rule is one independent reconciliation check.
type Rule interface {
	Code() string
	Family() model.FlagFamily
	// Evaluate returns a flag or nil. It must not mutate rec and must not
	// error: a rule whose required field is absent simply does not fire.
	Evaluate(ctx Context, rec model.UnifiedOrder) *model.Flag
}

// Engine runs a registry of rules over one record at a time.
type Engine struct {
	rules    []Rule
	disabled map[string]bool
}

// NewEngine builds an engine over the given rules; with none given it uses
// DefaultRules.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules, disabled: map[string]bool{}}
}

// Disable turns off a rule by code.
func (e *Engine) Disable(code string) { e.disabled[code] = true }

// Rules returns the registered rules (for listing/inspection).
func (e *Engine) Rules() []Rule { return e.rules }

// Evaluate runs every enabled rule against rec. The result is sorted by
// code so rule registration order never leaks into output.
func (e *Engine) Evaluate(ctx Context, rec model.UnifiedOrder) []model.Flag {
	var out []model.Flag
	for _, r := range e.rules {
		if e.disabled[r.Code()] {
			continue
		}
		if f := r.Evaluate(ctx, rec); f != nil {
			if f.Code != r.Code() || f.Family != r.Family() {
				zap.L().Warn("rule emitted mismatched flag identity",
					zap.String("rule", r.Code()),
					zap.String("flag", f.Code),
				)
				continue
			}
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// DefaultRules is the stock registry, every family represented.
func DefaultRules() []Rule {
	return []Rule{
		amountMismatchRule{},
		paidWithoutPaymentRule{},
		refundDisagreementRule{},
		notShippedRule{},
		deliveryFailedRule{},
		delayedDispatchRule{},
		customerRTORule{},
		pincodeRTORule{},
		refundExceedsTotalRule{},
		missingIdentityRule{},
		mergeConflictRule{},
		missingTotalRule{},
		highValueCODRule{},
	}
}

var ten = decimal.NewFromInt(10)

func newFlag(code string, family model.FlagFamily, sev model.Severity, key, msg string) *model.Flag {
	return &model.Flag{
		Code:     code,
		Family:   family,
		Severity: sev,
		OrderKey: key,
		Message:  msg,
	}
}
