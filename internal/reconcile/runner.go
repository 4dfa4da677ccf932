// Package reconcile orchestrates a full reconciliation pass: link every
// shipment, payment, and attendance row to a canonical order, merge the
// linked rows into unified orders, evaluate the rule registry, and persist
// the results. A pass is idempotent: raw rows are never modified, unified
// orders are replaced wholesale, and flags upsert by (code, order key).
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/topbeat/reconcile-cli/internal/flags"
	"github.com/topbeat/reconcile-cli/internal/journey"
	"github.com/topbeat/reconcile-cli/internal/match"
	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
	"github.com/topbeat/reconcile-cli/internal/store"
)

// Runner wires the matcher, merge, and rule engine over one store. Zero-value
// tunables fall back to the stock thresholds.
type Runner struct {
	Store   store.Store
	Matcher *match.Matcher
	Engine  *flags.Engine
	Norm    normalize.Normalizer

	StatusMap journey.StatusMap
	Dispatch  journey.DispatchThresholds

	AmountTolerance decimal.Decimal
	HighValueCOD    decimal.Decimal
	NotShippedAfter time.Duration

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time
}

// decisionBatcher is implemented by stores with a bulk audit-trail path.
type decisionBatcher interface {
	AppendDecisions(ctx context.Context, ds []model.MatchDecision) error
}

// unifiedBatcher is implemented by stores with a bulk merge-result path.
type unifiedBatcher interface {
	UpsertUnifiedBatch(ctx context.Context, us []model.UnifiedOrder) error
}

// Summary reports what one pass did.
type Summary struct {
	Orders      int                  `json:"orders"`
	Linked      map[model.Source]int `json:"linked"`
	Unmatched   int                  `json:"unmatched"`
	FlagsRaised int                  `json:"flags_raised"`
	Metrics     Metrics              `json:"metrics"`
}

// Run executes a full reconciliation pass and returns its summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	matcher := r.Matcher
	if matcher == nil {
		matcher = match.New(nil)
	}
	engine := r.Engine
	if engine == nil {
		engine = flags.NewEngine()
	}

	orders, err := r.Store.ListRawOrders(ctx)
	if err != nil {
		return nil, err
	}
	shipments, err := r.Store.ListRawShipments(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := r.Store.ListRawPayments(ctx)
	if err != nil {
		return nil, err
	}
	attendance, err := r.Store.ListRawAttendance(ctx)
	if err != nil {
		return nil, err
	}

	snap, byGateway := r.buildSnapshot(orders)

	summary := &Summary{
		Orders: len(orders),
		Linked: map[model.Source]int{},
	}

	shipByKey := map[string]*model.RawShipment{}
	payByKey := map[string]*model.RawPayment{}
	attByKey := map[string][]model.RawAttendance{}
	var decisions []model.MatchDecision

	for i := range shipments {
		sh := &shipments[i]
		c := match.Candidate{
			Source:     model.SourceLogistics,
			NaturalKey: sh.AWB,
			OrderKey:   sh.OrderKey,
			Phone:      r.quietPhone(sh.DropPhone),
			Name:       r.quietName(sh.DropName),
		}
		key, err := r.commit(ctx, matcher, snap, c, sh.BatchID, summary, &decisions)
		if err != nil {
			return nil, err
		}
		if key != "" {
			if _, taken := shipByKey[key]; !taken {
				shipByKey[key] = sh
			}
		}
	}

	for i := range payments {
		p := &payments[i]
		orderKey := p.OrderKey
		if orderKey == "" {
			orderKey = byGateway[p.GatewayOrderID]
		}
		c := match.Candidate{
			Source:     model.SourcePayment,
			NaturalKey: p.TransactionID,
			OrderKey:   orderKey,
			Email:      p.Email,
			Phone:      p.Phone,
		}
		key, err := r.commit(ctx, matcher, snap, c, p.BatchID, summary, &decisions)
		if err != nil {
			return nil, err
		}
		if key != "" {
			if _, taken := payByKey[key]; !taken {
				payByKey[key] = p
			}
		}
	}

	for i := range attendance {
		a := &attendance[i]
		c := match.Candidate{
			Source:     model.SourceAttendance,
			NaturalKey: a.MeetingID + "/" + a.ParticipantName,
			Email:      a.Email,
			Name:       r.quietName(a.ParticipantName),
		}
		d, err := r.commitAttendance(ctx, matcher, snap, c, a.BatchID, summary, &decisions)
		if err != nil {
			return nil, err
		}
		if d.Matched() {
			attByKey[d.MatchedKey] = append(attByKey[d.MatchedKey], *a)
		}
	}

	if err := r.appendDecisions(ctx, decisions); err != nil {
		return nil, err
	}

	// Merge every order, collecting conflicts for the rule engine and the
	// merged set for the aggregate rules.
	unified := make([]model.UnifiedOrder, 0, len(orders))
	conflicts := map[string][]string{}
	for i := range orders {
		o := &orders[i]
		u, cs := store.Merge(store.MergeInput{
			OrderKey:   o.OrderKey,
			Order:      o,
			Shipment:   shipByKey[o.OrderKey],
			Payment:    payByKey[o.OrderKey],
			Attendance: attByKey[o.OrderKey],
			StatusMap:  r.StatusMap,
			Dispatch:   r.Dispatch,
			Norm:       r.Norm,
		})
		if len(cs) > 0 {
			conflicts[o.OrderKey] = cs
		}
		unified = append(unified, u)
	}

	fctx := flags.DefaultContext(now)
	if !r.AmountTolerance.IsZero() {
		fctx.AmountTolerance = r.AmountTolerance
	}
	if !r.HighValueCOD.IsZero() {
		fctx.HighValueCOD = r.HighValueCOD
	}
	if r.NotShippedAfter > 0 {
		fctx.NotShippedAfter = r.NotShippedAfter
	}
	fctx.Conflicts = conflicts
	fctx.CustomerRTO, fctx.PincodeRTO = rtoRates(unified)

	if err := r.persistUnified(ctx, unified); err != nil {
		return nil, err
	}
	for _, u := range unified {
		for _, f := range engine.Evaluate(fctx, u) {
			if err := r.Store.UpsertFlag(ctx, f); err != nil {
				return nil, err
			}
			summary.FlagsRaised++
		}
	}

	summary.Metrics = Summarize(unified)

	zap.L().Info("reconciliation pass complete",
		zap.Int("orders", summary.Orders),
		zap.Int("unmatched", summary.Unmatched),
		zap.Int("flags", summary.FlagsRaised),
	)
	return summary, nil
}

// commit evaluates one candidate, records its decision for the audit flush,
// and queues misses for manual review. Returns the linked order key or "".
func (r *Runner) commit(ctx context.Context, matcher *match.Matcher, snap *match.Snapshot, c match.Candidate, batchID string, summary *Summary, decisions *[]model.MatchDecision) (string, error) {
	d := matcher.Match(c, snap)
	d.BatchID = batchID
	*decisions = append(*decisions, d)
	if !d.Matched() {
		summary.Unmatched++
		if err := r.Store.EnqueueReview(ctx, model.ReviewItem{
			Source:     c.Source,
			NaturalKey: c.NaturalKey,
			Email:      c.Email,
			Phone:      c.Phone,
			Name:       c.Name,
			Reason:     "no identity tier matched",
			BatchID:    batchID,
		}); err != nil {
			return "", err
		}
		return "", nil
	}
	summary.Linked[c.Source]++
	return d.MatchedKey, nil
}

// Attendance rows never carry an order key, so even a successful link can be
// weak. Links below this confidence stay linked but are also queued for a
// human to confirm.
const attendanceReviewConfidence = 0.8

// commitAttendance is commit plus the low-confidence review rule.
func (r *Runner) commitAttendance(ctx context.Context, matcher *match.Matcher, snap *match.Snapshot, c match.Candidate, batchID string, summary *Summary, decisions *[]model.MatchDecision) (model.MatchDecision, error) {
	key, err := r.commit(ctx, matcher, snap, c, batchID, summary, decisions)
	if err != nil {
		return model.MatchDecision{}, err
	}
	d := (*decisions)[len(*decisions)-1]
	if key != "" && d.Confidence < attendanceReviewConfidence {
		if err := r.Store.EnqueueReview(ctx, model.ReviewItem{
			Source:     c.Source,
			NaturalKey: c.NaturalKey,
			Email:      c.Email,
			Name:       c.Name,
			Reason:     fmt.Sprintf("low-confidence attendance link to %s (%s, %.2f)", key, d.Method, d.Confidence),
			BatchID:    batchID,
		}); err != nil {
			return model.MatchDecision{}, err
		}
	}
	return d, nil
}

// appendDecisions flushes the pass's audit trail, taking the store's bulk
// path when it has one.
func (r *Runner) appendDecisions(ctx context.Context, ds []model.MatchDecision) error {
	if b, ok := r.Store.(decisionBatcher); ok {
		return b.AppendDecisions(ctx, ds)
	}
	for _, d := range ds {
		if err := r.Store.AppendDecision(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) persistUnified(ctx context.Context, us []model.UnifiedOrder) error {
	if b, ok := r.Store.(unifiedBatcher); ok {
		return b.UpsertUnifiedBatch(ctx, us)
	}
	for _, u := range us {
		if err := r.Store.UpsertUnified(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// buildSnapshot turns the raw order corpus into the matcher's view, plus the
// gateway-order-id index used to resolve payment rows that carry no receipt.
func (r *Runner) buildSnapshot(orders []model.RawOrder) (*match.Snapshot, map[string]string) {
	entries := make([]match.Entry, 0, len(orders))
	byGateway := make(map[string]string, len(orders))
	for i, o := range orders {
		entries = append(entries, match.Entry{
			OrderKey: o.OrderKey,
			Email:    o.Email,
			Phone:    o.Phone,
			Name:     r.quietName(o.ShippingName),
			AltName:  r.quietName(o.BillingName),
			Seq:      i,
		})
		if o.GatewayOrderID != "" {
			if _, dup := byGateway[o.GatewayOrderID]; !dup {
				byGateway[o.GatewayOrderID] = o.OrderKey
			}
		}
	}
	return match.NewSnapshot(entries), byGateway
}

func (r *Runner) quietName(raw string) string {
	name, err := r.Norm.Name(raw)
	if err != nil {
		return ""
	}
	return name
}

func (r *Runner) quietPhone(raw string) string {
	phone, err := r.Norm.Phone(raw)
	if err != nil {
		return ""
	}
	return phone
}

// rtoRates precomputes the per-customer and per-pincode RTO rates the
// aggregate rules consult. Only dispatched orders enter the denominator.
func rtoRates(unified []model.UnifiedOrder) (map[string]flags.RateStat, map[string]flags.RateStat) {
	byPhone := map[string]flags.RateStat{}
	byPincode := map[string]flags.RateStat{}
	for _, u := range unified {
		if !u.HasShipment {
			continue
		}
		rto := 0
		if u.DeliveryClass == model.DeliveryRTO {
			rto = 1
		}
		if u.Phone != "" {
			s := byPhone[u.Phone]
			s.Total++
			s.RTO += rto
			byPhone[u.Phone] = s
		}
		if u.Pincode != "" {
			s := byPincode[u.Pincode]
			s.Total++
			s.RTO += rto
			byPincode[u.Pincode] = s
		}
	}
	return byPhone, byPincode
}
