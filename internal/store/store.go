package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// UnifiedFilter specifies criteria for querying unified orders. OrderedFrom
// and OrderedTo bound the storefront order timestamp inclusively; orders
// without one never match a date-bounded query. Flagged selects orders that
// carry (or do not carry) at least one open flag.
type UnifiedFilter struct {
	Stage         model.Stage           `json:"stage,omitempty"`
	DeliveryClass model.DeliveryClass   `json:"delivery_class,omitempty"`
	PaymentClass  model.PaymentClass    `json:"payment_class,omitempty"`
	Revenue       model.RevenueCategory `json:"revenue_category,omitempty"`
	Phone         string                `json:"phone,omitempty"`
	Email         string                `json:"email,omitempty"`
	OrderedFrom   *time.Time            `json:"ordered_from,omitempty"`
	OrderedTo     *time.Time            `json:"ordered_to,omitempty"`
	Flagged       *bool                 `json:"flagged,omitempty"`
	Limit         int                   `json:"limit,omitempty"`
	Offset        int                   `json:"offset,omitempty"`
}

// FlagFilter specifies criteria for listing flags.
type FlagFilter struct {
	Family   model.FlagFamily `json:"family,omitempty"`
	Severity model.Severity   `json:"severity,omitempty"`
	OrderKey string           `json:"order_key,omitempty"`
	Resolved *bool            `json:"resolved,omitempty"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// BatchCounts is the outcome of one import batch.
type BatchCounts struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Store defines the persistence interface for the reconciliation pipeline.
// Raw rows are upserted by natural key so re-importing a file is idempotent;
// match decisions are append-only; unified orders are owned by the merge and
// replaced wholesale; flags upsert by (code, order key).
type Store interface {
	// Import batches
	StartBatch(ctx context.Context, source model.Source, filename string) (*model.ImportBatch, error)
	CompleteBatch(ctx context.Context, batchID string, counts BatchCounts) error
	FailBatch(ctx context.Context, batchID string) error
	GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error)
	ListBatches(ctx context.Context, limit int) ([]model.ImportBatch, error)

	// Raw rows, upserted by natural key.
	UpsertRawOrder(ctx context.Context, o model.RawOrder) (created bool, err error)
	UpsertRawShipment(ctx context.Context, s model.RawShipment) (created bool, err error)
	UpsertRawPayment(ctx context.Context, p model.RawPayment) (created bool, err error)
	UpsertRawAttendance(ctx context.Context, a model.RawAttendance) (created bool, err error)
	ListRawOrders(ctx context.Context) ([]model.RawOrder, error)
	ListRawShipments(ctx context.Context) ([]model.RawShipment, error)
	ListRawPayments(ctx context.Context) ([]model.RawPayment, error)
	ListRawAttendance(ctx context.Context) ([]model.RawAttendance, error)

	// Match audit trail
	AppendDecision(ctx context.Context, d model.MatchDecision) error
	ListDecisions(ctx context.Context, orderKey string) ([]model.MatchDecision, error)

	// Unified orders
	UpsertUnified(ctx context.Context, u model.UnifiedOrder) error
	GetUnified(ctx context.Context, orderKey string) (*model.UnifiedOrder, error)
	QueryUnified(ctx context.Context, filter UnifiedFilter) ([]model.UnifiedOrder, error)

	// Flags
	UpsertFlag(ctx context.Context, f model.Flag) error
	ListFlags(ctx context.Context, filter FlagFilter) ([]model.Flag, error)
	ResolveFlag(ctx context.Context, flagID, resolvedBy, note string) error

	// Review queue
	EnqueueReview(ctx context.Context, item model.ReviewItem) error
	ListReview(ctx context.Context, limit int) ([]model.ReviewItem, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
