package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/topbeat/reconcile-cli/internal/db"
	"github.com/topbeat/reconcile-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot reconcile-loop operations.
var preparedStatements = map[string]string{
	"get_unified":     `SELECT payload FROM unified_orders WHERE order_key = $1`,
	"append_decision": `INSERT INTO match_decisions (id, candidate_source, candidate_key, matched_key, method, confidence, tier, batch_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"upsert_flag":     `INSERT INTO flags (id, code, family, severity, order_key, message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (code, order_key) DO UPDATE SET severity = EXCLUDED.severity, message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for bulk-load paths.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS import_batches (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source       TEXT NOT NULL,
	filename     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'started',
	total_rows   INTEGER NOT NULL DEFAULT 0,
	new_rows     INTEGER NOT NULL DEFAULT 0,
	updated_rows INTEGER NOT NULL DEFAULT 0,
	failed_rows  INTEGER NOT NULL DEFAULT 0,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS raw_orders (
	order_key   TEXT PRIMARY KEY,
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	batch_id    TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_shipments (
	order_key   TEXT PRIMARY KEY,
	awb         TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	batch_id    TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_payments (
	transaction_id   TEXT PRIMARY KEY,
	gateway_order_id TEXT NOT NULL DEFAULT '',
	order_key        TEXT NOT NULL DEFAULT '',
	payload          JSONB NOT NULL,
	batch_id         TEXT NOT NULL,
	received_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_attendance (
	meeting_id       TEXT NOT NULL,
	participant_name TEXT NOT NULL,
	email            TEXT NOT NULL DEFAULT '',
	payload          JSONB NOT NULL,
	batch_id         TEXT NOT NULL,
	received_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (meeting_id, participant_name)
);

CREATE TABLE IF NOT EXISTS match_decisions (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	candidate_source TEXT NOT NULL,
	candidate_key    TEXT NOT NULL,
	matched_key      TEXT NOT NULL DEFAULT '',
	method           TEXT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	tier             INTEGER NOT NULL,
	batch_id         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS unified_orders (
	order_key        TEXT PRIMARY KEY,
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	stage            TEXT NOT NULL,
	delivery_class   TEXT NOT NULL,
	payment_class    TEXT NOT NULL,
	revenue_category TEXT NOT NULL,
	ordered_at       TIMESTAMPTZ,
	payload          JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flags (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	code        TEXT NOT NULL,
	family      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	order_key   TEXT NOT NULL,
	message     TEXT NOT NULL,
	resolved    BOOLEAN NOT NULL DEFAULT false,
	resolved_by TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMPTZ,
	note        TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (code, order_key)
);

CREATE TABLE IF NOT EXISTS review_queue (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source      TEXT NOT NULL,
	natural_key TEXT NOT NULL,
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL,
	batch_id    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (source, natural_key)
);

CREATE INDEX IF NOT EXISTS idx_raw_orders_email ON raw_orders(email);
CREATE INDEX IF NOT EXISTS idx_raw_orders_phone ON raw_orders(phone);
CREATE INDEX IF NOT EXISTS idx_raw_payments_order_key ON raw_payments(order_key);
CREATE INDEX IF NOT EXISTS idx_match_decisions_matched_key ON match_decisions(matched_key);
CREATE INDEX IF NOT EXISTS idx_match_decisions_candidate ON match_decisions(candidate_source, candidate_key);
CREATE INDEX IF NOT EXISTS idx_unified_orders_stage ON unified_orders(stage);
CREATE INDEX IF NOT EXISTS idx_unified_orders_phone ON unified_orders(phone);
CREATE INDEX IF NOT EXISTS idx_unified_orders_ordered_at ON unified_orders(ordered_at);
CREATE INDEX IF NOT EXISTS idx_flags_order_key ON flags(order_key);
CREATE INDEX IF NOT EXISTS idx_flags_resolved ON flags(resolved);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) StartBatch(ctx context.Context, source model.Source, filename string) (*model.ImportBatch, error) {
	if !source.Valid() {
		return nil, eris.Errorf("postgres: unknown source %q", source)
	}
	b := model.ImportBatch{
		ID:        uuid.New().String(),
		Source:    source,
		Filename:  filename,
		Status:    model.BatchStarted,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_batches (id, source, filename, status, started_at) VALUES ($1, $2, $3, $4, $5)`,
		b.ID, string(b.Source), b.Filename, string(b.Status), b.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert batch")
	}
	return &b, nil
}

func (s *PostgresStore) CompleteBatch(ctx context.Context, batchID string, counts BatchCounts) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_batches
		 SET status = $1, total_rows = $2, new_rows = $3, updated_rows = $4, failed_rows = $5, completed_at = $6
		 WHERE id = $7`,
		string(model.BatchComplete), counts.Total, counts.New, counts.Updated, counts.Failed,
		time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) FailBatch(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_batches SET status = $1, completed_at = $2 WHERE id = $3`,
		string(model.BatchFailed), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail batch %s", batchID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("batch not found: %s", batchID)
	}
	return nil
}

func (s *PostgresStore) GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	var b model.ImportBatch
	var completedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, source, filename, status, total_rows, new_rows, updated_rows, failed_rows, started_at, completed_at
		 FROM import_batches WHERE id = $1`, batchID,
	).Scan(&b.ID, &b.Source, &b.Filename, &b.Status,
		&b.TotalRows, &b.NewRows, &b.UpdatedRows, &b.FailedRows,
		&b.StartedAt, &completedAt)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get batch %s", batchID)
	}
	b.CompletedAt = completedAt
	return &b, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context, limit int) ([]model.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, filename, status, total_rows, new_rows, updated_rows, failed_rows, started_at, completed_at
		 FROM import_batches ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	var out []model.ImportBatch
	for rows.Next() {
		var b model.ImportBatch
		var completedAt *time.Time
		if err := rows.Scan(&b.ID, &b.Source, &b.Filename, &b.Status,
			&b.TotalRows, &b.NewRows, &b.UpdatedRows, &b.FailedRows,
			&b.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		b.CompletedAt = completedAt
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

// upsertReturningNew runs an INSERT ... ON CONFLICT DO UPDATE that returns
// whether the row was newly inserted (xmax = 0 on a fresh tuple).
func (s *PostgresStore) upsertReturningNew(ctx context.Context, table, query string, args ...any) (bool, error) {
	var created bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&created); err != nil {
		return false, eris.Wrapf(err, "postgres: upsert %s", table)
	}
	return created, nil
}

func (s *PostgresStore) UpsertRawOrder(ctx context.Context, o model.RawOrder) (bool, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal raw order")
	}
	return s.upsertReturningNew(ctx, "raw_orders",
		`INSERT INTO raw_orders (order_key, email, phone, payload, batch_id, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (order_key) DO UPDATE SET
		   email = EXCLUDED.email, phone = EXCLUDED.phone, payload = EXCLUDED.payload,
		   batch_id = EXCLUDED.batch_id, received_at = EXCLUDED.received_at
		 RETURNING (xmax = 0)`,
		o.OrderKey, o.Email, o.Phone, payload, o.BatchID, o.ReceivedAt)
}

func (s *PostgresStore) UpsertRawShipment(ctx context.Context, sh model.RawShipment) (bool, error) {
	payload, err := json.Marshal(sh)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal raw shipment")
	}
	return s.upsertReturningNew(ctx, "raw_shipments",
		`INSERT INTO raw_shipments (order_key, awb, payload, batch_id, received_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (order_key) DO UPDATE SET
		   awb = EXCLUDED.awb, payload = EXCLUDED.payload,
		   batch_id = EXCLUDED.batch_id, received_at = EXCLUDED.received_at
		 RETURNING (xmax = 0)`,
		sh.OrderKey, sh.AWB, payload, sh.BatchID, sh.ReceivedAt)
}

func (s *PostgresStore) UpsertRawPayment(ctx context.Context, p model.RawPayment) (bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal raw payment")
	}
	return s.upsertReturningNew(ctx, "raw_payments",
		`INSERT INTO raw_payments (transaction_id, gateway_order_id, order_key, payload, batch_id, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (transaction_id) DO UPDATE SET
		   gateway_order_id = EXCLUDED.gateway_order_id, order_key = EXCLUDED.order_key,
		   payload = EXCLUDED.payload, batch_id = EXCLUDED.batch_id, received_at = EXCLUDED.received_at
		 RETURNING (xmax = 0)`,
		p.TransactionID, p.GatewayOrderID, p.OrderKey, payload, p.BatchID, p.ReceivedAt)
}

func (s *PostgresStore) UpsertRawAttendance(ctx context.Context, a model.RawAttendance) (bool, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal raw attendance")
	}
	return s.upsertReturningNew(ctx, "raw_attendance",
		`INSERT INTO raw_attendance (meeting_id, participant_name, email, payload, batch_id, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (meeting_id, participant_name) DO UPDATE SET
		   email = EXCLUDED.email, payload = EXCLUDED.payload,
		   batch_id = EXCLUDED.batch_id, received_at = EXCLUDED.received_at
		 RETURNING (xmax = 0)`,
		a.MeetingID, a.ParticipantName, a.Email, payload, a.BatchID, a.ReceivedAt)
}

func listPGPayloads[T any](ctx context.Context, pool db.Pool, query string) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list payloads")
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan payload")
		}
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal payload")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate payloads")
}

func (s *PostgresStore) ListRawOrders(ctx context.Context) ([]model.RawOrder, error) {
	return listPGPayloads[model.RawOrder](ctx, s.pool, `SELECT payload FROM raw_orders ORDER BY order_key`)
}

func (s *PostgresStore) ListRawShipments(ctx context.Context) ([]model.RawShipment, error) {
	return listPGPayloads[model.RawShipment](ctx, s.pool, `SELECT payload FROM raw_shipments ORDER BY order_key`)
}

func (s *PostgresStore) ListRawPayments(ctx context.Context) ([]model.RawPayment, error) {
	return listPGPayloads[model.RawPayment](ctx, s.pool, `SELECT payload FROM raw_payments ORDER BY transaction_id`)
}

func (s *PostgresStore) ListRawAttendance(ctx context.Context) ([]model.RawAttendance, error) {
	return listPGPayloads[model.RawAttendance](ctx, s.pool, `SELECT payload FROM raw_attendance ORDER BY meeting_id, participant_name`)
}

func (s *PostgresStore) AppendDecision(ctx context.Context, d model.MatchDecision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_decisions (id, candidate_source, candidate_key, matched_key, method, confidence, tier, batch_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, string(d.CandidateSource), d.CandidateKey, d.MatchedKey, string(d.Method),
		d.Confidence, d.Tier, d.BatchID, d.CreatedAt,
	)
	return eris.Wrap(err, "postgres: append decision")
}

// AppendDecisions bulk-loads a reconciliation pass's decisions over the COPY
// protocol. The audit trail is append-only, so no conflict handling is needed.
func (s *PostgresStore) AppendDecisions(ctx context.Context, ds []model.MatchDecision) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(ds))
	for _, d := range ds {
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		rows = append(rows, []any{d.ID, string(d.CandidateSource), d.CandidateKey, d.MatchedKey,
			string(d.Method), d.Confidence, d.Tier, d.BatchID, d.CreatedAt})
	}
	_, err := db.CopyFrom(ctx, s.pool, "match_decisions",
		[]string{"id", "candidate_source", "candidate_key", "matched_key", "method", "confidence", "tier", "batch_id", "created_at"},
		rows)
	return eris.Wrap(err, "postgres: append decisions")
}

func (s *PostgresStore) ListDecisions(ctx context.Context, orderKey string) ([]model.MatchDecision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, candidate_source, candidate_key, matched_key, method, confidence, tier, batch_id, created_at
		 FROM match_decisions WHERE matched_key = $1 OR candidate_key = $1
		 ORDER BY created_at, id`, orderKey)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list decisions")
	}
	defer rows.Close()

	var out []model.MatchDecision
	for rows.Next() {
		var d model.MatchDecision
		if err := rows.Scan(&d.ID, &d.CandidateSource, &d.CandidateKey, &d.MatchedKey,
			&d.Method, &d.Confidence, &d.Tier, &d.BatchID, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan decision")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list decisions iterate")
}

func (s *PostgresStore) UpsertUnified(ctx context.Context, u model.UnifiedOrder) error {
	now := time.Now().UTC()
	u.UpdatedAt = now
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal unified order")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO unified_orders (order_key, email, phone, stage, delivery_class, payment_class, revenue_category, ordered_at, payload, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (order_key) DO UPDATE SET
		   email = EXCLUDED.email, phone = EXCLUDED.phone, stage = EXCLUDED.stage,
		   delivery_class = EXCLUDED.delivery_class, payment_class = EXCLUDED.payment_class,
		   revenue_category = EXCLUDED.revenue_category, ordered_at = EXCLUDED.ordered_at,
		   payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		u.OrderKey, u.Email, u.Phone, string(u.Stage), string(u.DeliveryClass),
		string(u.PaymentClass), string(u.Revenue), u.OrderedAt, payload, u.CreatedAt, u.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: upsert unified %s", u.OrderKey)
}

// UpsertUnifiedBatch replaces a merged order set in one round trip via a temp
// table upsert. created_at stays untouched on conflict, matching the
// single-row path.
func (s *PostgresStore) UpsertUnifiedBatch(ctx context.Context, us []model.UnifiedOrder) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(us))
	for _, u := range us {
		u.UpdatedAt = now
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		payload, err := json.Marshal(u)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal unified order")
		}
		rows = append(rows, []any{u.OrderKey, u.Email, u.Phone, string(u.Stage), string(u.DeliveryClass),
			string(u.PaymentClass), string(u.Revenue), u.OrderedAt, payload, u.CreatedAt, u.UpdatedAt})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "unified_orders",
		Columns:      []string{"order_key", "email", "phone", "stage", "delivery_class", "payment_class", "revenue_category", "ordered_at", "payload", "created_at", "updated_at"},
		ConflictKeys: []string{"order_key"},
		UpdateCols:   []string{"email", "phone", "stage", "delivery_class", "payment_class", "revenue_category", "ordered_at", "payload", "updated_at"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert unified batch")
}

func (s *PostgresStore) GetUnified(ctx context.Context, orderKey string) (*model.UnifiedOrder, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM unified_orders WHERE order_key = $1`, orderKey,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get unified %s", orderKey)
	}
	var u model.UnifiedOrder
	if err := json.Unmarshal(payload, &u); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal unified order")
	}
	return &u, nil
}

func (s *PostgresStore) QueryUnified(ctx context.Context, filter UnifiedFilter) ([]model.UnifiedOrder, error) {
	query := `SELECT payload FROM unified_orders WHERE true`
	args := []any{}
	argIdx := 1

	add := func(clause, value string) {
		query += fmt.Sprintf(clause, argIdx)
		args = append(args, value)
		argIdx++
	}
	if filter.Stage != "" {
		add(` AND stage = $%d`, string(filter.Stage))
	}
	if filter.DeliveryClass != "" {
		add(` AND delivery_class = $%d`, string(filter.DeliveryClass))
	}
	if filter.PaymentClass != "" {
		add(` AND payment_class = $%d`, string(filter.PaymentClass))
	}
	if filter.Revenue != "" {
		add(` AND revenue_category = $%d`, string(filter.Revenue))
	}
	if filter.Phone != "" {
		add(` AND phone = $%d`, filter.Phone)
	}
	if filter.Email != "" {
		add(` AND email = $%d`, filter.Email)
	}
	if filter.OrderedFrom != nil {
		query += fmt.Sprintf(` AND ordered_at >= $%d`, argIdx)
		args = append(args, *filter.OrderedFrom)
		argIdx++
	}
	if filter.OrderedTo != nil {
		query += fmt.Sprintf(` AND ordered_at <= $%d`, argIdx)
		args = append(args, *filter.OrderedTo)
		argIdx++
	}
	if filter.Flagged != nil {
		sub := `SELECT 1 FROM flags WHERE flags.order_key = unified_orders.order_key AND NOT flags.resolved`
		if *filter.Flagged {
			query += ` AND EXISTS (` + sub + `)`
		} else {
			query += ` AND NOT EXISTS (` + sub + `)`
		}
	}
	query += ` ORDER BY order_key`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query unified")
	}
	defer rows.Close()

	var out []model.UnifiedOrder
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan unified")
		}
		var u model.UnifiedOrder
		if err := json.Unmarshal(payload, &u); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal unified order")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "postgres: query unified iterate")
}

func (s *PostgresStore) UpsertFlag(ctx context.Context, f model.Flag) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO flags (id, code, family, severity, order_key, message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (code, order_key) DO UPDATE SET
		   severity = EXCLUDED.severity, message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`,
		f.ID, f.Code, string(f.Family), string(f.Severity), f.OrderKey, f.Message, now, now,
	)
	return eris.Wrapf(err, "postgres: upsert flag %s/%s", f.Code, f.OrderKey)
}

func (s *PostgresStore) ListFlags(ctx context.Context, filter FlagFilter) ([]model.Flag, error) {
	query := `SELECT id, code, family, severity, order_key, message, resolved, resolved_by, resolved_at, note, created_at, updated_at
	 FROM flags WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Family != "" {
		query += fmt.Sprintf(` AND family = $%d`, argIdx)
		args = append(args, string(filter.Family))
		argIdx++
	}
	if filter.Severity != "" {
		query += fmt.Sprintf(` AND severity = $%d`, argIdx)
		args = append(args, string(filter.Severity))
		argIdx++
	}
	if filter.OrderKey != "" {
		query += fmt.Sprintf(` AND order_key = $%d`, argIdx)
		args = append(args, filter.OrderKey)
		argIdx++
	}
	if filter.Resolved != nil {
		query += fmt.Sprintf(` AND resolved = $%d`, argIdx)
		args = append(args, *filter.Resolved)
		argIdx++
	}
	query += ` ORDER BY order_key, code`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list flags")
	}
	defer rows.Close()

	var out []model.Flag
	for rows.Next() {
		var f model.Flag
		var resolvedAt *time.Time
		if err := rows.Scan(&f.ID, &f.Code, &f.Family, &f.Severity, &f.OrderKey, &f.Message,
			&f.Resolved, &f.ResolvedBy, &resolvedAt, &f.Note, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan flag")
		}
		f.ResolvedAt = resolvedAt
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list flags iterate")
}

func (s *PostgresStore) ResolveFlag(ctx context.Context, flagID, resolvedBy, note string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE flags SET resolved = true, resolved_by = $1, resolved_at = $2, note = $3, updated_at = $4 WHERE id = $5`,
		resolvedBy, now, note, now, flagID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: resolve flag %s", flagID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("flag not found: %s", flagID)
	}
	return nil
}

func (s *PostgresStore) EnqueueReview(ctx context.Context, item model.ReviewItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO review_queue (id, source, natural_key, email, phone, name, reason, batch_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (source, natural_key) DO UPDATE SET
		   email = EXCLUDED.email, phone = EXCLUDED.phone, name = EXCLUDED.name,
		   reason = EXCLUDED.reason, batch_id = EXCLUDED.batch_id`,
		item.ID, string(item.Source), item.NaturalKey, item.Email, item.Phone,
		item.Name, item.Reason, item.BatchID, item.CreatedAt,
	)
	return eris.Wrap(err, "postgres: enqueue review")
}

func (s *PostgresStore) ListReview(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, natural_key, email, phone, name, reason, batch_id, created_at
		 FROM review_queue ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list review")
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		var item model.ReviewItem
		if err := rows.Scan(&item.ID, &item.Source, &item.NaturalKey, &item.Email,
			&item.Phone, &item.Name, &item.Reason, &item.BatchID, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan review item")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list review iterate")
}
