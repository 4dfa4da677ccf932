package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS import_batches (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	filename     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'started',
	total_rows   INTEGER NOT NULL DEFAULT 0,
	new_rows     INTEGER NOT NULL DEFAULT 0,
	updated_rows INTEGER NOT NULL DEFAULT 0,
	failed_rows  INTEGER NOT NULL DEFAULT 0,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS raw_orders (
	order_key   TEXT PRIMARY KEY,
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	batch_id    TEXT NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_shipments (
	order_key   TEXT PRIMARY KEY,
	awb         TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	batch_id    TEXT NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_payments (
	transaction_id   TEXT PRIMARY KEY,
	gateway_order_id TEXT NOT NULL DEFAULT '',
	order_key        TEXT NOT NULL DEFAULT '',
	payload          TEXT NOT NULL,
	batch_id         TEXT NOT NULL,
	received_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS raw_attendance (
	meeting_id       TEXT NOT NULL,
	participant_name TEXT NOT NULL,
	email            TEXT NOT NULL DEFAULT '',
	payload          TEXT NOT NULL,
	batch_id         TEXT NOT NULL,
	received_at      DATETIME NOT NULL,
	PRIMARY KEY (meeting_id, participant_name)
);

CREATE TABLE IF NOT EXISTS match_decisions (
	id               TEXT PRIMARY KEY,
	candidate_source TEXT NOT NULL,
	candidate_key    TEXT NOT NULL,
	matched_key      TEXT NOT NULL DEFAULT '',
	method           TEXT NOT NULL,
	confidence       REAL NOT NULL,
	tier             INTEGER NOT NULL,
	batch_id         TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS unified_orders (
	order_key        TEXT PRIMARY KEY,
	email            TEXT NOT NULL DEFAULT '',
	phone            TEXT NOT NULL DEFAULT '',
	stage            TEXT NOT NULL,
	delivery_class   TEXT NOT NULL,
	payment_class    TEXT NOT NULL,
	revenue_category TEXT NOT NULL,
	ordered_at       TEXT NOT NULL DEFAULT '',
	payload          TEXT NOT NULL,
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS flags (
	id          TEXT PRIMARY KEY,
	code        TEXT NOT NULL,
	family      TEXT NOT NULL,
	severity    TEXT NOT NULL,
	order_key   TEXT NOT NULL,
	message     TEXT NOT NULL,
	resolved    INTEGER NOT NULL DEFAULT 0,
	resolved_by TEXT NOT NULL DEFAULT '',
	resolved_at DATETIME,
	note        TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL,
	UNIQUE (code, order_key)
);

CREATE TABLE IF NOT EXISTS review_queue (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	natural_key TEXT NOT NULL,
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL,
	batch_id    TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartBatch(ctx context.Context, source model.Source, filename string) (*model.ImportBatch, error) {
	if !source.Valid() {
		return nil, eris.Errorf("sqlite: unknown source %q", source)
	}
	b := model.ImportBatch{
		ID:        uuid.New().String(),
		Source:    source,
		Filename:  filename,
		Status:    model.BatchStarted,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_batches (id, source, filename, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, string(b.Source), b.Filename, string(b.Status), b.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert batch")
	}
	return &b, nil
}

func (s *SQLiteStore) CompleteBatch(ctx context.Context, batchID string, counts BatchCounts) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_batches
		 SET status = ?, total_rows = ?, new_rows = ?, updated_rows = ?, failed_rows = ?, completed_at = ?
		 WHERE id = ?`,
		string(model.BatchComplete), counts.Total, counts.New, counts.Updated, counts.Failed,
		time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete batch %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) FailBatch(ctx context.Context, batchID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_batches SET status = ?, completed_at = ? WHERE id = ?`,
		string(model.BatchFailed), time.Now().UTC(), batchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail batch %s", batchID)
	}
	return checkRowsAffected(res, "batch", batchID)
}

func (s *SQLiteStore) GetBatch(ctx context.Context, batchID string) (*model.ImportBatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, filename, status, total_rows, new_rows, updated_rows, failed_rows, started_at, completed_at
		 FROM import_batches WHERE id = ?`, batchID)
	return scanBatch(row)
}

func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]model.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, filename, status, total_rows, new_rows, updated_rows, failed_rows, started_at, completed_at
		 FROM import_batches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close()

	var out []model.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

// upsertPayload writes one payload-backed row keyed by the given columns and
// reports whether the row is new.
func (s *SQLiteStore) upsertPayload(ctx context.Context, table string, existsQuery string, existsArgs []any, insert string, insertArgs []any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, existsQuery, existsArgs...).Scan(&one)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return false, eris.Wrapf(err, "sqlite: check %s", table)
	}
	if _, err := s.db.ExecContext(ctx, insert, insertArgs...); err != nil {
		return false, eris.Wrapf(err, "sqlite: upsert %s", table)
	}
	return !exists, nil
}

func (s *SQLiteStore) UpsertRawOrder(ctx context.Context, o model.RawOrder) (bool, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal raw order")
	}
	return s.upsertPayload(ctx, "raw_orders",
		`SELECT 1 FROM raw_orders WHERE order_key = ?`, []any{o.OrderKey},
		`INSERT INTO raw_orders (order_key, email, phone, payload, batch_id, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(order_key) DO UPDATE SET
		   email = excluded.email, phone = excluded.phone, payload = excluded.payload,
		   batch_id = excluded.batch_id, received_at = excluded.received_at`,
		[]any{o.OrderKey, o.Email, o.Phone, string(payload), o.BatchID, o.ReceivedAt})
}

func (s *SQLiteStore) UpsertRawShipment(ctx context.Context, sh model.RawShipment) (bool, error) {
	payload, err := json.Marshal(sh)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal raw shipment")
	}
	return s.upsertPayload(ctx, "raw_shipments",
		`SELECT 1 FROM raw_shipments WHERE order_key = ?`, []any{sh.OrderKey},
		`INSERT INTO raw_shipments (order_key, awb, payload, batch_id, received_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(order_key) DO UPDATE SET
		   awb = excluded.awb, payload = excluded.payload,
		   batch_id = excluded.batch_id, received_at = excluded.received_at`,
		[]any{sh.OrderKey, sh.AWB, string(payload), sh.BatchID, sh.ReceivedAt})
}

func (s *SQLiteStore) UpsertRawPayment(ctx context.Context, p model.RawPayment) (bool, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal raw payment")
	}
	return s.upsertPayload(ctx, "raw_payments",
		`SELECT 1 FROM raw_payments WHERE transaction_id = ?`, []any{p.TransactionID},
		`INSERT INTO raw_payments (transaction_id, gateway_order_id, order_key, payload, batch_id, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(transaction_id) DO UPDATE SET
		   gateway_order_id = excluded.gateway_order_id, order_key = excluded.order_key,
		   payload = excluded.payload, batch_id = excluded.batch_id, received_at = excluded.received_at`,
		[]any{p.TransactionID, p.GatewayOrderID, p.OrderKey, string(payload), p.BatchID, p.ReceivedAt})
}

func (s *SQLiteStore) UpsertRawAttendance(ctx context.Context, a model.RawAttendance) (bool, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal raw attendance")
	}
	return s.upsertPayload(ctx, "raw_attendance",
		`SELECT 1 FROM raw_attendance WHERE meeting_id = ? AND participant_name = ?`,
		[]any{a.MeetingID, a.ParticipantName},
		`INSERT INTO raw_attendance (meeting_id, participant_name, email, payload, batch_id, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(meeting_id, participant_name) DO UPDATE SET
		   email = excluded.email, payload = excluded.payload,
		   batch_id = excluded.batch_id, received_at = excluded.received_at`,
		[]any{a.MeetingID, a.ParticipantName, a.Email, string(payload), a.BatchID, a.ReceivedAt})
}

func listPayloads[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list payloads")
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan payload")
		}
		var v T
		if err := json.Unmarshal([]byte(payload), &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal payload")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate payloads")
}

func (s *SQLiteStore) ListRawOrders(ctx context.Context) ([]model.RawOrder, error) {
	return listPayloads[model.RawOrder](ctx, s.db, `SELECT payload FROM raw_orders ORDER BY order_key`)
}

func (s *SQLiteStore) ListRawShipments(ctx context.Context) ([]model.RawShipment, error) {
	return listPayloads[model.RawShipment](ctx, s.db, `SELECT payload FROM raw_shipments ORDER BY order_key`)
}

func (s *SQLiteStore) ListRawPayments(ctx context.Context) ([]model.RawPayment, error) {
	return listPayloads[model.RawPayment](ctx, s.db, `SELECT payload FROM raw_payments ORDER BY transaction_id`)
}

func (s *SQLiteStore) ListRawAttendance(ctx context.Context) ([]model.RawAttendance, error) {
	return listPayloads[model.RawAttendance](ctx, s.db, `SELECT payload FROM raw_attendance ORDER BY meeting_id, participant_name`)
}

func (s *SQLiteStore) AppendDecision(ctx context.Context, d model.MatchDecision) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_decisions (id, candidate_source, candidate_key, matched_key, method, confidence, tier, batch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, string(d.CandidateSource), d.CandidateKey, d.MatchedKey, string(d.Method),
		d.Confidence, d.Tier, d.BatchID, d.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: append decision")
}

func (s *SQLiteStore) ListDecisions(ctx context.Context, orderKey string) ([]model.MatchDecision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, candidate_source, candidate_key, matched_key, method, confidence, tier, batch_id, created_at
		 FROM match_decisions WHERE matched_key = ? OR candidate_key = ?
		 ORDER BY created_at, id`,
		orderKey, orderKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list decisions")
	}
	defer rows.Close()

	var out []model.MatchDecision
	for rows.Next() {
		var d model.MatchDecision
		if err := rows.Scan(&d.ID, &d.CandidateSource, &d.CandidateKey, &d.MatchedKey,
			&d.Method, &d.Confidence, &d.Tier, &d.BatchID, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan decision")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list decisions iterate")
}

func (s *SQLiteStore) UpsertUnified(ctx context.Context, u model.UnifiedOrder) error {
	now := time.Now().UTC()
	u.UpdatedAt = now
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	payload, err := json.Marshal(u)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal unified order")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO unified_orders (order_key, email, phone, stage, delivery_class, payment_class, revenue_category, ordered_at, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(order_key) DO UPDATE SET
		   email = excluded.email, phone = excluded.phone, stage = excluded.stage,
		   delivery_class = excluded.delivery_class, payment_class = excluded.payment_class,
		   revenue_category = excluded.revenue_category, ordered_at = excluded.ordered_at,
		   payload = excluded.payload, updated_at = excluded.updated_at`,
		u.OrderKey, u.Email, u.Phone, string(u.Stage), string(u.DeliveryClass),
		string(u.PaymentClass), string(u.Revenue), orderedAtText(u.OrderedAt),
		string(payload), u.CreatedAt, u.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: upsert unified %s", u.OrderKey)
}

func (s *SQLiteStore) GetUnified(ctx context.Context, orderKey string) (*model.UnifiedOrder, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM unified_orders WHERE order_key = ?`, orderKey,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get unified %s", orderKey)
	}
	var u model.UnifiedOrder
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal unified order")
	}
	return &u, nil
}

func (s *SQLiteStore) QueryUnified(ctx context.Context, filter UnifiedFilter) ([]model.UnifiedOrder, error) {
	query := `SELECT payload FROM unified_orders WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.DeliveryClass != "" {
		query += ` AND delivery_class = ?`
		args = append(args, string(filter.DeliveryClass))
	}
	if filter.PaymentClass != "" {
		query += ` AND payment_class = ?`
		args = append(args, string(filter.PaymentClass))
	}
	if filter.Revenue != "" {
		query += ` AND revenue_category = ?`
		args = append(args, string(filter.Revenue))
	}
	if filter.Phone != "" {
		query += ` AND phone = ?`
		args = append(args, filter.Phone)
	}
	if filter.Email != "" {
		query += ` AND email = ?`
		args = append(args, filter.Email)
	}
	if filter.OrderedFrom != nil {
		query += ` AND ordered_at >= ?`
		args = append(args, orderedAtText(filter.OrderedFrom))
	}
	if filter.OrderedTo != nil {
		query += ` AND ordered_at <> '' AND ordered_at <= ?`
		args = append(args, orderedAtText(filter.OrderedTo))
	}
	if filter.Flagged != nil {
		sub := `SELECT 1 FROM flags WHERE flags.order_key = unified_orders.order_key AND flags.resolved = 0`
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
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query unified")
	}
	defer rows.Close()

	var out []model.UnifiedOrder
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan unified")
		}
		var u model.UnifiedOrder
		if err := json.Unmarshal([]byte(payload), &u); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal unified order")
		}
		out = append(out, u)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query unified iterate")
}

func (s *SQLiteStore) UpsertFlag(ctx context.Context, f model.Flag) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	// Resolution state is preserved on conflict: re-evaluation refreshes the
	// message and severity but never reopens or closes a flag.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flags (id, code, family, severity, order_key, message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code, order_key) DO UPDATE SET
		   severity = excluded.severity, message = excluded.message, updated_at = excluded.updated_at`,
		f.ID, f.Code, string(f.Family), string(f.Severity), f.OrderKey, f.Message, now, now,
	)
	return eris.Wrapf(err, "sqlite: upsert flag %s/%s", f.Code, f.OrderKey)
}

func (s *SQLiteStore) ListFlags(ctx context.Context, filter FlagFilter) ([]model.Flag, error) {
	query := `SELECT id, code, family, severity, order_key, message, resolved, resolved_by, resolved_at, note, created_at, updated_at
	 FROM flags WHERE 1=1`
	var args []any

	if filter.Family != "" {
		query += ` AND family = ?`
		args = append(args, string(filter.Family))
	}
	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	if filter.OrderKey != "" {
		query += ` AND order_key = ?`
		args = append(args, filter.OrderKey)
	}
	if filter.Resolved != nil {
		query += ` AND resolved = ?`
		args = append(args, boolToInt(*filter.Resolved))
	}
	query += ` ORDER BY order_key, code`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list flags")
	}
	defer rows.Close()

	var out []model.Flag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list flags iterate")
}

func (s *SQLiteStore) ResolveFlag(ctx context.Context, flagID, resolvedBy, note string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE flags SET resolved = 1, resolved_by = ?, resolved_at = ?, note = ?, updated_at = ? WHERE id = ?`,
		resolvedBy, now, note, now, flagID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: resolve flag %s", flagID)
	}
	return checkRowsAffected(res, "flag", flagID)
}

func (s *SQLiteStore) EnqueueReview(ctx context.Context, item model.ReviewItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO review_queue (id, source, natural_key, email, phone, name, reason, batch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source, natural_key) DO UPDATE SET
		   email = excluded.email, phone = excluded.phone, name = excluded.name,
		   reason = excluded.reason, batch_id = excluded.batch_id`,
		item.ID, string(item.Source), item.NaturalKey, item.Email, item.Phone,
		item.Name, item.Reason, item.BatchID, item.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue review")
}

func (s *SQLiteStore) ListReview(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, natural_key, email, phone, name, reason, batch_id, created_at
		 FROM review_queue ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list review")
	}
	defer rows.Close()

	var out []model.ReviewItem
	for rows.Next() {
		var item model.ReviewItem
		if err := rows.Scan(&item.ID, &item.Source, &item.NaturalKey, &item.Email,
			&item.Phone, &item.Name, &item.Reason, &item.BatchID, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan review item")
		}
		out = append(out, item)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list review iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// orderedAtText stores order timestamps as RFC3339 UTC text so that string
// comparison in range filters matches chronological order.
func orderedAtText(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBatch(row scannable) (*model.ImportBatch, error) {
	var b model.ImportBatch
	var completedAt sql.NullTime

	err := row.Scan(&b.ID, &b.Source, &b.Filename, &b.Status,
		&b.TotalRows, &b.NewRows, &b.UpdatedRows, &b.FailedRows,
		&b.StartedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan batch")
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	return &b, nil
}

func scanFlag(row scannable) (*model.Flag, error) {
	var f model.Flag
	var resolved int
	var resolvedAt sql.NullTime

	err := row.Scan(&f.ID, &f.Code, &f.Family, &f.Severity, &f.OrderKey, &f.Message,
		&resolved, &f.ResolvedBy, &resolvedAt, &f.Note, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan flag")
	}
	f.Resolved = resolved != 0
	if resolvedAt.Valid {
		t := resolvedAt.Time
		f.ResolvedAt = &t
	}
	return &f, nil
}
