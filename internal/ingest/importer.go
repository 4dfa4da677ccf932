package ingest

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
	"github.com/topbeat/reconcile-cli/internal/store"
)

// Importer streams one uploaded file into the raw tables. The import batch
// row is written before any raw row, so a partially failed batch is always
// attributable, and re-running the same file upserts instead of duplicating.
type Importer struct {
	Store           store.Store
	Norm            normalize.Normalizer
	Concurrency     int
	InternalDomains []string
}

// Run imports path for the given source and returns the completed batch with
// its counts. Row-level parse failures are counted, not fatal; stream-level
// failures fail the batch.
func (imp *Importer) Run(ctx context.Context, source model.Source, path string) (*model.ImportBatch, error) {
	batch, err := imp.Store.StartBatch(ctx, source, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	handle, err := imp.rowHandler(source, batch.ID)
	if err != nil {
		_ = imp.Store.FailBatch(ctx, batch.ID)
		return nil, err
	}

	rows, errs := StreamRows(ctx, path)

	concurrency := imp.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var total, created, updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range concurrency {
		g.Go(func() error {
			for row := range rows {
				total.Add(1)
				isNew, err := handle(gctx, row)
				if err != nil {
					failed.Add(1)
					zap.L().Warn("row import failed",
						zap.String("source", string(source)),
						zap.String("batch_id", batch.ID),
						zap.Error(err),
					)
					continue
				}
				if isNew {
					created.Add(1)
				} else {
					updated.Add(1)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = imp.Store.FailBatch(ctx, batch.ID)
		return nil, err
	}
	if err := <-errs; err != nil {
		_ = imp.Store.FailBatch(ctx, batch.ID)
		return nil, eris.Wrapf(err, "ingest: stream %s", path)
	}

	counts := store.BatchCounts{
		Total:   int(total.Load()),
		New:     int(created.Load()),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}
	if err := imp.Store.CompleteBatch(ctx, batch.ID, counts); err != nil {
		return nil, err
	}

	zap.L().Info("import complete",
		zap.String("source", string(source)),
		zap.String("batch_id", batch.ID),
		zap.Int("total", counts.Total),
		zap.Int("new", counts.New),
		zap.Int("updated", counts.Updated),
		zap.Int("failed", counts.Failed),
	)

	done, err := imp.Store.GetBatch(ctx, batch.ID)
	if err != nil {
		return nil, err
	}
	return done, nil
}

type rowFunc func(ctx context.Context, row Row) (created bool, err error)

func (imp *Importer) rowHandler(source model.Source, batchID string) (rowFunc, error) {
	now := func() time.Time { return time.Now().UTC() }

	switch source {
	case model.SourceStorefront:
		parser := StorefrontParser{Norm: imp.Norm}
		return func(ctx context.Context, row Row) (bool, error) {
			o, err := parser.Parse(row)
			if err != nil {
				return false, err
			}
			o.BatchID = batchID
			o.ReceivedAt = now()
			return imp.Store.UpsertRawOrder(ctx, o)
		}, nil
	case model.SourceLogistics:
		parser := LogisticsParser{Norm: imp.Norm}
		return func(ctx context.Context, row Row) (bool, error) {
			sh, err := parser.Parse(row)
			if err != nil {
				return false, err
			}
			sh.BatchID = batchID
			sh.ReceivedAt = now()
			return imp.Store.UpsertRawShipment(ctx, sh)
		}, nil
	case model.SourcePayment:
		parser := PaymentParser{Norm: imp.Norm}
		return func(ctx context.Context, row Row) (bool, error) {
			p, err := parser.Parse(row)
			if err != nil {
				return false, err
			}
			p.BatchID = batchID
			p.ReceivedAt = now()
			return imp.Store.UpsertRawPayment(ctx, p)
		}, nil
	case model.SourceAttendance:
		parser := AttendanceParser{Norm: imp.Norm, InternalDomains: imp.InternalDomains}
		return func(ctx context.Context, row Row) (bool, error) {
			a, err := parser.Parse(row)
			if err != nil {
				return false, err
			}
			a.BatchID = batchID
			a.ReceivedAt = now()
			return imp.Store.UpsertRawAttendance(ctx, a)
		}, nil
	}
	return nil, eris.Errorf("ingest: unknown source %q", source)
}
