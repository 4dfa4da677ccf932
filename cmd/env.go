package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/topbeat/reconcile-cli/internal/config"
	"github.com/topbeat/reconcile-cli/internal/flags"
	"github.com/topbeat/reconcile-cli/internal/ingest"
	"github.com/topbeat/reconcile-cli/internal/journey"
	"github.com/topbeat/reconcile-cli/internal/match"
	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
	"github.com/topbeat/reconcile-cli/internal/reconcile"
	"github.com/topbeat/reconcile-cli/internal/store"
)

// env bundles the runtime dependencies every command builds from config.
type env struct {
	Store store.Store
	Norm  normalize.Normalizer
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	norm := normalize.Default()
	if cfg.Normalize.CountryCode != "" {
		norm.CountryCode = cfg.Normalize.CountryCode
	}
	if len(cfg.Normalize.Honorifics) > 0 {
		norm.Honorifics = cfg.Normalize.Honorifics
	}

	return &env{Store: st, Norm: norm}, nil
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite", "":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, nil)
	}
	return nil, eris.Errorf("unknown store driver %q", sc.Driver)
}

func newImporter(e *env) *ingest.Importer {
	return &ingest.Importer{
		Store:       e.Store,
		Norm:        e.Norm,
		Concurrency: cfg.Import.MaxConcurrency,
	}
}

func newRunner(e *env) (*reconcile.Runner, error) {
	matcherCfg := match.DefaultConfig()
	if cfg.Matcher.ConfigPath != "" {
		loaded, err := match.LoadConfig(cfg.Matcher.ConfigPath)
		if err != nil {
			return nil, err
		}
		matcherCfg = loaded
	}

	engine := flags.NewEngine()
	for _, code := range cfg.Reconcile.DisabledRules {
		engine.Disable(code)
	}

	r := &reconcile.Runner{
		Store:   e.Store,
		Matcher: match.New(matcherCfg),
		Engine:  engine,
		Norm:    e.Norm,
		Dispatch: journey.DispatchThresholds{
			FastHours:   cfg.Reconcile.DispatchFastHours,
			NormalHours: cfg.Reconcile.DispatchSlowHours,
		},
		NotShippedAfter: time.Duration(cfg.Reconcile.NotShippedHours) * time.Hour,
	}
	if v, err := decimal.NewFromString(cfg.Reconcile.AmountTolerance); err == nil {
		r.AmountTolerance = v
	}
	if v, err := decimal.NewFromString(cfg.Reconcile.HighValueCOD); err == nil {
		r.HighValueCOD = v
	}
	return r, nil
}

// parseSource accepts both the short CLI spelling and the canonical
// source identifier.
func parseSource(s string) (model.Source, error) {
	switch s {
	case "storefront", "orders":
		return model.SourceStorefront, nil
	case "logistics", "shipments":
		return model.SourceLogistics, nil
	case "payments", "payment":
		return model.SourcePayment, nil
	case "attendance":
		return model.SourceAttendance, nil
	}
	if src := model.Source(s); src.Valid() {
		return src, nil
	}
	return "", eris.Errorf("unknown source %q (want storefront, logistics, payments, or attendance)", s)
}
