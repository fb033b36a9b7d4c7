// Command paperledger runs the paper-trading balance reconciliation daemon.
// Every cycle it values all running paper sessions in the reference currency,
// subtracts cumulative trading fees and publishes the net balances to the
// session ledger service.
//
// Usage:
//
//	paperledger --config config.yaml
//	paperledger --ledger-url http://localhost:8083 --interval 30s
//
// Environment variables UPDATE_BALANCE_INTERVAL_SEC, LEDGER_API_URL,
// APPLY_PAPER_ORDER_FEES_IN_BALANCE and PAPER_TRADE_FEE_RATE override
// the file/flag configuration.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/vadiminshakov/paperledger/config"
	"github.com/vadiminshakov/paperledger/internal/services/ledger"
	"github.com/vadiminshakov/paperledger/internal/services/pricer"
	"github.com/vadiminshakov/paperledger/internal/services/reconciler"
	"github.com/vadiminshakov/paperledger/internal/storage/snapshots"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// price lookups use public market endpoints, no credentials needed
	registry := pricer.NewRegistry()
	registry.Register("binance", pricer.NewBinancePricer(binance.NewClient("", "")))
	registry.Register("bybit", pricer.NewBybitPricer(bybit.NewClient()))

	journal, err := snapshots.NewWALStore(cfg.SnapshotDir)
	if err != nil {
		logger.Fatal("failed to init balance snapshot journal", zap.Error(err))
	}
	defer journal.Close()

	ledgerClient := ledger.NewClient(cfg.LedgerURL)

	rec, err := reconciler.New(
		ledgerClient,
		registry,
		journal,
		cfg.ReferenceCurrency,
		cfg.ApplyFees,
		cfg.Interval,
		logger,
	)
	if err != nil {
		logger.Fatal("failed to create reconciler", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rec.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("reconciliation loop stopped", zap.Error(err))
	}
	logger.Info("shutdown complete", zap.Uint64("journal_index", journal.CurrentIndex()))
}
