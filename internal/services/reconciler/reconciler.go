// Package reconciler runs the periodic job that values every running paper
// session in the reference currency, subtracts cumulative trading fees and
// publishes the net balance back to the ledger service.
package reconciler

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperledger/internal/entity"
	"github.com/vadiminshakov/paperledger/internal/services/settlement"
	"go.uber.org/zap"
)

const (
	sessionsPageLimit = 500
	ordersPageLimit   = 10000
)

// LedgerStore is the ledger service surface the reconciler needs.
type LedgerStore interface {
	ListRunningSessions(ctx context.Context, page, limit int) ([]entity.Session, error)
	FetchBalances(ctx context.Context, sessionKey string) (entity.Balances, error)
	FetchOrders(ctx context.Context, sessionKey string, page, limit int) ([]entity.Order, error)
	UpdateBalance(ctx context.Context, sessionKey string, netBalance float64, tokensValueJSON string) error
}

// PriceSource resolves the latest price of a pair on a named exchange.
type PriceSource interface {
	GetPrice(ctx context.Context, exchange string, pair entity.Pair) (decimal.Decimal, error)
}

type snapshotWriter interface {
	Save(snapshot entity.BalanceSnapshot) error
}

// Reconciler computes and publishes net session balances on a fixed interval.
type Reconciler struct {
	ledger      LedgerStore
	prices      PriceSource
	journal     snapshotWriter
	logger      *zap.Logger
	refCurrency string
	applyFees   bool
	interval    time.Duration
}

// New creates a Reconciler. The journal is optional and may be nil.
func New(ledger LedgerStore, prices PriceSource, journal snapshotWriter, refCurrency string, applyFees bool, interval time.Duration, logger *zap.Logger) (*Reconciler, error) {
	if ledger == nil {
		return nil, errors.New("ledger store is required")
	}
	if prices == nil {
		return nil, errors.New("price source is required")
	}
	if refCurrency == "" {
		refCurrency = "USDT"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		ledger:      ledger,
		prices:      prices,
		journal:     journal,
		logger:      logger,
		refCurrency: refCurrency,
		applyFees:   applyFees,
		interval:    interval,
	}, nil
}

// Run executes reconciliation cycles until ctx is cancelled. A failed cycle
// never stops the loop, the next tick is the retry mechanism.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("starting balance reconciliation loop",
		zap.Duration("interval", r.interval),
		zap.String("ref_currency", r.refCurrency),
		zap.Bool("apply_fees", r.applyFees))

	for {
		r.RunCycle(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

// RunCycle reconciles every running session once. Failures are isolated per
// session: one session's error is logged and the rest still get processed.
func (r *Reconciler) RunCycle(ctx context.Context) {
	cycle := uuid.New().String()

	sessions, err := r.ledger.ListRunningSessions(ctx, 1, sessionsPageLimit)
	if err != nil {
		r.logger.Error("failed to list running sessions", zap.String("cycle", cycle), zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		r.logger.Info("no running paper sessions found", zap.String("cycle", cycle))
		return
	}

	for _, session := range sessions {
		if err := r.ReconcileSession(ctx, session); err != nil {
			r.logger.Error("session reconciliation failed",
				zap.String("cycle", cycle),
				zap.String("session", session.Key),
				zap.String("exchange", session.Exchange),
				zap.Error(err))
		}
	}
}

// ReconcileSession values one session's holdings in the reference currency,
// subtracts cumulative order fees and publishes the net balance.
func (r *Reconciler) ReconcileSession(ctx context.Context, session entity.Session) error {
	balances, err := r.ledger.FetchBalances(ctx, session.Key)
	if err != nil {
		return errors.Wrap(err, "fetch balances")
	}
	if len(balances) == 0 {
		r.logger.Info("no balances to reconcile", zap.String("session", session.Key))
		return nil
	}

	gross, tokens := r.grossValuation(ctx, session.Exchange, balances)

	net := gross
	totalFees := 0.0
	if r.applyFees {
		orders, err := r.ledger.FetchOrders(ctx, session.Key, 1, ordersPageLimit)
		if err != nil {
			r.logger.Error("failed to fetch orders, skipping fee accumulation",
				zap.String("session", session.Key), zap.Error(err))
		}
		if len(orders) > 0 {
			totalFees = r.totalFees(ctx, session.Exchange, orders)
			net = max(gross-totalFees, 0)
		}
	}

	tokensJSON, err := json.Marshal(tokens)
	if err != nil {
		return errors.Wrap(err, "marshal tokens snapshot")
	}

	if err := r.ledger.UpdateBalance(ctx, session.Key, net, string(tokensJSON)); err != nil {
		return errors.Wrap(err, "publish balance")
	}

	r.journalSnapshot(session, gross, totalFees, net, string(tokensJSON))

	r.logger.Info("updated session balance",
		zap.String("session", session.Key),
		zap.Float64("gross", gross),
		zap.Float64("fees", totalFees),
		zap.Float64("net", net))
	return nil
}

// grossValuation marks every positive holding to market in the reference
// currency. Assets without a price contribute zero, valuation is best-effort.
// The returned token map carries raw amounts for all assets, fee-unadjusted.
func (r *Reconciler) grossValuation(ctx context.Context, exchange string, balances entity.Balances) (float64, map[string]float64) {
	tokens := make(map[string]float64, len(balances))
	total := 0.0

	for asset, row := range balances {
		amount := row.Total
		tokens[asset] = amount
		if amount <= 0 {
			continue
		}
		if asset == r.refCurrency {
			total += amount
			continue
		}

		price := r.priceOf(ctx, exchange, asset)
		if price <= 0 {
			continue
		}
		total += amount * price
	}

	return total, tokens
}

// totalFees sums the session's historical order fees in the reference
// currency. An order's recorded fee wins when positive; otherwise the fee is
// recomputed with the default rate. Orders whose fee cannot be valued
// contribute zero.
func (r *Reconciler) totalFees(ctx context.Context, exchange string, orders []entity.Order) float64 {
	total := 0.0

	for _, order := range orders {
		if order.Symbol == "" || order.Side == "" || order.Price <= 0 || order.Quantity <= 0 {
			continue
		}

		_, quote, err := settlement.SplitSymbol(order.Symbol)
		if err != nil {
			quote = r.refCurrency
		}

		feeInQuote := order.Fee
		if feeInQuote <= 0 {
			feeInQuote, err = settlement.ComputeTradeFee(order.Side, order.Price, order.Quantity, 0, settlement.FeeInQuote)
			if err != nil {
				r.logger.Error("failed to compute order fee",
					zap.String("symbol", order.Symbol),
					zap.String("side", order.Side),
					zap.Error(err))
				continue
			}
		}

		if quote == r.refCurrency {
			total += feeInQuote
			continue
		}

		quotePrice := r.priceOf(ctx, exchange, quote)
		if quotePrice > 0 {
			total += feeInQuote * quotePrice
		}
	}

	return total
}

// priceOf returns the asset's price in the reference currency, or 0 when the
// lookup fails. Missing prices are logged, never fatal.
func (r *Reconciler) priceOf(ctx context.Context, exchange, asset string) float64 {
	pair := entity.Pair{From: asset, To: r.refCurrency}

	price, err := r.prices.GetPrice(ctx, exchange, pair)
	if err != nil {
		r.logger.Info("missing price, counting as 0 for now",
			zap.String("pair", pair.String()),
			zap.String("exchange", exchange),
			zap.Error(err))
		return 0
	}
	if price.LessThanOrEqual(decimal.Zero) {
		r.logger.Info("non-positive price, counting as 0 for now",
			zap.String("pair", pair.String()),
			zap.String("exchange", exchange))
		return 0
	}
	return price.InexactFloat64()
}

func (r *Reconciler) journalSnapshot(session entity.Session, gross, fees, net float64, tokensJSON string) {
	if r.journal == nil {
		return
	}

	snapshot := entity.BalanceSnapshot{
		Timestamp:  time.Now(),
		SessionKey: session.Key,
		Exchange:   session.Exchange,
		Gross:      formatAmount(gross),
		Fees:       formatAmount(fees),
		Net:        formatAmount(net),
		Tokens:     tokensJSON,
	}
	if err := r.journal.Save(snapshot); err != nil {
		r.logger.Warn("failed to journal balance snapshot",
			zap.String("session", session.Key), zap.Error(err))
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
