// Package stockalert owns recurring conditional tasks: price-threshold
// alerts evaluated on a periodic tick against live market data.
package stockalert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"remindy/internal/marketdata"
	"remindy/internal/storage"
)

const firePrefix = "📈 Stock Alert: "

// Outcome of evaluating one alert against the current price.
type Outcome int

const (
	OutcomeStillPending Outcome = iota
	OutcomeTargetHit
	OutcomeStopLossHit
	OutcomePriceUnavailable
)

type Evaluation struct {
	Outcome Outcome
	Price   float64
}

// Notifier delivers the fired alert text, best-effort.
type Notifier interface {
	Send(ctx context.Context, recipient, text string)
}

type Service struct {
	store    storage.Store
	quotes   marketdata.Quoter
	notifier Notifier
	log      zerolog.Logger
}

func New(store storage.Store, quotes marketdata.Quoter, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{store: store, quotes: quotes, notifier: notifier, log: log}
}

// Create persists a new alert. The grammar has already been applied by the
// command interpreter; only structural validity is checked here. stopLoss
// is deliberately not validated against target: Evaluate checks the target
// first, so degenerate threshold pairs resolve target-first.
func (s *Service) Create(ctx context.Context, a storage.StockAlert) error {
	if strings.TrimSpace(a.Symbol) == "" {
		return errors.New("alert symbol must not be empty")
	}
	if err := s.store.AppendAlert(ctx, a); err != nil {
		return fmt.Errorf("persist alert: %w", err)
	}
	s.log.Info().Str("symbol", a.Symbol).Float64("target", a.Target).
		Float64("stoploss", a.StopLoss).Str("recipient", a.Number).Msg("stock alert created")
	return nil
}

// Evaluate checks one alert against the live price. The target check runs
// before the stop-loss check, so when both thresholds are satisfied at
// once the alert resolves as a target hit.
func (s *Service) Evaluate(ctx context.Context, a storage.StockAlert) Evaluation {
	price, err := s.quotes.LastPrice(ctx, a.Symbol)
	if err != nil {
		s.log.Debug().Str("symbol", a.Symbol).Err(err).Msg("price lookup failed; alert retained")
		return Evaluation{Outcome: OutcomePriceUnavailable}
	}
	// A non-positive price is a lookup artifact, not a quote; acting on it
	// would fire the stop-loss for every alert on the symbol.
	if price <= 0 {
		s.log.Debug().Str("symbol", a.Symbol).Float64("price", price).Msg("non-positive price; alert retained")
		return Evaluation{Outcome: OutcomePriceUnavailable}
	}
	switch {
	case price >= a.Target:
		return Evaluation{Outcome: OutcomeTargetHit, Price: price}
	case price <= a.StopLoss:
		return Evaluation{Outcome: OutcomeStopLossHit, Price: price}
	default:
		return Evaluation{Outcome: OutcomeStillPending, Price: price}
	}
}

// Tick runs one evaluation pass over every active alert. Triggered alerts
// are notified and excluded from the next working set; pending and
// unavailable ones are retained unchanged. The retained set is persisted
// whole, so the store always mirrors the working set. One symbol's failed
// or slow lookup never affects the others in the pass.
func (s *Service) Tick(ctx context.Context) (fired, retained int) {
	alerts, err := s.store.Alerts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("tick: loading alerts failed")
		return 0, 0
	}
	if len(alerts) == 0 {
		return 0, 0
	}

	kept := make([]storage.StockAlert, 0, len(alerts))
	for _, a := range alerts {
		ev := s.Evaluate(ctx, a)
		switch ev.Outcome {
		case OutcomeTargetHit:
			s.notifier.Send(ctx, a.Number, fireText(a.Symbol, "target", a.Target, ev.Price))
			fired++
		case OutcomeStopLossHit:
			s.notifier.Send(ctx, a.Number, fireText(a.Symbol, "stoploss", a.StopLoss, ev.Price))
			fired++
		default:
			kept = append(kept, a)
		}
	}

	if err := s.store.ReplaceAlerts(ctx, kept); err != nil {
		s.log.Error().Err(err).Msg("tick: persisting alerts failed")
	}
	s.log.Debug().Int("fired", fired).Int("retained", len(kept)).Msg("alert tick done")
	return fired, len(kept)
}

func fireText(symbol, threshold string, limit, price float64) string {
	return fmt.Sprintf("%s%s hit %s ₹%s (current ₹%.2f)",
		firePrefix, symbol, threshold, strconv.FormatFloat(limit, 'f', -1, 64), price)
}
