// Package notify delivers trigger notifications. Delivery is best-effort:
// a failed send is logged and dropped, never retried by the engines. Once
// a trigger condition is met the task counts as handled.
package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender is the outbound channel capability (implemented by the Telegram
// adapter, or a fake in tests).
type Sender interface {
	SendText(ctx context.Context, recipient, text string) error
}

type Service struct {
	sender  Sender
	log     zerolog.Logger
	limiter *rate.Limiter
}

func New(sender Sender, ratePerSec int, log zerolog.Logger) *Service {
	if ratePerSec <= 0 {
		ratePerSec = 3
	}
	return &Service{
		sender: sender,
		log:    log,
		// Burst equals the per-second rate so short spikes don't stall fires.
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Send delivers text to recipient, rate-limited across all callers.
func (s *Service) Send(ctx context.Context, recipient, text string) {
	if err := s.limiter.Wait(ctx); err != nil {
		s.log.Warn().Str("recipient", recipient).Err(err).Msg("send canceled while rate-limited")
		return
	}
	if err := s.sender.SendText(ctx, recipient, text); err != nil {
		s.log.Warn().Str("recipient", recipient).Err(err).Msg("notification send failed")
		return
	}
	s.log.Debug().Str("recipient", recipient).Msg("notification sent")
}
