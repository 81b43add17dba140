package app

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"remindy/internal/command"
	"remindy/internal/reminder"
	"remindy/internal/storage"
)

const (
	replyReminderTimeUsage = "❌ Couldn't understand the time. Use format like: remind me to drink water at 3pm"
	replyAlertUsage        = "❌ Couldn't parse your stock alert. Use format like:\nalert me when RELIANCE hits 3000 target and 2500 stoploss"
	replyHelp              = "👋 Hi! I'm Remindy.\n\n- 📅 Set reminder:\n'remind me to call dad at 5pm on 18 June'\n- 📈 Set stock alert:\n'alert me when RELIANCE hits 3000 target and 2500 stoploss'"
	replyTryAgain          = "❌ Something went wrong, please try again."
)

// Router turns incoming chat text into engine calls and builds the reply.
// It sits behind the transport's Handler interface so it can be exercised
// without a live bot connection.
type Router struct {
	reminders *reminder.Service
	alerts    AlertCreator
	log       zerolog.Logger
}

// AlertCreator is the slice of the stock alert engine the router needs.
type AlertCreator interface {
	Create(ctx context.Context, a storage.StockAlert) error
}

func NewRouter(reminders *reminder.Service, alerts AlertCreator, log zerolog.Logger) *Router {
	return &Router{reminders: reminders, alerts: alerts, log: log}
}

func (r *Router) HandleText(ctx context.Context, recipient, text string) string {
	cmd, err := command.Parse(text)
	if err != nil {
		// Only the alert grammar produces parse errors; the reminder and
		// fallback paths accept anything.
		return replyAlertUsage
	}

	switch cmd.Kind {
	case command.KindSetReminder:
		return r.setReminder(ctx, recipient, cmd.Text)
	case command.KindSetStockAlert:
		return r.setAlert(ctx, recipient, cmd)
	default:
		return replyHelp
	}
}

func (r *Router) setReminder(ctx context.Context, recipient, text string) string {
	rec, err := r.reminders.Create(ctx, text, recipient)
	if err != nil {
		if errors.Is(err, reminder.ErrUnparseableTime) {
			return replyReminderTimeUsage
		}
		r.log.Warn().Err(err).Str("recipient", recipient).Msg("reminder create failed")
		return replyTryAgain
	}
	return "✅ Reminder set for " + r.reminders.FormatDue(rec)
}

func (r *Router) setAlert(ctx context.Context, recipient string, cmd command.Command) string {
	a := storage.StockAlert{
		Symbol:   cmd.Symbol,
		Target:   cmd.Target,
		StopLoss: cmd.StopLoss,
		Number:   recipient,
	}
	if err := r.alerts.Create(ctx, a); err != nil {
		r.log.Warn().Err(err).Str("recipient", recipient).Msg("alert create failed")
		return replyTryAgain
	}
	return "✅ Stock alert set for " + cmd.Symbol +
		"\n🎯 Target: ₹" + strconv.FormatFloat(cmd.Target, 'f', -1, 64) +
		"\n🛑 Stoploss: ₹" + strconv.FormatFloat(cmd.StopLoss, 'f', -1, 64)
}
