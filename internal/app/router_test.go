package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"remindy/internal/reminder"
	"remindy/internal/stockalert"
	"remindy/internal/storage"
)

type fakeParser struct {
	t  time.Time
	ok bool
}

func (f fakeParser) Parse(string, time.Time) (time.Time, bool) { return f.t, f.ok }

type fakeTimers struct{ names []string }

func (f *fakeTimers) AddOnce(name string, _ time.Time, _ time.Duration, _ func(ctx context.Context) error) error {
	f.names = append(f.names, name)
	return nil
}

type fakeNotifier struct{ sent []string }

func (f *fakeNotifier) Send(_ context.Context, recipient, text string) {
	f.sent = append(f.sent, recipient+"|"+text)
}

func newTestRouter(t *testing.T, parser reminder.TimeParser) (*Router, storage.Store) {
	t.Helper()
	log := zerolog.Nop()
	store, err := storage.Open(storage.Config{Driver: "file", Path: t.TempDir()}, log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rem := reminder.New(reminder.Config{}, store, &fakeTimers{}, &fakeNotifier{}, parser, time.UTC, log)
	alerts := stockalert.New(store, nil, &fakeNotifier{}, log)
	return NewRouter(rem, alerts, log), store
}

func TestRouterSetReminderReply(t *testing.T) {
	t.Parallel()
	due := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	r, store := newTestRouter(t, fakeParser{t: due, ok: true})

	reply := r.HandleText(context.Background(), "1001", "remind me to drink water at 3pm")
	want := "✅ Reminder set for " + due.Format("02-Jan-2006 03:04 PM")
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	recs, err := store.Reminders(context.Background())
	if err != nil {
		t.Fatalf("load reminders: %v", err)
	}
	if len(recs) != 1 || recs[0].Number != "1001" {
		t.Fatalf("stored reminders = %+v", recs)
	}
}

func TestRouterUnparseableTime(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t, fakeParser{ok: false})

	reply := r.HandleText(context.Background(), "1001", "remind me to do the thing whenever")
	if !strings.HasPrefix(reply, "❌ Couldn't understand the time") {
		t.Fatalf("reply = %q", reply)
	}
	recs, err := store.Reminders(context.Background())
	if err != nil {
		t.Fatalf("load reminders: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("unparseable command persisted %d reminders", len(recs))
	}
}

func TestRouterSetStockAlertReply(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t, fakeParser{ok: false})

	reply := r.HandleText(context.Background(), "1001",
		"alert me when RELIANCE hits 3000 target and 2500 stoploss")
	want := "✅ Stock alert set for RELIANCE\n🎯 Target: ₹3000\n🛑 Stoploss: ₹2500"
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}

	alerts, err := store.Alerts(context.Background())
	if err != nil {
		t.Fatalf("load alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("stored alerts = %+v", alerts)
	}
	got := alerts[0]
	if got.Symbol != "RELIANCE" || got.Target != 3000 || got.StopLoss != 2500 || got.Number != "1001" {
		t.Fatalf("stored alert = %+v", got)
	}
}

func TestRouterMalformedAlertLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()
	r, store := newTestRouter(t, fakeParser{ok: false})

	reply := r.HandleText(context.Background(), "1001",
		"alert me when RELIANCE hits 3000 target and stoploss")
	if !strings.HasPrefix(reply, "❌ Couldn't parse your stock alert") {
		t.Fatalf("reply = %q", reply)
	}
	alerts, err := store.Alerts(context.Background())
	if err != nil {
		t.Fatalf("load alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("malformed command persisted %d alerts", len(alerts))
	}
}

func TestRouterHelpForUnrecognized(t *testing.T) {
	t.Parallel()
	r, _ := newTestRouter(t, fakeParser{ok: false})

	reply := r.HandleText(context.Background(), "1001", "what's the weather like")
	if !strings.HasPrefix(reply, "👋 Hi! I'm Remindy.") {
		t.Fatalf("reply = %q", reply)
	}
	if !strings.Contains(reply, "remind me to call dad") || !strings.Contains(reply, "alert me when RELIANCE") {
		t.Fatalf("help text missing examples: %q", reply)
	}
}
