// Package telegram adapts the bot to the Telegram long-poll API. Inbound
// text goes to the installed Handler; outbound sends address recipients by
// their stable chat-id string, which is what the engines persist.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Handler processes one inbound message and returns the synchronous reply
// text ("" for no reply).
type Handler interface {
	HandleText(ctx context.Context, recipient, text string) string
}

type Adapter struct {
	cfg Config
	log zerolog.Logger
	bot *tele.Bot

	mu      sync.Mutex
	handler Handler
	running bool
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	a.registerHandlers()
	return a, nil
}

func (a *Adapter) SetHandler(h Handler) {
	a.mu.Lock()
	a.handler = h
	a.mu.Unlock()
}

func (a *Adapter) registerHandlers() {
	a.bot.Handle(tele.OnText, func(c tele.Context) error {
		m := c.Message()
		if m == nil || m.Sender == nil {
			return nil
		}
		a.mu.Lock()
		h := a.handler
		a.mu.Unlock()
		if h == nil {
			return nil
		}
		recipient := strconv.FormatInt(m.Chat.ID, 10)
		reply := h.HandleText(context.Background(), recipient, m.Text)
		if reply == "" {
			return nil
		}
		return c.Send(reply)
	})
}

// Start begins long-polling in the background and stops when ctx is done.
func (a *Adapter) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	go a.bot.Start()
	go func() {
		<-ctx.Done()
		a.Stop()
	}()
	a.log.Info().Msg("telegram adapter started")
}

func (a *Adapter) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()
	a.bot.Stop()
	a.log.Info().Msg("telegram adapter stopped")
}

// SendText implements the notifier Sender. recipient is a decimal chat id.
func (a *Adapter) SendText(ctx context.Context, recipient, text string) error {
	_ = ctx // telebot manages its own request deadlines
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil {
		return fmt.Errorf("bad recipient %q: %w", recipient, err)
	}
	_, err = a.bot.Send(tele.ChatID(chatID), text)
	return err
}
