package scheduler

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Config struct {
	Workers        int
	DefaultTimeout time.Duration
	Timezone       string // IANA TZ, e.g. "Asia/Kolkata"
}

type task struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

type intervalDef struct {
	name    string
	spec    string // "@every <dur>"
	timeout time.Duration
	job     func(ctx context.Context) error
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log zerolog.Logger
	cfg Config
	loc *time.Location

	c    *cron.Cron
	defs []intervalDef

	queue     chan task
	stopCh    chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup

	// One-shot timers, keyed by task name. Versions let a stale AfterFunc
	// callback detect that its slot was replaced or removed.
	tmu     sync.Mutex
	timers  map[string]*time.Timer
	onceAt  map[string]time.Time
	onceJob map[string]func(ctx context.Context) error
	onceVer map[string]uint64
}

func New(cfg Config, log zerolog.Logger) *Service {
	s := &Service{
		cfg:     cfg,
		log:     log,
		timers:  map[string]*time.Timer{},
		onceAt:  map[string]time.Time{},
		onceJob: map[string]func(ctx context.Context) error{},
		onceVer: map[string]uint64{},
	}
	s.loc = s.loadLocation()
	return s
}

// Location returns the reference zone all human-facing times are
// interpreted in.
func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	// Fresh queue per run so a stop/start cycle never executes stale tasks.
	s.queue = make(chan task, 256)

	s.loc = s.loadLocation()
	s.c = cron.New(cron.WithLocation(s.loc))
	for i := range s.defs {
		s.registerIntervalLocked(&s.defs[i])
	}

	runCtx := s.runCtx
	stopCh := s.stopCh
	queue := s.queue
	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer s.workerWG.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Int("worker", idx).Interface("panic", r).
						Str("stack", string(debug.Stack())).Msg("panic in scheduler worker")
				}
			}()
			s.worker(runCtx, stopCh, queue)
		}()
	}
	s.c.Start()
	s.log.Info().Int("workers", workers).Str("tz", s.loc.String()).Msg("scheduler started")
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	cancel := s.runCancel
	c := s.c
	s.stopCh = nil
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	close(stopCh)
	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}

	// Stop runtime one-shot timers; definitions are rebuilt by the owning
	// engine on the next start, not by us.
	s.tmu.Lock()
	for _, t := range s.timers {
		_ = t.Stop()
	}
	s.timers = map[string]*time.Timer{}
	s.onceAt = map[string]time.Time{}
	s.onceJob = map[string]func(ctx context.Context) error{}
	s.onceVer = map[string]uint64{}
	s.tmu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	s.log.Info().Msg("scheduler stopped")
}

func (s *Service) worker(ctx context.Context, stopCh chan struct{}, queue chan task) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-queue:
			s.execOne(ctx, t)
		}
	}
}

func (s *Service) execOne(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("task", t.name).Interface("panic", r).
				Str("stack", string(debug.Stack())).Msg("panic in task")
		}
	}()

	start := time.Now()
	runCtx := ctx
	if t.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	if err := t.run(runCtx); err != nil {
		s.log.Warn().Str("task", t.name).Dur("took", time.Since(start)).Err(err).Msg("task failed")
		return
	}
	s.log.Debug().Str("task", t.name).Dur("took", time.Since(start)).Msg("task ok")
}

func (s *Service) enqueue(t task) {
	s.mu.Lock()
	queue := s.queue
	s.mu.Unlock()
	if queue == nil {
		return
	}
	select {
	case queue <- t:
	default:
		s.log.Warn().Str("task", t.name).Msg("scheduler queue full, dropping task")
	}
}

func (s *Service) loadLocation() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn().Str("tz", tz).Err(err).Msg("invalid timezone; falling back to Local")
		return time.Local
	}
	return loc
}

func (s *Service) resolveTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return s.cfg.DefaultTimeout
}
