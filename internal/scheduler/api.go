package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AddInterval registers a recurring job. Re-registering an existing name
// replaces its schedule, so callers can apply config changes by calling
// AddInterval again.
func (s *Service) AddInterval(name string, every time.Duration, timeout time.Duration, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if every <= 0 {
		return fmt.Errorf("interval for %q must be > 0", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeIntervalLocked(name)
	d := intervalDef{
		name:    name,
		spec:    fmt.Sprintf("@every %s", every.String()),
		timeout: s.resolveTimeout(timeout),
		job:     job,
	}
	s.defs = append(s.defs, d)
	if s.c != nil {
		s.registerIntervalLocked(&s.defs[len(s.defs)-1])
	}
	s.log.Debug().Str("name", name).Str("spec", d.spec).Msg("interval registered")
	return nil
}

// AddOnce arms a one-shot fire at the given absolute time. Arming the same
// name again replaces the previous timer, so duplicate calls for one
// logical task collapse into a single fire.
func (s *Service) AddOnce(name string, at time.Time, timeout time.Duration, job func(ctx context.Context) error) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if at.IsZero() {
		return errors.New("at required")
	}
	resolved := s.resolveTimeout(timeout)

	s.tmu.Lock()
	defer s.tmu.Unlock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
	}
	ver := s.onceVer[name] + 1
	s.onceVer[name] = ver
	s.onceAt[name] = at
	s.onceJob[name] = job

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	localName := name
	localVer := ver
	s.timers[name] = time.AfterFunc(delay, func() {
		// A replaced or removed slot means this callback is stale.
		s.tmu.Lock()
		if s.onceVer[localName] != localVer {
			s.tmu.Unlock()
			return
		}
		jobNow := s.onceJob[localName]
		timeoutNow := resolved
		delete(s.timers, localName)
		delete(s.onceAt, localName)
		delete(s.onceJob, localName)
		delete(s.onceVer, localName)
		s.tmu.Unlock()
		if jobNow == nil {
			return
		}
		s.enqueue(task{name: localName, timeout: timeoutNow, run: jobNow})
	})
	s.log.Debug().Str("name", name).Time("at", at).Msg("one-shot armed")
	return nil
}

// Remove unschedules all triggers with the given name. It reports whether
// anything was removed.
func (s *Service) Remove(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	removed := false

	s.mu.Lock()
	removed = s.removeIntervalLocked(name) || removed
	s.mu.Unlock()

	s.tmu.Lock()
	if t, ok := s.timers[name]; ok {
		_ = t.Stop()
		delete(s.timers, name)
		removed = true
	}
	if _, ok := s.onceAt[name]; ok {
		delete(s.onceAt, name)
		delete(s.onceJob, name)
		delete(s.onceVer, name)
		removed = true
	}
	s.tmu.Unlock()

	return removed
}

// Pending reports whether a one-shot trigger with the given name is armed.
func (s *Service) Pending(name string) bool {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	_, ok := s.onceAt[name]
	return ok
}

// removeIntervalLocked drops all defs matching name and unregisters them
// from cron if running. Call with s.mu held.
func (s *Service) removeIntervalLocked(name string) bool {
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// registerIntervalLocked adds the def to the running cron. Call with s.mu held.
func (s *Service) registerIntervalLocked(d *intervalDef) {
	// Copy the fields: d points into s.defs, which is compacted on Remove.
	name, timeout, job := d.name, d.timeout, d.job
	eid, err := s.c.AddFunc(d.spec, func() {
		s.enqueue(task{name: name, timeout: timeout, run: job})
	})
	if err != nil {
		s.log.Error().Str("name", d.name).Str("spec", d.spec).Err(err).Msg("interval register failed")
		return
	}
	d.entryID = eid
}
