// Package timeparse extracts timestamps from free-form reminder text,
// biasing ambiguous times toward the future ("at 3pm" said after 3pm means
// tomorrow, not nine hours ago).
package timeparse

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

type Parser struct {
	w            *when.Parser
	preferFuture bool
}

func New(preferFuture bool) *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w, preferFuture: preferFuture}
}

// Parse extracts a timestamp from text, resolved relative to base (and in
// base's location). ok is false when no time expression is found.
func (p *Parser) Parse(text string, base time.Time) (t time.Time, ok bool) {
	r, err := p.w.Parse(text, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	t = r.Time
	if p.preferFuture && !t.After(base) && base.Sub(t) < 24*time.Hour {
		// Day-ambiguous clock time that already passed today.
		t = t.Add(24 * time.Hour)
	}
	return t, true
}
