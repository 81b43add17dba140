// Package scheduler is the timer service behind both trigger kinds: one-shot
// absolute-time fires (reminders) and recurring fixed-interval fires (the
// stock-alert evaluation tick).
//
// Triggers only enqueue; execution happens on a small worker pool so a slow
// job never blocks the cron loop or an expiring timer. Registration is
// upsert-by-name, which makes duplicate arming calls for the same logical
// task harmless.
package scheduler
