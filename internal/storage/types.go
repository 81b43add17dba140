package storage

import "time"

// Config configures storage.
//
// Driver values:
//   - "file": JSON files in a state directory (default)
//   - "sqlite": SQLite database file (optional build tag)
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Reminder is a pending one-shot reminder record. Field names are part of
// the persisted layout; Time is the due instant as an RFC3339 UTC string.
type Reminder struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Number  string `json:"number"`
}

// DueAt parses the persisted due time. ok is false for malformed legacy
// records, which callers skip rather than fail on.
func (r Reminder) DueAt() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.Time)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StockAlert is an active price-threshold alert record.
type StockAlert struct {
	Symbol   string  `json:"symbol"`
	Target   float64 `json:"target"`
	StopLoss float64 `json:"stoploss"`
	Number   string  `json:"number"`
}
