// Package command classifies inbound chat text into typed commands,
// keeping the fragile text grammar out of the scheduling engines.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse marks a command that matched a trigger phrase but failed its
// grammar. Callers report it back to the sender; no state is mutated.
var ErrParse = errors.New("unparseable command")

type Kind int

const (
	KindUnrecognized Kind = iota
	KindSetReminder
	KindSetStockAlert
)

type Command struct {
	Kind Kind

	// Text is the original command text (SetReminder).
	Text string

	// Alert clauses (SetStockAlert).
	Symbol   string
	Target   float64
	StopLoss float64
}

const alertTrigger = "alert me when"

// Parse classifies text. A reminder is any text containing "remind"; the
// free-form time inside it is parsed later by the reminder engine. A stock
// alert requires the full three-clause form
//
//	alert me when <SYMBOL> hits <target> target and <stoploss> stoploss
//
// and returns an ErrParse-wrapped error when any clause is malformed.
// The reminder check runs first, so text carrying both trigger phrases is
// a reminder.
func Parse(text string) (Command, error) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.Contains(lower, "remind"):
		return Command{Kind: KindSetReminder, Text: trimmed}, nil
	case strings.Contains(lower, alertTrigger) &&
		strings.Contains(lower, "target") && strings.Contains(lower, "stoploss"):
		return parseAlert(trimmed)
	default:
		return Command{Kind: KindUnrecognized}, nil
	}
}

func parseAlert(text string) (Command, error) {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, strings.ToUpper(alertTrigger))
	rest := strings.TrimSpace(upper[idx+len(alertTrigger):])

	symbolPart, clausePart, found := strings.Cut(rest, " HITS ")
	if !found {
		return Command{}, fmt.Errorf("missing %q clause: %w", "hits", ErrParse)
	}
	symbol := strings.TrimSpace(symbolPart)
	if symbol == "" || len(strings.Fields(symbol)) != 1 {
		return Command{}, fmt.Errorf("bad symbol %q: %w", symbolPart, ErrParse)
	}

	target, err := clauseValue(clausePart, "TARGET")
	if err != nil {
		return Command{}, err
	}
	stopLoss, err := clauseValue(clausePart, "STOPLOSS")
	if err != nil {
		return Command{}, err
	}

	return Command{
		Kind:     KindSetStockAlert,
		Symbol:   symbol,
		Target:   target,
		StopLoss: stopLoss,
	}, nil
}

// clauseValue finds "<number> KEYWORD" in the clause tokens.
func clauseValue(clause, keyword string) (float64, error) {
	tokens := strings.Fields(clause)
	for i, tok := range tokens {
		if tok != keyword {
			continue
		}
		if i == 0 {
			return 0, fmt.Errorf("missing value before %q: %w", strings.ToLower(keyword), ErrParse)
		}
		v, err := strconv.ParseFloat(tokens[i-1], 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s value %q: %w", strings.ToLower(keyword), tokens[i-1], ErrParse)
		}
		return v, nil
	}
	return 0, fmt.Errorf("missing %q clause: %w", strings.ToLower(keyword), ErrParse)
}
