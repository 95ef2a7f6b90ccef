package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxCost is the largest magnitude allowed for a cost or an entry total:
// the biggest integer a JSON number (an IEEE double) carries exactly.
const MaxCost int64 = 1<<53 - 1

// SanitizeItems normalises client items at the write boundary.
//
// Names are trimmed and items with a blank name are dropped. Costs are coerced
// to integers with ParseCost, so the persisted value is the coerced one and the
// stored total always equals ItemsTotal of the stored items. Order is kept.
//
// A cost that would push the running total past ±MaxCost is cut down to the
// remaining headroom, so the total never needs clamping.
func SanitizeItems(raw []RawItem) []ExpenseItem {
	out := make([]ExpenseItem, 0, len(raw))
	var total int64
	for _, it := range raw {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		cost := ParseCost(it.Cost)
		switch {
		case total+cost > MaxCost:
			cost = MaxCost - total
		case total+cost < -MaxCost:
			cost = -MaxCost - total
		}
		total += cost
		out = append(out, ExpenseItem{Name: name, Cost: cost})
	}
	return out
}

// ItemsTotal sums item costs, saturating at ±MaxCost. For sanitized items
// the result is the exact sum.
func ItemsTotal(items []ExpenseItem) int64 {
	var total int64
	for _, it := range items {
		total = clampCost(total + clampCost(it.Cost))
	}
	return total
}

func clampCost(v int64) int64 {
	switch {
	case v > MaxCost:
		return MaxCost
	case v < -MaxCost:
		return -MaxCost
	}
	return v
}

// ParseCost coerces a raw JSON cost to an integer.
//
// Numbers are truncated toward zero, numeric strings are parsed the same way,
// and anything else (null, booleans, objects, garbage) yields 0. Finite values
// beyond ±MaxCost are clamped.
//
// Examples:
//
//	ParseCost(`100`)    -> 100
//	ParseCost(`"42"`)   -> 42
//	ParseCost(`12.9`)   -> 12
//	ParseCost(`"abc"`)  -> 0
//	ParseCost(`1e300`)  -> MaxCost
//	ParseCost(nil)      -> 0
func ParseCost(raw json.RawMessage) int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return parseCostString(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return parseCostString(string(raw))
	default:
		return 0
	}
}

func parseCostString(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return clampCost(v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f > float64(MaxCost):
		return MaxCost
	case f < -float64(MaxCost):
		return -MaxCost
	}
	return int64(f)
}

// EncodeItems serialises items for the items column.
func EncodeItems(items []ExpenseItem) (string, error) {
	if items == nil {
		items = []ExpenseItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	return string(b), nil
}

// DecodeResult is the outcome of decoding a stored items column.
// Recovered is set when the stored text was unreadable and Items was
// substituted with an empty sequence.
type DecodeResult struct {
	Items     []ExpenseItem
	Recovered bool
	Err       error
}

// DecodeItems parses a stored items column. It never fails: anything that is
// not a JSON array of {name, cost} objects comes back Recovered with no items.
func DecodeItems(raw string) DecodeResult {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return recovered(fmt.Errorf("items is not a JSON array"))
	}
	var stored []RawItem
	if err := json.Unmarshal([]byte(trimmed), &stored); err != nil {
		return recovered(err)
	}
	items := make([]ExpenseItem, 0, len(stored))
	for _, it := range stored {
		items = append(items, ExpenseItem{Name: it.Name, Cost: ParseCost(it.Cost)})
	}
	return DecodeResult{Items: items}
}

func recovered(err error) DecodeResult {
	return DecodeResult{Items: []ExpenseItem{}, Recovered: true, Err: err}
}
