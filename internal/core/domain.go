// Package core holds the ledger domain types and the item aggregation rules
// shared by storage, services and the HTTP layer.
package core

import (
	"encoding/json"
	"errors"
	"time"
)

type (
	// ExpenseItem is a single line of an expense entry. Cost is in minor units.
	ExpenseItem struct {
		Name string `json:"name"`
		Cost int64  `json:"cost"`
	}

	// ExpenseEntry is a stored ledger row with its items decoded.
	ExpenseEntry struct {
		ID        int64         `json:"id"`
		Date      string        `json:"date"`
		Items     []ExpenseItem `json:"items"`
		Total     int64         `json:"total"`
		CreatedAt time.Time     `json:"createdAt"`
	}

	// RawItem is an item as submitted by a client, before sanitization.
	// Cost is kept raw so any JSON value can be coerced instead of rejected.
	RawItem struct {
		Name string          `json:"name"`
		Cost json.RawMessage `json:"cost"`
	}

	// ExpenseInput is the payload accepted by create and update.
	ExpenseInput struct {
		Date  string    `json:"date"`
		Items []RawItem `json:"items"`
	}

	// ExpenseList is the result of a filtered listing.
	ExpenseList struct {
		MonthTotal int64          `json:"monthTotal"`
		Items      []ExpenseEntry `json:"items"`
	}
)

var (
	ErrInvalidID = errors.New("invalid expense id")
	ErrEmptyDate = errors.New("empty date")
)

// NewRawItem builds a RawItem with a numeric cost.
func NewRawItem(name string, cost int64) RawItem {
	b, _ := json.Marshal(cost)
	return RawItem{Name: name, Cost: b}
}

// Validate checks the fields the store cannot default.
func (in ExpenseInput) Validate() error {
	if in.Date == "" {
		return ErrEmptyDate
	}
	return nil
}
