// Package availability derives per-book copy counts from the catalog
// store. Availability is never stored: a copy is free exactly when no open
// loan references it.
package availability

import (
	"context"
	"log/slog"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/catalog"
)

type Calculator struct {
	copies catalog.Copies
	loans  catalog.Loans
	log    *slog.Logger
}

func New(copies catalog.Copies, loans catalog.Loans, log *slog.Logger) *Calculator {
	return &Calculator{copies: copies, loans: loans, log: log}
}

// ForBook returns total and available copy counts for one book.
// available = |copies| - |open loans of the book|, clamped at zero. A
// negative intermediate value means the store violates the one-open-loan-
// per-copy invariant; it is logged and clamped, never reported.
func (c *Calculator) ForBook(ctx context.Context, bookID int64) (model.Availability, error) {
	all, err := c.copies.ByBook(ctx, bookID)
	if err != nil {
		return model.Availability{}, fault.Store("list copies", err, true)
	}
	open, err := c.loans.OpenByBook(ctx, bookID)
	if err != nil {
		return model.Availability{}, fault.Store("list open loans", err, true)
	}

	avail := len(all) - len(open)
	if avail < 0 {
		c.log.Error("availability below zero, store inconsistent",
			"book_id", bookID, "copies", len(all), "open_loans", len(open))
		avail = 0
	}
	return model.Availability{BookID: bookID, Total: len(all), Available: avail}, nil
}

// AvailableCopies returns the free copies of a book in ascending ID order,
// which is also the allocation order.
func (c *Calculator) AvailableCopies(ctx context.Context, bookID int64) ([]model.Copy, error) {
	all, err := c.copies.ByBook(ctx, bookID)
	if err != nil {
		return nil, fault.Store("list copies", err, true)
	}
	open, err := c.loans.OpenByBook(ctx, bookID)
	if err != nil {
		return nil, fault.Store("list open loans", err, true)
	}

	onLoan := make(map[int64]bool, len(open))
	for _, l := range open {
		onLoan[l.CopyID] = true
	}

	free := make([]model.Copy, 0, len(all))
	for _, cp := range all {
		if !onLoan[cp.ID] {
			free = append(free, cp)
		}
	}
	return free, nil
}
