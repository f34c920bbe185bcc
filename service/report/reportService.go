// Package report computes the circulation snapshot the admin dashboard
// shows: stock counts, open and overdue loans, pending reservations, and
// outstanding fines at the configured daily rate.
package report

import (
	"context"
	"time"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/catalog"
)

type Metrics struct {
	Books               int     `json:"books"`
	Persons             int     `json:"persons"`
	OpenLoans           int     `json:"open_loans"`
	OverdueLoans        int     `json:"overdue_loans"`
	PendingReservations int     `json:"pending_reservations"`
	OutstandingFines    float64 `json:"outstanding_fines"`
}

type Service interface {
	// Snapshot computes metrics as of the supplied date.
	Snapshot(ctx context.Context, asOf time.Time) (*Metrics, error)
}

type service struct {
	store    catalog.Store
	fineRate float64 // per whole day overdue, per loan
}

func New(store catalog.Store, fineRate float64) Service {
	return &service{store: store, fineRate: fineRate}
}

func (s *service) Snapshot(ctx context.Context, asOf time.Time) (*Metrics, error) {
	books, err := s.store.Books().List(ctx)
	if err != nil {
		return nil, fault.Store("list books", err, true)
	}
	persons, err := s.store.Persons().List(ctx)
	if err != nil {
		return nil, fault.Store("list persons", err, true)
	}
	open, err := s.store.Loans().Open(ctx)
	if err != nil {
		return nil, fault.Store("list open loans", err, true)
	}
	pending, err := s.store.Reservations().ByStatus(ctx, model.ReservationPending)
	if err != nil {
		return nil, fault.Store("list pending reservations", err, true)
	}

	m := &Metrics{
		Books:               len(books),
		Persons:             len(persons),
		OpenLoans:           len(open),
		PendingReservations: len(pending),
	}
	for _, l := range open {
		if !l.OverdueAt(asOf) {
			continue
		}
		m.OverdueLoans++
		days := int(asOf.Sub(l.DueOn).Hours() / 24)
		m.OutstandingFines += float64(days) * s.fineRate
	}
	return m, nil
}
