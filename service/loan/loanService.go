// Package loan holds the read-and-return side of circulation: the overdue
// monitor, the check-in workflow, and the reconciliation read for loans
// whose approval never completed.
package loan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/catalog"
)

type Service interface {
	// Overdue returns the open loans strictly past due relative to asOf.
	// Pure read; the caller injects the date, so batch jobs and tests
	// stay deterministic.
	Overdue(ctx context.Context, asOf time.Time) ([]model.Loan, error)

	// Return closes an open loan, making its copy allocatable again.
	// NOT_FOUND or STATE when the loan is missing or already closed.
	Return(ctx context.Context, loanID int64) (*model.Loan, error)

	ByPerson(ctx context.Context, personID int64) ([]model.Loan, error)

	// Orphans finds open allocator-created loans whose reservation is not
	// APPROVED: the detectable leftover of a half-applied approval, fed
	// to an external repair pass.
	Orphans(ctx context.Context) ([]model.Loan, error)
}

type service struct {
	store catalog.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store catalog.Store, log *slog.Logger) Service {
	return &service{store: store, log: log, now: time.Now}
}

func (s *service) Overdue(ctx context.Context, asOf time.Time) ([]model.Loan, error) {
	open, err := s.store.Loans().Open(ctx)
	if err != nil {
		return nil, fault.Store("list open loans", err, true)
	}
	out := make([]model.Loan, 0, len(open))
	for _, l := range open {
		if l.OverdueAt(asOf) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *service) Return(ctx context.Context, loanID int64) (*model.Loan, error) {
	returnedOn := s.now().UTC()
	err := s.store.Loans().Close(ctx, loanID, returnedOn)
	switch {
	case err == nil:
	case errors.Is(err, catalog.ErrNotFound):
		return nil, fault.Newf(fault.ErrNotFound, "loan %d not found", loanID)
	case errors.Is(err, catalog.ErrConditionFailed):
		return nil, fault.Newf(fault.ErrState, "loan %d is already returned", loanID)
	default:
		return nil, fault.Store("close loan", err, true)
	}

	l, err := s.store.Loans().ByID(ctx, loanID)
	if err != nil {
		return nil, fault.Store("reload loan", err, true)
	}
	s.log.Info("loan returned", "loan_id", loanID, "copy_id", l.CopyID)
	return l, nil
}

func (s *service) ByPerson(ctx context.Context, personID int64) ([]model.Loan, error) {
	out, err := s.store.Loans().ByPerson(ctx, personID)
	if err != nil {
		return nil, fault.Store("list loans by person", err, true)
	}
	return out, nil
}

func (s *service) Orphans(ctx context.Context) ([]model.Loan, error) {
	open, err := s.store.Loans().Open(ctx)
	if err != nil {
		return nil, fault.Store("list open loans", err, true)
	}

	var out []model.Loan
	for _, l := range open {
		if l.ReservationID == nil {
			continue
		}
		res, err := s.store.Reservations().ByID(ctx, *l.ReservationID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				out = append(out, l)
				continue
			}
			return nil, fault.Store("load reservation", err, true)
		}
		if res.Status != model.ReservationApproved {
			out = append(out, l)
		}
	}
	return out, nil
}
