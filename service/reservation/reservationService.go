// Package reservation implements the reservation lifecycle and the loan
// allocator: create/reject transitions and the approve path that turns a
// pending reservation into an open loan of one physical copy.
package reservation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/catalog"
)

// Availability is the read side the allocator consults for free copies.
type Availability interface {
	AvailableCopies(ctx context.Context, bookID int64) ([]model.Copy, error)
}

type Service interface {
	// Create inserts a PENDING reservation. VALIDATION if person or book
	// is missing, CONFLICT if the pair already has a pending one.
	Create(ctx context.Context, personID, bookID int64, on *time.Time) (*model.Reservation, error)

	// Approve allocates a copy and produces the loan. NOT_FOUND, STATE,
	// NO_COPY_AVAILABLE, or STORE.
	Approve(ctx context.Context, reservationID int64) (*model.Loan, error)

	// Reject moves a pending reservation to REJECTED. Re-rejecting is a
	// STATE error, never a silent success.
	Reject(ctx context.Context, reservationID int64) error

	List(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
}

type service struct {
	store      catalog.Store
	avail      Availability
	loanPeriod time.Duration
	locks      *bookLocks
	log        *slog.Logger
	now        func() time.Time
}

// New builds the service. loanPeriodDays is the library's loan policy; due
// dates are always creation date plus that period.
func New(store catalog.Store, avail Availability, loanPeriodDays int, log *slog.Logger) Service {
	return &service{
		store:      store,
		avail:      avail,
		loanPeriod: time.Duration(loanPeriodDays) * 24 * time.Hour,
		locks:      newBookLocks(),
		log:        log,
		now:        time.Now,
	}
}

func (s *service) Create(ctx context.Context, personID, bookID int64, on *time.Time) (*model.Reservation, error) {
	if personID <= 0 || bookID <= 0 {
		return nil, fault.New(fault.ErrValidation, "person and book are required")
	}

	if _, err := s.store.Persons().ByID(ctx, personID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fault.Newf(fault.ErrValidation, "person %d not found", personID)
		}
		return nil, fault.Store("load person", err, true)
	}
	if _, err := s.store.Books().ByID(ctx, bookID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fault.Newf(fault.ErrValidation, "book %d not found", bookID)
		}
		return nil, fault.Store("load book", err, true)
	}

	// The duplicate check and the insert must not interleave with another
	// create (or approve) of the same book, so both run under the book's
	// lock. The postgres and mongo drivers additionally carry a partial
	// unique index on pending (person, book) pairs for writers outside
	// this process.
	release := s.locks.acquire(bookID)
	defer release()

	pending, err := s.store.Reservations().PendingFor(ctx, personID, bookID)
	if err != nil {
		return nil, fault.Store("check pending reservations", err, true)
	}
	if len(pending) > 0 {
		return nil, fault.Newf(fault.ErrConflict,
			"person %d already has a pending reservation for book %d", personID, bookID)
	}

	createdOn := s.now().UTC()
	if on != nil {
		createdOn = *on
	}
	res := &model.Reservation{
		PersonID:  personID,
		BookID:    bookID,
		CreatedOn: createdOn,
		Status:    model.ReservationPending,
	}
	if err := s.store.Reservations().Insert(ctx, res); err != nil {
		if errors.Is(err, catalog.ErrConditionFailed) {
			// A writer outside this process won the pair's unique index.
			return nil, fault.Newf(fault.ErrConflict,
				"person %d already has a pending reservation for book %d", personID, bookID)
		}
		return nil, fault.Store("insert reservation", err, true)
	}

	s.log.Info("reservation created",
		"reservation_id", res.ID, "person_id", personID, "book_id", bookID)
	return res, nil
}

func (s *service) Reject(ctx context.Context, reservationID int64) error {
	err := s.store.Reservations().SetStatus(ctx, reservationID,
		model.ReservationPending, model.ReservationRejected)
	switch {
	case err == nil:
		s.log.Info("reservation rejected", "reservation_id", reservationID)
		return nil
	case errors.Is(err, catalog.ErrNotFound):
		return fault.Newf(fault.ErrNotFound, "reservation %d not found", reservationID)
	case errors.Is(err, catalog.ErrConditionFailed):
		return fault.Newf(fault.ErrState, "reservation %d is not pending", reservationID)
	default:
		return fault.Store("reject reservation", err, true)
	}
}

// Approve is the allocation path. All approvals of the same book are
// serialized through an in-process per-book mutex and availability is
// re-read under the lock, which keeps the one-open-loan-per-copy invariant
// without cross-row store transactions. The loan insert and the status
// flip are two single-row writes; if the flip keeps failing after the
// bounded retry, the half-applied state (open loan, still-pending
// reservation) is surfaced to the caller rather than masked.
func (s *service) Approve(ctx context.Context, reservationID int64) (*model.Loan, error) {
	res, err := s.loadPending(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(res.BookID)
	defer release()

	// State may have moved while we waited on the lock.
	res, err = s.loadPending(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	free, err := s.avail.AvailableCopies(ctx, res.BookID)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, fault.Newf(fault.ErrNoCopyAvailable,
			"no copy of book %d available", res.BookID)
	}

	// Lowest copy ID wins; ByBook ordering makes this the first element.
	chosen := free[0]

	loanedOn := s.now().UTC()
	loan := &model.Loan{
		CopyID:        chosen.ID,
		BookID:        res.BookID,
		PersonID:      res.PersonID,
		ReservationID: &res.ID,
		LoanedOn:      loanedOn,
		DueOn:         loanedOn.Add(s.loanPeriod),
	}
	if err := s.store.Loans().Insert(ctx, loan); err != nil {
		if errors.Is(err, catalog.ErrConditionFailed) {
			// The open-loan-per-copy index rejected the insert: a writer
			// outside this process took the copy between the availability
			// read and here. Terminal for this attempt, not a store fault.
			return nil, fault.Newf(fault.ErrNoCopyAvailable,
				"no copy of book %d available", res.BookID)
		}
		return nil, fault.Store("insert loan", err, true)
	}

	err = withRetry(ctx, approveRetries, approveBackoff, func() error {
		err := s.store.Reservations().SetStatus(ctx, res.ID,
			model.ReservationPending, model.ReservationApproved)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) && !errors.Is(err, catalog.ErrConditionFailed) {
			return fault.Store("mark reservation approved", err, true)
		}
		return err
	})
	if err != nil {
		// Loan exists but the reservation never left PENDING. The orphan
		// is detectable (loan.ReservationID -> non-approved reservation)
		// and left for reconciliation; never rolled back silently.
		s.log.Error("approve half-applied: loan created, status flip failed",
			"reservation_id", res.ID, "loan_id", loan.ID, "err", err)
		if fault.Code(err) == fault.ErrStore {
			return nil, err
		}
		return nil, fault.Store("mark reservation approved", err, false)
	}

	s.log.Info("reservation approved",
		"reservation_id", res.ID, "loan_id", loan.ID,
		"copy_id", chosen.ID, "due_on", loan.DueOn)
	return loan, nil
}

func (s *service) List(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	out, err := s.store.Reservations().ByStatus(ctx, status)
	if err != nil {
		return nil, fault.Store("list reservations", err, true)
	}
	return out, nil
}

func (s *service) loadPending(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.store.Reservations().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fault.Newf(fault.ErrNotFound, "reservation %d not found", id)
		}
		return nil, fault.Store("load reservation", err, true)
	}
	if res.Status != model.ReservationPending {
		return nil, fault.Newf(fault.ErrState,
			"reservation %d is %s, not pending", id, res.Status)
	}
	return res, nil
}

const (
	approveRetries = 3
	approveBackoff = 100 * time.Millisecond
)

// withRetry re-runs fn on transient failures with exponential backoff.
// Terminal errors pass through on the first attempt.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !fault.Retryable(err) {
			return err
		}
		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
