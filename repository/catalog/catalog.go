// Package catalog defines the store contract the circulation services run
// against: point lookup by identity, list by equality predicates, insert,
// and conditional single-row updates. Any backend honoring single-row
// atomicity can implement it; the tree ships postgres, mongo, and
// in-memory drivers.
package catalog

import (
	"context"
	"errors"
	"time"

	"libcirc/model"
)

// ErrNotFound is returned by point lookups when no row matches. It is
// distinct from transport or storage failures.
var ErrNotFound = errors.New("catalog: not found")

// ErrConditionFailed is returned by conditional updates when the row
// exists but the guarding predicate no longer holds.
var ErrConditionFailed = errors.New("catalog: condition failed")

type Books interface {
	Insert(ctx context.Context, b *model.Book) error
	ByID(ctx context.Context, id int64) (*model.Book, error)
	List(ctx context.Context) ([]model.Book, error)
	// Search matches term case-insensitively against title and author.
	Search(ctx context.Context, term string) ([]model.Book, error)
}

type Copies interface {
	Insert(ctx context.Context, c *model.Copy) error
	ByID(ctx context.Context, id int64) (*model.Copy, error)
	// ByBook returns every copy of the book ordered ascending by ID.
	ByBook(ctx context.Context, bookID int64) ([]model.Copy, error)
}

type Persons interface {
	Insert(ctx context.Context, p *model.Person) error
	ByID(ctx context.Context, id int64) (*model.Person, error)
	List(ctx context.Context) ([]model.Person, error)
}

type Reservations interface {
	Insert(ctx context.Context, r *model.Reservation) error
	ByID(ctx context.Context, id int64) (*model.Reservation, error)
	ByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	// PendingFor returns the pending reservations of one (person, book)
	// pair; the lifecycle manager keeps this at most one long.
	PendingFor(ctx context.Context, personID, bookID int64) ([]model.Reservation, error)
	// SetStatus flips id from one status to another in a single atomic
	// write. ErrNotFound if the row is missing, ErrConditionFailed if its
	// status is no longer `from`.
	SetStatus(ctx context.Context, id int64, from, to model.ReservationStatus) error
}

type Loans interface {
	Insert(ctx context.Context, l *model.Loan) error
	ByID(ctx context.Context, id int64) (*model.Loan, error)
	// Open returns every loan whose return date is unset.
	Open(ctx context.Context) ([]model.Loan, error)
	// OpenByBook returns the open loans holding copies of one book.
	OpenByBook(ctx context.Context, bookID int64) ([]model.Loan, error)
	ByPerson(ctx context.Context, personID int64) ([]model.Loan, error)
	// Close sets the return date, atomically and only while the loan is
	// still open. ErrNotFound / ErrConditionFailed as with SetStatus.
	Close(ctx context.Context, id int64, returnedOn time.Time) error
}

// Store bundles the per-entity repositories with an explicit lifecycle:
// opened once at process start, closed at shutdown.
type Store interface {
	Books() Books
	Copies() Copies
	Persons() Persons
	Reservations() Reservations
	Loans() Loans

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
