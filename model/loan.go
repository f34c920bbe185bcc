// model/loan.go
package model

import "time"

// Loan binds one Copy to one Person. A loan is open while ReturnedOn is
// nil; at most one open loan may reference a given copy at any time.
// ReservationID is set when the loan was produced by approving a
// reservation, which makes a half-applied approval detectable.
type Loan struct {
	ID            int64      `json:"id"`
	CopyID        int64      `json:"copy_id"`
	BookID        int64      `json:"book_id"`
	PersonID      int64      `json:"person_id"`
	ReservationID *int64     `json:"reservation_id,omitempty"`
	LoanedOn      time.Time  `json:"loaned_on"`
	DueOn         time.Time  `json:"due_on"`
	ReturnedOn    *time.Time `json:"returned_on,omitempty"`
}

// Open reports whether the copy is still out.
func (l Loan) Open() bool { return l.ReturnedOn == nil }

// OverdueAt reports whether the loan is open and past due, relative to the
// supplied date rather than the wall clock.
func (l Loan) OverdueAt(asOf time.Time) bool {
	return l.Open() && l.DueOn.Before(asOf)
}
