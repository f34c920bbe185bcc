// model/reservation.go
package model

import "time"

type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "PENDING"
	ReservationApproved ReservationStatus = "APPROVED"
	ReservationRejected ReservationStatus = "REJECTED"
)

// Reservation is a member's request for a title. It is created PENDING and
// transitions exactly once to APPROVED (producing a Loan) or REJECTED.
type Reservation struct {
	ID        int64             `json:"id"`
	PersonID  int64             `json:"person_id"`
	BookID    int64             `json:"book_id"`
	CreatedOn time.Time         `json:"created_on"`
	Status    ReservationStatus `json:"status"`
}
