package reservation

type CreateReservationReq struct {
	PersonID int64 `json:"person_id" validate:"required,gt=0"`
	BookID   int64 `json:"book_id" validate:"required,gt=0"`
	// Date is optional, YYYY-MM-DD; defaults to today.
	Date string `json:"date,omitempty"`
}
