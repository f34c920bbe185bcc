// model/book.go
package model

// Book is a catalog title. Author, publisher and genre are carried as
// read-only display values; the circulation core never mutates them.
type Book struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	ISBN      *string `json:"isbn,omitempty"`
	Year      *int    `json:"year,omitempty"`
	Author    string  `json:"author,omitempty"`
	Publisher string  `json:"publisher,omitempty"`
	Genre     string  `json:"genre,omitempty"`
}

// Copy is one physical instance of a Book. Whether a copy is available is
// derived from the open loans referencing it, never stored on the copy.
type Copy struct {
	ID      int64  `json:"id"`
	BookID  int64  `json:"book_id"`
	Barcode string `json:"barcode"`
}

// Availability is the derived per-book copy count pair.
type Availability struct {
	BookID    int64 `json:"book_id"`
	Total     int   `json:"total"`
	Available int   `json:"available"`
}

// BookWithAvailability decorates a Book with its derived counts for
// catalog listings.
type BookWithAvailability struct {
	Book
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
}
