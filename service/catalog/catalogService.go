// Package catalogsvc manages the catalog itself: titles, physical copies,
// and members. Listings are decorated with the derived availability
// counts the search pages show next to each title.
package catalogsvc

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/catalog"
	"libcirc/service/availability"
)

type Service interface {
	CreateBook(ctx context.Context, b model.Book) (*model.Book, error)
	// AddCopies registers n new physical copies of a book, generating a
	// barcode per copy. Returns the created copies.
	AddCopies(ctx context.Context, bookID int64, n int) ([]model.Copy, error)
	ListBooks(ctx context.Context, search string) ([]model.BookWithAvailability, error)
	BookDetail(ctx context.Context, id int64) (*model.BookWithAvailability, error)
	Availability(ctx context.Context, bookID int64) (model.Availability, error)

	RegisterPerson(ctx context.Context, name, email string) (*model.Person, error)
	ListPersons(ctx context.Context) ([]model.Person, error)
}

type service struct {
	store catalog.Store
	avail *availability.Calculator
}

func New(store catalog.Store, avail *availability.Calculator) Service {
	return &service{store: store, avail: avail}
}

func (s *service) CreateBook(ctx context.Context, b model.Book) (*model.Book, error) {
	if strings.TrimSpace(b.Title) == "" {
		return nil, fault.New(fault.ErrValidation, "title is required")
	}
	b.ID = 0
	if err := s.store.Books().Insert(ctx, &b); err != nil {
		return nil, fault.Store("insert book", err, true)
	}
	return &b, nil
}

func (s *service) AddCopies(ctx context.Context, bookID int64, n int) ([]model.Copy, error) {
	if n <= 0 {
		return nil, fault.New(fault.ErrValidation, "copy count must be positive")
	}
	if _, err := s.store.Books().ByID(ctx, bookID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fault.Newf(fault.ErrNotFound, "book %d not found", bookID)
		}
		return nil, fault.Store("load book", err, true)
	}

	out := make([]model.Copy, 0, n)
	for i := 0; i < n; i++ {
		c := model.Copy{BookID: bookID, Barcode: uuid.NewString()}
		if err := s.store.Copies().Insert(ctx, &c); err != nil {
			return out, fault.Store("insert copy", err, true)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *service) ListBooks(ctx context.Context, search string) ([]model.BookWithAvailability, error) {
	var (
		books []model.Book
		err   error
	)
	if strings.TrimSpace(search) != "" {
		books, err = s.store.Books().Search(ctx, search)
	} else {
		books, err = s.store.Books().List(ctx)
	}
	if err != nil {
		return nil, fault.Store("list books", err, true)
	}

	out := make([]model.BookWithAvailability, 0, len(books))
	for _, b := range books {
		av, err := s.avail.ForBook(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.BookWithAvailability{
			Book:            b,
			TotalCopies:     av.Total,
			AvailableCopies: av.Available,
		})
	}
	return out, nil
}

func (s *service) BookDetail(ctx context.Context, id int64) (*model.BookWithAvailability, error) {
	b, err := s.store.Books().ByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, fault.Newf(fault.ErrNotFound, "book %d not found", id)
		}
		return nil, fault.Store("load book", err, true)
	}
	av, err := s.avail.ForBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.BookWithAvailability{
		Book:            *b,
		TotalCopies:     av.Total,
		AvailableCopies: av.Available,
	}, nil
}

func (s *service) Availability(ctx context.Context, bookID int64) (model.Availability, error) {
	if _, err := s.store.Books().ByID(ctx, bookID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return model.Availability{}, fault.Newf(fault.ErrNotFound, "book %d not found", bookID)
		}
		return model.Availability{}, fault.Store("load book", err, true)
	}
	return s.avail.ForBook(ctx, bookID)
}

func (s *service) RegisterPerson(ctx context.Context, name, email string) (*model.Person, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fault.New(fault.ErrValidation, "name is required")
	}
	p := &model.Person{Name: name, Email: email}
	if err := s.store.Persons().Insert(ctx, p); err != nil {
		return nil, fault.Store("insert person", err, true)
	}
	return p, nil
}

func (s *service) ListPersons(ctx context.Context) ([]model.Person, error) {
	out, err := s.store.Persons().List(ctx)
	if err != nil {
		return nil, fault.Store("list persons", err, true)
	}
	return out, nil
}
