// Package memory is the embedded catalog.Store driver: mutex-guarded maps
// with serial IDs. It backs the test suite and the STORE_DRIVER=memory
// configuration, and is the reference semantics for the other drivers.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"libcirc/model"
	"libcirc/repository/catalog"
)

type Store struct {
	mu sync.RWMutex

	nextID       map[string]int64
	books        map[int64]model.Book
	copies       map[int64]model.Copy
	persons      map[int64]model.Person
	reservations map[int64]model.Reservation
	loans        map[int64]model.Loan
}

var _ catalog.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nextID:       make(map[string]int64),
		books:        make(map[int64]model.Book),
		copies:       make(map[int64]model.Copy),
		persons:      make(map[int64]model.Person),
		reservations: make(map[int64]model.Reservation),
		loans:        make(map[int64]model.Loan),
	}
}

func (s *Store) Books() catalog.Books               { return (*books)(s) }
func (s *Store) Copies() catalog.Copies             { return (*copies)(s) }
func (s *Store) Persons() catalog.Persons           { return (*persons)(s) }
func (s *Store) Reservations() catalog.Reservations { return (*reservations)(s) }
func (s *Store) Loans() catalog.Loans               { return (*loans)(s) }

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

// seq hands out per-entity serial IDs; callers must hold mu.
func (s *Store) seq(entity string) int64 {
	s.nextID[entity]++
	return s.nextID[entity]
}

// --- books ---

type books Store

func (r *books) Insert(_ context.Context, b *model.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b.ID == 0 {
		b.ID = (*Store)(r).seq("book")
	}
	r.books[b.ID] = *b
	return nil
}

func (r *books) ByID(_ context.Context, id int64) (*model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &b, nil
}

func (r *books) List(_ context.Context) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *books) Search(_ context.Context, term string) ([]model.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(term))
	var out []model.Book
	for _, b := range r.books {
		if strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- copies ---

type copies Store

func (r *copies) Insert(_ context.Context, c *model.Copy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		c.ID = (*Store)(r).seq("copy")
	}
	r.copies[c.ID] = *c
	return nil
}

func (r *copies) ByID(_ context.Context, id int64) (*model.Copy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.copies[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &c, nil
}

func (r *copies) ByBook(_ context.Context, bookID int64) ([]model.Copy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Copy
	for _, c := range r.copies {
		if c.BookID == bookID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- persons ---

type persons Store

func (r *persons) Insert(_ context.Context, p *model.Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = (*Store)(r).seq("person")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.persons[p.ID] = *p
	return nil
}

func (r *persons) ByID(_ context.Context, id int64) (*model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.persons[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (r *persons) List(_ context.Context) ([]model.Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Person, 0, len(r.persons))
	for _, p := range r.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- reservations ---

type reservations Store

func (r *reservations) Insert(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == 0 {
		res.ID = (*Store)(r).seq("reservation")
	}
	r.reservations[res.ID] = *res
	return nil
}

func (r *reservations) ByID(_ context.Context, id int64) (*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &res, nil
}

func (r *reservations) ByStatus(_ context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Reservation
	for _, res := range r.reservations {
		if res.Status == status {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *reservations) PendingFor(_ context.Context, personID, bookID int64) ([]model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Reservation
	for _, res := range r.reservations {
		if res.PersonID == personID && res.BookID == bookID && res.Status == model.ReservationPending {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *reservations) SetStatus(_ context.Context, id int64, from, to model.ReservationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if res.Status != from {
		return catalog.ErrConditionFailed
	}
	res.Status = to
	r.reservations[id] = res
	return nil
}

// --- loans ---

type loans Store

func (r *loans) Insert(_ context.Context, l *model.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == 0 {
		l.ID = (*Store)(r).seq("loan")
	}
	r.loans[l.ID] = *l
	return nil
}

func (r *loans) ByID(_ context.Context, id int64) (*model.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loans[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &l, nil
}

func (r *loans) Open(_ context.Context) ([]model.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.Open() {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loans) OpenByBook(_ context.Context, bookID int64) ([]model.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.Open() && l.BookID == bookID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loans) ByPerson(_ context.Context, personID int64) ([]model.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Loan
	for _, l := range r.loans {
		if l.PersonID == personID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *loans) Close(_ context.Context, id int64, returnedOn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loans[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if !l.Open() {
		return catalog.ErrConditionFailed
	}
	t := returnedOn
	l.ReturnedOn = &t
	r.loans[id] = l
	return nil
}
