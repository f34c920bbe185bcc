package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/qawatake/fixify"
	"github.com/stretchr/testify/require"

	"libcirc/model"
	"libcirc/repository/catalog"
	"libcirc/repository/memory"
)

// fixture connectors: a copy or reservation picks up its parents' IDs
// once those are inserted.

func book(title string) *fixify.Model[model.Book] {
	return fixify.NewModel(&model.Book{Title: title})
}

func copyOf() *fixify.Model[model.Copy] {
	return fixify.NewModel(&model.Copy{},
		fixify.ConnectorFunc(func(_ testing.TB, c *model.Copy, b *model.Book) {
			c.BookID = b.ID
		}),
	)
}

func person(name string) *fixify.Model[model.Person] {
	return fixify.NewModel(&model.Person{Name: name})
}

func pendingReservation() *fixify.Model[model.Reservation] {
	return fixify.NewModel(
		&model.Reservation{Status: model.ReservationPending, CreatedOn: time.Now().UTC()},
		fixify.ConnectorFunc(func(_ testing.TB, r *model.Reservation, b *model.Book) {
			r.BookID = b.ID
		}),
		fixify.ConnectorFunc(func(_ testing.TB, r *model.Reservation, p *model.Person) {
			r.PersonID = p.ID
		}),
	)
}

// seed inserts every fixture model into the store in dependency order.
func seed(t *testing.T, s *memory.Store, f *fixify.Fixture) {
	t.Helper()
	ctx := context.Background()
	f.Apply(func(v any) error {
		switch m := v.(type) {
		case *model.Book:
			return s.Books().Insert(ctx, m)
		case *model.Copy:
			return s.Copies().Insert(ctx, m)
		case *model.Person:
			return s.Persons().Insert(ctx, m)
		case *model.Reservation:
			return s.Reservations().Insert(ctx, m)
		case *model.Loan:
			return s.Loans().Insert(ctx, m)
		}
		return nil
	})
}

func TestCopiesByBookOrdering(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var b *fixify.Model[model.Book]
	seed(t, s, fixify.New(t,
		book("Os Lusíadas").Bind(&b).With(copyOf(), copyOf(), copyOf()),
	))

	got, err := s.Copies().ByBook(ctx, b.Value().ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1].ID, got[i].ID, "copies must come back in ascending ID order")
	}
}

func TestReservationSetStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var r *fixify.Model[model.Reservation]
	seed(t, s, fixify.New(t,
		book("Mensagem").With(pendingReservation().Bind(&r)),
		person("Alice").With(r),
	))
	id := r.Value().ID

	// pending -> approved succeeds once
	require.NoError(t, s.Reservations().SetStatus(ctx, id,
		model.ReservationPending, model.ReservationApproved))

	// a second identical transition loses the predicate
	err := s.Reservations().SetStatus(ctx, id,
		model.ReservationPending, model.ReservationApproved)
	require.ErrorIs(t, err, catalog.ErrConditionFailed)

	// unknown row is NotFound, distinct from a failed condition
	err = s.Reservations().SetStatus(ctx, 9999,
		model.ReservationPending, model.ReservationRejected)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestPendingFor(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	var b *fixify.Model[model.Book]
	var p *fixify.Model[model.Person]
	var r *fixify.Model[model.Reservation]
	seed(t, s, fixify.New(t,
		book("Memorial do Convento").Bind(&b).With(pendingReservation().Bind(&r)),
		person("Bob").Bind(&p).With(r),
	))

	got, err := s.Reservations().PendingFor(ctx, p.Value().ID, b.Value().ID)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// rejected reservations no longer count as pending
	require.NoError(t, s.Reservations().SetStatus(ctx, r.Value().ID,
		model.ReservationPending, model.ReservationRejected))
	got, err = s.Reservations().PendingFor(ctx, p.Value().ID, b.Value().ID)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoanCloseCAS(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	l := &model.Loan{CopyID: 1, BookID: 1, PersonID: 1,
		LoanedOn: time.Now().UTC(), DueOn: time.Now().UTC().AddDate(0, 0, 14)}
	require.NoError(t, s.Loans().Insert(ctx, l))

	open, err := s.Loans().Open(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, s.Loans().Close(ctx, l.ID, time.Now().UTC()))

	open, err = s.Loans().Open(ctx)
	require.NoError(t, err)
	require.Empty(t, open)

	err = s.Loans().Close(ctx, l.ID, time.Now().UTC())
	require.ErrorIs(t, err, catalog.ErrConditionFailed)
}

func TestBookSearch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.Books().Insert(ctx, &model.Book{Title: "O Principezinho", Author: "Saint-Exupéry"}))
	require.NoError(t, s.Books().Insert(ctx, &model.Book{Title: "Dom Casmurro", Author: "Machado de Assis"}))

	got, err := s.Books().Search(ctx, "principe")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "O Principezinho", got[0].Title)

	got, err = s.Books().Search(ctx, "machado")
	require.NoError(t, err)
	require.Len(t, got, 1, "author must be searchable too")
}
