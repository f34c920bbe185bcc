package catalogsvc_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/fault"
	"libcirc/model"
	"libcirc/repository/memory"
	"libcirc/service/availability"
	catalogsvc "libcirc/service/catalog"
)

func newService(t *testing.T) (catalogsvc.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	avail := availability.New(store.Copies(), store.Loans(), log)
	return catalogsvc.New(store, avail), store
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateBook(ctx, model.Book{Author: "anon"})
	assert.Equal(t, fault.ErrValidation, fault.Code(err))

	b, err := svc.CreateBook(ctx, model.Book{Title: "Ensaio sobre a Cegueira", Author: "Saramago"})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
}

func TestAddCopies(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	b, err := svc.CreateBook(ctx, model.Book{Title: "O Ano da Morte de Ricardo Reis"})
	require.NoError(t, err)

	got, err := svc.AddCopies(ctx, b.ID, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	seen := map[string]bool{}
	for _, c := range got {
		assert.Equal(t, b.ID, c.BookID)
		assert.NotEmpty(t, c.Barcode)
		assert.False(t, seen[c.Barcode], "barcodes must be unique")
		seen[c.Barcode] = true
	}

	all, err := store.Copies().ByBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.AddCopies(ctx, b.ID, 0)
	assert.Equal(t, fault.ErrValidation, fault.Code(err))

	_, err = svc.AddCopies(ctx, 999, 1)
	assert.Equal(t, fault.ErrNotFound, fault.Code(err))
}

func TestListBooksWithAvailability(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	b, err := svc.CreateBook(ctx, model.Book{Title: "Levantado do Chão", Author: "Saramago"})
	require.NoError(t, err)
	_, err = svc.AddCopies(ctx, b.ID, 2)
	require.NoError(t, err)
	_, err = svc.CreateBook(ctx, model.Book{Title: "Fahrenheit 451", Author: "Bradbury"})
	require.NoError(t, err)

	all, err := svc.ListBooks(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].TotalCopies)
	assert.Equal(t, 2, all[0].AvailableCopies)
	assert.Equal(t, 0, all[1].TotalCopies)

	// search narrows by title or author
	hits, err := svc.ListBooks(ctx, "bradbury")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Fahrenheit 451", hits[0].Title)
}

func TestBookDetail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.BookDetail(ctx, 5)
	assert.Equal(t, fault.ErrNotFound, fault.Code(err))

	b, err := svc.CreateBook(ctx, model.Book{Title: "As Intermitências da Morte"})
	require.NoError(t, err)
	got, err := svc.BookDetail(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, got.Title)
	assert.Equal(t, 0, got.TotalCopies)
}

func TestRegisterPerson(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.RegisterPerson(ctx, "  ", "x@y.z")
	assert.Equal(t, fault.ErrValidation, fault.Code(err))

	p, err := svc.RegisterPerson(ctx, "Inês", "ines@school.pt")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	all, err := svc.ListPersons(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
