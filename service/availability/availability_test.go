package availability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libcirc/model"
	"libcirc/repository/memory"
	"libcirc/service/availability"
)

func newCalc(t *testing.T) (*availability.Calculator, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return availability.New(store.Copies(), store.Loans(), log), store
}

func TestForBook(t *testing.T) {
	ctx := context.Background()
	calc, store := newCalc(t)

	b := &model.Book{Title: "Niebla"}
	require.NoError(t, store.Books().Insert(ctx, b))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Copies().Insert(ctx, &model.Copy{BookID: b.ID}))
	}
	require.NoError(t, store.Loans().Insert(ctx, &model.Loan{
		CopyID: 1, BookID: b.ID, PersonID: 1,
		LoanedOn: time.Now().UTC(), DueOn: time.Now().UTC().AddDate(0, 0, 14),
	}))

	av, err := calc.ForBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, av.Total)
	assert.Equal(t, 2, av.Available)

	// closed loans release the copy
	require.NoError(t, store.Loans().Close(ctx, 1, time.Now().UTC()))
	av, err = calc.ForBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, av.Available)
}

func TestForBookUnknownBookIsEmpty(t *testing.T) {
	calc, _ := newCalc(t)
	av, err := calc.ForBook(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, av.Total)
	assert.Equal(t, 0, av.Available)
}

// A store breaking the one-open-loan-per-copy invariant can push the count
// negative; the calculator clamps instead of reporting nonsense.
func TestForBookClampsNegative(t *testing.T) {
	ctx := context.Background()
	calc, store := newCalc(t)

	b := &model.Book{Title: "Claraboia"}
	require.NoError(t, store.Books().Insert(ctx, b))
	require.NoError(t, store.Copies().Insert(ctx, &model.Copy{BookID: b.ID}))

	for p := int64(1); p <= 2; p++ {
		require.NoError(t, store.Loans().Insert(ctx, &model.Loan{
			CopyID: 1, BookID: b.ID, PersonID: p,
			LoanedOn: time.Now().UTC(), DueOn: time.Now().UTC().AddDate(0, 0, 14),
		}))
	}

	av, err := calc.ForBook(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, av.Total)
	assert.Equal(t, 0, av.Available)
}

func TestAvailableCopiesOrderAndFiltering(t *testing.T) {
	ctx := context.Background()
	calc, store := newCalc(t)

	b := &model.Book{Title: "Aparição"}
	require.NoError(t, store.Books().Insert(ctx, b))
	for _, id := range []int64{4, 2, 9} {
		require.NoError(t, store.Copies().Insert(ctx, &model.Copy{ID: id, BookID: b.ID}))
	}
	require.NoError(t, store.Loans().Insert(ctx, &model.Loan{
		CopyID: 2, BookID: b.ID, PersonID: 1,
		LoanedOn: time.Now().UTC(), DueOn: time.Now().UTC().AddDate(0, 0, 14),
	}))

	free, err := calc.AvailableCopies(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, int64(4), free[0].ID)
	assert.Equal(t, int64(9), free[1].ID)
}
