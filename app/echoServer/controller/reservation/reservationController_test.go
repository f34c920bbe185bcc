package reservation_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rsvctrl "libcirc/app/echoServer/controller/reservation"
	"libcirc/model"
	"libcirc/repository/memory"
	"libcirc/service/availability"
	rsvc "libcirc/service/reservation"
)

func newController(t *testing.T) (*rsvctrl.Controller, *memory.Store) {
	t.Helper()
	store := memory.New()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	avail := availability.New(store.Copies(), store.Loans(), log)
	svc := rsvc.New(store, avail, 14, log)
	return &rsvctrl.Controller{Svc: svc, V: validator.New(), Log: log}, store
}

func seed(t *testing.T, store *memory.Store, copies int) (bookID, personID int64) {
	t.Helper()
	ctx := context.Background()
	b := &model.Book{Title: "O Crime do Padre Amaro"}
	require.NoError(t, store.Books().Insert(ctx, b))
	for i := 0; i < copies; i++ {
		require.NoError(t, store.Copies().Insert(ctx, &model.Copy{BookID: b.ID}))
	}
	p := &model.Person{Name: "Joana"}
	require.NoError(t, store.Persons().Insert(ctx, p))
	return b.ID, p.ID
}

func post(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateReservation(t *testing.T) {
	e := echo.New()
	h, store := newController(t)
	_, _ = seed(t, store, 1)

	c, rec := post(e, "/v1/reservations", `{"person_id":1,"book_id":1}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"PENDING"`)
}

func TestCreateReservationBadRequests(t *testing.T) {
	e := echo.New()
	h, store := newController(t)
	_, _ = seed(t, store, 1)

	// missing fields fail struct validation
	c, rec := post(e, "/v1/reservations", `{"person_id":1}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// malformed date
	c, rec = post(e, "/v1/reservations", `{"person_id":1,"book_id":1,"date":"15-01-2024"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown person is a domain validation error
	c, rec = post(e, "/v1/reservations", `{"person_id":99,"book_id":1}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateReservationDuplicateConflict(t *testing.T) {
	e := echo.New()
	h, store := newController(t)
	_, _ = seed(t, store, 1)

	c, rec := post(e, "/v1/reservations", `{"person_id":1,"book_id":1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = post(e, "/v1/reservations", `{"person_id":1,"book_id":1}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func approveReq(e *echo.Echo, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/reservations/:id/approve")
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestApproveFlow(t *testing.T) {
	e := echo.New()
	h, store := newController(t)
	_, _ = seed(t, store, 1)

	c, rec := post(e, "/v1/reservations", `{"person_id":1,"book_id":1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = approveReq(e, "1")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"copy_id":1`)

	// already approved
	c, rec = approveReq(e, "1")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// unknown reservation
	c, rec = approveReq(e, "42")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// garbage id
	c, rec = approveReq(e, "abc")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveNoCopyAvailable(t *testing.T) {
	e := echo.New()
	h, store := newController(t)
	_, _ = seed(t, store, 0)

	c, rec := post(e, "/v1/reservations", `{"person_id":1,"book_id":1}`)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = approveReq(e, "1")
	require.NoError(t, h.Approve(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no copy available")
}
