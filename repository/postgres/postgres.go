// Package postgres is the client-server catalog.Store driver: pgxpool for
// execution, goqu for query building. Uniqueness invariants are also
// present as partial unique indexes (see schema.sql); a violation there
// surfaces as the same condition failure the services already handle.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"libcirc/model"
	"libcirc/repository/catalog"
)

var dialect = goqu.Dialect("postgres")

type Store struct {
	pool *pgxpool.Pool
}

var _ catalog.Store = (*Store)(nil)

// Open connects the pool and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Books() catalog.Books               { return &books{s.pool} }
func (s *Store) Copies() catalog.Copies             { return &copies{s.pool} }
func (s *Store) Persons() catalog.Persons           { return &persons{s.pool} }
func (s *Store) Reservations() catalog.Reservations { return &reservations{s.pool} }
func (s *Store) Loans() catalog.Loans               { return &loans{s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close(context.Context) error {
	s.pool.Close()
	return nil
}

// uniqueViolation reports whether err is a postgres unique-index hit.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// --- books ---

type books struct{ pool *pgxpool.Pool }

func (r *books) Insert(ctx context.Context, b *model.Book) error {
	q, args, err := dialect.Insert("books").Prepared(true).
		Rows(goqu.Record{
			"title": b.Title, "isbn": b.ISBN, "year": b.Year,
			"author": b.Author, "publisher": b.Publisher, "genre": b.Genre,
		}).
		Returning("id").ToSQL()
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, q, args...).Scan(&b.ID)
}

func (r *books) ByID(ctx context.Context, id int64) (*model.Book, error) {
	q, args, err := selectBooks().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, err
	}
	b, err := scanBook(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *books) List(ctx context.Context) ([]model.Book, error) {
	q, args, err := selectBooks().Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryBooks(ctx, q, args)
}

func (r *books) Search(ctx context.Context, term string) ([]model.Book, error) {
	pattern := "%" + term + "%"
	q, args, err := selectBooks().
		Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
		)).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryBooks(ctx, q, args)
}

func selectBooks() *goqu.SelectDataset {
	return dialect.From("books").Prepared(true).
		Select("id", "title", "isbn", "year", "author", "publisher", "genre")
}

func (r *books) queryBooks(ctx context.Context, q string, args []any) ([]model.Book, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.ISBN, &b.Year, &b.Author, &b.Publisher, &b.Genre); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBook(row pgx.Row) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.ISBN, &b.Year, &b.Author, &b.Publisher, &b.Genre)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// --- copies ---

type copies struct{ pool *pgxpool.Pool }

func (r *copies) Insert(ctx context.Context, c *model.Copy) error {
	q, args, err := dialect.Insert("copies").Prepared(true).
		Rows(goqu.Record{"book_id": c.BookID, "barcode": c.Barcode}).
		Returning("id").ToSQL()
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, q, args...).Scan(&c.ID)
}

func (r *copies) ByID(ctx context.Context, id int64) (*model.Copy, error) {
	q, args, err := dialect.From("copies").Prepared(true).
		Select("id", "book_id", "barcode").
		Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, err
	}
	var c model.Copy
	err = r.pool.QueryRow(ctx, q, args...).Scan(&c.ID, &c.BookID, &c.Barcode)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *copies) ByBook(ctx context.Context, bookID int64) ([]model.Copy, error) {
	q, args, err := dialect.From("copies").Prepared(true).
		Select("id", "book_id", "barcode").
		Where(goqu.Ex{"book_id": bookID}).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Copy
	for rows.Next() {
		var c model.Copy
		if err := rows.Scan(&c.ID, &c.BookID, &c.Barcode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- persons ---

type persons struct{ pool *pgxpool.Pool }

func (r *persons) Insert(ctx context.Context, p *model.Person) error {
	q, args, err := dialect.Insert("persons").Prepared(true).
		Rows(goqu.Record{"name": p.Name, "email": p.Email}).
		Returning("id", "created_at").ToSQL()
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, q, args...).Scan(&p.ID, &p.CreatedAt)
}

func (r *persons) ByID(ctx context.Context, id int64) (*model.Person, error) {
	q, args, err := dialect.From("persons").Prepared(true).
		Select("id", "name", "email", "created_at").
		Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, err
	}
	var p model.Person
	err = r.pool.QueryRow(ctx, q, args...).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *persons) List(ctx context.Context) ([]model.Person, error) {
	q, args, err := dialect.From("persons").Prepared(true).
		Select("id", "name", "email", "created_at").
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- reservations ---

type reservations struct{ pool *pgxpool.Pool }

func (r *reservations) Insert(ctx context.Context, res *model.Reservation) error {
	q, args, err := dialect.Insert("reservations").Prepared(true).
		Rows(goqu.Record{
			"person_id": res.PersonID, "book_id": res.BookID,
			"created_on": res.CreatedOn, "status": string(res.Status),
		}).
		Returning("id").ToSQL()
	if err != nil {
		return err
	}
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&res.ID); err != nil {
		// The partial unique index on pending (person, book) pairs backs
		// the application-level duplicate check.
		if uniqueViolation(err) {
			return catalog.ErrConditionFailed
		}
		return err
	}
	return nil
}

func (r *reservations) ByID(ctx context.Context, id int64) (*model.Reservation, error) {
	q, args, err := selectReservations().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, err
	}
	res, err := scanReservation(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *reservations) ByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	q, args, err := selectReservations().
		Where(goqu.Ex{"status": string(status)}).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryReservations(ctx, q, args)
}

func (r *reservations) PendingFor(ctx context.Context, personID, bookID int64) ([]model.Reservation, error) {
	q, args, err := selectReservations().
		Where(goqu.Ex{
			"person_id": personID,
			"book_id":   bookID,
			"status":    string(model.ReservationPending),
		}).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryReservations(ctx, q, args)
}

func (r *reservations) SetStatus(ctx context.Context, id int64, from, to model.ReservationStatus) error {
	q, args, err := dialect.Update("reservations").Prepared(true).
		Set(goqu.Record{"status": string(to)}).
		Where(goqu.Ex{"id": id, "status": string(from)}).ToSQL()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race on status.
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
		return catalog.ErrConditionFailed
	}
	return nil
}

func selectReservations() *goqu.SelectDataset {
	return dialect.From("reservations").Prepared(true).
		Select("id", "person_id", "book_id", "created_on", "status")
}

func (r *reservations) queryReservations(ctx context.Context, q string, args []any) ([]model.Reservation, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		var status string
		if err := rows.Scan(&res.ID, &res.PersonID, &res.BookID, &res.CreatedOn, &status); err != nil {
			return nil, err
		}
		res.Status = model.ReservationStatus(status)
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	err := row.Scan(&res.ID, &res.PersonID, &res.BookID, &res.CreatedOn, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	return &res, nil
}

// --- loans ---

type loans struct{ pool *pgxpool.Pool }

func (r *loans) Insert(ctx context.Context, l *model.Loan) error {
	q, args, err := dialect.Insert("loans").Prepared(true).
		Rows(goqu.Record{
			"copy_id": l.CopyID, "book_id": l.BookID, "person_id": l.PersonID,
			"reservation_id": l.ReservationID,
			"loaned_on":      l.LoanedOn, "due_on": l.DueOn,
		}).
		Returning("id").ToSQL()
	if err != nil {
		return err
	}
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&l.ID); err != nil {
		// Partial unique index on open loans per copy: last line of
		// defense behind the per-book serialization.
		if uniqueViolation(err) {
			return catalog.ErrConditionFailed
		}
		return err
	}
	return nil
}

func (r *loans) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	q, args, err := selectLoans().Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, err
	}
	var l model.Loan
	err = r.pool.QueryRow(ctx, q, args...).
		Scan(&l.ID, &l.CopyID, &l.BookID, &l.PersonID, &l.ReservationID, &l.LoanedOn, &l.DueOn, &l.ReturnedOn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *loans) Open(ctx context.Context) ([]model.Loan, error) {
	q, args, err := selectLoans().
		Where(goqu.C("returned_on").IsNull()).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryLoans(ctx, q, args)
}

func (r *loans) OpenByBook(ctx context.Context, bookID int64) ([]model.Loan, error) {
	q, args, err := selectLoans().
		Where(goqu.Ex{"book_id": bookID}, goqu.C("returned_on").IsNull()).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryLoans(ctx, q, args)
}

func (r *loans) ByPerson(ctx context.Context, personID int64) ([]model.Loan, error) {
	q, args, err := selectLoans().
		Where(goqu.Ex{"person_id": personID}).
		Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}
	return r.queryLoans(ctx, q, args)
}

func (r *loans) Close(ctx context.Context, id int64, returnedOn time.Time) error {
	q, args, err := dialect.Update("loans").Prepared(true).
		Set(goqu.Record{"returned_on": returnedOn}).
		Where(goqu.Ex{"id": id}, goqu.C("returned_on").IsNull()).ToSQL()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
		return catalog.ErrConditionFailed
	}
	return nil
}

func selectLoans() *goqu.SelectDataset {
	return dialect.From("loans").Prepared(true).
		Select("id", "copy_id", "book_id", "person_id", "reservation_id",
			"loaned_on", "due_on", "returned_on")
}

func (r *loans) queryLoans(ctx context.Context, q string, args []any) ([]model.Loan, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Loan
	for rows.Next() {
		var l model.Loan
		if err := rows.Scan(&l.ID, &l.CopyID, &l.BookID, &l.PersonID, &l.ReservationID, &l.LoanedOn, &l.DueOn, &l.ReturnedOn); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
