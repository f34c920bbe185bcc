// Package mongo is the document catalog.Store driver. Entities keep the
// same int64 identities as the relational driver (a counters collection
// hands out sequences), and conditional updates ride on single-document
// atomicity of UpdateOne with a compound filter.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"libcirc/model"
	"libcirc/repository/catalog"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ catalog.Store = (*Store)(nil)

// Open connects and pings the deployment.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s := &Store{client: client, db: client.Database(dbName)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// ensureIndexes mirrors the relational driver's uq_reservations_pending:
// at most one pending reservation per (person, book), enforced by the
// store for writers outside this process.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection("reservations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "person_id", Value: 1}, {Key: "book_id", Value: 1}},
		Options: options.Index().
			SetName("uq_reservations_pending").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": string(model.ReservationPending)}),
	})
	return err
}

func (s *Store) Books() catalog.Books               { return &books{s} }
func (s *Store) Copies() catalog.Copies             { return &copies{s} }
func (s *Store) Persons() catalog.Persons           { return &persons{s} }
func (s *Store) Reservations() catalog.Reservations { return &reservations{s} }
func (s *Store) Loans() catalog.Loans               { return &loans{s} }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// nextID increments and returns the named sequence.
func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Value int64 `bson:"value"`
	}
	err := s.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Value, nil
}

type bookDoc struct {
	ID        int64   `bson:"_id"`
	Title     string  `bson:"title"`
	ISBN      *string `bson:"isbn,omitempty"`
	Year      *int    `bson:"year,omitempty"`
	Author    string  `bson:"author"`
	Publisher string  `bson:"publisher"`
	Genre     string  `bson:"genre"`
}

type copyDoc struct {
	ID      int64  `bson:"_id"`
	BookID  int64  `bson:"book_id"`
	Barcode string `bson:"barcode"`
}

type personDoc struct {
	ID        int64     `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
}

type reservationDoc struct {
	ID        int64     `bson:"_id"`
	PersonID  int64     `bson:"person_id"`
	BookID    int64     `bson:"book_id"`
	CreatedOn time.Time `bson:"created_on"`
	Status    string    `bson:"status"`
}

type loanDoc struct {
	ID            int64      `bson:"_id"`
	CopyID        int64      `bson:"copy_id"`
	BookID        int64      `bson:"book_id"`
	PersonID      int64      `bson:"person_id"`
	ReservationID *int64     `bson:"reservation_id,omitempty"`
	LoanedOn      time.Time  `bson:"loaned_on"`
	DueOn         time.Time  `bson:"due_on"`
	ReturnedOn    *time.Time `bson:"returned_on,omitempty"`
}

var findByID = func(id int64) bson.M { return bson.M{"_id": id} }

var ascByID = options.Find().SetSort(bson.M{"_id": 1})

// --- books ---

type books struct{ s *Store }

func (r *books) coll() *mongo.Collection { return r.s.db.Collection("books") }

func (r *books) Insert(ctx context.Context, b *model.Book) error {
	id, err := r.s.nextID(ctx, "books")
	if err != nil {
		return err
	}
	doc := bookDoc{ID: id, Title: b.Title, ISBN: b.ISBN, Year: b.Year,
		Author: b.Author, Publisher: b.Publisher, Genre: b.Genre}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (r *books) ByID(ctx context.Context, id int64) (*model.Book, error) {
	var doc bookDoc
	if err := r.coll().FindOne(ctx, findByID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	b := bookFromDoc(doc)
	return &b, nil
}

func (r *books) List(ctx context.Context) ([]model.Book, error) {
	return r.find(ctx, bson.M{})
}

func (r *books) Search(ctx context.Context, term string) ([]model.Book, error) {
	re := bson.M{"$regex": term, "$options": "i"}
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"title": re},
		bson.M{"author": re},
	}})
}

func (r *books) find(ctx context.Context, filter bson.M) ([]model.Book, error) {
	cur, err := r.coll().Find(ctx, filter, ascByID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Book
	for cur.Next(ctx) {
		var doc bookDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, bookFromDoc(doc))
	}
	return out, cur.Err()
}

func bookFromDoc(d bookDoc) model.Book {
	return model.Book{ID: d.ID, Title: d.Title, ISBN: d.ISBN, Year: d.Year,
		Author: d.Author, Publisher: d.Publisher, Genre: d.Genre}
}

// --- copies ---

type copies struct{ s *Store }

func (r *copies) coll() *mongo.Collection { return r.s.db.Collection("copies") }

func (r *copies) Insert(ctx context.Context, c *model.Copy) error {
	id, err := r.s.nextID(ctx, "copies")
	if err != nil {
		return err
	}
	if _, err := r.coll().InsertOne(ctx, copyDoc{ID: id, BookID: c.BookID, Barcode: c.Barcode}); err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *copies) ByID(ctx context.Context, id int64) (*model.Copy, error) {
	var doc copyDoc
	if err := r.coll().FindOne(ctx, findByID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	return &model.Copy{ID: doc.ID, BookID: doc.BookID, Barcode: doc.Barcode}, nil
}

func (r *copies) ByBook(ctx context.Context, bookID int64) ([]model.Copy, error) {
	cur, err := r.coll().Find(ctx, bson.M{"book_id": bookID}, ascByID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Copy
	for cur.Next(ctx) {
		var doc copyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, model.Copy{ID: doc.ID, BookID: doc.BookID, Barcode: doc.Barcode})
	}
	return out, cur.Err()
}

// --- persons ---

type persons struct{ s *Store }

func (r *persons) coll() *mongo.Collection { return r.s.db.Collection("persons") }

func (r *persons) Insert(ctx context.Context, p *model.Person) error {
	id, err := r.s.nextID(ctx, "persons")
	if err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	doc := personDoc{ID: id, Name: p.Name, Email: p.Email, CreatedAt: p.CreatedAt}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *persons) ByID(ctx context.Context, id int64) (*model.Person, error) {
	var doc personDoc
	if err := r.coll().FindOne(ctx, findByID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	return &model.Person{ID: doc.ID, Name: doc.Name, Email: doc.Email, CreatedAt: doc.CreatedAt}, nil
}

func (r *persons) List(ctx context.Context) ([]model.Person, error) {
	cur, err := r.coll().Find(ctx, bson.M{}, ascByID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Person
	for cur.Next(ctx) {
		var doc personDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, model.Person{ID: doc.ID, Name: doc.Name, Email: doc.Email, CreatedAt: doc.CreatedAt})
	}
	return out, cur.Err()
}

// --- reservations ---

type reservations struct{ s *Store }

func (r *reservations) coll() *mongo.Collection { return r.s.db.Collection("reservations") }

func (r *reservations) Insert(ctx context.Context, res *model.Reservation) error {
	id, err := r.s.nextID(ctx, "reservations")
	if err != nil {
		return err
	}
	doc := reservationDoc{ID: id, PersonID: res.PersonID, BookID: res.BookID,
		CreatedOn: res.CreatedOn, Status: string(res.Status)}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return catalog.ErrConditionFailed
		}
		return err
	}
	res.ID = id
	return nil
}

func (r *reservations) ByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var doc reservationDoc
	if err := r.coll().FindOne(ctx, findByID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	res := reservationFromDoc(doc)
	return &res, nil
}

func (r *reservations) ByStatus(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	return r.find(ctx, bson.M{"status": string(status)})
}

func (r *reservations) PendingFor(ctx context.Context, personID, bookID int64) ([]model.Reservation, error) {
	return r.find(ctx, bson.M{
		"person_id": personID,
		"book_id":   bookID,
		"status":    string(model.ReservationPending),
	})
}

func (r *reservations) SetStatus(ctx context.Context, id int64, from, to model.ReservationStatus) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
		return catalog.ErrConditionFailed
	}
	return nil
}

func (r *reservations) find(ctx context.Context, filter bson.M) ([]model.Reservation, error) {
	cur, err := r.coll().Find(ctx, filter, ascByID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Reservation
	for cur.Next(ctx) {
		var doc reservationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, reservationFromDoc(doc))
	}
	return out, cur.Err()
}

func reservationFromDoc(d reservationDoc) model.Reservation {
	return model.Reservation{ID: d.ID, PersonID: d.PersonID, BookID: d.BookID,
		CreatedOn: d.CreatedOn, Status: model.ReservationStatus(d.Status)}
}

// --- loans ---

type loans struct{ s *Store }

func (r *loans) coll() *mongo.Collection { return r.s.db.Collection("loans") }

func (r *loans) Insert(ctx context.Context, l *model.Loan) error {
	id, err := r.s.nextID(ctx, "loans")
	if err != nil {
		return err
	}
	doc := loanDoc{ID: id, CopyID: l.CopyID, BookID: l.BookID, PersonID: l.PersonID,
		ReservationID: l.ReservationID, LoanedOn: l.LoanedOn, DueOn: l.DueOn}
	if _, err := r.coll().InsertOne(ctx, doc); err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (r *loans) ByID(ctx context.Context, id int64) (*model.Loan, error) {
	var doc loanDoc
	if err := r.coll().FindOne(ctx, findByID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		return nil, err
	}
	l := loanFromDoc(doc)
	return &l, nil
}

func (r *loans) Open(ctx context.Context) ([]model.Loan, error) {
	return r.find(ctx, bson.M{"returned_on": nil})
}

func (r *loans) OpenByBook(ctx context.Context, bookID int64) ([]model.Loan, error) {
	return r.find(ctx, bson.M{"book_id": bookID, "returned_on": nil})
}

func (r *loans) ByPerson(ctx context.Context, personID int64) ([]model.Loan, error) {
	return r.find(ctx, bson.M{"person_id": personID})
}

func (r *loans) Close(ctx context.Context, id int64, returnedOn time.Time) error {
	res, err := r.coll().UpdateOne(ctx,
		bson.M{"_id": id, "returned_on": nil},
		bson.M{"$set": bson.M{"returned_on": returnedOn}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
		return catalog.ErrConditionFailed
	}
	return nil
}

func (r *loans) find(ctx context.Context, filter bson.M) ([]model.Loan, error) {
	cur, err := r.coll().Find(ctx, filter, ascByID)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []model.Loan
	for cur.Next(ctx) {
		var doc loanDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, loanFromDoc(doc))
	}
	return out, cur.Err()
}

func loanFromDoc(d loanDoc) model.Loan {
	return model.Loan{ID: d.ID, CopyID: d.CopyID, BookID: d.BookID, PersonID: d.PersonID,
		ReservationID: d.ReservationID, LoanedOn: d.LoanedOn, DueOn: d.DueOn, ReturnedOn: d.ReturnedOn}
}
