package repo

import (
	"context"
	"errors"

	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/loader"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrBookNotFound is returned when a book is not found
	ErrBookNotFound = errors.New("book not found")
)

// CatalogRepository writes the ingested catalog and runs maintenance updates
type CatalogRepository struct {
	unitOfWork
	log *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		unitOfWork: unitOfWork{db: database},
		log:        logger,
	}
}

// InsertAuthors inserts authors in batches and returns their ids in order
func (r *CatalogRepository) InsertAuthors(ctx context.Context, authors []catalog.Author) ([]int64, error) {
	if len(authors) == 0 {
		return nil, nil
	}
	rows := make([]db.Author, len(authors))
	for i, a := range authors {
		rows[i] = db.Author{Name: a.Name, Nationality: a.Nationality, Gender: a.Gender}
	}

	tx, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(&rows, batchSize).Error; err != nil {
		r.log.Error("Failed to insert authors", zap.Int("count", len(rows)), zap.Error(err))
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

// InsertPublisher inserts a publisher and returns its id
func (r *CatalogRepository) InsertPublisher(ctx context.Context, p catalog.Publisher) (int64, error) {
	row := db.Publisher{Name: p.Name, PhoneNumber: p.PhoneNumber, AddressID: p.AddressID}
	if err := r.create(ctx, &row); err != nil {
		r.log.Error("Failed to insert publisher", zap.String("name", p.Name), zap.Error(err))
		return 0, err
	}
	return row.ID, nil
}

// InsertBook inserts a book and returns its id
func (r *CatalogRepository) InsertBook(ctx context.Context, b catalog.Book) (int64, error) {
	row := db.Book{
		ISBN:            b.ISBN,
		Title:           b.Title,
		PublicationYear: b.PublicationYear,
		Description:     b.Description,
		CurrentPrice:    b.CurrentPrice,
		PublisherID:     b.PublisherID,
	}
	if err := r.create(ctx, &row); err != nil {
		r.log.Error("Failed to insert book", zap.String("book_id", b.ExternalID), zap.Error(err))
		return 0, err
	}
	return row.ID, nil
}

// InsertBookAuthor links a book to an author
func (r *CatalogRepository) InsertBookAuthor(ctx context.Context, rel loader.BookAuthorRow) error {
	row := db.BookAuthor{BookID: rel.BookID, AuthorID: rel.AuthorID, AuthorOrdinal: rel.Ordinal, Role: rel.Role}
	if err := r.create(ctx, &row); err != nil {
		r.log.Error("Failed to insert book author",
			zap.Int64("book_id", rel.BookID),
			zap.Int64("author_id", rel.AuthorID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// InsertReview inserts a review and returns its id
func (r *CatalogRepository) InsertReview(ctx context.Context, rv catalog.Review) (int64, error) {
	row := db.Review{Nickname: rv.Nickname, Text: rv.Text, Score: rv.Score, Created: rv.Created}
	if err := r.create(ctx, &row); err != nil {
		r.log.Error("Failed to insert review", zap.String("book_id", rv.BookExternalID), zap.Error(err))
		return 0, err
	}
	return row.ID, nil
}

// InsertBookReview links a review to its book
func (r *CatalogRepository) InsertBookReview(ctx context.Context, rel loader.BookReviewRow) error {
	row := db.BookReview{BookID: rel.BookID, ReviewID: rel.ReviewID}
	if err := r.create(ctx, &row); err != nil {
		r.log.Error("Failed to insert book review",
			zap.Int64("book_id", rel.BookID),
			zap.Int64("review_id", rel.ReviewID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// TruncateAll empties every table of the schema and restarts identities
func (r *CatalogRepository) TruncateAll(ctx context.Context) error {
	if err := r.Rollback(ctx); err != nil {
		return err
	}
	tables := tableNames(append(db.CatalogModels(), db.TestDataModels()...))
	if err := resetTables(r.db.WithContext(ctx), r.db.Dialect(), tables); err != nil {
		r.log.Error("Failed to truncate tables", zap.Error(err))
		return err
	}
	r.log.Info("Tables truncated", zap.Strings("tables", tables))
	return nil
}

// GetBook retrieves a book by id
func (r *CatalogRepository) GetBook(ctx context.Context, id int64) (*db.Book, error) {
	var book db.Book
	err := r.reader(ctx).Where("book_id = ?", id).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.Int64("book_id", id), zap.Error(err))
		return nil, err
	}
	return &book, nil
}

// BookAuthors returns the author links of a book by ordinal
func (r *CatalogRepository) BookAuthors(ctx context.Context, bookID int64) ([]db.BookAuthor, error) {
	var rows []db.BookAuthor
	err := r.reader(ctx).Where("book_id = ?", bookID).Order("author_ordinal").Find(&rows).Error
	return rows, err
}

// Stats returns row counts for every table
func (r *CatalogRepository) Stats(ctx context.Context) (map[string]int64, error) {
	models := append(db.CatalogModels(), db.TestDataModels()...)
	stats := make(map[string]int64, len(models))
	for _, m := range models {
		var n int64
		if err := r.reader(ctx).Model(m).Count(&n).Error; err != nil {
			return nil, err
		}
		stats[m.(tabler).TableName()] = n
	}
	return stats, nil
}

// MaxBookID returns the highest book id, 0 when there are none
func (r *CatalogRepository) MaxBookID(ctx context.Context) (int64, error) {
	return maxID(r.reader(ctx), &db.Book{}, "book_id")
}

// MaxPublisherID returns the highest publisher id, 0 when there are none
func (r *CatalogRepository) MaxPublisherID(ctx context.Context) (int64, error) {
	return maxID(r.reader(ctx), &db.Publisher{}, "publisher_id")
}

// MaxAddressID returns the highest address id, 0 when there are none
func (r *CatalogRepository) MaxAddressID(ctx context.Context) (int64, error) {
	return maxID(r.reader(ctx), &db.Address{}, "address_id")
}

// MaxAuthorID returns the highest author id, 0 when there are none
func (r *CatalogRepository) MaxAuthorID(ctx context.Context) (int64, error) {
	return maxID(r.reader(ctx), &db.Author{}, "author_id")
}

// UpdateBookPrice sets the current price of a book
func (r *CatalogRepository) UpdateBookPrice(ctx context.Context, bookID int64, price decimal.Decimal) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return updateBookPrice(tx, bookID, price)
}

// UpdatePublisherAddress points a publisher at an address
func (r *CatalogRepository) UpdatePublisherAddress(ctx context.Context, publisherID, addressID int64) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return tx.Model(&db.Publisher{}).Where("publisher_id = ?", publisherID).Update("address_id", addressID).Error
}

// UpdateAuthorDemographics sets an author's gender and nationality
func (r *CatalogRepository) UpdateAuthorDemographics(ctx context.Context, authorID int64, gender, nationality string) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return tx.Model(&db.Author{}).Where("author_id = ?", authorID).Updates(map[string]interface{}{
		"gender":      gender,
		"nationality": nationality,
	}).Error
}

func (r *CatalogRepository) create(ctx context.Context, value interface{}) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return tx.Omit(clause.Associations).Create(value).Error
}

func maxID(tx *gorm.DB, model interface{}, column string) (int64, error) {
	var id int64
	err := tx.Model(model).Select("COALESCE(MAX(" + column + "), 0)").Scan(&id).Error
	return id, err
}

func updateBookPrice(tx *gorm.DB, bookID int64, price decimal.Decimal) error {
	return tx.Model(&db.Book{}).Where("book_id = ?", bookID).Update("current_price", price).Error
}
