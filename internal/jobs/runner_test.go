package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bookstore/services/comics/internal/config"
	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/events"
	"github.com/bookstore/services/comics/internal/metrics"
	"github.com/bookstore/services/comics/internal/repo"
	"github.com/bookstore/services/comics/internal/source"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type publishedEvent struct {
	eventType string
	runID     string
	payload   map[string]interface{}
}

type recordingNotifier struct {
	events []publishedEvent
	err    error
}

func (n *recordingNotifier) PublishRunCompleted(ctx context.Context, eventType, runID string, payload map[string]interface{}) error {
	n.events = append(n.events, publishedEvent{eventType: eventType, runID: runID, payload: payload})
	return n.err
}

func (n *recordingNotifier) IsHealthy() bool { return n.err == nil }

func (n *recordingNotifier) Close() error { return nil }

var _ events.Notifier = (*recordingNotifier)(nil)

func setupTestDB(t *testing.T) *db.DB {
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gormDB.Exec("PRAGMA foreign_keys = ON").Error)

	database := &db.DB{DB: gormDB}
	require.NoError(t, db.RunMigrations(database))
	return database
}

func writeLines(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o600))
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Load()
	cfg.Data = config.DataConfig{
		Path:        dir,
		AuthorsFile: "authors.json",
		BooksFile:   "books.json",
		ReviewsFile: "reviews.json",
	}
	cfg.TestData = config.TestDataConfig{
		Users:            1,
		OrdersPerUser:    2,
		AddressesPerUser: 1,
		Seed:             7,
		Ownership:        string(synthetic.OwnershipDisjoint),
	}

	writeLines(t, dir, "authors.json",
		`{"author_id": "a1", "name": "Jane Doe"}`,
		`{"author_id": "a2", "name": "John Roe"}`,
	)
	writeLines(t, dir, "books.json",
		`{"book_id": "b1", "isbn": "1234567890", "title": "First", "publication_year": "2001", "publisher": "Image", "authors": [{"author_id": "a1", "role": "Writer"}, {"author_id": "a2", "role": "Artist"}]}`,
		``,
		`{"book_id": "b2", "isbn": "0987654321", "title": "Second", "publisher": "Marvel", "authors": [{"author_id": "a1"}, {"author_id": "a9"}]}`,
		`{"book_id": "b3", "isbn": "123", "title": "Bad isbn"}`,
	)
	writeLines(t, dir, "reviews.json",
		`{"book_id": "b1", "rating": 5, "review_text": "Great"}`,
		`{"book_id": "b2", "rating": 3, "review_text": "Fine"}`,
		`{"book_id": "b3", "rating": 4, "review_text": "Orphan"}`,
		`{"book_id": "b1", "rating": 9, "review_text": "Out of range"}`,
	)
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config) (*Runner, *db.DB, *recordingNotifier) {
	database := setupTestDB(t)
	notifier := &recordingNotifier{}
	return NewRunner(database, cfg, metrics.NewRecorder(), notifier, zap.NewNop()), database, notifier
}

func TestIngestCatalog(t *testing.T) {
	r, database, notifier := newRunner(t, testConfig(t))
	ctx := context.Background()

	sum, err := r.IngestCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Authors)
	assert.Equal(t, 2, sum.Books)
	assert.Equal(t, 2, sum.Publishers)
	assert.Equal(t, 3, sum.BookAuthors)
	assert.Equal(t, 2, sum.Reviews)
	assert.Equal(t, 2, sum.BookReviews)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, events.EventTypeCatalogIngested, notifier.events[0].eventType)
	assert.NotEmpty(t, notifier.events[0].runID)
	assert.Equal(t, 2, notifier.events[0].payload["books"])

	catalogRepo := repo.NewCatalogRepository(database, zap.NewNop())
	book, err := catalogRepo.GetBook(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "0987654321", book.ISBN)
	require.NotNil(t, book.PublisherID)
	assert.Equal(t, int64(2), *book.PublisherID)

	// A second ingestion replaces the catalog and restarts identities
	_, err = r.IngestCatalog(ctx)
	require.NoError(t, err)
	stats, err := catalogRepo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["books"])
	assert.Equal(t, int64(2), stats["authors"])
	book, err = catalogRepo.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", book.ISBN)

	require.Len(t, notifier.events, 2)
	assert.NotEqual(t, notifier.events[0].runID, notifier.events[1].runID)
}

func TestIngestCatalogMissingFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.ReviewsFile = "missing.json"
	r, _, notifier := newRunner(t, cfg)

	_, err := r.IngestCatalog(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, notifier.events)
}

func TestIngestCatalogMalformedInput(t *testing.T) {
	cfg := testConfig(t)
	writeLines(t, cfg.Data.Path, "reviews.json", `{"book_id": "b1", "rating": 5, "review_text": "Great"}`, `{not json`)
	r, database, _ := newRunner(t, cfg)

	_, err := r.IngestCatalog(context.Background())
	require.Error(t, err)

	var books int64
	require.NoError(t, database.Model(&db.Book{}).Count(&books).Error)
	assert.Equal(t, int64(0), books)
}

func TestIngestCatalogInvalidUTF8WritesNothing(t *testing.T) {
	cfg := testConfig(t)
	writeLines(t, cfg.Data.Path, "books.json",
		`{"book_id": "b1", "isbn": "1234567890", "title": "First", "publisher": "Image"}`,
		"{\"book_id\": \"b2\", \"isbn\": \"0987654321\", \"title\": \"bad\xff\xfeutf\"}",
	)
	r, database, notifier := newRunner(t, cfg)

	_, err := r.IngestCatalog(context.Background())
	assert.ErrorIs(t, err, source.ErrInvalidUTF8)
	assert.Empty(t, notifier.events)

	var books, publishers int64
	require.NoError(t, database.Model(&db.Book{}).Count(&books).Error)
	require.NoError(t, database.Model(&db.Publisher{}).Count(&publishers).Error)
	assert.Zero(t, books)
	assert.Zero(t, publishers)
}

func TestPublishFailureDoesNotFailRun(t *testing.T) {
	r, _, notifier := newRunner(t, testConfig(t))
	notifier.err = errors.New("broker down")

	_, err := r.IngestCatalog(context.Background())
	assert.NoError(t, err)
	assert.Len(t, notifier.events, 1)
}

func TestTestDataLifecycle(t *testing.T) {
	r, database, notifier := newRunner(t, testConfig(t))
	ctx := context.Background()

	_, err := r.IngestCatalog(ctx)
	require.NoError(t, err)

	g, err := r.GenerateTestData(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Users, 1)
	assert.Len(t, g.Orders, 2)

	sum, err := r.MaintainCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sum.BooksPriced)
	assert.Equal(t, int64(2), sum.PublishersAddressed)
	assert.Equal(t, int64(2), sum.AuthorsUpdated)

	var author db.Author
	require.NoError(t, database.First(&author, 1).Error)
	require.NotNil(t, author.Gender)
	assert.Contains(t, []string{"Male", "Female"}, *author.Gender)

	require.NoError(t, r.ClearTestData(ctx))

	var users, orders, books int64
	require.NoError(t, database.Model(&db.User{}).Count(&users).Error)
	require.NoError(t, database.Model(&db.Order{}).Count(&orders).Error)
	require.NoError(t, database.Model(&db.Book{}).Count(&books).Error)
	assert.Zero(t, users)
	assert.Zero(t, orders)
	assert.Equal(t, int64(2), books)

	types := make([]string, len(notifier.events))
	for i, e := range notifier.events {
		types[i] = e.eventType
	}
	assert.Equal(t, []string{
		events.EventTypeCatalogIngested,
		events.EventTypeTestDataGenerated,
		events.EventTypeCatalogMaintained,
		events.EventTypeTestDataCleared,
	}, types)
}

func TestGenerateTestDataNotEnoughBooks(t *testing.T) {
	cfg := testConfig(t)
	cfg.TestData.OrdersPerUser = 5
	r, _, notifier := newRunner(t, cfg)
	ctx := context.Background()

	_, err := r.IngestCatalog(ctx)
	require.NoError(t, err)

	_, err = r.GenerateTestData(ctx)
	assert.ErrorIs(t, err, synthetic.ErrNotEnoughBooks)
	assert.Len(t, notifier.events, 1)
}

func TestRunDispatch(t *testing.T) {
	r, _, notifier := newRunner(t, testConfig(t))

	require.NoError(t, r.Run(context.Background(), ModeClearTestData))
	require.Len(t, notifier.events, 1)
	assert.Equal(t, events.EventTypeTestDataCleared, notifier.events[0].eventType)

	assert.Error(t, r.Run(context.Background(), Mode("export")))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Ingest-Catalog")
	require.NoError(t, err)
	assert.Equal(t, ModeIngestCatalog, m)

	_, err = ParseMode("export")
	assert.ErrorContains(t, err, "generate-test-data")
}
