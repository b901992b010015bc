package loader

import (
	"context"
	"fmt"

	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/identity"
	"go.uber.org/zap"
)

const progressEvery = 1000

// Summary counts the rows committed by a load.
type Summary struct {
	Authors     int
	Publishers  int
	Books       int
	BookAuthors int
	Reviews     int
	BookReviews int
}

func (s *Summary) add(o Summary) {
	s.Authors += o.Authors
	s.Publishers += o.Publishers
	s.Books += o.Books
	s.BookAuthors += o.BookAuthors
	s.Reviews += o.Reviews
	s.BookReviews += o.BookReviews
}

// FlushError reports the write that aborted a load.
type FlushError struct {
	// Entity is the kind of row being written, e.g. "publisher".
	Entity string
	// BookID is the external id of the bundle, empty for the author batch.
	BookID string
	// SurrogateID is the predicted key of the row, 0 when not applicable.
	SurrogateID int64
	Err         error
}

func (e *FlushError) Error() string {
	if e.BookID == "" {
		return fmt.Sprintf("flush %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("flush %s (book %s, id %d): %v", e.Entity, e.BookID, e.SurrogateID, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// Loader flushes a catalog graph into a Sink.
type Loader struct {
	sink Sink
	log  *zap.Logger
}

// New creates a loader writing to sink.
func New(sink Sink, log *zap.Logger) *Loader {
	return &Loader{sink: sink, log: log}
}

// Replace truncates the store and loads g into it.
func (l *Loader) Replace(ctx context.Context, g *catalog.Graph) (Summary, error) {
	if err := l.sink.TruncateAll(ctx); err != nil {
		return Summary{}, fmt.Errorf("truncate tables: %w", err)
	}
	return l.Load(ctx, g)
}

// Load writes g assuming empty tables with identity columns at their
// baseline. Authors are committed first, then one unit of work per book.
// On failure the open unit of work is rolled back; committed bundles stay.
func (l *Loader) Load(ctx context.Context, g *catalog.Graph) (Summary, error) {
	var sum Summary
	corr := NewCorrelator()

	n, err := l.flushAuthors(ctx, g.Authors, corr)
	if err != nil {
		l.rollback(ctx)
		return sum, err
	}
	sum.Authors = n
	l.log.Info("Authors flushed", zap.Int("count", n))

	done := 0
	for externalID, bundle := range g.Books.All() {
		written, err := l.flushBundle(ctx, externalID, bundle, corr)
		if err != nil {
			l.rollback(ctx)
			l.log.Error("Flush aborted",
				zap.String("book_id", externalID),
				zap.Int("bundles_committed", done),
				zap.Error(err),
			)
			return sum, err
		}
		sum.add(written)
		done++
		if done%progressEvery == 0 {
			l.log.Debug("Flush progress", zap.Int("bundles", done), zap.Int("total", g.Books.Len()))
		}
	}

	l.log.Info("Catalog flushed",
		zap.Int("authors", sum.Authors),
		zap.Int("books", sum.Books),
		zap.Int("publishers", sum.Publishers),
		zap.Int("book_authors", sum.BookAuthors),
		zap.Int("reviews", sum.Reviews),
	)
	return sum, nil
}

func (l *Loader) flushAuthors(ctx context.Context, authors *catalog.OrderedMap[string, catalog.Author], corr *Correlator) (int, error) {
	predicted := corr.AssignAuthors(authors)
	if len(predicted) == 0 {
		return 0, nil
	}
	reported, err := l.sink.InsertAuthors(ctx, authors.Values())
	if err != nil {
		return 0, &FlushError{Entity: "author", Err: err}
	}
	if err := identity.ReconcileBatch(TableAuthors, predicted, reported); err != nil {
		return 0, &FlushError{Entity: "author", Err: err}
	}
	if err := l.sink.Commit(ctx); err != nil {
		return 0, &FlushError{Entity: "author", Err: fmt.Errorf("commit: %w", err)}
	}
	return len(predicted), nil
}

func (l *Loader) flushBundle(ctx context.Context, externalID string, bundle *catalog.Bundle, corr *Correlator) (Summary, error) {
	var written Summary
	fail := func(entity string, id int64, err error) (Summary, error) {
		return Summary{}, &FlushError{Entity: entity, BookID: externalID, SurrogateID: id, Err: err}
	}

	book := bundle.Book
	bookID := corr.NextBook()

	if bundle.Publisher != nil {
		predicted := corr.NextPublisher()
		reported, err := l.sink.InsertPublisher(ctx, *bundle.Publisher)
		if err != nil {
			return fail("publisher", predicted, err)
		}
		publisherID, err := identity.Reconcile(TablePublishers, predicted, reported)
		if err != nil {
			return fail("publisher", predicted, err)
		}
		book.PublisherID = &publisherID
		written.Publishers++
	}

	reported, err := l.sink.InsertBook(ctx, book)
	if err != nil {
		return fail("book", bookID, err)
	}
	if _, err := identity.Reconcile(TableBooks, bookID, reported); err != nil {
		return fail("book", bookID, err)
	}
	written.Books++

	for authorExternalID, ba := range bundle.Authors.All() {
		authorID, ok := corr.AuthorID(authorExternalID)
		if !ok {
			return fail("book_author", bookID, fmt.Errorf("author %q has no surrogate id", authorExternalID))
		}
		row := BookAuthorRow{BookID: bookID, AuthorID: authorID, Ordinal: ba.Ordinal, Role: ba.Role}
		if err := l.sink.InsertBookAuthor(ctx, row); err != nil {
			return fail("book_author", bookID, err)
		}
		written.BookAuthors++
	}

	for _, review := range bundle.Reviews {
		predicted := corr.NextReview()
		reported, err := l.sink.InsertReview(ctx, review)
		if err != nil {
			return fail("review", predicted, err)
		}
		reviewID, err := identity.Reconcile(TableReviews, predicted, reported)
		if err != nil {
			return fail("review", predicted, err)
		}
		if err := l.sink.InsertBookReview(ctx, BookReviewRow{BookID: bookID, ReviewID: reviewID}); err != nil {
			return fail("book_review", reviewID, err)
		}
		written.Reviews++
		written.BookReviews++
	}

	if err := l.sink.Commit(ctx); err != nil {
		return fail("commit", bookID, err)
	}
	return written, nil
}

func (l *Loader) rollback(ctx context.Context) {
	if err := l.sink.Rollback(ctx); err != nil {
		l.log.Warn("Rollback failed", zap.Error(err))
	}
}
