// Package loader writes a catalog graph to a relational sink in foreign-key
// order, correlating external ids with surrogate keys as it goes.
package loader

import (
	"context"

	"github.com/bookstore/services/comics/internal/catalog"
)

// BookAuthorRow is a book_authors row with resolved surrogate keys.
type BookAuthorRow struct {
	BookID   int64
	AuthorID int64
	Ordinal  int
	Role     *string
}

// BookReviewRow is a book_reviews row.
type BookReviewRow struct {
	BookID   int64
	ReviewID int64
}

// Sink is the relational store the loader writes to. Insert methods that
// return ids report the identity the store assigned, or 0 when unknown.
// Writes accumulate in a unit of work until Commit or Rollback.
type Sink interface {
	InsertAuthors(ctx context.Context, authors []catalog.Author) ([]int64, error)
	InsertPublisher(ctx context.Context, publisher catalog.Publisher) (int64, error)
	InsertBook(ctx context.Context, book catalog.Book) (int64, error)
	InsertBookAuthor(ctx context.Context, row BookAuthorRow) error
	InsertReview(ctx context.Context, review catalog.Review) (int64, error)
	InsertBookReview(ctx context.Context, row BookReviewRow) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	// TruncateAll empties every table and restarts identity columns.
	TruncateAll(ctx context.Context) error
}
