package catalog

import (
	"errors"
	"io"

	"github.com/bookstore/services/comics/internal/source"
)

// Stream yields decoded records and returns io.EOF when exhausted.
type Stream interface {
	Next() (source.Record, error)
}

// Builder accumulates validated records into a Graph. Records are accepted in
// whatever order they are added: a review added before its book is rejected.
type Builder struct {
	authors *OrderedMap[string, Author]
	books   *OrderedMap[string, *Bundle]
	stats   Stats
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		authors: NewOrderedMap[string, Author](),
		books:   NewOrderedMap[string, *Bundle](),
	}
}

// AddAuthor validates and stores an author record.
func (b *Builder) AddAuthor(r source.Record) bool {
	b.stats.Authors.Read++
	author, ok := ValidateAuthor(r)
	if !ok {
		return false
	}
	b.authors.Set(author.ExternalID, author)
	b.stats.Authors.Accepted++
	return true
}

// AddBook validates and stores a book record against the authors seen so far.
func (b *Builder) AddBook(r source.Record) bool {
	b.stats.Books.Read++
	bundle, ok := ValidateBook(r, b.authors.Has)
	if !ok {
		return false
	}
	b.stats.DroppedAuthorRefs += len(r.Records("authors")) - bundle.Authors.Len()
	b.books.Set(bundle.Book.ExternalID, bundle)
	b.stats.Books.Accepted++
	return true
}

// AddReview validates a review record and attaches it to its book.
func (b *Builder) AddReview(r source.Record) bool {
	b.stats.Reviews.Read++
	review, ok := ValidateReview(r, b.books.Has)
	if !ok {
		return false
	}
	bundle, _ := b.books.Get(review.BookExternalID)
	bundle.Reviews = append(bundle.Reviews, review)
	b.stats.Reviews.Accepted++
	return true
}

// Graph returns the graph built so far.
func (b *Builder) Graph() *Graph {
	return &Graph{Authors: b.authors, Books: b.books, Stats: b.stats}
}

// Build drains authors, then books, then reviews. A stream error other than
// io.EOF aborts the build.
func Build(authors, books, reviews Stream) (*Graph, error) {
	b := NewBuilder()
	if err := drain(authors, b.AddAuthor); err != nil {
		return nil, err
	}
	if err := drain(books, b.AddBook); err != nil {
		return nil, err
	}
	if err := drain(reviews, b.AddReview); err != nil {
		return nil, err
	}
	return b.Graph(), nil
}

func drain(s Stream, add func(source.Record) bool) error {
	for {
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		add(rec)
	}
}
