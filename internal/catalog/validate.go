package catalog

import (
	"time"
	"unicode/utf8"

	"github.com/bookstore/services/comics/internal/source"
)

const (
	isbnLength     = 10
	maxTitleLength = 200
	yearLength     = 4
	minScore       = 1
	maxScore       = 5
)

// Layouts accepted for a review's date_added; anything else becomes null.
var reviewDateLayouts = []string{
	"Mon Jan 02 15:04:05 -0700 2006",
	time.RFC3339,
}

// ValidateAuthor accepts an author record with a non-empty author_id and name.
func ValidateAuthor(r source.Record) (Author, bool) {
	id, ok := r.NonEmpty("author_id")
	if !ok {
		return Author{}, false
	}
	name, ok := r.NonEmpty("name")
	if !ok {
		return Author{}, false
	}
	return Author{ExternalID: id, Name: name}, true
}

// ValidateBook accepts a book record with a non-empty book_id and a 10
// character isbn. Author entries naming an author for which knownAuthor is
// false are dropped from the bundle.
func ValidateBook(r source.Record, knownAuthor func(string) bool) (*Bundle, bool) {
	id, ok := r.NonEmpty("book_id")
	if !ok {
		return nil, false
	}
	isbn, ok := r.String("isbn")
	if !ok || utf8.RuneCountInString(isbn) != isbnLength {
		return nil, false
	}

	book := Book{
		ExternalID:  id,
		ISBN:        isbn,
		Description: r.Optional("description"),
	}
	if title, ok := r.String("title"); ok && utf8.RuneCountInString(title) <= maxTitleLength {
		book.Title = &title
	}
	if year, ok := r.String("publication_year"); ok && utf8.RuneCountInString(year) == yearLength {
		book.PublicationYear = &year
	}

	bundle := &Bundle{
		Book:    book,
		Authors: NewOrderedMap[string, BookAuthor](),
	}
	if name, ok := r.NonEmpty("publisher"); ok {
		bundle.Publisher = &Publisher{Name: name}
	}

	for _, entry := range r.Records("authors") {
		authorID, ok := entry.NonEmpty("author_id")
		if !ok || !knownAuthor(authorID) || bundle.Authors.Has(authorID) {
			continue
		}
		bundle.Authors.Set(authorID, BookAuthor{
			AuthorExternalID: authorID,
			Ordinal:          bundle.Authors.Len() + 1,
			Role:             entry.Optional("role"),
		})
	}
	return bundle, true
}

// ValidateReview accepts a review with non-empty text, an integral rating in
// 1..5 and a book_id for which knownBook is true.
func ValidateReview(r source.Record, knownBook func(string) bool) (Review, bool) {
	text, ok := r.NonEmpty("review_text")
	if !ok {
		return Review{}, false
	}
	score, ok := r.Int("rating")
	if !ok || score < minScore || score > maxScore {
		return Review{}, false
	}
	bookID, ok := r.NonEmpty("book_id")
	if !ok || !knownBook(bookID) {
		return Review{}, false
	}
	return Review{
		BookExternalID: bookID,
		Text:           text,
		Score:          int(score),
		Created:        parseReviewDate(r.Optional("date_added")),
	}, true
}

func parseReviewDate(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t
		}
	}
	return nil
}
