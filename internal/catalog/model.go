// Package catalog validates raw catalog records and assembles them into an
// ordered, referentially consistent entity graph.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Author is a validated author keyed by its external id.
type Author struct {
	ExternalID  string
	Name        string
	Nationality *string
	Gender      *string
}

// Publisher belongs to exactly one book bundle; two books naming the same
// publisher produce two publisher rows.
type Publisher struct {
	Name        string
	PhoneNumber *string
	AddressID   *int64
}

// Book is a validated book. PublisherID is filled in during the flush.
type Book struct {
	ExternalID      string
	ISBN            string
	Title           *string
	PublicationYear *string
	Description     *string
	CurrentPrice    *decimal.Decimal
	PublisherID     *int64
}

// BookAuthor links a book to one of its known authors.
type BookAuthor struct {
	AuthorExternalID string
	// Ordinal is 1-based in order of first appearance among known authors.
	Ordinal int
	Role    *string
}

// Review is a validated review of a known book.
type Review struct {
	BookExternalID string
	Text           string
	Score          int
	Created        *time.Time
	Nickname       *string
}

// Bundle groups a book with everything written in its unit of work.
type Bundle struct {
	Book      Book
	Publisher *Publisher
	Authors   *OrderedMap[string, BookAuthor]
	Reviews   []Review
}

// Graph is the result of one ingestion build.
type Graph struct {
	Authors *OrderedMap[string, Author]
	Books   *OrderedMap[string, *Bundle]
	Stats   Stats
}

// StreamStats counts records seen and accepted on one input stream.
type StreamStats struct {
	Read     int
	Accepted int
}

// Rejected returns the number of records dropped by validation.
func (s StreamStats) Rejected() int { return s.Read - s.Accepted }

// Stats is the validation side channel of a build.
type Stats struct {
	Authors StreamStats
	Books   StreamStats
	Reviews StreamStats
	// DroppedAuthorRefs counts book author entries that did not become a
	// relation (unknown author, missing id or repeated author).
	DroppedAuthorRefs int
}
