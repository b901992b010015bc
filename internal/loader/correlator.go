package loader

import (
	"github.com/bookstore/services/comics/internal/catalog"
	"github.com/bookstore/services/comics/internal/identity"
)

// Table names used by the correlator's sequences.
const (
	TableAuthors    = "authors"
	TablePublishers = "publishers"
	TableBooks      = "books"
	TableReviews    = "reviews"
)

// Correlator predicts the surrogate keys of a run against freshly truncated
// tables and remembers the key of every author.
type Correlator struct {
	authors    map[string]int64
	authorSeq  *identity.Sequence
	publishers *identity.Sequence
	books      *identity.Sequence
	reviews    *identity.Sequence
}

// NewCorrelator returns a correlator with every sequence at its baseline.
func NewCorrelator() *Correlator {
	return &Correlator{
		authors:    make(map[string]int64),
		authorSeq:  identity.NewSequence(TableAuthors),
		publishers: identity.NewSequence(TablePublishers),
		books:      identity.NewSequence(TableBooks),
		reviews:    identity.NewSequence(TableReviews),
	}
}

// AssignAuthors gives each author the next key in iteration order and
// returns the predicted keys in the same order.
func (c *Correlator) AssignAuthors(authors *catalog.OrderedMap[string, catalog.Author]) []int64 {
	ids := make([]int64, 0, authors.Len())
	for externalID := range authors.All() {
		id := c.authorSeq.Next()
		c.authors[externalID] = id
		ids = append(ids, id)
	}
	return ids
}

// AuthorID returns the surrogate key of an author external id.
func (c *Correlator) AuthorID(externalID string) (int64, bool) {
	id, ok := c.authors[externalID]
	return id, ok
}

// NextPublisher returns the key the next publisher row will receive.
func (c *Correlator) NextPublisher() int64 { return c.publishers.Next() }

// NextBook returns the key the next book row will receive.
func (c *Correlator) NextBook() int64 { return c.books.Next() }

// NextReview returns the key the next review row will receive.
func (c *Correlator) NextReview() int64 { return c.reviews.Next() }
