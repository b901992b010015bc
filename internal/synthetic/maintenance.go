package synthetic

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoAddresses = errors.New("no addresses to assign")

// MaintenanceSink is the store the catalog maintenance passes update.
type MaintenanceSink interface {
	MaxBookID(ctx context.Context) (int64, error)
	MaxPublisherID(ctx context.Context) (int64, error)
	MaxAddressID(ctx context.Context) (int64, error)
	MaxAuthorID(ctx context.Context) (int64, error)
	UpdateBookPrice(ctx context.Context, bookID int64, price decimal.Decimal) error
	UpdatePublisherAddress(ctx context.Context, publisherID, addressID int64) error
	UpdateAuthorDemographics(ctx context.Context, authorID int64, gender, nationality string) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// MaintenanceSummary counts the rows each pass touched.
type MaintenanceSummary struct {
	BooksPriced         int64
	PublishersAddressed int64
	AuthorsUpdated      int64
}

// Maintainer fills catalog columns the source data does not carry.
type Maintainer struct {
	sink MaintenanceSink
	fake *Faker
	log  *zap.Logger
}

func NewMaintainer(sink MaintenanceSink, fake *Faker, log *zap.Logger) *Maintainer {
	return &Maintainer{sink: sink, fake: fake, log: log}
}

// Run executes every maintenance pass, committing after each.
func (m *Maintainer) Run(ctx context.Context) (MaintenanceSummary, error) {
	var sum MaintenanceSummary
	var err error

	if sum.BooksPriced, err = m.AssignBookPrices(ctx); err != nil {
		return sum, err
	}
	if sum.PublishersAddressed, err = m.AssignPublisherAddresses(ctx); err != nil {
		return sum, err
	}
	if sum.AuthorsUpdated, err = m.AssignAuthorDemographics(ctx); err != nil {
		return sum, err
	}

	m.log.Info("Catalog maintained",
		zap.Int64("books_priced", sum.BooksPriced),
		zap.Int64("publishers_addressed", sum.PublishersAddressed),
		zap.Int64("authors_updated", sum.AuthorsUpdated),
	)
	return sum, nil
}

// AssignBookPrices gives every book id up to the current maximum a random
// price in [0.00, 99.99].
func (m *Maintainer) AssignBookPrices(ctx context.Context) (int64, error) {
	maxID, err := m.sink.MaxBookID(ctx)
	if err != nil {
		return 0, fmt.Errorf("max book id: %w", err)
	}
	return m.pass(ctx, "book prices", maxID, func(id int64) error {
		return m.sink.UpdateBookPrice(ctx, id, m.fake.Money())
	})
}

// AssignPublisherAddresses gives every publisher a uniformly random existing
// address.
func (m *Maintainer) AssignPublisherAddresses(ctx context.Context) (int64, error) {
	maxPublisher, err := m.sink.MaxPublisherID(ctx)
	if err != nil {
		return 0, fmt.Errorf("max publisher id: %w", err)
	}
	maxAddress, err := m.sink.MaxAddressID(ctx)
	if err != nil {
		return 0, fmt.Errorf("max address id: %w", err)
	}
	if maxPublisher > 0 && maxAddress == 0 {
		return 0, ErrNoAddresses
	}
	return m.pass(ctx, "publisher addresses", maxPublisher, func(id int64) error {
		return m.sink.UpdatePublisherAddress(ctx, id, int64(m.fake.IntRange(1, int(maxAddress))))
	})
}

// AssignAuthorDemographics gives every author a random gender and
// nationality.
func (m *Maintainer) AssignAuthorDemographics(ctx context.Context) (int64, error) {
	maxID, err := m.sink.MaxAuthorID(ctx)
	if err != nil {
		return 0, fmt.Errorf("max author id: %w", err)
	}
	return m.pass(ctx, "author demographics", maxID, func(id int64) error {
		return m.sink.UpdateAuthorDemographics(ctx, id, m.fake.Gender(), m.fake.Nationality())
	})
}

func (m *Maintainer) pass(ctx context.Context, name string, maxID int64, update func(int64) error) (int64, error) {
	for id := int64(1); id <= maxID; id++ {
		if err := update(id); err != nil {
			if rbErr := m.sink.Rollback(ctx); rbErr != nil {
				m.log.Warn("Rollback failed", zap.Error(rbErr))
			}
			return 0, fmt.Errorf("%s: id %d: %w", name, id, err)
		}
	}
	if err := m.sink.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", name, err)
	}
	m.log.Debug("Maintenance pass done", zap.String("pass", name), zap.Int64("rows", maxID))
	return maxID, nil
}
