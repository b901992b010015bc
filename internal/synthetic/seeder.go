package synthetic

import (
	"context"
	"errors"
	"fmt"

	"github.com/bookstore/services/comics/internal/identity"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNotEnoughBooks = errors.New("not enough books in catalog")

// Table names used when reconciling generated keys.
const (
	TableUsers     = "users"
	TableAddresses = "addresses"
	TableOrders    = "orders"
)

// Sink is the store synthetic data is written to. Batch inserts return the
// identities the store assigned, or nil when unknown. Writes accumulate in a
// unit of work until Commit or Rollback.
type Sink interface {
	// ClearTestData empties the synthetic tables and restarts their
	// identity columns. Catalog tables are left alone.
	ClearTestData(ctx context.Context) error
	CountBooks(ctx context.Context) (int64, error)
	UpdateBookPrice(ctx context.Context, bookID int64, price decimal.Decimal) error
	InsertUsers(ctx context.Context, users []User) ([]int64, error)
	InsertAddresses(ctx context.Context, addresses []Address) ([]int64, error)
	InsertUserAddresses(ctx context.Context, rows []UserAddress) error
	InsertOrders(ctx context.Context, orders []Order) ([]int64, error)
	InsertBookOrders(ctx context.Context, rows []BookOrder) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Seeder replaces the synthetic data of a store with a generated batch.
type Seeder struct {
	sink Sink
	gen  *Generator
	log  *zap.Logger
}

func NewSeeder(sink Sink, gen *Generator, log *zap.Logger) *Seeder {
	return &Seeder{sink: sink, gen: gen, log: log}
}

// Seed clears previous synthetic data, reprices the first p.Orders() books
// and writes a fresh batch, all in one unit of work.
func (s *Seeder) Seed(ctx context.Context, p Params) (*Graph, error) {
	g, err := s.gen.Generate(p)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, g); err != nil {
		if rbErr := s.sink.Rollback(ctx); rbErr != nil {
			s.log.Warn("Rollback failed", zap.Error(rbErr))
		}
		return nil, err
	}

	s.log.Info("Test data generated",
		zap.Int("users", len(g.Users)),
		zap.Int("addresses", len(g.Addresses)),
		zap.Int("orders", len(g.Orders)),
		zap.Int("book_orders", len(g.BookOrders)),
		zap.String("ownership", string(p.Ownership)),
	)
	return g, nil
}

func (s *Seeder) write(ctx context.Context, g *Graph) error {
	if err := s.sink.ClearTestData(ctx); err != nil {
		return fmt.Errorf("clear test data: %w", err)
	}

	books, err := s.sink.CountBooks(ctx)
	if err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	if need := int64(g.Params.Orders()); books < need {
		return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughBooks, need, books)
	}

	for _, bp := range g.Prices {
		if err := s.sink.UpdateBookPrice(ctx, bp.BookID, bp.Price); err != nil {
			return fmt.Errorf("update price of book %d: %w", bp.BookID, err)
		}
	}

	ids, err := s.sink.InsertUsers(ctx, g.Users)
	if err != nil {
		return fmt.Errorf("insert users: %w", err)
	}
	if err := identity.ReconcileBatch(TableUsers, userIDs(g.Users), ids); err != nil {
		return err
	}

	ids, err = s.sink.InsertAddresses(ctx, g.Addresses)
	if err != nil {
		return fmt.Errorf("insert addresses: %w", err)
	}
	if err := identity.ReconcileBatch(TableAddresses, addressIDs(g.Addresses), ids); err != nil {
		return err
	}

	if err := s.sink.InsertUserAddresses(ctx, g.UserAddresses); err != nil {
		return fmt.Errorf("insert user addresses: %w", err)
	}

	ids, err = s.sink.InsertOrders(ctx, g.Orders)
	if err != nil {
		return fmt.Errorf("insert orders: %w", err)
	}
	if err := identity.ReconcileBatch(TableOrders, orderIDs(g.Orders), ids); err != nil {
		return err
	}

	if err := s.sink.InsertBookOrders(ctx, g.BookOrders); err != nil {
		return fmt.Errorf("insert book orders: %w", err)
	}

	if err := s.sink.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Clear removes all synthetic data.
func (s *Seeder) Clear(ctx context.Context) error {
	if err := s.sink.ClearTestData(ctx); err != nil {
		if rbErr := s.sink.Rollback(ctx); rbErr != nil {
			s.log.Warn("Rollback failed", zap.Error(rbErr))
		}
		return fmt.Errorf("clear test data: %w", err)
	}
	if err := s.sink.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Info("Test data cleared")
	return nil
}

func userIDs(users []User) []int64 {
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func addressIDs(addresses []Address) []int64 {
	ids := make([]int64, len(addresses))
	for i, a := range addresses {
		ids[i] = a.ID
	}
	return ids
}

func orderIDs(orders []Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
