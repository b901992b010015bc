package repo

import (
	"context"
	"testing"

	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/bookstore/services/comics/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedTestData(t *testing.T) {
	database := setupTestDB(t)
	log := logger.NewLogger("test", "info")
	seedBooks(t, NewCatalogRepository(database, log), 50)

	repo := NewTestDataRepository(database, log)
	seeder := synthetic.NewSeeder(repo, synthetic.NewGenerator(synthetic.NewFaker(8)), log)
	ctx := context.Background()

	g, err := seeder.Seed(ctx, synthetic.DefaultParams())
	require.NoError(t, err)

	orders, lines, err := repo.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 50)
	require.Len(t, lines, 50)

	for _, o := range orders {
		owned, err := repo.OwnedAddresses(ctx, o.UserID)
		require.NoError(t, err)
		assert.Equal(t, g.Owned[o.UserID], owned)
		assert.Equal(t, owned[0], o.BillingAddressID)
		assert.Equal(t, owned[0], o.ShippingAddressID)
	}
	for _, l := range lines {
		assert.GreaterOrEqual(t, l.Quantity, 1)
		assert.LessOrEqual(t, l.Quantity, 4)
		assert.LessOrEqual(t, l.BookID, int64(50))
	}

	var priced int64
	require.NoError(t, database.Model(&db.Book{}).Where("current_price IS NOT NULL").Count(&priced).Error)
	assert.Equal(t, int64(50), priced)
}

func TestSeedTwiceRestartsIdentities(t *testing.T) {
	database := setupTestDB(t)
	log := logger.NewLogger("test", "info")
	seedBooks(t, NewCatalogRepository(database, log), 6)

	repo := NewTestDataRepository(database, log)
	seeder := synthetic.NewSeeder(repo, synthetic.NewGenerator(synthetic.NewFaker(0)), log)
	ctx := context.Background()
	p := synthetic.Params{Users: 2, OrdersPerUser: 3, AddressesPerUser: 2, Ownership: synthetic.OwnershipSliding}

	_, err := seeder.Seed(ctx, p)
	require.NoError(t, err)
	_, err = seeder.Seed(ctx, p)
	require.NoError(t, err)

	var users, addresses int64
	require.NoError(t, database.Model(&db.User{}).Count(&users).Error)
	require.NoError(t, database.Model(&db.Address{}).Count(&addresses).Error)
	assert.Equal(t, int64(2), users)
	assert.Equal(t, int64(4), addresses)

	owned, err := repo.OwnedAddresses(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, owned)
}

func TestSeedNotEnoughBooks(t *testing.T) {
	database := setupTestDB(t)
	log := logger.NewLogger("test", "info")
	seedBooks(t, NewCatalogRepository(database, log), 3)

	repo := NewTestDataRepository(database, log)
	seeder := synthetic.NewSeeder(repo, synthetic.NewGenerator(synthetic.NewFaker(1)), log)

	_, err := seeder.Seed(context.Background(), synthetic.DefaultParams())
	assert.ErrorIs(t, err, synthetic.ErrNotEnoughBooks)

	var users int64
	require.NoError(t, database.Model(&db.User{}).Count(&users).Error)
	assert.Equal(t, int64(0), users)
}

func TestClearTestDataKeepsCatalog(t *testing.T) {
	database := setupTestDB(t)
	log := logger.NewLogger("test", "info")
	catalogRepo := NewCatalogRepository(database, log)
	seedBooks(t, catalogRepo, 10)

	repo := NewTestDataRepository(database, log)
	seeder := synthetic.NewSeeder(repo, synthetic.NewGenerator(synthetic.NewFaker(2)), log)
	ctx := context.Background()

	_, err := seeder.Seed(ctx, synthetic.Params{Users: 2, OrdersPerUser: 5, AddressesPerUser: 1, Ownership: synthetic.OwnershipDisjoint})
	require.NoError(t, err)
	require.NoError(t, seeder.Clear(ctx))

	stats, err := catalogRepo.Stats(ctx)
	require.NoError(t, err)
	for _, table := range []string{"users", "user_addresses", "orders", "book_orders", "addresses"} {
		assert.Equal(t, int64(0), stats[table], table)
	}
	assert.Equal(t, int64(10), stats["books"])
	assert.Equal(t, int64(10), stats["publishers"])

	// Prices set by the generator survive a clear
	book, err := catalogRepo.GetBook(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, book.CurrentPrice)
}
