package repo

import (
	"context"

	"github.com/bookstore/services/comics/internal/db"
	"github.com/bookstore/services/comics/internal/synthetic"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TestDataRepository writes synthetic users, addresses and orders
type TestDataRepository struct {
	unitOfWork
	log *zap.Logger
}

// NewTestDataRepository creates a new test data repository
func NewTestDataRepository(database *db.DB, logger *zap.Logger) *TestDataRepository {
	return &TestDataRepository{
		unitOfWork: unitOfWork{db: database},
		log:        logger,
	}
}

// ClearTestData empties the synthetic tables and addresses and restarts their
// identities. Publishers lose their address.
func (r *TestDataRepository) ClearTestData(ctx context.Context) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}

	if err := resetTables(tx, r.db.Dialect(), tableNames(db.TestDataModels())); err != nil {
		r.log.Error("Failed to clear test data", zap.Error(err))
		return err
	}
	if err := r.resetAddresses(tx); err != nil {
		r.log.Error("Failed to clear addresses", zap.Error(err))
		return err
	}
	return nil
}

func (r *TestDataRepository) resetAddresses(tx *gorm.DB) error {
	if err := tx.Where("1 = 1").Delete(&db.Address{}).Error; err != nil {
		return err
	}
	if r.db.Dialect() == db.DialectPostgres {
		return tx.Exec(`SELECT setval(pg_get_serial_sequence('addresses', 'address_id'), 1, false)`).Error
	}
	return tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", db.Address{}.TableName()).Error
}

// CountBooks returns the number of books in the catalog
func (r *TestDataRepository) CountBooks(ctx context.Context) (int64, error) {
	var n int64
	err := r.reader(ctx).Model(&db.Book{}).Count(&n).Error
	return n, err
}

// UpdateBookPrice sets the current price of a book
func (r *TestDataRepository) UpdateBookPrice(ctx context.Context, bookID int64, price decimal.Decimal) error {
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return updateBookPrice(tx, bookID, price)
}

// InsertUsers inserts users and returns their ids in order
func (r *TestDataRepository) InsertUsers(ctx context.Context, users []synthetic.User) ([]int64, error) {
	rows := make([]db.User, len(users))
	for i, u := range users {
		rows[i] = db.User{
			Username:    u.Username,
			Password:    u.Password,
			PhoneNumber: u.PhoneNumber,
			Email:       u.Email,
			RealName:    u.RealName,
		}
	}
	if err := r.createBatch(ctx, &rows, len(rows)); err != nil {
		r.log.Error("Failed to insert users", zap.Error(err))
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

// InsertAddresses inserts addresses and returns their ids in order
func (r *TestDataRepository) InsertAddresses(ctx context.Context, addresses []synthetic.Address) ([]int64, error) {
	rows := make([]db.Address, len(addresses))
	for i, a := range addresses {
		rows[i] = db.Address{
			AddressName:   a.StreetName,
			AddressNumber: a.StreetNumber,
			City:          a.City,
			Country:       a.Country,
			PostalCode:    a.PostalCode,
		}
	}
	if err := r.createBatch(ctx, &rows, len(rows)); err != nil {
		r.log.Error("Failed to insert addresses", zap.Error(err))
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

// InsertUserAddresses records address ownership
func (r *TestDataRepository) InsertUserAddresses(ctx context.Context, links []synthetic.UserAddress) error {
	rows := make([]db.UserAddress, len(links))
	for i, l := range links {
		rows[i] = db.UserAddress{
			UserID:     l.UserID,
			AddressID:  l.AddressID,
			IsPhysical: l.IsPhysical,
			IsShipping: l.IsShipping,
			IsBilling:  l.IsBilling,
			IsActive:   l.IsActive,
		}
	}
	if err := r.createBatch(ctx, &rows, len(rows)); err != nil {
		r.log.Error("Failed to insert user addresses", zap.Error(err))
		return err
	}
	return nil
}

// InsertOrders inserts orders and returns their ids in order
func (r *TestDataRepository) InsertOrders(ctx context.Context, orders []synthetic.Order) ([]int64, error) {
	rows := make([]db.Order, len(orders))
	for i, o := range orders {
		rows[i] = db.Order{
			UserID:            o.UserID,
			BillingAddressID:  o.BillingAddressID,
			ShippingAddressID: o.ShippingAddressID,
			Placement:         o.Placement,
			Completed:         o.Completed,
		}
	}
	if err := r.createBatch(ctx, &rows, len(rows)); err != nil {
		r.log.Error("Failed to insert orders", zap.Error(err))
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	return ids, nil
}

// InsertBookOrders inserts order lines
func (r *TestDataRepository) InsertBookOrders(ctx context.Context, lines []synthetic.BookOrder) error {
	rows := make([]db.BookOrder, len(lines))
	for i, l := range lines {
		rows[i] = db.BookOrder{OrderID: l.OrderID, BookID: l.BookID, Quantity: l.Quantity}
	}
	if err := r.createBatch(ctx, &rows, len(rows)); err != nil {
		r.log.Error("Failed to insert book orders", zap.Error(err))
		return err
	}
	return nil
}

// OwnedAddresses returns the address ids owned by a user
func (r *TestDataRepository) OwnedAddresses(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.reader(ctx).Model(&db.UserAddress{}).
		Where("user_id = ?", userID).
		Order("address_id").
		Pluck("address_id", &ids).Error
	return ids, err
}

// Orders returns every order with its lines
func (r *TestDataRepository) Orders(ctx context.Context) ([]db.Order, []db.BookOrder, error) {
	var orders []db.Order
	if err := r.reader(ctx).Order("order_id").Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	var lines []db.BookOrder
	if err := r.reader(ctx).Order("order_id").Find(&lines).Error; err != nil {
		return nil, nil, err
	}
	return orders, lines, nil
}

func (r *TestDataRepository) createBatch(ctx context.Context, rows interface{}, n int) error {
	if n == 0 {
		return nil
	}
	tx, err := r.conn(ctx)
	if err != nil {
		return err
	}
	return tx.Omit(clause.Associations).CreateInBatches(rows, batchSize).Error
}
