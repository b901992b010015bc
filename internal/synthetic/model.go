// Package synthetic synthesizes users, addresses and orders against an
// ingested catalog, and runs the catalog maintenance passes.
package synthetic

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID          int64
	Username    string
	Password    string // bcrypt hash
	PhoneNumber string
	Email       string
	RealName    string
}

type Address struct {
	ID           int64
	StreetName   string
	StreetNumber string
	City         string
	Country      string
	PostalCode   string
}

type UserAddress struct {
	UserID     int64
	AddressID  int64
	IsPhysical bool
	IsShipping bool
	IsBilling  bool
	IsActive   bool
}

type Order struct {
	ID                int64
	UserID            int64
	BillingAddressID  int64
	ShippingAddressID int64
	Placement         time.Time
	Completed         *time.Time
}

type BookOrder struct {
	BookID   int64
	OrderID  int64
	Quantity int
}

type BookPrice struct {
	BookID int64
	Price  decimal.Decimal
}

// Graph is one generated batch of synthetic data with predicted keys.
type Graph struct {
	Params        Params
	Prices        []BookPrice
	Users         []User
	Addresses     []Address
	UserAddresses []UserAddress
	// Owned maps a user id to the address ids it owns, in order.
	Owned      map[int64][]int64
	Orders     []Order
	BookOrders []BookOrder
}
