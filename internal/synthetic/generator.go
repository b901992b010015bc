package synthetic

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Ownership selects how addresses are distributed among users.
type Ownership string

const (
	// OwnershipDisjoint gives user i the addresses (i-1)*k+1 .. i*k.
	OwnershipDisjoint Ownership = "disjoint"
	// OwnershipSliding gives user i the addresses i .. i+k-1, so
	// consecutive users share k-1 addresses.
	OwnershipSliding Ownership = "sliding"
)

const (
	minQuantity = 1
	maxQuantity = 4
)

var ErrInvalidParams = errors.New("invalid test data parameters")

// Params sizes a synthetic batch.
type Params struct {
	Users            int
	OrdersPerUser    int
	AddressesPerUser int
	Ownership        Ownership
}

// DefaultParams returns 10 users with 5 orders and 3 addresses each.
func DefaultParams() Params {
	return Params{Users: 10, OrdersPerUser: 5, AddressesPerUser: 3, Ownership: OwnershipDisjoint}
}

func (p Params) Validate() error {
	if p.Users < 1 || p.OrdersPerUser < 1 || p.AddressesPerUser < 1 {
		return fmt.Errorf("%w: counts must be positive, got users=%d orders_per_user=%d addresses_per_user=%d",
			ErrInvalidParams, p.Users, p.OrdersPerUser, p.AddressesPerUser)
	}
	switch p.Ownership {
	case OwnershipDisjoint, OwnershipSliding:
		return nil
	default:
		return fmt.Errorf("%w: unknown ownership mode %q", ErrInvalidParams, p.Ownership)
	}
}

// Orders returns the number of orders, which is also the number of books
// the batch prices and references.
func (p Params) Orders() int { return p.Users * p.OrdersPerUser }

// Addresses returns the number of addresses generated.
func (p Params) Addresses() int { return p.Users * p.AddressesPerUser }

// owned returns the address ids owned by user.
func (p Params) owned(user int64) []int64 {
	k := int64(p.AddressesPerUser)
	first := user
	if p.Ownership == OwnershipDisjoint {
		first = (user-1)*k + 1
	}
	ids := make([]int64, k)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids
}

// Generator produces synthetic graphs.
type Generator struct {
	fake *Faker
	cost int
}

// NewGenerator returns a generator drawing values from fake. Passwords are
// hashed with bcrypt.MinCost.
func NewGenerator(fake *Faker) *Generator {
	return &Generator{fake: fake, cost: bcrypt.MinCost}
}

// Generate builds a graph for p. Keys are predicted against empty tables.
func (g *Generator) Generate(p Params) (*Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	out := &Graph{Params: p, Owned: make(map[int64][]int64, p.Users)}

	for i := 1; i <= p.Orders(); i++ {
		out.Prices = append(out.Prices, BookPrice{BookID: int64(i), Price: g.fake.Money()})
	}

	users, err := g.users(p.Users)
	if err != nil {
		return nil, err
	}
	out.Users = users

	for i := 1; i <= p.Addresses(); i++ {
		addr := g.fake.Address()
		addr.ID = int64(i)
		out.Addresses = append(out.Addresses, addr)
	}

	for _, u := range out.Users {
		owned := p.owned(u.ID)
		out.Owned[u.ID] = owned
		for _, addressID := range owned {
			out.UserAddresses = append(out.UserAddresses, UserAddress{
				UserID:     u.ID,
				AddressID:  addressID,
				IsPhysical: true,
				IsShipping: true,
				IsBilling:  true,
				IsActive:   true,
			})
		}
	}

	orderID := int64(0)
	for _, u := range out.Users {
		first := out.Owned[u.ID][0]
		for j := 0; j < p.OrdersPerUser; j++ {
			orderID++
			out.Orders = append(out.Orders, Order{
				ID:                orderID,
				UserID:            u.ID,
				BillingAddressID:  first,
				ShippingAddressID: first,
				Placement:         g.fake.Timestamp(),
			})
		}
	}

	for _, o := range out.Orders {
		out.BookOrders = append(out.BookOrders, BookOrder{
			BookID:   int64(g.fake.IntRange(1, p.Orders())),
			OrderID:  o.ID,
			Quantity: g.fake.IntRange(minQuantity, maxQuantity),
		})
	}

	return out, nil
}

func (g *Generator) users(n int) ([]User, error) {
	emails := g.fake.Emails(n)
	usernames := g.fake.Usernames(n)
	users := make([]User, 0, n)
	for i := 0; i < n; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte(g.fake.Password()), g.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		users = append(users, User{
			ID:          int64(i + 1),
			Username:    usernames[i],
			Password:    string(hash),
			PhoneNumber: g.fake.Phone(),
			Email:       emails[i],
			RealName:    g.fake.Name(),
		})
	}
	return users, nil
}
