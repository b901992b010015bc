package db

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Author represents a comics author
type Author struct {
	ID          int64   `gorm:"column:author_id;primaryKey;autoIncrement" json:"author_id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Nationality *string `gorm:"type:varchar(100)" json:"nationality,omitempty"`
	Gender      *string `gorm:"type:varchar(20)" json:"gender,omitempty"`
}

func (Author) TableName() string { return "authors" }

// Address is shared by publishers and synthetic users
type Address struct {
	ID            int64  `gorm:"column:address_id;primaryKey;autoIncrement" json:"address_id"`
	AddressName   string `gorm:"type:varchar(255)" json:"address_name"`
	AddressNumber string `gorm:"type:varchar(50)" json:"address_number"`
	City          string `gorm:"type:varchar(100)" json:"city"`
	Country       string `gorm:"type:varchar(100)" json:"country"`
	PostalCode    string `gorm:"type:varchar(20)" json:"postal_code"`
}

func (Address) TableName() string { return "addresses" }

// Publisher is written once per book that names one
type Publisher struct {
	ID          int64    `gorm:"column:publisher_id;primaryKey;autoIncrement" json:"publisher_id"`
	Name        string   `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber *string  `gorm:"type:varchar(50)" json:"phone_number,omitempty"`
	AddressID   *int64   `gorm:"index" json:"address_id,omitempty"`
	Address     *Address `gorm:"foreignKey:AddressID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Publisher) TableName() string { return "publishers" }

// Book represents a book in the catalog database
type Book struct {
	ID              int64            `gorm:"column:book_id;primaryKey;autoIncrement" json:"book_id"`
	ISBN            string           `gorm:"column:isbn;type:varchar(10);not null;index:idx_books_isbn" json:"isbn"`
	Title           *string          `gorm:"type:varchar(200)" json:"title,omitempty"`
	PublicationYear *string          `gorm:"type:varchar(4)" json:"publication_year,omitempty"`
	Description     *string          `gorm:"type:text" json:"description,omitempty"`
	CurrentPrice    *decimal.Decimal `gorm:"type:numeric(10,2)" json:"current_price,omitempty"`
	PublisherID     *int64           `gorm:"index" json:"publisher_id,omitempty"`
	Publisher       *Publisher       `gorm:"foreignKey:PublisherID" json:"-"`
}

func (Book) TableName() string { return "books" }

// BookAuthor links books and authors with the author's position on the book
type BookAuthor struct {
	BookID        int64   `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	AuthorID      int64   `gorm:"primaryKey;autoIncrement:false;index" json:"author_id"`
	AuthorOrdinal int     `gorm:"not null" json:"author_ordinal"`
	Role          *string `gorm:"type:varchar(100)" json:"role,omitempty"`
	Book          *Book   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`
	Author        *Author `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}

func (BookAuthor) TableName() string { return "book_authors" }

// Review of a book
type Review struct {
	ID       int64      `gorm:"column:review_id;primaryKey;autoIncrement" json:"review_id"`
	Nickname *string    `gorm:"type:varchar(150)" json:"nickname,omitempty"`
	Text     string     `gorm:"type:text;not null" json:"text"`
	Score    int        `gorm:"not null" json:"score"`
	Created  *time.Time `json:"created,omitempty"`
}

func (Review) TableName() string { return "reviews" }

// BookReview links a review to its book
type BookReview struct {
	BookID   int64   `gorm:"primaryKey;autoIncrement:false" json:"book_id"`
	ReviewID int64   `gorm:"primaryKey;autoIncrement:false" json:"review_id"`
	Book     *Book   `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"-"`
	Review   *Review `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE" json:"-"`
}

func (BookReview) TableName() string { return "book_reviews" }

// User is a synthetic store customer
type User struct {
	ID          int64  `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Username    string `gorm:"type:varchar(150);not null;uniqueIndex" json:"username"`
	Password    string `gorm:"type:varchar(255);not null" json:"-"`
	PhoneNumber string `gorm:"type:varchar(50)" json:"phone_number"`
	Email       string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	RealName    string `gorm:"type:varchar(255)" json:"real_name"`
}

func (User) TableName() string { return "users" }

// UserAddress records that a user owns an address
type UserAddress struct {
	UserID     int64    `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	AddressID  int64    `gorm:"primaryKey;autoIncrement:false" json:"address_id"`
	IsPhysical bool     `gorm:"not null" json:"is_physical"`
	IsShipping bool     `gorm:"not null" json:"is_shipping"`
	IsBilling  bool     `gorm:"not null" json:"is_billing"`
	IsActive   bool     `gorm:"not null" json:"is_active"`
	User       *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Address    *Address `gorm:"foreignKey:AddressID;constraint:OnDelete:CASCADE" json:"-"`
}

func (UserAddress) TableName() string { return "user_addresses" }

// Order placed by a synthetic user
type Order struct {
	ID                int64      `gorm:"column:order_id;primaryKey;autoIncrement" json:"order_id"`
	UserID            int64      `gorm:"not null;index" json:"user_id"`
	BillingAddressID  int64      `gorm:"not null" json:"billing_address_id"`
	ShippingAddressID int64      `gorm:"not null" json:"shipping_address_id"`
	Placement         time.Time  `gorm:"not null" json:"placement"`
	Completed         *time.Time `json:"completed,omitempty"`
	User              *User      `gorm:"foreignKey:UserID" json:"-"`
	BillingAddress    *Address   `gorm:"foreignKey:BillingAddressID" json:"-"`
	ShippingAddress   *Address   `gorm:"foreignKey:ShippingAddressID" json:"-"`
}

func (Order) TableName() string { return "orders" }

// BeforeCreate hook to set the placement time
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.Placement.IsZero() {
		o.Placement = time.Now().UTC()
	}
	return nil
}

// BookOrder is one line of an order
type BookOrder struct {
	OrderID  int64  `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	BookID   int64  `gorm:"primaryKey;autoIncrement:false;index" json:"book_id"`
	Quantity int    `gorm:"not null" json:"quantity"`
	Order    *Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	Book     *Book  `gorm:"foreignKey:BookID" json:"-"`
}

func (BookOrder) TableName() string { return "book_orders" }

// CatalogModels lists the ingested tables in dependency order.
func CatalogModels() []interface{} {
	return []interface{}{&Author{}, &Address{}, &Publisher{}, &Book{}, &BookAuthor{}, &Review{}, &BookReview{}}
}

// TestDataModels lists the synthetic tables in dependency order.
func TestDataModels() []interface{} {
	return []interface{}{&User{}, &UserAddress{}, &Order{}, &BookOrder{}}
}
