// Package store persists the normalized sales records. It defines the
// entities, the Store interface the import pipeline resolves against, and a
// PostgreSQL implementation. The database's unique constraints (person email,
// company domain, product SKU, order number) are the final integrity backstop
// behind the resolvers' match-or-create logic.
package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/halverson/salesimport/internal/extract"
)

// Person is an identity record. Each person belongs to exactly one company.
type Person struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Street    string
	City      string
	State     string
	Zip       string
	Country   string
	CompanyID int64
}

// Company is anchored by domain when one is available; domain is the primary
// dedup key. Companies without a reliable domain are never matched.
type Company struct {
	ID     int64
	Name   string
	Domain string // "" persists as NULL
}

// Product is anchored by SKU. Name and description are descriptive only.
type Product struct {
	ID          int64
	SKU         string
	Name        string
	Description string
}

// Order is one logical sale. OrderNumber is globally unique; legacy orders
// carry the synthesized form "LEGACY-<id>" with channel legacy and no source.
type Order struct {
	ID          int64
	PersonID    int64
	Date        time.Time
	Amount      decimal.Decimal
	OrderNumber string
	Channel     extract.Channel
	Source      string // "" persists as NULL
}

// LineItem links an order to a product with pricing detail.
type LineItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	UnitPrice decimal.Decimal
	Quantity  int
	Amount    decimal.Decimal
}
