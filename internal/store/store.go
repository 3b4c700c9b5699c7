package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the persistence capability the import pipeline resolves against:
// find-by-key lookups and creation. Find methods return (nil, nil) when no
// record matches. Create methods assign the entity's ID on success.
//
// WithinTx runs fn against a transaction-bound Store; fn's writes commit
// together or not at all. The pipeline scopes one transaction per order
// group.
type Store interface {
	WithinTx(ctx context.Context, fn func(Store) error) error

	FindPersonByEmail(ctx context.Context, email string) (*Person, error)
	FindPersonByPhone(ctx context.Context, phone string) (*Person, error)
	FindPersonByName(ctx context.Context, name string) (*Person, error)
	CreatePerson(ctx context.Context, p *Person) error

	FindCompanyByDomain(ctx context.Context, domain string) (*Company, error)
	CreateCompany(ctx context.Context, c *Company) error

	FindProductBySKU(ctx context.Context, sku string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error

	CreateOrder(ctx context.Context, o *Order) error
	CreateLineItem(ctx context.Context, li *LineItem) error
}

// ErrUniqueViolation marks a write rejected by a database uniqueness
// constraint, e.g. re-importing an order number that already exists or a
// race against an external writer.
var ErrUniqueViolation = errors.New("unique constraint violation")

// uniqueViolationCode is the PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a uniqueness-constraint failure,
// either from the database or wrapped as ErrUniqueViolation.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrUniqueViolation) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
