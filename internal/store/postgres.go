package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/halverson/salesimport/internal/extract"
)

// DBTX is the subset of pgx operations the store needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Postgres implements Store on top of a pgx connection pool.
// Numeric columns travel as text: decimals are bound with ::numeric casts and
// selected with ::text, so no driver-level codec registration is needed.
type Postgres struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewPostgres creates a Store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool, pool: pool}
}

// WithinTx begins a transaction, runs fn against a transaction-bound store,
// and commits if fn returns nil. Any error rolls the transaction back.
// Unique-constraint failures surface wrapped in ErrUniqueViolation.
func (s *Postgres) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already transaction-bound; nesting is not supported.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	if err := fn(&Postgres{db: tx}); err != nil {
		return mapConstraintErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapConstraintErr(err))
	}
	return nil
}

// mapConstraintErr wraps PostgreSQL unique_violation errors in
// ErrUniqueViolation so callers can classify them without importing pgconn.
func mapConstraintErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.ConstraintName)
	}
	return err
}

const personColumns = `id, name, email, phone, street, city, state, zip, country, company_id`

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Street, &p.City,
		&p.State, &p.Zip, &p.Country, &p.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindPersonByEmail matches on exact email (the primary identity key).
func (s *Postgres) FindPersonByEmail(ctx context.Context, email string) (*Person, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE email = $1`, email)
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("find person by email: %w", err)
	}
	return p, nil
}

// FindPersonByPhone matches on exact phone. Phone is not unique in the
// schema; the earliest record wins for deterministic results.
func (s *Postgres) FindPersonByPhone(ctx context.Context, phone string) (*Person, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE phone = $1 AND phone <> ''
		ORDER BY id
		LIMIT 1`, phone)
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("find person by phone: %w", err)
	}
	return p, nil
}

// FindPersonByName matches on exact name, spelling included.
func (s *Postgres) FindPersonByName(ctx context.Context, name string) (*Person, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+personColumns+`
		FROM people
		WHERE name = $1 AND name <> ''
		ORDER BY id
		LIMIT 1`, name)
	p, err := scanPerson(row)
	if err != nil {
		return nil, fmt.Errorf("find person by name: %w", err)
	}
	return p, nil
}

// CreatePerson inserts a person and assigns its ID.
func (s *Postgres) CreatePerson(ctx context.Context, p *Person) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO people (name, email, phone, street, city, state, zip, country, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.Name, p.Email, p.Phone, p.Street, p.City, p.State, p.Zip, p.Country, p.CompanyID,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create person: %w", mapConstraintErr(err))
	}
	return nil
}

// FindCompanyByDomain matches case-insensitively on domain.
func (s *Postgres) FindCompanyByDomain(ctx context.Context, domain string) (*Company, error) {
	var c Company
	err := s.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(domain, '')
		FROM companies
		WHERE lower(domain) = lower($1)`, domain,
	).Scan(&c.ID, &c.Name, &c.Domain)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find company by domain: %w", err)
	}
	return &c, nil
}

// CreateCompany inserts a company and assigns its ID.
// An empty domain persists as NULL to keep the partial unique index clean.
func (s *Postgres) CreateCompany(ctx context.Context, c *Company) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO companies (name, domain)
		VALUES ($1, NULLIF($2, ''))
		RETURNING id`,
		c.Name, c.Domain,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create company: %w", mapConstraintErr(err))
	}
	return nil
}

// FindProductBySKU matches on exact SKU.
func (s *Postgres) FindProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var p Product
	err := s.db.QueryRow(ctx, `
		SELECT id, sku, name, COALESCE(description, '')
		FROM products
		WHERE sku = $1`, sku,
	).Scan(&p.ID, &p.SKU, &p.Name, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by sku: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a product and assigns its ID.
func (s *Postgres) CreateProduct(ctx context.Context, p *Product) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO products (sku, name, description)
		VALUES ($1, $2, $3)
		RETURNING id`,
		p.SKU, p.Name, p.Description,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create product: %w", mapConstraintErr(err))
	}
	return nil
}

// CreateOrder inserts an order and assigns its ID. Re-inserting an existing
// order number fails with ErrUniqueViolation; orders are deliberately not
// idempotent.
func (s *Postgres) CreateOrder(ctx context.Context, o *Order) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO orders (person_id, date, amount, order_number, channel, source)
		VALUES ($1, $2, $3::numeric, $4, $5, NULLIF($6, ''))
		RETURNING id`,
		o.PersonID, o.Date, o.Amount.String(), o.OrderNumber, string(o.Channel), o.Source,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("create order: %w", mapConstraintErr(err))
	}
	return nil
}

// CreateLineItem inserts a line item and assigns its ID.
func (s *Postgres) CreateLineItem(ctx context.Context, li *LineItem) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO line_items (order_id, product_id, unit_price, quantity, amount)
		VALUES ($1, $2, $3::numeric, $4, $5::numeric)
		RETURNING id`,
		li.OrderID, li.ProductID, li.UnitPrice.String(), li.Quantity, li.Amount.String(),
	).Scan(&li.ID)
	if err != nil {
		return fmt.Errorf("create line item: %w", mapConstraintErr(err))
	}
	return nil
}

// FindOrderByNumber looks up an order by its unique order number. Useful for
// pre-flight duplicate checks and tests; the pipeline itself relies on the
// unique constraint instead.
func (s *Postgres) FindOrderByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	var o Order
	var amount string
	var channel string
	err := s.db.QueryRow(ctx, `
		SELECT id, person_id, date, amount::text, order_number, channel, COALESCE(source, '')
		FROM orders
		WHERE order_number = $1`, orderNumber,
	).Scan(&o.ID, &o.PersonID, &o.Date, &amount, &o.OrderNumber, &channel, &o.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order by number: %w", err)
	}
	o.Channel = extract.Channel(channel)
	if o.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("find order by number: parse amount: %w", err)
	}
	return &o, nil
}
