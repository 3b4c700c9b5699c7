package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/halverson/salesimport/internal/store"
)

// memStore is an in-memory store.Store for pipeline tests. It enforces the
// same uniqueness constraints as the schema and rolls WithinTx back on
// error, so atomicity and duplicate-key behavior can be exercised without a
// database.
type memStore struct {
	nextID    int64
	people    []*store.Person
	companies []*store.Company
	products  []*store.Product
	orders    []*store.Order
	lineItems []*store.LineItem

	// failCreateOrder, when set, is returned by the next CreateOrder call.
	failCreateOrder error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	people := append([]*store.Person(nil), m.people...)
	companies := append([]*store.Company(nil), m.companies...)
	products := append([]*store.Product(nil), m.products...)
	orders := append([]*store.Order(nil), m.orders...)
	lineItems := append([]*store.LineItem(nil), m.lineItems...)
	nextID := m.nextID

	if err := fn(m); err != nil {
		m.people = people
		m.companies = companies
		m.products = products
		m.orders = orders
		m.lineItems = lineItems
		m.nextID = nextID
		return err
	}
	return nil
}

func (m *memStore) FindPersonByEmail(_ context.Context, email string) (*store.Person, error) {
	for _, p := range m.people {
		if p.Email != "" && strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPersonByPhone(_ context.Context, phone string) (*store.Person, error) {
	for _, p := range m.people {
		if p.Phone != "" && p.Phone == phone {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindPersonByName(_ context.Context, name string) (*store.Person, error) {
	for _, p := range m.people {
		if p.Name != "" && p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreatePerson(ctx context.Context, p *store.Person) error {
	if p.Email != "" {
		if existing, _ := m.FindPersonByEmail(ctx, p.Email); existing != nil {
			return fmt.Errorf("people.email %q: %w", p.Email, store.ErrUniqueViolation)
		}
	}
	p.ID = m.id()
	m.people = append(m.people, p)
	return nil
}

func (m *memStore) FindCompanyByDomain(_ context.Context, domain string) (*store.Company, error) {
	for _, c := range m.companies {
		if c.Domain != "" && strings.EqualFold(c.Domain, domain) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateCompany(ctx context.Context, c *store.Company) error {
	if c.Domain != "" {
		if existing, _ := m.FindCompanyByDomain(ctx, c.Domain); existing != nil {
			return fmt.Errorf("companies.domain %q: %w", c.Domain, store.ErrUniqueViolation)
		}
	}
	c.ID = m.id()
	m.companies = append(m.companies, c)
	return nil
}

func (m *memStore) FindProductBySKU(_ context.Context, sku string) (*store.Product, error) {
	for _, p := range m.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateProduct(ctx context.Context, p *store.Product) error {
	if existing, _ := m.FindProductBySKU(ctx, p.SKU); existing != nil {
		return fmt.Errorf("products.sku %q: %w", p.SKU, store.ErrUniqueViolation)
	}
	p.ID = m.id()
	m.products = append(m.products, p)
	return nil
}

func (m *memStore) CreateOrder(_ context.Context, o *store.Order) error {
	if err := m.failCreateOrder; err != nil {
		m.failCreateOrder = nil
		return err
	}
	for _, existing := range m.orders {
		if existing.OrderNumber == o.OrderNumber {
			return fmt.Errorf("orders.order_number %q: %w", o.OrderNumber, store.ErrUniqueViolation)
		}
	}
	o.ID = m.id()
	m.orders = append(m.orders, o)
	return nil
}

func (m *memStore) CreateLineItem(_ context.Context, li *store.LineItem) error {
	li.ID = m.id()
	m.lineItems = append(m.lineItems, li)
	return nil
}

func (m *memStore) orderByNumber(num string) *store.Order {
	for _, o := range m.orders {
		if o.OrderNumber == num {
			return o
		}
	}
	return nil
}
