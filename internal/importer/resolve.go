package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/halverson/salesimport/internal/extract"
	"github.com/halverson/salesimport/internal/store"
)

// fbaSourceName identifies rows from Amazon's fulfillment service, which
// legitimately carry no contact information.
const fbaSourceName = "Amazon FBA"

// unknownCompanyDomain keys the catch-all company for people whose email
// yields no usable domain.
const unknownCompanyDomain = "unknown"

// Candidate carries the contact fields of an order group's first row into
// person resolution.
type Candidate struct {
	Name        string // contact person name
	Phone       string
	SourceName  string
	CompanyName string // customer name from the export, used when creating a company
	Emails      []string
	Address     extract.Address
}

// groupStats counts entities created while processing one order group. The
// orchestrator folds them into the report only after the group commits, so
// rolled-back creations are never counted.
type groupStats struct {
	People    int
	Companies int
	Products  int
}

// Resolver matches extracted entities against the store, creating records
// only when no matching rule succeeds. All resolution is exact-field and
// rule-ordered; there is no fuzzy matching. Resolvers are idempotent:
// resolving the same key twice against an unchanged store yields the same
// identity.
//
// The FBA sequence counter is owned here, monotonic for the process
// lifetime, so repeated test runs can reset it by constructing a new
// Resolver.
type Resolver struct {
	fbaDomain string
	fbaSeq    int
	stats     groupStats
}

func newResolver(fbaDomain string) *Resolver {
	return &Resolver{fbaDomain: fbaDomain}
}

// beginGroup clears the per-group creation counters.
func (r *Resolver) beginGroup() {
	r.stats = groupStats{}
}

// ResolvePersons resolves the person or people identified by a candidate's
// contact fields.
//
// Multi-email candidates ("a@x.com;b@y.com") always create one person per
// email with only that email populated, the address copied to each, and a
// company keyed on each email's domain; split identities are never matched
// against existing records. Single-email candidates match by email, then
// phone, then exact name, and are created with all supplied fields when
// nothing matches. Candidates with no email synthesize an FBA person when
// the source is Amazon FBA, and fail with ErrMissingContact otherwise.
func (r *Resolver) ResolvePersons(ctx context.Context, st store.Store, c Candidate) ([]*store.Person, error) {
	switch len(c.Emails) {
	case 0:
		if !strings.EqualFold(c.SourceName, fbaSourceName) {
			return nil, fmt.Errorf("%w (source %q)", ErrMissingContact, c.SourceName)
		}
		p, err := r.createFBAPerson(ctx, st)
		if err != nil {
			return nil, err
		}
		return []*store.Person{p}, nil

	case 1:
		p, err := r.resolveSingle(ctx, st, c)
		if err != nil {
			return nil, err
		}
		return []*store.Person{p}, nil

	default:
		people := make([]*store.Person, 0, len(c.Emails))
		for _, email := range c.Emails {
			company, err := r.resolveCompany(ctx, st, email, c.CompanyName)
			if err != nil {
				return nil, err
			}
			p := &store.Person{
				Email:     email,
				Street:    c.Address.Street,
				City:      c.Address.City,
				State:     c.Address.State,
				Zip:       c.Address.Zip,
				Country:   c.Address.Country,
				CompanyID: company.ID,
			}
			if err := st.CreatePerson(ctx, p); err != nil {
				return nil, err
			}
			r.stats.People++
			people = append(people, p)
		}
		return people, nil
	}
}

// resolveSingle applies the match priority email -> phone -> exact name and
// creates with all supplied fields when nothing matches.
func (r *Resolver) resolveSingle(ctx context.Context, st store.Store, c Candidate) (*store.Person, error) {
	email := c.Emails[0]

	p, err := st.FindPersonByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p == nil && c.Phone != "" {
		if p, err = st.FindPersonByPhone(ctx, c.Phone); err != nil {
			return nil, err
		}
	}
	if p == nil && c.Name != "" {
		if p, err = st.FindPersonByName(ctx, c.Name); err != nil {
			return nil, err
		}
	}
	if p != nil {
		return p, nil
	}

	company, err := r.resolveCompany(ctx, st, email, c.CompanyName)
	if err != nil {
		return nil, err
	}

	p = &store.Person{
		Name:      c.Name,
		Email:     email,
		Phone:     c.Phone,
		Street:    c.Address.Street,
		City:      c.Address.City,
		State:     c.Address.State,
		Zip:       c.Address.Zip,
		Country:   c.Address.Country,
		CompanyID: company.ID,
	}
	if err := st.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	r.stats.People++
	return p, nil
}

// createFBAPerson synthesizes a person with the next unused sequential FBA
// email and no other contact fields.
func (r *Resolver) createFBAPerson(ctx context.Context, st store.Store) (*store.Person, error) {
	email, err := r.nextFBAEmail(ctx, st)
	if err != nil {
		return nil, err
	}

	company, err := r.resolveCompany(ctx, st, email, fbaSourceName)
	if err != nil {
		return nil, err
	}

	p := &store.Person{Email: email, CompanyID: company.ID}
	if err := st.CreatePerson(ctx, p); err != nil {
		return nil, err
	}
	r.stats.People++
	return p, nil
}

// nextFBAEmail advances the sequence counter past any values already taken
// in the store and returns the first unused synthesized address.
func (r *Resolver) nextFBAEmail(ctx context.Context, st store.Store) (string, error) {
	for {
		r.fbaSeq++
		email := fmt.Sprintf("FBA-user%d@%s", r.fbaSeq, r.fbaDomain)
		existing, err := st.FindPersonByEmail(ctx, email)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return email, nil
		}
	}
}

// resolveCompany matches a company by the email's domain (case-insensitive)
// or creates one. Emails without a usable domain resolve to the catch-all
// unknown company, since no reliable match is possible without a domain.
func (r *Resolver) resolveCompany(ctx context.Context, st store.Store, email, name string) (*store.Company, error) {
	domain := extract.EmailDomain(email)
	if domain == "" {
		domain = unknownCompanyDomain
		name = "Unknown Company"
	}

	company, err := st.FindCompanyByDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	if company != nil {
		return company, nil
	}

	if name == "" {
		name = domain
	}
	company = &store.Company{Name: name, Domain: domain}
	if err := st.CreateCompany(ctx, company); err != nil {
		return nil, err
	}
	r.stats.Companies++
	return company, nil
}

// ResolveProduct matches a product by exact SKU or creates it with the Item
// field as name and the Item Description as description.
func (r *Resolver) ResolveProduct(ctx context.Context, st store.Store, sku, name, description string) (*store.Product, error) {
	product, err := st.FindProductBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}

	product = &store.Product{SKU: sku, Name: name, Description: description}
	if err := st.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	r.stats.Products++
	return product, nil
}
