package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/halverson/salesimport/internal/extract"
	"github.com/halverson/salesimport/internal/store"
)

func testCandidate(emails ...string) Candidate {
	return Candidate{
		Name:        "Jane Smith",
		Phone:       "555-867-5309",
		SourceName:  "Web Store",
		CompanyName: "Acme Corp",
		Emails:      emails,
		Address: extract.Address{
			Street:  "123 Main St",
			City:    "Springfield",
			State:   "IL",
			Zip:     "62704",
			Country: "US",
		},
	}
}

func TestResolveSingleEmailCreatesOnce(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	r := newResolver("FBA-amazon.com")

	people, err := r.ResolvePersons(ctx, st, testCandidate("jane@acme.com"))
	if err != nil {
		t.Fatalf("ResolvePersons: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("got %d people, want 1", len(people))
	}
	if r.stats.People != 1 || r.stats.Companies != 1 {
		t.Errorf("stats = %+v, want 1 person and 1 company created", r.stats)
	}

	p := people[0]
	if p.Name != "Jane Smith" || p.Email != "jane@acme.com" || p.City != "Springfield" {
		t.Errorf("created person %+v missing candidate fields", p)
	}

	company, err := st.FindCompanyByDomain(ctx, "acme.com")
	if err != nil || company == nil {
		t.Fatalf("company for acme.com not created: %v", err)
	}
	if company.Name != "Acme Corp" {
		t.Errorf("company name = %q, want %q", company.Name, "Acme Corp")
	}
	if p.CompanyID != company.ID {
		t.Errorf("person linked to company %d, want %d", p.CompanyID, company.ID)
	}

	// Same candidate again: matched by email, nothing new created.
	r.beginGroup()
	again, err := r.ResolvePersons(ctx, st, testCandidate("jane@acme.com"))
	if err != nil {
		t.Fatalf("second ResolvePersons: %v", err)
	}
	if again[0].ID != p.ID {
		t.Errorf("re-resolve got person %d, want %d", again[0].ID, p.ID)
	}
	if r.stats.People != 0 || r.stats.Companies != 0 {
		t.Errorf("stats = %+v, want nothing created on re-resolve", r.stats)
	}
}

func TestResolveSingleMatchPriority(t *testing.T) {
	ctx := context.Background()

	t.Run("phone beats name", func(t *testing.T) {
		st := newMemStore()
		byPhone := &store.Person{Name: "Other Name", Email: "old@acme.com", Phone: "555-867-5309"}
		byName := &store.Person{Name: "Jane Smith", Email: "prior@acme.com"}
		for _, p := range []*store.Person{byPhone, byName} {
			if err := st.CreatePerson(ctx, p); err != nil {
				t.Fatal(err)
			}
		}

		r := newResolver("FBA-amazon.com")
		people, err := r.ResolvePersons(ctx, st, testCandidate("new@acme.com"))
		if err != nil {
			t.Fatalf("ResolvePersons: %v", err)
		}
		if people[0].ID != byPhone.ID {
			t.Errorf("matched person %d, want phone match %d", people[0].ID, byPhone.ID)
		}
	})

	t.Run("name is last resort", func(t *testing.T) {
		st := newMemStore()
		byName := &store.Person{Name: "Jane Smith", Email: "prior@acme.com"}
		if err := st.CreatePerson(ctx, byName); err != nil {
			t.Fatal(err)
		}

		r := newResolver("FBA-amazon.com")
		c := testCandidate("new@acme.com")
		c.Phone = ""
		people, err := r.ResolvePersons(ctx, st, c)
		if err != nil {
			t.Fatalf("ResolvePersons: %v", err)
		}
		if people[0].ID != byName.ID {
			t.Errorf("matched person %d, want name match %d", people[0].ID, byName.ID)
		}
	})
}

func TestResolveMultiEmailAlwaysCreates(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	before := len(st.people)
	r := newResolver("FBA-amazon.com")

	// One person per email, one company per domain, address copied to each,
	// no matching against existing records.
	people, err := r.ResolvePersons(ctx, st, testCandidate("a@x.com", "c@z.com"))
	if err != nil {
		t.Fatalf("ResolvePersons: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("got %d people, want 2", len(people))
	}
	if len(st.people) != before+2 {
		t.Errorf("store has %d people, want %d", len(st.people), before+2)
	}
	for i, want := range []string{"a@x.com", "c@z.com"} {
		p := people[i]
		if p.Email != want {
			t.Errorf("person %d email = %q, want %q", i, p.Email, want)
		}
		if p.Name != "" || p.Phone != "" {
			t.Errorf("split identity %d carries contact fields: %+v", i, p)
		}
		if p.Street != "123 Main St" || p.Zip != "62704" {
			t.Errorf("split identity %d missing address: %+v", i, p)
		}
	}

	for _, domain := range []string{"x.com", "z.com"} {
		if c, _ := st.FindCompanyByDomain(ctx, domain); c == nil {
			t.Errorf("no company for domain %q", domain)
		}
	}
}

func TestResolveMultiEmailCollision(t *testing.T) {
	// Split identities never match existing records, so a repeated email
	// surfaces as a uniqueness violation instead of a silent merge.
	ctx := context.Background()
	st := newMemStore()
	if err := st.CreatePerson(ctx, &store.Person{Name: "Prior", Email: "b@y.com"}); err != nil {
		t.Fatal(err)
	}

	r := newResolver("FBA-amazon.com")
	_, err := r.ResolvePersons(ctx, st, testCandidate("a@x.com", "b@y.com"))
	if !store.IsUniqueViolation(err) {
		t.Fatalf("got %v, want unique violation", err)
	}
}

func TestResolveFBASequence(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	// Occupy the first slot so the counter has to skip it.
	taken := &store.Person{Email: "FBA-user1@FBA-amazon.com"}
	if err := st.CreatePerson(ctx, taken); err != nil {
		t.Fatal(err)
	}

	r := newResolver("FBA-amazon.com")
	c := Candidate{SourceName: "Amazon FBA"}

	first, err := r.ResolvePersons(ctx, st, c)
	if err != nil {
		t.Fatalf("ResolvePersons: %v", err)
	}
	if first[0].Email != "FBA-user2@FBA-amazon.com" {
		t.Errorf("first synthesized email = %q, want FBA-user2@FBA-amazon.com", first[0].Email)
	}

	second, err := r.ResolvePersons(ctx, st, c)
	if err != nil {
		t.Fatalf("ResolvePersons: %v", err)
	}
	if second[0].Email != "FBA-user3@FBA-amazon.com" {
		t.Errorf("second synthesized email = %q, want FBA-user3@FBA-amazon.com", second[0].Email)
	}
	if second[0].ID == first[0].ID {
		t.Error("each FBA resolution must create a distinct person")
	}
}

func TestResolveNoEmailNonFBA(t *testing.T) {
	r := newResolver("FBA-amazon.com")
	c := Candidate{SourceName: "UPS Ground"}

	_, err := r.ResolvePersons(context.Background(), newMemStore(), c)
	if !errors.Is(err, ErrMissingContact) {
		t.Fatalf("got %v, want ErrMissingContact", err)
	}
}

func TestResolveCompanyFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("unparseable email uses catch-all", func(t *testing.T) {
		st := newMemStore()
		r := newResolver("FBA-amazon.com")

		company, err := r.resolveCompany(ctx, st, "not-an-email", "Acme Corp")
		if err != nil {
			t.Fatalf("resolveCompany: %v", err)
		}
		if company.Domain != "unknown" || company.Name != "Unknown Company" {
			t.Errorf("got %+v, want the unknown catch-all company", company)
		}

		// Subsequent unparseable emails share the catch-all.
		again, err := r.resolveCompany(ctx, st, "also@", "Other Corp")
		if err != nil {
			t.Fatalf("resolveCompany: %v", err)
		}
		if again.ID != company.ID {
			t.Errorf("catch-all resolved to %d, want %d", again.ID, company.ID)
		}
	})

	t.Run("missing name falls back to domain", func(t *testing.T) {
		st := newMemStore()
		r := newResolver("FBA-amazon.com")

		company, err := r.resolveCompany(ctx, st, "jane@widgets.io", "")
		if err != nil {
			t.Fatalf("resolveCompany: %v", err)
		}
		if company.Name != "widgets.io" {
			t.Errorf("company name = %q, want domain fallback", company.Name)
		}
	})
}

func TestResolveProduct(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	r := newResolver("FBA-amazon.com")

	created, err := r.ResolveProduct(ctx, st, "01-6310.38K", "01-6310.38K (SP10-38 kit)", "Repair kit")
	if err != nil {
		t.Fatalf("ResolveProduct: %v", err)
	}
	if created.SKU != "01-6310.38K" || created.Description != "Repair kit" {
		t.Errorf("created product %+v", created)
	}

	matched, err := r.ResolveProduct(ctx, st, "01-6310.38K", "different name", "different desc")
	if err != nil {
		t.Fatalf("ResolveProduct: %v", err)
	}
	if matched.ID != created.ID {
		t.Errorf("re-resolve got product %d, want %d", matched.ID, created.ID)
	}
	if matched.Name != created.Name {
		t.Error("SKU match must not rewrite the existing product")
	}
}
