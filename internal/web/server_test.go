package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/halverson/salesimport/internal/config"
	"github.com/halverson/salesimport/internal/importer"
	"github.com/halverson/salesimport/internal/store"
)

// fakeStore is a minimal in-memory store.Store for handler tests.
type fakeStore struct {
	people    []*store.Person
	companies []*store.Company
	products  []*store.Product
	orders    []*store.Order
	lineItems []*store.LineItem
	nextID    int64
}

func (f *fakeStore) id() int64 { f.nextID++; return f.nextID }

func (f *fakeStore) WithinTx(_ context.Context, fn func(store.Store) error) error {
	return fn(f)
}

func (f *fakeStore) FindPersonByEmail(_ context.Context, email string) (*store.Person, error) {
	for _, p := range f.people {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindPersonByPhone(_ context.Context, phone string) (*store.Person, error) {
	return nil, nil
}

func (f *fakeStore) FindPersonByName(_ context.Context, name string) (*store.Person, error) {
	return nil, nil
}

func (f *fakeStore) CreatePerson(_ context.Context, p *store.Person) error {
	p.ID = f.id()
	f.people = append(f.people, p)
	return nil
}

func (f *fakeStore) FindCompanyByDomain(_ context.Context, domain string) (*store.Company, error) {
	for _, c := range f.companies {
		if c.Domain == domain {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateCompany(_ context.Context, c *store.Company) error {
	c.ID = f.id()
	f.companies = append(f.companies, c)
	return nil
}

func (f *fakeStore) FindProductBySKU(_ context.Context, sku string) (*store.Product, error) {
	for _, p := range f.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateProduct(_ context.Context, p *store.Product) error {
	p.ID = f.id()
	f.products = append(f.products, p)
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o *store.Order) error {
	o.ID = f.id()
	f.orders = append(f.orders, o)
	return nil
}

func (f *fakeStore) CreateLineItem(_ context.Context, li *store.LineItem) error {
	li.ID = f.id()
	f.lineItems = append(f.lineItems, li)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			DefaultCountry:  "US",
			AmountTolerance: "0.01",
			FBAEmailDomain:  "FBA-amazon.com",
			MaxFileSize:     1 << 20,
		},
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

const testCSV = `Type,Date,Num,Source Name,Name Address,Name Contact,Name Phone #,Name E-Mail,Memo,Name,Item,Item Description,Qty,Sales Price,Amount
Invoice,01/15/2024,A100,Web Store,"123 Main St, Springfield, IL 62704",Jane Smith,555-867-5309,jane@acme.com,,Acme Corp,01-6310.38K (SP10-38 kit),Repair kit,2,10.00,20.00
`

func TestHandleImport(t *testing.T) {
	st := &fakeStore{}
	srv := NewServer(testConfig(), st, fakePinger{})

	body, contentType := multipartBody(t, "sales.csv", testCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Report importer.Report `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Report.OrdersCreated != 1 || resp.Report.LineItemsCreated != 1 {
		t.Errorf("report = %+v, want 1 order and 1 line item", resp.Report)
	}
	if len(st.orders) != 1 || st.orders[0].OrderNumber != "A100" {
		t.Errorf("store orders = %+v", st.orders)
	}
}

func TestHandleImportHalts(t *testing.T) {
	// An unrecognized order number format is systemic: the API reports it
	// with 422 and includes the partial report.
	bad := `Type,Date,Num,Source Name,Name Address,Name Contact,Name Phone #,Name E-Mail,Memo,Name,Item,Item Description,Qty,Sales Price,Amount
Invoice,01/15/2024,ZZZZZ,Web Store,"123 Main St, Springfield, IL 62704",Jane Smith,555-867-5309,jane@acme.com,,Acme Corp,01-6310.38K (SP10-38 kit),Repair kit,2,10.00,20.00
`
	srv := NewServer(testConfig(), &fakeStore{}, fakePinger{})

	body, contentType := multipartBody(t, "sales.csv", bad)
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body = %s", rec.Code, rec.Body)
	}

	var resp struct {
		Report importer.Report `json:"report"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Report.Halted != importer.KindUnknownChannel {
		t.Errorf("halted = %q, want unknown_channel", resp.Report.Halted)
	}
	if resp.Error == "" {
		t.Error("halted response must carry the error message")
	}
}

func TestHandleImportNoFile(t *testing.T) {
	srv := NewServer(testConfig(), &fakeStore{}, fakePinger{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		srv := NewServer(testConfig(), &fakeStore{}, fakePinger{})
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("db down", func(t *testing.T) {
		srv := NewServer(testConfig(), &fakeStore{}, fakePinger{err: errors.New("connection refused")})
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}
