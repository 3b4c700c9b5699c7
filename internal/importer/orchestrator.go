package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/halverson/salesimport/internal/config"
	"github.com/halverson/salesimport/internal/csvio"
	"github.com/halverson/salesimport/internal/extract"
	"github.com/halverson/salesimport/internal/schema"
	"github.com/halverson/salesimport/internal/store"
)

// Importer drives the end-to-end pipeline for one input file at a time.
// Processing is single-threaded and sequential: order groups commit in the
// order their first row appears in the file, each inside its own
// transaction. A batch-fatal failure halts the run with no further writes;
// groups committed before the failure stay committed.
type Importer struct {
	store          store.Store
	resolver       *Resolver
	defaultCountry string
	tolerance      decimal.Decimal
	log            *slog.Logger
}

// New creates an Importer. The FBA sequence counter starts fresh with each
// Importer instance.
func New(st store.Store, cfg config.ImportConfig) *Importer {
	return &Importer{
		store:          st,
		resolver:       newResolver(cfg.FBAEmailDomain),
		defaultCountry: cfg.DefaultCountry,
		tolerance:      cfg.AmountToleranceDecimal(),
		log:            slog.Default(),
	}
}

// Run processes raw file rows through the whole pipeline and returns the run
// report. The returned error is non-nil when the run halted early: either a
// batch-fatal ImportError or an infrastructure failure. The report is always
// returned and accounts for everything processed up to the halt.
func (imp *Importer) Run(ctx context.Context, rows [][]string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	log := imp.log.With("run_id", report.RunID)

	headerRowIdx := csvio.FindHeaderRow(rows, schema.RequiredColumns())
	if headerRowIdx < 0 {
		return report, fmt.Errorf("no header row with required columns found in first %d rows", csvio.MaxHeaderSearchRows)
	}
	headerIdx := schema.MakeHeaderIndex(rows[headerRowIdx], csvio.CleanCell)

	// Parse and validate rows; structurally bad rows are dropped here.
	var lines []OrderLine
	for i, record := range rows[headerRowIdx+1:] {
		lineNum := headerRowIdx + i + 2

		if csvio.IsEmptyRow(record) {
			continue
		}
		report.TotalRows++

		raw := RowFromRecord(record, headerIdx, lineNum)
		line, err := ParseRow(raw)
		if err != nil {
			report.RowsSkipped++
			report.record(ImportError{
				Row:         lineNum,
				OrderNumber: raw.Num,
				Kind:        KindRowInvalid,
				Message:     err.Error(),
			})
			log.Warn("row skipped", "row", lineNum, "error", err)
			continue
		}
		lines = append(lines, line)
	}

	groups := GroupOrders(lines)
	log.Info("rows aggregated", "rows", report.TotalRows, "orders", len(groups))

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run cancelled at order %s: %w", g.OrderNumber, err)
		}

		err := imp.processGroup(ctx, report, g)
		if err == nil {
			continue
		}

		kind, known := classify(err)
		if !known {
			// Outside the import-error taxonomy (e.g. lost database
			// connection): abort the run as-is.
			return report, fmt.Errorf("order %s: %w", g.OrderNumber, err)
		}

		impErr := ImportError{
			Row:         g.First().Line,
			OrderNumber: g.OrderNumber,
			Kind:        kind,
			Message:     err.Error(),
		}
		report.record(impErr)
		report.OrdersSkipped++

		if kind.Severity() == SeverityBatch {
			report.Halted = kind
			log.Error("batch-fatal error, halting run", "order_number", g.OrderNumber, "kind", kind, "error", err)
			return report, impErr
		}

		log.Warn("order skipped", "order_number", g.OrderNumber, "kind", kind, "error", err)
	}

	log.Info("run complete",
		"orders_created", report.OrdersCreated,
		"orders_skipped", report.OrdersSkipped,
		"errors", len(report.Errors),
	)
	return report, nil
}

// processGroup imports one order group. Steps 1-4 (person/company
// resolution, channel classification, per-line SKU/product resolution) feed
// a single transaction, so the order, its line items, and any newly created
// people, companies, and products commit together or not at all.
func (imp *Importer) processGroup(ctx context.Context, report *Report, g *OrderGroup) error {
	if err := g.Validate(); err != nil {
		return err
	}

	first := g.First()
	isFBA := strings.EqualFold(first.SourceName, fbaSourceName)

	// Contact and channel problems surface before any store access, in the
	// same order the source system validated them.
	if len(first.Emails) == 0 && !isFBA {
		return fmt.Errorf("%w (source %q)", ErrMissingContact, first.SourceName)
	}

	channel, err := extract.ClassifyChannel(g.OrderNumber)
	if err != nil {
		return err
	}

	var addr extract.Address
	if first.NameAddress != "" {
		if addr, err = extract.ParseAddress(first.NameAddress, imp.defaultCountry); err != nil {
			return err
		}
	} else if !isFBA {
		return fmt.Errorf("%w: row %d has no address", extract.ErrAddressParse, first.Line)
	}

	candidate := Candidate{
		Name:        first.NameContact,
		Phone:       first.NamePhone,
		SourceName:  first.SourceName,
		CompanyName: first.Name,
		Emails:      first.Emails,
		Address:     addr,
	}

	// Line amounts that disagree with qty * unit price are data-quality
	// warnings, reported only if the group commits.
	var warnings []ImportError
	for _, line := range g.Lines {
		expected := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if line.Amount.Sub(expected).Abs().GreaterThan(imp.tolerance) {
			warnings = append(warnings, ImportError{
				Row:         line.Line,
				OrderNumber: g.OrderNumber,
				Kind:        KindAmountMismatch,
				Field:       line.Amount.String(),
				Message: fmt.Sprintf("amount %s != %d x %s = %s",
					line.Amount, line.Quantity, line.UnitPrice, expected),
			})
		}
	}

	imp.resolver.beginGroup()
	var lineItemsCreated int

	err = imp.store.WithinTx(ctx, func(tx store.Store) error {
		people, err := imp.resolver.ResolvePersons(ctx, tx, candidate)
		if err != nil {
			return err
		}
		// Multi-email rows create several people; the first anchors the order.
		owner := people[0]

		total := decimal.Zero
		for _, line := range g.Lines {
			total = total.Add(line.Amount)
		}

		order := &store.Order{
			PersonID:    owner.ID,
			Date:        first.OrderDate,
			Amount:      total,
			OrderNumber: g.OrderNumber,
			Channel:     channel,
			Source:      first.SourceName,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}

		for _, line := range g.Lines {
			sku, err := extract.ExtractSKU(line.Item)
			if err != nil {
				return err
			}

			product, err := imp.resolver.ResolveProduct(ctx, tx, sku, line.Item, line.ItemDescription)
			if err != nil {
				return err
			}

			li := &store.LineItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				UnitPrice: line.UnitPrice,
				Quantity:  line.Quantity,
				Amount:    line.Amount,
			}
			if err := tx.CreateLineItem(ctx, li); err != nil {
				return err
			}
			lineItemsCreated++
		}

		return nil
	})
	if err != nil {
		return err
	}

	report.OrdersCreated++
	report.LineItemsCreated += lineItemsCreated
	report.PeopleCreated += imp.resolver.stats.People
	report.CompaniesCreated += imp.resolver.stats.Companies
	report.ProductsCreated += imp.resolver.stats.Products
	for _, w := range warnings {
		report.record(w)
	}

	return nil
}
