package catalogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ChunkJob reconciles one chunk of catalogue lines against the backing
// store. It runs on the task queue, wrapped in a single transaction: either
// every product/offer write of the chunk lands, or none do and the queue
// retries the whole chunk. Chunks do not coordinate with each other; the
// only shared resource is the store itself.
type ChunkJob struct {
	Chunk

	Store    Store
	Resolver Resolver
	Now      func() time.Time
}

// Name identifies the job in logs.
func (j *ChunkJob) Name() string {
	return fmt.Sprintf("import %s chunk %d (%d lines)", j.ImportID, j.Seq, len(j.Lines))
}

// Group keys the job to its import run for status tracking.
func (j *ChunkJob) Group() string { return j.ImportID }

// Execute processes every line of the chunk inside one transaction and
// appends the per-product log lines to the import's audit trail.
func (j *ChunkJob) Execute(ctx context.Context) error {
	log := slog.With("component", "chunk", "import_id", j.ImportID, "chunk", j.Seq)

	return j.Store.WithTx(ctx, func(tx Store) error {
		var chatter Chatter
		for _, line := range j.Lines {
			if err := j.processLine(ctx, tx, line, &chatter, log); err != nil {
				return fmt.Errorf("line %q: %w", line.Barcode, err)
			}
		}
		if len(chatter) == 0 {
			return nil
		}
		return tx.AppendImportLog(ctx, j.ImportID, strings.Join(chatter, "\n"))
	})
}

// processLine reconciles a single catalogue line. A missing barcode skips
// the line with a log message; it never fails the chunk.
func (j *ChunkJob) processLine(ctx context.Context, tx Store, line ProductLine, chatter *Chatter, log *slog.Logger) error {
	if line.Barcode == "" {
		chatter.Addf("cannot import product without barcode: %q (supplier code %q)", line.Name, line.ProductCode)
		log.Warn("line skipped", "error", ErrMissingBarcode, "name", line.Name)
		return nil
	}

	// Archived products must not hide from reconciliation.
	product, err := tx.FindProductByBarcode(ctx, line.Barcode, true)
	if err != nil {
		return fmt.Errorf("find product: %w", err)
	}

	uomID, err := j.Resolver.MatchUOM(ctx, line.UOM, chatter)
	if err != nil {
		return fmt.Errorf("match uom %q: %w", line.UOM, err)
	}
	currencyID, err := j.Resolver.MatchCurrency(ctx, line.Currency, chatter)
	if err != nil {
		return fmt.Errorf("match currency %q: %w", line.Currency, err)
	}

	// Barcode is the company-agnostic unique key of the product master;
	// only the offer below carries the company scope.
	vals := ProductVals{
		Barcode:     line.Barcode,
		Code:        line.Code,
		Name:        line.Name,
		Description: line.Description,
		UOMID:       uomID,
		Active:      line.IsActive(),
	}
	candidate := OfferVals{
		SellerID:    j.SellerID,
		CompanyID:   j.CompanyID,
		ProductCode: line.ProductCode,
		MinQty:      line.MinQty,
		Price:       line.Price,
		CurrencyID:  currencyID,
		Delay:       line.SaleDelay,
	}

	if product != nil {
		return j.updateProduct(ctx, tx, product, vals, candidate, chatter, log)
	}
	return j.createProduct(ctx, tx, vals, candidate, chatter, log)
}

func (j *ChunkJob) updateProduct(ctx context.Context, tx Store, product *Product, vals ProductVals, candidate OfferVals, chatter *Chatter, log *slog.Logger) error {
	existing, err := tx.OffersForProduct(ctx, product.ID)
	if err != nil {
		return fmt.Errorf("load offers: %w", err)
	}

	plan := ReconcileOffers(candidate, existing, j.Now())
	for _, term := range plan.Terminate {
		if err := tx.TerminateOffer(ctx, term.OfferID, term.DateEnd); err != nil {
			return fmt.Errorf("terminate offer %d: %w", term.OfferID, err)
		}
	}
	if plan.Create != nil {
		if _, err := tx.CreateOffer(ctx, product.ID, *plan.Create); err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
	}

	if err := tx.UpdateProduct(ctx, product.ID, vals); err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	chatter.Addf("product %d updated (%s)", product.ID, vals.Barcode)
	log.Debug("product updated", "product_id", product.ID, "barcode", vals.Barcode)
	return nil
}

func (j *ChunkJob) createProduct(ctx context.Context, tx Store, vals ProductVals, candidate OfferVals, chatter *Chatter, log *slog.Logger) error {
	// Products are created active, then archived when the line says so, so
	// the full master record exists before it is hidden.
	active := vals.Active
	vals.Active = true

	product, err := tx.CreateProduct(ctx, vals)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	plan := ReconcileOffers(candidate, nil, j.Now())
	if plan.Create != nil {
		if _, err := tx.CreateOffer(ctx, product.ID, *plan.Create); err != nil {
			return fmt.Errorf("create offer: %w", err)
		}
	}

	if !active {
		if err := tx.ArchiveProduct(ctx, product.ID); err != nil {
			return fmt.Errorf("archive product: %w", err)
		}
	}

	chatter.Addf("product %d created (%s)", product.ID, vals.Barcode)
	log.Debug("product created", "product_id", product.ID, "barcode", vals.Barcode)
	return nil
}
