package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwerther/catimport/internal/catalogue"
)

// PG is the PostgreSQL-backed product/offer store.
type PG struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPG creates a store backed by the given pool.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool, db: pool}
}

// WithTx runs fn against a transactional view of the store. Every write made
// through the inner store commits or rolls back together.
func (s *PG) WithTx(ctx context.Context, fn func(catalogue.Store) error) error {
	if s.pool == nil {
		return errors.New("store: WithTx requires a pool-backed store")
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PG{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const findProductByBarcode = `
SELECT id, barcode, code, name, description, uom_id, active
FROM products
WHERE barcode = $1 AND (active OR $2)
LIMIT 1
`

// FindProductByBarcode looks a product up by its exact barcode. Archived
// products are included when includeInactive is true. Returns nil when no
// product carries the barcode.
func (s *PG) FindProductByBarcode(ctx context.Context, barcode string, includeInactive bool) (*catalogue.Product, error) {
	var p catalogue.Product
	err := s.db.QueryRow(ctx, findProductByBarcode, barcode, includeInactive).
		Scan(&p.ID, &p.Barcode, &p.Code, &p.Name, &p.Description, &p.UOMID, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product by barcode: %w", err)
	}
	return &p, nil
}

const offersForProduct = `
SELECT id, product_id, seller_id, company_id, product_code, min_qty, price,
       currency_id, delay, date_start, date_end
FROM offers
WHERE product_id = $1
ORDER BY id
`

// OffersForProduct returns all offers attached to a product, terminated ones
// included.
func (s *PG) OffersForProduct(ctx context.Context, productID int64) ([]catalogue.Offer, error) {
	rows, err := s.db.Query(ctx, offersForProduct, productID)
	if err != nil {
		return nil, fmt.Errorf("load offers: %w", err)
	}
	defer rows.Close()

	var offers []catalogue.Offer
	for rows.Next() {
		var o catalogue.Offer
		if err := rows.Scan(&o.ID, &o.ProductID, &o.SellerID, &o.CompanyID, &o.ProductCode,
			&o.MinQty, &o.Price, &o.CurrencyID, &o.Delay, &o.DateStart, &o.DateEnd); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

const createProduct = `
INSERT INTO products (barcode, code, name, description, uom_id, active)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

func (s *PG) CreateProduct(ctx context.Context, vals catalogue.ProductVals) (*catalogue.Product, error) {
	p := catalogue.Product{
		Barcode:     vals.Barcode,
		Code:        vals.Code,
		Name:        vals.Name,
		Description: vals.Description,
		UOMID:       vals.UOMID,
		Active:      vals.Active,
	}
	err := s.db.QueryRow(ctx, createProduct,
		vals.Barcode, vals.Code, vals.Name, vals.Description, vals.UOMID, vals.Active).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

const updateProduct = `
UPDATE products
SET code = $2, name = $3, description = $4, uom_id = $5, active = $6
WHERE id = $1
`

func (s *PG) UpdateProduct(ctx context.Context, id int64, vals catalogue.ProductVals) error {
	if _, err := s.db.Exec(ctx, updateProduct,
		id, vals.Code, vals.Name, vals.Description, vals.UOMID, vals.Active); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (s *PG) ArchiveProduct(ctx context.Context, id int64) error {
	if _, err := s.db.Exec(ctx, `UPDATE products SET active = false WHERE id = $1`, id); err != nil {
		return fmt.Errorf("archive product: %w", err)
	}
	return nil
}

const createOffer = `
INSERT INTO offers (product_id, seller_id, company_id, product_code, min_qty,
                    price, currency_id, delay, date_start)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id
`

func (s *PG) CreateOffer(ctx context.Context, productID int64, vals catalogue.OfferVals) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, createOffer,
		productID, vals.SellerID, vals.CompanyID, vals.ProductCode, vals.MinQty,
		vals.Price, vals.CurrencyID, vals.Delay, vals.DateStart).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create offer: %w", err)
	}
	return id, nil
}

func (s *PG) TerminateOffer(ctx context.Context, offerID int64, dateEnd time.Time) error {
	if _, err := s.db.Exec(ctx, `UPDATE offers SET date_end = $2 WHERE id = $1`, offerID, dateEnd); err != nil {
		return fmt.Errorf("terminate offer: %w", err)
	}
	return nil
}

const recordSourceDocument = `
INSERT INTO import_documents (import_id, seller_id, filename, content, messages, created_at)
VALUES ($1, $2, $3, $4, $5, now())
`

// RecordSourceDocument stores the imported file and its accumulated messages
// as an audit attachment bound to the seller.
func (s *PG) RecordSourceDocument(ctx context.Context, importID string, sellerID int64, filename string, data []byte, messages []string) error {
	if _, err := s.db.Exec(ctx, recordSourceDocument, importID, sellerID, filename, data, messages); err != nil {
		return fmt.Errorf("record source document: %w", err)
	}
	return nil
}

const appendImportLog = `
INSERT INTO import_logs (import_id, message, created_at)
VALUES ($1, $2, now())
`

func (s *PG) AppendImportLog(ctx context.Context, importID string, message string) error {
	if _, err := s.db.Exec(ctx, appendImportLog, importID, message); err != nil {
		return fmt.Errorf("append import log: %w", err)
	}
	return nil
}
