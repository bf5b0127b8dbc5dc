// Package catalogue implements supplier catalogue reconciliation: parsing a
// catalogue document into product lines, matching each line against the
// product master by barcode, computing the minimal set of offer writes, and
// partitioning the workload into chunks for asynchronous execution.
// This package has no transport dependencies and can be driven by any frontend.
package catalogue

import (
	"context"
	"fmt"
	"time"
)

// Document is the structured result of parsing one catalogue file.
// It is built once per import and read-only afterwards.
type Document struct {
	Products    []ProductLine
	Seller      PartnerRef
	Company     *PartnerRef
	ChatterMsgs []string
	Attachments map[string][]byte
}

// ProductLine is a single catalogue entry. Barcode is the cross-run natural
// key: a line without one is skipped, never persisted.
type ProductLine struct {
	Barcode     string
	Code        string  // buyer-side default code
	Name        string
	Description string
	UOM         string  // free-text unit of measure reference
	Currency    string  // free-text currency reference
	Price       float64
	MinQty      float64
	ProductCode string  // supplier's own article code
	SaleDelay   int     // lead time in days
	Active      *bool   // nil means active
}

// IsActive reports whether the line describes an active product.
func (l ProductLine) IsActive() bool {
	return l.Active == nil || *l.Active
}

// PartnerRef is a free-text reference to a partner, resolved to a canonical
// record by the Resolver.
type PartnerRef struct {
	Name  string
	VAT   string
	Email string
}

// Product is the canonical product entity, keyed by barcode. Product master
// data is company-agnostic; only offers are company-scoped.
type Product struct {
	ID          int64
	Barcode     string
	Code        string
	Name        string
	Description string
	UOMID       int64
	Active      bool
}

// ProductVals carries the fields written when creating or updating a product.
type ProductVals struct {
	Barcode     string
	Code        string
	Name        string
	Description string
	UOMID       int64
	Active      bool
}

// Offer is a seller's priced proposal to supply a product at a given quantity
// break, currency and lead time. A nil CompanyID means the offer is global.
type Offer struct {
	ID          int64
	ProductID   int64
	SellerID    int64
	CompanyID   *int64
	ProductCode string
	MinQty      float64
	Price       float64
	CurrencyID  int64
	Delay       int
	DateStart   time.Time
	DateEnd     *time.Time
}

// OfferVals is a candidate offer derived from one catalogue line.
// A zero DateStart means "starts today".
type OfferVals struct {
	SellerID    int64
	CompanyID   *int64
	ProductCode string
	MinQty      float64
	Price       float64
	CurrencyID  int64
	Delay       int
	DateStart   time.Time
}

// OfferTermination ends the validity of an existing offer.
type OfferTermination struct {
	OfferID int64
	DateEnd time.Time
}

// OfferPlan is the reconciler's verdict for one candidate offer against a
// product's existing offers. The variants are applied exhaustively: there is
// no "unknown command" path.
type OfferPlan struct {
	KeepID    int64 // existing identical offer, 0 when none
	Terminate []OfferTermination
	Create    *OfferVals
}

// Chunk is an ordered group of catalogue lines dispatched as one unit of
// work, bound to the already-resolved seller. Chunks share no mutable state.
type Chunk struct {
	ImportID  string
	Seq       int
	SellerID  int64
	CompanyID *int64
	Lines     []ProductLine
}

// Receipt summarizes an accepted import: the catalogue was parsed, the seller
// resolved and every chunk enqueued. It says nothing about whether chunks
// have finished executing.
type Receipt struct {
	ImportID string
	SellerID int64
	Products int
	Chunks   int
}

// Chatter accumulates human-readable per-line messages for the audit trail.
type Chatter []string

// Addf appends a formatted message.
func (c *Chatter) Addf(format string, args ...any) {
	*c = append(*c, fmt.Sprintf(format, args...))
}

// PartnerKind selects the matching rules applied by the Resolver.
type PartnerKind string

const (
	PartnerSupplier PartnerKind = "supplier"
	PartnerCompany  PartnerKind = "company"
)

// Resolver maps free-text references from a catalogue to canonical reference
// data. Implementations own the matching heuristics; this package only
// consumes the results.
type Resolver interface {
	// MatchPartner resolves a partner reference. When required is true a
	// failed resolution returns an error; otherwise it returns 0 and appends
	// a message to log.
	MatchPartner(ctx context.Context, ref PartnerRef, kind PartnerKind, required bool, log *Chatter) (int64, error)

	// MatchUOM resolves a unit-of-measure reference, falling back to the
	// default unit (with a log message) when the reference is unknown.
	MatchUOM(ctx context.Context, ref string, log *Chatter) (int64, error)

	// MatchCurrency resolves a currency reference, falling back to the
	// default currency (with a log message) when the reference is unknown.
	MatchCurrency(ctx context.Context, ref string, log *Chatter) (int64, error)
}

// Store is the backing product/offer store. Implementations must make
// WithTx run fn against a transactional view: every write made through the
// inner Store commits or rolls back atomically.
type Store interface {
	// FindProductByBarcode looks a product up by its barcode. Archived
	// products are included when includeInactive is true. Returns nil when
	// no product carries the barcode.
	FindProductByBarcode(ctx context.Context, barcode string, includeInactive bool) (*Product, error)

	// OffersForProduct returns all offers attached to a product, terminated
	// ones included.
	OffersForProduct(ctx context.Context, productID int64) ([]Offer, error)

	CreateProduct(ctx context.Context, vals ProductVals) (*Product, error)
	UpdateProduct(ctx context.Context, id int64, vals ProductVals) error
	ArchiveProduct(ctx context.Context, id int64) error

	CreateOffer(ctx context.Context, productID int64, vals OfferVals) (int64, error)
	TerminateOffer(ctx context.Context, offerID int64, dateEnd time.Time) error

	// RecordSourceDocument stores the imported file and its accumulated
	// messages as an audit attachment bound to the seller.
	RecordSourceDocument(ctx context.Context, importID string, sellerID int64, filename string, data []byte, messages []string) error

	// AppendImportLog adds one chunk's log lines to the import's audit trail.
	AppendImportLog(ctx context.Context, importID string, message string) error

	WithTx(ctx context.Context, fn func(Store) error) error
}
