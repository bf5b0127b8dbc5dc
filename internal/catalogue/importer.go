package catalogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwerther/catimport/internal/queue"
)

// Submitter enqueues one chunk's reconciliation work. Satisfied by
// *queue.Queue.
type Submitter interface {
	Submit(job queue.Job) error
}

// Importer drives one catalogue import end to end: parse, validate, resolve
// the company and seller, partition into chunks and hand each chunk to the
// task queue. Import returns as soon as every chunk is enqueued; chunk
// execution and completion are the queue's business.
type Importer struct {
	store     Store
	resolver  Resolver
	queue     Submitter
	chunkSize int
	now       func() time.Time
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithChunkSize overrides the default chunk size.
func WithChunkSize(n int) ImporterOption {
	return func(imp *Importer) {
		if n > 0 {
			imp.chunkSize = n
		}
	}
}

// WithClock overrides the time source. Useful for testing date arithmetic.
func WithClock(now func() time.Time) ImporterOption {
	return func(imp *Importer) { imp.now = now }
}

// NewImporter creates an Importer.
func NewImporter(store Store, resolver Resolver, q Submitter, opts ...ImporterOption) *Importer {
	imp := &Importer{
		store:     store,
		resolver:  resolver,
		queue:     q,
		chunkSize: DefaultChunkSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Detect runs format detection only: it confirms the file is recognized
// without building the full document. An unsupported file is a warning for
// the caller, not an error.
func (imp *Importer) Detect(filename string, data []byte) (string, bool) {
	return DetectFormat(filename, data)
}

// Import parses the catalogue, resolves its seller and company, partitions
// the product lines into chunks and enqueues each one. The returned receipt
// means "accepted and scheduled", not "persisted": per-chunk failures are
// isolated and surface through the queue's status, never here.
func (imp *Importer) Import(ctx context.Context, filename string, data []byte) (*Receipt, error) {
	doc, err := ParseDocument(filename, data)
	if err != nil {
		return nil, err
	}
	if len(doc.Products) == 0 {
		return nil, ErrEmptyCatalogue
	}
	doc.Attachments[filename] = data

	chatter := Chatter(doc.ChatterMsgs)

	companyID, err := imp.resolveCompany(ctx, doc, &chatter)
	if err != nil {
		// Company is optional: resolution failure downgrades to a log line.
		chatter.Addf("could not resolve company %q: %v", doc.Company.Name, err)
		companyID = nil
	}

	sellerID, err := imp.resolver.MatchPartner(ctx, doc.Seller, PartnerSupplier, true, &chatter)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSellerNotFound, doc.Seller.Name, err)
	}

	importID := uuid.New().String()
	chunks := PartitionLines(doc.Products, imp.chunkSize)
	for seq, lines := range chunks {
		job := &ChunkJob{
			Chunk: Chunk{
				ImportID:  importID,
				Seq:       seq,
				SellerID:  sellerID,
				CompanyID: companyID,
				Lines:     lines,
			},
			Store:    imp.store,
			Resolver: imp.resolver,
			Now:      imp.now,
		}
		if err := imp.queue.Submit(job); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrQueueFull, seq, err)
		}
	}

	if err := imp.store.RecordSourceDocument(ctx, importID, sellerID, filename, data, chatter); err != nil {
		return nil, fmt.Errorf("record source document: %w", err)
	}

	slog.Info("catalogue import scheduled",
		"import_id", importID,
		"seller_id", sellerID,
		"products", len(doc.Products),
		"chunks", len(chunks),
	)

	return &Receipt{
		ImportID: importID,
		SellerID: sellerID,
		Products: len(doc.Products),
		Chunks:   len(chunks),
	}, nil
}

// resolveCompany resolves the optional company reference. Absence is not an
// error: the import simply proceeds with company unset and offers stay
// global.
func (imp *Importer) resolveCompany(ctx context.Context, doc *Document, log *Chatter) (*int64, error) {
	if doc.Company == nil || doc.Company.Name == "" {
		return nil, nil
	}
	id, err := imp.resolver.MatchPartner(ctx, *doc.Company, PartnerCompany, false, log)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}
