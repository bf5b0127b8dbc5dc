package catalogue

// In-memory fakes shared by the package tests. The store keeps products and
// offers in slices and applies writes immediately; WithTx runs the function
// against the same state, which is enough for exercising the reconciliation
// logic without a database.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwerther/catimport/internal/queue"
)

type memStore struct {
	mu          sync.Mutex
	products    []Product
	offers      []Offer
	nextProduct int64
	nextOffer   int64
	docs        map[string][]byte
	logs        map[string][]string

	productWrites int
	offerWrites   int
	failDocs      bool
}

func newMemStore() *memStore {
	return &memStore{
		docs: make(map[string][]byte),
		logs: make(map[string][]string),
	}
}

func (m *memStore) FindProductByBarcode(_ context.Context, barcode string, includeInactive bool) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		p := m.products[i]
		if p.Barcode == barcode && (p.Active || includeInactive) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) OffersForProduct(_ context.Context, productID int64) ([]Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Offer
	for _, o := range m.offers {
		if o.ProductID == productID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) CreateProduct(_ context.Context, vals ProductVals) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProduct++
	m.productWrites++
	p := Product{
		ID:          m.nextProduct,
		Barcode:     vals.Barcode,
		Code:        vals.Code,
		Name:        vals.Name,
		Description: vals.Description,
		UOMID:       vals.UOMID,
		Active:      vals.Active,
	}
	m.products = append(m.products, p)
	return &p, nil
}

func (m *memStore) UpdateProduct(_ context.Context, id int64, vals ProductVals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.productWrites++
			m.products[i].Code = vals.Code
			m.products[i].Name = vals.Name
			m.products[i].Description = vals.Description
			m.products[i].UOMID = vals.UOMID
			m.products[i].Active = vals.Active
			return nil
		}
	}
	return fmt.Errorf("product %d not found", id)
}

func (m *memStore) ArchiveProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products[i].Active = false
			return nil
		}
	}
	return fmt.Errorf("product %d not found", id)
}

func (m *memStore) CreateOffer(_ context.Context, productID int64, vals OfferVals) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextOffer++
	m.offerWrites++
	m.offers = append(m.offers, Offer{
		ID:          m.nextOffer,
		ProductID:   productID,
		SellerID:    vals.SellerID,
		CompanyID:   vals.CompanyID,
		ProductCode: vals.ProductCode,
		MinQty:      vals.MinQty,
		Price:       vals.Price,
		CurrencyID:  vals.CurrencyID,
		Delay:       vals.Delay,
		DateStart:   vals.DateStart,
	})
	return m.nextOffer, nil
}

func (m *memStore) TerminateOffer(_ context.Context, offerID int64, dateEnd time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.offers {
		if m.offers[i].ID == offerID {
			m.offerWrites++
			end := dateEnd
			m.offers[i].DateEnd = &end
			return nil
		}
	}
	return fmt.Errorf("offer %d not found", offerID)
}

func (m *memStore) RecordSourceDocument(_ context.Context, importID string, _ int64, filename string, data []byte, _ []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDocs {
		return errors.New("document store unavailable")
	}
	m.docs[importID+"/"+filename] = data
	return nil
}

func (m *memStore) AppendImportLog(_ context.Context, importID string, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[importID] = append(m.logs[importID], message)
	return nil
}

func (m *memStore) WithTx(_ context.Context, fn func(Store) error) error {
	return fn(m)
}

func (m *memStore) allLogs() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []string
	for _, msgs := range m.logs {
		lines = append(lines, msgs...)
	}
	return strings.Join(lines, "\n")
}

// memResolver resolves by exact name from fixed maps. Unknown uoms and
// currencies fall back to id 1 with a chatter message, unknown partners
// follow the required flag.
type memResolver struct {
	partners   map[string]int64
	uoms       map[string]int64
	currencies map[string]int64
}

func newMemResolver() *memResolver {
	return &memResolver{
		partners:   map[string]int64{},
		uoms:       map[string]int64{"Units": 1, "Box": 2},
		currencies: map[string]int64{"EUR": 1, "USD": 2},
	}
}

func (r *memResolver) MatchPartner(_ context.Context, ref PartnerRef, kind PartnerKind, required bool, log *Chatter) (int64, error) {
	if id, ok := r.partners[ref.Name]; ok {
		return id, nil
	}
	if required {
		return 0, fmt.Errorf("no matching %s: %q", kind, ref.Name)
	}
	log.Addf("no matching %s for %q, leaving unset", kind, ref.Name)
	return 0, nil
}

func (r *memResolver) MatchUOM(_ context.Context, ref string, log *Chatter) (int64, error) {
	if id, ok := r.uoms[ref]; ok {
		return id, nil
	}
	log.Addf("unit of measure %q not found, using %q", ref, "Units")
	return 1, nil
}

func (r *memResolver) MatchCurrency(_ context.Context, ref string, log *Chatter) (int64, error) {
	if id, ok := r.currencies[ref]; ok {
		return id, nil
	}
	log.Addf("currency %q not found, using %q", ref, "EUR")
	return 1, nil
}

// syncQueue executes submitted jobs immediately on the caller's goroutine,
// making import tests deterministic. Execution errors are collected, not
// returned: Submit is fire-and-forget like the real queue.
type syncQueue struct {
	submitted int
	failNext  bool
	jobErrs   []error
}

func (q *syncQueue) Submit(job queue.Job) error {
	if q.failNext {
		return queue.ErrQueueFull
	}
	q.submitted++
	if err := job.Execute(context.Background()); err != nil {
		q.jobErrs = append(q.jobErrs, err)
	}
	return nil
}

// holdQueue records jobs without executing them, for asserting what was
// scheduled.
type holdQueue struct {
	jobs []queue.Job
}

func (q *holdQueue) Submit(job queue.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
