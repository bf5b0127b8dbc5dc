// Package resolver maps free-text references from catalogue documents to
// canonical reference data: partners, units of measure and currencies.
//
// Matching is deliberately plain: exact (case-insensitive) lookups with a
// VAT/email tiebreak for partners, and configurable defaults for units and
// currencies. Failed uom/currency lookups fall back to the default and leave
// a message on the import's audit trail instead of failing the line.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwerther/catimport/internal/catalogue"
)

// ErrNoMatch is returned when a required reference cannot be resolved.
var ErrNoMatch = errors.New("no matching record")

// Defaults used when a catalogue omits or mislabels a unit or currency.
const (
	DefaultUOM      = "Units"
	DefaultCurrency = "EUR"
)

// PG resolves references against the reference tables in PostgreSQL.
type PG struct {
	pool            *pgxpool.Pool
	defaultUOM      string
	defaultCurrency string
}

// NewPG creates a resolver. Empty defaults fall back to DefaultUOM and
// DefaultCurrency.
func NewPG(pool *pgxpool.Pool, defaultUOM, defaultCurrency string) *PG {
	if defaultUOM == "" {
		defaultUOM = DefaultUOM
	}
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &PG{pool: pool, defaultUOM: defaultUOM, defaultCurrency: defaultCurrency}
}

// MatchPartner resolves a partner reference. VAT wins over email, email over
// name. When required is true a failed resolution is an error; otherwise it
// returns 0 and appends a message to log.
func (r *PG) MatchPartner(ctx context.Context, ref catalogue.PartnerRef, kind catalogue.PartnerKind, required bool, log *catalogue.Chatter) (int64, error) {
	flag := "is_supplier"
	if kind == catalogue.PartnerCompany {
		flag = "is_company"
	}

	clauses := []struct{ column, value string }{
		{"vat", ref.VAT},
		{"email", ref.Email},
		{"name", ref.Name},
	}
	for _, c := range clauses {
		if c.value == "" {
			continue
		}
		var id int64
		query := fmt.Sprintf(`SELECT id FROM partners WHERE lower(%s) = lower($1) AND %s LIMIT 1`, c.column, flag)
		err := r.pool.QueryRow(ctx, query, strings.TrimSpace(c.value)).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("match partner: %w", err)
		}
		return id, nil
	}

	if required {
		return 0, fmt.Errorf("%w: %s %q", ErrNoMatch, kind, ref.Name)
	}
	log.Addf("no matching %s for %q, leaving unset", kind, ref.Name)
	return 0, nil
}

// MatchUOM resolves a unit-of-measure name, falling back to the default unit
// with a log message when the reference is unknown.
func (r *PG) MatchUOM(ctx context.Context, ref string, log *catalogue.Chatter) (int64, error) {
	id, err := r.lookup(ctx, `SELECT id FROM uoms WHERE lower(name) = lower($1) LIMIT 1`, ref)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return 0, err
	}
	log.Addf("unit of measure %q not found, using %q", ref, r.defaultUOM)
	id, err = r.lookup(ctx, `SELECT id FROM uoms WHERE lower(name) = lower($1) LIMIT 1`, r.defaultUOM)
	if err != nil {
		return 0, fmt.Errorf("default uom %q missing: %w", r.defaultUOM, err)
	}
	return id, nil
}

// MatchCurrency resolves an ISO currency code, falling back to the default
// currency with a log message when the reference is unknown.
func (r *PG) MatchCurrency(ctx context.Context, ref string, log *catalogue.Chatter) (int64, error) {
	id, err := r.lookup(ctx, `SELECT id FROM currencies WHERE upper(code) = upper($1) LIMIT 1`, ref)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		return 0, err
	}
	log.Addf("currency %q not found, using %q", ref, r.defaultCurrency)
	id, err = r.lookup(ctx, `SELECT id FROM currencies WHERE upper(code) = upper($1) LIMIT 1`, r.defaultCurrency)
	if err != nil {
		return 0, fmt.Errorf("default currency %q missing: %w", r.defaultCurrency, err)
	}
	return id, nil
}

func (r *PG) lookup(ctx context.Context, query, value string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(value)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrNoMatch, value)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
