package formats

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mwerther/catimport/internal/catalogue"
)

// csvParser reads flat CSV catalogues. The header row names the columns;
// order does not matter. Required columns: seller, barcode, name, price.
// Optional: code, description, uom, currency, min_qty, supplier_code,
// lead_time, active. The seller of the first data row is the catalogue's
// seller.
type csvParser struct{}

var csvRequiredColumns = []string{"seller", "barcode", "name", "price"}

func (csvParser) Format() string { return "csv" }

// Detect reads only the header row and checks the required columns are there.
func (csvParser) Detect(filename string, data []byte) bool {
	idx, err := csvHeaderIndex(data)
	if err != nil {
		return false
	}
	for _, col := range csvRequiredColumns {
		if _, ok := idx[col]; !ok {
			return false
		}
	}
	return true
}

func (csvParser) Parse(filename string, data []byte) (*catalogue.Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read CSV header: %v", catalogue.ErrMalformedDocument, err)
	}
	idx := indexHeader(header)

	doc := &catalogue.Document{}
	for rowNum := 2; ; rowNum++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", catalogue.ErrMalformedDocument, rowNum, err)
		}

		if doc.Seller.Name == "" {
			doc.Seller.Name = cell(row, idx, "seller")
		}
		if company := cell(row, idx, "company"); company != "" && doc.Company == nil {
			doc.Company = &catalogue.PartnerRef{Name: company}
		}

		line := catalogue.ProductLine{
			Barcode:     cell(row, idx, "barcode"),
			Code:        cell(row, idx, "code"),
			Name:        cell(row, idx, "name"),
			Description: cell(row, idx, "description"),
			UOM:         cell(row, idx, "uom"),
			Currency:    cell(row, idx, "currency"),
			ProductCode: cell(row, idx, "supplier_code"),
		}
		if line.Price, err = parseFloat(cell(row, idx, "price")); err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid price: %v", catalogue.ErrMalformedDocument, rowNum, err)
		}
		if line.MinQty, err = parseFloat(cell(row, idx, "min_qty")); err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid min_qty: %v", catalogue.ErrMalformedDocument, rowNum, err)
		}
		if raw := cell(row, idx, "lead_time"); raw != "" {
			if line.SaleDelay, err = strconv.Atoi(raw); err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid lead_time: %v", catalogue.ErrMalformedDocument, rowNum, err)
			}
		}
		if raw := cell(row, idx, "active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid active flag: %v", catalogue.ErrMalformedDocument, rowNum, err)
			}
			line.Active = &active
		}
		doc.Products = append(doc.Products, line)
	}

	if doc.Seller.Name == "" && len(doc.Products) > 0 {
		return nil, fmt.Errorf("%w: catalogue has no seller", catalogue.ErrMalformedDocument)
	}
	return doc, nil
}

// csvHeaderIndex parses just the first row of data.
func csvHeaderIndex(data []byte) (map[string]int, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	return indexHeader(header), nil
}

// indexHeader maps lowercase column names to positions.
func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
