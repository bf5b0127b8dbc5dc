package formats

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mwerther/catimport/internal/catalogue"
)

// yamlParser reads the YAML catalogue interchange format:
//
//	seller:
//	  name: Vendor
//	products:
//	  - barcode: "9780201379624"
//	    name: Widget
//	    price: 12.52
//	    currency: EUR
type yamlParser struct{}

type yamlCatalogue struct {
	Seller   yamlPartner   `yaml:"seller"`
	Company  *yamlPartner  `yaml:"company"`
	Products []yamlProduct `yaml:"products"`
}

type yamlPartner struct {
	Name  string `yaml:"name"`
	VAT   string `yaml:"vat"`
	Email string `yaml:"email"`
}

type yamlProduct struct {
	Barcode     string  `yaml:"barcode"`
	Code        string  `yaml:"code"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	UOM         string  `yaml:"uom"`
	Currency    string  `yaml:"currency"`
	Price       float64 `yaml:"price"`
	MinQty      float64 `yaml:"min_qty"`
	SupplierCode string `yaml:"supplier_code"`
	LeadTime    int     `yaml:"lead_time"`
	Active      *bool   `yaml:"active"`
}

func (yamlParser) Format() string { return "yaml" }

// Detect goes by filename only. YAML is too permissive to sniff from content
// without shadowing the other formats.
func (yamlParser) Detect(filename string, data []byte) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func (yamlParser) Parse(filename string, data []byte) (*catalogue.Document, error) {
	var cat yamlCatalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: file is not valid YAML: %v", catalogue.ErrMalformedDocument, err)
	}
	if cat.Seller.Name == "" {
		return nil, fmt.Errorf("%w: catalogue has no seller", catalogue.ErrMalformedDocument)
	}

	doc := &catalogue.Document{
		Seller: catalogue.PartnerRef(cat.Seller),
	}
	if cat.Company != nil {
		company := catalogue.PartnerRef(*cat.Company)
		doc.Company = &company
	}
	for _, p := range cat.Products {
		doc.Products = append(doc.Products, catalogue.ProductLine{
			Barcode:     p.Barcode,
			Code:        p.Code,
			Name:        p.Name,
			Description: p.Description,
			UOM:         p.UOM,
			Currency:    p.Currency,
			Price:       p.Price,
			MinQty:      p.MinQty,
			ProductCode: p.SupplierCode,
			SaleDelay:   p.LeadTime,
			Active:      p.Active,
		})
	}
	return doc, nil
}
