package formats

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mwerther/catimport/internal/catalogue"
)

// xmlParser reads the XML catalogue interchange format:
//
//	<catalogue>
//	  <seller name="Vendor" vat="BE0477472701"/>
//	  <company name="Buyer Corp"/>
//	  <products>
//	    <product barcode="9780201379624">
//	      <code>PRD-1</code>
//	      <name>Widget</name>
//	      <uom>Units</uom>
//	      <currency>EUR</currency>
//	      <price>12.52</price>
//	      <minQty>5</minQty>
//	      <supplierCode>EFG123</supplierCode>
//	      <leadTime>3</leadTime>
//	    </product>
//	  </products>
//	</catalogue>
type xmlParser struct{}

type xmlCatalogue struct {
	XMLName  xml.Name     `xml:"catalogue"`
	Seller   xmlPartner   `xml:"seller"`
	Company  *xmlPartner  `xml:"company"`
	Products []xmlProduct `xml:"products>product"`
}

type xmlPartner struct {
	Name  string `xml:"name,attr"`
	VAT   string `xml:"vat,attr"`
	Email string `xml:"email,attr"`
}

type xmlProduct struct {
	Barcode     string  `xml:"barcode,attr"`
	Code        string  `xml:"code"`
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	UOM         string  `xml:"uom"`
	Currency    string  `xml:"currency"`
	Price       float64 `xml:"price"`
	MinQty      float64 `xml:"minQty"`
	SupplierCode string `xml:"supplierCode"`
	LeadTime    int     `xml:"leadTime"`
	Active      *bool   `xml:"active"`
}

func (xmlParser) Format() string { return "xml" }

// Detect claims anything that looks like an XML document. Broken XML is then
// a malformed document, not an unsupported one.
func (xmlParser) Detect(filename string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(filename), ".xml") {
		return true
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func (xmlParser) Parse(filename string, data []byte) (*catalogue.Document, error) {
	var cat xmlCatalogue
	if err := xml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("%w: file is not XML-compliant: %v", catalogue.ErrMalformedDocument, err)
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
