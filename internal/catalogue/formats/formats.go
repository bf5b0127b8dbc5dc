// Package formats registers the concrete catalogue parser plugins with the
// catalogue registry. Import this package to make all formats available.
package formats

import "github.com/mwerther/catimport/internal/catalogue"

// Registration order is the detection trial order.
func init() {
	catalogue.RegisterParser(xmlParser{})
	catalogue.RegisterParser(yamlParser{})
	catalogue.RegisterParser(csvParser{})
}
