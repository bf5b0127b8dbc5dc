package catalogue

import (
	"errors"
	"fmt"
	"sync"
)

// Parser is one catalogue format plugin. Detect must be cheap: it confirms
// the format without materializing the full document. Parse may assume
// Detect returned true and must fail on broken input of its own format.
type Parser interface {
	// Format is the unique key of the plugin, e.g. "xml".
	Format() string

	Detect(filename string, data []byte) bool

	Parse(filename string, data []byte) (*Document, error)
}

var (
	parsers    = make(map[string]Parser)
	parseOrder []string
	registryMu sync.RWMutex
)

// RegisterParser adds a format plugin to the registry. Plugins are tried in
// registration order. Panics if the format key is already registered.
func RegisterParser(p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := p.Format()
	if _, exists := parsers[key]; exists {
		panic(fmt.Sprintf("catalogue parser already registered: %s", key))
	}
	parsers[key] = p
	parseOrder = append(parseOrder, key)
}

// Formats returns the registered format keys in trial order.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]string(nil), parseOrder...)
}

// ClearParsers removes all registered parsers. Primarily useful for testing.
func ClearParsers() {
	registryMu.Lock()
	defer registryMu.Unlock()
	parsers = make(map[string]Parser)
	parseOrder = nil
}

// DetectFormat runs detection only. It reports the first format that claims
// the input, or ok=false when the file is unsupported.
func DetectFormat(filename string, data []byte) (format string, ok bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, key := range parseOrder {
		if parsers[key].Detect(filename, data) {
			return key, true
		}
	}
	return "", false
}

// ParseDocument dispatches to the first parser that recognizes the input.
// A parser failing on its own format yields ErrMalformedDocument; input no
// parser claims yields ErrUnsupportedFormat.
func ParseDocument(filename string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data provided", ErrMalformedDocument)
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, key := range parseOrder {
		p := parsers[key]
		if !p.Detect(filename, data) {
			continue
		}
		doc, err := p.Parse(filename, data)
		if err != nil {
			if errors.Is(err, ErrMalformedDocument) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, key, err)
		}
		if doc.Attachments == nil {
			doc.Attachments = make(map[string][]byte)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}
