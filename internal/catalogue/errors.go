package catalogue

import "errors"

// Sentinel errors for the import pipeline. Handlers match them with
// errors.Is to choose the user-facing response.
var (
	// ErrUnsupportedFormat means no registered parser recognized the file.
	// At detection time this is a warning; at import time it aborts the run.
	ErrUnsupportedFormat = errors.New("unsupported catalogue format")

	// ErrMalformedDocument means a parser recognized the format but the
	// document is broken. Always fatal, nothing is scheduled.
	ErrMalformedDocument = errors.New("malformed catalogue document")

	// ErrEmptyCatalogue means the document parsed but lists no products.
	ErrEmptyCatalogue = errors.New("catalogue has no products")

	// ErrMissingBarcode marks a line without the product's natural key.
	// Per line only: the line is logged and skipped, the chunk continues.
	ErrMissingBarcode = errors.New("product line has no barcode")

	// ErrSellerNotFound means the catalogue's seller could not be resolved.
	// Fatal: no chunk is scheduled without a resolved seller.
	ErrSellerNotFound = errors.New("catalogue seller not found")

	// ErrQueueFull means the task queue rejected a chunk submission.
	ErrQueueFull = errors.New("task queue is full")
)
