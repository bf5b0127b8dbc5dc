package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mwerther/catimport/internal/catalogue"
	"github.com/mwerther/catimport/internal/logging"
)

// handleImport accepts a catalogue file upload, runs the import pipeline and
// answers with the receipt once every chunk is scheduled. Chunk execution
// continues in the background; progress is served by handleImportStatus.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readCatalogueFile(w, r)
	if !ok {
		return
	}

	receipt, err := s.importer.Import(r.Context(), filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("catalogue accepted",
		"filename", filename,
		"import_id", receipt.ImportID,
		"products", receipt.Products,
		"chunks", receipt.Chunks,
	)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"import_id": receipt.ImportID,
		"seller_id": receipt.SellerID,
		"products":  receipt.Products,
		"chunks":    receipt.Chunks,
	})
}

// handleDetect runs format detection only. An unrecognized file is reported
// as a warning in the response body, not as an HTTP error: the caller is
// expected to warn the user and stop, exactly like the pre-import check on
// file selection.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := s.readCatalogueFile(w, r)
	if !ok {
		return
	}

	format, supported := s.importer.Detect(filename, data)
	if !supported {
		writeJSON(w, http.StatusOK, map[string]any{
			"supported": false,
			"warning":   "This file '" + filename + "' cannot be imported.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"supported": true,
		"format":    format,
	})
}

// handleImportStatus reports per-chunk progress for one import.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")
	status, ok := s.queue.Status(importID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown import: "+importID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"import_id": importID,
		"scheduled": status.Submitted,
		"completed": status.Completed,
		"failed":    status.Failed,
		"pending":   status.Pending(),
	})
}

// handleFormats lists the registered catalogue formats in detection order.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"formats": catalogue.Formats()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readCatalogueFile extracts the uploaded file from a multipart form,
// enforcing the configured size limit. On failure it writes the error
// response and returns ok=false.
func (s *Server) readCatalogueFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return "", nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty file")
		return "", nil, false
	}
	return header.Filename, data, true
}
