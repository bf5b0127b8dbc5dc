package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mwerther/catimport/internal/catalogue"
	_ "github.com/mwerther/catimport/internal/catalogue/formats"
	"github.com/mwerther/catimport/internal/config"
	"github.com/mwerther/catimport/internal/queue"
)

// nullStore satisfies catalogue.Store for handler tests. Chunks are never
// executed here (the queue is not started), so only the import-time calls
// matter.
type nullStore struct{}

func (nullStore) FindProductByBarcode(context.Context, string, bool) (*catalogue.Product, error) {
	return nil, nil
}
func (nullStore) OffersForProduct(context.Context, int64) ([]catalogue.Offer, error) {
	return nil, nil
}
func (nullStore) CreateProduct(context.Context, catalogue.ProductVals) (*catalogue.Product, error) {
	return &catalogue.Product{ID: 1}, nil
}
func (nullStore) UpdateProduct(context.Context, int64, catalogue.ProductVals) error { return nil }
func (nullStore) ArchiveProduct(context.Context, int64) error                       { return nil }
func (nullStore) CreateOffer(context.Context, int64, catalogue.OfferVals) (int64, error) {
	return 1, nil
}
func (nullStore) TerminateOffer(context.Context, int64, time.Time) error { return nil }
func (nullStore) RecordSourceDocument(context.Context, string, int64, string, []byte, []string) error {
	return nil
}
func (nullStore) AppendImportLog(context.Context, string, string) error { return nil }
func (s nullStore) WithTx(_ context.Context, fn func(catalogue.Store) error) error {
	return fn(s)
}

// nameResolver resolves partners by exact name from a fixed map.
type nameResolver struct {
	partners map[string]int64
}

func (r nameResolver) MatchPartner(_ context.Context, ref catalogue.PartnerRef, kind catalogue.PartnerKind, required bool, log *catalogue.Chatter) (int64, error) {
	if id, ok := r.partners[ref.Name]; ok {
		return id, nil
	}
	if required {
		return 0, fmt.Errorf("no matching %s: %q", kind, ref.Name)
	}
	log.Addf("no matching %s for %q", kind, ref.Name)
	return 0, nil
}

func (nameResolver) MatchUOM(_ context.Context, _ string, _ *catalogue.Chatter) (int64, error) {
	return 1, nil
}

func (nameResolver) MatchCurrency(_ context.Context, _ string, _ *catalogue.Chatter) (int64, error) {
	return 1, nil
}

func newTestServer(t *testing.T) (*Server, *queue.Queue) {
	t.Helper()

	q := queue.New(queue.Config{Workers: 1, Buffer: 64})
	res := nameResolver{partners: map[string]int64{"Catalogue Vendor": 7}}
	imp := catalogue.NewImporter(nullStore{}, res, q)

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = time.Minute
	cfg.Import.MaxFileSize = 1 << 20

	return NewServer(imp, q, cfg), q
}

// multipartFile builds a multipart body with one "file" field.
func multipartFile(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

const csvUpload = "seller,barcode,name,price\nCatalogue Vendor,9780201379624,Widget,12.52\n"

func postFile(t *testing.T, s *Server, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartFile(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestHandleImport_Accepted(t *testing.T) {
	s, q := newTestServer(t)

	rec := postFile(t, s, "/api/catalogues", "catalogue.csv", csvUpload)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body)
	}

	body := decodeBody(t, rec)
	if body["products"] != float64(1) || body["chunks"] != float64(1) {
		t.Errorf("body = %v, want 1 product in 1 chunk", body)
	}
	importID, _ := body["import_id"].(string)
	if importID == "" {
		t.Fatal("response is missing import_id")
	}

	st, ok := q.Status(importID)
	if !ok || st.Submitted != 1 {
		t.Errorf("queue status = %+v, want 1 submitted chunk", st)
	}
}

func TestHandleImport_UnknownSeller(t *testing.T) {
	s, _ := newTestServer(t)

	upload := "seller,barcode,name,price\nNobody Gmbh,123,Widget,1.00\n"
	rec := postFile(t, s, "/api/catalogues", "catalogue.csv", upload)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body: %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["code"] != "seller_not_found" {
		t.Errorf("code = %v, want seller_not_found", body["code"])
	}
}

func TestHandleImport_MalformedFile(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFile(t, s, "/api/catalogues", "catalogue.xml", "<catalogue><seller")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec)
	if body["code"] != "malformed_document" {
		t.Errorf("code = %v, want malformed_document", body["code"])
	}
}

func TestHandleImport_NoFile(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/catalogues", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDetect(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFile(t, s, "/api/catalogues/detect", "catalogue.csv", csvUpload)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["supported"] != true || body["format"] != "csv" {
		t.Errorf("body = %v, want supported csv", body)
	}
}

func TestHandleDetect_UnsupportedWarns(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFile(t, s, "/api/catalogues/detect", "scan.pdf", "%PDF-1.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (detection failure is a warning)", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["supported"] != false {
		t.Errorf("supported = %v, want false", body["supported"])
	}
	if body["warning"] != "This file 'scan.pdf' cannot be imported." {
		t.Errorf("warning = %q", body["warning"])
	}
}

func TestHandleImportStatus_Unknown(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleImportStatus_TracksScheduledChunks(t *testing.T) {
	s, _ := newTestServer(t)

	rec := postFile(t, s, "/api/catalogues", "catalogue.csv", csvUpload)
	importID := decodeBody(t, rec)["import_id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/imports/"+importID, nil)
	statusRec := httptest.NewRecorder()
	s.router.ServeHTTP(statusRec, req)

	if statusRec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", statusRec.Code)
	}
	body := decodeBody(t, statusRec)
	if body["scheduled"] != float64(1) || body["pending"] != float64(1) {
		t.Errorf("body = %v, want 1 scheduled, 1 pending", body)
	}
}

func TestHandleFormats(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, "xml") || !strings.Contains(got, "csv") {
		t.Errorf("formats response %q should list the registered parsers", got)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{catalogue.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, "unsupported_format"},
		{catalogue.ErrMalformedDocument, http.StatusBadRequest, "malformed_document"},
		{catalogue.ErrEmptyCatalogue, http.StatusBadRequest, "empty_catalogue"},
		{catalogue.ErrSellerNotFound, http.StatusUnprocessableEntity, "seller_not_found"},
		{catalogue.ErrQueueFull, http.StatusServiceUnavailable, "queue_full"},
		{fmt.Errorf("wrapped: %w", catalogue.ErrMalformedDocument), http.StatusBadRequest, "malformed_document"},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		status, code := classify(tt.err)
		if status != tt.wantStatus || code != tt.wantCode {
			t.Errorf("classify(%v) = %d, %q, want %d, %q", tt.err, status, code, tt.wantStatus, tt.wantCode)
		}
	}
}
