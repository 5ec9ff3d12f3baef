package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/docfields/internal/config"
	"github.com/foxxcyber/docfields/internal/database"
	"github.com/foxxcyber/docfields/internal/middleware"
	"github.com/foxxcyber/docfields/internal/models"
	"github.com/foxxcyber/docfields/internal/services"
	"github.com/foxxcyber/docfields/internal/storage"
)

type fakeExtractor struct {
	text       string
	recognized []string
	err        error
}

func (f *fakeExtractor) Recognize(_ context.Context, cacheKey, documentPath string) (string, error) {
	f.recognized = append(f.recognized, documentPath)
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeExtractor) Extract(_ context.Context, fileID, strategy, text string, schema models.FieldSchema) (*models.ExtractionEnvelope, error) {
	result := models.NewEmptyResult(schema)
	for key, spec := range schema {
		if strings.Contains(text, spec.Name) {
			result[key] = spec.Name
		}
	}
	return &models.ExtractionEnvelope{FileID: fileID, Strategy: strategy, Result: result, RawText: text}, nil
}

type fakeHistory struct {
	mu          sync.Mutex
	documents   map[string]*models.Document
	extractions []*models.CreateExtractionRequest
	failCreate  bool
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{documents: map[string]*models.Document{}}
}

func (f *fakeHistory) CreateDocument(_ context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("database down")
	}
	doc := &models.Document{ID: req.ID, Extension: req.Extension, StorageKey: req.StorageKey, SizeBytes: req.SizeBytes}
	f.documents[req.ID] = doc
	return doc, nil
}

func (f *fakeHistory) GetDocument(_ context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.documents[id]
	if !ok {
		return nil, database.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeHistory) CreateExtraction(_ context.Context, req *models.CreateExtractionRequest) (*models.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions = append(f.extractions, req)
	return &models.Extraction{ID: len(f.extractions), DocumentID: req.DocumentID}, nil
}

func (f *fakeHistory) ListExtractions(_ context.Context, documentID string, limit, offset int) ([]*models.Extraction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Extraction
	for i, req := range f.extractions {
		if req.DocumentID == documentID {
			out = append(out, &models.Extraction{ID: i + 1, DocumentID: documentID, Strategy: req.Strategy, Status: req.Status})
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

type testServer struct {
	app       *fiber.App
	dir       string
	store     *storage.LocalStore
	extractor *fakeExtractor
	history   *fakeHistory
}

func newTestServer(t *testing.T, withHistory bool) *testServer {
	t.Helper()
	cfg := &config.Config{
		MaxFileSize:       64,
		AllowedExtensions: []string{"jpg", "jpeg", "png", "pdf"},
	}
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)

	ts := &testServer{
		dir:       dir,
		store:     store,
		extractor: &fakeExtractor{text: "Company ACME\nVergi No 12345678901"},
	}

	var history History
	if withHistory {
		ts.history = newFakeHistory()
		history = ts.history
	}

	h := NewDocumentHandler(cfg, store, ts.extractor, history, zerolog.Nop())
	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	ts.app.Get("/health", Health)
	h.RegisterRoutes(ts.app.Group("/api"))
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) (int, APIResponse) {
	t.Helper()
	resp, err := ts.app.Test(req, int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out APIResponse
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out), string(body))
	}
	return resp.StatusCode, out
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/file-upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func extractRequest(t *testing.T, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/ocr", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (ts *testServer) upload(t *testing.T) string {
	t.Helper()
	status, resp := ts.do(t, uploadRequest(t, "invoice.PNG", []byte("png-bytes")))
	require.Equal(t, http.StatusOK, status, resp.Error)
	data := resp.Data.(map[string]any)
	return data["file_id"].(string)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy"}`, string(body))
}

func TestUpload(t *testing.T) {
	ts := newTestServer(t, true)

	id := ts.upload(t)
	doc, err := ts.store.Find(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "png", doc.Extension)
	assert.Contains(t, ts.history.documents, id)
}

type recordingStore struct {
	*storage.LocalStore
	saved []models.Document
}

func (r *recordingStore) Save(ctx context.Context, doc *models.Document, content io.Reader) error {
	r.saved = append(r.saved, *doc)
	return r.LocalStore.Save(ctx, doc, content)
}

func TestUploadPassesSizeAndContentTypeToStore(t *testing.T) {
	local, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	store := &recordingStore{LocalStore: local}

	cfg := &config.Config{MaxFileSize: 64, AllowedExtensions: []string{"png"}}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	NewDocumentHandler(cfg, store, &fakeExtractor{}, nil, zerolog.Nop()).RegisterRoutes(app.Group("/api"))

	content := []byte("png-bytes")
	resp, err := app.Test(uploadRequest(t, "scan.png", content))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, store.saved, 1)
	assert.Equal(t, int64(len(content)), store.saved[0].SizeBytes)
	require.NotNil(t, store.saved[0].ContentType)
	assert.Equal(t, "application/octet-stream", *store.saved[0].ContentType)
}

func TestUploadRejections(t *testing.T) {
	ts := newTestServer(t, false)

	status, resp := ts.do(t, uploadRequest(t, "notes.txt", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.Success)

	status, _ = ts.do(t, uploadRequest(t, "noext", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, uploadRequest(t, "big.jpg", bytes.Repeat([]byte("x"), 65)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)

	req := httptest.NewRequest(http.MethodPost, "/api/file-upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	status, _ = ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUploadRollsBackWhenRecordFails(t *testing.T) {
	ts := newTestServer(t, true)
	ts.history.failCreate = true

	status, _ := ts.do(t, uploadRequest(t, "scan.pdf", []byte("%PDF-1.4")))
	assert.Equal(t, http.StatusInternalServerError, status)

	entries, err := os.ReadDir(ts.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtract(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.upload(t)

	status, resp := ts.do(t, extractRequest(t, map[string]any{
		"file_id": id,
		"ocr":     "ocr",
		"fields": map[string]any{
			"company": map[string]any{"name": "Company", "description": "", "type": "string"},
			"iban":    map[string]any{"name": "IBAN", "description": "", "type": "string"},
		},
	}))
	require.Equal(t, http.StatusOK, status, resp.Error)

	data := resp.Data.(map[string]any)
	assert.Equal(t, id, data["file_id"])
	assert.Equal(t, "ocr", data["ocr"])
	assert.Equal(t, "Company ACME\nVergi No 12345678901", data["raw_ocr"])
	assert.Equal(t, map[string]any{"company": "Company", "iban": nil}, data["result"])

	require.Len(t, ts.history.extractions, 1)
	assert.Equal(t, models.ExtractionStatusCompleted, ts.history.extractions[0].Status)

	status, resp = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/"+id+"/extractions?limit=5", nil))
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.Total)
	assert.Equal(t, 5, resp.Meta.Limit)
}

func TestExtractErrorStatuses(t *testing.T) {
	ts := newTestServer(t, false)
	id := ts.upload(t)

	cases := []struct {
		name string
		body any
		want int
	}{
		{"unknown strategy", map[string]any{"file_id": id, "ocr": "easyocr", "fields": map[string]any{}}, http.StatusBadRequest},
		{"missing file id", map[string]any{"ocr": "ocr"}, http.StatusBadRequest},
		{"bad field type", map[string]any{"file_id": id, "ocr": "ocr", "fields": map[string]any{
			"total": map[string]any{"name": "Total", "type": "decimal"},
		}}, http.StatusBadRequest},
		{"unknown document", map[string]any{"file_id": "4f1c2a7e-aaaa-bbbb-cccc-0123456789ab", "ocr": "llm_ocr"}, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := ts.do(t, extractRequest(t, tc.body))
			assert.Equal(t, tc.want, status)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Empty(t, ts.extractor.recognized)
}

func TestExtractProcessingFailure(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.upload(t)
	ts.extractor.err = &services.ExtractionError{Kind: services.ErrUnreadableDocument, Message: "tesseract failed"}

	status, resp := ts.do(t, extractRequest(t, map[string]any{"file_id": id, "ocr": "ocr"}))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, resp.Error, "unreadable document")

	require.Len(t, ts.history.extractions, 1)
	assert.Equal(t, models.ExtractionStatusFailed, ts.history.extractions[0].Status)
	assert.Contains(t, ts.history.extractions[0].ErrorMessage, "tesseract failed")
}

func TestListExtractionsUnknownDocument(t *testing.T) {
	ts := newTestServer(t, true)

	status, _ := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/4f1c2a7e-aaaa-bbbb-cccc-0123456789ab/extractions", nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/not-a-uuid/extractions", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHistoryRouteAbsentWithoutDatabase(t *testing.T) {
	ts := newTestServer(t, false)
	status, _ := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/documents/4f1c2a7e-aaaa-bbbb-cccc-0123456789ab/extractions", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(services.ErrInvalidStrategy))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrInvalidSchema))
	assert.Equal(t, http.StatusNotFound, statusFor(storage.ErrDocumentNotFound))
	assert.Equal(t, http.StatusNotFound, statusFor(database.ErrDocumentNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.ErrBackendUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestRoutesEnforceTokenScopes(t *testing.T) {
	cfg := &config.Config{
		MaxFileSize:       64,
		AllowedExtensions: []string{"png"},
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
	}
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	history := newFakeHistory()

	ts := &testServer{app: fiber.New(fiber.Config{ErrorHandler: ErrorHandler}), history: history}
	h := NewDocumentHandler(cfg, store, &fakeExtractor{text: "Company ACME"}, history, zerolog.Nop())
	h.RegisterRoutes(ts.app.Group("/api", middleware.AuthRequired(cfg)))

	viewer, err := middleware.IssueToken(cfg, "dashboard", []string{middleware.ScopeHistory}, time.Hour)
	require.NoError(t, err)
	scanner, err := middleware.IssueToken(cfg, "scanner", []string{middleware.ScopeUpload, middleware.ScopeExtract}, time.Hour)
	require.NoError(t, err)

	withToken := func(req *http.Request, token string) *http.Request {
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	status, _ := ts.do(t, withToken(uploadRequest(t, "scan.png", []byte("png")), viewer))
	assert.Equal(t, http.StatusForbidden, status)

	status, resp := ts.do(t, withToken(uploadRequest(t, "scan.png", []byte("png")), scanner))
	require.Equal(t, http.StatusOK, status, resp.Error)
	id := resp.Data.(map[string]any)["file_id"].(string)

	status, _ = ts.do(t, withToken(extractRequest(t, map[string]any{"file_id": id, "ocr": "ocr"}), viewer))
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = ts.do(t, withToken(extractRequest(t, map[string]any{"file_id": id, "ocr": "ocr"}), scanner))
	require.Equal(t, http.StatusOK, status, resp.Error)
	require.Len(t, history.extractions, 1)
	assert.Equal(t, "scanner", history.extractions[0].ClientID)

	listing := httptest.NewRequest(http.MethodGet, "/api/documents/"+id+"/extractions", nil)
	status, _ = ts.do(t, withToken(listing, scanner))
	assert.Equal(t, http.StatusForbidden, status)

	listing = httptest.NewRequest(http.MethodGet, "/api/documents/"+id+"/extractions", nil)
	status, _ = ts.do(t, withToken(listing, viewer))
	assert.Equal(t, http.StatusOK, status)
}

func TestExtractWithoutAuthRecordsNoClient(t *testing.T) {
	ts := newTestServer(t, true)
	id := ts.upload(t)

	status, _ := ts.do(t, extractRequest(t, map[string]any{"file_id": id, "ocr": "ocr"}))
	require.Equal(t, http.StatusOK, status)
	require.Len(t, ts.history.extractions, 1)
	assert.Empty(t, ts.history.extractions[0].ClientID)
}
