package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/klinikpos/clinicsyncgo/internal/ocr"
	"github.com/klinikpos/clinicsyncgo/internal/outbox"
	"github.com/klinikpos/clinicsyncgo/internal/services/medula"
	"github.com/klinikpos/clinicsyncgo/internal/services/records"
	"github.com/klinikpos/clinicsyncgo/internal/store"
	"github.com/klinikpos/clinicsyncgo/internal/utils"
	"github.com/klinikpos/clinicsyncgo/internal/websocket"
	"github.com/klinikpos/clinicsyncgo/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSlots struct {
	data map[string][]byte
}

func (m *memSlots) LoadSlot(name string) ([]byte, error)       { return m.data[name], nil }
func (m *memSlots) SaveSlot(name string, payload []byte) error { m.data[name] = payload; return nil }

type memJournal struct {
	entries []models.OutboxOperation
}

func (j *memJournal) Append(op *models.OutboxOperation) error {
	j.entries = append(j.entries, *op)
	return nil
}
func (j *memJournal) NextPending(limit int) ([]models.OutboxOperation, error) { return nil, nil }
func (j *memJournal) MarkProcessing(id string) error                          { return nil }
func (j *memJournal) MarkCompleted(id string) error                           { return nil }
func (j *memJournal) MarkRetry(id, attemptErr string) error                   { return nil }
func (j *memJournal) MarkFailed(id, attemptErr string) error                  { return nil }
func (j *memJournal) CountByStatus() (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, e := range j.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newTestRouter(t *testing.T) (*Router, string) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:  "test-secret-key-12345",
		TerminalID: "terminal-test",
	}

	st := store.New(&memSlots{data: make(map[string][]byte)})
	require.NoError(t, st.Load())

	journal := &memJournal{}
	queue := outbox.NewQueue(journal)
	machine := workflow.NewMachine(st, queue)
	svc := records.NewService(st, queue, machine, &ocr.StaticExtractor{})
	dispatcher := outbox.NewDispatcher(journal, cfg.Remote)
	remote := medula.NewClient(cfg.Remote)
	hub := websocket.NewHub()

	router := NewRouter(nil, cfg, st, svc, machine, dispatcher, remote, hub)

	user := &models.UserAuth{ID: "u1", Email: "operator@clinic.local", Role: "operator"}
	token, _, err := utils.GenerateTokens(user, cfg)
	require.NoError(t, err)

	return router, token
}

func doJSON(t *testing.T, router *Router, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheckOpen(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "GET", "/api/stats", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, "GET", "/api/stats", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentCRUDOverHTTP(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/documents", token, records.CreateDocumentInput{
		PatientID:    "p1",
		FileName:     "rapor.pdf",
		DocumentType: models.DocumentTypeRapor,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, models.DocumentStatusPending, doc.Status)

	rec = doJSON(t, router, "GET", "/api/documents/"+doc.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "DELETE", "/api/documents/"+doc.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, "GET", "/api/documents/"+doc.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchRejectsUnknownFields(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "PUT", "/api/documents/doc-seed-1", token, map[string]interface{}{
		"fileName": "renamed.pdf",
		"bogus":    1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "PUT", "/api/ereceipts/erx-seed-1", token, map[string]interface{}{
		"notes": "x",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected patch must not have touched the document.
	rec = doJSON(t, router, "GET", "/api/documents/doc-seed-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.NotEqual(t, "renamed.pdf", doc.FileName)
}

func TestCreateDocumentValidationRejected(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/documents", token, records.CreateDocumentInput{
		PatientID:    "",
		FileName:     "",
		DocumentType: "makbuz",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result records.ValidationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 3)
}

func TestWorkflowTransitionOverHTTP(t *testing.T) {
	router, token := newTestRouter(t)

	// Seed workflow wf-seed-1 is a draft.
	rec := doJSON(t, router, "POST", "/api/workflows/wf-seed-1/transition", token, TransitionRequest{
		Status: models.WorkflowStatusSubmitted,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var wf models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.Equal(t, models.WorkflowStatusSubmitted, wf.CurrentStatus)
	assert.NotNil(t, wf.SubmittedDate)

	// Illegal jump comes back as a conflict.
	rec = doJSON(t, router, "POST", "/api/workflows/wf-seed-1/transition", token, TransitionRequest{
		Status: models.WorkflowStatusPaid,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown workflow.
	rec = doJSON(t, router, "POST", "/api/workflows/wf-missing/transition", token, TransitionRequest{
		Status: models.WorkflowStatusSubmitted,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeliverySlipPDF(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "GET", "/api/ereceipts/erx-seed-1/delivery-slip", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")), "response should be a PDF document")
}

func TestBulkEndpointAlwaysOK(t *testing.T) {
	router, token := newTestRouter(t)

	rec := doJSON(t, router, "POST", "/api/documents/bulk", token, records.BulkRequest{
		Type:        records.BulkTypeSubmit,
		DocumentIDs: []string{"doc-seed-1", "no-such-doc"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result records.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
}

func TestOutboxStatusEndpoint(t *testing.T) {
	router, token := newTestRouter(t)

	// Create something so the queue has entries.
	rec := doJSON(t, router, "POST", "/api/documents", token, records.CreateDocumentInput{
		PatientID:    "p1",
		FileName:     "a.pdf",
		DocumentType: models.DocumentTypeBelge,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, "GET", "/api/outbox/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var counts map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, int64(2), counts[models.OutboxStatusPending], "document POST and workflow POST")
}
