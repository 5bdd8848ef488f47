package outbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method         string
	Path           string
	IdempotencyKey string
}

type fakeRemote struct {
	mu       sync.Mutex
	requests []recordedRequest
	// paths that should answer with HTTP 500
	failPaths map[string]bool
	failOnce  map[string]bool
	server    *httptest.Server
}

func newFakeRemote() *fakeRemote {
	f := &fakeRemote{
		failPaths: make(map[string]bool),
		failOnce:  make(map[string]bool),
	}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method:         r.Method,
			Path:           r.URL.Path,
			IdempotencyKey: r.Header.Get("Idempotency-Key"),
		})
		fail := f.failPaths[r.URL.Path]
		if f.failOnce[r.URL.Path] {
			fail = true
			delete(f.failOnce, r.URL.Path)
		}
		f.mu.Unlock()

		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	return f
}

func (f *fakeRemote) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestDispatcher(journal Journal, baseURL string) *Dispatcher {
	return NewDispatcher(journal, config.RemoteConfig{
		BaseURL:       baseURL,
		DrainInterval: time.Hour, // ticker never fires in tests
		Timeout:       5 * time.Second,
	})
}

func pendingOp(entityType, entityID, method, endpoint string) models.OutboxOperation {
	return models.OutboxOperation{
		ID:             uuid.New().String(),
		EntityType:     entityType,
		EntityID:       entityID,
		Action:         "update",
		Method:         method,
		Endpoint:       endpoint,
		IdempotencyKey: IdempotencyKey("update", entityID, time.Now()),
		Status:         models.OutboxStatusPending,
		MaxRetries:     5,
	}
}

func TestDrainDeliversInOrder(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()

	journal := &memJournal{}
	first := pendingOp("document", "doc-1", "POST", "/documents")
	second := pendingOp("document", "doc-1", "PUT", "/documents/doc-1")
	require.NoError(t, journal.Append(&first))
	require.NoError(t, journal.Append(&second))

	d := newTestDispatcher(journal, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))

	reqs := remote.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "POST", reqs[0].Method)
	assert.Equal(t, "/documents", reqs[0].Path)
	assert.Equal(t, "PUT", reqs[1].Method)

	counts, err := journal.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.OutboxStatusCompleted])
}

func TestFailureBlocksLaterEntriesForSameEntity(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()
	remote.failPaths["/documents/doc-1"] = true

	journal := &memJournal{}
	a1 := pendingOp("document", "doc-1", "PUT", "/documents/doc-1")
	a2 := pendingOp("document", "doc-1", "DELETE", "/documents/doc-1/extra")
	b1 := pendingOp("ereceipt", "erx-1", "POST", "/patients/p1/ereceipts")
	require.NoError(t, journal.Append(&a1))
	require.NoError(t, journal.Append(&a2))
	require.NoError(t, journal.Append(&b1))

	d := newTestDispatcher(journal, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))

	// a1 failed, so a2 is held back this pass; b1 is unaffected.
	paths := []string{}
	for _, r := range remote.recorded() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/documents/doc-1", "/patients/p1/ereceipts"}, paths)

	assert.Equal(t, models.OutboxStatusPending, journal.byID(a1.ID).Status)
	assert.Equal(t, 1, journal.byID(a1.ID).RetryCount)
	assert.Equal(t, models.OutboxStatusPending, journal.byID(a2.ID).Status)
	assert.Equal(t, 0, journal.byID(a2.ID).RetryCount)
	assert.Equal(t, models.OutboxStatusCompleted, journal.byID(b1.ID).Status)
}

func TestFailedReceiptCreateHoldsBackDelivery(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()
	remote.failPaths["/patients/p1/ereceipts"] = true

	journal := &memJournal{}
	create := pendingOp("ereceipt", "erx-1", "POST", "/patients/p1/ereceipts")
	deliver := pendingOp("ereceipt", "erx-1", "PUT", "/patients/p1/ereceipts/erx-1/materials/mat-1/delivery")
	require.NoError(t, journal.Append(&create))
	require.NoError(t, journal.Append(&deliver))

	d := newTestDispatcher(journal, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))

	// The delivery must wait until the receipt exists remotely.
	reqs := remote.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/patients/p1/ereceipts", reqs[0].Path)

	assert.Equal(t, models.OutboxStatusPending, journal.byID(deliver.ID).Status)
	assert.Equal(t, 0, journal.byID(deliver.ID).RetryCount)
}

func TestRetryReusesIdempotencyKey(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()
	remote.failOnce["/documents/doc-1"] = true

	journal := &memJournal{}
	op := pendingOp("document", "doc-1", "PUT", "/documents/doc-1")
	require.NoError(t, journal.Append(&op))

	d := newTestDispatcher(journal, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))
	require.NoError(t, d.DrainOnce(context.Background()))

	reqs := remote.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, reqs[0].IdempotencyKey, reqs[1].IdempotencyKey)
	assert.Equal(t, op.IdempotencyKey, reqs[0].IdempotencyKey)
	assert.Equal(t, models.OutboxStatusCompleted, journal.byID(op.ID).Status)
}

func TestExhaustedRetriesMarkFailed(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()
	remote.failPaths["/documents/doc-1"] = true

	journal := &memJournal{}
	op := pendingOp("document", "doc-1", "PUT", "/documents/doc-1")
	op.RetryCount = 4 // one attempt left
	require.NoError(t, journal.Append(&op))

	d := newTestDispatcher(journal, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))

	stored := journal.byID(op.ID)
	assert.Equal(t, models.OutboxStatusFailed, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Contains(t, *stored.LastError, "HTTP 500")
}

func TestDrainWithEmptyQueue(t *testing.T) {
	remote := newFakeRemote()
	defer remote.server.Close()

	d := newTestDispatcher(&memJournal{}, remote.server.URL)
	require.NoError(t, d.DrainOnce(context.Background()))
	assert.Empty(t, remote.recorded())
}

func TestStartStop(t *testing.T) {
	d := newTestDispatcher(&memJournal{}, "http://localhost:0")
	require.NoError(t, d.Start())
	assert.Error(t, d.Start(), "second Start should report already running")
	d.Stop()
	d.Stop() // idempotent
}
