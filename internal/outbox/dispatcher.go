package outbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/models"
)

const drainBatchSize = 25

// Dispatcher drains the outbox against the remote backend, independently of
// the callers that enqueued the entries. Entries are replayed sequentially in
// insertion order; when a delivery fails, later entries for the same entity
// are held back for that pass so per-entity FIFO ordering survives retries.
type Dispatcher struct {
	mu       sync.Mutex
	journal  Journal
	client   *http.Client
	baseURL  string
	apiKey   string
	interval time.Duration

	running  bool
	stopChan chan struct{}
}

// NewDispatcher creates an outbox dispatcher for the given remote backend.
func NewDispatcher(journal Journal, cfg config.RemoteConfig) *Dispatcher {
	return &Dispatcher{
		journal:  journal,
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		interval: cfg.DrainInterval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background drain loop.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("outbox dispatcher already running")
	}
	d.running = true

	go d.drainLoop()
	log.Println("✅ Outbox dispatcher started")
	return nil
}

// Stop terminates the drain loop.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}
	d.running = false
	close(d.stopChan)
	log.Println("🛑 Outbox dispatcher stopped")
}

func (d *Dispatcher) drainLoop() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.DrainOnce(context.Background()); err != nil {
				log.Printf("⚠️ Outbox drain error: %v", err)
			}
		case <-d.stopChan:
			return
		}
	}
}

// DrainOnce processes one batch of pending entries. Exported so the status
// API can trigger an immediate drain.
func (d *Dispatcher) DrainOnce(ctx context.Context) error {
	ops, err := d.journal.NextPending(drainBatchSize)
	if err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}

	// Entities whose earlier entry failed this pass; their later entries must
	// wait, otherwise the remote would observe operations out of order.
	blocked := make(map[string]bool)

	for _, op := range ops {
		key := op.EntityType + ":" + op.EntityID
		if blocked[key] {
			continue
		}

		if err := d.journal.MarkProcessing(op.ID); err != nil {
			log.Printf("⚠️ Outbox: failed to claim entry %s: %v", op.ID, err)
			continue
		}

		if err := d.deliver(ctx, op); err != nil {
			blocked[key] = true
			if op.RetryCount+1 >= op.MaxRetries {
				log.Printf("❌ Outbox: entry %s exhausted retries: %v", op.ID, err)
				if mErr := d.journal.MarkFailed(op.ID, err.Error()); mErr != nil {
					log.Printf("⚠️ Outbox: failed to mark entry %s failed: %v", op.ID, mErr)
				}
				continue
			}
			log.Printf("⚠️ Outbox: delivery of %s failed (attempt %d/%d): %v",
				op.ID, op.RetryCount+1, op.MaxRetries, err)
			if mErr := d.journal.MarkRetry(op.ID, err.Error()); mErr != nil {
				log.Printf("⚠️ Outbox: failed to requeue entry %s: %v", op.ID, mErr)
			}
			continue
		}

		if err := d.journal.MarkCompleted(op.ID); err != nil {
			log.Printf("⚠️ Outbox: failed to mark entry %s completed: %v", op.ID, err)
		}
	}
	return nil
}

// deliver replays one entry against the remote backend. The entry's stored
// idempotency key is reused on every attempt, so the server collapses
// duplicate deliveries into a single effective mutation.
func (d *Dispatcher) deliver(ctx context.Context, op models.OutboxOperation) error {
	var body io.Reader
	if len(op.Payload) > 0 {
		body = bytes.NewReader(op.Payload)
	}

	req, err := http.NewRequestWithContext(ctx, op.Method, d.baseURL+op.Endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", op.IdempotencyKey)
	if d.apiKey != "" {
		req.Header.Set("X-Api-Key", d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote rejected %s %s: HTTP %d, response: %s",
			op.Method, op.Endpoint, resp.StatusCode, string(data))
	}

	log.Printf("✅ Outbox: delivered %s %s (HTTP %d)", op.Method, op.Endpoint, resp.StatusCode)
	return nil
}

// Status returns entry counts by status.
func (d *Dispatcher) Status() (map[string]int64, error) {
	return d.journal.CountByStatus()
}
