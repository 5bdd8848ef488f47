package medula

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klinikpos/clinicsyncgo/internal/config"
	"github.com/klinikpos/clinicsyncgo/internal/models"
)

// Client talks to the Medula-style backend directly. Only read-side calls
// live here: every mutation goes through the outbox so the whole engine keeps
// one consistency model (optimistic local-first with replay).
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a remote read client.
func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// PatientRights is the coverage answer for a patient's national id.
type PatientRights struct {
	NationalID string     `json:"nationalId"`
	Covered    bool       `json:"covered"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// GetWorkflow fetches the server-side view of a workflow.
func (c *Client) GetWorkflow(ctx context.Context, id string) (models.Workflow, error) {
	var w models.Workflow
	if err := c.getJSON(ctx, "/workflows/"+id, &w); err != nil {
		return models.Workflow{}, err
	}
	return w, nil
}

// QueryPatientRights checks coverage for a national id.
func (c *Client) QueryPatientRights(ctx context.Context, nationalID string) (*PatientRights, error) {
	var rights PatientRights
	if err := c.getJSON(ctx, "/patients/"+nationalID+"/rights", &rights); err != nil {
		return nil, err
	}
	return &rights, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("remote GET %s: HTTP %d, response: %s", path, resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}
