package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/akozlovs/vinotes/internal/retryx"
)

// HTTPClient talks JSON to the reference persistence server. Reads retry
// transient failures under the shared retry policy; writes are attempted
// once, because mutation retry is the sync engine's job.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	policy  retryx.Policy
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		policy:  retryx.DefaultPolicy(),
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (c *HTTPClient) CreateRecord(ctx context.Context, rec *models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.call(ctx, http.MethodPost, "/api/records", rec, &out); err != nil {
		return nil, fmt.Errorf("creating record %s: %w", rec.ID, err)
	}
	return &out, nil
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, id string, rec *models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.call(ctx, http.MethodPut, "/api/records/"+id, rec, &out); err != nil {
		return nil, fmt.Errorf("updating record %s: %w", id, err)
	}
	return &out, nil
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, id string) error {
	if err := c.call(ctx, http.MethodDelete, "/api/records/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting record %s: %w", id, err)
	}
	return nil
}

func (c *HTTPClient) FetchRecord(ctx context.Context, id string) (*models.Record, error) {
	var out models.Record
	err := retryx.Do(ctx, c.policy, func(ctx context.Context) error {
		err := c.call(ctx, http.MethodGet, "/api/records/"+id, nil, &out)
		if isClientSide(err) {
			return retryx.Permanent(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("fetching record %s: %w", id, err)
	}
	return &out, nil
}

func (c *HTTPClient) FetchUserRecords(ctx context.Context, userID string) ([]*models.Record, error) {
	var out []*models.Record
	err := retryx.Do(ctx, c.policy, func(ctx context.Context) error {
		err := c.call(ctx, http.MethodGet, "/api/users/"+userID+"/records", nil, &out)
		if isClientSide(err) {
			return retryx.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetching records for user %s: %w", userID, err)
	}
	return out, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return retryx.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.call(ctx, http.MethodGet, "/api/ping", nil, nil)
	})
}

// call performs one request and decodes the envelope. Non-2xx statuses map
// to the sentinel taxonomy via statusError.
func (c *HTTPClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := resp.Status
		var env envelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && env.Error != "" {
			detail = env.Error
		}
		return statusError(resp.StatusCode, detail)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

// isClientSide reports whether the error came from a 4xx mapping, where a
// transport-level retry cannot change the answer.
func isClientSide(err error) bool {
	return errors.Is(err, common.ErrorNotFound) ||
		errors.Is(err, common.ErrorValidation) ||
		errors.Is(err, common.ErrVersionConflict)
}
