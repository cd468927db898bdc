// Package client calls a running loan approval server over its JSON API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"loan-approval/internal/api"
	"loan-approval/internal/applicant"
	"loan-approval/internal/common"
	"loan-approval/internal/ml"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Client is a prediction API client. It is safe for concurrent use.
type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the server at base, e.g. "http://localhost:8501".
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict sends rec to the prediction endpoint. Schema and missing value
// rejections come back as *ml.SchemaMismatchError and *ml.MissingValueError.
func (c *Client) Predict(ctx context.Context, rec applicant.Record) (ml.Result, error) {
	req := api.PredictRequest{Applicant: rec, RequestID: uuid.NewString()}

	var out api.PredictResponse
	var apiErr api.ErrorResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.base + api.PredictPath)
	if err != nil {
		return ml.Result{}, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return ml.Result{}, toError(resp.StatusCode(), apiErr, resp.String())
	}
	if out.RequestID != req.RequestID {
		return ml.Result{}, fmt.Errorf("response for request %q, want %q", out.RequestID, req.RequestID)
	}
	return out.Result(), nil
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var health api.HealthResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&health).
		Get(c.base + api.HealthPath)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return &health, nil
}

func toError(status int, apiErr api.ErrorResponse, body string) error {
	switch apiErr.Kind {
	case common.ErrKindSchemaMismatch:
		if len(apiErr.Missing) == 0 && len(apiErr.Invalid) == 0 {
			return &ml.SchemaMismatchError{Missing: apiErr.Fields}
		}
		return &ml.SchemaMismatchError{Missing: apiErr.Missing, Invalid: apiErr.Invalid}
	case common.ErrKindMissingValue:
		return &ml.MissingValueError{Fields: apiErr.Fields}
	case "":
		return fmt.Errorf("API error: status %d, body: %s", status, body)
	default:
		return fmt.Errorf("API error: status %d, %s: %s", status, apiErr.Kind, apiErr.Error)
	}
}
