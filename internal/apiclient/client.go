// Package apiclient is an HTTP client for the touchstone API.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/touchstone3d/semseg/internal/api"
	"github.com/touchstone3d/semseg/internal/config"
	"github.com/touchstone3d/semseg/internal/evaluator"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request returned status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	client  *resty.Client
	BaseURL string
	// CompressRequests zstd-encodes evaluation payloads.
	CompressRequests bool
}

func New(cfg *config.ClientEnvConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetTimeout(cfg.ClientTimeout).
		SetRetryCount(cfg.RetryCount).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// only reads are safe to repeat
			return err == nil && r.Request.Method == http.MethodGet && r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{client: client, BaseURL: cfg.BaseURL}, nil
}

func do[T any](ctx context.Context, req *resty.Request, method, path string) (T, error) {
	var (
		zero    T
		result  api.StdResponse[T]
		failure api.StdResponse[map[string]any]
	)
	resp, err := req.
		SetContext(ctx).
		SetResult(&result).
		SetError(&failure).
		Execute(method, path)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return zero, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := resp.String()
		if failure.Error != nil {
			msg = *failure.Error
		}
		log.Debug().Int("status", resp.StatusCode()).Str("path", path).Str("error", msg).Msg("non-2xx response")
		return zero, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	if result.Error != nil {
		return zero, fmt.Errorf("response error: %s", *result.Error)
	}
	return result.Body, nil
}

func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	return do[api.HealthResponse](ctx, c.client.R(), http.MethodGet, "/health")
}

// Evaluate submits predictions and ground truth for scoring.
func (c *Client) Evaluate(ctx context.Context, req evaluator.EvaluationRequest) (*evaluator.EvaluationResult, error) {
	r := c.client.R().SetHeader("Content-Type", "application/json")
	if c.CompressRequests {
		raw, err := sonic.Marshal(req)
		if err != nil {
			return nil, err
		}
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		body := enc.EncodeAll(raw, nil)
		if err := enc.Close(); err != nil {
			return nil, err
		}
		r.SetHeader("Content-Encoding", "zstd").SetBody(body)
	} else {
		r.SetBody(req)
	}
	return do[*evaluator.EvaluationResult](ctx, r, http.MethodPost, "/evaluate")
}

func (c *Client) GetRun(ctx context.Context, runID string) (*evaluator.EvaluationResult, error) {
	return do[*evaluator.EvaluationResult](ctx, c.client.R().SetPathParam("id", runID), http.MethodGet, "/runs/{id}")
}

func (c *Client) LatestRun(ctx context.Context) (*evaluator.EvaluationResult, error) {
	return do[*evaluator.EvaluationResult](ctx, c.client.R(), http.MethodGet, "/runs/latest")
}

func (c *Client) ListRuns(ctx context.Context, limit int) ([]*evaluator.EvaluationResult, error) {
	r := c.client.R()
	if limit > 0 {
		r.SetQueryParam("limit", strconv.Itoa(limit))
	}
	return do[[]*evaluator.EvaluationResult](ctx, r, http.MethodGet, "/runs")
}

func (c *Client) DatasetInfo(ctx context.Context) (api.DatasetInfo, error) {
	return do[api.DatasetInfo](ctx, c.client.R(), http.MethodGet, "/dataset")
}

func (c *Client) GetSample(ctx context.Context, index int) (api.SampleResponse, error) {
	return do[api.SampleResponse](ctx, c.client.R().SetPathParam("index", strconv.Itoa(index)), http.MethodGet, "/dataset/samples/{index}")
}
