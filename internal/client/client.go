// Package client is a typed HTTP client for the PumpBot API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/upload"
	"go.uber.org/zap"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int                    `json:"-"`
	Label   string                 `json:"error"`
	Reasons []string               `json:"errors"`
	Hint    string                 `json:"hint"`
	Details map[string]interface{} `json:"details"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d: %s", e.Status, e.Label)
	if len(e.Reasons) > 0 {
		msg += " (" + strings.Join(e.Reasons, "; ") + ")"
	}
	return msg
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Health is the server health report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
}

type launchesResponse struct {
	Launches []models.RecentLaunch `json:"launches"`
	Count    int                   `json:"count"`
}

// Client talks to one PumpBot server.
type Client struct {
	baseURL string
	http    *resty.Client
	logger  *zap.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger.Named("api_client"),
	}
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UploadImage sends a local image file.
func (c *Client) UploadImage(ctx context.Context, path string) (*upload.Image, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect image type: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var out upload.Image
	req := c.http.R().
		SetContext(ctx).
		SetMultipartField("image", filepath.Base(path), mtype.String(), f)
	if err := c.do(req, http.MethodPost, "/api/images", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Prepare requests an unsigned launch transaction.
func (c *Client) Prepare(ctx context.Context, in launch.PrepareRequest) (*launch.UnsignedLaunch, error) {
	var out launch.UnsignedLaunch
	if err := c.do(c.http.R().SetContext(ctx).SetBody(in), http.MethodPost, "/api/launch/prepare", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Confirm registers a broadcast launch.
func (c *Client) Confirm(ctx context.Context, in launch.ConfirmRequest) (*launch.Confirmation, error) {
	var out launch.Confirmation
	if err := c.do(c.http.R().SetContext(ctx).SetBody(in), http.MethodPost, "/api/launch/confirm", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Launches returns the newest launches.
func (c *Client) Launches(ctx context.Context, limit int) ([]models.RecentLaunch, error) {
	var out launchesResponse
	req := c.http.R().SetContext(ctx)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if err := c.do(req, http.MethodGet, "/api/launches", &out); err != nil {
		return nil, err
	}
	return out.Launches, nil
}

// Tokens returns one page of the registry.
func (c *Client) Tokens(ctx context.Context, q registry.Query) (*registry.Page, error) {
	params := map[string]string{}
	for k, v := range map[string]string{"page": q.Page, "limit": q.Limit, "sort": q.Sort, "order": q.Order} {
		if v != "" {
			params[k] = v
		}
	}
	var out registry.Page
	if err := c.do(c.http.R().SetContext(ctx).SetQueryParams(params), http.MethodGet, "/api/tokens", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Token returns one registry record.
func (c *Client) Token(ctx context.Context, address string) (*models.TokenLaunch, error) {
	var out models.TokenLaunch
	req := c.http.R().SetContext(ctx).SetPathParam("address", address)
	if err := c.do(req, http.MethodGet, "/api/tokens/{address}", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.do(c.http.R().SetContext(ctx), http.MethodGet, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *resty.Request, method, path string, out interface{}) error {
	apiErr := &APIError{}
	resp, err := req.SetResult(out).SetError(apiErr).Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Label == "" {
			apiErr.Label = http.StatusText(resp.StatusCode())
		}
		c.logger.Debug("API error",
			zap.String("path", path),
			zap.Int("status", apiErr.Status),
			zap.String("error", apiErr.Label))
		return apiErr
	}
	return nil
}
