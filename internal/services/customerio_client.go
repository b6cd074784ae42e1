package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/fossabot/hull-customerio/internal/models"
	"github.com/fossabot/hull-customerio/internal/ratelimit"
)

const (
	DefaultTrackURL  = "https://track.customer.io"
	DefaultChunkSize = 30
	defaultTimeout   = 10 * time.Second
)

// ErrUnauthorized matches any APIError carrying HTTP 401.
var ErrUnauthorized = errors.New("customer.io rejected the credentials")

// APIError is returned for every non-200 response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("customer.io %s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// CustomerioOptions configures a CustomerioClient.
type CustomerioOptions struct {
	BaseURL   string
	SiteID    string
	APIKey    string
	Timeout   time.Duration
	ChunkSize int
	// Limiter is shared by every mutating call of one tenant.
	Limiter *ratelimit.Scheduler
}

// CustomerioClient talks to the customer.io track API.
type CustomerioClient struct {
	baseURL   string
	siteID    string
	apiKey    string
	chunkSize int
	client    *http.Client
	limiter   *ratelimit.Scheduler
}

// NewCustomerioClient creates a new CustomerioClient.
func NewCustomerioClient(opts CustomerioOptions) *CustomerioClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultTrackURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &CustomerioClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		siteID:    strings.TrimSpace(opts.SiteID),
		apiKey:    strings.TrimSpace(opts.APIKey),
		chunkSize: opts.ChunkSize,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: opts.Limiter,
	}
}

// IsConfigured reports whether both credentials are present. It never calls
// the network.
func (c *CustomerioClient) IsConfigured() bool {
	return c.siteID != "" && c.apiKey != ""
}

// CheckAuth probes the credentials. Invalid credentials return false without
// an error; any other failure is returned.
func (c *CustomerioClient) CheckAuth(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/auth", nil, false)
	if errors.Is(err, ErrUnauthorized) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Identify creates or updates a customer. Payloads wider than the chunk size
// are sent as several sequential calls; the first failing chunk stops the run
// and earlier chunks stay applied.
func (c *CustomerioClient) Identify(ctx context.Context, id string, attrs models.Attributes) error {
	path := customerPath(id)
	chunks := ChunkAttributes(attrs, c.chunkSize)
	for i, chunk := range chunks {
		if err := c.do(ctx, http.MethodPut, path, chunk, true); err != nil {
			return fmt.Errorf("identify chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// DeleteCustomer removes a customer.
func (c *CustomerioClient) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, customerPath(id), nil, true)
}

// SendEvent tracks a named event for a customer.
func (c *CustomerioClient) SendEvent(ctx context.Context, id, name string, data models.Attributes) error {
	body := models.CustomerEvent{Name: name, Data: data}
	return c.do(ctx, http.MethodPost, customerPath(id)+"/events", body, true)
}

// SendPageEvent tracks a page view for a customer.
func (c *CustomerioClient) SendPageEvent(ctx context.Context, id, page string, data models.Attributes) error {
	body := models.CustomerEvent{Type: "page", Name: page, Data: data}
	return c.do(ctx, http.MethodPost, customerPath(id)+"/events", body, true)
}

// SendAnonymousEvent tracks an event that is not tied to a customer.
func (c *CustomerioClient) SendAnonymousEvent(ctx context.Context, name string, data models.Attributes) error {
	body := models.CustomerEvent{Name: name, Data: data}
	return c.do(ctx, http.MethodPost, "/api/v1/events", body, true)
}

func customerPath(id string) string {
	return "/api/v1/customers/" + url.PathEscape(id)
}

func (c *CustomerioClient) do(ctx context.Context, method, path string, body any, throttled bool) error {
	if throttled && c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.siteID, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Anything but 200 is a failure, 201 and 204 included.
	if resp.StatusCode != http.StatusOK {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	}
	return nil
}

// ChunkAttributes splits a payload into pieces of at most size attributes.
// email and created_at identify the customer and ride on the first piece on
// top of its size; the rest are spread in key order.
func ChunkAttributes(attrs models.Attributes, size int) []models.Attributes {
	if size <= 0 {
		size = DefaultChunkSize
	}

	first := models.Attributes{}
	var keys []string
	for k, v := range attrs {
		if k == "email" || k == models.TraitCreatedAt {
			first[k] = v
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chunks := []models.Attributes{first}
	filled := 0
	for _, k := range keys {
		if filled == size {
			chunks = append(chunks, models.Attributes{})
			filled = 0
		}
		chunks[len(chunks)-1][k] = attrs[k]
		filled++
	}
	return chunks
}
