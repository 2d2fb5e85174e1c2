package ksef

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second

	// the query endpoint caps one page of results
	pageSize = 100
)

// Client is the exchange surface the rest of the service consumes. Session
// and retry mechanics live behind this boundary.
type Client interface {
	// ListPurchaseInvoices returns the headers of every purchase invoice
	// acquired in the date range. Pagination is handled internally.
	ListPurchaseInvoices(ctx context.Context, from, to time.Time) ([]InvoiceHeader, error)

	// FetchInvoice downloads one invoice's raw FA document by exchange id
	FetchInvoice(ctx context.Context, ksefID string) ([]byte, error)

	// Submit sends an encoded document to the exchange
	Submit(ctx context.Context, doc []byte) (*SubmitResult, error)

	// Status polls the processing state of a submission
	Status(ctx context.Context, referenceNumber string) (*SubmitStatus, error)

	// DownloadUPO fetches the proof-of-receipt for a processed submission
	DownloadUPO(ctx context.Context, referenceNumber string) ([]byte, error)
}

// HTTPClient talks to the exchange's REST API
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// ClientOption configures the client
type ClientOption func(*HTTPClient)

// WithTimeout sets a custom HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.httpClient = hc
	}
}

// NewHTTPClient creates an exchange client for the given API base URL and
// access token
func NewHTTPClient(baseURL, token string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryPage struct {
	Invoices []InvoiceHeader `json:"invoiceHeaderList"`
	HasMore  bool            `json:"hasMore"`
}

// ListPurchaseInvoices pages through the query endpoint until exhausted
func (c *HTTPClient) ListPurchaseInvoices(ctx context.Context, from, to time.Time) ([]InvoiceHeader, error) {
	var all []InvoiceHeader
	for offset := 0; ; offset += pageSize {
		q := url.Values{
			"subjectType":    {"subject2"},
			"acquiredAfter":  {from.UTC().Format(time.RFC3339)},
			"acquiredBefore": {to.UTC().Format(time.RFC3339)},
			"pageSize":       {fmt.Sprint(pageSize)},
			"pageOffset":     {fmt.Sprint(offset)},
		}
		var page queryPage
		if err := c.getJSON(ctx, "/api/query/invoice/incremental?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("list purchase invoices: %w", err)
		}
		all = append(all, page.Invoices...)
		if !page.HasMore || len(page.Invoices) == 0 {
			break
		}
	}
	return all, nil
}

// FetchInvoice downloads the raw FA XML of one invoice
func (c *HTTPClient) FetchInvoice(ctx context.Context, ksefID string) ([]byte, error) {
	body, err := c.get(ctx, "/api/invoice/"+url.PathEscape(ksefID))
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", ksefID, err)
	}
	return body, nil
}

// Submit sends a document for processing
func (c *HTTPClient) Submit(ctx context.Context, doc []byte) (*SubmitResult, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/api/invoice/send", bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var result SubmitResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("submit invoice: %w", err)
	}
	return &result, nil
}

// Status polls a submission's processing state
func (c *HTTPClient) Status(ctx context.Context, referenceNumber string) (*SubmitStatus, error) {
	var status SubmitStatus
	if err := c.getJSON(ctx, "/api/invoice/status/"+url.PathEscape(referenceNumber), &status); err != nil {
		return nil, fmt.Errorf("submission status %s: %w", referenceNumber, err)
	}
	return &status, nil
}

// DownloadUPO fetches the signed proof-of-receipt as binary
func (c *HTTPClient) DownloadUPO(ctx context.Context, referenceNumber string) ([]byte, error) {
	body, err := c.get(ctx, "/api/common/status/"+url.PathEscape(referenceNumber)+"/upo")
	if err != nil {
		return nil, fmt.Errorf("download upo %s: %w", referenceNumber, err)
	}
	return body, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("SessionToken", c.token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("exchange returned %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}
