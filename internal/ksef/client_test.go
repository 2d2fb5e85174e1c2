package ksef_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-cost-sync/internal/ksef"
)

func TestListPurchaseInvoices_Pagination(t *testing.T) {
	// two full-looking pages, then a final short one
	pages := [][]string{
		{"ksef-1", "ksef-2"},
		{"ksef-3"},
	}
	var requests []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/query/invoice/incremental", r.URL.Path)
		assert.Equal(t, "secret-token", r.Header.Get("SessionToken"))
		assert.Equal(t, "subject2", r.URL.Query().Get("subjectType"))
		requests = append(requests, r.URL.Query().Get("pageOffset"))

		pageIdx := len(requests) - 1
		require.Less(t, pageIdx, len(pages), "client requested more pages than exist")

		headers := make([]map[string]string, 0, len(pages[pageIdx]))
		for _, id := range pages[pageIdx] {
			headers = append(headers, map[string]string{
				"ksefReferenceNumber":  id,
				"invoiceNumber":        "FV/" + id,
				"invoicingDate":        "2026-02-01T00:00:00Z",
				"acquisitionTimestamp": "2026-02-02T10:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"invoiceHeaderList": headers,
			"hasMore":           pageIdx < len(pages)-1,
		})
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "secret-token")
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	headers, err := client.ListPurchaseInvoices(context.Background(), from, to)
	require.NoError(t, err)

	require.Len(t, headers, 3)
	assert.Equal(t, "ksef-1", headers[0].KSeFID)
	assert.Equal(t, "FV/ksef-3", headers[2].Number)
	assert.Equal(t, []string{"0", "100"}, requests, "offset advances by one page size")
}

func TestListPurchaseInvoices_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "stale-token")
	_, err := client.ListPurchaseInvoices(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "session expired")
}

func TestFetchInvoice(t *testing.T) {
	doc := []byte(`<Faktura><Fa><P_2>FV/1</P_2></Fa></Faktura>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/invoice/ksef-1", r.URL.Path)
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "token")
	got, err := client.FetchInvoice(context.Background(), "ksef-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/invoice/send", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"elementReferenceNumber": "ref-42",
			"processingDescription":  "accepted",
		})
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "token")
	result, err := client.Submit(context.Background(), []byte("<Faktura/>"))
	require.NoError(t, err)
	assert.Equal(t, "ref-42", result.ReferenceNumber)
	assert.Equal(t, "accepted", result.Status)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/invoice/status/ref-42", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"elementReferenceNumber": "ref-42",
			"processingCode":         200,
			"processingDescription":  "processed",
			"ksefReferenceNumber":    "5260305006-20260210-AAAA11112222-AA",
			"upoAvailable":           true,
		})
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "token")
	status, err := client.Status(context.Background(), "ref-42")
	require.NoError(t, err)
	assert.Equal(t, 200, status.Code)
	assert.True(t, status.UPOAvailable)
	assert.NotEmpty(t, status.KSeFID)
}

func TestFetchInvoice_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "token")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchInvoice(ctx, "ksef-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDownloadUPO(t *testing.T) {
	upo := []byte("signed receipt bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/api/common/status/%s/upo", "ref-42"), r.URL.Path)
		_, _ = w.Write(upo)
	}))
	defer srv.Close()

	client := ksef.NewHTTPClient(srv.URL, "token")
	got, err := client.DownloadUPO(context.Background(), "ref-42")
	require.NoError(t, err)
	assert.Equal(t, upo, got)
}
