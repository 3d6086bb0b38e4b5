package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/flexophore/pkg/errors"
	api "github.com/turtacn/flexophore/pkg/types/descriptor"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 5*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL+"/", opts...)
	require.NoError(t, err)
	return c
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Code: code, Message: msg})
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://localhost:8080/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "flexophore-go-client/")

	for _, bad := range []string{"", "ftp://host", "no-scheme"} {
		_, err := NewClient(bad)
		assert.True(t, errors.IsCode(err, errors.ErrCodeValidation), bad)
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	hc := &http.Client{Timeout: time.Second}
	c, err := NewClient("https://example.com",
		WithHTTPClient(hc),
		WithRetryMax(0),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("custom/1"))
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Zero(t, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "custom/1", c.userAgent)

	WithRetryWait(time.Second, time.Millisecond)(c)
	assert.Equal(t, 2*time.Second, c.retryWaitMax, "inverted bounds are ignored")
}

func TestClient_Do_RequestHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/similarity", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Len(t, r.Header.Get("X-Request-ID"), 36)
		assert.Contains(t, r.Header.Get("User-Agent"), "flexophore-go-client/")
		_ = json.NewEncoder(w).Encode(api.SimilarityResponse{Similarity: 0.5})
	})

	resp, err := c.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.5, resp.Similarity)
}

func TestClient_Do_4xxNoRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeError(w, http.StatusBadRequest, "MOL_001", "molfile parse error")
	})

	_, err := c.CreateDescriptor(context.Background(), "junk")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsBadRequest())
	assert.Equal(t, "MOL_001", apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_Do_5xxRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeError(w, http.StatusServiceUnavailable, "COMMON_008", "service unavailable")
			return
		}
		_ = json.NewEncoder(w).Encode(api.RankResponse{Hits: []api.RankedHit{{Index: 1, Similarity: 0.9}}})
	})

	hits, err := c.Rank(context.Background(), &api.RankRequest{Query: "q", Candidates: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []api.RankedHit{{Index: 1, Similarity: 0.9}}, hits)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_5xxRetryExhausted(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}, WithRetryMax(2))

	err := c.Ready(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "boom", apiErr.Message)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ready(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ValidatesBeforeSending(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := c.CreateDescriptor(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	_, err = c.Rank(context.Background(), &api.RankRequest{Query: "q", MinSimilarity: 2})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestAPIError_Methods(t *testing.T) {
	e := &APIError{StatusCode: 404, Code: "COMMON_005", Message: "not found", Detail: "x", RequestID: "r"}
	assert.True(t, e.IsNotFound())
	assert.False(t, e.IsServerError())
	assert.Equal(t, "flexophore: COMMON_005 (HTTP 404): not found: x [request_id=r]", e.Error())
}
