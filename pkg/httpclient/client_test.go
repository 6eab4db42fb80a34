package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "usd-coin", r.URL.Query().Get("ids"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"usd-coin":{"usd":1.0}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{APIKeyHeader: "x-api-key", APIKey: "secret"}, zap.NewNop())
	defer c.Close()

	var out map[string]map[string]float64
	err := c.GetJSON(context.Background(), srv.URL, map[string]string{"ids": "usd-coin"}, &out)
	require.NoError(t, err)
	require.Equal(t, 1.0, out["usd-coin"]["usd"])
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(HTTPClientConfig{}, zap.NewNop())
	defer c.Close()

	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusTooManyRequests, httpErr.Code)
}
