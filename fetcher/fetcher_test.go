package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	payload := []byte("some video bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	data, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), server.URL+"/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	data, err := NewHTTPFetcher(0).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), server.URL+"/missing.mp4")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "missing.mp4")
}

func TestFetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcherWithClient(server.Client()).Fetch(ctx, server.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), "://bad")
	assert.Error(t, err)
}
