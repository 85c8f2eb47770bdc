package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuelApiClient_Hello(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/hello", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte("Hello, World!"))
	}))
	defer srv.Close()

	text, err := NewDuelApiClient(srv.URL + "/").Hello(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", text)
}

func TestDuelApiClient_HelloStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewDuelApiClient(srv.URL).Hello(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Contains(t, statusErr.Body, "down for maintenance")
}

func TestDuelApiClient_HelloCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDuelApiClient(srv.URL).Hello(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
