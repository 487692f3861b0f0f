package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s3cret", r.Header.Get("X-Api-Key"))
		w.Write([]byte("feed contents"))
	}))
	defer server.Close()

	body, err := HTTPGet(
		context.Background(),
		server.URL,
		map[string]string{"X-Api-Key": "s3cret"},
		GetOptions{Timeout: 5 * time.Second},
	)
	require.NoError(t, err)
	assert.Equal(t, []byte("feed contents"), body)
}

func TestHTTPGetNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := HTTPGet(context.Background(), server.URL, nil, GetOptions{})
	assert.ErrorContains(t, err, "status 503")
}

func TestHTTPGetMaxSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1024))
	}))
	defer server.Close()

	body, err := HTTPGet(context.Background(), server.URL, nil, GetOptions{MaxSize: 100})
	require.NoError(t, err)
	assert.Len(t, body, 100)
}

func TestHTTPGetContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := HTTPGet(ctx, server.URL, nil, GetOptions{})
	assert.Error(t, err)
}
