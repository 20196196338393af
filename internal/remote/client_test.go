package remote

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

	"github.com/krizium/kidsreading/internal/entities"
)

type fixedMonitor bool

func (m fixedMonitor) IsConnected() bool { return bool(m) }

// newTestClient shrinks the retry delays so tests run fast.
func newTestClient(baseURL string, monitor ConnectivityChecker) *Client {
	c := NewClient(baseURL, time.Second, monitor)
	c.backoffDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	c.ceiling = time.Millisecond
	return c
}

func TestGetAllBooks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books", r.URL.Path)
		json.NewEncoder(w).Encode([]entities.Book{
			{ID: 1, Title: "The Quick Fox"},
			{ID: 2, Title: "Luna the Owl"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	books, err := client.GetAllBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "The Quick Fox", books[0].Title)
}

func TestGetBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/books/7", r.URL.Path)
		json.NewEncoder(w).Encode(entities.Book{ID: 7, Title: "The Quick Fox"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	book, err := client.GetBook(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), book.ID)
}

func TestUpdateProgressPayload(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/progress", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	require.NoError(t, client.UpdateProgress(context.Background(), 1, 5, 3))

	assert.Equal(t, float64(1), payload["user_id"])
	assert.Equal(t, float64(5), payload["book_id"])
	assert.Equal(t, float64(3), payload["page_number"])
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]entities.Book{})
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	_, err := client.GetAllBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	_, err := client.GetBook(context.Background(), 99)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	_, err := client.GetAllBooks(context.Background())
	require.Error(t, err)

	var exhausted *RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	// Initial attempt plus three retries
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDisconnectedFailsFast(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(false))
	_, err := client.GetAllBooks(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no network call should be made while disconnected")
}

func TestContextCancelStopsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, fixedMonitor(true))
	client.backoffDelays = []time.Duration{time.Minute}
	client.ceiling = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetAllBooks(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
