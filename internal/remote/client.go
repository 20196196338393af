// Package remote implements the network-backed content source for the
// catalog/progress API.
//
// Every call runs under a fixed retry policy: up to 3 retries with delays
// of 1s, 3s and 7s, then a flat 15s for anything beyond the table. Client
// errors (4xx) abort immediately; transport errors and server errors (5xx)
// retry until the budget is exhausted. Calls made while the connectivity
// monitor reports disconnected fail fast without touching the network.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/krizium/kidsreading/internal/entities"
)

const defaultMaxRetries = 3

// Retry delays per attempt; attempts past the table wait the flat ceiling.
var defaultBackoffDelays = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	7 * time.Second,
}

const backoffCeiling = 15 * time.Second

// ErrUnavailable is returned without attempting the network when the
// connectivity monitor reports disconnected.
var ErrUnavailable = errors.New("remote API unavailable: network disconnected")

// StatusError is a non-retryable client-class remote failure (4xx).
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote API returned status %d for %s", e.Code, e.URL)
}

// RetriesExhaustedError wraps the last cause after the retry budget is
// spent.
type RetriesExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("remote request failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.LastErr }

// ConnectivityChecker reports the last known network state.
type ConnectivityChecker interface {
	IsConnected() bool
}

// Client fetches book content and pushes reading progress over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	monitor    ConnectivityChecker

	maxRetries    int
	backoffDelays []time.Duration
	ceiling       time.Duration
}

// NewClient creates a remote API client. baseURL is the API root, e.g.
// "https://api.kidsreadingapp.com/api".
func NewClient(baseURL string, timeout time.Duration, monitor ConnectivityChecker) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		monitor:       monitor,
		maxRetries:    defaultMaxRetries,
		backoffDelays: defaultBackoffDelays,
		ceiling:       backoffCeiling,
	}
}

// GetAllBooks fetches the full catalog without content trees.
func (c *Client) GetAllBooks(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	if err := c.getJSON(ctx, fmt.Sprintf("%s/books", c.baseURL), &books); err != nil {
		return nil, err
	}
	return books, nil
}

// GetBook fetches a single book with its full content tree.
func (c *Client) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := c.getJSON(ctx, fmt.Sprintf("%s/books/%d", c.baseURL, id), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// GetPage fetches one page with paragraphs and words.
func (c *Client) GetPage(ctx context.Context, bookID uint, pageNumber int) (*entities.Page, error) {
	var page entities.Page
	url := fmt.Sprintf("%s/books/%d/pages/%d", c.baseURL, bookID, pageNumber)
	if err := c.getJSON(ctx, url, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateProgress posts a reading-progress update. The API reports success
// or failure through the status code only.
func (c *Client) UpdateProgress(ctx context.Context, userID, bookID uint, pageNumber int) error {
	payload := map[string]any{
		"user_id":     userID,
		"book_id":     bookID,
		"page_number": pageNumber,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal progress payload: %w", err)
	}

	url := fmt.Sprintf("%s/progress", c.baseURL)
	return c.withRetries(ctx, url, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		return statusToError(resp.StatusCode, url)
	})
}

// getJSON performs a GET under the retry policy and decodes the response
// into out.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	return c.withRetries(ctx, url, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := statusToError(resp.StatusCode, url); err != nil {
			io.Copy(io.Discard, resp.Body)
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response from %s: %w", url, err)
		}
		return nil
	})
}

func (c *Client) withRetries(ctx context.Context, url string, call func() error) error {
	if c.monitor != nil && !c.monitor.IsConnected() {
		return ErrUnavailable
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.ceiling
			if attempt <= len(c.backoffDelays) {
				delay = c.backoffDelays[attempt-1]
			}
			log.Printf("Retrying request to %s after %v (attempt %d of %d)", url, delay, attempt, c.maxRetries)
			if err := sleepCtx(ctx, delay); err != nil {
				return err
			}
		}

		attempts++
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			// Client errors are not retryable.
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Request to %s failed: %v", url, err)
	}

	return &RetriesExhaustedError{Attempts: attempts, LastErr: lastErr}
}

// statusToError maps a response status to nil (2xx), a StatusError (4xx)
// or a retryable error (anything else).
func statusToError(code int, url string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500:
		return &StatusError{Code: code, URL: url}
	default:
		return fmt.Errorf("remote API returned status %d for %s", code, url)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
