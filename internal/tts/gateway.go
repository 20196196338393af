// Package tts talks to the external speech-synthesis provider and drives
// interactive playback.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSynthesizer calls a speech-synthesis HTTP API: text in, audio bytes
// out. The provider is rate limited and billed per call, so callers are
// expected to cache results.
type HTTPSynthesizer struct {
	httpClient *http.Client
	baseURL    string
	voice      string
}

// NewHTTPSynthesizer creates a synthesis client for the provider at
// baseURL.
func NewHTTPSynthesizer(baseURL, voice string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSynthesizer{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		voice:      voice,
	}
}

// Synthesize converts text to speech audio.
func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	payload, err := json.Marshal(map[string]string{
		"text":  text,
		"voice": s.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/synthesize", s.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", text, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesis provider returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio response: %w", err)
	}
	return audio, nil
}
