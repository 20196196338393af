// Package audiocache stores synthesized speech audio on disk, addressed by
// a key derived from the spoken text itself. Identical text (case
// insensitive) always maps to one artifact, across every book.
package audiocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

const audioExtension = ".mp3"

// sentenceKeyLength is the truncated hex digest length used for multi-word
// text.
const sentenceKeyLength = 20

// ErrNotFound is returned by Get for keys with no cached artifact.
var ErrNotFound = errors.New("audio not cached")

// ErrSynthesisFailed wraps a gateway failure; no artifact is written for a
// failed synthesis.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Synthesizer is the external speech provider: text in, audio bytes out.
// Treated as slow, unreliable and paid, which is the entire reason this
// cache exists.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// inflight tracks one in-progress synthesis so duplicate concurrent callers
// wait for its result instead of re-synthesizing.
type inflight struct {
	done chan struct{}
	err  error
}

// Cache is a content-addressed audio store with at-most-one in-flight
// synthesis per key. The guarantee is process-local.
type Cache struct {
	dir     string
	gateway Synthesizer

	mu       sync.Mutex
	inFlight map[string]*inflight
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, gateway Synthesizer) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audio cache dir: %w", err)
	}
	return &Cache{
		dir:      dir,
		gateway:  gateway,
		inFlight: make(map[string]*inflight),
	}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives the cache key for a piece of text: single words collapse to
// their sanitized lowercase form; multi-word text becomes a truncated
// digest of the normalized text, keeping key length bounded while identical
// sentences still share one artifact.
func Key(text string) string {
	normalized := normalize(text)
	if normalized == "" {
		return ""
	}
	if !strings.Contains(normalized, " ") {
		return sanitizeKey(normalized)
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:sentenceKeyLength]
}

// IsCached reports whether an artifact exists for the key.
func (c *Cache) IsCached(key string) bool {
	if key == "" {
		return false
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Get returns the cached audio bytes for a key, or ErrNotFound.
func (c *Cache) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GenerateAndCache returns the cache key for text, synthesizing and storing
// the audio on a miss. The gateway is invoked at most once per key: a hit
// returns immediately, and a concurrent caller for the same key awaits the
// first caller's result. A gateway failure surfaces as ErrSynthesisFailed
// and leaves no artifact behind.
func (c *Cache) GenerateAndCache(ctx context.Context, text string) (string, error) {
	key := Key(text)
	if key == "" {
		return "", fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}

	for {
		if c.IsCached(key) {
			return key, nil
		}

		c.mu.Lock()
		if flight, ok := c.inFlight[key]; ok {
			c.mu.Unlock()
			select {
			case <-flight.done:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			if flight.err == nil {
				return key, nil
			}
			// The other caller failed; retry the loop so this caller can
			// attempt its own synthesis.
			continue
		}
		flight := &inflight{done: make(chan struct{})}
		c.inFlight[key] = flight
		c.mu.Unlock()

		flight.err = c.synthesize(ctx, key, text)

		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
		close(flight.done)

		if flight.err != nil {
			return "", flight.err
		}
		return key, nil
	}
}

// Sweep removes every artifact whose key is not in referenced and returns
// how many were removed. Used by the explicit reclamation pass after books
// leave offline storage; artifacts are never removed as a side effect of a
// single book's removal because keys are shared across books.
func (c *Cache) Sweep(referenced map[string]struct{}) (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*"+audioExtension))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range matches {
		key := strings.TrimSuffix(filepath.Base(path), audioExtension)
		if _, ok := referenced[key]; ok {
			continue
		}

		c.mu.Lock()
		_, busy := c.inFlight[key]
		c.mu.Unlock()
		if busy {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) synthesize(ctx context.Context, key, text string) error {
	audio, err := c.gateway.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("%w for %q: %v", ErrSynthesisFailed, text, err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("%w for %q: gateway returned no audio", ErrSynthesisFailed, text)
	}

	// Temp file + rename keeps concurrent readers away from partial writes.
	tmpFile, err := os.CreateTemp(c.dir, ".tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(audio); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, c.path(key))
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+audioExtension)
}

// normalize lowercases and collapses internal whitespace.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// sanitizeKey strips runes that are unsafe in a file name based key.
func sanitizeKey(word string) string {
	var b strings.Builder
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
