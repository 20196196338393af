package tts

import (
	"context"
	"log"
	"sync"
)

// AudioSource resolves text to playable audio, typically the audio cache.
type AudioSource interface {
	GenerateAndCache(ctx context.Context, text string) (string, error)
	Get(key string) ([]byte, error)
}

// Player consumes audio bytes until playback finishes or its context is
// cancelled.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Speaker speaks a single utterance at a time. Starting a new Speak cancels
// any outstanding one; cancellation is cooperative and does not touch the
// bulk pre-caching pipeline, which runs on its own contexts.
type Speaker struct {
	source AudioSource
	player Player

	mu         sync.Mutex
	cancel     context.CancelFunc
	generation uint64
}

// NewSpeaker creates a speaker playing audio from source through player.
func NewSpeaker(source AudioSource, player Player) *Speaker {
	return &Speaker{source: source, player: player}
}

// Speak resolves the text to cached audio and plays it, cancelling any
// speech already in progress. A cancelled utterance is not an error.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	speakCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		// A newer Speak may have installed its own cancel func already.
		if s.generation == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	key, err := s.source.GenerateAndCache(speakCtx, text)
	if err != nil {
		if speakCtx.Err() != nil {
			return nil
		}
		return err
	}

	audio, err := s.source.Get(key)
	if err != nil {
		return err
	}

	if err := s.player.Play(speakCtx, audio); err != nil {
		if speakCtx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Cancel stops any speech in progress.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		log.Printf("Cancelled in-progress speech")
	}
}
