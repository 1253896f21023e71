package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeakerOption configures the Speaker.
type SpeakerOption func(*Speaker)

// WithChunkSize sets the approximate max characters per synthesis request.
// Longer text is split at sentence boundaries and synthesized in parallel.
func WithChunkSize(n int) SpeakerOption {
	return func(s *Speaker) {
		s.chunkSize = n
	}
}

// WithVoiceKey sets the voice name mixed into cache keys, so switching
// voices never replays audio from the old one.
func WithVoiceKey(voice string) SpeakerOption {
	return func(s *Speaker) {
		s.voice = voice
	}
}

// Speaker serializes speech: queue -> chunk -> synthesize (parallel) ->
// play (sequential). Only one reply is spoken at a time. Identical text is
// synthesized once per process.
type Speaker struct {
	tts       Synthesizer
	player    AudioPlayer
	log       *logger.Logger
	chunkSize int
	voice     string

	mu          sync.Mutex
	queue       []string
	interrupted bool
	speaking    bool
	cache       map[string][]byte
	notify      chan struct{}
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSpeaker creates a speaker. Call Start before Say has any effect.
func NewSpeaker(tts Synthesizer, player AudioPlayer, log *logger.Logger, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		tts:       tts,
		player:    player,
		log:       log,
		chunkSize: 200,
		voice:     DefaultVoice,
		cache:     make(map[string][]byte),
		notify:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Say queues text to be spoken after anything already queued. Non-blocking.
func (s *Speaker) Say(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, text)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default: // already signaled
	}
}

// SayNow drops the queue, cuts off current playback and speaks text.
func (s *Speaker) SayNow(text string) {
	s.Interrupt()
	s.Say(text)
}

// Interrupt clears the queue and stops playback mid-reply.
func (s *Speaker) Interrupt() {
	s.mu.Lock()
	s.queue = s.queue[:0]
	s.interrupted = true
	s.mu.Unlock()
	s.player.Stop()
}

// Pending returns the number of queued replies.
func (s *Speaker) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Speaking reports whether a reply is being synthesized or played, or
// one is waiting in the queue.
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking || len(s.queue) > 0
}

// Start runs the speech loop in the background. Non-blocking.
func (s *Speaker) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		s.loop(ctx)
	}(s.done)
	s.log.Info("speaker started")
}

// Stop ends the loop and waits for it. Queued replies are dropped.
func (s *Speaker) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.player.Stop()
	<-done
	s.log.Info("speaker stopped")
}

func (s *Speaker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			s.drain(ctx)
		}
	}
}

func (s *Speaker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		text := s.queue[0]
		s.queue = s.queue[1:]
		s.interrupted = false
		s.speaking = true
		s.mu.Unlock()

		s.speak(ctx, text)

		s.mu.Lock()
		s.speaking = false
		s.mu.Unlock()
	}
}

// speak synthesizes every chunk of text concurrently, then plays them in
// order. A failed chunk is skipped.
func (s *Speaker) speak(ctx context.Context, text string) {
	chunks := splitChunks(text, s.chunkSize)
	audio := make([][]byte, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, chunk := range chunks {
		g.Go(func() error {
			data, err := s.synthesize(gctx, chunk)
			if err != nil {
				s.log.Error("speaker: chunk %d synthesis failed: %v", i, err)
				return nil
			}
			audio[i] = data
			return nil
		})
	}
	g.Wait()

	for i, data := range audio {
		if data == nil || ctx.Err() != nil || s.wasInterrupted() {
			continue
		}
		if err := s.player.Play(data); err != nil {
			s.log.Error("speaker: chunk %d playback failed: %v", i, err)
		}
	}
}

func (s *Speaker) wasInterrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interrupted
}

func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	key := s.cacheKey(text)
	s.mu.Lock()
	data, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()
	return data, nil
}

func (s *Speaker) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.voice + ":" + text))
	return hex.EncodeToString(sum[:])
}

// splitChunks breaks text into sentence-boundary chunks of roughly size
// characters. Size 0 disables chunking.
func splitChunks(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence) > size {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits at . ! ? and newlines, keeping the punctuation
// with the sentence it ends.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if r := runes[i]; r == '.' || r == '!' || r == '?' || r == '\n' {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
