package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Compile-time interface check.
var _ AudioPlayer = (*Player)(nil)

// WAV decoding errors.
var (
	ErrNotWAV         = errors.New("not a RIFF/WAVE file")
	ErrNoDataChunk    = errors.New("data chunk not found in WAV")
	ErrFormatMismatch = errors.New("WAV format does not match the audio device")
)

// AudioPlayer plays synthesized audio. Play blocks until playback ends or
// Stop is called.
type AudioPlayer interface {
	Play(wav []byte) error
	Stop()
}

// Player plays 16-bit mono PCM WAV data through oto.
type Player struct {
	ctx    *oto.Context
	log    *logger.Logger
	mu     sync.Mutex
	active *oto.Player // nil when idle
}

// NewPlayer initializes the system audio context. It fails when no audio
// device is available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays WAV audio synchronously.
func (p *Player) Play(wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(pcm))

	ticker := time.NewTicker(10 * time.Millisecond)
	for player.IsPlaying() {
		<-ticker.C
	}
	ticker.Stop()

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()
	return player.Close()
}

// Stop interrupts the current playback, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

// extractPCM walks the RIFF chunks, checks the fmt chunk against the
// device format and returns the raw samples of the data chunk.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8
		end := min(body+size, len(wav))

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			channels := int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			rate := int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			bits := int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
			if channels != ChannelCount || rate != SampleRate || bits != BitDepth {
				return nil, fmt.Errorf("%w: %d Hz, %d channel(s), %d bit", ErrFormatMismatch, rate, channels, bits)
			}
		case "data":
			return wav[body:end], nil
		}

		pos = body + size
		if size%2 != 0 { // chunks are word-aligned
			pos++
		}
	}
	return nil, ErrNoDataChunk
}
