package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/hammamikhairi/stepchat/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// wav builds a minimal RIFF file with the given format and samples.
func wav(rate, channels, bits int, samples []byte) []byte {
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(samples)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&b, binary.LittleEndian, uint16(channels))
	binary.Write(&b, binary.LittleEndian, uint32(rate))
	binary.Write(&b, binary.LittleEndian, uint32(rate*channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(channels*bits/8))
	binary.Write(&b, binary.LittleEndian, uint16(bits))
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(samples)))
	b.Write(samples)
	return b.Bytes()
}

func TestExtractPCM(t *testing.T) {
	samples := []byte{1, 2, 3, 4}

	got, err := extractPCM(wav(SampleRate, ChannelCount, BitDepth, samples))
	if err != nil || !bytes.Equal(got, samples) {
		t.Fatalf("extractPCM = %v, %v", got, err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", []byte("RIFF"), ErrNotWAV},
		{"not wave", append([]byte("RIFF\x00\x00\x00\x00AVI "), make([]byte, 40)...), ErrNotWAV},
		{"stereo", wav(SampleRate, 2, BitDepth, samples), ErrFormatMismatch},
		{"wrong rate", wav(44100, ChannelCount, BitDepth, samples), ErrFormatMismatch},
		{"no data", wav(SampleRate, ChannelCount, BitDepth, nil)[:36], ErrNoDataChunk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := extractPCM(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSplitChunks(t *testing.T) {
	text := "Boil the pasta. Drain it! Is it ready? Serve."
	if got := splitChunks(text, 0); len(got) != 1 {
		t.Fatalf("chunking disabled: got %v", got)
	}
	got := splitChunks(text, 20)
	want := []string{"Boil the pasta.", "Drain it!", "Is it ready? Serve."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("splitChunks = %q, want %q", got, want)
	}
}

func TestCleanForSpeech(t *testing.T) {
	in := "Here are the tools:\n1. pot\n2. skillet\nhttps://www.google.com/search?q=how+to+boil"
	want := "Here are the tools:\n1, pot\n2, skillet\nthe search link on screen"
	if got := cleanForSpeech(in); got != want {
		t.Fatalf("cleanForSpeech = %q, want %q", got, want)
	}
}

func TestAzureClientSynthesize(t *testing.T) {
	var gotBody, gotKey, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		gotFormat = r.Header.Get("X-Microsoft-OutputFormat")
		w.Write([]byte("audio"))
	}))
	defer srv.Close()

	c := NewAzureClient("secret", "westeurope", logger.New(logger.LevelOff, nil), WithEndpoint(srv.URL), WithVoice("en-GB-SoniaNeural"))
	audio, err := c.Synthesize(context.Background(), "Salt & pepper <to taste>")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(audio) != "audio" {
		t.Fatalf("audio = %q", audio)
	}
	if gotKey != "secret" || gotFormat != DefaultAudioFormat {
		t.Fatalf("headers: key=%q format=%q", gotKey, gotFormat)
	}
	if !strings.Contains(gotBody, "Salt &amp; pepper &lt;to taste&gt;") || !strings.Contains(gotBody, "en-GB-SoniaNeural") {
		t.Fatalf("ssml = %s", gotBody)
	}
}

func TestAzureClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAzureClient("k", "r", logger.New(logger.LevelOff, nil), WithEndpoint(srv.URL))
	if _, err := c.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error")
	}
}

type fakeTTS struct {
	mu    sync.Mutex
	calls map[string]int
	fail  string
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[text]++
	if text == f.fail {
		return nil, errors.New("synthesis failed")
	}
	return []byte(text), nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
}

func (p *fakePlayer) Play(wav []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, string(wav))
	return nil
}

func (p *fakePlayer) Stop() {}

func (p *fakePlayer) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func waitPlayed(t *testing.T, p *fakePlayer, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := p.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d plays, got %v", n, p.snapshot())
	return nil
}

func TestSpeakerPlaysInOrderAndCaches(t *testing.T) {
	tts := &fakeTTS{calls: map[string]int{}, fail: "Drain it!"}
	player := &fakePlayer{}
	s := NewSpeaker(tts, player, logger.New(logger.LevelOff, nil), WithChunkSize(20))
	s.Start(context.Background())
	defer s.Stop()

	s.Say("Boil the pasta. Drain it! Is it ready? Serve.")
	got := waitPlayed(t, player, 2)
	want := []string{"Boil the pasta.", "Is it ready? Serve."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("played %q, want %q", got, want)
	}

	s.Say("Boil the pasta.")
	waitPlayed(t, player, 3)
	tts.mu.Lock()
	defer tts.mu.Unlock()
	if n := tts.calls["Boil the pasta."]; n != 1 {
		t.Fatalf("expected one synthesis for repeated text, got %d", n)
	}
}

func TestSpeakerIgnoresBlankAndStopsCleanly(t *testing.T) {
	s := NewSpeaker(&fakeTTS{calls: map[string]int{}}, &fakePlayer{}, logger.New(logger.LevelOff, nil))
	s.Say("   ")
	if s.Pending() != 0 {
		t.Fatalf("blank text was queued")
	}
	s.Stop() // not started
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}
