package speech

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/stepchat/internal/logger"
)

// scriptedTranscriber returns the scripted clips in order, then blocks
// until the context ends.
type scriptedTranscriber struct {
	mu    sync.Mutex
	clips []string
	calls int
}

func (s *scriptedTranscriber) Transcribe(ctx context.Context, _ time.Duration) (string, error) {
	s.mu.Lock()
	s.calls++
	if len(s.clips) > 0 {
		clip := s.clips[0]
		s.clips = s.clips[1:]
		s.mu.Unlock()
		return clip, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *scriptedTranscriber) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeMouth struct {
	mu          sync.Mutex
	speaking    bool
	said        []string
	interrupted int
}

func (m *fakeMouth) Say(text string) {
	m.mu.Lock()
	m.said = append(m.said, text)
	m.mu.Unlock()
}

func (m *fakeMouth) Interrupt() {
	m.mu.Lock()
	m.interrupted++
	m.mu.Unlock()
}

func (m *fakeMouth) Speaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func runEar(t *testing.T, ear *Ear) (context.CancelFunc, <-chan struct{}) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ear.Run(ctx)
	}()
	return cancel, done
}

func receive(t *testing.T, ear *Ear) string {
	t.Helper()
	select {
	case got := <-ear.C():
		return got
	case <-time.After(2 * time.Second):
		t.Fatal("no command heard")
		return ""
	}
}

func TestEarCommandInOneBreath(t *testing.T) {
	tr := &scriptedTranscriber{clips: []string{"[BLANK_AUDIO]", "Hey chef, go to step 2"}}
	ear := NewEar(tr, logger.New(logger.LevelOff, nil))
	cancel, done := runEar(t, ear)

	if got := receive(t, ear); got != "go to step 2" {
		t.Fatalf("heard %q", got)
	}
	cancel()
	<-done
}

func TestEarListensAfterBareWakeWord(t *testing.T) {
	tr := &scriptedTranscriber{clips: []string{
		"what a nice day",
		"hey chef",
		"how much",
		"butter do I need",
		"",
		"(keyboard clicking)",
	}}
	mouth := &fakeMouth{}
	ear := NewEar(tr, logger.New(logger.LevelOff, nil), WithMouth(mouth), WithListenGrace(0))
	cancel, done := runEar(t, ear)

	if got := receive(t, ear); got != "how much butter do I need" {
		t.Fatalf("heard %q", got)
	}
	cancel()
	<-done

	mouth.mu.Lock()
	defer mouth.mu.Unlock()
	if mouth.interrupted != 1 {
		t.Errorf("mouth interrupted %d times, want 1", mouth.interrupted)
	}
	if len(mouth.said) != 1 || mouth.said[0] != listeningCue {
		t.Errorf("mouth said %v", mouth.said)
	}
}

func TestEarWaitsWhileSpeaking(t *testing.T) {
	tr := &scriptedTranscriber{clips: []string{"hey chef next"}}
	mouth := &fakeMouth{speaking: true}
	ear := NewEar(tr, logger.New(logger.LevelOff, nil), WithMouth(mouth))
	cancel, done := runEar(t, ear)

	time.Sleep(50 * time.Millisecond)
	if n := tr.callCount(); n != 0 {
		t.Fatalf("recorded %d clips while speaking", n)
	}

	mouth.mu.Lock()
	mouth.speaking = false
	mouth.mu.Unlock()
	if got := receive(t, ear); got != "next" {
		t.Fatalf("heard %q", got)
	}
	cancel()
	<-done
}

func TestCleanTranscription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  next\nstep  ", "next step"},
		{"[BLANK_AUDIO]", ""},
		{"(dog barking) go back", "go back"},
		{"[00:00:00.000 --> 00:00:02.000]  repeat that", "repeat that"},
		{"Thank you.", ""},
		{"you", ""},
		{"thank you chef", "thank you chef"},
	}
	for _, tt := range tests {
		if got := cleanTranscription(tt.in); got != tt.want {
			t.Errorf("cleanTranscription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewWhisperTranscriberChecksInstall(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWhisperTranscriber("stepchat-no-such-whisper", filepath.Join(dir, "model.bin"), dir, logger.New(logger.LevelOff, nil))
	if !errors.Is(err, ErrWhisperUnavailable) {
		t.Fatalf("err = %v, want ErrWhisperUnavailable", err)
	}
}
