package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/stepchat/internal/logger"
)

// ErrWhisperUnavailable is returned when the whisper binary or model file
// cannot be found.
var ErrWhisperUnavailable = errors.New("whisper is not available")

// DefaultWakeWords start a spoken command. Whisper often mishears "chef",
// so a few spellings are accepted.
var DefaultWakeWords = []string{"hey chef", "hey, chef", "hey shef", "stepchat", "step chat"}

// listeningCue is spoken after a bare wake word.
const listeningCue = "I'm listening."

// Transcriber records audio for d and returns what was said.
type Transcriber interface {
	Transcribe(ctx context.Context, d time.Duration) (string, error)
}

// Mouth is the part of the Speaker the Ear needs: it must not record its
// own voice, and it silences replies when the user starts talking.
type Mouth interface {
	Say(text string)
	Interrupt()
	Speaking() bool
}

// ── Whisper ──────────────────────────────────────────────────────

// Compile-time interface checks.
var (
	_ Transcriber = (*WhisperTranscriber)(nil)
	_ Mouth       = (*Speaker)(nil)
)

// WhisperTranscriber records from the default microphone and transcribes
// with a local whisper.cpp binary and GGML model.
type WhisperTranscriber struct {
	bin     string
	model   string
	tempDir string
	log     *logger.Logger
}

// NewWhisperTranscriber checks that bin is on PATH and model exists.
func NewWhisperTranscriber(bin, model, tempDir string, log *logger.Logger) (*WhisperTranscriber, error) {
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: binary %q: %v", ErrWhisperUnavailable, bin, err)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("%w: model %q: %v", ErrWhisperUnavailable, model, err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating whisper temp dir: %w", err)
	}
	return &WhisperTranscriber{bin: bin, model: model, tempDir: tempDir, log: log}, nil
}

// Transcribe does one record-then-transcribe cycle.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, d time.Duration) (string, error) {
	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)
	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(w.bin, w.model, w.tempDir, "wav", callback, verbose)
	if err != nil {
		return "", fmt.Errorf("starting transcriber: %w", err)
	}
	if err := t.Start(); err != nil {
		return "", fmt.Errorf("starting recording: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return result, nil
}

// ── Ear ──────────────────────────────────────────────────────────

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithMouth lets the Ear hold off while m is speaking and interrupt it
// when the wake word is heard.
func WithMouth(m Mouth) EarOption {
	return func(e *Ear) { e.mouth = m }
}

// WithWakeWords overrides the wake phrases.
func WithWakeWords(words ...string) EarOption {
	return func(e *Ear) { e.wakeWords = words }
}

// WithRecordDuration sets the length of each clip while listening for a
// command.
func WithRecordDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.recordDuration = d }
}

// WithDormantDuration sets the length of each short clip recorded while waiting for a wake word.
func WithDormantDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.dormantDuration = d }
}

// WithListenTimeout caps how long one command may run.
func WithListenTimeout(d time.Duration) EarOption {
	return func(e *Ear) { e.listenTimeout = d }
}

// WithListenGrace sets the pause between the wake word and the first
// command clip.
func WithListenGrace(d time.Duration) EarOption {
	return func(e *Ear) { e.grace = d }
}

// Ear turns speech into chat input. It idles on short clips until it hears
// a wake word, then records until the user goes quiet and sends the
// command on C.
type Ear struct {
	tr    Transcriber
	mouth Mouth // nil without spoken replies
	log   *logger.Logger

	wakeWords       []string
	recordDuration  time.Duration
	dormantDuration time.Duration
	listenTimeout   time.Duration
	grace           time.Duration

	textCh chan string
}

// NewEar creates a wake-word listener over tr.
func NewEar(tr Transcriber, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		tr:              tr,
		log:             log,
		wakeWords:       DefaultWakeWords,
		recordDuration:  time.Second,
		dormantDuration: 3 * time.Second,
		listenTimeout:   15 * time.Second,
		grace:           500 * time.Millisecond,
		textCh:          make(chan string, 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// C delivers transcribed commands.
func (e *Ear) C() <-chan string { return e.textCh }

// Run listens until ctx is cancelled.
func (e *Ear) Run(ctx context.Context) {
	e.log.Info("ear started (wake=%v)", e.wakeWords)
	for ctx.Err() == nil {
		if e.mouthBusy() {
			e.pause(ctx, 200*time.Millisecond)
			continue
		}
		if cmd, ok := e.listenForWake(ctx); ok {
			e.emit(ctx, cmd)
		}
	}
	e.log.Info("ear stopped")
}

// listenForWake records one short clip. A wake word followed by words in
// the same clip is a complete command; a bare wake word starts a longer
// listen.
func (e *Ear) listenForWake(ctx context.Context) (string, bool) {
	heard, err := e.tr.Transcribe(ctx, e.dormantDuration)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Error("ear: %v", err)
			e.pause(ctx, 2*time.Second)
		}
		return "", false
	}
	// Our own reply leaked into the clip.
	if e.mouthBusy() {
		return "", false
	}

	text := cleanTranscription(heard)
	rest, ok := e.stripWakeWord(text)
	if !ok {
		if text != "" {
			e.log.Debug("ear: ignoring %q", text)
		}
		return "", false
	}

	e.log.Info("ear: wake word in %q", text)
	if e.mouth != nil {
		e.mouth.Interrupt()
	}
	if rest = cleanTranscription(rest); rest != "" {
		return rest, true
	}

	if e.mouth != nil {
		e.mouth.Say(listeningCue)
	}
	return e.listenForCommand(ctx)
}

// listenForCommand records clips until the user stops talking or the
// listen timeout passes, and joins what was said.
func (e *Ear) listenForCommand(ctx context.Context) (string, bool) {
	for e.mouthBusy() && ctx.Err() == nil {
		e.pause(ctx, 100*time.Millisecond)
	}
	e.pause(ctx, e.grace)

	// More silence is tolerated before the first words than after them.
	const silentBefore, silentAfter = 4, 2

	deadline := time.Now().Add(e.listenTimeout)
	var parts []string
	silent := 0
	for ctx.Err() == nil && time.Now().Before(deadline) {
		heard, err := e.tr.Transcribe(ctx, e.recordDuration)
		if err != nil {
			if ctx.Err() == nil {
				e.log.Error("ear: %v", err)
			}
			break
		}

		chunk := e.removeWakeWords(cleanTranscription(heard))
		if chunk == "" {
			silent++
			limit := silentBefore
			if len(parts) > 0 {
				limit = silentAfter
			}
			if silent >= limit {
				break
			}
			continue
		}
		silent = 0
		parts = append(parts, chunk)
	}

	cmd := strings.TrimSpace(strings.Join(parts, " "))
	if cmd == "" {
		e.log.Debug("ear: nothing heard after wake word")
		return "", false
	}
	return cmd, true
}

func (e *Ear) emit(ctx context.Context, cmd string) {
	e.log.Info("ear: heard %q", cmd)
	select {
	case e.textCh <- cmd:
	case <-ctx.Done():
	}
}

func (e *Ear) mouthBusy() bool {
	return e.mouth != nil && e.mouth.Speaking()
}

func (e *Ear) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// ── Wake words ───────────────────────────────────────────────────

// stripWakeWord reports whether text contains a wake word and returns
// what follows the first one.
func (e *Ear) stripWakeWord(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		if i := strings.Index(lower, strings.ToLower(w)); i >= 0 {
			rest := text[i+len(w):]
			return strings.TrimLeft(rest, " ,.!?\t"), true
		}
	}
	return "", false
}

// removeWakeWords drops repeated wake words from a command clip.
func (e *Ear) removeWakeWords(text string) string {
	for _, w := range e.wakeWords {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(w) + `[,.!?]*`)
		text = re.ReplaceAllString(text, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

// ── Transcript cleanup ───────────────────────────────────────────

var (
	// "[BLANK_AUDIO]", "(keyboard clicking)", "[Music]" and the like.
	annotation = regexp.MustCompile(`[\(\[][A-Za-z][A-Za-z_\s]*[\)\]]`)
	// "[00:00:00.000 --> 00:00:05.000]"
	timestamp = regexp.MustCompile(`\[\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}\]`)
)

// hallucinations are what whisper tends to produce from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"the end.":                true,
}

// cleanTranscription removes whisper annotations and timestamps, collapses
// whitespace, and drops known silence hallucinations.
func cleanTranscription(s string) string {
	s = timestamp.ReplaceAllString(s, " ")
	s = annotation.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
