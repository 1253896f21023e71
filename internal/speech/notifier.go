package speech

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*SpeakingNotifier)(nil)

// SpeakingNotifier prints through an inner notifier and reads the same
// message aloud. Urgent messages cut off whatever is being spoken.
type SpeakingNotifier struct {
	text    domain.Notifier
	speaker *Speaker
	log     *logger.Logger
}

// NewSpeakingNotifier creates a notifier that both prints and speaks.
func NewSpeakingNotifier(text domain.Notifier, speaker *Speaker, log *logger.Logger) *SpeakingNotifier {
	return &SpeakingNotifier{
		text:    text,
		speaker: speaker,
		log:     log,
	}
}

// Notify prints the message and queues it for speech.
func (n *SpeakingNotifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.speaker.Say(cleanForSpeech(message))
	return nil
}

// NotifyUrgent prints the message and speaks it immediately.
func (n *SpeakingNotifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.speaker.SayNow(cleanForSpeech(message))
	return nil
}

var (
	ansiCodes  = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	searchLink = regexp.MustCompile(`https?://\S+`)
	listNumber = regexp.MustCompile(`(?m)^(\d+)\.\s+`)
)

// cleanForSpeech strips what shouldn't be read out: colour codes, links,
// and list numbering ("1. pasta" becomes "1, pasta").
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = searchLink.ReplaceAllString(cleaned, "the search link on screen")
	cleaned = listNumber.ReplaceAllString(cleaned, "$1, ")
	return strings.TrimSpace(cleaned)
}
