package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/stepchat/internal/answer"
	"github.com/hammamikhairi/stepchat/internal/display"
	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/recipe"
	"github.com/hammamikhairi/stepchat/internal/speech"
)

// localOwner is the conversation owner for the terminal chat.
const localOwner = "local"

// chatOptions are the chat subcommand's own flags.
type chatOptions struct {
	sample   bool
	noSpeech bool
	voice    bool
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about a recipe in the terminal",
		Long: `Start an interactive terminal chat. Paste an AllRecipes URL to begin,
then ask about the recipe step by step. With --sample, name one of the
built-in recipes instead of pasting a URL. With --voice, say "hey chef"
followed by a command; speech is transcribed by a local whisper.cpp.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags, appOptions{
				sample:         opts.sample,
				defaultLogFile: ".stepchat/stepchat.log",
			})
			if err != nil {
				return err
			}
			defer a.Close()
			return runChat(cmd.Context(), a, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.sample, "sample", false, "use the built-in sample recipes instead of the web")
	cmd.Flags().BoolVar(&opts.noSpeech, "no-speech", false, "never read replies aloud")
	cmd.Flags().BoolVar(&opts.voice, "voice", false, "accept spoken commands through whisper")
	return cmd
}

func runChat(parent context.Context, a *app, opts chatOptions) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Voice input is opt-in, so a broken install is an error, not a warning.
	var tr *speech.WhisperTranscriber
	if opts.voice {
		var err error
		tr, err = speech.NewWhisperTranscriber(a.cfg.Listen.WhisperBin, a.cfg.Listen.Model,
			a.cfg.Listen.TempDir, a.log.Named("whisper"))
		if err != nil {
			return err
		}
	}

	ui := display.NewUI(a.store, localOwner)
	var notifier domain.Notifier = ui

	var speaker *speech.Speaker
	if !opts.noSpeech && a.cfg.SpeechAvailable() {
		player, err := speech.NewPlayer(a.log.Named("player"))
		if err != nil {
			a.log.Warn("speech disabled: %v", err)
		} else {
			tts := speech.NewAzureClient(a.cfg.Speech.Key, a.cfg.Speech.Region, a.log.Named("tts"),
				speech.WithVoice(a.cfg.Speech.Voice),
			)
			speaker = speech.NewSpeaker(tts, player, a.log.Named("speaker"),
				speech.WithVoiceKey(tts.Voice()),
			)
			speaker.Start(ctx)
			defer speaker.Stop()
			notifier = speech.NewSpeakingNotifier(ui, speaker, a.log.Named("notifier"))
		}
	}

	// A nil channel never delivers, so typed input alone works unchanged.
	var voiceCh <-chan string
	if tr != nil {
		var earOpts []speech.EarOption
		if speaker != nil {
			earOpts = append(earOpts, speech.WithMouth(speaker))
		}
		if len(a.cfg.Listen.WakeWords) > 0 {
			earOpts = append(earOpts, speech.WithWakeWords(a.cfg.Listen.WakeWords...))
		}
		ear := speech.NewEar(tr, a.log.Named("ear"), earOpts...)
		voiceCh = ear.C()
		earDone := make(chan struct{})
		go func() {
			defer close(earDone)
			ear.Run(ctx)
		}()
		defer func() { cancel(); <-earDone }()
	}

	r := a.newReaper(func(ctx context.Context, s *domain.Session) {
		if s.Owner != localOwner {
			return
		}
		if err := notifier.NotifyUrgent(ctx, answer.LineSessionExpired(s.Recipe.Title)); err != nil {
			a.log.Error("notify expiry: %v", err)
		}
	})
	r.Start(ctx)
	defer r.Stop()

	fmt.Println(display.RenderBanner())
	if opts.sample {
		keys := a.source.(*recipe.MemorySource).Keys()
		fmt.Println(display.BannerStyle.Render("  Sample recipes: " + strings.Join(keys, ", ")))
	} else {
		fmt.Println(display.BannerStyle.Render("  Paste an AllRecipes link to start cooking."))
	}
	if speaker != nil {
		fmt.Println(display.BannerStyle.Render("  Replies are read aloud."))
	}
	if voiceCh != nil {
		fmt.Println(display.BannerStyle.Render("  Voice input on. Say \"hey chef\" and then a command."))
	}
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	go func() {
		ui.WaitReady()
		chatLoop(ctx, a, ui, notifier, voiceCh)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		a.log.Error("display: %v", err)
		return err
	}
	return nil
}

func chatLoop(ctx context.Context, a *app, ui *display.UI, notifier domain.Notifier, voiceCh <-chan string) {
	for {
		var line string
		select {
		case <-ctx.Done():
			return
		case <-ui.QuitChan():
			return
		case line = <-ui.InputChan():
		case line = <-voiceCh:
			ui.PrintVoice(line)
		}

		text := strings.TrimSpace(line)
		switch strings.ToLower(text) {
		case "":
			continue
		case "quit", "exit":
			if _, ok := a.router.SessionID(localOwner); ok {
				a.router.Handle(ctx, localOwner, "stop")
			}
			return
		}

		reply := a.router.Handle(ctx, localOwner, text)
		if err := notifier.Notify(ctx, reply); err != nil {
			a.log.Error("notify: %v", err)
		}
	}
}
