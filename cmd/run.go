package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/voiceclaw/internal/audio"
	"github.com/nextlevelbuilder/voiceclaw/internal/bus"
	"github.com/nextlevelbuilder/voiceclaw/internal/channels/telegram"
	"github.com/nextlevelbuilder/voiceclaw/internal/config"
	"github.com/nextlevelbuilder/voiceclaw/internal/dialog"
	"github.com/nextlevelbuilder/voiceclaw/internal/dispatch"
	"github.com/nextlevelbuilder/voiceclaw/internal/session"
	"github.com/nextlevelbuilder/voiceclaw/internal/synth"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

func runBot() error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config %s: %w", cfgPath, err)
	}

	registry, err := voice.NewRegistry(cfg.VoiceStorePath(), cfg.LibraryDir(), cfg.DefaultModel, voice.Settings{
		Speed:    1.0,
		Pitch:    1.0,
		Volume:   1.0,
		Emotion:  "neutral",
		Language: cfg.DefaultLanguage,
	})
	if err != nil {
		return fmt.Errorf("open voice registry: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	eventBus := bus.New(100)
	channel, err := telegram.New(cfg.BotToken, eventBus)
	if err != nil {
		return err
	}

	engine := dialog.NewEngine(registry, session.NewStore(), channel, provider, audio.NewIntake(cfg.TempDir()), limitsFrom(cfg))

	watcher, err := config.NewWatcher(cfgPath)
	if err == nil {
		watcher.OnChange(func(next *config.Config) {
			engine.SetLimits(limitsFrom(next))
		})
		if err := watcher.Start(); err != nil {
			slog.Warn("config watcher not started", "error", err)
		} else {
			defer watcher.Stop()
		}
	} else {
		slog.Warn("config watcher unavailable", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := dispatch.New()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return channel.Run(ctx)
	})
	g.Go(func() error {
		consume(ctx, eventBus, dispatcher, engine)
		return nil
	})

	slog.Info("voiceclaw started", "synth", provider.Name(), "data_dir", cfg.DataDir)

	err = g.Wait()
	dispatcher.Wait()
	slog.Info("voiceclaw stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// consume routes bus events into per-user dispatch queues so one user's
// events run in order while users run in parallel.
func consume(ctx context.Context, eventBus *bus.Bus, dispatcher *dispatch.Dispatcher, engine *dialog.Engine) {
	for {
		ev, ok := eventBus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		dispatcher.Submit(ctx, ev.UserID, func(taskCtx context.Context) {
			handleEvent(taskCtx, engine, ev)
		})
	}
}

func handleEvent(ctx context.Context, engine *dialog.Engine, ev bus.InboundEvent) {
	switch ev.Kind {
	case bus.EventCommand:
		engine.HandleCommand(ctx, ev.ChatID, ev.UserID, ev.Text, ev.Data)
	case bus.EventText:
		engine.HandleText(ctx, ev.ChatID, ev.UserID, ev.Text)
	case bus.EventAudio:
		engine.HandleAudio(ctx, ev.ChatID, ev.UserID, ev.Audio, ev.AudioExt)
	case bus.EventCallback:
		engine.HandleCallback(ctx, ev.ChatID, ev.UserID, ev.MessageID, ev.CallbackID, ev.Data)
	}
}

func buildProvider(cfg *config.Config) (synth.Provider, error) {
	switch cfg.Synth.Provider {
	case "qwen":
		return synth.NewQwenProvider(synth.QwenConfig{
			Bin:        cfg.Synth.Bin,
			Format:     cfg.AudioFormat,
			SampleRate: cfg.SampleRate,
			TimeoutMs:  cfg.Synth.TimeoutMs,
		}), nil
	case "server":
		return synth.NewServerProvider(synth.ServerConfig{
			BaseURL:   cfg.Synth.ServerURL,
			Format:    cfg.AudioFormat,
			TimeoutMs: cfg.Synth.TimeoutMs,
		}), nil
	default:
		return nil, fmt.Errorf("unknown synth provider %q", cfg.Synth.Provider)
	}
}

func limitsFrom(cfg *config.Config) dialog.Limits {
	return dialog.Limits{
		MaxTextLength:      cfg.MaxTextLength,
		MaxVoiceDuration:   cfg.MaxVoiceDuration,
		SupportedLanguages: cfg.SupportedLanguages,
		AudioFormat:        cfg.AudioFormat,
		SampleRate:         cfg.SampleRate,
	}
}
