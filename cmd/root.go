// Package cmd implements the voiceclaw CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/voiceclaw/internal/config"
)

var (
	configFlag  string
	verboseFlag bool
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voiceclaw",
		Short: "Telegram TTS bot with voice cloning",
		Long: "VoiceClaw is a Telegram bot for speech synthesis: a library of\n" +
			"tunable voice profiles, voice cloning from short audio samples and\n" +
			"per-user dialog flows.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	cmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")

	cmd.AddCommand(runCmd())
	cmd.AddCommand(voicesCmd())
	cmd.AddCommand(configCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if configFlag != "" {
		return configFlag
	}
	return config.DefaultPath()
}

func setupLogging() {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
