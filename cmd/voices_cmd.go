package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/voiceclaw/internal/config"
	"github.com/nextlevelbuilder/voiceclaw/internal/voice"
)

func voicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voices",
		Short: "Inspect the voice library",
	}
	cmd.AddCommand(voicesListCmd())
	cmd.AddCommand(voicesStatsCmd())
	return cmd
}

func openRegistry() *voice.Registry {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	registry, err := voice.NewRegistry(cfg.VoiceStorePath(), cfg.LibraryDir(), cfg.DefaultModel, voice.Settings{
		Speed:    1.0,
		Pitch:    1.0,
		Volume:   1.0,
		Emotion:  "neutral",
		Language: cfg.DefaultLanguage,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening voice registry: %s\n", err)
		os.Exit(1)
	}
	return registry
}

func voicesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all voices",
		Run: func(cmd *cobra.Command, args []string) {
			registry := openRegistry()
			defaultName := registry.DefaultName()

			for _, name := range registry.List() {
				p, err := registry.Get(name)
				if err != nil {
					continue
				}
				marker := " "
				if name == defaultName {
					marker = "*"
				}
				kind := "standard"
				if p.Cloned {
					kind = "cloned"
				}
				fmt.Printf("%s %-30s  %-8s  lang=%s  speed=%v  created=%s\n",
					marker, name, kind, p.Settings.Language, p.Settings.Speed, p.CreatedAt)
			}
		},
	}
}

func voicesStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show voice library statistics",
		Run: func(cmd *cobra.Command, args []string) {
			stats := openRegistry().Statistics()
			fmt.Printf("Total:    %d\nCloned:   %d\nStandard: %d\nDefault:  %s\n",
				stats.Total, stats.Cloned, stats.Standard, stats.Default)
		},
	}
}
