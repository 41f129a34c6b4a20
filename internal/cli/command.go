package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ankify/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ankify",
		Short: "Turn clipboard text into Anki flashcards",
		Long: `ankify captures the text you copied, asks an LLM for flashcard
suggestions and adds the card you pick to Anki through AnkiConnect.

Examples:
  ankify                                   # Launch the desktop window (default)
  ankify --suggest                         # Print suggestions for the clipboard
  ankify --text "..." --pick 1             # Add the first suggestion for a text
  ankify --front "What is 2+2?" --back 4   # Add a card directly
  ankify --check                           # Check the connection to Anki`,
		Args:    cobra.NoArgs,
		Version: internal.Version,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.ankify.yaml)")
	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")

	// Context flags
	cmd.Flags().StringVar(&flags.Text, "text", "", "Use this text instead of the clipboard")
	cmd.Flags().StringVar(&flags.App, "app", "", "Source application name for --text")
	cmd.Flags().StringVar(&flags.URL, "url", "", "Source URL for --text")
	cmd.Flags().StringVar(&flags.ContextJSON, "context-json", "", "Read the captured context from a host payload JSON file (- for stdin)")
	cmd.Flags().BoolVar(&flags.ShowContext, "show-context", false, "Print the captured context as host payload JSON")

	// Card flags
	cmd.Flags().BoolVar(&flags.Suggest, "suggest", false, "Print card suggestions for the captured text")
	cmd.Flags().IntVar(&flags.Pick, "pick", 0, "Generate suggestions and add suggestion N to Anki")
	cmd.Flags().StringVar(&flags.Front, "front", "", "Front side of a card to add")
	cmd.Flags().StringVar(&flags.Back, "back", "", "Back side of a card to add")
	cmd.Flags().StringVarP(&flags.Deck, "deck", "d", flags.Deck, "Target deck")

	// Anki flags
	cmd.Flags().BoolVar(&flags.Check, "check", false, "Check the connection to AnkiConnect")
	cmd.Flags().BoolVar(&flags.ListDecks, "list-decks", false, "List Anki decks")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available chat models for the current API key")

	// Journal flags
	cmd.Flags().IntVar(&flags.History, "history", 0, "Show the last N added cards")
	cmd.Flags().StringVar(&flags.ExportCSV, "export-csv", "", "Export all added cards to an Anki-importable CSV file")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("anki.deck", cmd.Flags().Lookup("deck"))
	viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	SetDefaults()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".ankify" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ankify")
	}

	// Environment variables, e.g. ANKIFY_ANKI_URL for anki.url
	viper.SetEnvPrefix("ANKIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
