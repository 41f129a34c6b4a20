package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/ankify/internal/cli"
	"codeberg.org/snonux/ankify/internal/gui"
	"codeberg.org/snonux/ankify/internal/logging"
	"codeberg.org/snonux/ankify/internal/processor"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, flags)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, flags *cli.Flags) error {
	settings, err := cli.LoadSettings()
	if err != nil {
		return err
	}

	// The GUI shows log lines in its window as well
	var (
		logs   *gui.LogBuffer
		logger *slog.Logger
	)
	if flags.HeadlessAction() {
		logger = logging.Setup(settings.LogLevel)
	} else {
		logs = gui.NewLogBuffer(gui.DefaultLogLines)
		logger = logging.Setup(settings.LogLevel, logs)
	}

	proc := processor.NewProcessor(flags, settings, logger)
	defer proc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	switch {
	case flags.ShowContext:
		return proc.ShowContext(ctx)
	case flags.Check:
		return proc.CheckConnection(ctx)
	case flags.ListDecks:
		return proc.ListDecks(ctx)
	case flags.ListModels:
		return proc.ListModels(ctx)
	case flags.History > 0:
		return proc.History(ctx, flags.History)
	case flags.ExportCSV != "":
		return proc.ExportCSV(ctx, flags.ExportCSV)
	case flags.Pick > 0:
		return proc.Pick(ctx, flags.Pick)
	case flags.Front != "" || flags.Back != "":
		return proc.Add(ctx, flags.Front, flags.Back)
	case flags.Suggest:
		_, _, err := proc.Suggest(ctx)
		return err
	}

	// No action flag - launch GUI mode by default
	if err := proc.RunGUIMode(logs); err != nil {
		return fmt.Errorf("gui: %w", err)
	}
	return nil
}
