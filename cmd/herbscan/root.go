package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/soocke/herbscan/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cli holds state shared by the subcommands once flags are parsed.
type cli struct {
	cfgPath string
	debug   bool
	noColor bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "herbscan",
		Short: "Scan herbal sample barcodes with a camera",
		Long: `herbscan acquires a camera, decodes the first barcode it sees and
hands the sample ID to the dashboard.

Commands:
  scan      one-shot scan, prints the sample ID
  serve     HTTP/WebSocket bridge for the browser dashboard
  devices   list capture devices and whether they can be opened`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return c.setup(cmd) },
	}
	root.PersistentFlags().StringVarP(&c.cfgPath, "config", "c", "", "config file (default: user config dir)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "debug logging")
	root.PersistentFlags().BoolVar(&c.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newScanCommand(c))
	root.AddCommand(newServeCommand(c))
	root.AddCommand(newDevicesCommand(c))
	root.AddCommand(newVersionCommand())
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.noColor {
		color.NoColor = true
	}
	if c.cfgPath == "" {
		c.cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = c.debug
	}
	c.cfg = cfg
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	c.logger = newLogger(level)
	return nil
}

// newLogger writes JSON logs to stderr so stdout stays parseable.
func newLogger(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("herbscan %s\n", version)
		},
	}
}
