package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MeKo-Tech/tarot-scan/internal/config"
	"github.com/MeKo-Tech/tarot-scan/internal/version"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state of one command tree: its own viper instance, the
// loaded configuration and the logger.
type app struct {
	v        *viper.Viper
	cfgFile  string
	noColor  bool
	bindings map[*cobra.Command]map[string]string

	cfg    *config.Config
	loader *config.Loader
	logger *slog.Logger
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = NewRootCommand()

// NewRootCommand builds a fresh command tree. Every tree owns its viper
// instance, so tests can execute commands in-process without sharing state.
func NewRootCommand() *cobra.Command {
	a := &app{
		v:        viper.New(),
		bindings: make(map[*cobra.Command]map[string]string),
		logger:   slog.Default(),
	}

	root := &cobra.Command{
		Use:   "tarot-scan",
		Short: "Detect and extract tarot cards from flatbed scans",
		Long: `tarot-scan finds the cards on a flatbed scan, straightens each one into an
upright crop and records it in the deck's append-only manifest.

A deck lives under <decks-dir>/<deck>:
  manifest.jsonl        scan, crop and classification records
  extracted/card_NNNN.png
  debug/scan_NNNN_annotated.png

Examples:
  tarot-scan detect scans/page1.png --register-scan
  tarot-scan detect-single photo.jpg --outdir crops
  tarot-scan batch scans/ --recursive --format json
  tarot-scan crops --pending`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return err
			}
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is search in ., $HOME, $HOME/.config/tarot-scan, /etc/tarot-scan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("decks-dir", config.DefaultDecksDir, "directory holding one directory per deck (env TAROT_DECKS_DIR)")
	pf.String("deck", config.DefaultDeck, "deck to work on")
	pf.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	pf.BoolVar(&a.noColor, "no-color", false, "disable coloured console output")
	pf.Bool("version", false, "print version information and exit")

	_ = a.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("decks_dir", pf.Lookup("decks-dir"))
	_ = a.v.BindPFlag("deck", pf.Lookup("deck"))
	_ = a.v.BindPFlag("metrics.textfile", pf.Lookup("metrics-textfile"))

	root.AddCommand(
		newDetectCommand(a),
		newDetectSingleCommand(a),
		newBatchCommand(a),
		newCropsCommand(a),
		newConfigCommand(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure. Interrupts
// cancel the running extraction between cards.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
// This allows tests to execute commands without calling os.Exit().
func GetRootCommand() *cobra.Command {
	return rootCmd
}

// bindFlags maps the local flags of cmd onto configuration keys. The
// bindings are applied only when cmd is the command being executed, since
// several commands bind flags to the same key.
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string) {
	a.bindings[cmd] = keys
}

// setup binds the executing command's flags, loads the configuration and
// installs the JSON logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	for flag, key := range a.bindings[cmd] {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}

	a.loader = config.NewLoaderWithViper(a.v)
	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true
	}

	a.logger = newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel(cfg)}))
}

// logLevel resolves the configured level; verbose forces debug.
func logLevel(cfg *config.Config) slog.Level {
	if cfg.Verbose {
		return slog.LevelDebug
	}
	switch cfg.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
