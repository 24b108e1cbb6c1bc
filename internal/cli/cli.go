package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tileworld/sfxmix/internal/audio"
	"github.com/tileworld/sfxmix/internal/config"
	"github.com/tileworld/sfxmix/internal/fs"
	"github.com/tileworld/sfxmix/internal/tracking"
)

const Version = "0.4.0"

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	backendFactory   audio.BackendFactory
	terminalDetector TerminalDetector
	fsFactory        fs.Factory

	cfg        *config.Config // Effective config, set before any subcommand runs
	trackingDB *sql.DB        // Optional tracking database
}

type cliContextKey struct{}

// NewCLI creates a CLI on the OS filesystem and real audio devices
func NewCLI() *CLI {
	return NewCLIWithDependencies(fs.NewDefaultFactory(), audio.NewBackendFactory(), &DefaultTerminalDetector{})
}

// NewCLIWithDependencies creates a CLI with injected filesystem, device
// factory and terminal detection
func NewCLIWithDependencies(fsFactory fs.Factory, backendFactory audio.BackendFactory, detector TerminalDetector) *CLI {
	slog.Debug("creating new CLI instance")

	c := &CLI{
		configManager:    config.NewConfigManagerWithFilesystem(fsFactory.Production()),
		backendFactory:   backendFactory,
		terminalDetector: detector,
		fsFactory:        fsFactory,
	}

	rootCmd := &cobra.Command{
		Use:   "sfxmix",
		Short: "Sound-effect mixer for tile games",
		Long: `sfxmix decodes a table of sound effects and mixes them into one
22050 Hz mono stream, driven by per-tick effect bitmasks.

Use "play" to drive a live audio device from a command script and "render"
to mix the same script offline into a WAV file.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.prepare,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handled := handleVersionFlag(cmd); handled {
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("volume", "", "Set master volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().String("backend", "", "Audio backend (auto, malgo, oto, system_command, null)")
	rootCmd.PersistentFlags().Bool("silent", false, "Silent mode - mix without an audio device")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newPlayCommand(),
		newRenderCommand(),
		newFormatsCommand(),
		newSlotsCommand(),
		newStatsCommand(),
		newConfigCommand(),
	)

	c.rootCmd = rootCmd
	return c
}

// cliFromContext extracts the CLI instance stored by Run
func cliFromContext(ctx context.Context) *CLI {
	if ctx == nil {
		return nil
	}
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

func mustCLI(cmd *cobra.Command) (*CLI, error) {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		slog.Error("CLI instance not found in context")
		return nil, errors.New("CLI instance not found in context")
	}
	return cli, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "sfxmix version %s\n", Version)
}

// handleVersionFlag prints the version when --version is set
func handleVersionFlag(cmd *cobra.Command) bool {
	version, _ := cmd.Flags().GetBool("version")
	if version {
		printVersion(cmd.OutOrStdout())
	}
	return version
}

// prepare loads the effective config and configures logging before any
// command runs
func (c *CLI) prepare(cmd *cobra.Command, args []string) error {
	cfg, err := loadAndValidateConfig(cmd, c)
	if err != nil {
		return err
	}
	c.cfg = cfg
	setupLogging(c.configManager, cfg, cmd.ErrOrStderr())
	return nil
}

// loadAndValidateConfig loads the config file, then applies environment and
// flag overrides, in that order
func loadAndValidateConfig(cmd *cobra.Command, c *CLI) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	volumeStr, _ := cmd.Flags().GetString("volume")
	backend, _ := cmd.Flags().GetString("backend")
	silent, _ := cmd.Flags().GetBool("silent")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = c.configManager.LoadFromFile(configFile)
	} else {
		cfg, err = c.configManager.LoadConfig()
	}
	if err != nil {
		slog.Error("config load failed", "error", err)
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	cfg = c.configManager.ApplyEnvironmentOverrides(cfg)

	if volumeStr != "" {
		vol, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			slog.Error("invalid volume value", "value", volumeStr, "error", err)
			return nil, fmt.Errorf("invalid volume value '%s': %w", volumeStr, err)
		}
		cfg.Volume = vol
	}
	if backend != "" {
		cfg.AudioBackend = backend
	}
	if silent {
		cfg.AudioBackend = audio.BackendNull
		slog.Debug("silent mode enabled")
	}

	if err := c.configManager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// outputFormat is the mixer format the config selects
func outputFormat(cfg *config.Config) audio.OutputFormat {
	return audio.OutputFormat{
		SampleRate:     audio.DefaultSampleRate,
		TicksPerSecond: uint32(cfg.TicksPerSecond),
	}
}

// openTracking opens the tracking database when tracking is enabled. A
// database that cannot be opened disables tracking for this run.
func (c *CLI) openTracking() *sql.DB {
	if c.trackingDB != nil {
		return c.trackingDB
	}
	if c.cfg == nil || c.cfg.Tracking == nil || !c.cfg.Tracking.Enabled {
		slog.Debug("decode tracking disabled")
		return nil
	}

	dbPath := c.configManager.ResolveDatabasePath(c.cfg.Tracking.DatabasePath)
	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to open tracking database, continuing without tracking", "path", dbPath, "error", err)
		return nil
	}

	c.trackingDB = db
	slog.Info("tracking database opened", "path", dbPath)
	return db
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	// answer --version before touching config or devices
	if len(args) == 2 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	defer func() {
		if c.trackingDB != nil {
			if err := c.trackingDB.Close(); err != nil {
				slog.Error("error closing tracking database", "error", err)
			}
			c.trackingDB = nil
		}
	}()

	if len(args) > 0 {
		args = args[1:]
	}
	c.rootCmd.SetArgs(args)
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	ctx := context.WithValue(context.Background(), cliContextKey{}, c)
	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}
