package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/depdiscover/internal/formatter"
	"github.com/depdiscover/pkg/config"
	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/telemetry"
	"github.com/depdiscover/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string
	cacheDir   string

	logger utils.Logger = &utils.NullLogger{}
	cfg    *config.Config

	shutdownTelemetry telemetry.ShutdownFunc

	// exitCode is the process status once the command returned without error.
	exitCode int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "depdiscover",
	Short: "Discover what Java class files require from their environment",
	Long: `depdiscover walks every method reachable from a set of entry classes and
reports the types, methods and fields they require that no classpath provides,
together with the native methods they reach.

Configuration is read from depdiscover.yaml (., ./configs, /etc/depdiscover)
and DEPDISCOVER_* environment variables; command line flags take precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("cache-dir") {
			loaded.Cache.Dir = cacheDir
		}
		cfg = loaded

		level := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			level = utils.LevelDebug
		}
		l, err := utils.NewLogger(level, cfg.Log.OutputPath)
		if err != nil {
			return err
		}
		logger = l
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.Init(cmd.Context(), nil)
		if err != nil {
			logger.Warn("Tracing disabled: %v", err)
		}
		shutdownTelemetry = shutdown
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	flushTelemetry()
	os.Exit(exitStatus(err))
}

// exitStatus maps the command outcome to the process status: 2 for invalid
// configuration, 1 for any other error, otherwise the status the command set.
func exitStatus(err error) int {
	switch {
	case err == nil:
		return exitCode
	case apperrors.IsConfigError(err):
		return 2
	default:
		return 1
	}
}

func flushTelemetry() {
	if shutdownTelemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTelemetry(ctx); err != nil {
		logger.Warn("Failed to flush traces: %v", err)
	}
	shutdownTelemetry = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", config.DefaultCacheDir(),
		"Cache directory for downloaded and unpacked repositories")

	binName := BinName()
	rootCmd.Example = `  # Report what the classes below ./classpath need beyond ./providedClasspath
  ` + binName + ` discover

  # Check a single entry point against a JDK and a repository archive
  ` + binName + ` discover -e com.acme.Main -a /opt/jdk/jmods -f ./repository.zip

  # Store the run and list stored runs
  ` + binName + ` discover --persist && ` + binName + ` report`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

func newConsole(cmd *cobra.Command) *formatter.Console {
	return formatter.NewConsole(cmd.OutOrStdout(), cmd.ErrOrStderr(), !color.NoColor)
}

func requireConfig() error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return nil
}
