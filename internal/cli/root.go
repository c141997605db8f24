package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/fixture"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	LogFile    string

	config  *viper.Viper
	logSink io.Closer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Configuration keys. Flags of the same meaning are bound to them so a flag
// beats the environment, which beats canvasync.yaml.
const (
	KeySurfaceWidth  = "surface.width"
	KeySurfaceHeight = "surface.height"
	KeyProjectWidth  = "project.width"
	KeyProjectHeight = "project.height"
	KeyJournal       = "journal"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyServePort     = "serve.port"
)

// flagKeys maps command flag names onto configuration keys.
var flagKeys = map[string]string{
	"width":          KeySurfaceWidth,
	"height":         KeySurfaceHeight,
	"project-width":  KeyProjectWidth,
	"project-height": KeyProjectHeight,
	"journal":        KeyJournal,
	"log-level":      KeyLogLevel,
	"log-file":       KeyLogFile,
	"port":           KeyServePort,
}

// NewRootCommand creates the root command for the canvasync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "canvasync",
		Short: "canvasync - editor canvas synchronization engine",
		Long: `Materialize timeline scene fixtures onto a preview canvas and keep
the canvas and the timeline in sync.

Configuration is read from canvasync.yaml in the working directory (or
--config), then CANVASYNC_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := opts.loadConfig(cmd); err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			return opts.setupLogging(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.closeLog()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./canvasync.yaml)")
	cmd.PersistentFlags().StringVar(&opts.LogFile, "log-file", "", "write logs to a rotating file instead of stderr")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Run executes the CLI with args and returns the process exit code. Errors a
// command has not already printed are reported on stderr, or as a JSON error
// envelope on stdout under --format json.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	verbose, _ := cmd.PersistentFlags().GetBool("verbose")
	f := &OutputFormatter{Format: format, Writer: stderr, Verbose: verbose}
	if f.JSON() {
		f.Writer = stdout
	}
	_ = f.Error(errorCode(err), err.Error(), errorDetails(err))
	return GetExitCode(err)
}

// errorCode picks the most specific code carried by err.
func errorCode(err error) string {
	var fe *fixture.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return ErrCodeGeneric
}

func errorDetails(err error) any {
	var fe *fixture.Error
	if errors.As(err, &fe) && fe.Pos.IsValid() {
		return map[string]int{"line": fe.Pos.Line(), "column": fe.Pos.Column()}
	}
	return nil
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetConfigName("canvasync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("CANVASYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyServePort, 8080)
	return v
}

// Config returns the configuration, creating a defaults-only one when the
// command runs without the root (as in tests).
func (o *RootOptions) Config() *viper.Viper {
	if o.config == nil {
		o.config = newConfig()
	}
	return o.config
}

// loadConfig reads the config file and binds the executing command's flags.
func (o *RootOptions) loadConfig(cmd *cobra.Command) error {
	v := o.Config()
	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.ConfigFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return bindFlags(v, cmd)
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setupLogging installs the default slog logger.
func (o *RootOptions) setupLogging(stderr io.Writer) error {
	v := o.Config()
	level, err := parseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = stderr
	if path := v.GetString(KeyLogFile); path != "" {
		sink := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		o.logSink = sink
		w = sink
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func (o *RootOptions) closeLog() error {
	if o.logSink == nil {
		return nil
	}
	err := o.logSink.Close()
	o.logSink = nil
	return err
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}
