// Package cli implements the nasacl command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pion/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/nasacl/internal/ifindex"
	"github.com/mesh-intelligence/nasacl/internal/manifest"
	"github.com/mesh-intelligence/nasacl/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
	switchID  uint32
}

// portParser supplies the value parser used for --filter and --action.
type portParser interface {
	Parser() types.ValueParser
}

// app holds the state of one invocation.
type app struct {
	flags         rootFlags
	cfg           *viper.Viper
	switchID      uint32
	loggerFactory *logging.DefaultLoggerFactory
	log           logging.LeveledLogger
	ports         portParser
}

// NewRootCmd creates the top-level "nasacl" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{ports: ifindex.New()})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "nasacl",
		Short: "Manage switch ACL tables, entries and counters",
		Long: "nasacl creates, modifies, deletes and shows ACL tables, their entries and\n" +
			"counters on a switch, backed by a transactional object store.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/nasacl)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/nasacl)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: disabled, error, warn, info, debug, trace")
	pf.Uint32Var(&a.flags.switchID, "switch-id", 0, "switch to operate on")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newHistoryCmd(a),
		newTableCmd(a),
		newEntryCmd(a),
		newCounterCmd(a),
		newStatsCmd(a),
		newApplyCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nasacl:", err)
		os.Exit(exitCode(err))
	}
}

// setup loads config.yaml and the logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := a.resolveConfigDir()
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	a.cfg = cfg

	level := a.flags.logLevel
	if level == "" {
		level = cfg.GetString(cfgKeyLogLevel)
	}
	lvl, err := parseLogLevel(level)
	if err != nil {
		return userError(err)
	}
	a.loggerFactory = logging.NewDefaultLoggerFactory()
	a.loggerFactory.Writer = cmd.ErrOrStderr()
	a.loggerFactory.DefaultLogLevel = lvl
	a.log = a.loggerFactory.NewLogger("cli")

	a.switchID = a.flags.switchID
	if !cmd.Flags().Changed("switch-id") {
		a.switchID = cfg.GetUint32(cfgKeySwitchID)
	}
	a.log.Debugf("config dir %s, switch %d", configDir, a.switchID)
	return nil
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// userErrors are the failures caused by the request rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrAlreadyExists,
	types.ErrNotEmpty,
	types.ErrInUse,
	types.ErrFilterNotAllowed,
	types.ErrIDExhausted,
	types.ErrUnsupportedOp,
	types.ErrUnknownName,
	types.ErrValueKind,
	types.ErrInvalidValue,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	manifest.ErrInvalid,
}

// classify wraps err with the exit code its cause calls for.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return userError(err)
		}
	}
	return sysError(err)
}

// exitCode maps an error returned by Execute to a process exit code.
// Flag and argument errors from cobra count as user errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

func parseLogLevel(s string) (logging.LogLevel, error) {
	switch s {
	case "", "warn":
		return logging.LogLevelWarn, nil
	case "disabled":
		return logging.LogLevelDisabled, nil
	case "error":
		return logging.LogLevelError, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "trace":
		return logging.LogLevelTrace, nil
	}
	return logging.LogLevelDisabled, fmt.Errorf("log level %q: %w", s, types.ErrUnknownName)
}
