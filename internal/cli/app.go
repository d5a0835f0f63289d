// Package cli implements eggctl, the host companion of the egg bot firmware.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/hostconfig"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/link"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/internal/logging"
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/protocol"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Dialer opens a device client for the configured serial port.
type Dialer func(cfg hostconfig.SerialConfig, logger zerolog.Logger) (*link.Client, error)

// App is the eggctl command tree with its resolved configuration.
type App struct {
	root   *cobra.Command
	viper  *viper.Viper
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	cfg        *hostconfig.Config
	logger     zerolog.Logger

	dial   Dialer
	client *link.Client
}

// New creates the CLI application.
func New() *App {
	app := &App{
		viper:  viper.New(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		logger: zerolog.Nop(),
		dial:   dialSerial,
	}

	app.root = &cobra.Command{
		Use:   "eggctl",
		Short: "Host tooling for the egg hatching bot",
		Long: `eggctl simulates, configures and drives the egg hatching bot.

Run settings come from eggctl.yaml, EGGCTL_* environment variables and flags,
in increasing order of precedence.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	app.bindFlags()

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newSimulateCmd(),
		app.newGadgetCmd(),
		app.newTablesCmd(),
		app.newSpeciesCmd(),
		app.newSettingsCmd(),
		app.newDeviceCmd(),
	)

	return app
}

func (a *App) bindFlags() {
	flags := a.root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to eggctl.yaml")

	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-pretty", true, "Human readable logs instead of JSON")
	flags.Int("species", 0, "National dex number of the species being bred")
	flags.Bool("flame-body", false, "A Flame Body party member halves hatch steps")
	flags.Int("initial-egg-checks", 0, "Nursery checks in the first round")
	flags.Int("subsequent-egg-checks", 0, "Nursery checks in later rounds")
	flags.Int("boxes", 0, "Boxes with free space")
	flags.String("save-policy", "", "When to save: never, always or exhausted")
	flags.String("tables-dir", "", "Directory of step table overrides")
	flags.String("port", "", "Serial port of the device")
	flags.Int("baud", 0, "Serial baud rate")
	flags.Duration("timeout", 0, "Serial read timeout")
	flags.String("gadget-device", "", "HID gadget device node")
	flags.Duration("interval", 0, "Report interval when driving a gadget")

	for key, flag := range map[string]string{
		hostconfig.KeyLogLevel:            "log-level",
		hostconfig.KeyLogPretty:           "log-pretty",
		hostconfig.KeySpecies:             "species",
		hostconfig.KeyFlameBody:           "flame-body",
		hostconfig.KeyInitialEggChecks:    "initial-egg-checks",
		hostconfig.KeySubsequentEggChecks: "subsequent-egg-checks",
		hostconfig.KeyBoxes:               "boxes",
		hostconfig.KeySavePolicy:          "save-policy",
		hostconfig.KeyTablesDir:           "tables-dir",
		hostconfig.KeySerialPort:          "port",
		hostconfig.KeySerialBaud:          "baud",
		hostconfig.KeySerialTimeout:       "timeout",
		hostconfig.KeyGadgetDevice:        "gadget-device",
		hostconfig.KeyGadgetInterval:      "interval",
	} {
		// Only flags set on the command line override file and env values
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}
}

// setup resolves configuration and logging before any command runs.
func (a *App) setup(cmd *cobra.Command, args []string) error {
	if a.cfg != nil {
		return nil
	}

	cfg, err := hostconfig.Load(a.viper, a.configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewWithWriter(a.stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// WithInput sets the reader the device shell consumes.
func (a *App) WithInput(stdin io.Reader) *App {
	a.stdin = stdin
	a.root.SetIn(stdin)
	return a
}

// WithDialer replaces how device clients are opened.
func (a *App) WithDialer(d Dialer) *App {
	a.dial = d
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer a.closeClient()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// device returns the client for the configured port, opening it on first use.
func (a *App) device() (*link.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	c, err := a.dial(a.cfg.Serial, a.logger)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

func (a *App) closeClient() {
	if a.client == nil {
		return
	}
	if err := a.client.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close serial port")
	}
	a.client = nil
}

func dialSerial(cfg hostconfig.SerialConfig, logger zerolog.Logger) (*link.Client, error) {
	return link.Open(cfg.Port, cfg.Baud, cfg.Timeout, logger)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "eggctl version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Firmware protocol: %d.%d\n", protocol.FirmwareMajor, protocol.FirmwareMinor)
		},
	}
}
