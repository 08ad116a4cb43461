// Package cli contains the xctest-runner commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamanec/GADS-xctest-runner/config"
	"github.com/shamanec/GADS-xctest-runner/ios_device"
	"github.com/shamanec/GADS-xctest-runner/logger"
	"github.com/shamanec/GADS-xctest-runner/shell"
)

// app is the state shared by the commands of one invocation
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config

	shell   shell.Runner
	devices ios_device.Lister
	getenv  func(string) string
	stdout  io.Writer
	stderr  io.Writer
	// skipLogSetup keeps RunnerLogger as it is, tests use it to avoid writing log files
	skipLogSetup bool
}

// NewRootCmd creates the root command wired to the real shell and environment
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{
		shell:   shell.NewRunner(),
		devices: ios_device.GetConnectedDevices,
		getenv:  os.Getenv,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "xctest-runner",
		Short:         "Run XCTest suites on simulators and devices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	registerTestCmd(rootCmd, a)
	registerParseCmd(rootCmd, a)
	registerDestinationsCmd(rootCmd, a)
	registerSimulatorsCmd(rootCmd, a)
	registerServeCmd(rootCmd, a)

	return rootCmd
}

// load reads the config file, then the action inputs from the environment.
// Flags of the individual commands are applied on top by the commands themselves.
func (a *app) load(cmd *cobra.Command) error {
	allowMissing := !cmd.Flags().Changed("config")
	cfg, err := config.Load(a.configPath, allowMissing)
	if err != nil {
		return err
	}
	if err := cfg.ApplyInputs(a.getenv); err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if !logger.ValidLevel(cfg.LogLevel) {
		return fmt.Errorf("unsupported log level `%s`", cfg.LogLevel)
	}
	a.cfg = cfg

	if a.skipLogSetup {
		return nil
	}
	return logger.SetupLogging(cfg.LogLevel, cfg.LogFile)
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.stdout, format, args...)
}

// inputFlags holds the values of flags named after the action inputs
type inputFlags map[string]*string

func registerInputFlags(cmd *cobra.Command, names ...string) inputFlags {
	flags := inputFlags{}
	for _, name := range names {
		flags[name] = cmd.Flags().String(name, "", fmt.Sprintf("Overrides the %s input", name))
	}
	return flags
}

// apply copies the flags set on the command line over the config
func (f inputFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	targets := cfg.StringInputs()
	for name, value := range f {
		target, ok := targets[name]
		if ok && cmd.Flags().Changed(name) {
			*target = *value
		}
	}
}
