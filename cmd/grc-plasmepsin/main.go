// Package main provides the grc-plasmepsin command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".grc-plasmepsin"

// app carries state shared by all commands.
type app struct {
	logger  *zap.Logger
	verbose bool
	cfgFile string
}

// usageError marks errors caused by bad command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	c, err := cmd.ExecuteC()
	if a.logger != nil {
		defer a.logger.Sync()
	}
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, c.UsageString())
		return ExitUsage
	}

	if a.logger != nil {
		a.logger.Error("grc-plasmepsin failed", zap.Error(err))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grc-plasmepsin",
		Short: "Call Plasmepsin 2/3 amplification breakpoints from genotype tables",
		Long: `grc-plasmepsin calls the Plasmepsin 2/3 amplification breakpoint for every
sample of one or more genotype tables, using the genotypes called at a list of
diagnostic loci.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger == nil {
				logger, err := newLogger(a.verbose)
				if err != nil {
					return fmt.Errorf("create logger: %w", err)
				}
				a.logger = logger
			}
			return initConfig(a.cfgFile)
		},
	}

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug messages")
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config-file", "", "User defaults file (default: ~/"+configName+".yaml)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	cmd.AddCommand(newCallCmd(a))
	cmd.AddCommand(newValidateManifestCmd(a))
	cmd.AddCommand(newSummaryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "grc-plasmepsin version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// newLogger builds the console logger used by all commands.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// initConfig reads user defaults from the config file and the environment.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GRC_PLASMEPSIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read user config: %w", err)
	}
	return nil
}

// defaultConfigPath returns the path used when no config file exists yet.
func defaultConfigPath() (string, error) {
	if f := viper.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}
