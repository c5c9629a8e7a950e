// Package commands provides the singleton-deployer CLI commands.
//
//	cmd, err := commands.NewCommand(commands.Config{Version: version})
//	if err != nil {
//	    return err
//	}
//	return cmd.ExecuteContext(ctx)
//
// Dependencies which reach the network or the filesystem can be replaced through Deps for
// testing.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/singletonlabs/singleton-deployer/config"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

var (
	rootShort = "Deploy the Safe singletons to deterministic addresses"

	rootLong = LongDesc(`
		Deploys the Safe v1.3.0 singleton contracts through a CREATE2 factory so that every
		contract lands at an address derived only from the factory address and its bytecode.

		The factory is either the canonical Safe singleton factory, brought onto the chain by
		replaying its presigned transaction, or a minimal factory deployed from the deployer
		account.
	`)
)

// Config holds the configuration for the CLI commands.
type Config struct {
	// Logger replaces the logger built from the configured log level. Optional.
	Logger logger.Logger

	// Version is printed by the version command.
	Version string

	// Deps holds optional dependencies that can be overridden.
	// If fields are nil, production defaults are used.
	Deps Deps
}

// deps returns the Deps with defaults applied.
func (c *Config) deps() *Deps {
	c.Deps.applyDefaults()

	return &c.Deps
}

// newLogger returns the injected logger or one built from the log settings.
func (c *Config) newLogger(lc config.LogConfig) (logger.Logger, error) {
	if c.Logger != nil {
		return c.Logger, nil
	}

	return logger.Build(logger.Options{Level: lc.Level, JSON: lc.JSON})
}

// NewCommand creates the root command with all subcommands.
func NewCommand(cfg Config) (*cobra.Command, error) {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	cfg.deps()

	cmd := &cobra.Command{
		Use:           "singleton-deployer",
		Short:         rootShort,
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newDeployCmd(cfg))
	cmd.AddCommand(newPredictCmd(cfg))
	cmd.AddCommand(newVersionCmd(cfg))

	return cmd, nil
}
