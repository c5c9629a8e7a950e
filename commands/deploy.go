package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/singletonlabs/singleton-deployer/catalog"
	"github.com/singletonlabs/singleton-deployer/factory"
	"github.com/singletonlabs/singleton-deployer/report"
	"github.com/singletonlabs/singleton-deployer/singleton"
)

var (
	deployShort = "Deploy the factory and the singletons to a chain"

	deployLong = LongDesc(`
		Makes sure a CREATE2 factory exists on the configured chain and deploys every singleton of
		the artifact file through it, in order. Singletons which are already deployed are skipped,
		so the command can be run again after a failure.

		Settings are read from the config file and the environment, flags override both.
	`)

	deployExample = Examples(`
		# Deploy with the settings of config.yml
		singleton-deployer deploy

		# Replay the presigned factory transaction and write the address book as yaml
		singleton-deployer deploy --config sepolia.toml --mode deterministic --out addresses.yaml

		# Deploy to a local node using the legacy environment variables
		CHAIN_ID=5777 RPC_PORT=7545 MNEMONIC="..." singleton-deployer deploy --artifacts safe.json
	`)
)

type deployFlags struct {
	configPath string
	mode       string
	artifacts  string
	out        string
}

// newDeployCmd creates the "deploy" subcommand.
func newDeployCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deploy",
		Short:   deployShort,
		Long:    deployLong,
		Example: deployExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := deployFlags{
				configPath: mustString(cmd.Flags().GetString("config")),
				mode:       mustString(cmd.Flags().GetString("mode")),
				artifacts:  mustString(cmd.Flags().GetString("artifacts")),
				out:        mustString(cmd.Flags().GetString("out")),
			}

			return runDeploy(cmd, cfg, f)
		},
	}

	configFlag(cmd)
	outputFlag(cmd)

	cmd.Flags().StringP("mode", "m", "", "Factory bootstrap mode: deterministic or direct (overrides config)")
	cmd.Flags().StringP("artifacts", "a", "", "Safe v1.3.0 artifact file (overrides config)")

	return cmd
}

// runDeploy executes the deploy command logic.
func runDeploy(cmd *cobra.Command, cfg Config, f deployFlags) error {
	deps := cfg.deps()

	conf, err := deps.ConfigLoader(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", f.configPath, err)
	}
	if f.mode != "" {
		conf.Deployment.Mode = f.mode
	}
	if f.artifacts != "" {
		conf.Deployment.ArtifactsPath = f.artifacts
	}
	if f.out != "" {
		conf.Deployment.OutputPath = f.out
	}

	if err = conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	lggr, err := cfg.newLogger(conf.Log)
	if err != nil {
		return err
	}

	mode, err := conf.Deployment.ResolveMode()
	if err != nil {
		return err
	}

	targets, err := catalog.LoadFile(conf.Deployment.ArtifactsPath)
	if err != nil {
		return err
	}

	var registry *factory.Registry
	if mode == singleton.ModeDeterministicReplay {
		registry, err = factoryRegistry(lggr, conf.Deployment.FactoryArtifactsDir)
		if err != nil {
			return err
		}
	}

	chain, err := deps.ChainLoader(cmd.Context(), lggr, conf)
	if err != nil {
		return fmt.Errorf("failed to connect to chain: %w", err)
	}

	orch := singleton.NewOrchestrator(lggr, singleton.OrchestratorConfig{
		Mode:     mode,
		Registry: registry,
		Targets:  targets,
	})

	result, err := orch.Run(cmd.Context(), chain)
	if err != nil {
		return fmt.Errorf("deployment on %s failed: %w", chain, err)
	}

	if err = report.Print(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if conf.Deployment.OutputPath != "" {
		if err = report.Write(conf.Deployment.OutputPath, result); err != nil {
			return err
		}
		cmd.Printf("\nAddress book written to %s\n", conf.Deployment.OutputPath)
	}

	return nil
}
