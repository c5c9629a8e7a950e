package commands

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/cobra"

	"github.com/singletonlabs/singleton-deployer/catalog"
	"github.com/singletonlabs/singleton-deployer/config"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
	"github.com/singletonlabs/singleton-deployer/report"
	"github.com/singletonlabs/singleton-deployer/singleton"
)

var (
	predictShort = "Print the singleton addresses for a factory without touching the chain"

	predictLong = LongDesc(`
		Computes the CREATE2 address of every singleton of the artifact file for a factory address.
		The factory is given directly, or looked up by chain id in the built-in factory artifacts
		or in a factory artifacts directory.
	`)

	predictExample = Examples(`
		# Predict the addresses for a factory
		singleton-deployer predict --artifacts safe.json --factory 0x914d7Fec6aaC8cd542e72Bca78B30650d45643d7

		# Predict the addresses for the deterministic factory of chain 10
		singleton-deployer predict --artifacts safe.json --chain-id 10

		# Use the factory artifacts of a directory instead of the built-in ones
		singleton-deployer predict --artifacts safe.json --factory-artifacts-dir ./factory --chain-id 10
	`)
)

type predictFlags struct {
	artifacts  string
	factory    string
	factoryDir string
	chainID    uint64
	out        string
}

// newPredictCmd creates the "predict" subcommand.
func newPredictCmd(cfg Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "predict",
		Short:   predictShort,
		Long:    predictLong,
		Example: predictExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			chainID, err := cmd.Flags().GetUint64("chain-id")
			if err != nil {
				return err
			}

			f := predictFlags{
				artifacts:  mustString(cmd.Flags().GetString("artifacts")),
				factory:    mustString(cmd.Flags().GetString("factory")),
				factoryDir: mustString(cmd.Flags().GetString("factory-artifacts-dir")),
				chainID:    chainID,
				out:        mustString(cmd.Flags().GetString("out")),
			}

			return runPredict(cmd, cfg, f)
		},
	}

	outputFlag(cmd)

	cmd.Flags().StringP("artifacts", "a", "", "Safe v1.3.0 artifact file (required)")
	cmd.Flags().StringP("factory", "f", "", "Factory address")
	cmd.Flags().Uint64("chain-id", 0, "Chain id to look up in the factory artifacts")
	cmd.Flags().String("factory-artifacts-dir", "", "Directory of <chainId>/deployment.json factory artifacts (default built-in)")
	_ = cmd.MarkFlagRequired("artifacts")
	cmd.MarkFlagsMutuallyExclusive("factory", "chain-id")
	cmd.MarkFlagsMutuallyExclusive("factory", "factory-artifacts-dir")

	return cmd
}

// runPredict executes the predict command logic.
func runPredict(cmd *cobra.Command, cfg Config, f predictFlags) error {
	lggr, err := cfg.newLogger(config.LogConfig{})
	if err != nil {
		return err
	}

	factoryAddr, err := resolveFactory(lggr, f)
	if err != nil {
		return err
	}

	targets, err := catalog.LoadFile(f.artifacts)
	if err != nil {
		return err
	}

	result := singleton.Result{
		ChainID:   f.chainID,
		Factory:   factoryAddr,
		Addresses: make(map[string]common.Address, len(targets)),
		Order:     make([]string, 0, len(targets)),
	}
	if f.chainID != 0 {
		if selector, serr := chainsel.SelectorFromChainId(f.chainID); serr == nil {
			result.ChainSelector = selector
		}
	}
	for _, target := range targets {
		result.Addresses[target.Name] = singleton.ComputeAddress(factoryAddr, singleton.Salt, target.InitCode)
		result.Order = append(result.Order, target.Name)
	}

	if err = report.Print(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if f.out != "" {
		if err = report.Write(f.out, result); err != nil {
			return err
		}
		cmd.Printf("\nAddress book written to %s\n", f.out)
	}

	return nil
}

func resolveFactory(lggr logger.Logger, f predictFlags) (common.Address, error) {
	if f.factory != "" {
		if !common.IsHexAddress(f.factory) {
			return common.Address{}, fmt.Errorf("invalid factory address %q", f.factory)
		}

		return common.HexToAddress(f.factory), nil
	}

	if f.chainID == 0 {
		return common.Address{}, errors.New("either --factory or --chain-id is required")
	}

	registry, err := factoryRegistry(lggr, f.factoryDir)
	if err != nil {
		return common.Address{}, err
	}

	info, ok := registry.Lookup(f.chainID)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no factory info for chain id %d", singleton.ErrUnsupportedChain, f.chainID)
	}

	return info.Address, nil
}
