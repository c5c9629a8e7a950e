package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/chain/evm/provider"
	"github.com/singletonlabs/singleton-deployer/config"
	"github.com/singletonlabs/singleton-deployer/factory"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// ConfigLoaderFunc loads the deployer configuration from path.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// ChainLoaderFunc connects to the chain described by cfg.
type ChainLoaderFunc func(ctx context.Context, lggr logger.Logger, cfg *config.Config) (evm.Chain, error)

// Deps holds the injectable dependencies for the commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// ChainLoader connects to the target chain.
	// Default: dial the configured RPC nodes with the configured deployer key
	ChainLoader ChainLoaderFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.ChainLoader == nil {
		d.ChainLoader = defaultChainLoader
	}
}

// defaultChainLoader dials the configured RPC nodes with the configured deployer key.
func defaultChainLoader(ctx context.Context, lggr logger.Logger, cfg *config.Config) (evm.Chain, error) {
	selector, chainID, err := cfg.Network.Chain()
	if err != nil {
		return evm.Chain{}, err
	}

	nodes, err := cfg.Network.Nodes()
	if err != nil {
		return evm.Chain{}, err
	}

	key, err := deployerKey(cfg.Deployer)
	if err != nil {
		return evm.Chain{}, err
	}

	return provider.Dial(ctx, lggr, provider.DialConfig{
		Selector:       selector,
		ChainID:        chainID,
		Nodes:          nodes,
		Key:            key,
		ConfirmTimeout: cfg.Deployment.ConfirmTimeout,
	})
}

// deployerKey returns the configured deployer key source.
func deployerKey(cfg config.DeployerConfig) (provider.KeySource, error) {
	switch {
	case cfg.PrivateKey != "":
		return provider.PrivateKey(cfg.PrivateKey), nil
	case cfg.Mnemonic != "":
		return provider.Mnemonic{Phrase: cfg.Mnemonic}, nil
	case cfg.KMS.KeyID != "":
		key, err := provider.NewKMSKey(cfg.KMS.KeyID, cfg.KMS.KeyRegion, cfg.KMS.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to create KMS deployer key: %w", err)
		}

		return key, nil
	default:
		return nil, errors.New("no deployer key configured")
	}
}

// factoryRegistry returns the factory artifacts of dir, or the built-in ones when dir is empty.
func factoryRegistry(lggr logger.Logger, dir string) (*factory.Registry, error) {
	if dir == "" {
		return factory.Default(lggr)
	}

	return factory.LoadDir(lggr, dir)
}
