package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/chain/evm/provider/rpcclient"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

// DialConfig describes the target chain and the deployer account.
type DialConfig struct {
	// Selector is the chain-selectors id. Optional when ChainID is set.
	Selector uint64
	// ChainID is checked against eth_chainId of every node. Zero derives it from Selector, or
	// accepts the node's id when Selector is zero too.
	ChainID uint64
	Nodes   []rpcclient.Node
	Key     KeySource

	ConfirmTimeout time.Duration
	RPC            rpcclient.Options
}

// Dial connects to the nodes of the chain and returns a Chain signing with the deployer key.
func Dial(ctx context.Context, lggr logger.Logger, cfg DialConfig) (evm.Chain, error) {
	if cfg.Key == nil {
		return evm.Chain{}, errors.New("no deployer key configured")
	}

	chainID := cfg.ChainID
	if chainID == 0 && cfg.Selector != 0 {
		id, err := evm.Chain{Selector: cfg.Selector}.ChainID()
		if err != nil {
			return evm.Chain{}, err
		}
		chainID = id
	}

	opts := cfg.RPC
	opts.ChainID = chainID
	client, err := rpcclient.Dial(ctx, lggr.Named("rpc"), cfg.Nodes, opts)
	if err != nil {
		return evm.Chain{}, err
	}

	key, err := cfg.Key.TransactOpts(ctx, new(big.Int).SetUint64(client.ChainID()))
	if err != nil {
		client.Close()
		return evm.Chain{}, fmt.Errorf("failed to load deployer key: %w", err)
	}

	chain := evm.Chain{
		Selector:    cfg.Selector,
		ID:          client.ChainID(),
		Client:      client,
		DeployerKey: key,
		Confirm:     Confirmer{Receipts: client, Timeout: cfg.ConfirmTimeout}.Confirm,
	}
	lggr.Infow("Connected", "chain", chain.String(), "deployer", key.From)

	return chain, nil
}
