package provider

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/params"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/require"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
)

// SimSelector is the selector of NewSimChain chains, chain id 1337.
var SimSelector = chainsel.GETH_TESTNET.Selector

// SimDeployerBalance is the genesis balance of the deployer of a simulated chain.
var SimDeployerBalance = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))

// SimConfig tunes NewSimChain.
type SimConfig struct {
	// Alloc is merged into the genesis state.
	Alloc types.GenesisAlloc
}

// NewSimChain starts an in-memory chain with a random funded deployer. Blocks are mined by
// Confirm. Unprotected (pre EIP-155) transactions are accepted so that presigned factory
// transactions can be replayed.
func NewSimChain(tb testing.TB, cfg SimConfig) evm.Chain {
	tb.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(tb, err)
	deployer, err := bind.NewKeyedTransactorWithChainID(key, params.AllDevChainProtocolChanges.ChainID)
	require.NoError(tb, err)

	alloc := types.GenesisAlloc{deployer.From: {Balance: SimDeployerBalance}}
	for addr, acc := range cfg.Alloc {
		alloc[addr] = acc
	}

	backend := simulated.NewBackend(alloc,
		simulated.WithBlockGasLimit(50_000_000),
		func(nodeConf *node.Config, _ *ethconfig.Config) {
			nodeConf.AllowUnprotectedTxs = true
		},
	)
	tb.Cleanup(func() { _ = backend.Close() })

	client := backend.Client()
	confirm := Confirmer{Receipts: client, Timeout: time.Minute, PollInterval: 10 * time.Millisecond}

	return evm.Chain{
		Selector:    SimSelector,
		ID:          params.AllDevChainProtocolChanges.ChainID.Uint64(),
		Client:      client,
		DeployerKey: deployer,
		Confirm: func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
			backend.Commit()
			return confirm.Confirm(ctx, tx)
		},
	}
}
