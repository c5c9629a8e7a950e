package singleton

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/factory"
)

// factoryBytecode creates the minimal CREATE2 factory. It is called with salt ++ initCode,
// creates initCode with the call value and returns the created address.
var factoryBytecode = hexutil.MustDecode("0x604580600e600039806000f350fe7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe03601600081602082378035828234f58015156039578182fd5b8082525050506014600cf3")

// signerFunding is sent to the presigned transaction signer before the replay: 0.1 ether.
var signerFunding = new(big.Int).Div(big.NewInt(params.Ether), big.NewInt(10))

// FactoryBytecode returns the creation bytecode deployed in ModeDirect.
func FactoryBytecode() []byte {
	return common.CopyBytes(factoryBytecode)
}

// SignerFunding returns the amount sent to the presigned transaction signer.
func SignerFunding() *big.Int {
	return new(big.Int).Set(signerFunding)
}

// BootstrapFactory makes sure a singleton factory exists on chain and returns its address.
//
// In ModeDeterministicReplay the factory info is looked up by the chain id and
// ErrUnsupportedChain is returned before any network call when none is registered. If the
// canonical address already holds code no transaction is sent. Otherwise the signer of the
// presigned transaction is funded and the transaction is broadcast unmodified.
//
// In ModeDirect the minimal factory is deployed from the deployer account and the contract
// address of the receipt is returned.
func BootstrapFactory(
	ctx context.Context, chain evm.Chain, mode Mode, registry *factory.Registry,
) (common.Address, error) {
	switch mode {
	case ModeDeterministicReplay:
		return replayFactory(ctx, chain, registry)
	case ModeDirect:
		return deployFactory(ctx, chain)
	default:
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
}

func replayFactory(ctx context.Context, chain evm.Chain, registry *factory.Registry) (common.Address, error) {
	chainID, err := chain.ChainID()
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrUnsupportedChain, err)
	}

	info, ok := registry.Lookup(chainID)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no factory info for chain id %d (known: %s)",
			ErrUnsupportedChain, chainID, knownChainIDs(registry))
	}

	deployed, err := HasCode(ctx, chain.Client, info.Address)
	if err != nil {
		return common.Address{}, err
	}
	if deployed {
		return info.Address, nil
	}

	presigned, err := info.Verify()
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid factory info for chain id %d: %w", chainID, err)
	}
	funding := SignerFunding()
	if presigned.Cost().Cmp(funding) > 0 {
		return common.Address{}, fmt.Errorf("presigned factory transaction costs %s wei, more than the %s wei funding",
			presigned.Cost(), funding)
	}

	if _, err = transact(ctx, chain, &info.SignerAddress, funding, nil); err != nil {
		return common.Address{}, fmt.Errorf("failed to fund factory signer %s: %w", info.SignerAddress, err)
	}

	if err = chain.Client.SendTransaction(ctx, presigned); err != nil {
		return common.Address{}, fmt.Errorf("failed to send presigned factory transaction: %w", err)
	}
	if _, err = chain.Confirm(ctx, presigned); err != nil {
		return common.Address{}, fmt.Errorf("failed to confirm presigned factory transaction %s: %w", presigned.Hash(), err)
	}

	deployed, err = HasCode(ctx, chain.Client, info.Address)
	if err != nil {
		return common.Address{}, err
	}
	if !deployed {
		return common.Address{}, fmt.Errorf("%w: factory %s", ErrDeploymentMismatch, info.Address)
	}

	return info.Address, nil
}

func knownChainIDs(registry *factory.Registry) string {
	ids := registry.ChainIDs()
	if len(ids) == 0 {
		return "none"
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}

	return strings.Join(parts, ", ")
}

func deployFactory(ctx context.Context, chain evm.Chain) (common.Address, error) {
	receipt, err := transact(ctx, chain, nil, nil, FactoryBytecode())
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to deploy factory: %w", err)
	}
	if receipt.ContractAddress == (common.Address{}) {
		return common.Address{}, fmt.Errorf("factory deployment receipt %s has no contract address", receipt.TxHash)
	}

	return receipt.ContractAddress, nil
}
