package singleton

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
)

// transact signs a legacy transaction from the deployer key, broadcasts it and returns the
// receipt from the chain's confirm function. A nil to creates a contract. The gas price and gas
// limit of the deployer key are used when set, otherwise they come from the node.
func transact(
	ctx context.Context, chain evm.Chain, to *common.Address, value *big.Int, data []byte,
) (*types.Receipt, error) {
	if chain.DeployerKey == nil || chain.DeployerKey.Signer == nil {
		return nil, errors.New("chain has no deployer key")
	}
	from := chain.DeployerKey.From

	nonce, err := chain.Client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce of %s: %w", from, err)
	}

	gasPrice := chain.DeployerKey.GasPrice
	if gasPrice == nil {
		gasPrice, err = chain.Client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}
	}

	gasLimit := chain.DeployerKey.GasLimit
	if gasLimit == 0 {
		gasLimit, err = chain.Client.EstimateGas(ctx, ethereum.CallMsg{
			From:     from,
			To:       to,
			GasPrice: gasPrice,
			Value:    value,
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       to,
		Value:    value,
		Data:     data,
	})

	signed, err := chain.DeployerKey.Signer(from, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := chain.Client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	receipt, err := chain.Confirm(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm transaction %s: %w", signed.Hash(), err)
	}

	return receipt, nil
}
