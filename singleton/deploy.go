package singleton

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
)

// Deployment is the outcome of deploying one singleton.
type Deployment struct {
	Address common.Address `json:"address"`
	// Existing is true when the address already held code and nothing was sent.
	Existing bool `json:"existing"`
	// TxHash is the factory call, empty when Existing.
	TxHash common.Hash `json:"txHash"`
}

// DeploySingleton deploys initCode through the factory at the CREATE2 address for Salt. If the
// address already holds code it is returned without sending a transaction.
//
// The code is read again after the transaction is confirmed and ErrDeploymentMismatch is
// returned if the address is still empty.
func DeploySingleton(
	ctx context.Context, chain evm.Chain, factoryAddr common.Address, initCode []byte,
) (Deployment, error) {
	if len(initCode) == 0 {
		return Deployment{}, fmt.Errorf("%w: empty init code", ErrInvalidTarget)
	}

	addr := ComputeAddress(factoryAddr, Salt, initCode)

	deployed, err := HasCode(ctx, chain.Client, addr)
	if err != nil {
		return Deployment{}, err
	}
	if deployed {
		return Deployment{Address: addr, Existing: true}, nil
	}

	data := make([]byte, 0, len(Salt)+len(initCode))
	data = append(data, Salt[:]...)
	data = append(data, initCode...)

	receipt, err := transact(ctx, chain, &factoryAddr, nil, data)
	if err != nil {
		return Deployment{}, fmt.Errorf("failed to deploy singleton %s through factory %s: %w", addr, factoryAddr, err)
	}

	deployed, err = HasCode(ctx, chain.Client, addr)
	if err != nil {
		return Deployment{}, err
	}
	if !deployed {
		return Deployment{}, fmt.Errorf("%w: %s (tx %s)", ErrDeploymentMismatch, addr, receipt.TxHash)
	}

	return Deployment{Address: addr, TxHash: receipt.TxHash}, nil
}
