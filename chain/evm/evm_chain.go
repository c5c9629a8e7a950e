package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// ConfirmFunc blocks until tx is mined and returns its receipt. A reverted transaction is an
// error.
type ConfirmFunc func(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

// OnchainClient is the node surface used by a deployment run: one sequential account sending
// legacy transactions and reading code.
type OnchainClient interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Chain is a connected EVM chain with the account that pays for the deployment.
type Chain struct {
	// Selector is the chain-selectors id of the chain. Zero for chains chain-selectors does not
	// know, in which case ID must be set.
	Selector uint64
	// ID is the EVM chain id. When zero it is derived from Selector.
	ID uint64

	Client OnchainClient
	// DeployerKey signs every transaction of a run. Its Signer may be backed by a raw key, a
	// mnemonic or KMS.
	DeployerKey *bind.TransactOpts
	Confirm     ConfirmFunc
}

// ChainSelector returns the chain selector, zero if the chain has none.
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// ChainID returns the EVM chain id.
func (c Chain) ChainID() (uint64, error) {
	if c.ID != 0 {
		return c.ID, nil
	}
	if c.Selector == 0 {
		return 0, errors.New("chain has neither a chain id nor a selector")
	}

	idStr, err := chainsel.GetChainIDFromSelector(c.Selector)
	if err != nil {
		return 0, fmt.Errorf("failed to get chain ID from selector %d: %w", c.Selector, err)
	}

	return strconv.ParseUint(idStr, 10, 64)
}

// Name returns the chain-selectors name, or "chain-<id>" for chains without one.
func (c Chain) Name() string {
	if details, ok := chainsel.ChainBySelector(c.Selector); ok && details.Name != "" {
		return details.Name
	}
	if id, err := c.ChainID(); err == nil {
		return "chain-" + strconv.FormatUint(id, 10)
	}

	return strconv.FormatUint(c.Selector, 10)
}

// String renders "<name> (<selector>)", or "<name>" when there is no selector.
func (c Chain) String() string {
	if c.Selector == 0 {
		return c.Name()
	}

	return fmt.Sprintf("%s (%d)", c.Name(), c.Selector)
}
