// Package factory holds the per chain constants of the Safe singleton factory: the canonical
// factory address and the presigned transaction which deploys it.
package factory

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Info describes the singleton factory deployment for one chain id. It uses the field names of
// the safe-singleton-factory deployment.json artifacts.
type Info struct {
	// Address is the canonical factory address.
	Address common.Address `json:"address"`
	// SignerAddress signed Transaction and must be funded before it is broadcast.
	SignerAddress common.Address `json:"signerAddress"`
	// Transaction is the presigned raw factory creation transaction.
	Transaction hexutil.Bytes `json:"transaction"`
	// GasPrice and GasLimit repeat the fields of Transaction. Verify checks them when set.
	GasPrice *big.Int `json:"gasPrice,omitempty"`
	GasLimit uint64   `json:"gasLimit,omitempty"`
}

// Validate checks that all required fields are set.
func (i Info) Validate() error {
	var errs []error
	if i.Address == (common.Address{}) {
		errs = append(errs, errors.New("address is required"))
	}
	if i.SignerAddress == (common.Address{}) {
		errs = append(errs, errors.New("signerAddress is required"))
	}
	if len(i.Transaction) == 0 {
		errs = append(errs, errors.New("transaction is required"))
	}

	return errors.Join(errs...)
}

// DecodeTransaction decodes the presigned transaction.
func (i Info) DecodeTransaction() (*types.Transaction, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(i.Transaction); err != nil {
		return nil, fmt.Errorf("failed to decode presigned transaction: %w", err)
	}

	return tx, nil
}

// Verify decodes the presigned transaction and checks that it is a contract creation signed by
// SignerAddress which deploys to Address with the recorded gas price and gas limit.
func (i Info) Verify() (*types.Transaction, error) {
	tx, err := i.DecodeTransaction()
	if err != nil {
		return nil, err
	}

	if tx.To() != nil {
		return nil, errors.New("presigned transaction is not a contract creation")
	}
	if i.GasPrice != nil && tx.GasPrice().Cmp(i.GasPrice) != 0 {
		return nil, fmt.Errorf("presigned transaction gas price is %s, expected %s", tx.GasPrice(), i.GasPrice)
	}
	if i.GasLimit != 0 && tx.Gas() != i.GasLimit {
		return nil, fmt.Errorf("presigned transaction gas limit is %d, expected %d", tx.Gas(), i.GasLimit)
	}

	signer := types.Signer(types.HomesteadSigner{})
	if tx.Protected() {
		signer = types.LatestSignerForChainID(tx.ChainId())
	}

	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to recover presigned transaction sender: %w", err)
	}
	if sender != i.SignerAddress {
		return nil, fmt.Errorf("presigned transaction signed by %s, expected %s", sender, i.SignerAddress)
	}

	if created := crypto.CreateAddress(sender, tx.Nonce()); created != i.Address {
		return nil, fmt.Errorf("presigned transaction deploys to %s, expected %s", created, i.Address)
	}

	return tx, nil
}
