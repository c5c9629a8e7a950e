package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
)

const (
	DefaultConfirmTimeout = 5 * time.Minute
	defaultPollInterval   = time.Second
)

// ReceiptReader looks up a mined transaction. It returns ethereum.NotFound while the
// transaction is pending.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Confirmer polls for receipts until a timeout.
type Confirmer struct {
	Receipts ReceiptReader
	// Timeout bounds the wait for one transaction. Zero means DefaultConfirmTimeout.
	Timeout time.Duration
	// PollInterval is the delay between receipt lookups. Zero means one second.
	PollInterval time.Duration
}

var _ evm.ConfirmFunc = Confirmer{}.Confirm

// Confirm waits for tx to be mined. A receipt with a failed status is returned together with
// an error.
func (c Confirmer) Confirm(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, errors.New("no transaction to confirm")
	}

	timeout, interval := c.Timeout, c.PollInterval
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.Receipts.TransactionReceipt(ctx, tx.Hash())
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted in block %s (gas used %d of %d)",
					tx.Hash(), receipt.BlockNumber, receipt.GasUsed, tx.Gas())
			}

			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return nil, fmt.Errorf("failed to get receipt of %s: %w", tx.Hash(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not mined: %w", tx.Hash(), ctx.Err())
		case <-ticker.C:
		}
	}
}
