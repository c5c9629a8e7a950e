package singleton

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CodeReader reads contract code at the latest block.
type CodeReader interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
}

// HasCode reports whether addr holds contract code at the latest block.
func HasCode(ctx context.Context, client CodeReader, addr common.Address) (bool, error) {
	code, err := client.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to read code at %s: %w", addr, err)
	}

	return len(code) > 0, nil
}
