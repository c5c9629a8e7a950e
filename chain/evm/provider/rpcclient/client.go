// Package rpcclient fails over between the JSON-RPC nodes of one chain.
package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/pkg/logger"
)

const (
	DefaultCallTimeout  = 30 * time.Second
	DefaultDialAttempts = 3
	DefaultDialDelay    = 500 * time.Millisecond
)

// Node is one JSON-RPC endpoint, http(s) or ws(s).
type Node struct {
	Name string
	URL  string
}

// Options tunes a Client. Zero values take the defaults.
type Options struct {
	// ChainID drops nodes reporting another eth_chainId. Zero accepts the id of the first node.
	ChainID uint64
	// CallTimeout bounds a single call on a single node.
	CallTimeout time.Duration
	// DialAttempts is the number of eth_chainId attempts per node before it is dropped.
	DialAttempts uint
	DialDelay    time.Duration
}

func (o *Options) setDefaults() {
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.DialAttempts == 0 {
		o.DialAttempts = DefaultDialAttempts
	}
	if o.DialDelay <= 0 {
		o.DialDelay = DefaultDialDelay
	}
}

var _ evm.OnchainClient = (*Client)(nil)

// Client sends each call to the first healthy node. A node which fails at the transport level
// moves to the back of the list and the call is repeated on the next one. Errors returned by a
// node, such as a revert or a nonce error, are final.
type Client struct {
	lggr    logger.Logger
	opts    Options
	chainID uint64

	mu    sync.Mutex
	nodes []*node
}

type node struct {
	name string
	eth  *ethclient.Client
}

// Dial connects to every node and keeps the ones answering eth_chainId with the expected id.
func Dial(ctx context.Context, lggr logger.Logger, nodes []Node, opts Options) (*Client, error) {
	if len(nodes) == 0 {
		return nil, errors.New("no RPC nodes configured")
	}
	opts.setDefaults()

	c := &Client{lggr: lggr, opts: opts, chainID: opts.ChainID}
	var errs []error
	for _, n := range nodes {
		eth, id, err := c.dialNode(ctx, n)
		if err != nil {
			lggr.Warnw("Skipping RPC node", "node", n.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name, err))

			continue
		}
		if c.chainID == 0 {
			c.chainID = id
		}
		if id != c.chainID {
			eth.Close()
			lggr.Warnw("Skipping RPC node on another chain", "node", n.Name, "chainID", id, "want", c.chainID)
			errs = append(errs, fmt.Errorf("%s: chain id %d, want %d", n.Name, id, c.chainID))

			continue
		}
		c.nodes = append(c.nodes, &node{name: n.Name, eth: eth})
	}

	if len(c.nodes) == 0 {
		return nil, fmt.Errorf("no usable RPC node: %w", errors.Join(errs...))
	}
	lggr.Debugw("Connected to RPC nodes", "count", len(c.nodes), "chainID", c.chainID)

	return c, nil
}

type dialed struct {
	eth *ethclient.Client
	id  uint64
}

func (c *Client) dialNode(ctx context.Context, n Node) (*ethclient.Client, uint64, error) {
	if n.URL == "" {
		return nil, 0, errors.New("empty url")
	}

	d, err := retry.DoWithData(func() (dialed, error) {
		dctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()

		rc, err := rpc.DialContext(dctx, n.URL)
		if err != nil {
			return dialed{}, err
		}
		eth := ethclient.NewClient(rc)
		id, err := eth.ChainID(dctx)
		if err != nil {
			eth.Close()
			return dialed{}, err
		}

		return dialed{eth: eth, id: id.Uint64()}, nil
	},
		retry.Context(ctx),
		retry.Attempts(c.opts.DialAttempts),
		retry.Delay(c.opts.DialDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, 0, err
	}

	return d.eth, d.id, nil
}

// ChainID returns the chain id all nodes of the client agreed on at dial time.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

// Close closes every node connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, n := range c.nodes {
		n.eth.Close()
	}
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return call(ctx, c, "eth_getCode", func(ctx context.Context, eth *ethclient.Client) ([]byte, error) {
		return eth.CodeAt(ctx, account, blockNumber)
	})
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return call(ctx, c, "eth_getBalance", func(ctx context.Context, eth *ethclient.Client) (*big.Int, error) {
		return eth.BalanceAt(ctx, account, blockNumber)
	})
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return call(ctx, c, "eth_getTransactionCount", func(ctx context.Context, eth *ethclient.Client) (uint64, error) {
		return eth.PendingNonceAt(ctx, account)
	})
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return call(ctx, c, "eth_gasPrice", func(ctx context.Context, eth *ethclient.Client) (*big.Int, error) {
		return eth.SuggestGasPrice(ctx)
	})
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return call(ctx, c, "eth_estimateGas", func(ctx context.Context, eth *ethclient.Client) (uint64, error) {
		return eth.EstimateGas(ctx, msg)
	})
}

// SendTransaction broadcasts tx. A node that already holds tx counts as success, which happens
// when a node timed out after accepting it and the call moved on.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := call(ctx, c, "eth_sendRawTransaction", func(ctx context.Context, eth *ethclient.Client) (struct{}, error) {
		return struct{}{}, eth.SendTransaction(ctx, tx)
	})
	if err != nil && strings.Contains(err.Error(), "already known") {
		c.lggr.Debugw("Transaction already known to node", "tx", tx.Hash())
		return nil
	}

	return err
}

// TransactionReceipt returns ethereum.NotFound without failing over while tx is pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return call(ctx, c, "eth_getTransactionReceipt", func(ctx context.Context, eth *ethclient.Client) (*types.Receipt, error) {
		return eth.TransactionReceipt(ctx, txHash)
	})
}

func call[T any](
	ctx context.Context, c *Client, method string, fn func(context.Context, *ethclient.Client) (T, error),
) (T, error) {
	var (
		zero T
		errs []error
	)
	for _, n := range c.snapshot() {
		cctx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
		v, err := fn(cctx, n.eth)
		cancel()
		if err == nil || !shouldFailover(ctx, err) {
			return v, err
		}

		c.lggr.Warnw("RPC node failed, trying the next one", "node", n.name, "method", method, "error", err)
		c.demote(n)
		errs = append(errs, fmt.Errorf("%s: %w", n.name, err))
	}

	return zero, fmt.Errorf("%s failed on every RPC node: %w", method, errors.Join(errs...))
}

// shouldFailover is false for answers of a reachable node and for a cancelled caller.
func shouldFailover(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ethereum.NotFound) {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}

	return true
}

func (c *Client) snapshot() []*node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*node(nil), c.nodes...)
}

// demote moves n behind every other node.
func (c *Client) demote(n *node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, cur := range c.nodes {
		if cur == n {
			c.nodes = append(append(c.nodes[:i:i], c.nodes[i+1:]...), n)
			return
		}
	}
}
