package singleton

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/singletonlabs/singleton-deployer/catalog"
	"github.com/singletonlabs/singleton-deployer/chain/evm"
	"github.com/singletonlabs/singleton-deployer/factory"
)

var (
	// testChainSelector maps to chain id 1337, the simulated backend chain id.
	testChainSelector = chainsel.GETH_TESTNET.Selector
	testChainID       = big.NewInt(1337)

	// testInitCodePrefix copies the 10 byte runtime which follows it and returns it.
	testInitCodePrefix = "0x600a600c600039600a6000f3"
)

// testRuntime returns runtime code which returns the word n.
func testRuntime(n byte) []byte {
	return hexutil.MustDecode(fmt.Sprintf("0x60%02x60005260206000f3", n))
}

// testInitCode returns creation code deploying testRuntime(n).
func testInitCode(n byte) []byte {
	return append(hexutil.MustDecode(testInitCodePrefix), testRuntime(n)...)
}

// testTargets returns the Safe v1.3.0 target names with small distinct init codes.
func testTargets() []catalog.Target {
	names := catalog.Names()
	targets := make([]catalog.Target, 0, len(names))
	for i, name := range names {
		targets = append(targets, catalog.Target{Name: name, InitCode: testInitCode(byte(i + 1))})
	}

	return targets
}

// presignedFactory signs an EIP-155 creation of the minimal factory with a fresh key and returns
// the Info describing it.
func presignedFactory(t *testing.T, chainID *big.Int) factory.Info {
	t.Helper()

	return presignedFactoryWithGasPrice(t, chainID, big.NewInt(100_000_000_000))
}

func presignedFactoryWithGasPrice(t *testing.T, chainID *big.Int, gasPrice *big.Int) factory.Info {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	gasLimit := uint64(100000)

	unsigned := types.NewContractCreation(0, big.NewInt(0), gasLimit, gasPrice, FactoryBytecode())
	tx, err := types.SignTx(unsigned, types.NewEIP155Signer(chainID), key)
	require.NoError(t, err)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	return factory.Info{
		Address:       crypto.CreateAddress(signer, 0),
		SignerAddress: signer,
		Transaction:   raw,
		GasPrice:      gasPrice,
		GasLimit:      gasLimit,
	}
}

// fakeClient is an in memory evm.OnchainClient which counts calls. Methods the deployer never
// calls are left to the nil embedded interface.
type fakeClient struct {
	evm.OnchainClient

	mu       sync.Mutex
	calls    map[string]int
	code     map[common.Address][]byte
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction

	codeErr error
	sendErr error
	// onSend is called with every transaction sent, e.g. to place code on chain.
	onSend func(fc *fakeClient, tx *types.Transaction)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		calls:    make(map[string]int),
		code:     make(map[common.Address][]byte),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (c *fakeClient) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[method]++
}

func (c *fakeClient) setCode(addr common.Address, code []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.code[addr] = code
}

func (c *fakeClient) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

func (c *fakeClient) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, v := range c.calls {
		n += v
	}

	return n
}

func (c *fakeClient) sentTxs() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*types.Transaction(nil), c.sent...)
}

func (c *fakeClient) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	c.record("CodeAt")
	if c.codeErr != nil {
		return nil, c.codeErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.code[addr], nil
}

func (c *fakeClient) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	c.record("PendingNonceAt")

	c.mu.Lock()
	defer c.mu.Unlock()

	return uint64(len(c.sent)), nil
}

func (c *fakeClient) SuggestGasPrice(context.Context) (*big.Int, error) {
	c.record("SuggestGasPrice")
	return big.NewInt(1_000_000_000), nil
}

func (c *fakeClient) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	c.record("EstimateGas")
	return 100000, nil
}

func (c *fakeClient) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.record("SendTransaction")
	if c.sendErr != nil {
		return c.sendErr
	}

	c.mu.Lock()
	c.sent = append(c.sent, tx)
	c.mu.Unlock()

	if c.onSend != nil {
		c.onSend(c, tx)
	}

	return nil
}

// receipt returns the receipt stored for tx, or a successful one.
func (c *fakeClient) receipt(tx *types.Transaction) *types.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.receipts[tx.Hash()]; ok {
		return r
	}

	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}
}

// newFakeChain returns a chain backed by client with a fresh deployer key. Confirm does not call
// the client.
func newFakeChain(t *testing.T, selector uint64, client *fakeClient) evm.Chain {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	deployerKey, err := bind.NewKeyedTransactorWithChainID(key, testChainID)
	require.NoError(t, err)

	return evm.Chain{
		Selector:    selector,
		Client:      client,
		DeployerKey: deployerKey,
		Confirm: func(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
			if tx == nil {
				return nil, errors.New("nil tx")
			}

			return client.receipt(tx), nil
		},
	}
}
