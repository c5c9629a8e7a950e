package singleton

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/singletonlabs/singleton-deployer/factory"
)

func Test_BootstrapFactory_UnsupportedChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		selector uint64
	}{
		{name: "chain id not registered", selector: chainsel.ETHEREUM_MAINNET.Selector},
		{name: "unknown selector", selector: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := factory.NewRegistry()
			require.NoError(t, registry.Register(1337, presignedFactory(t, testChainID)))

			client := newFakeClient()
			chain := newFakeChain(t, tt.selector, client)

			_, err := BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
			require.ErrorIs(t, err, ErrUnsupportedChain)
			assert.Zero(t, client.total())
		})
	}
}

func Test_BootstrapFactory_UnknownMode(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	chain := newFakeChain(t, testChainSelector, client)

	_, err := BootstrapFactory(context.Background(), chain, Mode(0), nil)
	require.ErrorIs(t, err, ErrUnknownMode)
	assert.Zero(t, client.total())
}

func Test_BootstrapFactory_Replay(t *testing.T) {
	t.Parallel()

	info := presignedFactory(t, testChainID)
	registry := factory.NewRegistry()
	require.NoError(t, registry.Register(1337, info))

	client := newFakeClient()
	client.onSend = func(fc *fakeClient, tx *types.Transaction) {
		if bytes.Equal(tx.Data(), FactoryBytecode()) && tx.To() == nil {
			fc.setCode(info.Address, []byte{0x60, 0x00})
		}
	}
	chain := newFakeChain(t, testChainSelector, client)

	got, err := BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
	require.NoError(t, err)
	assert.Equal(t, info.Address, got)

	sent := client.sentTxs()
	require.Len(t, sent, 2)

	// The signer is funded first, then the presigned transaction is sent unmodified.
	require.NotNil(t, sent[0].To())
	assert.Equal(t, info.SignerAddress, *sent[0].To())
	assert.Equal(t, SignerFunding(), sent[0].Value())

	raw, err := sent[1].MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte(info.Transaction), raw)

	assert.Equal(t, 2, client.count("CodeAt"))
}

func Test_BootstrapFactory_ReplayChainIDWithoutSelector(t *testing.T) {
	t.Parallel()

	info := presignedFactory(t, big.NewInt(5777))
	registry := factory.NewRegistry()
	require.NoError(t, registry.Register(5777, info))

	client := newFakeClient()
	client.setCode(info.Address, []byte{0x60, 0x00})
	chain := newFakeChain(t, 0, client)
	chain.ID = 5777

	got, err := BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
	require.NoError(t, err)
	assert.Equal(t, info.Address, got)

	chain.ID = 5778
	_, err = BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
	require.ErrorIs(t, err, ErrUnsupportedChain)
	require.ErrorContains(t, err, "no factory info for chain id 5778 (known: 5777)")
}

func Test_BootstrapFactory_ReplayAlreadyDeployed(t *testing.T) {
	t.Parallel()

	info := presignedFactory(t, testChainID)
	registry := factory.NewRegistry()
	require.NoError(t, registry.Register(1337, info))

	client := newFakeClient()
	client.setCode(info.Address, []byte{0x60, 0x00})
	chain := newFakeChain(t, testChainSelector, client)

	got, err := BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
	require.NoError(t, err)
	assert.Equal(t, info.Address, got)

	assert.Equal(t, 1, client.count("CodeAt"))
	assert.Equal(t, 1, client.total())
}

func Test_BootstrapFactory_ReplayErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		giveInfo  func(t *testing.T) factory.Info
		giveSetup func(client *fakeClient)
		wantErr   error
		wantMsg   string
		wantSent  int
	}{
		{
			name:     "no code after replay",
			giveInfo: func(t *testing.T) factory.Info { t.Helper(); return presignedFactory(t, testChainID) },
			wantErr:  ErrDeploymentMismatch,
			wantSent: 2,
		},
		{
			name: "wrong signer",
			giveInfo: func(t *testing.T) factory.Info {
				t.Helper()
				info := presignedFactory(t, testChainID)
				info.SignerAddress = common.HexToAddress("0x01")

				return info
			},
			wantMsg:  "invalid factory info for chain id 1337",
			wantSent: 0,
		},
		{
			name: "presigned transaction costs more than the funding",
			giveInfo: func(t *testing.T) factory.Info {
				t.Helper()

				return presignedFactoryWithGasPrice(t, testChainID, big.NewInt(2_000_000_000_000))
			},
			wantMsg:  "presigned factory transaction costs 200000000000000000 wei, more than the 100000000000000000 wei funding",
			wantSent: 0,
		},
		{
			name:     "send fails",
			giveInfo: func(t *testing.T) factory.Info { t.Helper(); return presignedFactory(t, testChainID) },
			giveSetup: func(client *fakeClient) {
				client.sendErr = assert.AnError
			},
			wantErr:  assert.AnError,
			wantMsg:  "failed to fund factory signer",
			wantSent: 0,
		},
		{
			name:     "code read fails",
			giveInfo: func(t *testing.T) factory.Info { t.Helper(); return presignedFactory(t, testChainID) },
			giveSetup: func(client *fakeClient) {
				client.codeErr = assert.AnError
			},
			wantErr:  assert.AnError,
			wantSent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry := factory.NewRegistry()
			require.NoError(t, registry.Register(1337, tt.giveInfo(t)))

			client := newFakeClient()
			if tt.giveSetup != nil {
				tt.giveSetup(client)
			}
			chain := newFakeChain(t, testChainSelector, client)

			_, err := BootstrapFactory(context.Background(), chain, ModeDeterministicReplay, registry)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				require.ErrorContains(t, err, tt.wantMsg)
			}
			assert.Len(t, client.sentTxs(), tt.wantSent)
		})
	}
}

func Test_BootstrapFactory_Direct(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	chain := newFakeChain(t, testChainSelector, client)
	want := crypto.CreateAddress(chain.DeployerKey.From, 0)

	client.onSend = func(fc *fakeClient, tx *types.Transaction) {
		fc.mu.Lock()
		defer fc.mu.Unlock()

		fc.receipts[tx.Hash()] = &types.Receipt{
			Status:          types.ReceiptStatusSuccessful,
			TxHash:          tx.Hash(),
			ContractAddress: crypto.CreateAddress(chain.DeployerKey.From, tx.Nonce()),
		}
	}

	got, err := BootstrapFactory(context.Background(), chain, ModeDirect, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	sent := client.sentTxs()
	require.Len(t, sent, 1)
	assert.Nil(t, sent[0].To())
	assert.Equal(t, FactoryBytecode(), sent[0].Data())
	assert.Zero(t, client.count("TransactionReceipt"))
	assert.Zero(t, client.count("CodeAt"))
}

func Test_BootstrapFactory_DirectNoContractAddress(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.onSend = func(fc *fakeClient, tx *types.Transaction) {
		fc.mu.Lock()
		defer fc.mu.Unlock()

		fc.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}
	}
	chain := newFakeChain(t, testChainSelector, client)

	_, err := BootstrapFactory(context.Background(), chain, ModeDirect, nil)
	require.ErrorContains(t, err, "no contract address")
}

func Test_FactoryBytecode_Copy(t *testing.T) {
	t.Parallel()

	code := FactoryBytecode()
	code[0] = 0x00
	assert.Equal(t, byte(0x60), FactoryBytecode()[0])

	funding := SignerFunding()
	funding.SetInt64(1)
	assert.Equal(t, "100000000000000000", SignerFunding().String())
}
