package provider

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPhrase is the hardhat and anvil development mnemonic.
const testPhrase = "test test test test test test test test test test test junk"

func Test_KeySources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		give     KeySource
		wantFrom common.Address
		wantErr  string
	}{
		{
			name:     "private key with prefix",
			give:     PrivateKey("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"),
			wantFrom: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		},
		{
			name:     "private key without prefix",
			give:     PrivateKey("59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"),
			wantFrom: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		},
		{
			name:    "private key not hex",
			give:    PrivateKey("0xnothex"),
			wantErr: "invalid private key",
		},
		{
			name:     "mnemonic first account",
			give:     Mnemonic{Phrase: testPhrase},
			wantFrom: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		},
		{
			name:     "mnemonic second account with extra spaces",
			give:     Mnemonic{Phrase: "  test test test test test test\ttest test test test test junk ", Index: 1},
			wantFrom: common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"),
		},
		{
			name:    "mnemonic with unknown word",
			give:    Mnemonic{Phrase: "test test test test test test test test test test test notaword"},
			wantErr: "invalid mnemonic",
		},
		{
			name:    "empty mnemonic",
			give:    Mnemonic{},
			wantErr: "mnemonic is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, err := tt.give.TransactOpts(t.Context(), big.NewInt(1337))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, opts.From)
			require.NotNil(t, opts.Signer)
		})
	}
}
