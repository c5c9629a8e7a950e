// Package provider connects an evm.Chain: the deployer key, the RPC nodes and the receipt
// confirmation. NewSimChain builds the same Chain over an in-memory backend for tests.
package provider

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
)

// KeySource yields the signing account of a deployment run.
type KeySource interface {
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

var (
	_ KeySource = PrivateKey("")
	_ KeySource = Mnemonic{}
	_ KeySource = (*KMSKey)(nil)
)

// PrivateKey is a hex encoded secp256k1 key, with or without 0x.
type PrivateKey string

func (k PrivateKey) TransactOpts(_ context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(k)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// Mnemonic derives the account m/44'/60'/0'/0/Index of a BIP39 phrase without passphrase, the
// path used by hardhat, ganache and most wallets.
type Mnemonic struct {
	Phrase string
	Index  uint32
}

func (m Mnemonic) TransactOpts(_ context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	key, err := m.key()
	if err != nil {
		return nil, err
	}

	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

func (m Mnemonic) key() (*ecdsa.PrivateKey, error) {
	phrase := strings.Join(strings.Fields(m.Phrase), " ")
	if phrase == "" {
		return nil, errors.New("mnemonic is empty")
	}

	seed, err := bip39.NewSeedWithErrorChecking(phrase, "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	// chain params only pick the xprv version bytes
	ext, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	for _, child := range []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart,
		0,
		m.Index,
	} {
		if ext, err = ext.Derive(child); err != nil {
			return nil, fmt.Errorf("failed to derive account %d: %w", m.Index, err)
		}
	}

	priv, err := ext.ECPrivKey()
	if err != nil {
		return nil, err
	}

	return priv.ToECDSA(), nil
}
