package provider

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// kmsAPI is the part of the KMS client used to sign with an ECC_SECG_P256K1 key.
type kmsAPI interface {
	GetPublicKeyWithContext(ctx aws.Context, in *kms.GetPublicKeyInput, opts ...request.Option) (*kms.GetPublicKeyOutput, error)
	SignWithContext(ctx aws.Context, in *kms.SignInput, opts ...request.Option) (*kms.SignOutput, error)
}

// KMSKey is a deployer account whose key never leaves AWS KMS.
type KMSKey struct {
	api   kmsAPI
	keyID string

	mu  sync.Mutex
	pub *ecdsa.PublicKey
}

// NewKMSKey opens a session in region. An empty profile uses the AWS environment credentials.
func NewKMSKey(keyID, region, profile string) (*KMSKey, error) {
	if keyID == "" || region == "" {
		return nil, errors.New("KMS key id and region are required")
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(region)},
		Profile:           profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &KMSKey{api: kms.New(sess), keyID: keyID}, nil
}

// Address returns the account of the key.
func (k *KMSKey) Address(ctx context.Context) (common.Address, error) {
	pub, err := k.publicKey(ctx)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pub), nil
}

func (k *KMSKey) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chain id is required")
	}

	pub, err := k.publicKey(ctx)
	if err != nil {
		return nil, err
	}
	from := crypto.PubkeyToAddress(*pub)
	signer := types.LatestSignerForChainID(chainID)

	return &bind.TransactOpts{
		From:    from,
		Context: ctx,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != from {
				return nil, bind.ErrNotAuthorized
			}

			digest := signer.Hash(tx)
			out, err := k.api.SignWithContext(ctx, &kms.SignInput{
				KeyId:            aws.String(k.keyID),
				Message:          digest[:],
				MessageType:      aws.String(kms.MessageTypeDigest),
				SigningAlgorithm: aws.String(kms.SigningAlgorithmSpecEcdsaSha256),
			})
			if err != nil {
				return nil, fmt.Errorf("KMS sign failed: %w", err)
			}

			sig, err := recoverableSignature(out.Signature, digest[:], from)
			if err != nil {
				return nil, err
			}

			return tx.WithSignature(signer, sig)
		},
	}, nil
}

func (k *KMSKey) publicKey(ctx context.Context) (*ecdsa.PublicKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.pub != nil {
		return k.pub, nil
	}

	out, err := k.api.GetPublicKeyWithContext(ctx, &kms.GetPublicKeyInput{KeyId: aws.String(k.keyID)})
	if err != nil {
		return nil, fmt.Errorf("failed to get KMS public key: %w", err)
	}

	var info struct {
		Algorithm pkix.AlgorithmIdentifier
		Key       asn1.BitString
	}
	if _, err = asn1.Unmarshal(out.PublicKey, &info); err != nil {
		return nil, fmt.Errorf("failed to parse KMS public key: %w", err)
	}
	pub, err := crypto.UnmarshalPubkey(info.Key.Bytes)
	if err != nil {
		return nil, fmt.Errorf("KMS key is not secp256k1: %w", err)
	}
	k.pub = pub

	return pub, nil
}

var secp256k1N = crypto.S256().Params().N

// recoverableSignature converts a DER signature into the 65 byte r||s||v form, with s in the
// lower half of the curve order, and picks the v which recovers from.
func recoverableSignature(der, digest []byte, from common.Address) ([]byte, error) {
	var rs struct{ R, S *big.Int }
	if _, err := asn1.Unmarshal(der, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}
	if rs.S.Cmp(new(big.Int).Rsh(secp256k1N, 1)) > 0 {
		rs.S = new(big.Int).Sub(secp256k1N, rs.S)
	}

	sig := make([]byte, crypto.SignatureLength)
	rs.R.FillBytes(sig[:32])
	rs.S.FillBytes(sig[32:64])
	for _, v := range []byte{0, 1} {
		sig[crypto.RecoveryIDOffset] = v
		pub, err := crypto.SigToPub(digest, sig)
		if err == nil && crypto.PubkeyToAddress(*pub) == from {
			return sig, nil
		}
	}

	return nil, fmt.Errorf("KMS signature does not recover to %s", from)
}
