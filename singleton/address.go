package singleton

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Salt is the CREATE2 salt shared by every singleton: 32 zero bytes.
var Salt [32]byte

// ComputeAddress returns the CREATE2 address of initCode deployed by factory with salt (EIP-1014):
// keccak256(0xff ++ factory ++ salt ++ keccak256(initCode))[12:].
func ComputeAddress(factory common.Address, salt [32]byte, initCode []byte) common.Address {
	return crypto.CreateAddress2(factory, salt, crypto.Keccak256(initCode))
}
