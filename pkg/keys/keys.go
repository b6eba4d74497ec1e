// Package keys generates secp256k1 identities for registry holders and
// operators. Deterministic derivation keeps demo and test environments
// reproducible without shipping raw private keys around.
package keys

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

// KeyPair is a secp256k1 keypair, the curve registry callers sign with
type KeyPair struct {
	PublicKey  []byte // 33-byte compressed secp256k1 public key
	PrivateKey []byte // 32-byte secp256k1 private key
}

// Generate creates a new random keypair
func Generate() (*KeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 keypair: %w", err)
	}
	return fromECDSA(privateKey), nil
}

// Derive deterministically derives a keypair from a label and seed.
// Uses HKDF with SHA-256, so the same inputs always yield the same
// identity.
func Derive(label string, seed []byte) (*KeyPair, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("seed must be at least 32 bytes")
	}

	info := []byte("registry-identity-" + label)
	hkdfReader := hkdf.New(sha256.New, seed, nil, info)

	// secp256k1 private key is 32 bytes
	privateKeyBytes := make([]byte, 32)
	if _, err := io.ReadFull(hkdfReader, privateKeyBytes); err != nil {
		return nil, fmt.Errorf("failed to derive key seed: %w", err)
	}

	privateKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create private key: %w", err)
	}
	return fromECDSA(privateKey), nil
}

// FromHex loads a keypair from a hex-encoded private key, with or
// without the 0x prefix.
func FromHex(s string) (*KeyPair, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return fromECDSA(privateKey), nil
}

func fromECDSA(privateKey *ecdsa.PrivateKey) *KeyPair {
	return &KeyPair{
		PublicKey:  crypto.CompressPubkey(&privateKey.PublicKey),
		PrivateKey: crypto.FromECDSA(privateKey),
	}
}

// ECDSA returns the private key in the form the permit signing helpers
// expect
func (kp *KeyPair) ECDSA() (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.ToECDSA(kp.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key: %w", err)
	}
	return privateKey, nil
}

// Address returns the EVM address the registry knows this identity by
func (kp *KeyPair) Address() (common.Address, error) {
	publicKey, err := crypto.DecompressPubkey(kp.PublicKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decompress public key: %w", err)
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// PublicKeyHex returns the public key as a hex string (for display/logging)
func (kp *KeyPair) PublicKeyHex() string {
	return fmt.Sprintf("%x", kp.PublicKey)
}

// PrivateKeyHex returns the private key as a hex string with 0x prefix (for wallet import)
func (kp *KeyPair) PrivateKeyHex() string {
	return fmt.Sprintf("0x%x", kp.PrivateKey)
}

// SignMessage signs a human-readable message with the EIP-191 prefix.
// The returned 0x-prefixed hex signature is what the RPC signature
// headers carry.
func (kp *KeyPair) SignMessage(message string) (string, error) {
	privateKey, err := kp.ECDSA()
	if err != nil {
		return "", err
	}

	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256Hash([]byte(prefixed))

	signature, err := crypto.Sign(hash.Bytes(), privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return "0x" + hex.EncodeToString(signature), nil
}

// SignHash signs a 32-byte digest, returning the 65-byte [R || S || V]
// signature
func (kp *KeyPair) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes")
	}

	privateKey, err := kp.ECDSA()
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(hash, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return signature, nil
}

// VerifyHash checks a 65-byte signature over a 32-byte digest against
// this keypair
func (kp *KeyPair) VerifyHash(hash, signature []byte) bool {
	if len(hash) != 32 || len(signature) != 65 {
		return false
	}

	recovered, err := crypto.SigToPub(hash, signature)
	if err != nil {
		return false
	}
	publicKey, err := crypto.DecompressPubkey(kp.PublicKey)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*recovered) == crypto.PubkeyToAddress(*publicKey)
}
