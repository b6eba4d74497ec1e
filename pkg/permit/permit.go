// Package permit implements the signed-authorization scheme: a holder
// signs a typed message off-line granting one spender a one-time
// approval for one token, and anyone may submit it.
//
// Hashing follows the EIP-712 structured-data scheme so signatures are
// interoperable with standard wallet tooling. Everything in this
// package is pure; state checks (ownership, nonces) live with the
// registry.
package permit

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256Hash([]byte("Permit(address owner,address spender,uint256 tokenId,uint256 deadline,uint256 nonce)"))
)

// Domain pins signatures to one registry deployment. Signatures made
// for another name, version, chain, or instance never verify here.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

// Separator returns the domain separator hash.
func (d Domain) Separator() common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		uintWord(d.ChainID),
		addressWord(d.VerifyingContract),
	)
}

// Permit is the message a holder signs.
type Permit struct {
	Owner    common.Address
	Spender  common.Address
	TokenID  uint64
	Deadline uint64
	Nonce    uint64
}

// StructHash returns the typed-data hash of the permit body.
func (p Permit) StructHash() common.Hash {
	return crypto.Keccak256Hash(
		permitTypeHash.Bytes(),
		addressWord(p.Owner),
		addressWord(p.Spender),
		uintWord(p.TokenID),
		uintWord(p.Deadline),
		uintWord(p.Nonce),
	)
}

// Digest returns the final signable hash: 0x19 0x01 prefix, domain
// separator, then the struct hash.
func Digest(d Domain, p Permit) common.Hash {
	sep := d.Separator()
	structHash := p.StructHash()
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes())
}

// Sign produces a hex signature over the permit digest.
func Sign(d Domain, p Permit, key *ecdsa.PrivateKey) (string, error) {
	digest := Digest(d, p)
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign permit digest: %w", err)
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverSigner returns the address that signed the permit digest.
func RecoverSigner(d Domain, p Permit, signature string) (common.Address, error) {
	// Decode signature from hex
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}

	if len(sigBytes) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: expected 65, got %d", len(sigBytes))
	}

	// Ethereum signature has recovery id (v) at the end
	// v can be 0, 1, 27, or 28 - normalize to 0 or 1
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	digest := Digest(d, p)
	pubKey, err := crypto.SigToPub(digest.Bytes(), sigBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

// uintWord encodes an integer as a 32-byte big-endian word.
func uintWord(v uint64) []byte {
	return common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32)
}

// addressWord encodes an address as a 32-byte word.
func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}
