package registry

import (
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
)

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func signPermit(t *testing.T, svc *Service, p permit.Permit, key *ecdsa.PrivateKey) string {
	t.Helper()
	sig, err := permit.Sign(svc.Domain(), p, key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return sig
}

// permitFixture mints a token to a holder with a real key and returns
// a permit template valid as of the test clock.
func permitFixture(t *testing.T) (*Service, *testClock, *ecdsa.PrivateKey, permit.Permit) {
	t.Helper()
	svc, clock := newTestRegistry(t)
	holderKey, holder := newKey(t)

	id, err := svc.MintOne(minter, holder, metadata.Ref{})
	if err != nil {
		t.Fatalf("MintOne failed: %v", err)
	}

	p := permit.Permit{
		Owner:    holder,
		Spender:  bob,
		TokenID:  id,
		Deadline: uint64(clock.current.Add(time.Hour).Unix()),
		Nonce:    0,
	}
	return svc, clock, holderKey, p
}

func TestPermit_GrantsOneTimeApproval(t *testing.T) {
	svc, _, holderKey, p := permitFixture(t)

	if err := svc.Permit(p, signPermit(t, svc, p, holderKey)); err != nil {
		t.Fatalf("Permit failed: %v", err)
	}

	approved, err := svc.ApprovedFor(p.TokenID)
	if err != nil || approved != bob {
		t.Fatalf("expected approval for bob, got %s err=%v", approved.Hex(), err)
	}
	nonce, err := svc.NonceOf(p.Owner, p.TokenID)
	if err != nil || nonce != 1 {
		t.Fatalf("expected nonce 1, got %d err=%v", nonce, err)
	}

	// The spender can now move the token, once
	if err := svc.TransferFrom(bob, p.Owner, carol, p.TokenID); err != nil {
		t.Fatalf("TransferFrom failed: %v", err)
	}
	if err := svc.TransferFrom(bob, carol, alice, p.TokenID); !errors.Is(err, ErrNotApproved) {
		t.Errorf("approval must be one-time, got %v", err)
	}

	var seen bool
	for _, ev := range svc.Events() {
		if ev.Kind == events.KindPermitUsed {
			seen = true
		}
	}
	if !seen {
		t.Error("expected a permit_used event")
	}
}

func TestPermit_ReplayRejected(t *testing.T) {
	svc, _, holderKey, p := permitFixture(t)
	sig := signPermit(t, svc, p, holderKey)

	if err := svc.Permit(p, sig); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	err := svc.Permit(p, sig)
	if !errors.Is(err, ErrWrongNonce) {
		t.Fatalf("expected ErrWrongNonce on replay, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategorySignatureInvalid) {
		t.Fatalf("expected CategorySignatureInvalid, got %v", err)
	}
}

func TestPermit_WrongSigner(t *testing.T) {
	svc, _, _, p := permitFixture(t)
	malloryKey, _ := newKey(t)

	// Mallory signs a permit that claims to be from the holder
	err := svc.Permit(p, signPermit(t, svc, p, malloryKey))
	if !errors.Is(err, ErrWrongSigner) {
		t.Fatalf("expected ErrWrongSigner, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategorySignatureInvalid) {
		t.Fatalf("expected CategorySignatureInvalid, got %v", err)
	}
}

func TestPermit_ValidSignatureOverForeignToken(t *testing.T) {
	svc, clock, _, p := permitFixture(t)
	malloryKey, mallory := newKey(t)

	// Mallory signs honestly, naming mallory as owner of a token held
	// by someone else. The signature verifies; ownership is what fails.
	foreign := permit.Permit{
		Owner:    mallory,
		Spender:  bob,
		TokenID:  p.TokenID,
		Deadline: uint64(clock.current.Add(time.Hour).Unix()),
		Nonce:    0,
	}
	err := svc.Permit(foreign, signPermit(t, svc, foreign, malloryKey))
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategorySignatureInvalid) {
		t.Fatalf("expected CategorySignatureInvalid, got %v", err)
	}
}

func TestPermit_DeadlineBoundary(t *testing.T) {
	svc, clock, holderKey, p := permitFixture(t)

	// Exactly at the deadline still passes
	p.Deadline = uint64(clock.current.Unix())
	if err := svc.Permit(p, signPermit(t, svc, p, holderKey)); err != nil {
		t.Fatalf("permit at exact deadline should pass: %v", err)
	}

	// One second past fails
	p.Nonce = 1
	clock.Advance(time.Second)
	err := svc.Permit(p, signPermit(t, svc, p, holderKey))
	if !errors.Is(err, ErrAfterDeadline) {
		t.Fatalf("expected ErrAfterDeadline, got %v", err)
	}
}

func TestPermit_SelfApproval(t *testing.T) {
	svc, _, holderKey, p := permitFixture(t)
	p.Spender = p.Owner

	err := svc.Permit(p, signPermit(t, svc, p, holderKey))
	if !errors.Is(err, ErrSelfApproval) {
		t.Fatalf("expected ErrSelfApproval, got %v", err)
	}
}

func TestPermit_UnknownToken(t *testing.T) {
	svc, _, holderKey, p := permitFixture(t)
	p.TokenID = 99

	err := svc.Permit(p, signPermit(t, svc, p, holderKey))
	if !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Fatalf("expected CategoryNotFound, got %v", err)
	}
}

func TestPermit_MalformedSignature(t *testing.T) {
	svc, _, _, p := permitFixture(t)

	err := svc.Permit(p, "0x1234")
	if !apperrors.Is(err, apperrors.CategorySignatureInvalid) {
		t.Fatalf("expected CategorySignatureInvalid, got %v", err)
	}
}

func TestPermit_CheckOrder(t *testing.T) {
	svc, clock, holderKey, p := permitFixture(t)

	// Stack three defects: expired, stale nonce, self approval. The
	// failures must surface in that order as each defect is repaired.
	defective := p
	defective.Deadline = uint64(clock.current.Add(-time.Minute).Unix())
	defective.Nonce = 7
	defective.Spender = defective.Owner

	if err := svc.Permit(defective, signPermit(t, svc, defective, holderKey)); !errors.Is(err, ErrAfterDeadline) {
		t.Fatalf("expected ErrAfterDeadline first, got %v", err)
	}

	defective.Deadline = p.Deadline
	if err := svc.Permit(defective, signPermit(t, svc, defective, holderKey)); !errors.Is(err, ErrWrongNonce) {
		t.Fatalf("expected ErrWrongNonce second, got %v", err)
	}

	defective.Nonce = 0
	if err := svc.Permit(defective, signPermit(t, svc, defective, holderKey)); !errors.Is(err, ErrSelfApproval) {
		t.Fatalf("expected ErrSelfApproval third, got %v", err)
	}

	defective.Spender = bob
	if err := svc.Permit(defective, signPermit(t, svc, defective, holderKey)); err != nil {
		t.Fatalf("all defects repaired, expected pass, got %v", err)
	}
}

func TestPermit_NewHolderStartsFreshNonce(t *testing.T) {
	svc, clock, holderKey, p := permitFixture(t)
	daveKey, dave := newKey(t)

	if err := svc.Permit(p, signPermit(t, svc, p, holderKey)); err != nil {
		t.Fatalf("Permit failed: %v", err)
	}
	if err := svc.TransferFrom(bob, p.Owner, dave, p.TokenID); err != nil {
		t.Fatalf("TransferFrom failed: %v", err)
	}

	// Dave's counter for the token begins at zero
	nonce, err := svc.NonceOf(dave, p.TokenID)
	if err != nil || nonce != 0 {
		t.Fatalf("expected fresh nonce 0, got %d err=%v", nonce, err)
	}
	davePermit := permit.Permit{
		Owner:    dave,
		Spender:  carol,
		TokenID:  p.TokenID,
		Deadline: uint64(clock.current.Add(time.Hour).Unix()),
		Nonce:    0,
	}
	if err := svc.Permit(davePermit, signPermit(t, svc, davePermit, daveKey)); err != nil {
		t.Fatalf("new holder's permit failed: %v", err)
	}

	// The previous holder can no longer authorize the token
	stale := p
	stale.Nonce = 1
	if err := svc.Permit(stale, signPermit(t, svc, stale, holderKey)); !errors.Is(err, ErrNotOwner) {
		t.Errorf("previous holder must fail ownership, got %v", err)
	}
}
