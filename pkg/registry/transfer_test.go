package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/guard"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
)

func mintTo(t *testing.T, svc *Service, to common.Address) uint64 {
	t.Helper()
	id, err := svc.MintOne(minter, to, metadata.Ref{})
	if err != nil {
		t.Fatalf("MintOne failed: %v", err)
	}
	return id
}

func TestTransfer(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Transfer(alice, bob, id); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	owner, err := svc.OwnerOf(id)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if owner != bob {
		t.Errorf("expected owner %s, got %s", bob.Hex(), owner.Hex())
	}
	if svc.BalanceOf(alice) != 0 || svc.BalanceOf(bob) != 1 {
		t.Errorf("balances wrong: alice=%d bob=%d", svc.BalanceOf(alice), svc.BalanceOf(bob))
	}
	if svc.TransferCount() != 1 {
		t.Errorf("expected transfer count 1, got %d", svc.TransferCount())
	}
}

func TestTransfer_OnlyHolderMayMove(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	err := svc.Transfer(bob, carol, id)
	if !errors.Is(err, ErrNotHolder) {
		t.Fatalf("expected ErrNotHolder, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategoryAuthorizationDenied) {
		t.Fatalf("expected CategoryAuthorizationDenied, got %v", err)
	}
}

func TestTransfer_UnknownToken(t *testing.T) {
	svc, _ := newTestRegistry(t)

	if err := svc.Transfer(alice, bob, 42); !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("expected CategoryNotFound, got %v", err)
	}
}

func TestTransfer_CooldownLocksAfterEachHop(t *testing.T) {
	svc, clock := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.SetCooldownDuration(admin, 60*time.Second); err != nil {
		t.Fatalf("SetCooldownDuration failed: %v", err)
	}

	// A freshly minted token is not in cooldown
	if err := svc.Transfer(alice, bob, id); err != nil {
		t.Fatalf("first transfer should pass: %v", err)
	}

	// The hop stamped the token; the next hop is locked
	err := svc.Transfer(bob, carol, id)
	if !errors.Is(err, guard.ErrTransferLocked) {
		t.Fatalf("expected ErrTransferLocked, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategoryPolicyViolation) {
		t.Fatalf("expected CategoryPolicyViolation, got %v", err)
	}

	remaining, err := svc.CooldownRemaining(id)
	if err != nil {
		t.Fatalf("CooldownRemaining failed: %v", err)
	}
	if remaining != 60*time.Second {
		t.Errorf("expected 60s remaining, got %s", remaining)
	}

	clock.Advance(59 * time.Second)
	if err := svc.Transfer(bob, carol, id); !errors.Is(err, guard.ErrTransferLocked) {
		t.Fatalf("one second early, expected still locked, got %v", err)
	}

	clock.Advance(time.Second)
	if err := svc.Transfer(bob, carol, id); err != nil {
		t.Fatalf("cooldown elapsed, expected pass, got %v", err)
	}
	if svc.TransferCount() != 2 {
		t.Errorf("expected 2 transfers counted, got %d", svc.TransferCount())
	}
}

func TestTransfer_FailedTransferDoesNotAdvanceSequence(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Freeze(admin, id); err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	if err := svc.Transfer(alice, bob, id); !errors.Is(err, guard.ErrTokenFrozen) {
		t.Fatalf("expected ErrTokenFrozen, got %v", err)
	}
	if svc.TransferCount() != 0 {
		t.Errorf("rejected transfer must not count, got %d", svc.TransferCount())
	}
}

func TestTransfer_MintAndBurnDoNotCount(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Burn(admin, id); err != nil {
		t.Fatalf("Burn failed: %v", err)
	}
	if svc.TransferCount() != 0 {
		t.Errorf("mint and burn must not advance the sequence, got %d", svc.TransferCount())
	}
}

func TestTransfer_SequenceRecordedInEvents(t *testing.T) {
	svc, _ := newTestRegistry(t)
	first := mintTo(t, svc, alice)
	second := mintTo(t, svc, alice)

	if err := svc.Transfer(alice, bob, first); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if err := svc.Transfer(alice, bob, second); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	var seqs []uint64
	for _, ev := range svc.Events() {
		if ev.Kind == events.KindTransferred {
			seqs = append(seqs, ev.Sequence)
		}
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Errorf("expected sequences [1 2], got %v", seqs)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	approved, err := svc.ApprovedFor(id)
	if err != nil || approved != bob {
		t.Fatalf("expected approval for bob, got %s err=%v", approved.Hex(), err)
	}

	if err := svc.TransferFrom(bob, alice, carol, id); err != nil {
		t.Fatalf("TransferFrom failed: %v", err)
	}
	owner, _ := svc.OwnerOf(id)
	if owner != carol {
		t.Errorf("expected owner %s, got %s", carol.Hex(), owner.Hex())
	}

	// The approval was consumed by the transfer
	approved, err = svc.ApprovedFor(id)
	if err != nil {
		t.Fatalf("ApprovedFor failed: %v", err)
	}
	if approved != (common.Address{}) {
		t.Errorf("approval should be cleared, got %s", approved.Hex())
	}
	if err := svc.TransferFrom(bob, carol, alice, id); !errors.Is(err, ErrNotApproved) {
		t.Errorf("spent approval must not authorize again, got %v", err)
	}
}

func TestTransferFrom_RequiresApproval(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	err := svc.TransferFrom(bob, alice, carol, id)
	if !errors.Is(err, ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategoryAuthorizationDenied) {
		t.Fatalf("expected CategoryAuthorizationDenied, got %v", err)
	}
}

func TestTransferFrom_FromMustHoldToken(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := svc.TransferFrom(bob, carol, bob, id); !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Errorf("expected CategoryInputInvalid for wrong from, got %v", err)
	}
}

func TestApprove_SelfApprovalRejected(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	err := svc.Approve(alice, alice, id)
	if !errors.Is(err, ErrSelfApproval) {
		t.Fatalf("expected ErrSelfApproval, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Fatalf("expected CategoryInputInvalid, got %v", err)
	}
}

func TestApprove_ZeroSpenderClears(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := svc.Approve(alice, common.Address{}, id); err != nil {
		t.Fatalf("clearing approval failed: %v", err)
	}
	approved, _ := svc.ApprovedFor(id)
	if approved != (common.Address{}) {
		t.Errorf("approval should be cleared, got %s", approved.Hex())
	}
}

func TestApprove_TransferInvalidatesApproval(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Approve(alice, bob, id); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := svc.Transfer(alice, carol, id); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if err := svc.TransferFrom(bob, carol, alice, id); !errors.Is(err, ErrNotApproved) {
		t.Errorf("approval must not survive a direct transfer, got %v", err)
	}
}

func TestIndexConsistencyUnderChurn(t *testing.T) {
	svc, _ := newTestRegistry(t)
	holders := []common.Address{alice, bob, carol}

	ids := make([]uint64, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, mintTo(t, svc, holders[i%3]))
	}
	for i, id := range ids {
		if i%2 == 0 {
			if err := svc.Transfer(holders[i%3], holders[(i+1)%3], id); err != nil {
				t.Fatalf("Transfer(%d) failed: %v", id, err)
			}
		}
	}
	for i, id := range ids {
		if i%3 == 0 {
			if err := svc.Burn(admin, id); err != nil {
				t.Fatalf("Burn(%d) failed: %v", id, err)
			}
		}
	}

	if err := svc.Verify(); err != nil {
		t.Fatalf("registry inconsistent after churn: %v", err)
	}

	// Every enumerated token agrees with the ownership map, and the
	// balances add up to the supply
	total := 0
	for _, h := range holders {
		for _, id := range svc.TokensOf(h) {
			owner, err := svc.OwnerOf(id)
			if err != nil {
				t.Fatalf("enumerated token %d not found: %v", id, err)
			}
			if owner != h {
				t.Errorf("token %d enumerated under %s but owned by %s", id, h.Hex(), owner.Hex())
			}
		}
		total += svc.BalanceOf(h)
	}
	if total != svc.TotalSupply() {
		t.Errorf("balances sum to %d, supply is %d", total, svc.TotalSupply())
	}
}
