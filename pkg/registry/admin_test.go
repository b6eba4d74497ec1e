package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/guard"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/policy"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
)

func TestSuspendBlocksBothDirections(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)
	other := mintTo(t, svc, bob)

	if err := svc.Suspend(admin, alice); err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}
	if !svc.IsSuspended(alice) {
		t.Fatal("alice should be suspended")
	}

	if err := svc.Transfer(alice, carol, id); !errors.Is(err, guard.ErrHolderSuspended) {
		t.Errorf("suspended holder should not send, got %v", err)
	}
	if err := svc.Transfer(bob, alice, other); !errors.Is(err, guard.ErrRecipientSuspended) {
		t.Errorf("suspended recipient should not receive, got %v", err)
	}

	if err := svc.Unsuspend(admin, alice); err != nil {
		t.Fatalf("Unsuspend failed: %v", err)
	}
	if err := svc.Transfer(alice, carol, id); err != nil {
		t.Errorf("unsuspended holder should send, got %v", err)
	}
}

func TestSuspend_ZeroAddressRejected(t *testing.T) {
	svc, _ := newTestRegistry(t)

	if err := svc.Suspend(admin, common.Address{}); !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Errorf("expected CategoryInputInvalid, got %v", err)
	}
}

func TestFreezeUnfreeze(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	if err := svc.Freeze(admin, id); err != nil {
		t.Fatalf("Freeze failed: %v", err)
	}
	frozen, err := svc.IsFrozen(id)
	if err != nil || !frozen {
		t.Fatalf("expected frozen, got %v err=%v", frozen, err)
	}
	if err := svc.Transfer(alice, bob, id); !errors.Is(err, guard.ErrTokenFrozen) {
		t.Errorf("frozen token should not move, got %v", err)
	}

	if err := svc.Unfreeze(admin, id); err != nil {
		t.Fatalf("Unfreeze failed: %v", err)
	}
	if err := svc.Transfer(alice, bob, id); err != nil {
		t.Errorf("unfrozen token should move, got %v", err)
	}

	if err := svc.Freeze(admin, 99); !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("freezing an unknown token should be NotFound, got %v", err)
	}
}

func TestSetCooldownDuration_Ceiling(t *testing.T) {
	svc, _ := newTestRegistry(t)

	if err := svc.SetCooldownDuration(admin, policy.MaxCooldown); err != nil {
		t.Fatalf("exactly 30 days should be accepted: %v", err)
	}
	if svc.CooldownDuration() != policy.MaxCooldown {
		t.Errorf("expected %s, got %s", policy.MaxCooldown, svc.CooldownDuration())
	}

	err := svc.SetCooldownDuration(admin, policy.MaxCooldown+time.Second)
	if err == nil {
		t.Fatal("expected error above the ceiling")
	}
	if !errors.Is(err, policy.ErrDurationTooLong) {
		t.Fatalf("expected ErrDurationTooLong, got %v", err)
	}
	if !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Fatalf("expected CategoryInputInvalid, got %v", err)
	}
	if svc.CooldownDuration() != policy.MaxCooldown {
		t.Error("rejected update must not change the duration")
	}
}

func TestAdminSurfaceRequiresAdminRole(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	checks := map[string]error{
		"suspend":  svc.Suspend(minter, bob),
		"freeze":   svc.Freeze(alice, id),
		"cooldown": svc.SetCooldownDuration(minter, time.Minute),
		"rebind":   svc.RebindMetadata(alice, id, metadata.Ref{}),
		"royalty":  svc.SetRoyalty(minter, 0, alice, 100),
		"grant":    svc.GrantRole(minter, bob, roles.RoleMinter),
		"revoke":   svc.RevokeRole(alice, minter, roles.RoleMinter),
	}
	for name, err := range checks {
		if !apperrors.Is(err, apperrors.CategoryAuthorizationDenied) {
			t.Errorf("%s without admin role should be denied, got %v", name, err)
		}
	}
}

func TestRebindMetadata(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id, err := svc.MintOne(minter, alice, metadata.Ref{URI: "ipfs://QmOld"})
	if err != nil {
		t.Fatalf("MintOne failed: %v", err)
	}

	if err := svc.RebindMetadata(admin, id, metadata.Ref{URI: "ipfs://QmNew"}); err != nil {
		t.Fatalf("RebindMetadata failed: %v", err)
	}
	uri, err := svc.TokenURI(id)
	if err != nil || uri != "ipfs://QmNew" {
		t.Errorf("expected rebound URI, got %q err=%v", uri, err)
	}

	if err := svc.RebindMetadata(admin, 99, metadata.Ref{}); !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("rebinding an unknown token should be NotFound, got %v", err)
	}
}

func TestSetRoyalty(t *testing.T) {
	svc, _ := newTestRegistry(t)
	id := mintTo(t, svc, alice)

	// Token id zero addresses the collection default
	if err := svc.SetRoyalty(admin, 0, carol, 250); err != nil {
		t.Fatalf("SetRoyalty default failed: %v", err)
	}
	recipient, amount, err := svc.RoyaltyInfo(id, "1000")
	if err != nil {
		t.Fatalf("RoyaltyInfo failed: %v", err)
	}
	if recipient != carol || amount != "25" {
		t.Errorf("expected carol/25, got %s/%s", recipient.Hex(), amount)
	}

	// Per-token override wins
	if err := svc.SetRoyalty(admin, id, bob, 1000); err != nil {
		t.Fatalf("SetRoyalty override failed: %v", err)
	}
	recipient, amount, err = svc.RoyaltyInfo(id, "1000")
	if err != nil {
		t.Fatalf("RoyaltyInfo failed: %v", err)
	}
	if recipient != bob || amount != "100" {
		t.Errorf("expected bob/100, got %s/%s", recipient.Hex(), amount)
	}

	if err := svc.SetRoyalty(admin, id, bob, 10001); !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Errorf("expected CategoryInputInvalid above 100%%, got %v", err)
	}
	if err := svc.SetRoyalty(admin, 99, bob, 100); !apperrors.Is(err, apperrors.CategoryNotFound) {
		t.Errorf("override on unknown token should be NotFound, got %v", err)
	}
}

func TestGrantRevokeRole(t *testing.T) {
	svc, _ := newTestRegistry(t)

	if err := svc.GrantRole(admin, bob, roles.RoleMinter); err != nil {
		t.Fatalf("GrantRole failed: %v", err)
	}
	if !svc.HasRole(bob, roles.RoleMinter) {
		t.Error("bob should hold minter")
	}
	if _, err := svc.MintOne(bob, carol, metadata.Ref{}); err != nil {
		t.Errorf("newly granted minter should mint, got %v", err)
	}

	if err := svc.RevokeRole(admin, bob, roles.RoleMinter); err != nil {
		t.Fatalf("RevokeRole failed: %v", err)
	}
	if _, err := svc.MintOne(bob, carol, metadata.Ref{}); !apperrors.Is(err, apperrors.CategoryAuthorizationDenied) {
		t.Errorf("revoked minter must not mint, got %v", err)
	}

	if err := svc.GrantRole(admin, bob, roles.Role("superuser")); !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Errorf("unknown role should be rejected, got %v", err)
	}
	if err := svc.GrantRole(admin, common.Address{}, roles.RoleMinter); !apperrors.Is(err, apperrors.CategoryInputInvalid) {
		t.Errorf("zero grantee should be rejected, got %v", err)
	}
}
