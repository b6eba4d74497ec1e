package rpc

import (
	"testing"
	"time"

	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
)

func TestOpenQueries(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	_, admin := mustKey(t, adminKeyHex)
	_, alice := mustKey(t, aliceKeyHex)

	if _, err := svc.MintOne(admin, alice, metadata.Ref{URI: "ipfs://pass/1"}); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := svc.MintOne(admin, alice, metadata.Ref{}); err != nil {
		t.Fatalf("mint: %v", err)
	}

	var name string
	decodeResult(t, callRPC(t, srv, "registry_name", nil, nil), &name)
	if name != "LiquidAccess Passes" {
		t.Errorf("name = %q", name)
	}

	var supply SupplyResult
	decodeResult(t, callRPC(t, srv, "registry_totalSupply", nil, nil), &supply)
	if supply.TotalSupply != 2 {
		t.Errorf("total supply = %d, want 2", supply.TotalSupply)
	}

	var owner OwnerResult
	decodeResult(t, callRPC(t, srv, "registry_ownerOf", TokenParams{TokenID: 1}, nil), &owner)
	if owner.Owner != alice.Hex() {
		t.Errorf("owner = %s, want %s", owner.Owner, alice.Hex())
	}

	var balance BalanceResult
	decodeResult(t, callRPC(t, srv, "registry_balanceOf", AddressParams{Address: alice.Hex()}, nil), &balance)
	if balance.Balance != 2 {
		t.Errorf("balance = %d, want 2", balance.Balance)
	}

	var tokens TokensResult
	decodeResult(t, callRPC(t, srv, "registry_tokensOf", AddressParams{Address: alice.Hex()}, nil), &tokens)
	if len(tokens.TokenIDs) != 2 {
		t.Errorf("token ids = %v, want two entries", tokens.TokenIDs)
	}

	var uri TokenURIResult
	decodeResult(t, callRPC(t, srv, "registry_tokenURI", TokenParams{TokenID: 1}, nil), &uri)
	if uri.URI != "ipfs://pass/1" {
		t.Errorf("uri = %q", uri.URI)
	}
}

func TestOwnerOf_UnknownTokenCode(t *testing.T) {
	srv, _ := newTestServer(t, config.JWKSConfig{})

	resp := callRPC(t, srv, "registry_ownerOf", TokenParams{TokenID: 42}, nil)
	if resp.Error == nil || resp.Error.Code != NotFound {
		t.Errorf("error = %+v, want code %d", resp.Error, NotFound)
	}
}

func TestTransfer_FrozenTokenCode(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	aliceKey, alice := mustKey(t, aliceKeyHex)
	_, bob := mustKey(t, bobKeyHex)
	_, admin := mustKey(t, adminKeyHex)

	tokenID, err := svc.MintOne(admin, alice, metadata.Ref{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Freeze(admin, tokenID); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	resp := callRPC(t, srv, "registry_transfer",
		TransferParams{To: bob.Hex(), TokenID: tokenID}, signedHeaders(t, aliceKey))
	if resp.Error == nil || resp.Error.Code != PolicyRejected {
		t.Errorf("error = %+v, want code %d", resp.Error, PolicyRejected)
	}
}

func TestTransfer_CooldownCode(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	aliceKey, alice := mustKey(t, aliceKeyHex)
	bobKey, bob := mustKey(t, bobKeyHex)
	_, admin := mustKey(t, adminKeyHex)

	if err := svc.SetCooldownDuration(admin, time.Hour); err != nil {
		t.Fatalf("set cooldown: %v", err)
	}
	tokenID, err := svc.MintOne(admin, alice, metadata.Ref{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	resp := callRPC(t, srv, "registry_transfer",
		TransferParams{To: bob.Hex(), TokenID: tokenID}, signedHeaders(t, aliceKey))
	if resp.Error != nil {
		t.Fatalf("first hop: %+v", resp.Error)
	}

	resp = callRPC(t, srv, "registry_transfer",
		TransferParams{To: alice.Hex(), TokenID: tokenID}, signedHeaders(t, bobKey))
	if resp.Error == nil || resp.Error.Code != PolicyRejected {
		t.Errorf("error = %+v, want code %d", resp.Error, PolicyRejected)
	}

	var cooldown CooldownResult
	decodeResult(t, callRPC(t, srv, "registry_cooldownRemaining", TokenParams{TokenID: tokenID}, nil), &cooldown)
	if cooldown.RemainingSeconds <= 0 {
		t.Errorf("remaining = %d, want positive", cooldown.RemainingSeconds)
	}
}

func TestPermitSubmitFlow(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	aliceKey, alice := mustKey(t, aliceKeyHex)
	bobKey, bob := mustKey(t, bobKeyHex)
	_, admin := mustKey(t, adminKeyHex)

	tokenID, err := svc.MintOne(admin, alice, metadata.Ref{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	p := permit.Permit{
		Owner:    alice,
		Spender:  bob,
		TokenID:  tokenID,
		Deadline: uint64(time.Now().Add(time.Hour).Unix()),
		Nonce:    0,
	}
	signature, err := permit.Sign(svc.Domain(), p, aliceKey)
	if err != nil {
		t.Fatalf("sign permit: %v", err)
	}

	params := PermitParams{
		Owner:     alice.Hex(),
		Spender:   bob.Hex(),
		TokenID:   tokenID,
		Deadline:  p.Deadline,
		Nonce:     p.Nonce,
		Signature: signature,
	}

	var result PermitResult
	decodeResult(t, callRPC(t, srv, "permit_submit", params, nil), &result)
	if !result.Success {
		t.Error("permit not marked successful")
	}

	var approved ApprovedResult
	decodeResult(t, callRPC(t, srv, "registry_approvedFor", TokenParams{TokenID: tokenID}, nil), &approved)
	if approved.Spender != bob.Hex() {
		t.Errorf("spender = %q, want %s", approved.Spender, bob.Hex())
	}

	// The spender redeems the approval.
	resp := callRPC(t, srv, "registry_transferFrom",
		TransferFromParams{From: alice.Hex(), To: bob.Hex(), TokenID: tokenID},
		signedHeaders(t, bobKey))
	var transfer TransferResult
	decodeResult(t, resp, &transfer)
	if owner, _ := svc.OwnerOf(tokenID); owner != bob {
		t.Errorf("owner = %s, want %s", owner.Hex(), bob.Hex())
	}

	// The consumed nonce rejects a replay.
	resp = callRPC(t, srv, "permit_submit", params, nil)
	if resp.Error == nil || resp.Error.Code != BadSignature {
		t.Errorf("error = %+v, want code %d", resp.Error, BadSignature)
	}
}

func TestPermit_TamperedSignatureCode(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	aliceKey, alice := mustKey(t, aliceKeyHex)
	_, bob := mustKey(t, bobKeyHex)
	_, admin := mustKey(t, adminKeyHex)

	tokenID, err := svc.MintOne(admin, alice, metadata.Ref{})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	p := permit.Permit{
		Owner:    alice,
		Spender:  bob,
		TokenID:  tokenID,
		Deadline: uint64(time.Now().Add(time.Hour).Unix()),
	}
	signature, err := permit.Sign(svc.Domain(), p, aliceKey)
	if err != nil {
		t.Fatalf("sign permit: %v", err)
	}

	resp := callRPC(t, srv, "permit_submit", PermitParams{
		Owner:     alice.Hex(),
		Spender:   bob.Hex(),
		TokenID:   tokenID,
		Deadline:  p.Deadline + 600, // not what was signed
		Nonce:     0,
		Signature: signature,
	}, nil)
	if resp.Error == nil || resp.Error.Code != BadSignature {
		t.Errorf("error = %+v, want code %d", resp.Error, BadSignature)
	}
}

func TestMintBatch_GapsOnTheWire(t *testing.T) {
	srv, _ := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)
	_, alice := mustKey(t, aliceKeyHex)
	_, bob := mustKey(t, bobKeyHex)

	// The empty slot burns id 2 permanently.
	resp := callRPC(t, srv, "admin_mintBatch",
		MintBatchParams{Recipients: []string{alice.Hex(), "", bob.Hex()}},
		signedHeaders(t, adminKey))
	var result MintBatchResult
	decodeResult(t, resp, &result)

	if result.Requested != 3 || result.Minted != 2 {
		t.Errorf("requested/minted = %d/%d, want 3/2", result.Requested, result.Minted)
	}
	if len(result.TokenIDs) != 2 || result.TokenIDs[0] != 1 || result.TokenIDs[1] != 3 {
		t.Errorf("token ids = %v, want [1 3]", result.TokenIDs)
	}

	gap := callRPC(t, srv, "registry_ownerOf", TokenParams{TokenID: 2}, nil)
	if gap.Error == nil || gap.Error.Code != NotFound {
		t.Errorf("gap error = %+v, want code %d", gap.Error, NotFound)
	}
}

func TestMintBatch_LengthMismatchCode(t *testing.T) {
	srv, _ := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)
	_, alice := mustKey(t, aliceKeyHex)

	resp := callRPC(t, srv, "admin_mintBatch",
		MintBatchParams{
			Recipients: []string{alice.Hex()},
			Metadata:   []metadata.Ref{{URI: "a"}, {URI: "b"}},
		}, signedHeaders(t, adminKey))
	if resp.Error == nil || resp.Error.Code != InvalidInput {
		t.Errorf("error = %+v, want code %d", resp.Error, InvalidInput)
	}
}

func TestMintBatch_MalformedRecipientRejectsBatch(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)
	_, alice := mustKey(t, aliceKeyHex)

	resp := callRPC(t, srv, "admin_mintBatch",
		MintBatchParams{Recipients: []string{alice.Hex(), "not-an-address"}},
		signedHeaders(t, adminKey))
	if resp.Error == nil || resp.Error.Code != InvalidParams {
		t.Errorf("error = %+v, want code %d", resp.Error, InvalidParams)
	}
	if svc.TotalSupply() != 0 {
		t.Errorf("supply = %d, want 0 after rejected batch", svc.TotalSupply())
	}
}

func TestAdminLifecycleOverWire(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)
	aliceKey, alice := mustKey(t, aliceKeyHex)
	_, bob := mustKey(t, bobKeyHex)
	_, carol := mustKey(t, "7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6")

	var minted MintResult
	decodeResult(t, callRPC(t, srv, "admin_mint",
		MintParams{To: alice.Hex(), Metadata: metadata.Ref{URI: "ipfs://pass/1"}},
		signedHeaders(t, adminKey)), &minted)
	tokenID := minted.TokenID

	// Suspension blocks the holder on the wire.
	var ack AckResult
	decodeResult(t, callRPC(t, srv, "admin_suspend",
		AddressParams{Address: alice.Hex()}, signedHeaders(t, adminKey)), &ack)

	resp := callRPC(t, srv, "registry_transfer",
		TransferParams{To: bob.Hex(), TokenID: tokenID}, signedHeaders(t, aliceKey))
	if resp.Error == nil || resp.Error.Code != PolicyRejected {
		t.Fatalf("error = %+v, want code %d", resp.Error, PolicyRejected)
	}

	decodeResult(t, callRPC(t, srv, "admin_unsuspend",
		AddressParams{Address: alice.Hex()}, signedHeaders(t, adminKey)), &ack)

	var suspended SuspendedResult
	decodeResult(t, callRPC(t, srv, "registry_isSuspended",
		AddressParams{Address: alice.Hex()}, nil), &suspended)
	if suspended.Suspended {
		t.Error("alice still suspended after unsuspend")
	}

	// Royalty terms flow back through royaltyInfo.
	decodeResult(t, callRPC(t, srv, "admin_setRoyalty",
		SetRoyaltyParams{TokenID: 0, Recipient: carol.Hex(), BasisPoints: 250},
		signedHeaders(t, adminKey)), &ack)

	var royalty RoyaltyResult
	decodeResult(t, callRPC(t, srv, "registry_royaltyInfo",
		RoyaltyInfoParams{TokenID: tokenID, SalePrice: "1000"}, nil), &royalty)
	if royalty.Amount != "25" || royalty.Recipient != carol.Hex() {
		t.Errorf("royalty = %s to %s, want 25 to %s", royalty.Amount, royalty.Recipient, carol.Hex())
	}

	// Metadata rebinds show up in tokenURI.
	decodeResult(t, callRPC(t, srv, "admin_rebindMetadata",
		RebindMetadataParams{TokenID: tokenID, Metadata: metadata.Ref{URI: "ipfs://pass/1-v2"}},
		signedHeaders(t, adminKey)), &ack)

	var uri TokenURIResult
	decodeResult(t, callRPC(t, srv, "registry_tokenURI", TokenParams{TokenID: tokenID}, nil), &uri)
	if uri.URI != "ipfs://pass/1-v2" {
		t.Errorf("uri = %q, want rebound ref", uri.URI)
	}

	// Granting the minter role lets bob mint.
	decodeResult(t, callRPC(t, srv, "admin_grantRole",
		RoleParams{Address: bob.Hex(), Role: "minter"}, signedHeaders(t, adminKey)), &ack)
	if !svc.HasRole(bob, "minter") {
		t.Error("bob did not receive the minter role")
	}

	resp = callRPC(t, srv, "admin_grantRole",
		RoleParams{Address: bob.Hex(), Role: "superuser"}, signedHeaders(t, adminKey))
	if resp.Error == nil || resp.Error.Code != InvalidInput {
		t.Errorf("error = %+v, want code %d", resp.Error, InvalidInput)
	}
}

func TestSetCooldown_BadDurationString(t *testing.T) {
	srv, _ := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)

	resp := callRPC(t, srv, "admin_setCooldown",
		SetCooldownParams{Duration: "three days"}, signedHeaders(t, adminKey))
	if resp.Error == nil || resp.Error.Code != InvalidParams {
		t.Errorf("error = %+v, want code %d", resp.Error, InvalidParams)
	}
}

func TestSetCooldown_OverCeilingCode(t *testing.T) {
	srv, _ := newTestServer(t, config.JWKSConfig{})
	adminKey, _ := mustKey(t, adminKeyHex)

	resp := callRPC(t, srv, "admin_setCooldown",
		SetCooldownParams{Duration: "1000h"}, signedHeaders(t, adminKey))
	if resp.Error == nil || resp.Error.Code != InvalidInput {
		t.Errorf("error = %+v, want code %d", resp.Error, InvalidInput)
	}
}

func TestEventsMethod(t *testing.T) {
	srv, svc := newTestServer(t, config.JWKSConfig{})
	_, admin := mustKey(t, adminKeyHex)
	_, alice := mustKey(t, aliceKeyHex)

	for i := 0; i < 3; i++ {
		if _, err := svc.MintOne(admin, alice, metadata.Ref{}); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}

	var all EventsResult
	decodeResult(t, callRPC(t, srv, "registry_events", nil, nil), &all)
	if len(all.Events) != 3 {
		t.Fatalf("events = %d, want 3", len(all.Events))
	}

	var limited EventsResult
	decodeResult(t, callRPC(t, srv, "registry_events", EventsParams{Limit: 2}, nil), &limited)
	if len(limited.Events) != 2 {
		t.Fatalf("limited events = %d, want 2", len(limited.Events))
	}
	if limited.Events[0].ID != all.Events[1].ID {
		t.Error("limit did not keep the newest events")
	}
}
