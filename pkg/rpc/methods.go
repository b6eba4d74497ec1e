package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/auth"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
)

// MethodHandler handles JSON-RPC method dispatch
type MethodHandler struct {
	server *Server
}

// NewMethodHandler creates a new method handler
func NewMethodHandler(server *Server) *MethodHandler {
	return &MethodHandler{server: server}
}

// Methods whose caller is recovered from EIP-191 signature headers
var signedMethods = map[string]bool{
	"registry_transfer":     true,
	"registry_transferFrom": true,
	"registry_approve":      true,
}

// Methods restricted to operators
var operatorMethods = map[string]bool{
	"admin_mint":           true,
	"admin_mintBatch":      true,
	"admin_burn":           true,
	"admin_suspend":        true,
	"admin_unsuspend":      true,
	"admin_freeze":         true,
	"admin_unfreeze":       true,
	"admin_setCooldown":    true,
	"admin_rebindMetadata": true,
	"admin_setRoyalty":     true,
	"admin_grantRole":      true,
	"admin_revokeRole":     true,
}

// Handle dispatches the method call
func (h *MethodHandler) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, *Error) {
	switch method {
	case "registry_name":
		return h.server.svc.Name(), nil
	case "registry_symbol":
		return h.server.svc.Symbol(), nil
	case "registry_ownerOf":
		return h.handleOwnerOf(params)
	case "registry_balanceOf":
		return h.handleBalanceOf(params)
	case "registry_totalSupply":
		return &SupplyResult{TotalSupply: h.server.svc.TotalSupply()}, nil
	case "registry_tokensOf":
		return h.handleTokensOf(params)
	case "registry_isSuspended":
		return h.handleIsSuspended(params)
	case "registry_isFrozen":
		return h.handleIsFrozen(params)
	case "registry_cooldownRemaining":
		return h.handleCooldownRemaining(params)
	case "registry_currentNonce":
		return h.handleCurrentNonce(params)
	case "registry_approvedFor":
		return h.handleApprovedFor(params)
	case "registry_tokenURI":
		return h.handleTokenURI(params)
	case "registry_royaltyInfo":
		return h.handleRoyaltyInfo(params)
	case "registry_transferCount":
		return &TransferCountResult{Count: h.server.svc.TransferCount()}, nil
	case "registry_events":
		return h.handleEvents(params)
	case "registry_transfer":
		return h.handleTransfer(ctx, params)
	case "registry_transferFrom":
		return h.handleTransferFrom(ctx, params)
	case "registry_approve":
		return h.handleApprove(ctx, params)
	case "permit_submit":
		return h.handlePermitSubmit(params)
	case "admin_mint":
		return h.handleMint(ctx, params)
	case "admin_mintBatch":
		return h.handleMintBatch(ctx, params)
	case "admin_burn":
		return h.handleBurn(ctx, params)
	case "admin_suspend":
		return h.handleSuspend(ctx, params)
	case "admin_unsuspend":
		return h.handleUnsuspend(ctx, params)
	case "admin_freeze":
		return h.handleFreeze(ctx, params)
	case "admin_unfreeze":
		return h.handleUnfreeze(ctx, params)
	case "admin_setCooldown":
		return h.handleSetCooldown(ctx, params)
	case "admin_rebindMetadata":
		return h.handleRebindMetadata(ctx, params)
	case "admin_setRoyalty":
		return h.handleSetRoyalty(ctx, params)
	case "admin_grantRole":
		return h.handleGrantRole(ctx, params)
	case "admin_revokeRole":
		return h.handleRevokeRole(ctx, params)
	default:
		return nil, NewError(MethodNotFound, method)
	}
}

// =============================================================================
// Public Methods (No Auth Required)
// =============================================================================

func (h *MethodHandler) handleOwnerOf(params json.RawMessage) (interface{}, *Error) {
	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	owner, err := h.server.svc.OwnerOf(p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_ownerOf", err)
	}

	return &OwnerResult{TokenID: p.TokenID, Owner: owner.Hex()}, nil
}

func (h *MethodHandler) handleBalanceOf(params json.RawMessage) (interface{}, *Error) {
	var p AddressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	return &BalanceResult{
		Address: addr.Hex(),
		Balance: h.server.svc.BalanceOf(addr),
	}, nil
}

func (h *MethodHandler) handleTokensOf(params json.RawMessage) (interface{}, *Error) {
	var p AddressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	tokens := h.server.svc.TokensOf(addr)
	if tokens == nil {
		tokens = []uint64{}
	}

	return &TokensResult{Address: addr.Hex(), TokenIDs: tokens}, nil
}

func (h *MethodHandler) handleIsSuspended(params json.RawMessage) (interface{}, *Error) {
	var p AddressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	return &SuspendedResult{
		Address:   addr.Hex(),
		Suspended: h.server.svc.IsSuspended(addr),
	}, nil
}

func (h *MethodHandler) handleIsFrozen(params json.RawMessage) (interface{}, *Error) {
	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	frozen, err := h.server.svc.IsFrozen(p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_isFrozen", err)
	}

	return &FrozenResult{TokenID: p.TokenID, Frozen: frozen}, nil
}

func (h *MethodHandler) handleCooldownRemaining(params json.RawMessage) (interface{}, *Error) {
	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	remaining, err := h.server.svc.CooldownRemaining(p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_cooldownRemaining", err)
	}

	return &CooldownResult{
		TokenID:          p.TokenID,
		RemainingSeconds: int64(remaining / time.Second),
	}, nil
}

func (h *MethodHandler) handleCurrentNonce(params json.RawMessage) (interface{}, *Error) {
	var p NonceParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	owner, rpcErr := parseAddress("owner", p.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}

	nonce, err := h.server.svc.NonceOf(owner, p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_currentNonce", err)
	}

	return &NonceResult{Owner: owner.Hex(), TokenID: p.TokenID, Nonce: nonce}, nil
}

func (h *MethodHandler) handleApprovedFor(params json.RawMessage) (interface{}, *Error) {
	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	spender, err := h.server.svc.ApprovedFor(p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_approvedFor", err)
	}

	result := &ApprovedResult{TokenID: p.TokenID}
	if !identity.IsZero(spender) {
		result.Spender = spender.Hex()
	}

	return result, nil
}

func (h *MethodHandler) handleTokenURI(params json.RawMessage) (interface{}, *Error) {
	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	uri, err := h.server.svc.TokenURI(p.TokenID)
	if err != nil {
		return nil, h.errorFromService("registry_tokenURI", err)
	}

	return &TokenURIResult{TokenID: p.TokenID, URI: uri}, nil
}

func (h *MethodHandler) handleRoyaltyInfo(params json.RawMessage) (interface{}, *Error) {
	var p RoyaltyInfoParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	recipient, amount, err := h.server.svc.RoyaltyInfo(p.TokenID, p.SalePrice)
	if err != nil {
		return nil, h.errorFromService("registry_royaltyInfo", err)
	}

	return &RoyaltyResult{
		TokenID:   p.TokenID,
		Recipient: recipient.Hex(),
		Amount:    amount,
	}, nil
}

func (h *MethodHandler) handleEvents(params json.RawMessage) (interface{}, *Error) {
	var p EventsParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, NewError(InvalidParams, err.Error())
		}
	}

	all := h.server.svc.Events()
	if p.Limit > 0 && len(all) > p.Limit {
		all = all[len(all)-p.Limit:]
	}

	views := make([]EventView, 0, len(all))
	for _, ev := range all {
		views = append(views, eventView(ev))
	}

	return &EventsResult{Events: views}, nil
}

// =============================================================================
// Signed Methods (EIP-191 caller)
// =============================================================================

func (h *MethodHandler) handleTransfer(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p TransferParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.server.svc.Transfer(caller, to, p.TokenID); err != nil {
		return nil, h.errorFromService("registry_transfer", err)
	}

	return &TransferResult{Success: true, TokenID: p.TokenID, To: to.Hex()}, nil
}

func (h *MethodHandler) handleTransferFrom(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p TransferFromParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	from, rpcErr := parseAddress("from", p.From)
	if rpcErr != nil {
		return nil, rpcErr
	}

	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.server.svc.TransferFrom(caller, from, to, p.TokenID); err != nil {
		return nil, h.errorFromService("registry_transferFrom", err)
	}

	return &TransferResult{Success: true, TokenID: p.TokenID, To: to.Hex()}, nil
}

func (h *MethodHandler) handleApprove(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p ApproveParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	// An empty spender clears the outstanding approval
	spender := identity.Zero
	if p.Spender != "" {
		var rpcErr *Error
		spender, rpcErr = parseAddress("spender", p.Spender)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}

	if err := h.server.svc.Approve(caller, spender, p.TokenID); err != nil {
		return nil, h.errorFromService("registry_approve", err)
	}

	result := &ApproveResult{Success: true, TokenID: p.TokenID}
	if !identity.IsZero(spender) {
		result.Spender = spender.Hex()
	}

	return result, nil
}

// =============================================================================
// Permit Submission
// =============================================================================

func (h *MethodHandler) handlePermitSubmit(params json.RawMessage) (interface{}, *Error) {
	var p PermitParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	owner, rpcErr := parseAddress("owner", p.Owner)
	if rpcErr != nil {
		return nil, rpcErr
	}

	spender, rpcErr := parseAddress("spender", p.Spender)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if p.Signature == "" {
		return nil, NewError(InvalidParams, "signature is required")
	}

	pm := permit.Permit{
		Owner:    owner,
		Spender:  spender,
		TokenID:  p.TokenID,
		Deadline: p.Deadline,
		Nonce:    p.Nonce,
	}

	if err := h.server.svc.Permit(pm, p.Signature); err != nil {
		return nil, h.errorFromService("permit_submit", err)
	}

	return &PermitResult{Success: true, TokenID: p.TokenID, Spender: spender.Hex()}, nil
}

// =============================================================================
// Operator Methods
// =============================================================================

func (h *MethodHandler) handleMint(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p MintParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	to, rpcErr := parseAddress("to", p.To)
	if rpcErr != nil {
		return nil, rpcErr
	}

	tokenID, err := h.server.svc.MintOne(caller, to, p.Metadata)
	if err != nil {
		return nil, h.errorFromService("admin_mint", err)
	}

	return &MintResult{TokenID: tokenID, Owner: to.Hex()}, nil
}

func (h *MethodHandler) handleMintBatch(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p MintBatchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	// Malformed addresses reject the whole batch before any id is
	// reserved. An empty string stands for a deliberate hole.
	recipients := make([]common.Address, len(p.Recipients))
	for i, raw := range p.Recipients {
		if raw == "" {
			continue
		}
		addr, rpcErr := parseAddress(fmt.Sprintf("recipients[%d]", i), raw)
		if rpcErr != nil {
			return nil, rpcErr
		}
		recipients[i] = addr
	}

	refs := p.Metadata
	if refs == nil {
		refs = make([]metadata.Ref, len(recipients))
	}

	tokenIDs, err := h.server.svc.MintBatch(caller, recipients, refs)
	if err != nil {
		return nil, h.errorFromService("admin_mintBatch", err)
	}

	if tokenIDs == nil {
		tokenIDs = []uint64{}
	}

	return &MintBatchResult{
		TokenIDs:  tokenIDs,
		Requested: len(p.Recipients),
		Minted:    len(tokenIDs),
	}, nil
}

func (h *MethodHandler) handleBurn(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.server.svc.Burn(caller, p.TokenID); err != nil {
		return nil, h.errorFromService("admin_burn", err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleSuspend(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleAccountFlag(ctx, params, "admin_suspend", h.server.svc.Suspend)
}

func (h *MethodHandler) handleUnsuspend(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleAccountFlag(ctx, params, "admin_unsuspend", h.server.svc.Unsuspend)
}

func (h *MethodHandler) handleAccountFlag(ctx context.Context, params json.RawMessage, method string, op func(common.Address, common.Address) error) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p AddressParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := op(caller, addr); err != nil {
		return nil, h.errorFromService(method, err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleFreeze(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleTokenFlag(ctx, params, "admin_freeze", h.server.svc.Freeze)
}

func (h *MethodHandler) handleUnfreeze(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleTokenFlag(ctx, params, "admin_unfreeze", h.server.svc.Unfreeze)
}

func (h *MethodHandler) handleTokenFlag(ctx context.Context, params json.RawMessage, method string, op func(common.Address, uint64) error) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p TokenParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	if err := op(caller, p.TokenID); err != nil {
		return nil, h.errorFromService(method, err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleSetCooldown(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p SetCooldownParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	d, err := time.ParseDuration(p.Duration)
	if err != nil {
		return nil, NewError(InvalidParams, "duration: "+err.Error())
	}

	if err := h.server.svc.SetCooldownDuration(caller, d); err != nil {
		return nil, h.errorFromService("admin_setCooldown", err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleRebindMetadata(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p RebindMetadataParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.server.svc.RebindMetadata(caller, p.TokenID, p.Metadata); err != nil {
		return nil, h.errorFromService("admin_rebindMetadata", err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleSetRoyalty(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p SetRoyaltyParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	recipient, rpcErr := parseAddress("recipient", p.Recipient)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := h.server.svc.SetRoyalty(caller, p.TokenID, recipient, p.BasisPoints); err != nil {
		return nil, h.errorFromService("admin_setRoyalty", err)
	}

	return &AckResult{Success: true}, nil
}

func (h *MethodHandler) handleGrantRole(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleRoleChange(ctx, params, "admin_grantRole", h.server.svc.GrantRole)
}

func (h *MethodHandler) handleRevokeRole(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	return h.handleRoleChange(ctx, params, "admin_revokeRole", h.server.svc.RevokeRole)
}

func (h *MethodHandler) handleRoleChange(ctx context.Context, params json.RawMessage, method string, op func(common.Address, common.Address, roles.Role) error) (interface{}, *Error) {
	caller, rpcErr := callerFromContext(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}

	var p RoleParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	addr, rpcErr := parseAddress("address", p.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if err := op(caller, addr, roles.Role(p.Role)); err != nil {
		return nil, h.errorFromService(method, err)
	}

	return &AckResult{Success: true}, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

func decodeParams(data json.RawMessage, v interface{}) *Error {
	if len(data) == 0 {
		return NewError(InvalidParams, "params are required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewError(InvalidParams, err.Error())
	}
	return nil
}

func parseAddress(field, value string) (common.Address, *Error) {
	addr, err := identity.Parse(value)
	if err != nil {
		return common.Address{}, NewError(InvalidParams, fmt.Sprintf("%s: %v", field, err))
	}
	return addr, nil
}

func callerFromContext(ctx context.Context) (common.Address, *Error) {
	caller, ok := auth.CallerFromContext(ctx)
	if !ok {
		return common.Address{}, NewError(Unauthorized, "caller identity missing")
	}
	return caller, nil
}

// errorFromService maps a registry error onto the wire taxonomy.
// Internal errors are logged with their cause; clients only see the
// category message.
func (h *MethodHandler) errorFromService(method string, err error) *Error {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Category {
		case apperrors.CategoryInputInvalid:
			return NewError(InvalidInput, svcErr.Message)
		case apperrors.CategoryAuthorizationDenied:
			return NewError(Unauthorized, svcErr.Message)
		case apperrors.CategoryNotFound:
			return NewError(NotFound, svcErr.Message)
		case apperrors.CategoryPolicyViolation:
			return NewError(PolicyRejected, svcErr.Message)
		case apperrors.CategorySignatureInvalid:
			return NewError(BadSignature, svcErr.Message)
		}
	}

	h.server.logger.Error("Method failed",
		zap.String("method", method),
		zap.Error(err))

	return NewError(InternalError, nil)
}
