package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
)

// JSON-RPC 2.0 Types
// https://www.jsonrpc.org/specification

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error represents a JSON-RPC 2.0 error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Custom error codes (application-specific)
	Unauthorized   = -32001
	NotFound       = -32002
	PolicyRejected = -32003
	BadSignature   = -32004
	InvalidInput   = -32005
)

// Error messages
var errorMessages = map[int]string{
	ParseError:     "Parse error",
	InvalidRequest: "Invalid Request",
	MethodNotFound: "Method not found",
	InvalidParams:  "Invalid params",
	InternalError:  "Internal error",
	Unauthorized:   "Unauthorized",
	NotFound:       "Not found",
	PolicyRejected: "Transfer rejected by policy",
	BadSignature:   "Signature rejected",
	InvalidInput:   "Invalid input",
}

// NewError creates a new JSON-RPC error
func NewError(code int, data interface{}) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "Unknown error"
	}
	return &Error{
		Code:    code,
		Message: msg,
		Data:    data,
	}
}

// NewErrorWithMessage creates a new JSON-RPC error with a custom message
func NewErrorWithMessage(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Validate validates the JSON-RPC request
func (r *Request) Validate() error {
	if r.JSONRPC != "2.0" {
		return fmt.Errorf("invalid jsonrpc version: expected 2.0")
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	return nil
}

// SuccessResponse creates a successful JSON-RPC response
func SuccessResponse(id interface{}, result interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// ErrorResponse creates an error JSON-RPC response
func ErrorResponse(id interface{}, err *Error) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error:   err,
		ID:      id,
	}
}

// =============================================================================
// RPC Method Parameters
// =============================================================================

// TokenParams addresses a single token
type TokenParams struct {
	TokenID uint64 `json:"tokenId"`
}

// AddressParams addresses a single account
type AddressParams struct {
	Address string `json:"address"`
}

// TransferParams represents parameters for registry_transfer
type TransferParams struct {
	To      string `json:"to"`
	TokenID uint64 `json:"tokenId"`
}

// TransferFromParams represents parameters for registry_transferFrom
type TransferFromParams struct {
	From    string `json:"from"`
	To      string `json:"to"`
	TokenID uint64 `json:"tokenId"`
}

// ApproveParams represents parameters for registry_approve
type ApproveParams struct {
	Spender string `json:"spender"`
	TokenID uint64 `json:"tokenId"`
}

// NonceParams represents parameters for registry_currentNonce
type NonceParams struct {
	Owner   string `json:"owner"`
	TokenID uint64 `json:"tokenId"`
}

// RoyaltyInfoParams represents parameters for registry_royaltyInfo
type RoyaltyInfoParams struct {
	TokenID   uint64 `json:"tokenId"`
	SalePrice string `json:"salePrice"`
}

// EventsParams represents parameters for registry_events
type EventsParams struct {
	Limit int `json:"limit,omitempty"`
}

// PermitParams represents parameters for permit_submit
type PermitParams struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	TokenID   uint64 `json:"tokenId"`
	Deadline  uint64 `json:"deadline"`
	Nonce     uint64 `json:"nonce"`
	Signature string `json:"signature"`
}

// MintParams represents parameters for admin_mint
type MintParams struct {
	To       string       `json:"to"`
	Metadata metadata.Ref `json:"metadata,omitempty"`
}

// MintBatchParams represents parameters for admin_mintBatch.
// Metadata may be omitted entirely; when present it must be parallel
// to Recipients.
type MintBatchParams struct {
	Recipients []string       `json:"recipients"`
	Metadata   []metadata.Ref `json:"metadata,omitempty"`
}

// SetCooldownParams represents parameters for admin_setCooldown.
// Duration uses Go duration syntax, e.g. "72h".
type SetCooldownParams struct {
	Duration string `json:"duration"`
}

// RebindMetadataParams represents parameters for admin_rebindMetadata
type RebindMetadataParams struct {
	TokenID  uint64       `json:"tokenId"`
	Metadata metadata.Ref `json:"metadata"`
}

// SetRoyaltyParams represents parameters for admin_setRoyalty.
// TokenID 0 targets the collection default.
type SetRoyaltyParams struct {
	TokenID     uint64 `json:"tokenId"`
	Recipient   string `json:"recipient"`
	BasisPoints uint32 `json:"basisPoints"`
}

// RoleParams represents parameters for admin_grantRole and admin_revokeRole
type RoleParams struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

// =============================================================================
// RPC Method Results
// =============================================================================

// OwnerResult represents owner query result
type OwnerResult struct {
	TokenID uint64 `json:"tokenId"`
	Owner   string `json:"owner"`
}

// BalanceResult represents balance query result
type BalanceResult struct {
	Address string `json:"address"`
	Balance int    `json:"balance"`
}

// SupplyResult represents total supply result
type SupplyResult struct {
	TotalSupply int `json:"totalSupply"`
}

// TokensResult represents holder enumeration result
type TokensResult struct {
	Address  string   `json:"address"`
	TokenIDs []uint64 `json:"tokenIds"`
}

// SuspendedResult represents suspension query result
type SuspendedResult struct {
	Address   string `json:"address"`
	Suspended bool   `json:"suspended"`
}

// FrozenResult represents freeze query result
type FrozenResult struct {
	TokenID uint64 `json:"tokenId"`
	Frozen  bool   `json:"frozen"`
}

// CooldownResult represents cooldown query result
type CooldownResult struct {
	TokenID          uint64 `json:"tokenId"`
	RemainingSeconds int64  `json:"remainingSeconds"`
}

// NonceResult represents permit nonce query result
type NonceResult struct {
	Owner   string `json:"owner"`
	TokenID uint64 `json:"tokenId"`
	Nonce   uint64 `json:"nonce"`
}

// ApprovedResult represents approval query result. Spender is empty
// when no approval is outstanding.
type ApprovedResult struct {
	TokenID uint64 `json:"tokenId"`
	Spender string `json:"spender,omitempty"`
}

// TokenURIResult represents metadata URI query result
type TokenURIResult struct {
	TokenID uint64 `json:"tokenId"`
	URI     string `json:"uri"`
}

// RoyaltyResult represents royalty computation result
type RoyaltyResult struct {
	TokenID   uint64 `json:"tokenId"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// TransferCountResult represents the global transfer sequence result
type TransferCountResult struct {
	Count uint64 `json:"count"`
}

// TransferResult represents transfer result
type TransferResult struct {
	Success bool   `json:"success"`
	TokenID uint64 `json:"tokenId"`
	To      string `json:"to"`
}

// ApproveResult represents approval result
type ApproveResult struct {
	Success bool   `json:"success"`
	TokenID uint64 `json:"tokenId"`
	Spender string `json:"spender,omitempty"`
}

// PermitResult represents permit submission result
type PermitResult struct {
	Success bool   `json:"success"`
	TokenID uint64 `json:"tokenId"`
	Spender string `json:"spender"`
}

// MintResult represents mint result
type MintResult struct {
	TokenID uint64 `json:"tokenId"`
	Owner   string `json:"owner"`
}

// MintBatchResult represents batch mint result. TokenIDs lists only the
// issued tokens; skipped slots leave holes in the id range.
type MintBatchResult struct {
	TokenIDs  []uint64 `json:"tokenIds"`
	Requested int      `json:"requested"`
	Minted    int      `json:"minted"`
}

// AckResult represents a bare success acknowledgement
type AckResult struct {
	Success bool `json:"success"`
}

// EventView represents a journal event on the wire
type EventView struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	TokenIDs []uint64  `json:"tokenIds,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Sequence uint64    `json:"sequence,omitempty"`
	Supply   uint64    `json:"supply"`
	At       time.Time `json:"at"`
}

// EventsResult represents journal listing result
type EventsResult struct {
	Events []EventView `json:"events"`
}

func eventView(ev events.Event) EventView {
	return EventView{
		ID:       ev.ID,
		Kind:     string(ev.Kind),
		TokenIDs: ev.TokenIDs,
		From:     ev.From,
		To:       ev.To,
		Actor:    ev.Actor,
		Detail:   ev.Detail,
		Sequence: ev.Sequence,
		Supply:   ev.Supply,
		At:       ev.At,
	}
}
