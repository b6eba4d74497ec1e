package auth

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyCaller is the context key for the authenticated caller address
	ContextKeyCaller contextKey = "caller"
	// ContextKeyMethod is the context key for the authentication method used
	ContextKeyMethod contextKey = "auth_method"
)

// Authentication methods
const (
	MethodSignature = "signature"
	MethodJWT       = "jwt"
)

// WithCaller adds the authenticated caller address to the context
func WithCaller(ctx context.Context, caller common.Address) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// CallerFromContext retrieves the authenticated caller address from the context
func CallerFromContext(ctx context.Context) (common.Address, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).(common.Address)
	return caller, ok
}

// WithMethod adds the authentication method to the context
func WithMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, ContextKeyMethod, method)
}

// MethodFromContext retrieves the authentication method from the context
func MethodFromContext(ctx context.Context) (string, bool) {
	method, ok := ctx.Value(ContextKeyMethod).(string)
	return method, ok
}
