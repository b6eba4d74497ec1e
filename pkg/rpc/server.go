package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
	"github.com/unordered-set/liquidaccess-nft/pkg/auth"
	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/registry"
)

// Server handles JSON-RPC requests for the registry API.
//
// The registry core does no locking of its own. Every method, reads
// included, runs under the gate, so at most one call touches the core
// at a time. Authentication happens before the gate is taken.
type Server struct {
	svc          *registry.Service
	gate         *sync.Mutex
	jwtValidator *auth.JWTValidator
	logger       *zap.Logger
	handler      *MethodHandler
}

// NewServer creates a new RPC server. The gate must be the same mutex
// handed to every other component that touches the registry.
func NewServer(svc *registry.Service, gate *sync.Mutex, jwks config.JWKSConfig, logger *zap.Logger) *Server {
	var jwtValidator *auth.JWTValidator
	if jwks.URL != "" {
		jwtValidator = auth.NewJWTValidator(jwks.URL, jwks.Issuer)
	}

	s := &Server{
		svc:          svc,
		gate:         gate,
		jwtValidator: jwtValidator,
		logger:       logger,
	}

	s.handler = NewMethodHandler(s)

	return s
}

// ServeHTTP handles HTTP requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		s.writeError(w, nil, NewError(ParseError, "failed to read request"))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, NewError(ParseError, err.Error()))
		return
	}

	if err := req.Validate(); err != nil {
		s.writeError(w, req.ID, NewError(InvalidRequest, err.Error()))
		return
	}

	ctx, rpcErr := s.authenticate(r.Context(), r, req.Method)
	if rpcErr != nil {
		s.logger.Warn("Authentication failed",
			zap.String("method", req.Method),
			zap.Any("detail", rpcErr.Data))
		s.writeError(w, req.ID, rpcErr)
		return
	}

	start := time.Now()
	s.gate.Lock()
	result, rpcErr := s.handler.Handle(ctx, req.Method, req.Params)
	s.gate.Unlock()

	status := "ok"
	if rpcErr != nil {
		status = "error"
	}
	metrics.OperationsTotal.WithLabelValues(req.Method, status).Inc()
	metrics.OperationDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if rpcErr != nil {
		s.writeError(w, req.ID, rpcErr)
		return
	}

	s.writeResponse(w, SuccessResponse(req.ID, result))
}

// authenticate attaches the caller identity required by the method's
// tier. Open methods pass through untouched.
func (s *Server) authenticate(ctx context.Context, r *http.Request, method string) (context.Context, *Error) {
	switch {
	case signedMethods[method]:
		return s.authenticateSignature(ctx, r)
	case operatorMethods[method]:
		return s.authenticateOperator(ctx, r)
	default:
		return ctx, nil
	}
}

// authenticateSignature recovers the caller from EIP-191 signature headers
func (s *Server) authenticateSignature(ctx context.Context, r *http.Request) (context.Context, *Error) {
	signature := r.Header.Get("X-Signature")
	message := r.Header.Get("X-Message")

	if signature == "" || message == "" {
		return nil, NewError(Unauthorized, "X-Signature and X-Message headers are required")
	}

	caller, err := identity.VerifyEIP191Signature(message, signature)
	if err != nil {
		return nil, NewError(Unauthorized, "invalid signature: "+err.Error())
	}

	ctx = auth.WithCaller(ctx, caller)
	ctx = auth.WithMethod(ctx, auth.MethodSignature)
	return ctx, nil
}

// authenticateOperator verifies the operator's JWT. When no JWKS is
// configured, operators fall back to signature headers; role checks
// inside the registry still apply either way.
func (s *Server) authenticateOperator(ctx context.Context, r *http.Request) (context.Context, *Error) {
	if s.jwtValidator == nil || !s.jwtValidator.IsConfigured() {
		return s.authenticateSignature(ctx, r)
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, NewError(Unauthorized, "bearer token required")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	claims, err := s.jwtValidator.ValidateToken(token)
	if err != nil {
		return nil, NewError(Unauthorized, "invalid token: "+err.Error())
	}

	caller, err := auth.CallerAddress(claims)
	if err != nil {
		return nil, NewError(Unauthorized, err.Error())
	}

	ctx = auth.WithCaller(ctx, caller)
	ctx = auth.WithMethod(ctx, auth.MethodJWT)
	return ctx, nil
}

// writeResponse writes a JSON-RPC response
func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// writeError writes a JSON-RPC error response
func (s *Server) writeError(w http.ResponseWriter, id interface{}, err *Error) {
	s.writeResponse(w, ErrorResponse(id, err))
}
