// Package registry is the core token service: issuance, ownership,
// transfer admission, signed authorizations, and the audit journal,
// wired over the ledger and policy stores.
//
// The service is single-writer by contract. It takes no locks; the
// hosting process serializes every call, reads included.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/guard"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/ledger"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
	"github.com/unordered-set/liquidaccess-nft/pkg/policy"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
	"github.com/unordered-set/liquidaccess-nft/pkg/royalty"
)

var (
	ErrWrongSigner    = errors.New("permit signed by wrong account")
	ErrNotOwner       = errors.New("permit owner does not hold the token")
	ErrAfterDeadline  = errors.New("permit deadline has passed")
	ErrWrongNonce     = errors.New("permit nonce mismatch")
	ErrSelfApproval   = errors.New("holder cannot be the approved spender")
	ErrNotHolder      = errors.New("caller does not hold the token")
	ErrNotApproved    = errors.New("caller is not the approved spender")
	ErrLengthMismatch = errors.New("recipients and metadata lengths differ")
)

// Params identifies one registry deployment.
type Params struct {
	Name   string
	Symbol string
	Domain permit.Domain
}

// Genesis seeds the initial operator set and policy. Applied once at
// construction, before any role checks exist.
type Genesis struct {
	Admins    []common.Address
	Minters   []common.Address
	Suspended []common.Address
	Cooldown  time.Duration
}

// Service owns all registry state.
type Service struct {
	name   string
	symbol string
	domain permit.Domain

	ledger   *ledger.Ledger
	policy   *policy.Store
	guard    *guard.Guard
	roles    *roles.Store
	metadata *metadata.Store
	royalty  *royalty.Store
	journal  *events.Journal

	approvals map[uint64]common.Address
	nonces    map[nonceKey]uint64

	logger *zap.Logger

	// Time source (for testing)
	now func() time.Time
}

// nonceKey scopes permit nonces to one holder of one token. A new
// holder starts from their own counter.
type nonceKey struct {
	owner   common.Address
	tokenID uint64
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for permits and cooldowns.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a registry and applies the genesis set.
func New(params Params, genesis Genesis, logger *zap.Logger, opts ...Option) (*Service, error) {
	if params.Name == "" {
		return nil, errors.New("registry name is required")
	}
	if len(genesis.Admins) == 0 {
		return nil, errors.New("genesis must name at least one admin")
	}

	s := &Service{
		name:      params.Name,
		symbol:    params.Symbol,
		domain:    params.Domain,
		roles:     roles.NewStore(),
		metadata:  metadata.NewStore(),
		royalty:   royalty.NewStore(),
		journal:   events.NewJournal(),
		approvals: make(map[uint64]common.Address),
		nonces:    make(map[nonceKey]uint64),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ledger = ledger.New()
	s.policy = policy.NewStore(policy.WithClock(func() time.Time { return s.now() }))
	s.guard = guard.New(s.policy)

	for _, addr := range genesis.Admins {
		if identity.IsZero(addr) {
			return nil, errors.New("genesis admin must not be the zero address")
		}
		s.roles.Grant(addr, roles.RoleAdmin)
	}
	for _, addr := range genesis.Minters {
		if identity.IsZero(addr) {
			return nil, errors.New("genesis minter must not be the zero address")
		}
		s.roles.Grant(addr, roles.RoleMinter)
	}
	for _, addr := range genesis.Suspended {
		if identity.IsZero(addr) {
			return nil, errors.New("genesis suspension must not name the zero address")
		}
		s.policy.Suspend(addr)
	}
	if err := s.policy.SetCooldownDuration(genesis.Cooldown); err != nil {
		return nil, fmt.Errorf("genesis cooldown: %w", err)
	}

	logger.Info("Registry initialized",
		zap.String("name", params.Name),
		zap.String("symbol", params.Symbol),
		zap.Uint64("chain_id", params.Domain.ChainID),
		zap.Int("admins", len(genesis.Admins)),
		zap.Int("minters", len(genesis.Minters)),
		zap.Duration("cooldown", genesis.Cooldown),
	)
	return s, nil
}

// Journal exposes the audit trail for exporters and tests.
func (s *Service) Journal() *events.Journal {
	return s.journal
}

// Verify checks internal consistency between the ownership map and the
// enumeration index. Meant for the background auditor.
func (s *Service) Verify() error {
	return s.ledger.Verify()
}

// record appends an event with the current supply filled in.
func (s *Service) record(ev events.Event) events.Event {
	ev.Supply = uint64(s.ledger.TotalSupply())
	out := s.journal.Append(ev)
	metrics.JournalEvents.Set(float64(s.journal.Len()))
	return out
}
