package registry

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
)

// Name returns the collection name.
func (s *Service) Name() string { return s.name }

// Symbol returns the collection symbol.
func (s *Service) Symbol() string { return s.symbol }

// Domain returns the signing domain permits are verified against.
func (s *Service) Domain() permit.Domain { return s.domain }

// OwnerOf returns the holder of a token.
func (s *Service) OwnerOf(tokenID uint64) (common.Address, error) {
	owner, err := s.ledger.OwnerOf(tokenID)
	if err != nil {
		return common.Address{}, apperrors.NotFoundError(err, "token not found")
	}
	return owner, nil
}

// BalanceOf returns how many tokens an account holds.
func (s *Service) BalanceOf(addr common.Address) int {
	return s.ledger.BalanceOf(addr)
}

// TokensOf enumerates the tokens an account holds.
func (s *Service) TokensOf(addr common.Address) []uint64 {
	return s.ledger.TokensOf(addr)
}

// TotalSupply returns the number of live tokens.
func (s *Service) TotalSupply() int {
	return s.ledger.TotalSupply()
}

// IsSuspended reports whether an account is suspended.
func (s *Service) IsSuspended(addr common.Address) bool {
	return s.policy.IsSuspended(addr)
}

// IsFrozen reports whether a live token is frozen.
func (s *Service) IsFrozen(tokenID uint64) (bool, error) {
	if !s.ledger.Exists(tokenID) {
		return false, apperrors.NotFoundError(nil, "token not found")
	}
	return s.policy.IsFrozen(tokenID), nil
}

// CooldownRemaining returns how long a live token stays locked, zero
// when it is free to move.
func (s *Service) CooldownRemaining(tokenID uint64) (time.Duration, error) {
	if !s.ledger.Exists(tokenID) {
		return 0, apperrors.NotFoundError(nil, "token not found")
	}
	return s.policy.CooldownRemaining(tokenID), nil
}

// CooldownDuration returns the currently configured cooldown.
func (s *Service) CooldownDuration() time.Duration {
	return s.policy.CooldownDuration()
}

// NonceOf returns the permit nonce the holder must sign next.
func (s *Service) NonceOf(owner common.Address, tokenID uint64) (uint64, error) {
	if !s.ledger.Exists(tokenID) {
		return 0, apperrors.NotFoundError(nil, "token not found")
	}
	return s.nonces[nonceKey{owner: owner, tokenID: tokenID}], nil
}

// ApprovedFor returns the approved spender of a live token, or the
// zero address when none stands.
func (s *Service) ApprovedFor(tokenID uint64) (common.Address, error) {
	if !s.ledger.Exists(tokenID) {
		return common.Address{}, apperrors.NotFoundError(nil, "token not found")
	}
	return s.approvals[tokenID], nil
}

// TokenURI renders the metadata reference of a live token.
func (s *Service) TokenURI(tokenID uint64) (string, error) {
	if !s.ledger.Exists(tokenID) {
		return "", apperrors.NotFoundError(nil, "token not found")
	}
	uri, ok := s.metadata.TokenURI(tokenID)
	if !ok {
		return "", nil
	}
	return uri, nil
}

// RoyaltyInfo computes the royalty owed on a sale of a live token.
func (s *Service) RoyaltyInfo(tokenID uint64, salePrice string) (common.Address, string, error) {
	if !s.ledger.Exists(tokenID) {
		return common.Address{}, "", apperrors.NotFoundError(nil, "token not found")
	}
	recipient, amount, err := s.royalty.Amount(tokenID, salePrice)
	if err != nil {
		return common.Address{}, "", apperrors.InputInvalidError(err, "invalid sale price")
	}
	return recipient, amount, nil
}

// TransferCount returns the lifetime transfer sequence. Advisory; gaps
// in observed values mean missed events, not missing transfers.
func (s *Service) TransferCount() uint64 {
	return s.guard.TransferCount()
}

// HasRole reports whether an address holds a role.
func (s *Service) HasRole(addr common.Address, role roles.Role) bool {
	return s.roles.Has(addr, role)
}

// Events returns the audit trail in append order.
func (s *Service) Events() []events.Event {
	return s.journal.List()
}
