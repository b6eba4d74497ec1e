package registry

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
	"github.com/unordered-set/liquidaccess-nft/pkg/royalty"
)

// requireAdmin gates the administrative surface.
func (s *Service) requireAdmin(caller common.Address) error {
	if !s.roles.Has(caller, roles.RoleAdmin) {
		return apperrors.AuthorizationDeniedError(nil, "admin role required")
	}
	return nil
}

// Suspend blocks an account from sending and receiving tokens.
func (s *Service) Suspend(caller, addr common.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity.IsZero(addr) {
		return apperrors.InputInvalidError(nil, "cannot suspend the zero address")
	}
	s.policy.Suspend(addr)
	s.record(events.Event{
		Kind:  events.KindSuspended,
		To:    addr.Hex(),
		Actor: caller.Hex(),
	})
	s.logger.Info("Account suspended",
		zap.String("address", addr.Hex()),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// Unsuspend lifts a suspension.
func (s *Service) Unsuspend(caller, addr common.Address) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity.IsZero(addr) {
		return apperrors.InputInvalidError(nil, "cannot unsuspend the zero address")
	}
	s.policy.Unsuspend(addr)
	s.record(events.Event{
		Kind:  events.KindUnsuspended,
		To:    addr.Hex(),
		Actor: caller.Hex(),
	})
	s.logger.Info("Account unsuspended",
		zap.String("address", addr.Hex()),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// Freeze blocks transfers of one token. Burns still pass.
func (s *Service) Freeze(caller common.Address, tokenID uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !s.ledger.Exists(tokenID) {
		return apperrors.NotFoundError(nil, "token not found")
	}
	s.policy.Freeze(tokenID)
	s.record(events.Event{
		Kind:     events.KindFrozen,
		TokenIDs: []uint64{tokenID},
		Actor:    caller.Hex(),
	})
	s.logger.Info("Token frozen",
		zap.Uint64("token_id", tokenID),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// Unfreeze lifts a token freeze.
func (s *Service) Unfreeze(caller common.Address, tokenID uint64) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !s.ledger.Exists(tokenID) {
		return apperrors.NotFoundError(nil, "token not found")
	}
	s.policy.Unfreeze(tokenID)
	s.record(events.Event{
		Kind:     events.KindUnfrozen,
		TokenIDs: []uint64{tokenID},
		Actor:    caller.Hex(),
	})
	s.logger.Info("Token unfrozen",
		zap.Uint64("token_id", tokenID),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// SetCooldownDuration changes the cooldown stamped on future transfers.
// Tokens already in cooldown keep their recorded expiry.
func (s *Service) SetCooldownDuration(caller common.Address, d time.Duration) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if err := s.policy.SetCooldownDuration(d); err != nil {
		return apperrors.InputInvalidError(err, "cooldown duration out of range")
	}
	s.record(events.Event{
		Kind:   events.KindCooldownSet,
		Actor:  caller.Hex(),
		Detail: d.String(),
	})
	s.logger.Info("Cooldown duration set",
		zap.Duration("duration", d),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// RebindMetadata replaces the metadata reference of a live token.
func (s *Service) RebindMetadata(caller common.Address, tokenID uint64, ref metadata.Ref) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !s.ledger.Exists(tokenID) {
		return apperrors.NotFoundError(nil, "token not found")
	}
	s.metadata.Rebind(tokenID, ref)
	s.record(events.Event{
		Kind:     events.KindMetadataRebound,
		TokenIDs: []uint64{tokenID},
		Actor:    caller.Hex(),
	})
	s.logger.Info("Metadata rebound",
		zap.Uint64("token_id", tokenID),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// SetRoyalty sets a royalty term. Token id zero (never a real token)
// addresses the collection-wide default; any other id must be live.
func (s *Service) SetRoyalty(caller common.Address, tokenID uint64, recipient common.Address, basisPoints uint32) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity.IsZero(recipient) {
		return apperrors.InputInvalidError(nil, "royalty recipient must not be the zero address")
	}

	info := royalty.Info{Recipient: recipient, BasisPoints: basisPoints}
	if tokenID == 0 {
		if err := s.royalty.SetDefault(info); err != nil {
			return apperrors.InputInvalidError(err, "royalty out of range")
		}
	} else {
		if !s.ledger.Exists(tokenID) {
			return apperrors.NotFoundError(nil, "token not found")
		}
		if err := s.royalty.SetToken(tokenID, info); err != nil {
			return apperrors.InputInvalidError(err, "royalty out of range")
		}
	}

	s.record(events.Event{
		Kind:     events.KindRoyaltySet,
		TokenIDs: []uint64{tokenID},
		To:       recipient.Hex(),
		Actor:    caller.Hex(),
		Detail:   fmt.Sprintf("%d bps", basisPoints),
	})
	s.logger.Info("Royalty set",
		zap.Uint64("token_id", tokenID),
		zap.String("recipient", recipient.Hex()),
		zap.Uint32("basis_points", basisPoints),
	)
	return nil
}

// GrantRole gives an address a role.
func (s *Service) GrantRole(caller, addr common.Address, role roles.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if identity.IsZero(addr) {
		return apperrors.InputInvalidError(nil, "cannot grant a role to the zero address")
	}
	if !roles.Known(role) {
		return apperrors.InputInvalidError(nil, fmt.Sprintf("unknown role %q", role))
	}
	s.roles.Grant(addr, role)
	s.record(events.Event{
		Kind:   events.KindRoleGranted,
		To:     addr.Hex(),
		Actor:  caller.Hex(),
		Detail: string(role),
	})
	s.logger.Info("Role granted",
		zap.String("address", addr.Hex()),
		zap.String("role", string(role)),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// RevokeRole removes a role from an address. Admins may revoke their
// own grants; the registry does not protect against removing the last
// admin.
func (s *Service) RevokeRole(caller, addr common.Address, role roles.Role) error {
	if err := s.requireAdmin(caller); err != nil {
		return err
	}
	if !roles.Known(role) {
		return apperrors.InputInvalidError(nil, fmt.Sprintf("unknown role %q", role))
	}
	s.roles.Revoke(addr, role)
	s.record(events.Event{
		Kind:   events.KindRoleRevoked,
		To:     addr.Hex(),
		Actor:  caller.Hex(),
		Detail: string(role),
	})
	s.logger.Info("Role revoked",
		zap.String("address", addr.Hex()),
		zap.String("role", string(role)),
		zap.String("admin", caller.Hex()),
	)
	return nil
}
