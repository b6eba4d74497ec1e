package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/guard"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/metadata"
	"github.com/unordered-set/liquidaccess-nft/pkg/roles"
)

// MintOne issues a single token to one recipient. The id is consumed
// only when issuance succeeds; a rejected mint leaves no gap.
func (s *Service) MintOne(caller, to common.Address, ref metadata.Ref) (uint64, error) {
	if !s.roles.Has(caller, roles.RoleMinter) {
		return 0, apperrors.AuthorizationDeniedError(nil, "minter role required")
	}
	if identity.IsZero(to) {
		return 0, apperrors.InputInvalidError(nil, "recipient must not be the zero address")
	}
	if err := s.guard.Check(identity.Zero, to, s.ledger.NextID()); err != nil {
		return 0, s.policyError(err)
	}

	id := s.ledger.ReserveID()
	s.ledger.Assign(id, to)
	s.metadata.Bind(id, ref)
	metrics.TokensLive.Set(float64(s.ledger.TotalSupply()))

	s.record(events.Event{
		Kind:     events.KindMinted,
		TokenIDs: []uint64{id},
		To:       to.Hex(),
		Actor:    caller.Hex(),
	})
	s.logger.Info("Token minted",
		zap.Uint64("token_id", id),
		zap.String("to", to.Hex()),
		zap.String("minter", caller.Hex()),
	)
	return id, nil
}

// MintBatch issues one token per recipient in a single id block. The
// block is reserved up front, so ineligible slots burn their ids and
// leave permanent gaps in the sequence; eligible slots are unaffected.
// Returns the ids actually issued, in slot order.
func (s *Service) MintBatch(caller common.Address, recipients []common.Address, refs []metadata.Ref) ([]uint64, error) {
	if !s.roles.Has(caller, roles.RoleMinter) {
		return nil, apperrors.AuthorizationDeniedError(nil, "minter role required")
	}
	if len(recipients) != len(refs) {
		return nil, apperrors.InputInvalidError(
			fmt.Errorf("%w: %d recipients, %d refs", ErrLengthMismatch, len(recipients), len(refs)),
			"recipients and metadata lengths differ",
		)
	}
	if len(recipients) == 0 {
		return nil, apperrors.InputInvalidError(nil, "batch must not be empty")
	}

	first := s.ledger.ReserveBlock(len(recipients))
	minted := make([]uint64, 0, len(recipients))
	skipped := 0
	for i, to := range recipients {
		id := first + uint64(i)
		if identity.IsZero(to) {
			skipped++
			s.logger.Warn("Batch slot skipped",
				zap.Uint64("token_id", id),
				zap.String("reason", "zero recipient"),
			)
			continue
		}
		if err := s.guard.Check(identity.Zero, to, id); err != nil {
			skipped++
			s.logger.Warn("Batch slot skipped",
				zap.Uint64("token_id", id),
				zap.String("to", to.Hex()),
				zap.String("reason", err.Error()),
			)
			continue
		}
		s.ledger.Assign(id, to)
		s.metadata.Bind(id, refs[i])
		minted = append(minted, id)
	}
	metrics.TokensLive.Set(float64(s.ledger.TotalSupply()))

	s.record(events.Event{
		Kind:     events.KindBatchMinted,
		TokenIDs: minted,
		Actor:    caller.Hex(),
	})
	s.logger.Info("Batch minted",
		zap.Uint64("first_id", first),
		zap.Int("requested", len(recipients)),
		zap.Int("minted", len(minted)),
		zap.Int("skipped", skipped),
	)
	return minted, nil
}

// Burn destroys a token and every piece of per-token state attached to
// it. The id is never reissued. A suspended holder blocks the burn.
func (s *Service) Burn(caller common.Address, tokenID uint64) error {
	if !s.roles.Has(caller, roles.RoleAdmin) {
		return apperrors.AuthorizationDeniedError(nil, "admin role required")
	}
	owner, err := s.ledger.OwnerOf(tokenID)
	if err != nil {
		return apperrors.NotFoundError(err, "token not found")
	}
	if err := s.guard.Check(owner, identity.Zero, tokenID); err != nil {
		return s.policyError(err)
	}

	if err := s.ledger.Unassign(tokenID); err != nil {
		return apperrors.GeneralError(fmt.Errorf("failed to unassign token %d: %w", tokenID, err))
	}
	delete(s.approvals, tokenID)
	s.metadata.Remove(tokenID)
	s.royalty.Remove(tokenID)
	s.policy.ClearToken(tokenID)
	metrics.TokensLive.Set(float64(s.ledger.TotalSupply()))

	s.record(events.Event{
		Kind:     events.KindBurned,
		TokenIDs: []uint64{tokenID},
		From:     owner.Hex(),
		Actor:    caller.Hex(),
	})
	s.logger.Info("Token burned",
		zap.Uint64("token_id", tokenID),
		zap.String("from", owner.Hex()),
		zap.String("admin", caller.Hex()),
	)
	return nil
}

// policyError maps a guard rejection into the service error taxonomy
// and counts it.
func (s *Service) policyError(err error) error {
	switch {
	case errors.Is(err, guard.ErrHolderSuspended):
		metrics.PolicyRejections.WithLabelValues("holder_suspended").Inc()
		return apperrors.PolicyViolationError(err, "holder account is suspended")
	case errors.Is(err, guard.ErrRecipientSuspended):
		metrics.PolicyRejections.WithLabelValues("recipient_suspended").Inc()
		return apperrors.PolicyViolationError(err, "recipient account is suspended")
	case errors.Is(err, guard.ErrTokenFrozen):
		metrics.PolicyRejections.WithLabelValues("token_frozen").Inc()
		return apperrors.PolicyViolationError(err, "token is frozen")
	case errors.Is(err, guard.ErrTransferLocked):
		metrics.PolicyRejections.WithLabelValues("transfer_locked").Inc()
		return apperrors.PolicyViolationError(err, "token is in transfer cooldown")
	default:
		return apperrors.GeneralError(err)
	}
}
