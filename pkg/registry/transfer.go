package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/unordered-set/liquidaccess-nft/internal/metrics"
	apperrors "github.com/unordered-set/liquidaccess-nft/pkg/app/errors"
	"github.com/unordered-set/liquidaccess-nft/pkg/events"
	"github.com/unordered-set/liquidaccess-nft/pkg/identity"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
)

// Transfer moves a token the caller holds to a new holder.
func (s *Service) Transfer(caller, to common.Address, tokenID uint64) error {
	owner, err := s.ledger.OwnerOf(tokenID)
	if err != nil {
		return apperrors.NotFoundError(err, "token not found")
	}
	if owner != caller {
		return apperrors.AuthorizationDeniedError(ErrNotHolder, "caller does not hold the token")
	}
	return s.executeTransfer(caller, owner, to, tokenID)
}

// TransferFrom moves a token on behalf of its holder. The caller must
// be the approved spender for the token; the approval is consumed even
// though the holder could also move the token directly.
func (s *Service) TransferFrom(caller, from, to common.Address, tokenID uint64) error {
	owner, err := s.ledger.OwnerOf(tokenID)
	if err != nil {
		return apperrors.NotFoundError(err, "token not found")
	}
	if owner != from {
		return apperrors.InputInvalidError(nil, "from is not the holder of the token")
	}
	if approved, ok := s.approvals[tokenID]; !ok || approved != caller {
		return apperrors.AuthorizationDeniedError(ErrNotApproved, "caller is not the approved spender")
	}
	return s.executeTransfer(caller, from, to, tokenID)
}

// executeTransfer runs the shared tail of both transfer paths: policy
// screening, reassignment, approval consumption, and the commit that
// stamps the cooldown and advances the sequence.
func (s *Service) executeTransfer(actor, from, to common.Address, tokenID uint64) error {
	if identity.IsZero(to) {
		return apperrors.InputInvalidError(nil, "recipient must not be the zero address")
	}
	if err := s.guard.Check(from, to, tokenID); err != nil {
		return s.policyError(err)
	}

	if err := s.ledger.Reassign(tokenID, to); err != nil {
		return apperrors.GeneralError(fmt.Errorf("failed to reassign token %d: %w", tokenID, err))
	}
	delete(s.approvals, tokenID)
	seq := s.guard.CommitTransfer(tokenID)
	metrics.TransferSequence.Set(float64(seq))

	s.record(events.Event{
		Kind:     events.KindTransferred,
		TokenIDs: []uint64{tokenID},
		From:     from.Hex(),
		To:       to.Hex(),
		Actor:    actor.Hex(),
		Sequence: seq,
	})
	s.logger.Info("Token transferred",
		zap.Uint64("token_id", tokenID),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("sequence", seq),
	)
	return nil
}

// Approve lets the holder name one spender for one token. The zero
// address clears any standing approval.
func (s *Service) Approve(caller, spender common.Address, tokenID uint64) error {
	owner, err := s.ledger.OwnerOf(tokenID)
	if err != nil {
		return apperrors.NotFoundError(err, "token not found")
	}
	if owner != caller {
		return apperrors.AuthorizationDeniedError(ErrNotHolder, "caller does not hold the token")
	}
	if spender == owner {
		return apperrors.InputInvalidError(ErrSelfApproval, "holder cannot be the approved spender")
	}

	if identity.IsZero(spender) {
		delete(s.approvals, tokenID)
	} else {
		s.approvals[tokenID] = spender
	}

	s.record(events.Event{
		Kind:     events.KindApproved,
		TokenIDs: []uint64{tokenID},
		From:     owner.Hex(),
		To:       spender.Hex(),
		Actor:    caller.Hex(),
	})
	s.logger.Info("Approval set",
		zap.Uint64("token_id", tokenID),
		zap.String("owner", owner.Hex()),
		zap.String("spender", spender.Hex()),
	)
	return nil
}

// Permit applies a signed off-line authorization: a one-time approval
// of Spender for TokenID, granted by the holder's signature alone.
// Anyone may submit it.
//
// Checks run in a fixed order and the first failure wins: signature
// recovery, ownership, deadline, nonce, self approval.
func (s *Service) Permit(p permit.Permit, signature string) error {
	signer, err := permit.RecoverSigner(s.domain, p, signature)
	if err != nil {
		metrics.PermitsTotal.WithLabelValues("malformed").Inc()
		return apperrors.SignatureInvalidError(err, "signature is malformed")
	}
	if signer != p.Owner {
		metrics.PermitsTotal.WithLabelValues("wrong_signer").Inc()
		return apperrors.SignatureInvalidError(ErrWrongSigner, "permit signed by wrong account")
	}

	owner, err := s.ledger.OwnerOf(p.TokenID)
	if err != nil {
		metrics.PermitsTotal.WithLabelValues("not_found").Inc()
		return apperrors.NotFoundError(err, "token not found")
	}
	if owner != p.Owner {
		metrics.PermitsTotal.WithLabelValues("not_owner").Inc()
		return apperrors.SignatureInvalidError(ErrNotOwner, "permit owner does not hold the token")
	}
	if uint64(s.now().Unix()) > p.Deadline {
		metrics.PermitsTotal.WithLabelValues("expired").Inc()
		return apperrors.SignatureInvalidError(ErrAfterDeadline, "permit deadline has passed")
	}
	key := nonceKey{owner: p.Owner, tokenID: p.TokenID}
	if s.nonces[key] != p.Nonce {
		metrics.PermitsTotal.WithLabelValues("wrong_nonce").Inc()
		return apperrors.SignatureInvalidError(ErrWrongNonce, "permit nonce mismatch")
	}
	if p.Spender == p.Owner {
		metrics.PermitsTotal.WithLabelValues("self_approval").Inc()
		return apperrors.SignatureInvalidError(ErrSelfApproval, "holder cannot be the approved spender")
	}

	s.approvals[p.TokenID] = p.Spender
	s.nonces[key]++
	metrics.PermitsTotal.WithLabelValues("accepted").Inc()

	s.record(events.Event{
		Kind:     events.KindPermitUsed,
		TokenIDs: []uint64{p.TokenID},
		From:     p.Owner.Hex(),
		To:       p.Spender.Hex(),
		Actor:    p.Owner.Hex(),
	})
	s.logger.Info("Permit accepted",
		zap.Uint64("token_id", p.TokenID),
		zap.String("owner", p.Owner.Hex()),
		zap.String("spender", p.Spender.Hex()),
		zap.Uint64("nonce", p.Nonce),
	)
	return nil
}
