package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/precolabs/preco-ledger/src/escrow"
	"github.com/precolabs/preco-ledger/src/ledger"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/precolabs/preco-ledger/src/reputation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const rejectionReason = "insufficient community support"

// Governance owns the suggestion lifecycle. All status changes flow through
// the methods here; nothing else writes the status column.
type Governance struct {
	logger *zap.Logger
	ledger *ledger.Ledger
	escrow *escrow.Manager
	scorer *reputation.Scorer
}

func New(logger *zap.Logger, l *ledger.Ledger, e *escrow.Manager, s *reputation.Scorer) *Governance {
	return &Governance{logger: logger.Named("governance"), ledger: l, escrow: e, scorer: s}
}

// Submit charges the author the suggestion fee, holds it in escrow, and
// records the suggestion as pending approval.
func (g *Governance) Submit(ctx context.Context, q postgres.Querier,
	author, title, body string) (*model.Suggestion, error) {
	s := &model.Suggestion{
		Id:           uuid.New(),
		Author:       author,
		Title:        title,
		Body:         body,
		Status:       model.StatusPendingApproval,
		TokensVoted:  decimal.Zero,
		EscrowAmount: model.SuggestionFee,
		Approvers:    []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := g.escrow.Hold(ctx, q, author, model.SuggestionFee, s.Id); err != nil {
		return nil, err
	}
	if err := postgres.InsertSuggestion(ctx, q, s); err != nil {
		return nil, err
	}
	g.logger.Info("suggestion submitted",
		zap.String("id", s.Id.String()), zap.String("author", author))
	return s, nil
}

// Approve moves a pending suggestion into voting. Moderator-only.
func (g *Governance) Approve(ctx context.Context, q postgres.Querier,
	actor string, id uuid.UUID) (*model.Suggestion, error) {
	if err := g.requireModerator(ctx, q, actor); err != nil {
		return nil, err
	}
	s, err := g.mustGet(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusPendingApproval {
		return nil, &model.InvalidTransitionError{Current: s.Status, Action: "approve"}
	}
	s.Approvers = append(s.Approvers, actor)
	s.Status = model.StatusInVoting
	now := time.Now().UTC()
	s.ApprovedAt = &now
	if err := postgres.UpdateSuggestion(ctx, q, s); err != nil {
		return nil, err
	}
	g.logger.Info("suggestion approved for voting",
		zap.String("id", id.String()), zap.String("moderator", actor))
	return s, nil
}

// CastVote records a quadratic vote, consumes the voter's tokens, and
// evaluates auto-resolution against the updated tallies.
func (g *Governance) CastVote(ctx context.Context, q postgres.Querier,
	voter string, id uuid.UUID, tokens decimal.Decimal, favor bool) (*model.Suggestion, *model.Vote, error) {
	s, err := g.mustGet(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	if s.Status != model.StatusInVoting {
		return nil, nil, &model.InvalidTransitionError{Current: s.Status, Action: "vote on"}
	}
	if voter == s.Author {
		return nil, nil, errors.Wrap(model.ErrNotAuthorized, "authors cannot vote on their own suggestion")
	}
	voted, err := postgres.HasVoted(ctx, q, id, voter)
	if err != nil {
		return nil, nil, err
	}
	if voted {
		return nil, nil, model.ErrAlreadyVoted
	}

	power := VotingPower(tokens)
	// tokens are consumed by the act of voting, never escrowed or refunded
	if _, err := g.ledger.Debit(ctx, q, voter, tokens,
		fmt.Sprintf("vote on suggestion %s", id)); err != nil {
		return nil, nil, err
	}
	vote := &model.Vote{
		Id:           uuid.New(),
		SuggestionId: id,
		Voter:        voter,
		TokensSpent:  tokens,
		Power:        power,
		Favor:        favor,
	}
	if err := postgres.InsertVote(ctx, q, vote); err != nil {
		return nil, nil, err
	}

	if favor {
		s.FavorPower += power
	} else {
		s.AgainstPower += power
	}
	s.TokensVoted = s.TokensVoted.Add(tokens)
	s.ApprovalPct = ApprovalPct(s.FavorPower, s.AgainstPower)

	if _, err := g.scorer.Adjust(ctx, q, voter, model.RepVoteCast,
		fmt.Sprintf("voted on suggestion %s", id)); err != nil {
		return nil, nil, err
	}
	if err := g.applyResolution(ctx, q, s); err != nil {
		return nil, nil, err
	}
	if err := postgres.UpdateSuggestion(ctx, q, s); err != nil {
		return nil, nil, err
	}
	return s, vote, nil
}

// applyResolution moves an in-voting suggestion to a resolved state when
// the tallies demand it. Terminal states are never re-evaluated.
func (g *Governance) applyResolution(ctx context.Context, q postgres.Querier, s *model.Suggestion) error {
	if s.Status != model.StatusInVoting {
		return nil
	}
	switch Resolve(s.FavorPower, s.AgainstPower) {
	case model.StatusApproved:
		s.Status = model.StatusApproved
		if _, err := g.scorer.Adjust(ctx, q, s.Author, model.RepSuggestionWin,
			fmt.Sprintf("suggestion %s approved by the community", s.Id)); err != nil {
			return err
		}
		g.logger.Info("suggestion auto-approved", zap.String("id", s.Id.String()),
			zap.Float64("approval_pct", s.ApprovalPct))
	case model.StatusRejected:
		s.Status = model.StatusRejected
		reason := rejectionReason
		s.RejectReason = &reason
		now := time.Now().UTC()
		s.ResolvedAt = &now
		if _, err := g.scorer.Adjust(ctx, q, s.Author, model.RepSuggestionLoss,
			fmt.Sprintf("suggestion %s rejected by the community", s.Id)); err != nil {
			return err
		}
		if _, err := g.escrow.Return(ctx, q, s.Id, s.Author); err != nil {
			return err
		}
		g.logger.Info("suggestion auto-rejected", zap.String("id", s.Id.String()),
			zap.Float64("approval_pct", s.ApprovalPct))
	}
	return nil
}

// AcceptImplementation claims an approved suggestion for delivery.
func (g *Governance) AcceptImplementation(ctx context.Context, q postgres.Querier,
	actor string, id uuid.UUID) (*model.Suggestion, error) {
	if err := g.requireModerator(ctx, q, actor); err != nil {
		return nil, err
	}
	s, err := g.mustGet(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusApproved {
		return nil, &model.InvalidTransitionError{Current: s.Status, Action: "accept implementation of"}
	}
	s.Status = model.StatusImplementationAccepted
	s.Implementer = &actor
	if err := postgres.UpdateSuggestion(ctx, q, s); err != nil {
		return nil, err
	}
	return s, nil
}

// MarkImplemented pays the escrow out to the implementing moderator and
// credits the implementation reward.
func (g *Governance) MarkImplemented(ctx context.Context, q postgres.Querier,
	actor string, id uuid.UUID) (*model.Suggestion, error) {
	if err := g.requireModerator(ctx, q, actor); err != nil {
		return nil, err
	}
	s, err := g.mustGet(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s.Status != model.StatusImplementationAccepted {
		return nil, &model.InvalidTransitionError{Current: s.Status, Action: "mark implemented"}
	}
	implementer := actor
	if s.Implementer != nil {
		implementer = *s.Implementer
	}
	if _, err := g.escrow.Release(ctx, q, s.Id, implementer); err != nil {
		return nil, err
	}
	if _, err := g.scorer.Adjust(ctx, q, implementer, model.RepImplemented,
		fmt.Sprintf("implemented suggestion %s", id)); err != nil {
		return nil, err
	}
	if err := postgres.BumpSuggestionsDelivered(ctx, q, implementer); err != nil {
		return nil, err
	}
	s.Status = model.StatusImplemented
	now := time.Now().UTC()
	s.ResolvedAt = &now
	if err := postgres.UpdateSuggestion(ctx, q, s); err != nil {
		return nil, err
	}
	g.logger.Info("suggestion implemented",
		zap.String("id", id.String()), zap.String("moderator", implementer))
	return s, nil
}

// Cancel ends a non-terminal suggestion and returns any held escrow to the
// author. Nobody is penalized for a cancellation.
func (g *Governance) Cancel(ctx context.Context, q postgres.Querier,
	actor string, id uuid.UUID) (*model.Suggestion, error) {
	if err := g.requireModerator(ctx, q, actor); err != nil {
		return nil, err
	}
	s, err := g.mustGet(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return nil, &model.InvalidTransitionError{Current: s.Status, Action: "cancel"}
	}
	outstanding, err := escrow.Outstanding(ctx, q, s.Id)
	if err != nil {
		return nil, err
	}
	if outstanding.IsPositive() {
		if _, err := g.escrow.Return(ctx, q, s.Id, s.Author); err != nil {
			return nil, err
		}
	}
	s.Status = model.StatusCancelled
	now := time.Now().UTC()
	s.ResolvedAt = &now
	if err := postgres.UpdateSuggestion(ctx, q, s); err != nil {
		return nil, err
	}
	g.logger.Info("suggestion cancelled",
		zap.String("id", id.String()), zap.String("moderator", actor))
	return s, nil
}

func (g *Governance) mustGet(ctx context.Context, q postgres.Querier, id uuid.UUID) (*model.Suggestion, error) {
	s, err := postgres.GetSuggestion(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.ErrSuggestionNotFound
	}
	return s, nil
}

func (g *Governance) requireModerator(ctx context.Context, q postgres.Querier, actor string) error {
	wallet, err := postgres.GetWallet(ctx, q, actor)
	if err != nil {
		return err
	}
	if wallet == nil || !wallet.Moderator {
		return model.ErrNotAuthorized
	}
	return nil
}
