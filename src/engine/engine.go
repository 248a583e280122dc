package engine

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/precolabs/preco-ledger/src/escrow"
	"github.com/precolabs/preco-ledger/src/governance"
	"github.com/precolabs/preco-ledger/src/ledger"
	"github.com/precolabs/preco-ledger/src/model"
	"github.com/precolabs/preco-ledger/src/postgres"
	"github.com/precolabs/preco-ledger/src/reputation"
	"github.com/precolabs/preco-ledger/src/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine is the single entry point for the surrounding application. Each
// operation executes as one serializable unit of work against the shared
// store and returns a typed result or a typed error, never an uncaught
// fault.
type Engine struct {
	logger     *zap.Logger
	ledger     *ledger.Ledger
	scorer     *reputation.Scorer
	validator  *validator.Validator
	escrow     *escrow.Manager
	governance *governance.Governance
}

func New(logger *zap.Logger, rdb *redis.Client) *Engine {
	l := ledger.New(logger)
	scorer := reputation.NewScorer(logger, rdb)
	esc := escrow.New(logger, l)
	return &Engine{
		logger:     logger.Named("engine"),
		ledger:     l,
		scorer:     scorer,
		validator:  validator.New(logger, scorer),
		escrow:     esc,
		governance: governance.New(logger, l, esc, scorer),
	}
}

type ContributionResult struct {
	Price      *model.Price
	Reward     decimal.Decimal
	Balance    decimal.Decimal
	Validation *model.ValidationResult
}

// RecordContributionAndValidate stores a price observation. Manual
// contributions additionally mint the contribution reward and run the
// consensus validator; scraped prices are not community-attributed and
// leave wallets untouched.
func (e *Engine) RecordContributionAndValidate(ctx context.Context, productId string,
	price decimal.Decimal, contributor string, manual bool) (*ContributionResult, error) {
	result := &ContributionResult{}
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		p := &model.Price{
			Id:          uuid.New(),
			ProductId:   productId,
			Price:       price,
			Contributor: contributor,
			Manual:      manual,
			CreatedAt:   time.Now().UTC(),
		}
		if err := postgres.InsertPrice(ctx, tx, p); err != nil {
			return err
		}
		result.Price = p
		if !manual || contributor == "" {
			return nil
		}
		ref := p.Id
		wallet, err := e.ledger.Mint(ctx, tx, contributor, model.ContributionReward,
			"contribution reward", &ref)
		if err != nil {
			return err
		}
		result.Reward = model.ContributionReward
		result.Balance = wallet.Balance
		result.Validation, err = e.validator.ValidateContribution(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Validation != nil {
		contributionCounter.WithLabelValues(string(result.Validation.Outcome)).Inc()
		reward, _ := result.Reward.Float64()
		tokensMinted.Add(reward)
	} else {
		contributionCounter.WithLabelValues("unattributed").Inc()
	}
	return result, nil
}

func (e *Engine) SubmitSuggestion(ctx context.Context, author, title, body string) (*model.Suggestion, error) {
	var s *model.Suggestion
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		var err error
		s, err = e.governance.Submit(ctx, tx, author, title, body)
		return err
	})
	if err != nil {
		return nil, err
	}
	suggestionCounter.WithLabelValues(string(model.StatusPendingApproval)).Inc()
	return s, nil
}

type VoteResult struct {
	Suggestion *model.Suggestion
	Vote       *model.Vote
	Balance    decimal.Decimal
}

func (e *Engine) CastVote(ctx context.Context, suggestionId uuid.UUID, voter string,
	tokens decimal.Decimal, favor bool) (*VoteResult, error) {
	result := &VoteResult{}
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		s, vote, err := e.governance.CastVote(ctx, tx, voter, suggestionId, tokens, favor)
		if err != nil {
			return err
		}
		balance, err := e.ledger.Balance(ctx, tx, voter)
		if err != nil {
			return err
		}
		result.Suggestion, result.Vote, result.Balance = s, vote, balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	voteCounter.Inc()
	if result.Suggestion.Status != model.StatusInVoting {
		suggestionCounter.WithLabelValues(string(result.Suggestion.Status)).Inc()
	}
	return result, nil
}

type ModeratorActionKind string

const (
	ActionApprove              ModeratorActionKind = "approve"
	ActionAcceptImplementation ModeratorActionKind = "accept_implementation"
	ActionMarkImplemented      ModeratorActionKind = "mark_implemented"
	ActionCancel               ModeratorActionKind = "cancel"
)

func (e *Engine) ModeratorAction(ctx context.Context, kind ModeratorActionKind,
	actor string, suggestionId uuid.UUID) (*model.Suggestion, error) {
	var s *model.Suggestion
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		var err error
		switch kind {
		case ActionApprove:
			s, err = e.governance.Approve(ctx, tx, actor, suggestionId)
		case ActionAcceptImplementation:
			s, err = e.governance.AcceptImplementation(ctx, tx, actor, suggestionId)
		case ActionMarkImplemented:
			s, err = e.governance.MarkImplemented(ctx, tx, actor, suggestionId)
		case ActionCancel:
			s, err = e.governance.Cancel(ctx, tx, actor, suggestionId)
		default:
			err = model.ErrNotAuthorized
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	suggestionCounter.WithLabelValues(string(s.Status)).Inc()
	return s, nil
}

// PostRemark stores a free-text remark. Remarks past the author's daily
// cap are stored but flagged to never earn reputation.
func (e *Engine) PostRemark(ctx context.Context, author, body string) (*model.Remark, error) {
	var remark *model.Remark
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		if _, err := postgres.EnsureWallet(ctx, tx, author); err != nil {
			return err
		}
		earns, err := e.scorer.RemarkEarnsReputation(ctx, tx, author, time.Now())
		if err != nil {
			return err
		}
		remark = &model.Remark{
			Id:              uuid.New(),
			Author:          author,
			Body:            body,
			AppliedDelta:    decimal.Zero,
			EarnsReputation: earns,
			CreatedAt:       time.Now().UTC(),
		}
		return postgres.InsertRemark(ctx, tx, remark)
	})
	if err != nil {
		return nil, err
	}
	return remark, nil
}

// VoteRemark records, flips, or withdraws the voter's like/dislike on a
// remark, then idempotently re-applies the remark's standing against the
// author's reputation.
func (e *Engine) VoteRemark(ctx context.Context, remarkId uuid.UUID, voter string, like bool) (*model.Remark, error) {
	var remark *model.Remark
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		var err error
		remark, err = postgres.GetRemark(ctx, tx, remarkId)
		if err != nil {
			return err
		}
		if remark == nil {
			return model.ErrRemarkNotFound
		}
		existing, err := postgres.GetRemarkVote(ctx, tx, remarkId, voter)
		if err != nil {
			return err
		}
		if existing != nil && *existing == like {
			// same vote again withdraws it
			if err := postgres.DeleteRemarkVote(ctx, tx, remarkId, voter); err != nil {
				return err
			}
		} else {
			if err := postgres.UpsertRemarkVote(ctx, tx, remarkId, voter, like); err != nil {
				return err
			}
		}
		likes, dislikes, err := postgres.CountRemarkVotes(ctx, tx, remarkId)
		if err != nil {
			return err
		}
		_, err = e.scorer.ReapplyRemarkStanding(ctx, tx, remark, likes, dislikes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return remark, nil
}

// GetWallet returns the wallet snapshot, lazily creating it the way every
// other touch does.
func (e *Engine) GetWallet(ctx context.Context, owner string) (*model.Wallet, error) {
	var wallet *model.Wallet
	err := postgres.DoTx(ctx, func(tx pgx.Tx) error {
		var err error
		wallet, err = postgres.EnsureWallet(ctx, tx, owner)
		return err
	})
	return wallet, err
}

func (e *Engine) GetSuggestion(ctx context.Context, id uuid.UUID) (*model.Suggestion, error) {
	var s *model.Suggestion
	err := postgres.DoQuery(ctx, func(conn *pgx.Conn) error {
		var err error
		s, err = postgres.GetSuggestion(ctx, conn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.ErrSuggestionNotFound
	}
	return s, nil
}

func (e *Engine) ListSuggestions(ctx context.Context, status *model.SuggestionStatus, limit int) ([]*model.Suggestion, error) {
	var fetched []*model.Suggestion
	err := postgres.DoQuery(ctx, func(conn *pgx.Conn) error {
		var err error
		fetched, err = postgres.ListSuggestions(ctx, conn, status, limit)
		return err
	})
	return fetched, err
}

// ListTransactions returns the wallet's ledger entries, most recent first.
func (e *Engine) ListTransactions(ctx context.Context, owner string, limit int) ([]*model.LedgerEntry, error) {
	var fetched []*model.LedgerEntry
	err := postgres.DoQuery(ctx, func(conn *pgx.Conn) error {
		var err error
		fetched, err = postgres.GetEntries(ctx, conn, owner, limit)
		return err
	})
	return fetched, err
}

// GrantModerator toggles the privileged flag on a wallet.
func (e *Engine) GrantModerator(ctx context.Context, owner string, moderator bool) error {
	return postgres.DoTx(ctx, func(tx pgx.Tx) error {
		if _, err := postgres.EnsureWallet(ctx, tx, owner); err != nil {
			return err
		}
		return postgres.SetModerator(ctx, tx, owner, moderator)
	})
}

type Stats struct {
	SuggestionsByStatus map[model.SuggestionStatus]int
	TokensVoted         decimal.Decimal
}

func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := postgres.DoQuery(ctx, func(conn *pgx.Conn) error {
		var err error
		if stats.SuggestionsByStatus, err = postgres.CountByStatus(ctx, conn); err != nil {
			return err
		}
		stats.TokensVoted, err = postgres.SumTokensVoted(ctx, conn)
		return err
	})
	return stats, err
}
