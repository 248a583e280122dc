package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const ( // needs to match `ledger_entry_kind` in pg
	EntryKindMint          EntryKind = "mint"
	EntryKindSpend         EntryKind = "spend"
	EntryKindEscrowHold    EntryKind = "escrow_hold"
	EntryKindEscrowRelease EntryKind = "escrow_release"
	EntryKindEscrowReturn  EntryKind = "escrow_return"
	EntryKindBonus         EntryKind = "bonus"
)

type SuggestionStatus string

const ( // needs to match `suggestion_status` in pg
	StatusPendingApproval        SuggestionStatus = "pending_approval"
	StatusInVoting               SuggestionStatus = "in_voting"
	StatusApproved               SuggestionStatus = "approved"
	StatusImplementationAccepted SuggestionStatus = "implementation_accepted"
	StatusImplemented            SuggestionStatus = "implemented"
	StatusRejected               SuggestionStatus = "rejected"
	StatusCancelled              SuggestionStatus = "cancelled"
)

// Terminal reports whether no further votes or moderator actions may
// mutate the suggestion.
func (s SuggestionStatus) Terminal() bool {
	switch s {
	case StatusImplemented, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Token amounts paid out or charged by the core.
var (
	ContributionReward = decimal.NewFromInt(10) // per manually contributed price
	WelcomeBonus       = decimal.NewFromInt(5)  // one-time mint on first wallet touch
	SuggestionFee      = decimal.NewFromInt(5)  // debited and escrowed on submit
)

// Reputation deltas. Stored reputation is clamped to [ReputationMin, ReputationMax].
var (
	ReputationMin     = decimal.Zero
	ReputationMax     = decimal.NewFromInt(200)
	ReputationDefault = decimal.NewFromInt(100)

	RepNearConsensus  = decimal.NewFromInt(2)  // contributed price within 30% of median
	RepOutlier        = decimal.NewFromInt(-5) // contributed price beyond 50% of median
	RepVoteCast       = decimal.NewFromInt(1)  // participating in a suggestion vote
	RepSuggestionWin  = decimal.NewFromInt(15) // author of a community-approved suggestion
	RepSuggestionLoss = decimal.NewFromInt(-5) // author of a rejected suggestion
	RepImplemented    = decimal.NewFromInt(25) // moderator delivering an implementation
)

// Validation window and thresholds.
const (
	ConsensusWindow     = 30 * 24 * time.Hour
	MinPopulation       = 2
	NearConsensusPct    = 30.0
	OutlierPct          = 50.0
	ApproveThresholdPct = 60.0
	RejectThresholdPct  = 40.0
	RemarkDailyEarnCap  = 5 // remarks per author per day that count toward reputation
)

type Wallet struct {
	Owner                string
	Balance              decimal.Decimal
	Reputation           decimal.Decimal
	Moderator            bool
	ValidationsMade      int
	ValidationsReceived  int
	ValidationsPositive  int
	ValidationsNegative  int
	SuggestionsDelivered int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type LedgerEntry struct {
	Id        uuid.UUID
	Owner     string
	Amount    decimal.Decimal // signed, debits negative
	Kind      EntryKind
	Reason    string
	Ref       *uuid.UUID // originating record, e.g. a price or suggestion
	CreatedAt time.Time
}

type Suggestion struct {
	Id           uuid.UUID
	Author       string
	Title        string
	Body         string
	Status       SuggestionStatus
	FavorPower   int64
	AgainstPower int64
	TokensVoted  decimal.Decimal
	ApprovalPct  float64
	EscrowAmount decimal.Decimal
	Approvers    []string
	Implementer  *string // moderator who accepted implementation
	RejectReason *string
	CreatedAt    time.Time
	ApprovedAt   *time.Time
	ResolvedAt   *time.Time
}

type Vote struct {
	Id           uuid.UUID
	SuggestionId uuid.UUID
	Voter        string
	TokensSpent  decimal.Decimal
	Power        int64
	Favor        bool
	CreatedAt    time.Time
}

type Price struct {
	Id          uuid.UUID
	ProductId   string
	Price       decimal.Decimal
	Contributor string
	Manual      bool
	CreatedAt   time.Time
}

type Remark struct {
	Id              uuid.UUID
	Author          string
	Body            string
	Likes           int
	Dislikes        int
	AppliedDelta    decimal.Decimal // reputation standing currently applied for this remark
	EarnsReputation bool            // false once the author is past the daily cap
	CreatedAt       time.Time
}

type ValidationOutcome string

const (
	OutcomeInsufficientPopulation ValidationOutcome = "insufficient_population"
	OutcomeNearConsensus          ValidationOutcome = "near_consensus"
	OutcomeBorderline             ValidationOutcome = "borderline"
	OutcomeOutlier                ValidationOutcome = "outlier"
)

// ValidationResult is the ephemeral outcome of checking one contribution
// against the recent population; only the reputation delta is durable.
type ValidationResult struct {
	Outcome       ValidationOutcome
	Median        decimal.Decimal
	PctDiff       float64
	Delta         decimal.Decimal // delta actually applied, post-clamp
	OldReputation decimal.Decimal
	NewReputation decimal.Decimal
}
