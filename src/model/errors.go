package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrSuggestionNotFound = fmt.Errorf("suggestion not found")
	ErrRemarkNotFound     = fmt.Errorf("remark not found")
	ErrNotAuthorized      = fmt.Errorf("actor is not a moderator")
	ErrEscrowAlreadyHeld  = fmt.Errorf("escrow already held for suggestion")
	ErrNoEscrowHeld       = fmt.Errorf("no escrow held for suggestion")
	ErrAlreadyVoted       = fmt.Errorf("identity already voted on suggestion")
	ErrConflict           = fmt.Errorf("too many conflicting writes, try again")
)

// InsufficientBalanceError carries enough detail for the caller to explain
// the failure without re-querying the wallet.
type InsufficientBalanceError struct {
	Owner    string
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("wallet %s has %s tokens, needs %s", e.Owner, e.Balance, e.Required)
}

// InvalidTransitionError reports a suggestion action attempted from the
// wrong lifecycle state.
type InvalidTransitionError struct {
	Current SuggestionStatus
	Action  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a suggestion in state %s", e.Action, e.Current)
}
