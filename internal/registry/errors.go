package registry

import "errors"

var (
	ErrInvalidOwner        = errors.New("invalid_owner_address")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrAgentEnabled        = errors.New("agent_enabled")
	ErrNothingToWithdraw   = errors.New("nothing_to_withdraw")
)
