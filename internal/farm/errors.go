package farm

import "errors"

var (
	ErrReentrantCall      = errors.New("farm: reentrant call")
	ErrFarmPaused         = errors.New("farm: paused")
	ErrWindowClosed       = errors.New("farm: farming window not active")
	ErrLockTooLong        = errors.New("farm: lock duration exceeds maximum")
	ErrAlreadyStaked      = errors.New("farm: position already staked")
	ErrNotPositionOwner   = errors.New("farm: caller is not the position owner")
	ErrZeroLiquidity      = errors.New("farm: position has no liquidity")
	ErrWrongPool          = errors.New("farm: position does not belong to the target pool")
	ErrZeroValuation      = errors.New("farm: position valued at zero")
	ErrPositionNotFound   = errors.New("farm: position not staked")
	ErrStillLocked        = errors.New("farm: position is still locked")
	ErrEmergencyOnly      = errors.New("farm: emergency mode not enabled")
	ErrBatchTooLarge      = errors.New("farm: claim batch exceeds maximum")
	ErrDuplicateTokenID   = errors.New("farm: duplicate token id in claim batch")
	ErrNothingToClaim     = errors.New("farm: nothing to claim")
	ErrInsufficientBudget = errors.New("farm: reward budget insufficient")
	ErrArithmeticOverflow = errors.New("farm: reward arithmetic would overflow")
	ErrInvalidRewardRate  = errors.New("farm: invalid reward rate")
	ErrInvalidWindow      = errors.New("farm: invalid farming window")
	ErrInvalidAmount      = errors.New("farm: amount must be positive")
)
