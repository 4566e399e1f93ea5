package game

import "errors"

var (
	ErrPlayerClosed          = errors.New("player closed")
	ErrWalletNotConnected    = errors.New("wallet not connected")
	ErrInvalidDifficulty     = errors.New("invalid difficulty")
	ErrHuntInProgress        = errors.New("hunt already in progress")
	ErrNoHunt                = errors.New("no hunt in progress")
	ErrQuitNotConfirmed      = errors.New("quit must be confirmed")
	ErrNoTransaction         = errors.New("no transaction open")
	ErrTransactionInProgress = errors.New("transaction already in progress")
	ErrNoReward              = errors.New("no reward to claim")
	ErrRewardClaimed         = errors.New("reward already claimed")
	ErrClaimPending          = errors.New("reward claim is settling")
	ErrRewardUnclaimed       = errors.New("reward has not been claimed")
)
