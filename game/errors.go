package game

import "errors"

// Reason-coded errors returned to the boundary. The string form is the
// wire code sent back to clients.
var (
	ErrGameInProgress    = errors.New("GAME_IN_PROGRESS")
	ErrAlreadyPlacedBet  = errors.New("ALREADY_PLACED_BET")
	ErrNotEnoughMoney    = errors.New("NOT_ENOUGH_MONEY")
	ErrGameNotInProgress = errors.New("GAME_NOT_IN_PROGRESS")
	ErrNoBetPlaced       = errors.New("NO_BET_PLACED")
	ErrGameCrashed       = errors.New("GAME_ALREADY_CRASHED")
	ErrAlreadyCashedOut  = errors.New("ALREADY_CASHED_OUT")
	ErrPlaceBet          = errors.New("PLACE_BET_ERROR")
	ErrNoGameHash        = errors.New("NO_GAME_HASH")
	ErrNoRange           = errors.New("NO_RANGE")
)
