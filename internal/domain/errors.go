package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidTrade = errors.New("invalid trade: price and quantity must be positive")
	ErrNoTicker     = errors.New("ticker unavailable")
	ErrWSDisconnect = errors.New("websocket disconnected")
	ErrContextDone  = errors.New("context cancelled")
)
