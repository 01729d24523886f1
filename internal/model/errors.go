package model

import "errors"

// Общие ошибки игровой сессии
var (
	ErrSessionClosed  = errors.New("session is closed")
	ErrCloseTimeout   = errors.New("timed out waiting for game loop to exit")
	ErrInvalidContent = errors.New("invalid game content")
	ErrNothingToRetry = errors.New("no failed stream to retry")
	ErrAlreadyStarted = errors.New("game loop already started")
)
