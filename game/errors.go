package game

import "errors"

var (
	ErrDuplicatePlayer  = errors.New("duplicate-player")
	ErrRoomClosed       = errors.New("room-closed")
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrServerFull       = errors.New("server-full")
	ErrCapacityExceeded = errors.New("capacity-exceeded")
)
