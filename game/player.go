package game

import "github.com/Hieu3333/QuizMaster/domain"

// Player is one room slot: the immutable user snapshot taken at join time and
// the connection it entered with.
type Player struct {
	User   domain.User
	ConnId string
}
