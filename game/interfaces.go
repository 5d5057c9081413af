package game

import (
	"context"

	"github.com/Hieu3333/QuizMaster/domain"
	"github.com/Hieu3333/QuizMaster/trivia"
)

type WebsocketConnection interface {
	Close(errCode string)
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
}

// UserStore is the external user storage consumed by gameplay: a read at join
// time and a stat write at game end.
type UserStore interface {
	GetUserById(ctx context.Context, id string) (domain.User, error)
	UpdateStats(ctx context.Context, id string, wins, totalScore, playedGames int) error
}

type QuestionSource interface {
	FetchQuestions(ctx context.Context, categoryId string, count int, difficulty string) ([]trivia.Question, error)
}

type Broadcaster interface {
	Broadcast(connIds []string, msg Message)
}
