package game

import (
	"encoding/json"
	"time"

	"github.com/Hieu3333/QuizMaster/domain"
	"github.com/Hieu3333/QuizMaster/trivia"
)

// Message is the outbound wire envelope.
type Message struct {
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// Envelope is the inbound wire envelope. Data is decoded per action.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Inbound payloads.

type FindMatchData struct {
	Id          string    `json:"id" validate:"required"`
	Username    string    `json:"username"`
	Wins        int       `json:"wins"`
	TotalScore  int       `json:"totalScore"`
	PlayedGames int       `json:"playedGames"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type VoteData struct {
	Category string `json:"category" validate:"required"`
	PlayerId string `json:"playerId" validate:"required"`
}

type AnswerData struct {
	Answer   string `json:"answer" validate:"required"`
	PlayerId string `json:"playerId" validate:"required"`
}

type QuitData struct {
	PlayerId string `json:"playerId" validate:"required"`
}

// Outbound payloads.

type PlayerSnapshot struct {
	Id          string    `json:"id"`
	Username    string    `json:"username"`
	Wins        int       `json:"wins"`
	TotalScore  int       `json:"totalScore"`
	PlayedGames int       `json:"playedGames"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func snapshotOf(user domain.User) PlayerSnapshot {
	return PlayerSnapshot{
		Id:          user.Id,
		Username:    user.Username,
		Wins:        user.Wins,
		TotalScore:  user.TotalScore,
		PlayedGames: user.PlayedGames,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// QuestionView is the client-facing projection of a question, without the
// correct answer.
type QuestionView struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

func viewOf(q trivia.Question) QuestionView {
	return QuestionView{Question: q.Text, Choices: q.Choices}
}

type JoinRoomData struct {
	RoomId      string           `json:"roomId"`
	PlayerName  string           `json:"playerName"`
	RoomPlayers []PlayerSnapshot `json:"roomPlayers"`
}

type CreatedRoomData struct {
	RoomId string `json:"roomId"`
}

type StartVotingData struct {
	Categories []trivia.Category `json:"categories"`
}

type VoteResultData struct {
	PlayerId string `json:"playerId"`
}

type StartMatchData struct {
	Category      string       `json:"category"`
	FirstQuestion QuestionView `json:"firstQuestion"`
}

type AnswerResultData struct {
	IsCorrect bool   `json:"isCorrect"`
	PlayerId  string `json:"playerId"`
	Answer    string `json:"answer"`
}

type GameOverData struct {
	WinnerId string `json:"winnerId"`
}

type MatchFailedData struct {
	RoomId string `json:"roomId"`
}

type PlayerQuitData struct {
	PlayerId string `json:"playerId"`
}

type ErrorData struct {
	Code string `json:"code"`
}

func MakeJoinRoom(roomId, playerName string, roomPlayers []PlayerSnapshot) Message {
	return Message{Action: "joinRoom", Data: JoinRoomData{RoomId: roomId, PlayerName: playerName, RoomPlayers: roomPlayers}}
}

func MakeCreatedRoom(roomId string) Message {
	return Message{Action: "createdRoom", Data: CreatedRoomData{RoomId: roomId}}
}

func MakeStartVoting(categories []trivia.Category) Message {
	return Message{Action: "startVoting", Data: StartVotingData{Categories: categories}}
}

func MakeVoteResult(playerId string) Message {
	return Message{Action: "voteResult", Data: VoteResultData{PlayerId: playerId}}
}

func MakeStartMatch(category string, firstQuestion QuestionView) Message {
	return Message{Action: "startMatch", Data: StartMatchData{Category: category, FirstQuestion: firstQuestion}}
}

func MakeAnswerResult(isCorrect bool, playerId, answer string) Message {
	return Message{Action: "answerResult", Data: AnswerResultData{IsCorrect: isCorrect, PlayerId: playerId, Answer: answer}}
}

func MakeNextQuestion(question QuestionView) Message {
	return Message{Action: "nextQuestion", Data: question}
}

func MakeGameOver(winnerId string) Message {
	return Message{Action: "gameOver", Data: GameOverData{WinnerId: winnerId}}
}

func MakeMatchFailed(roomId string) Message {
	return Message{Action: "matchFailed", Data: MatchFailedData{RoomId: roomId}}
}

func MakePlayerQuit(playerId string) Message {
	return Message{Action: "playerQuit", Data: PlayerQuitData{PlayerId: playerId}}
}

func MakeError(code string) Message {
	return Message{Action: "error", Data: ErrorData{Code: code}}
}
