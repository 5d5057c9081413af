package game

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/Hieu3333/QuizMaster/domain"
	"github.com/Hieu3333/QuizMaster/trivia"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(errCode string) {
	m.Called(errCode)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- QuestionSource ---

type MockQuestionSource struct {
	mock.Mock
}

func (m *MockQuestionSource) FetchQuestions(ctx context.Context, categoryId string, count int, difficulty string) ([]trivia.Question, error) {
	args := m.Called(ctx, categoryId, count, difficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trivia.Question), args.Error(1)
}

// --- UserStore ---

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserById(ctx context.Context, id string) (domain.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserStore) UpdateStats(ctx context.Context, id string, wins, totalScore, playedGames int) error {
	args := m.Called(ctx, id, wins, totalScore, playedGames)
	return args.Error(0)
}

// --- Broadcaster ---

// broadcastRecord is one captured Broadcast call, in order.
type broadcastRecord struct {
	connIds []string
	msg     Message
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []broadcastRecord
}

func (b *recordingBroadcaster) Broadcast(connIds []string, msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, broadcastRecord{connIds: connIds, msg: msg})
}

func (b *recordingBroadcaster) records() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]broadcastRecord, len(b.sent))
	copy(out, b.sent)
	return out
}

func (b *recordingBroadcaster) actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sent))
	for _, rec := range b.sent {
		out = append(out, rec.msg.Action)
	}
	return out
}

func (b *recordingBroadcaster) last() broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}

// --- roomParent ---

type recordingParent struct {
	mu              sync.Mutex
	releasedPlayers []string
	releasedRooms   []string
}

func (p *recordingParent) releasePlayer(roomId, playerId string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releasedPlayers = append(p.releasedPlayers, playerId)
}

func (p *recordingParent) releaseRoom(roomId string, playerIds []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releasedRooms = append(p.releasedRooms, roomId)
}

func (p *recordingParent) roomReleased(roomId string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.releasedRooms {
		if id == roomId {
			return true
		}
	}
	return false
}
