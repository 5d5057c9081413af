package game

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// roomEntry is the manager's bookkeeping for one room. seats counts routed
// players, which may briefly run ahead of the room's own slot count; everFull
// records that the room left Filling, which is monotonic.
type roomEntry struct {
	room     *Room
	seats    int
	everFull bool
	released bool
}

func (e *roomEntry) open(capacity int) bool {
	return !e.released && !e.everFull && e.seats < capacity
}

// Manager owns the set of rooms and performs matchmaking: first room created
// that still has a free seat wins, otherwise a new room is started.
type Manager struct {
	locker     sync.Mutex
	rooms      []*roomEntry // creation order
	byId       map[string]*roomEntry
	playerRoom map[string]*Room

	capacity int
	maxRooms int
	deps     roomDeps
	logger   *slog.Logger
}

type ManagerConfig struct {
	Capacity      int
	MaxRooms      int
	QuestionCount int
	Difficulty    string
	FetchBudget   time.Duration
}

func NewRoomManager(cfg ManagerConfig, broadcaster Broadcaster, source QuestionSource, store UserStore, logger *slog.Logger) *Manager {
	return &Manager{
		byId:       make(map[string]*roomEntry),
		playerRoom: make(map[string]*Room),
		capacity:   cfg.Capacity,
		maxRooms:   cfg.MaxRooms,
		logger:     logger,
		deps: roomDeps{
			broadcaster:   broadcaster,
			source:        source,
			store:         store,
			logger:        logger,
			questionCount: cfg.QuestionCount,
			difficulty:    cfg.Difficulty,
			fetchBudget:   cfg.FetchBudget,
		},
	}
}

// JoinOrCreate places the player into the first Filling room with a free
// seat, creating a new room when none exists. Matchmaking is FIFO by room
// creation order.
func (m *Manager) JoinOrCreate(ctx context.Context, player Player) (*Room, error) {
	m.locker.Lock()

	if _, inRoom := m.playerRoom[player.User.Id]; inRoom {
		m.locker.Unlock()
		return nil, ErrDuplicatePlayer
	}

	var entry *roomEntry
	for _, candidate := range m.rooms {
		if candidate.open(m.capacity) {
			entry = candidate
			break
		}
	}

	created := false
	if entry == nil {
		if m.maxRooms > 0 && len(m.byId) >= m.maxRooms {
			m.locker.Unlock()
			return nil, ErrServerFull
		}
		room := NewRoom(uuid.NewString(), m.capacity, m.deps)
		room.deps.parent = m
		entry = &roomEntry{room: room}
		m.rooms = append(m.rooms, entry)
		m.byId[room.id] = entry
		go room.Run()
		created = true
	}

	entry.seats++
	if entry.seats == m.capacity {
		entry.everFull = true
	}
	m.playerRoom[player.User.Id] = entry.room
	room := entry.room
	m.locker.Unlock()

	if created {
		m.logger.Info("room created", "room_id", room.id, "capacity", m.capacity)
		m.deps.broadcaster.Broadcast([]string{player.ConnId}, MakeCreatedRoom(room.id))
	}

	if err := room.RequestJoin(ctx, player); err != nil {
		m.rollbackSeat(room.id, player.User.Id)
		return nil, err
	}

	return room, nil
}

// rollbackSeat undoes a reservation whose join never took effect. The
// reservation may have been the one that marked the room full, in which case
// the room never actually left Filling and everFull is re-derived from the
// corrected seat count.
func (m *Manager) rollbackSeat(roomId, playerId string) {
	m.locker.Lock()
	delete(m.playerRoom, playerId)
	if entry, tracked := m.byId[roomId]; tracked {
		entry.seats--
		if entry.seats < m.capacity {
			entry.everFull = false
		}
	}
	m.locker.Unlock()
}

// RoomOf returns the open room the player currently occupies.
func (m *Manager) RoomOf(playerId string) (*Room, error) {
	m.locker.Lock()
	room, inRoom := m.playerRoom[playerId]
	m.locker.Unlock()

	if !inRoom {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// releasePlayer is called by a room when a player leaves mid-match. A seat in
// a still-Filling room opens up again; a room that already left Filling never
// readmits.
func (m *Manager) releasePlayer(roomId, playerId string) {
	m.locker.Lock()
	delete(m.playerRoom, playerId)
	if entry, tracked := m.byId[roomId]; tracked {
		entry.seats--
	}
	m.locker.Unlock()
}

// releaseRoom retires a completed room and frees its remaining members to
// re-queue.
func (m *Manager) releaseRoom(roomId string, playerIds []string) {
	m.locker.Lock()
	if entry, tracked := m.byId[roomId]; tracked {
		entry.released = true
		delete(m.byId, roomId)
		m.rooms = slices.DeleteFunc(m.rooms, func(e *roomEntry) bool { return e == entry })
	}
	for _, playerId := range playerIds {
		delete(m.playerRoom, playerId)
	}
	m.locker.Unlock()

	m.logger.Info("room retired", "room_id", roomId)
}
