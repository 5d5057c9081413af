package game

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/Hieu3333/QuizMaster/domain"
)

// Error codes sent back on the structured error channel. A protocol error
// never closes the connection.
const (
	errCodeBadPayload       = "bad-payload"
	errCodeIdentityMismatch = "identity-mismatch"
	errCodeUnknownPlayer    = "unknown-player"
	errCodeDuplicatePlayer  = "duplicate-player"
	errCodeServerFull       = "server-full"
	errCodeRoomClosed       = "room-closed"
	errCodeNotInRoom        = "not-in-room"
	errCodeUnknown          = "unknown-error"
)

// Dispatcher wires inbound client messages to the room manager and the rooms,
// and routes resulting broadcasts through the registry.
type Dispatcher struct {
	registry *Registry
	manager  *Manager
	users    UserStore
	validate *validator.Validate
	logger   *slog.Logger
	timeout  time.Duration
}

func NewDispatcher(registry *Registry, manager *Manager, users UserStore, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		manager:  manager,
		users:    users,
		validate: validator.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

// connState is the per-connection view of the match: set on findMatch,
// cleared on quit.
type connState struct {
	conn     *Conn
	authedId string
	player   Player
	room     *Room
	joined   bool
}

// ServeConn runs the read loop for one client until the socket closes. Must
// be called on its own goroutine. A disconnect mid-match counts as a quit.
func (d *Dispatcher) ServeConn(conn *Conn, authedId string) {
	state := &connState{conn: conn, authedId: authedId}
	limiter := rate.NewLimiter(5, 10)

	defer func() {
		if state.joined {
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			state.room.Quit(ctx, state.player.User.Id)
			cancel()
		}
		d.registry.Unregister(conn.Id())
	}()

	for {
		data, err := conn.sock.Read()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			continue
		}

		var envelope Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			d.sendError(conn, errCodeBadPayload)
			continue
		}

		switch envelope.Action {
		case "findMatch":
			d.handleFindMatch(state, envelope.Data)
		case "vote":
			d.handleVote(state, envelope.Data)
		case "answer":
			d.handleAnswer(state, envelope.Data)
		case "quit":
			d.handleQuit(state, envelope.Data)
		default:
			// unrecognized kinds are acknowledged as a no-op
			d.logger.Debug("ignoring unknown action", "action", envelope.Action, "conn_id", conn.Id())
		}
	}
}

func (d *Dispatcher) handleFindMatch(state *connState, data json.RawMessage) {
	var payload FindMatchData
	if !d.decode(state.conn, data, &payload) {
		return
	}
	if payload.Id != state.authedId {
		d.sendError(state.conn, errCodeIdentityMismatch)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	// the store copy of the snapshot is authoritative over whatever the
	// client sent
	user, err := d.users.GetUserById(ctx, payload.Id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			d.sendError(state.conn, errCodeUnknownPlayer)
			return
		}
		d.logger.Error("user lookup failed", "player_id", payload.Id, "error", err)
		d.sendError(state.conn, errCodeUnknown)
		return
	}

	player := Player{User: user, ConnId: state.conn.Id()}
	room, err := d.manager.JoinOrCreate(ctx, player)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicatePlayer):
			d.sendError(state.conn, errCodeDuplicatePlayer)
		case errors.Is(err, ErrServerFull):
			d.sendError(state.conn, errCodeServerFull)
		case errors.Is(err, ErrRoomClosed):
			d.sendError(state.conn, errCodeRoomClosed)
		default:
			d.logger.Error("matchmaking failed", "player_id", payload.Id, "error", err)
			d.sendError(state.conn, errCodeUnknown)
		}
		return
	}

	state.player = player
	state.room = room
	state.joined = true
}

func (d *Dispatcher) handleVote(state *connState, data json.RawMessage) {
	var payload VoteData
	if !d.decode(state.conn, data, &payload) {
		return
	}
	if payload.PlayerId != state.authedId {
		d.sendError(state.conn, errCodeIdentityMismatch)
		return
	}
	if !state.joined {
		d.sendError(state.conn, errCodeNotInRoom)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := state.room.CastVote(ctx, payload.PlayerId, payload.Category); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			d.sendError(state.conn, errCodeRoomClosed)
		}
	}
}

func (d *Dispatcher) handleAnswer(state *connState, data json.RawMessage) {
	var payload AnswerData
	if !d.decode(state.conn, data, &payload) {
		return
	}
	if payload.PlayerId != state.authedId {
		d.sendError(state.conn, errCodeIdentityMismatch)
		return
	}
	if !state.joined {
		d.sendError(state.conn, errCodeNotInRoom)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := state.room.SubmitAnswer(ctx, payload.PlayerId, payload.Answer); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			d.sendError(state.conn, errCodeRoomClosed)
		}
	}
}

func (d *Dispatcher) handleQuit(state *connState, data json.RawMessage) {
	var payload QuitData
	if !d.decode(state.conn, data, &payload) {
		return
	}
	if payload.PlayerId != state.authedId {
		d.sendError(state.conn, errCodeIdentityMismatch)
		return
	}
	if !state.joined {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	state.room.Quit(ctx, payload.PlayerId)
	state.joined = false
	state.room = nil
}

func (d *Dispatcher) decode(conn *Conn, data json.RawMessage, payload any) bool {
	if err := json.Unmarshal(data, payload); err != nil {
		d.sendError(conn, errCodeBadPayload)
		return false
	}
	if err := d.validate.Struct(payload); err != nil {
		d.sendError(conn, errCodeBadPayload)
		return false
	}
	return true
}

func (d *Dispatcher) sendError(conn *Conn, code string) {
	d.registry.Broadcast([]string{conn.Id()}, MakeError(code))
}
