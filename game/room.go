package game

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/Hieu3333/QuizMaster/trivia"
)

type RoomPhase int

const (
	PHASE_FILLING RoomPhase = iota
	PHASE_VOTING
	PHASE_IN_PROGRESS
	PHASE_COMPLETE
)

// roomParent is the matchmaking side of the room: it learns when players
// leave early and when the whole room is done, so its indexes stay accurate.
type roomParent interface {
	releasePlayer(roomId, playerId string)
	releaseRoom(roomId string, playerIds []string)
}

type joinRequest struct {
	player  Player
	errChan chan error
}

type voteEvent struct {
	playerId   string
	categoryId string
}

type answerEvent struct {
	playerId string
	answer   string
}

type fetchResult struct {
	category  trivia.Category
	questions []trivia.Question
	err       error
}

type roomDeps struct {
	parent        roomParent
	broadcaster   Broadcaster
	source        QuestionSource
	store         UserStore
	logger        *slog.Logger
	questionCount int
	difficulty    string
	fetchBudget   time.Duration
}

// Room is a single match. All state below the channels is owned by the Run
// goroutine; nothing else touches it.
type Room struct {
	id       string
	capacity int
	deps     roomDeps

	phase           RoomPhase
	players         []Player // ordered by join, ties on score go to the earliest slot
	votes           map[string]string
	scores          map[string]int
	answered        map[string]struct{}
	category        trivia.Category
	questions       []trivia.Question
	currentQuestion int
	fetchStarted    bool

	joinRequests chan joinRequest
	voteEvents   chan voteEvent
	answerEvents chan answerEvent
	quitEvents   chan string
	fetchResults chan fetchResult
	done         chan struct{}
}

func NewRoom(id string, capacity int, deps roomDeps) *Room {
	return &Room{
		id:           id,
		capacity:     capacity,
		deps:         deps,
		phase:        PHASE_FILLING,
		players:      make([]Player, 0, capacity),
		votes:        make(map[string]string),
		scores:       make(map[string]int),
		answered:     make(map[string]struct{}),
		joinRequests: make(chan joinRequest, 8),
		voteEvents:   make(chan voteEvent, 64),
		answerEvents: make(chan answerEvent, 64),
		quitEvents:   make(chan string, 8),
		fetchResults: make(chan fetchResult, 1),
		done:         make(chan struct{}),
	}
}

func (r *Room) Id() string { return r.id }

// Run consumes the room's private channels until the match completes. Every
// state transition happens on this goroutine, so there is never more than one
// in flight.
func (r *Room) Run() {
	for {
		select {
		case req := <-r.joinRequests:
			req.errChan <- r.handleJoin(req.player)
		case vote := <-r.voteEvents:
			r.handleVote(vote)
		case answer := <-r.answerEvents:
			r.handleAnswer(answer)
		case playerId := <-r.quitEvents:
			r.handleQuit(playerId)
		case result := <-r.fetchResults:
			r.handleFetched(result)
		}

		if r.phase == PHASE_COMPLETE {
			close(r.done)
			return
		}
	}
}

// RequestJoin forwards a player into the room's serialized mutation path and
// waits for the verdict.
func (r *Room) RequestJoin(ctx context.Context, player Player) error {
	req := joinRequest{player: player, errChan: make(chan error, 1)}

	select {
	case r.joinRequests <- req:
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// once enqueued, the room's verdict is authoritative: it either replies
	// promptly or completes without processing the request. Abandoning the
	// wait on ctx here would let the caller and the room disagree about
	// membership.
	select {
	case err := <-req.errChan:
		return err
	case <-r.done:
		// the room may complete right after replying
		select {
		case err := <-req.errChan:
			return err
		default:
			return ErrRoomClosed
		}
	}
}

func (r *Room) CastVote(ctx context.Context, playerId, categoryId string) error {
	select {
	case r.voteEvents <- voteEvent{playerId: playerId, categoryId: categoryId}:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) SubmitAnswer(ctx context.Context, playerId, answer string) error {
	select {
	case r.answerEvents <- answerEvent{playerId: playerId, answer: answer}:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) Quit(ctx context.Context, playerId string) error {
	select {
	case r.quitEvents <- playerId:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) handleJoin(player Player) error {
	if r.phase != PHASE_FILLING {
		return ErrRoomClosed
	}
	if len(r.players) >= r.capacity {
		// unreachable: the manager stops routing once the room is full
		return ErrCapacityExceeded
	}

	r.players = append(r.players, player)
	r.scores[player.User.Id] = 0

	r.broadcast(MakeJoinRoom(r.id, player.User.Username, r.snapshots()))

	if len(r.players) == r.capacity {
		r.phase = PHASE_VOTING
		r.broadcast(MakeStartVoting(trivia.Categories))
	}
	return nil
}

func (r *Room) handleVote(vote voteEvent) {
	if r.phase != PHASE_VOTING || r.fetchStarted {
		return
	}
	if !r.isMember(vote.playerId) {
		return
	}
	if _, known := trivia.CategoryById(vote.categoryId); !known {
		r.sendTo(vote.playerId, MakeError("unknown-category"))
		return
	}

	// a repeat vote overwrites the previous choice, tolerating client retries
	r.votes[vote.playerId] = vote.categoryId
	r.broadcast(MakeVoteResult(vote.playerId))

	if len(r.votes) == len(r.players) {
		r.closeVoting()
	}
}

func (r *Room) closeVoting() {
	winner := r.tallyVotes()
	r.fetchStarted = true
	go r.fetchQuestions(winner)
}

// tallyVotes picks the category with the strictly highest count. Ties resolve
// to the lowest category id; documented wire behavior, do not change without
// coordinating with the client.
func (r *Room) tallyVotes() trivia.Category {
	counts := make(map[string]int)
	for _, categoryId := range r.votes {
		counts[categoryId]++
	}

	ids := lo.Keys(counts)
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	best := ids[0]
	for _, id := range ids[1:] {
		if counts[id] > counts[best] {
			best = id
		}
	}

	winner, _ := trivia.CategoryById(best)
	return winner
}

// fetchQuestions runs off the room goroutine so a slow provider never stalls
// message handling. The result re-enters through fetchResults. The budget
// covers the whole fetch, retries included, not a single request.
func (r *Room) fetchQuestions(category trivia.Category) {
	ctx, cancel := context.WithTimeout(context.Background(), r.deps.fetchBudget)
	defer cancel()

	questions, err := r.deps.source.FetchQuestions(ctx, category.Id, r.deps.questionCount, r.deps.difficulty)

	select {
	case r.fetchResults <- fetchResult{category: category, questions: questions, err: err}:
	case <-r.done:
	}
}

func (r *Room) handleFetched(result fetchResult) {
	if r.phase != PHASE_VOTING {
		// the room moved on while the fetch was in flight
		return
	}

	if result.err != nil {
		r.deps.logger.Error("question fetch failed, aborting match",
			"room_id", r.id, "category", result.category.Id, "error", result.err)
		r.abort()
		return
	}

	r.category = result.category
	r.questions = result.questions
	r.currentQuestion = 0
	r.phase = PHASE_IN_PROGRESS
	r.broadcast(MakeStartMatch(result.category.Name, viewOf(r.questions[0])))
}

func (r *Room) handleAnswer(answer answerEvent) {
	if r.phase != PHASE_IN_PROGRESS {
		return
	}
	if !r.isMember(answer.playerId) {
		return
	}
	if _, already := r.answered[answer.playerId]; already {
		// client retry, never counted twice
		return
	}

	r.answered[answer.playerId] = struct{}{}

	correct := answer.answer == r.questions[r.currentQuestion].CorrectAnswer
	if correct {
		r.scores[answer.playerId]++
	}
	r.broadcast(MakeAnswerResult(correct, answer.playerId, answer.answer))

	if correct || len(r.answered) == len(r.players) {
		r.closeRound()
	}
}

func (r *Room) closeRound() {
	r.answered = make(map[string]struct{})
	r.currentQuestion++

	if r.currentQuestion < len(r.questions) {
		r.broadcast(MakeNextQuestion(viewOf(r.questions[r.currentQuestion])))
		return
	}
	r.endGame()
}

func (r *Room) endGame() {
	winnerId := r.pickWinner()
	r.broadcast(MakeGameOver(winnerId))
	r.pushStats(winnerId)
	r.finish()
}

// pickWinner returns the highest scorer; ties go to the earliest joined slot.
func (r *Room) pickWinner() string {
	winner := r.players[0]
	for _, player := range r.players[1:] {
		if r.scores[player.User.Id] > r.scores[winner.User.Id] {
			winner = player
		}
	}
	return winner.User.Id
}

// pushStats writes the end-of-game counters back to the user store. Best
// effort and off the room goroutine; a failed write is logged, not retried.
func (r *Room) pushStats(winnerId string) {
	players := slices.Clone(r.players)
	scores := make(map[string]int, len(r.scores))
	for id, score := range r.scores {
		scores[id] = score
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, player := range players {
			wins := player.User.Wins
			if player.User.Id == winnerId {
				wins++
			}
			totalScore := player.User.TotalScore + scores[player.User.Id]
			playedGames := player.User.PlayedGames + 1

			if err := r.deps.store.UpdateStats(ctx, player.User.Id, wins, totalScore, playedGames); err != nil {
				r.deps.logger.Error("stat update failed", "player_id", player.User.Id, "error", err)
			}
		}
	}()
}

func (r *Room) handleQuit(playerId string) {
	idx := slices.IndexFunc(r.players, func(p Player) bool { return p.User.Id == playerId })
	if idx < 0 {
		return
	}

	r.players = slices.Delete(r.players, idx, idx+1)
	delete(r.scores, playerId)
	delete(r.votes, playerId)
	delete(r.answered, playerId)
	r.deps.parent.releasePlayer(r.id, playerId)

	r.broadcast(MakePlayerQuit(playerId))

	switch r.phase {
	case PHASE_FILLING:
		if len(r.players) == 0 {
			r.finish()
		}
	case PHASE_VOTING:
		if len(r.players) < 2 {
			r.abort()
			return
		}
		if !r.fetchStarted && len(r.votes) == len(r.players) {
			r.closeVoting()
		}
	case PHASE_IN_PROGRESS:
		if len(r.players) == 0 {
			r.finish()
			return
		}
		if len(r.players) == 1 {
			r.endGame()
			return
		}
		if len(r.answered) == len(r.players) {
			r.closeRound()
		}
	}
}

// abort ends the match without a winner and releases everyone so they can
// find a new room.
func (r *Room) abort() {
	r.broadcast(MakeMatchFailed(r.id))
	r.finish()
}

func (r *Room) finish() {
	r.phase = PHASE_COMPLETE
	r.deps.parent.releaseRoom(r.id, r.playerIds())
}

func (r *Room) isMember(playerId string) bool {
	_, member := r.scores[playerId]
	return member
}

func (r *Room) playerIds() []string {
	return lo.Map(r.players, func(p Player, _ int) string { return p.User.Id })
}

func (r *Room) connIds() []string {
	return lo.Map(r.players, func(p Player, _ int) string { return p.ConnId })
}

func (r *Room) snapshots() []PlayerSnapshot {
	return lo.Map(r.players, func(p Player, _ int) PlayerSnapshot { return snapshotOf(p.User) })
}

func (r *Room) broadcast(msg Message) {
	r.deps.broadcaster.Broadcast(r.connIds(), msg)
}

func (r *Room) sendTo(playerId string, msg Message) {
	for _, player := range r.players {
		if player.User.Id == playerId {
			r.deps.broadcaster.Broadcast([]string{player.ConnId}, msg)
			return
		}
	}
}
