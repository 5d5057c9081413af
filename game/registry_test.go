package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// stubSocket collects writes on a channel so tests can observe what the
// write pump actually put on the wire.
type stubSocket struct {
	writes chan []byte
	closed chan string
	once   sync.Once
}

func newStubSocket() *stubSocket {
	return &stubSocket{
		writes: make(chan []byte, 16),
		closed: make(chan string, 1),
	}
}

func (s *stubSocket) Write(data []byte) error {
	s.writes <- data
	return nil
}

func (s *stubSocket) Read() ([]byte, error) { select {} }
func (s *stubSocket) Ping() error           { return nil }
func (s *stubSocket) Close(errCode string) {
	s.once.Do(func() { s.closed <- errCode })
}

func mustReceive(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("expected a write, got none")
		return nil
	}
}

func TestRegistry_RegisterLookupUnregister(t *testing.T) {
	t.Parallel()
	r := NewRegistry(0, testLogger())

	sock := newStubSocket()
	conn, err := r.Register(sock)
	assert.NoError(t, err)
	assert.NotEmpty(t, conn.Id())

	got, exists := r.Lookup(conn.Id())
	assert.True(t, exists)
	assert.Same(t, conn, got)

	r.Unregister(conn.Id())
	_, exists = r.Lookup(conn.Id())
	assert.False(t, exists)

	select {
	case <-sock.closed:
	case <-time.After(time.Second):
		t.Fatal("socket was not closed on unregister")
	}

	// double unregister is harmless
	r.Unregister(conn.Id())
}

func TestRegistry_MaxConnections(t *testing.T) {
	t.Parallel()
	r := NewRegistry(1, testLogger())

	first, err := r.Register(newStubSocket())
	assert.NoError(t, err)

	_, err = r.Register(newStubSocket())
	assert.ErrorIs(t, err, ErrServerFull)

	r.Unregister(first.Id())
	_, err = r.Register(newStubSocket())
	assert.NoError(t, err)
}

func TestRegistry_BroadcastReachesOnlyNamedConns(t *testing.T) {
	t.Parallel()
	r := NewRegistry(0, testLogger())

	sock1 := newStubSocket()
	sock2 := newStubSocket()
	conn1, _ := r.Register(sock1)
	_, err := r.Register(sock2)
	assert.NoError(t, err)

	r.Broadcast([]string{conn1.Id(), "ghost"}, MakeGameOver("p1"))

	data := mustReceive(t, sock1.writes)
	assert.JSONEq(t, `{"action":"gameOver","data":{"winnerId":"p1"}}`, string(data))

	select {
	case <-sock2.writes:
		t.Fatal("unrelated connection received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegistry_SlowConnDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	r := NewRegistry(0, testLogger())

	// a socket whose writes hang forever fills the outbox
	stuck := &MockWebsocketConnection{}
	block := make(chan struct{})
	stuck.On("Write", mock.Anything).Run(func(mock.Arguments) { <-block }).Return(nil)
	stuck.On("Close", mock.Anything).Return()

	conn, err := r.Register(stuck)
	assert.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			r.Broadcast([]string{conn.Id()}, MakeVoteResult("p1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a slow connection")
	}

	close(block)
	r.Unregister(conn.Id())
}
