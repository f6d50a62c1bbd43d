package channel

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-motion/logger"
)

// ConnState is the connection state of a channel.
type ConnState uint32

const (
	// DisconnectedState indicates that the channel has no live connection.
	DisconnectedState ConnState = iota
	// ConnectedState indicates that the channel is connected and usable.
	ConnectedState
)

// IsConnected returns if the state is connected.
func (cs ConnState) IsConnected() bool { return cs == ConnectedState }

// String returns string representation of the state.
func (cs ConnState) String() string {
	switch cs {
	case DisconnectedState:
		return "disconnected"
	case ConnectedState:
		return "connected"
	default:
		return "unknown"
	}
}

// StateChangeHandler is invoked when the connection state of a channel changes.
//
// Note: the handler is invoked in a blocking mode while the state manager lock is held.
// It must not call back into the same StateMgr's transition methods.
type StateChangeHandler func(name string, prevState ConnState, newState ConnState)

// StateMgr manages the connection state of a channel.
//
// Transitions are safe for concurrent use; WaitState lets callers block until a state is reached.
type StateMgr struct {
	mu       sync.Mutex
	cond     *sync.Cond
	state    atomic.Uint32
	name     string
	logger   logger.Logger
	handlers []StateChangeHandler
}

// NewStateMgr creates a StateMgr in DisconnectedState. A nil logger falls back to the package default.
func NewStateMgr(name string, l logger.Logger, handlers ...StateChangeHandler) *StateMgr {
	if l == nil {
		l = logger.GetLogger()
	}
	mgr := &StateMgr{
		name:     name,
		logger:   l,
		handlers: make([]StateChangeHandler, 0, len(handlers)),
	}
	mgr.cond = sync.NewCond(&mgr.mu)
	mgr.state.Store(uint32(DisconnectedState))
	mgr.AddHandler(handlers...)

	return mgr
}

// State returns the current connection state.
func (m *StateMgr) State() ConnState {
	return ConnState(m.state.Load())
}

// IsConnected returns if the current state is connected.
func (m *StateMgr) IsConnected() bool {
	return m.State().IsConnected()
}

// AddHandler adds handlers invoked on state changes. Nil handlers are ignored.
func (m *StateMgr) AddHandler(handlers ...StateChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			m.handlers = append(m.handlers, h)
		}
	}
}

// ToConnected transitions to ConnectedState. It is a no-op when already connected.
func (m *StateMgr) ToConnected() {
	m.transition(ConnectedState)
}

// ToDisconnected transitions to DisconnectedState. It is a no-op when already disconnected.
func (m *StateMgr) ToDisconnected() {
	m.transition(DisconnectedState)
}

// WaitState waits until the state equals state or ctx is done.
// It returns nil once the state is reached, otherwise ctx.Err().
func (m *StateMgr) WaitState(ctx context.Context, state ConnState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == state {
		return nil
	}

	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cond.Broadcast()
	})
	defer stop()

	for m.State() != state {
		if err := ctx.Err(); err != nil {
			m.logger.Debug("wait channel state cancelled", "channel", m.name, "cur_state", m.State(), "desired_state", state)
			return err
		}
		m.cond.Wait()
	}

	return nil
}

func (m *StateMgr) transition(newState ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.State()
	if prev == newState {
		return
	}

	m.state.Store(uint32(newState))
	m.cond.Broadcast()
	m.logger.Debug("channel state changed", "channel", m.name, "prev_state", prev, "new_state", newState)

	for _, h := range m.handlers {
		h(m.name, prev, newState)
	}
}
