package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencouncil/orchestrator/core"
)

// sessionEntry bundles a Session snapshot with its per-entry lock and the
// plumbing needed to cancel it and attach a single observer (§4.9).
type sessionEntry struct {
	mu sync.Mutex

	session core.Session

	cancel   context.CancelFunc
	observer EmitFunc // at most one subscriber at a time
}

// Manager is the concurrent Session Manager: a locked map from session id
// to entry, plus a background TTL sweep (§4.9).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	ttl   time.Duration
	clock core.Clock

	stopSweep chan struct{}
}

// NewManager builds a Manager with the given terminal-session TTL. A zero
// ttl falls back to core.DefaultSessionTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = core.DefaultSessionTTL
	}
	return &Manager{
		sessions:  make(map[string]*sessionEntry),
		ttl:       ttl,
		clock:     core.RealClock{},
		stopSweep: make(chan struct{}),
	}
}

// Create allocates a new session in the pending state and returns its id.
func (m *Manager) Create(orgScope string) string {
	id := uuid.NewString()
	entry := &sessionEntry{
		session: core.Session{
			ID:        id,
			CreatedAt: m.clock.Now(),
			OrgScope:  orgScope,
			Status:    core.SessionPending,
		},
	}
	m.mu.Lock()
	m.sessions[id] = entry
	m.mu.Unlock()
	return id
}

// Start transitions a session to running and returns a cancel handle the
// caller uses to propagate context cancellation into the scheduler.
func (m *Manager) Start(ctx context.Context, id string) (context.Context, context.CancelFunc, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return nil, nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)

	entry.mu.Lock()
	entry.session.Status = core.SessionRunning
	entry.cancel = cancel
	entry.mu.Unlock()

	return runCtx, cancel, nil
}

// Observe attaches emit as the session's sole subscriber. Returns an error
// if a subscriber is already attached (§4.9: "at most one at a time").
func (m *Manager) Observe(id string, emit EmitFunc) error {
	entry, err := m.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.observer != nil {
		return core.NewError("orchestration.Manager.Observe", core.ErrKindInternal, nil)
	}
	entry.observer = emit
	return nil
}

// Get returns an immutable snapshot of the session (§4.9).
func (m *Manager) Get(id string) (core.Session, error) {
	entry, err := m.lookup(id)
	if err != nil {
		return core.Session{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session, nil
}

// Cancel sets the cancel_requested flag and invokes the context cancel
// handle; cooperative, not immediate (§4.9).
func (m *Manager) Cancel(id string) error {
	entry, err := m.lookup(id)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.session.CancelRequested = true
	cancel := entry.cancel
	entry.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// IsCancelled reports whether cancellation was requested for id, for the
// scheduler's cooperative checkpoints.
func (m *Manager) IsCancelled(id string) bool {
	entry, err := m.lookup(id)
	if err != nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.CancelRequested
}

// Finish records a terminal status, output/error, and execution time, and
// forgets the observer so a finished session's entry is sweep-eligible.
func (m *Manager) Finish(id string, status core.SessionStatus, output, errMsg string, executionTimeMs int64) {
	entry, err := m.lookup(id)
	if err != nil {
		return
	}
	entry.mu.Lock()
	entry.session.Status = status
	entry.session.Output = output
	entry.session.Error = errMsg
	entry.session.ExecutionTimeMs = executionTimeMs
	entry.observer = nil
	entry.mu.Unlock()
}

func (m *Manager) lookup(id string) (*sessionEntry, error) {
	m.mu.RLock()
	entry, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, core.NewError("orchestration.Manager", core.ErrKindInternal, nil)
	}
	return entry, nil
}

// StartSweep launches a background goroutine that, every interval until
// Stop is called, removes terminal sessions whose age counted from
// CreatedAt exceeds the TTL. The time a session became terminal is not
// recorded, so a run that lasted longer than the TTL is removed at the
// first sweep after it finishes.
func (m *Manager) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweepOnce()
			case <-m.stopSweep:
				return
			}
		}
	}()
}

// Stop halts the background sweep goroutine.
func (m *Manager) Stop() {
	close(m.stopSweep)
}

func (m *Manager) sweepOnce() {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, entry := range m.sessions {
		entry.mu.Lock()
		terminal := entry.session.Status.Terminal()
		age := now.Sub(entry.session.CreatedAt)
		entry.mu.Unlock()
		if terminal && age > m.ttl {
			delete(m.sessions, id)
		}
	}
}
