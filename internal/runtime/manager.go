package runtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"interviewgo/internal/interview"
	"interviewgo/internal/models"
	"interviewgo/internal/redis"
)

var (
	// ErrNoInterview is returned when a respondent has no running interview.
	ErrNoInterview = errors.New("no interview in progress")
	// ErrBusy is returned when a turn is submitted while a previous one is
	// still being answered.
	ErrBusy = errors.New("interview is busy answering a previous turn")
)

// Engine is the interview state machine the manager drives.
type Engine interface {
	Initialize(ctx context.Context, username string) (*interview.Session, error)
	SubmitRespondentTurn(ctx context.Context, sess *interview.Session, text string, onFragment func(string) error) (*interview.Reply, error)
	Abort(ctx context.Context, sess *interview.Session) error
}

// OutcomeRecorder persists terminal interview states. May be nil.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, sess *interview.Session, endedAt time.Time) error
}

type entry struct {
	session *interview.Session
	busy    bool
	cancel  context.CancelFunc
}

// Manager owns the live sessions, one per respondent, and serializes access
// to each of them.
type Manager struct {
	mu       sync.Mutex
	engine   Engine
	outcomes OutcomeRecorder
	cache    *sessionCache
	active   map[string]*entry
}

// NewManager builds a manager. The redis client and recorder are optional.
func NewManager(engine Engine, outcomes OutcomeRecorder, cache *redis.Client, cacheTTL time.Duration) *Manager {
	return &Manager{
		engine:   engine,
		outcomes: outcomes,
		cache:    newSessionCache(cache, cacheTTL),
		active:   make(map[string]*entry),
	}
}

// StartInterview returns the respondent's session, creating one if needed.
// The bool reports whether an already running session was resumed.
func (m *Manager) StartInterview(ctx context.Context, username string) (*interview.Session, bool, error) {
	m.mu.Lock()
	if e, ok := m.active[username]; ok {
		if e.busy {
			m.mu.Unlock()
			return nil, false, ErrBusy
		}
		if e.session != nil && e.session.Status == interview.StatusActive {
			sess := snapshot(e.session)
			m.mu.Unlock()
			return sess, true, nil
		}
		delete(m.active, username)
	}
	// Reserve the slot so concurrent starts do not race the oracle call.
	placeholder := &entry{busy: true}
	m.active[username] = placeholder
	m.mu.Unlock()

	sess, resumed, err := m.open(ctx, username)

	m.mu.Lock()
	if err != nil {
		delete(m.active, username)
		m.mu.Unlock()
		return nil, false, err
	}
	placeholder.session = sess
	placeholder.busy = false
	snap := snapshot(sess)
	m.mu.Unlock()

	if err := m.cache.Save(ctx, sess); err != nil {
		log.Printf("runtime: cache session for %s: %v", username, err)
	}
	return snap, resumed, nil
}

// open restores the session from the cache when possible, otherwise asks the
// engine for a fresh one.
func (m *Manager) open(ctx context.Context, username string) (*interview.Session, bool, error) {
	cached, err := m.cache.Load(ctx, username)
	if err != nil {
		log.Printf("runtime: load cached session for %s: %v", username, err)
	}
	if cached != nil {
		return cached, true, nil
	}
	sess, err := m.engine.Initialize(ctx, username)
	if err != nil {
		return nil, false, err
	}
	return sess, false, nil
}

// Submit runs one respondent turn. Concurrent submissions for the same
// respondent are rejected with ErrBusy.
//
// The engine works on a private copy of the session so concurrent Session
// reads never observe a half-built turn; the copy is published as the new
// committed state once the turn settles. The copy is published even when the
// engine reports an error, because the respondent's own turn stays committed
// across oracle failures.
func (m *Manager) Submit(ctx context.Context, username, text string, onFragment func(string) error) (*interview.Reply, error) {
	m.mu.Lock()
	e, ok := m.active[username]
	if !ok || e.session == nil {
		m.mu.Unlock()
		return nil, ErrNoInterview
	}
	if e.busy {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	turnCtx, cancel := context.WithCancel(ctx)
	e.busy = true
	e.cancel = cancel
	work := snapshot(e.session)
	m.mu.Unlock()

	reply, err := m.engine.SubmitRespondentTurn(turnCtx, work, text, onFragment)
	cancel()

	m.mu.Lock()
	e.session = work
	e.busy = false
	e.cancel = nil
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	m.afterTransition(ctx, work)
	return reply, nil
}

// Quit aborts the respondent's interview. An in-flight turn is cancelled
// first; cancellation takes effect at the next stream fragment.
func (m *Manager) Quit(ctx context.Context, username string) (*interview.Session, error) {
	m.mu.Lock()
	e, ok := m.active[username]
	if !ok || e.session == nil {
		m.mu.Unlock()
		return nil, ErrNoInterview
	}
	if e.cancel != nil {
		e.cancel()
	}
	m.mu.Unlock()

	if err := m.waitIdle(ctx, e); err != nil {
		return nil, err
	}

	// Abort works on a private copy, same as Submit, so readers only ever
	// see the session before or after the transition.
	m.mu.Lock()
	if e.busy {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	work := snapshot(e.session)
	if work.Status.Terminal() {
		m.mu.Unlock()
		return work, nil
	}
	e.busy = true
	m.mu.Unlock()

	err := m.engine.Abort(ctx, work)

	m.mu.Lock()
	if err == nil {
		e.session = work
	}
	e.busy = false
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	m.afterTransition(ctx, work)
	return work, nil
}

// waitIdle polls until the entry's in-flight turn has drained.
func (m *Manager) waitIdle(ctx context.Context, e *entry) error {
	deadline := time.Now().Add(3 * time.Second)
	for {
		m.mu.Lock()
		busy := e.busy
		m.mu.Unlock()
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("interview did not become idle")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// Session returns a snapshot of the respondent's session, if any.
func (m *Manager) Session(username string) (*interview.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.active[username]
	if !ok || e.session == nil {
		return nil, false
	}
	return snapshot(e.session), true
}

// Drop forgets the respondent's in-memory session, for example on logout.
// Persisted transcripts are unaffected.
func (m *Manager) Drop(ctx context.Context, username string) {
	m.mu.Lock()
	e, ok := m.active[username]
	if ok && e.cancel != nil {
		e.cancel()
	}
	delete(m.active, username)
	m.mu.Unlock()

	if err := m.cache.Drop(ctx, username); err != nil {
		log.Printf("runtime: drop cached session for %s: %v", username, err)
	}
}

// afterTransition syncs the cache and, at terminal transitions, records the
// outcome. Both are best effort.
func (m *Manager) afterTransition(ctx context.Context, sess *interview.Session) {
	if err := m.cache.Save(ctx, sess); err != nil {
		log.Printf("runtime: cache session for %s: %v", sess.Username, err)
	}
	if sess.Status.Terminal() && m.outcomes != nil {
		if err := m.outcomes.RecordOutcome(ctx, sess, time.Now().UTC()); err != nil {
			log.Printf("runtime: record outcome for %s: %v", sess.Username, err)
		}
	}
}

// snapshot copies the session, including the turn slice. Published sessions
// are never mutated in place, so holders of a snapshot can read it freely
// while later turns run on their own copies.
func snapshot(sess *interview.Session) *interview.Session {
	cp := *sess
	cp.Turns = append([]models.Turn(nil), sess.Turns...)
	return &cp
}
