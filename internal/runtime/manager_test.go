package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"interviewgo/internal/interview"
	"interviewgo/internal/models"
)

type fakeEngine struct {
	mu         sync.Mutex
	initCalls  int
	initErr    error
	nextStatus interview.Status
	// blockSubmit, when non-nil, makes SubmitRespondentTurn wait until the
	// channel closes or the context is cancelled.
	blockSubmit chan struct{}
	abortCalls  int
}

func (f *fakeEngine) Initialize(ctx context.Context, username string) (*interview.Session, error) {
	f.mu.Lock()
	f.initCalls++
	err := f.initErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &interview.Session{
		Username: username,
		Turns: []models.Turn{
			{Role: models.RoleSystem, Content: "prompt"},
			{Role: models.RoleInterviewer, Content: "opening"},
		},
		Status:    interview.StatusActive,
		StartedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeEngine) SubmitRespondentTurn(ctx context.Context, sess *interview.Session, text string, onFragment func(string) error) (*interview.Reply, error) {
	if sess.Status != interview.StatusActive {
		return nil, interview.ErrSessionNotActive
	}
	f.mu.Lock()
	block := f.blockSubmit
	status := f.nextStatus
	f.mu.Unlock()
	// The respondent turn is appended before the oracle would be consulted,
	// same as the real engine, so it survives a cancelled turn.
	sess.Turns = append(sess.Turns, models.Turn{Role: models.RoleRespondent, Content: text})
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, &interview.OracleError{Err: ctx.Err()}
		}
	}
	sess.Turns = append(sess.Turns, models.Turn{Role: models.RoleInterviewer, Content: "answer"})
	if status != "" {
		sess.Status = status
	}
	return &interview.Reply{Display: "answer", Status: sess.Status}, nil
}

func (f *fakeEngine) Abort(ctx context.Context, sess *interview.Session) error {
	f.mu.Lock()
	f.abortCalls++
	f.mu.Unlock()
	if sess.Status != interview.StatusActive {
		return interview.ErrSessionNotActive
	}
	sess.Status = interview.StatusAborted
	return nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRecorder) RecordOutcome(ctx context.Context, sess *interview.Session, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sess.Username)
	return nil
}

func (f *fakeRecorder) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestStartInterviewResumesActiveSession(t *testing.T) {
	engine := &fakeEngine{}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	first, resumed, err := m.StartInterview(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resumed {
		t.Fatalf("first start reported resumed")
	}
	second, resumed, err := m.StartInterview(ctx, "alice")
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if !resumed {
		t.Fatalf("second start should resume the running session")
	}
	if engine.initCalls != 1 {
		t.Fatalf("engine initialized %d times, want 1", engine.initCalls)
	}
	if len(first.Turns) != len(second.Turns) {
		t.Fatalf("resumed session differs: %d vs %d turns", len(first.Turns), len(second.Turns))
	}
}

func TestStartInterviewFailureClearsSlot(t *testing.T) {
	engine := &fakeEngine{initErr: errors.New("oracle down")}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	if _, _, err := m.StartInterview(ctx, "alice"); err == nil {
		t.Fatalf("expected start failure")
	}
	engine.mu.Lock()
	engine.initErr = nil
	engine.mu.Unlock()
	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start after recovery: %v", err)
	}
}

func TestSubmitWithoutInterview(t *testing.T) {
	m := NewManager(&fakeEngine{}, nil, nil, 0)
	if _, err := m.Submit(context.Background(), "ghost", "hi", nil); !errors.Is(err, ErrNoInterview) {
		t.Fatalf("err = %v, want ErrNoInterview", err)
	}
}

func TestSubmitRejectsConcurrentTurn(t *testing.T) {
	engine := &fakeEngine{blockSubmit: make(chan struct{})}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(ctx, "alice", "slow turn", nil)
		done <- err
	}()
	waitBusy(t, m, "alice")

	if _, err := m.Submit(ctx, "alice", "second turn", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("concurrent submit err = %v, want ErrBusy", err)
	}

	close(engine.blockSubmit)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}

// waitBusy polls until the respondent's turn is in flight.
func waitBusy(t *testing.T, m *Manager, username string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.mu.Lock()
		busy := m.active[username].busy
		m.mu.Unlock()
		if busy {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("turn never became busy")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSessionSnapshotExcludesInFlightTurn(t *testing.T) {
	engine := &fakeEngine{blockSubmit: make(chan struct{})}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	base, _, err := m.StartInterview(ctx, "alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := m.Submit(ctx, "alice", "in flight", nil)
		done <- err
	}()
	waitBusy(t, m, "alice")

	// While the turn runs, readers see only the last committed state.
	for i := 0; i < 25; i++ {
		sess, ok := m.Session("alice")
		if !ok {
			t.Fatalf("session lookup failed mid-turn")
		}
		if len(sess.Turns) != len(base.Turns) {
			t.Fatalf("snapshot exposed an uncommitted turn: %d turns, want %d", len(sess.Turns), len(base.Turns))
		}
	}

	close(engine.blockSubmit)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	sess, ok := m.Session("alice")
	if !ok || len(sess.Turns) != len(base.Turns)+2 {
		t.Fatalf("committed turns = %d, want %d", len(sess.Turns), len(base.Turns)+2)
	}
}

func TestSubmitRecordsTerminalOutcome(t *testing.T) {
	engine := &fakeEngine{nextStatus: interview.StatusCompleted}
	recorder := &fakeRecorder{}
	m := NewManager(engine, recorder, nil, 0)
	ctx := context.Background()

	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	reply, err := m.Submit(ctx, "alice", "final words", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if reply.Status != interview.StatusCompleted {
		t.Fatalf("status = %v", reply.Status)
	}
	if got := recorder.recorded(); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("recorded outcomes = %v", got)
	}
}

func TestQuitAbortsActiveInterview(t *testing.T) {
	engine := &fakeEngine{}
	recorder := &fakeRecorder{}
	m := NewManager(engine, recorder, nil, 0)
	ctx := context.Background()

	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess, err := m.Quit(ctx, "alice")
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if sess.Status != interview.StatusAborted {
		t.Fatalf("status = %v, want aborted", sess.Status)
	}
	if got := recorder.recorded(); len(got) != 1 {
		t.Fatalf("recorded outcomes = %v", got)
	}

	// Quitting again is idempotent: same terminal session, no second abort.
	sess, err = m.Quit(ctx, "alice")
	if err != nil {
		t.Fatalf("second quit: %v", err)
	}
	if sess.Status != interview.StatusAborted {
		t.Fatalf("second quit status = %v", sess.Status)
	}
	if engine.abortCalls != 1 {
		t.Fatalf("abort calls = %d, want 1", engine.abortCalls)
	}
}

func TestQuitCancelsInFlightTurn(t *testing.T) {
	engine := &fakeEngine{blockSubmit: make(chan struct{})}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}

	submitErr := make(chan error, 1)
	go func() {
		_, err := m.Submit(ctx, "alice", "hanging turn", nil)
		submitErr <- err
	}()

	waitBusy(t, m, "alice")

	sess, err := m.Quit(ctx, "alice")
	if err != nil {
		t.Fatalf("quit: %v", err)
	}
	if sess.Status != interview.StatusAborted {
		t.Fatalf("status = %v, want aborted", sess.Status)
	}
	if err := <-submitErr; err == nil {
		t.Fatalf("expected the in-flight submit to fail after cancellation")
	}
	// The respondent's turn from the cancelled submit stays committed.
	found := false
	for _, turn := range sess.Turns {
		if turn.Role == models.RoleRespondent && turn.Content == "hanging turn" {
			found = true
		}
	}
	if !found {
		t.Fatalf("cancelled turn lost the respondent's message: %+v", sess.Turns)
	}
}

func TestSessionAndDrop(t *testing.T) {
	engine := &fakeEngine{}
	m := NewManager(engine, nil, nil, 0)
	ctx := context.Background()

	if _, ok := m.Session("alice"); ok {
		t.Fatalf("unexpected session before start")
	}
	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	sess, ok := m.Session("alice")
	if !ok || sess.Username != "alice" {
		t.Fatalf("session lookup failed: %v %v", sess, ok)
	}

	m.Drop(ctx, "alice")
	if _, ok := m.Session("alice"); ok {
		t.Fatalf("session survived drop")
	}
	// A new start initializes again.
	if _, _, err := m.StartInterview(ctx, "alice"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if engine.initCalls != 2 {
		t.Fatalf("init calls = %d, want 2", engine.initCalls)
	}
}
