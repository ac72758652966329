package interview

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"interviewgo/internal/models"
	"interviewgo/internal/transcript"
)

// Status of an interview session. Completed and Aborted are terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// Terminal reports whether no further transitions can leave this status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted
}

// Session is the full state of one respondent's interview attempt, keyed by
// the respondent's username. Turns are append-only while the session is
// active; the first turn is always the hidden system turn.
type Session struct {
	Username  string        `json:"username"`
	Turns     []models.Turn `json:"turns"`
	Status    Status        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	// PreviouslyCompleted marks a session that entered Completed at
	// Initialize because a primary-tier transcript already existed.
	PreviouslyCompleted bool `json:"previously_completed,omitempty"`
}

// VisibleTurns returns the respondent-facing transcript: the leading system
// turn is dropped and turns carrying a Display override are rendered with it
// in place of their stored content.
func (s *Session) VisibleTurns() []models.Turn {
	turns := s.Turns
	if len(turns) > 0 && turns[0].Role == models.RoleSystem {
		turns = turns[1:]
	}
	if len(turns) == 0 {
		return nil
	}
	out := make([]models.Turn, len(turns))
	for i, t := range turns {
		if t.Display != "" {
			t.Content = t.Display
			t.Display = ""
		}
		out[i] = t
	}
	return out
}

// Stream yields completion fragments until io.EOF. Any other error means the
// stream terminated abnormally and the accumulated text must not be committed.
type Stream interface {
	Recv() (string, error)
	Close()
}

// Oracle produces interviewer turns from the transcript so far.
type Oracle interface {
	Open(ctx context.Context, turns []models.Turn) (string, error)
	Continue(ctx context.Context, turns []models.Turn) (Stream, error)
}

// Notifier delivers the closing evaluation to the operator. Best-effort.
type Notifier interface {
	Notify(ctx context.Context, username, body string) error
}

// Reply is the committed result of one respondent turn.
type Reply struct {
	// Display is the respondent-facing interviewer text. On a problem code it
	// is the fixed closing notice; the stored transcript keeps the raw text.
	Display string
	Status  Status
	// Closing carries the fixed completion notice appended as a final turn
	// when the end code was detected, empty otherwise.
	Closing string
}

// Engine drives interview sessions: it owns the turn protocol, applies the
// termination code detector, and triggers persistence and notification side
// effects. One Engine serves all sessions; Session values carry the state.
type Engine struct {
	oracle   Oracle
	store    transcript.Store
	notifier Notifier

	testUsername    string
	systemPrompt    string
	confirmAttempts int
	confirmBackoff  time.Duration
}

// Options tune an Engine. Zero values select defaults.
type Options struct {
	TestUsername    string
	SystemPrompt    string
	ConfirmAttempts int
	ConfirmBackoff  time.Duration
}

// NewEngine wires the engine to its collaborators. The notifier may be nil.
func NewEngine(o Oracle, store transcript.Store, notifier Notifier, opts Options) *Engine {
	if opts.TestUsername == "" {
		opts.TestUsername = "testaccount"
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.ConfirmAttempts <= 0 {
		opts.ConfirmAttempts = 5
	}
	if opts.ConfirmBackoff <= 0 {
		opts.ConfirmBackoff = 200 * time.Millisecond
	}
	return &Engine{
		oracle:          o,
		store:           store,
		notifier:        notifier,
		testUsername:    opts.TestUsername,
		systemPrompt:    opts.SystemPrompt,
		confirmAttempts: opts.ConfirmAttempts,
		confirmBackoff:  opts.ConfirmBackoff,
	}
}

// Initialize creates a session for the given username. If a primary-tier
// transcript already exists for that identity, the session enters Completed
// immediately with zero oracle calls and PreviouslyCompleted set. The
// reserved test identity is always treated as not yet completed. Nothing is
// persisted by Initialize; the first persistence happens after the first
// respondent turn, or on abort.
func (e *Engine) Initialize(ctx context.Context, username string) (*Session, error) {
	if username != e.testUsername {
		done, err := e.store.Exists(ctx, username, transcript.TierPrimary)
		if err != nil {
			// Cannot tell; proceeding with a fresh session errs on the side
			// of letting the respondent talk.
			log.Printf("interview %s: completion check failed: %v", username, err)
		}
		if done {
			return &Session{Username: username, Status: StatusCompleted, PreviouslyCompleted: true}, nil
		}
	}

	turns := []models.Turn{{Role: models.RoleSystem, Content: e.systemPrompt}}
	opening, err := e.oracle.Open(ctx, turns)
	if err != nil {
		return nil, &OracleError{Err: err}
	}
	turns = append(turns, models.Turn{Role: models.RoleInterviewer, Content: opening})

	return &Session{
		Username:  username,
		Turns:     turns,
		Status:    StatusActive,
		StartedAt: time.Now().UTC(),
	}, nil
}

// SubmitRespondentTurn appends the respondent's message, obtains the streamed
// interviewer response, and applies the termination code protocol. onFragment,
// when non-nil, is invoked for every received fragment so the caller can
// render partial progress; committed state only ever reflects the fully
// accumulated text.
//
// The respondent turn stays committed even when the oracle call fails; the
// session then remains Active for a retry on the next submission.
func (e *Engine) SubmitRespondentTurn(ctx context.Context, s *Session, text string, onFragment func(string) error) (*Reply, error) {
	if s == nil || s.Status != StatusActive {
		return nil, ErrSessionNotActive
	}

	s.Turns = append(s.Turns, models.Turn{Role: models.RoleRespondent, Content: text})

	generated, err := e.generate(ctx, s.Turns, onFragment)
	if err != nil {
		return nil, err
	}

	code, outcome := DetectCode(generated)
	switch outcome {
	case OutcomeProblem:
		// The raw text is kept in the stored transcript; every respondent
		// view of the turn renders the fixed notice instead.
		s.Turns = append(s.Turns, models.Turn{
			Role:    models.RoleInterviewer,
			Content: generated,
			Display: ClosingMessage(code),
		})
		s.Status = StatusAborted
		e.persist(ctx, s, transcript.TierPrimary)
		return &Reply{Display: ClosingMessage(code), Status: s.Status}, nil

	case OutcomeEnd:
		cleaned := StripCode(generated, code)
		s.Turns = append(s.Turns, models.Turn{Role: models.RoleInterviewer, Content: cleaned})
		s.Status = StatusCompleted
		if e.notifier != nil {
			if err := e.notifier.Notify(ctx, s.Username, cleaned); err != nil {
				log.Printf("interview %s: completion notification failed: %v", s.Username, err)
			}
		}
		e.persist(ctx, s, transcript.TierPrimary)
		e.confirmDurable(ctx, s.Username)
		closing := ClosingMessage(code)
		s.Turns = append(s.Turns, models.Turn{Role: models.RoleInterviewer, Content: closing})
		return &Reply{Display: cleaned, Status: s.Status, Closing: closing}, nil

	default:
		s.Turns = append(s.Turns, models.Turn{Role: models.RoleInterviewer, Content: generated})
		e.persist(ctx, s, transcript.TierBackup)
		return &Reply{Display: generated, Status: s.Status}, nil
	}
}

// Abort ends the session early on the respondent's request. The cancellation
// notice is recorded as a final interviewer turn and the transcript is
// committed to the primary tier synchronously, best-effort.
func (e *Engine) Abort(ctx context.Context, s *Session) error {
	if s == nil || s.Status != StatusActive {
		return ErrSessionNotActive
	}
	s.Turns = append(s.Turns, models.Turn{Role: models.RoleInterviewer, Content: cancellationNotice})
	s.Status = StatusAborted
	e.persist(ctx, s, transcript.TierPrimary)
	return nil
}

// generate runs the streaming completion and accumulates fragments. Context
// cancellation is honored at each fragment boundary.
func (e *Engine) generate(ctx context.Context, turns []models.Turn, onFragment func(string) error) (string, error) {
	stream, err := e.oracle.Continue(ctx, turns)
	if err != nil {
		return "", &OracleError{Err: err}
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return "", &OracleError{Err: err}
		}
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", &OracleError{Err: err}
		}
		buf.WriteString(frag)
		if onFragment != nil {
			if err := onFragment(frag); err != nil {
				return "", &OracleError{Err: err}
			}
		}
		// Once a termination code shows up there is nothing useful left in
		// the stream, so stop reading early. The accumulated text is still
		// re-scanned by the caller.
		if code, _ := DetectCode(buf.String()); code != "" {
			break
		}
	}
	return buf.String(), nil
}

func (e *Engine) persist(ctx context.Context, s *Session, tier transcript.Tier) {
	if err := e.store.Persist(ctx, s.Username, s.Turns, s.StartedAt, tier); err != nil {
		perr := &PersistError{Tier: string(tier), Err: err}
		log.Printf("interview %s: %v", s.Username, perr)
	}
}

// confirmDurable polls the primary tier until the terminal write is observed,
// with bounded retries. The test identity is skipped because its transcripts
// are never treated as committed.
func (e *Engine) confirmDurable(ctx context.Context, username string) {
	if username == e.testUsername {
		return
	}
	backoff := e.confirmBackoff
	for attempt := 0; attempt < e.confirmAttempts; attempt++ {
		done, err := e.store.Exists(ctx, username, transcript.TierPrimary)
		if err == nil && done {
			return
		}
		select {
		case <-ctx.Done():
			log.Printf("interview %s: durable write confirmation cancelled", username)
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	log.Printf("interview %s: durable write not confirmed after %d attempts", username, e.confirmAttempts)
}
