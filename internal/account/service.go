package account

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"interviewgo/internal/interview"
	"interviewgo/internal/models"
)

// Service handles respondent accounts and interview outcome records.
type Service struct {
	db *sql.DB
}

// NewService builds a new account service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// RegisterUser creates a user with the supplied credentials.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	hash := hashPassword(password)
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, hash, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	return &models.User{ID: id, Username: username, PasswordHash: hash, CreatedAt: now}, nil
}

// Login validates credentials and returns the user profile.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username,
	)
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("invalid credentials")
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if user.PasswordHash != hashPassword(password) {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if id <= 0 {
		return nil, errors.New("invalid user id")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id,
	)
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// DeleteUser removes a user and cascaded data.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Outcome is one finished interview as recorded in the database.
type Outcome struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationMinutes float64   `json:"duration_minutes"`
	Turns           int       `json:"turns"`
}

// RecordInterviewOutcome persists the terminal state of a finished interview.
func (s *Service) RecordInterviewOutcome(ctx context.Context, sess *interview.Session, endedAt time.Time) (*Outcome, error) {
	if sess == nil {
		return nil, errors.New("session is required")
	}
	if !sess.Status.Terminal() {
		return nil, fmt.Errorf("session for %s is not finished", sess.Username)
	}

	out := Outcome{
		Username:        sess.Username,
		Status:          string(sess.Status),
		StartedAt:       sess.StartedAt,
		EndedAt:         endedAt.UTC(),
		DurationMinutes: endedAt.Sub(sess.StartedAt).Minutes(),
		Turns:           len(sess.VisibleTurns()),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO interviews (username, status, started_at, ended_at, duration_minutes, turns)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		out.Username, out.Status, out.StartedAt, out.EndedAt, out.DurationMinutes, out.Turns,
	)
	if err != nil {
		return nil, fmt.Errorf("record interview outcome: %w", err)
	}
	out.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("outcome id: %w", err)
	}
	return &out, nil
}

// RecordOutcome satisfies the runtime manager's recorder port.
func (s *Service) RecordOutcome(ctx context.Context, sess *interview.Session, endedAt time.Time) error {
	_, err := s.RecordInterviewOutcome(ctx, sess, endedAt)
	return err
}

// ListInterviewOutcomes returns recorded interviews for a respondent, most recent first.
func (s *Service) ListInterviewOutcomes(ctx context.Context, username string) ([]Outcome, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, status, started_at, ended_at, duration_minutes, turns
		 FROM interviews WHERE username = ? ORDER BY ended_at DESC`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("query interview outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var out Outcome
		if err := rows.Scan(&out.ID, &out.Username, &out.Status, &out.StartedAt, &out.EndedAt, &out.DurationMinutes, &out.Turns); err != nil {
			return nil, fmt.Errorf("scan interview outcome: %w", err)
		}
		outcomes = append(outcomes, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview outcomes: %w", err)
	}
	return outcomes, nil
}

func hashPassword(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
