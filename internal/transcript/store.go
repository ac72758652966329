package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	"interviewgo/internal/models"
)

// Tier namespaces where a transcript is written. The backup tier takes the
// frequent per-turn saves; the primary tier holds the authoritative record of
// a finished interview.
type Tier string

const (
	TierBackup  Tier = "backup"
	TierPrimary Tier = "primary"
)

// Store persists interview transcripts keyed by respondent identity.
//
// Persist writes the role-tagged transcript and the timing record for
// (username, tier). Repeat calls fully overwrite the prior content for that
// pair; there is no merge. Exists reports whether a primary-tier record has
// previously been committed for the identity; callers must not rely on it for
// the backup tier.
type Store interface {
	Persist(ctx context.Context, username string, turns []models.Turn, startedAt time.Time, tier Tier) error
	Exists(ctx context.Context, username string, tier Tier) (bool, error)
}

// FormatTranscript renders one line per turn, "<role>: <content>", in turn
// order. Content with embedded newlines passes through verbatim.
func FormatTranscript(turns []models.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	return b.String()
}

// FormatTiming renders the two-line timing record for a session started at
// startedAt and persisted at persistedAt.
func FormatTiming(startedAt, persistedAt time.Time) string {
	minutes := persistedAt.Sub(startedAt).Minutes()
	return fmt.Sprintf(
		"Start time (UTC): %s\nInterview duration (minutes): %.2f",
		startedAt.UTC().Format("02/01/2006 15:04:05"),
		minutes,
	)
}
