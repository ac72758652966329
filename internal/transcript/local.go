package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"interviewgo/internal/models"
)

// LocalDisk stores transcripts on the local filesystem. Primary-tier records
// go to stable per-username files under the transcripts and times directories;
// backup-tier records go to the backups directory with the session start time
// in the file name, so each session's backup overwrites its own prior save.
type LocalDisk struct {
	transcriptsDir string
	timesDir       string
	backupsDir     string
}

// NewLocalDisk creates the three directories if needed.
func NewLocalDisk(transcriptsDir, timesDir, backupsDir string) (*LocalDisk, error) {
	for _, dir := range []string{transcriptsDir, timesDir, backupsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &LocalDisk{
		transcriptsDir: transcriptsDir,
		timesDir:       timesDir,
		backupsDir:     backupsDir,
	}, nil
}

func (l *LocalDisk) Persist(ctx context.Context, username string, turns []models.Turn, startedAt time.Time, tier Tier) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	transcriptPath, timePath := l.paths(username, startedAt, tier)

	if err := os.WriteFile(transcriptPath, []byte(FormatTranscript(turns)), 0o644); err != nil {
		return fmt.Errorf("write transcript %s: %w", transcriptPath, err)
	}
	timing := FormatTiming(startedAt, time.Now())
	if err := os.WriteFile(timePath, []byte(timing), 0o644); err != nil {
		return fmt.Errorf("write timing %s: %w", timePath, err)
	}
	return nil
}

// Exists checks the primary-tier timing file, matching how completion was
// detected in the deployed system. Backup-tier presence is never consulted.
func (l *LocalDisk) Exists(ctx context.Context, username string, tier Tier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if tier != TierPrimary {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(l.timesDir, username+".txt"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat timing file: %w", err)
}

func (l *LocalDisk) paths(username string, startedAt time.Time, tier Tier) (string, string) {
	if tier == TierPrimary {
		return filepath.Join(l.transcriptsDir, username+".txt"),
			filepath.Join(l.timesDir, username+".txt")
	}
	stamp := startedAt.UTC().Format("2006_01_02_15_04_05")
	return filepath.Join(l.backupsDir, fmt.Sprintf("%s_transcript_%s.txt", username, stamp)),
		filepath.Join(l.backupsDir, fmt.Sprintf("%s_time_%s.txt", username, stamp))
}
