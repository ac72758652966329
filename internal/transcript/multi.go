package transcript

import (
	"context"
	"errors"
	"fmt"
	"time"

	"interviewgo/internal/config"
	"interviewgo/internal/models"
)

// NoOp discards every write. Used when persistence is disabled.
type NoOp struct{}

func (NoOp) Persist(context.Context, string, []models.Turn, time.Time, Tier) error {
	return nil
}

func (NoOp) Exists(context.Context, string, Tier) (bool, error) {
	return false, nil
}

// Multi fans writes out to several stores. The first store is authoritative
// for Exists; later stores are consulted only when earlier ones fail.
type Multi struct {
	stores []Store
}

func NewMulti(stores ...Store) *Multi {
	return &Multi{stores: stores}
}

func (m *Multi) Persist(ctx context.Context, username string, turns []models.Turn, startedAt time.Time, tier Tier) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Persist(ctx, username, turns, startedAt, tier); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Exists(ctx context.Context, username string, tier Tier) (bool, error) {
	var firstErr error
	for _, s := range m.stores {
		done, err := s.Exists(ctx, username, tier)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return done, nil
	}
	return false, firstErr
}

// FromConfig builds the store selected by cfg.Transcripts.Backend.
func FromConfig(ctx context.Context, cfg *config.Config) (Store, error) {
	t := cfg.Transcripts
	switch t.Backend {
	case "none":
		return NoOp{}, nil
	case "local":
		return NewLocalDisk(t.TranscriptsDir, t.TimesDir, t.BackupsDir)
	case "drive":
		return NewDriveReplica(ctx, cfg.Drive.CredentialsFile, cfg.Drive.FolderID)
	case "both":
		local, err := NewLocalDisk(t.TranscriptsDir, t.TimesDir, t.BackupsDir)
		if err != nil {
			return nil, err
		}
		remote, err := NewDriveReplica(ctx, cfg.Drive.CredentialsFile, cfg.Drive.FolderID)
		if err != nil {
			return nil, err
		}
		return NewMulti(local, remote), nil
	default:
		return nil, fmt.Errorf("unsupported transcript backend: %s", t.Backend)
	}
}
