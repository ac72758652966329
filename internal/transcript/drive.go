package transcript

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"interviewgo/internal/models"
)

// DriveReplica mirrors transcripts into a Google Drive folder using a service
// account. File names repeat the local layout, prefixed with the tier so both
// tiers can share one folder.
type DriveReplica struct {
	svc      *drive.Service
	folderID string
}

// NewDriveReplica builds the Drive client from a service-account credentials
// file and the target folder ID.
func NewDriveReplica(ctx context.Context, credentialsFile, folderID string) (*DriveReplica, error) {
	if folderID == "" {
		return nil, fmt.Errorf("drive folder id must be configured")
	}
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read drive credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &DriveReplica{svc: svc, folderID: folderID}, nil
}

func (d *DriveReplica) Persist(ctx context.Context, username string, turns []models.Turn, startedAt time.Time, tier Tier) error {
	transcriptName, timeName := d.names(username, startedAt, tier)
	if err := d.upload(ctx, transcriptName, FormatTranscript(turns)); err != nil {
		return err
	}
	return d.upload(ctx, timeName, FormatTiming(startedAt, time.Now()))
}

func (d *DriveReplica) Exists(ctx context.Context, username string, tier Tier) (bool, error) {
	if tier != TierPrimary {
		return false, nil
	}
	transcriptName, _ := d.names(username, time.Time{}, TierPrimary)
	id, err := d.find(ctx, transcriptName)
	if err != nil {
		return false, err
	}
	return id != "", nil
}

func (d *DriveReplica) names(username string, startedAt time.Time, tier Tier) (string, string) {
	if tier == TierPrimary {
		return username + ".txt", username + "_time.txt"
	}
	stamp := startedAt.UTC().Format("2006_01_02_15_04_05")
	return fmt.Sprintf("backup_%s_transcript_%s.txt", username, stamp),
		fmt.Sprintf("backup_%s_time_%s.txt", username, stamp)
}

// upload overwrites the named file in the folder, creating it on first write.
func (d *DriveReplica) upload(ctx context.Context, name, content string) error {
	id, err := d.find(ctx, name)
	if err != nil {
		return err
	}
	if id != "" {
		_, err = d.svc.Files.Update(id, &drive.File{}).
			Media(strings.NewReader(content)).
			Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update drive file %s: %w", name, err)
		}
		return nil
	}
	_, err = d.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{d.folderID},
	}).Media(strings.NewReader(content)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create drive file %s: %w", name, err)
	}
	return nil
}

func (d *DriveReplica) find(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), d.folderID)
	list, err := d.svc.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list drive files: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}
