// Package drive uploads newly learned question/answer pairs to a Google
// Drive folder so the offline ingestion pipeline can pick them up later.
package drive

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Uploader writes text files into a fixed Drive folder using a service
// account. Implements the agent's Uploader contract.
type Uploader struct {
	service  *drive.Service
	folderID string
}

// NewUploader builds an Uploader from service-account credentials JSON.
func NewUploader(ctx context.Context, credentialsJSON []byte, folderID string) (*Uploader, error) {
	if folderID == "" {
		return nil, fmt.Errorf("drive folder id is required")
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Uploader{service: service, folderID: folderID}, nil
}

// Upload creates a plain-text file in the configured folder and returns the
// file ID.
func (u *Uploader) Upload(ctx context.Context, name string, content []byte) (string, error) {
	file := &drive.File{
		Name:    name,
		Parents: []string{u.folderID},
	}

	created, err := u.service.Files.Create(file).
		Media(bytes.NewReader(content)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to drive: %w", name, err)
	}

	return created.Id, nil
}
