package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/brdc/darts-league/brackets"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// ObjectStore is the subset of an S3-compatible bucket the archiver needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
	GetPublicURL(key string) string
}

// BracketArchiver stores the final snapshot of a finished bracket.
type BracketArchiver interface {
	Archive(ctx context.Context, b *brackets.Bracket) (string, error)
}

type bracketArchiver struct {
	store ObjectStore
}

func NewBracketArchiver(store ObjectStore) BracketArchiver {
	return &bracketArchiver{store: store}
}

func ArchiveKey(b *brackets.Bracket) string {
	return fmt.Sprintf("brackets/%d/%s.json", b.TournamentID, b.ID)
}

// Archive uploads b as indented JSON and returns its public URL. The URL is
// empty when the bucket has no public base configured.
func (a *bracketArchiver) Archive(ctx context.Context, b *brackets.Bracket) (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode bracket %s for archive: %w", b.ID, err)
	}
	res, err := a.store.Upload(ctx, ArchiveKey(b), "application/json", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return res.Location, nil
}

type noopArchiver struct{}

// NewNoopArchiver is used when R2 is not configured.
func NewNoopArchiver() BracketArchiver {
	return noopArchiver{}
}

func (noopArchiver) Archive(context.Context, *brackets.Bracket) (string, error) {
	return "", nil
}
