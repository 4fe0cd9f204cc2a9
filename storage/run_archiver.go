package storage

import (
	"bytes"
	"context"
	"fmt"
)

// RunLogArchiver stores a run's encoded combat logs as a single
// newline-delimited object. One object per run, keyed by run id.
type RunLogArchiver struct {
	uploader FileUploader
}

func NewRunLogArchiver(uploader FileUploader) *RunLogArchiver {
	return &RunLogArchiver{uploader: uploader}
}

func (a *RunLogArchiver) Archive(ctx context.Context, runID int64, logs [][]byte) (string, error) {
	key := fmt.Sprintf("combat-logs/run-%d.ndjson", runID)

	body := bytes.Join(logs, []byte("\n"))
	result, err := a.uploader.Upload(ctx, key, "application/x-ndjson", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("archive combat logs for run %d: %w", runID, err)
	}
	return result.Key, nil
}

// NoopArchiver discards combat logs. Used when no object store is
// configured.
type NoopArchiver struct{}

func (NoopArchiver) Archive(_ context.Context, _ int64, _ [][]byte) (string, error) {
	return "", nil
}
