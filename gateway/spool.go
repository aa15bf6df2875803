package gateway

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// spoolSource backs a job's payload with a temp file written at submission
// time, since the inbound request body is gone once the handler returns.
// The job owns the file until it terminates; Dispose removes it.
type spoolSource struct {
	path string
}

func (s spoolSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

func (s spoolSource) Dispose() error {
	return os.Remove(s.path)
}

// spoolPayload copies the uploaded file into the spool directory and
// settles the content type, sniffing magic bytes when the client did not
// declare one.
func spoolPayload(dir string, header *multipart.FileHeader) (spoolSource, string, error) {
	source, err := header.Open()
	if err != nil {
		return spoolSource{}, "", fmt.Errorf("opening upload: %w", err)
	}
	defer source.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return spoolSource{}, "", fmt.Errorf("spool dir: %w", err)
	}

	path := filepath.Join(dir, uuid.NewString())
	spool, err := os.Create(path)
	if err != nil {
		return spoolSource{}, "", fmt.Errorf("spool file: %w", err)
	}
	if _, err := io.Copy(spool, source); err != nil {
		spool.Close()
		_ = os.Remove(path)
		return spoolSource{}, "", fmt.Errorf("spooling upload: %w", err)
	}
	if err := spool.Close(); err != nil {
		_ = os.Remove(path)
		return spoolSource{}, "", err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if detected, err := mimetype.DetectFile(path); err == nil {
			contentType = detected.String()
		} else {
			contentType = "application/octet-stream"
		}
	}
	return spoolSource{path: path}, contentType, nil
}
