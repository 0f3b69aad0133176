package artifact

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/kuitang/movie-e2e/internal/errs"
	"github.com/kuitang/movie-e2e/internal/s3client"
)

// S3Sink uploads artifacts under {prefix}/{runID}/{file name}.
type S3Sink struct {
	client *s3client.Client
	prefix string
	runID  string
}

// NewS3Sink returns a sink writing through client.
func NewS3Sink(client *s3client.Client, prefix, runID string) *S3Sink {
	return &S3Sink{client: client, prefix: prefix, runID: runID}
}

// Key returns the object key used for a local file.
func (s *S3Sink) Key(filePath string) string {
	return path.Join(s.prefix, s.runID, filepath.Base(filePath))
}

// Upload implements Sink.
func (s *S3Sink) Upload(ctx context.Context, a Artifact) (string, error) {
	data, err := os.ReadFile(a.FilePath)
	if err != nil {
		return "", errs.Wrap(errs.Capture, "read artifact for upload", err)
	}
	key := s.Key(a.FilePath)
	if err := s.client.PutObject(ctx, key, data, a.MIMEType); err != nil {
		return "", errs.Wrap(errs.Network, "upload artifact", err)
	}
	return s.client.ObjectURL(key), nil
}
