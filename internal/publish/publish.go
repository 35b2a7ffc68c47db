// Package publish uploads run artifacts to a blob bucket.
package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/opendem/opendem/internal/logging"
)

// Publisher copies local artifacts into a bucket identified by URL
// (s3://bucket, gs://bucket, file:///dir). A zero-value URL disables
// publishing.
type Publisher struct {
	bucketURL string
	log       *slog.Logger
}

// New creates a publisher for the given bucket URL.
func New(bucketURL string) *Publisher {
	return &Publisher{
		bucketURL: bucketURL,
		log:       logging.Component("publish"),
	}
}

// Enabled reports whether a destination is configured.
func (p *Publisher) Enabled() bool { return p.bucketURL != "" }

// Publish uploads the file at localPath under its base name. Publishing
// is best-effort from the pipeline's point of view; the caller decides
// whether failures are fatal.
func (p *Publisher) Publish(ctx context.Context, localPath string) error {
	if !p.Enabled() {
		return nil
	}

	bucket, err := blob.OpenBucket(ctx, p.bucketURL)
	if err != nil {
		return fmt.Errorf("open bucket %s: %w", p.bucketURL, err)
	}
	defer bucket.Close()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact %s: %w", localPath, err)
	}
	defer f.Close()

	key := filepath.Base(localPath)
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	p.log.Info("published artifact", "key", key, "bucket", p.bucketURL)
	return nil
}
