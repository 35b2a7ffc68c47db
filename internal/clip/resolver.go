// Package clip resolves the configured clipping boundary into something
// the raster engine can open as a cutline.
package clip

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver (tests, local buckets)
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/opendem/opendem/internal/logging"
	"github.com/opendem/opendem/internal/util"
)

// Resolver turns a clipping source reference into a local path or an
// engine-streamable URL.
type Resolver struct {
	cacheDir string
	log      *slog.Logger
}

// NewResolver creates a resolver that stages downloaded boundaries under
// cacheDir.
func NewResolver(cacheDir string) *Resolver {
	return &Resolver{
		cacheDir: cacheDir,
		log:      logging.Component("clip"),
	}
}

// Resolve maps a boundary reference to an engine-openable cutline source:
//
//   - empty stays empty (no clipping)
//   - http(s) URLs are handed to the engine's streaming-read convention
//     (/vsicurl/) rather than downloaded in full
//   - blob URLs (s3://, gs://, file://) are downloaded into the cache
//     directory; objects with a .zst suffix are stream-decompressed on
//     the way down
//   - anything else is treated as a local path and returned unchanged
func (r *Resolver) Resolve(ctx context.Context, src string) (string, error) {
	if src == "" {
		return "", nil
	}

	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return "/vsicurl/" + src, nil
	}

	u, err := url.Parse(src)
	if err == nil {
		switch u.Scheme {
		case "s3", "gs", "file":
			return r.fetchBlob(ctx, u)
		}
	}

	return src, nil
}

// fetchBlob downloads a single boundary object into the cache directory
// and returns the local path.
func (r *Resolver) fetchBlob(ctx context.Context, u *url.URL) (string, error) {
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", fmt.Errorf("clipping URL %s names no object key", u)
	}

	bucketURL := *u
	bucketURL.Path = ""
	if u.Scheme == "file" {
		// file:// buckets address the directory; the last path element is
		// the object key.
		bucketURL.Path = path.Dir(u.Path)
		key = path.Base(u.Path)
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL.String())
	if err != nil {
		return "", fmt.Errorf("open boundary bucket %s: %w", bucketURL.String(), err)
	}
	defer bucket.Close()

	reader, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", fmt.Errorf("read boundary object %s: %w", key, err)
	}
	defer reader.Close()

	var src io.Reader = reader
	localName := path.Base(key)

	// Boundary objects may be stored zstd-compressed; decompress while
	// staging.
	if strings.HasSuffix(key, ".zst") {
		dec, err := zstd.NewReader(reader, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return "", fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		src = dec
		localName = strings.TrimSuffix(localName, ".zst")
	}

	if err := util.EnsureDir(r.cacheDir); err != nil {
		return "", fmt.Errorf("create cache dir %s: %w", r.cacheDir, err)
	}

	local := filepath.Join(r.cacheDir, "clipping_"+localName)
	out, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create boundary file %s: %w", local, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(local)
		return "", fmt.Errorf("stage boundary %s: %w", key, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close boundary file %s: %w", local, err)
	}

	r.log.Info("staged clipping boundary", "source", u.String(), "path", local)
	return local, nil
}
