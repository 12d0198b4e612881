// Package sink stores rendered artifacts in a local directory or an
// S3-compatible bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var sinkWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "whoop_sink_writes_total",
	Help: "Total artifact writes by sink kind and result",
}, []string{"kind", "result"})

// ErrInvalidName is returned for empty names or names that escape the sink root.
var ErrInvalidName = errors.New("invalid artifact name")

// Sink stores one named artifact and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Open selects a sink for target. "s3://bucket/prefix" opens an S3 sink;
// anything else is treated as a directory path.
func Open(ctx context.Context, target string, s3cfg S3Config) (Sink, error) {
	if rest, ok := strings.CutPrefix(target, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("s3 target %q has no bucket", target)
		}
		s3cfg.Bucket = bucket
		s3cfg.Prefix = strings.Trim(prefix, "/")
		return NewS3(ctx, s3cfg)
	}
	if target == "" {
		return nil, errors.New("output target is required")
	}
	return NewDir(target), nil
}

// Dir writes artifacts below a local directory, creating it on first use.
type Dir struct {
	Path string
}

// NewDir returns a directory sink rooted at path.
func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Put writes data to Path/name. contentType is ignored.
func (d *Dir) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(d.Path, 0o750); err != nil {
		sinkWritesTotal.WithLabelValues("dir", "error").Inc()
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(d.Path, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		sinkWritesTotal.WithLabelValues("dir", "error").Inc()
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	sinkWritesTotal.WithLabelValues("dir", "success").Inc()
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Artifact written")
	return path, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
