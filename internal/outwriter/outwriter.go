// Package outwriter has output and writer logic.
package outwriter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/huangsam/peakbase/internal/blob"
	"github.com/huangsam/peakbase/internal/contract"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and targets (stdout, local
// files, s3:// objects) behind one API for the command layer.
type OutWriter struct {
	cfg      *contract.Config
	stdout   io.Writer
	stderr   io.Writer
	uploader contract.BlobUploader
}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter(cfg *contract.Config) *OutWriter {
	return &OutWriter{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
}

// WithStdout redirects console output.
func (ow *OutWriter) WithStdout(w io.Writer) *OutWriter {
	ow.stdout = w
	return ow
}

// WithStderr redirects status messages.
func (ow *OutWriter) WithStderr(w io.Writer) *OutWriter {
	ow.stderr = w
	return ow
}

// WithUploader sets the uploader used for s3:// targets. Without one, an
// S3 uploader is built from the configuration on first use.
func (ow *OutWriter) WithUploader(u contract.BlobUploader) *OutWriter {
	ow.uploader = u
	return ow
}

func (ow *OutWriter) getUploader(ctx context.Context) (contract.BlobUploader, error) {
	if ow.uploader != nil {
		return ow.uploader, nil
	}
	u, err := blob.NewS3Uploader(ctx, blob.Config{
		Region:    ow.cfg.S3Region,
		Endpoint:  ow.cfg.S3Endpoint,
		PathStyle: ow.cfg.S3PathStyle,
	})
	if err != nil {
		return nil, err
	}
	ow.uploader = u
	return u, nil
}

// writeWithFile handles the common pattern of opening a target, writing to it, and cleaning up.
// An empty target is the console; an s3:// target is buffered and uploaded once writer succeeds.
func (ow *OutWriter) writeWithFile(ctx context.Context, target string, writer func(io.Writer) error, successMsg string) error {
	switch {
	case target == "":
		return writer(ow.stdout)
	case contract.IsRemoteTarget(target):
		var buf bytes.Buffer
		if err := writer(&buf); err != nil {
			return err
		}
		uploader, err := ow.getUploader(ctx)
		if err != nil {
			return err
		}
		if err := uploader.Upload(ctx, target, &buf); err != nil {
			return err
		}
	default:
		file, err := contract.SelectOutputFile(target)
		if err != nil {
			return err
		}
		if err := writer(file); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(ow.stderr, "💾 %s to %s\n", successMsg, target)
	return nil
}
