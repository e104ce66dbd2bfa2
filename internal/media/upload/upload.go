// Package upload orchestrates batches of client file uploads into the blob
// store: pre-network validation, bounded-parallel transfer, per-file progress
// reporting, and per-file failure isolation.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/Misaka450/baoandkai-sub000/internal/media/blob"
	"github.com/Misaka450/baoandkai-sub000/internal/media/key"
)

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_uploads_total",
			Help: "Total upload attempts by terminal status",
		},
		[]string{"status"},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_upload_bytes_total",
			Help: "Total bytes accepted for upload",
		},
	)
)

// Client-rejectable validation errors, checked before any network call.
var (
	ErrFileTooLarge    = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ErrTimeout means a single file's transfer exceeded the configured ceiling.
// Siblings in the same batch are unaffected; the caller may retry the file.
var ErrTimeout = errors.New("upload timed out")

// Status is the terminal (or in-flight) state of one upload task.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTransferring Status = "transferring"
	StatusSucceeded    Status = "succeeded"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// RawFile is one client-selected file. FileID may be left empty; UploadBatch
// assigns one.
type RawFile struct {
	FileID      string
	Name        string
	Size        int64
	ContentType string
	Data        io.Reader
}

// Result is the per-file outcome of UploadBatch, positionally aligned with
// the input slice.
type Result struct {
	FileID             string
	Name               string
	Size               int64
	Reference          string
	ThumbnailReference string
	Err                error
}

// ProgressEvent reports transfer progress for one in-flight file. Percent is
// monotonically non-decreasing and reaches exactly 100 on success.
type ProgressEvent struct {
	FileID         string  `json:"file_id"`
	Percent        float64 `json:"percent"`
	ThroughputKBps float64 `json:"throughput_kbps"`
}

// TerminalEvent reports the final state of one file. No further events are
// emitted for a file after its terminal event.
type TerminalEvent struct {
	FileID             string `json:"file_id"`
	Status             Status `json:"status"`
	Reference          string `json:"reference,omitempty"`
	ThumbnailReference string `json:"thumbnail_reference,omitempty"`
	Error              string `json:"error,omitempty"`
}

// Callbacks carries the optional progress observers for one batch. Both
// callbacks are invoked synchronously from the transfer path and must not
// block.
type Callbacks struct {
	OnProgress func(ProgressEvent)
	OnTerminal func(TerminalEvent)
}

func (c Callbacks) progress(e ProgressEvent) {
	if c.OnProgress != nil {
		c.OnProgress(e)
	}
}

func (c Callbacks) terminal(e TerminalEvent) {
	if c.OnTerminal != nil {
		c.OnTerminal(e)
	}
}

// Config bounds one uploader instance.
type Config struct {
	// MaxFileSize is the per-file byte ceiling. Zero selects 10 MiB.
	MaxFileSize int64
	// Concurrency bounds parallel transfers per batch. Zero selects 4.
	Concurrency int
	// Timeout is the per-file transfer ceiling. Zero selects 60s.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 10 << 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}

// Uploader transfers batches of files to the blob store. Stateless between
// calls: the concurrency pool is per-batch, so two admin sessions uploading
// simultaneously do not contend on anything here.
type Uploader struct {
	client *blob.Client
	keys   *key.Deriver
	cfg    Config
	logger *slog.Logger
}

// NewUploader creates an upload orchestrator over the given blob client.
func NewUploader(client *blob.Client, keys *key.Deriver, cfg Config, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		keys:   keys,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// UploadBatch validates and transfers files into folder. Results are
// positionally aligned with files regardless of completion order. A failing
// file never aborts its siblings; cancelling ctx aborts all in-flight
// transfers.
func (u *Uploader) UploadBatch(ctx context.Context, folder string, files []RawFile, cb Callbacks) []Result {
	results := make([]Result, len(files))

	g := new(errgroup.Group)
	g.SetLimit(u.cfg.Concurrency)

	for i := range files {
		i := i
		g.Go(func() error {
			results[i] = u.uploadOne(ctx, folder, files[i], cb)
			return nil
		})
	}

	// Tasks never return errors; Wait is only a join point.
	_ = g.Wait()

	return results
}

// uploadOne runs the full lifecycle for a single file: validate, transfer,
// emit progress and a terminal event, classify failure.
func (u *Uploader) uploadOne(ctx context.Context, folder string, f RawFile, cb Callbacks) Result {
	if f.FileID == "" {
		f.FileID = uuid.New().String()
	}
	result := Result{FileID: f.FileID, Name: f.Name, Size: f.Size}

	if err := validate(f, u.cfg.MaxFileSize); err != nil {
		uploadsTotal.WithLabelValues(string(StatusFailed)).Inc()
		cb.terminal(TerminalEvent{FileID: f.FileID, Status: StatusFailed, Error: err.Error()})
		result.Err = err
		return result
	}

	uploadBytesTotal.Add(float64(f.Size))

	fctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	k := u.keys.Derive(folder, f.Name)
	pr := newProgressReader(f.Data, f.Size, f.FileID, cb.progress)

	put, err := u.client.PutWithThumbnail(fctx, k, pr, f.Size, f.ContentType)
	if err != nil {
		status, classified := u.classifyTransferError(ctx, err)
		uploadsTotal.WithLabelValues(string(status)).Inc()
		u.logger.WarnContext(ctx, "upload failed",
			slog.String("file_id", f.FileID),
			slog.String("file_name", f.Name),
			slog.String("key", k),
			slog.String("status", string(status)),
			slog.String("error", classified.Error()),
		)
		cb.terminal(TerminalEvent{FileID: f.FileID, Status: status, Error: classified.Error()})
		result.Err = classified
		return result
	}

	pr.finish()
	uploadsTotal.WithLabelValues(string(StatusSucceeded)).Inc()

	u.logger.InfoContext(ctx, "file uploaded",
		slog.String("file_id", f.FileID),
		slog.String("file_name", f.Name),
		slog.String("key", k),
		slog.Int64("size", f.Size),
		slog.Bool("thumbnail", put.ThumbnailReference != ""),
	)

	cb.terminal(TerminalEvent{
		FileID:             f.FileID,
		Status:             StatusSucceeded,
		Reference:          put.Reference,
		ThumbnailReference: put.ThumbnailReference,
	})

	result.Reference = put.Reference
	result.ThumbnailReference = put.ThumbnailReference
	return result
}

// classifyTransferError distinguishes caller cancellation from the per-file
// timeout and transport failures.
func (u *Uploader) classifyTransferError(parent context.Context, err error) (Status, error) {
	switch {
	case parent.Err() != nil:
		return StatusCancelled, fmt.Errorf("upload cancelled: %w", parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return StatusFailed, fmt.Errorf("%w after %s", ErrTimeout, u.cfg.Timeout)
	default:
		return StatusFailed, err
	}
}

// validate applies the client-rejectable checks. Rejected files consume no
// network resources.
func validate(f RawFile, maxSize int64) error {
	if f.Name == "" {
		return fmt.Errorf("%w: file name is required", ErrUnsupportedType)
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return fmt.Errorf("%w: %q is not an image content type", ErrUnsupportedType, f.ContentType)
	}
	if f.Size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrUnsupportedType)
	}
	if f.Size > maxSize {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte ceiling", ErrFileTooLarge, f.Size, maxSize)
	}
	return nil
}
