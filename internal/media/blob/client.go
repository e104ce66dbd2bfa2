package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Misaka450/baoandkai-sub000/internal/media/key"
)

var (
	blobPutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_blob_puts_total",
			Help: "Total blob store put operations",
		},
		[]string{"result"},
	)

	blobDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_blob_deletes_total",
			Help: "Total blob store delete operations by outcome",
		},
		[]string{"outcome"},
	)

	thumbnailFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_thumbnail_failures_total",
			Help: "Total thumbnail derivations that failed (non-fatal)",
		},
	)
)

// DefaultThumbnailMaxDim bounds the longer side of derived thumbnails.
const DefaultThumbnailMaxDim = 480

// PutResult holds the public references produced by PutWithThumbnail.
// ThumbnailReference is empty when derivation failed (non-fatal).
type PutResult struct {
	Reference          string
	ThumbnailReference string
}

// Client is the blob store client used by the upload orchestrator and the
// reference reconciler. It is stateless and safe for unlimited concurrent
// callers; all locking, if any, lives in the backend.
type Client struct {
	store       Store
	thumbMaxDim int
	logger      *slog.Logger
}

// NewClient creates a blob store client over the given backend. thumbMaxDim
// bounds thumbnail dimensions; zero selects DefaultThumbnailMaxDim.
func NewClient(store Store, thumbMaxDim int, logger *slog.Logger) *Client {
	if thumbMaxDim <= 0 {
		thumbMaxDim = DefaultThumbnailMaxDim
	}
	return &Client{
		store:       store,
		thumbMaxDim: thumbMaxDim,
		logger:      logger,
	}
}

// Put uploads r under k and returns the public reference. The blob is
// retrievable at the returned reference immediately upon success.
func (c *Client) Put(ctx context.Context, k string, r io.Reader, size int64, contentType string) (string, error) {
	if err := validateKey(k); err != nil {
		blobPutsTotal.WithLabelValues("invalid_key").Inc()
		return "", err
	}

	if err := c.store.Put(ctx, k, r, size, contentType); err != nil {
		blobPutsTotal.WithLabelValues("error").Inc()
		return "", classifyPutError(k, err)
	}

	blobPutsTotal.WithLabelValues("ok").Inc()
	return c.store.PublicURL(k), nil
}

// PutWithThumbnail uploads r under k and additionally derives a bounded
// thumbnail stored under key.Thumbnail(k). Thumbnail derivation failure is
// non-fatal: the primary upload still succeeds and the result carries an
// empty thumbnail reference.
func (c *Client) PutWithThumbnail(ctx context.Context, k string, r io.Reader, size int64, contentType string) (PutResult, error) {
	if err := validateKey(k); err != nil {
		blobPutsTotal.WithLabelValues("invalid_key").Inc()
		return PutResult{}, err
	}

	// The primary put streams from r; tee the bytes aside for derivation.
	// Uploads are size-capped upstream, so the buffer is bounded.
	var buf bytes.Buffer
	buf.Grow(int(size))

	ref, err := c.Put(ctx, k, io.TeeReader(r, &buf), size, contentType)
	if err != nil {
		return PutResult{}, err
	}

	result := PutResult{Reference: ref}

	thumbBytes, thumbType, err := deriveThumbnail(buf.Bytes(), c.thumbMaxDim)
	if err != nil {
		thumbnailFailuresTotal.Inc()
		c.logger.WarnContext(ctx, "thumbnail derivation failed",
			slog.String("key", k),
			slog.String("error", err.Error()),
		)
		return result, nil
	}

	thumbKey := key.Thumbnail(k)
	thumbRef, err := c.Put(ctx, thumbKey, bytes.NewReader(thumbBytes), int64(len(thumbBytes)), thumbType)
	if err != nil {
		thumbnailFailuresTotal.Inc()
		c.logger.WarnContext(ctx, "thumbnail upload failed",
			slog.String("key", thumbKey),
			slog.String("error", err.Error()),
		)
		return result, nil
	}

	result.ThumbnailReference = thumbRef
	return result, nil
}

// Delete removes the blob at k. A key that never existed or was already
// removed yields OutcomeAlreadyAbsent, never an error: the reconciler may be
// invoked more than once for the same key.
func (c *Client) Delete(ctx context.Context, k string) DeleteOutcome {
	err := c.store.Delete(ctx, k)
	switch {
	case err == nil:
		blobDeletesTotal.WithLabelValues(OutcomeDeleted.String()).Inc()
		return OutcomeDeleted
	case errors.Is(err, ErrNotFound):
		blobDeletesTotal.WithLabelValues(OutcomeAlreadyAbsent.String()).Inc()
		return OutcomeAlreadyAbsent
	default:
		blobDeletesTotal.WithLabelValues(OutcomeFailed.String()).Inc()
		c.logger.WarnContext(ctx, "blob delete failed",
			slog.String("key", k),
			slog.String("error", err.Error()),
		)
		return OutcomeFailed
	}
}

// PublicURL returns the public reference for k without touching the backend.
func (c *Client) PublicURL(k string) string {
	return c.store.PublicURL(k)
}

// validateKey rejects keys the backend would mangle or that would escape the
// folder structure.
func validateKey(k string) error {
	if k == "" || strings.HasPrefix(k, "/") || strings.Contains(k, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, k)
	}
	if !strings.Contains(k, "/") {
		return fmt.Errorf("%w: %q has no folder", ErrInvalidKey, k)
	}
	return nil
}

// classifyPutError maps backend errors onto the client taxonomy. Errors
// already wrapped with a sentinel pass through unchanged; anything else is a
// transport-level failure.
func classifyPutError(k string, err error) error {
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("put %q: %w", k, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("put %q: %w: %v", k, ErrStoreUnavailable, err)
}
