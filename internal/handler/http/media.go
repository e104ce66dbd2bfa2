package http

import (
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	"github.com/Misaka450/baoandkai-sub000/internal/event"
	"github.com/Misaka450/baoandkai-sub000/internal/media/blob/memory"
	"github.com/Misaka450/baoandkai-sub000/internal/media/upload"
	"github.com/Misaka450/baoandkai-sub000/pkg/httputil"
)

const ndjsonContentType = "application/x-ndjson"

// UploadHandler handles HTTP requests for batch media uploads.
type UploadHandler struct {
	uploader *upload.Uploader
	producer *event.Producer
	logger   *slog.Logger
}

// NewUploadHandler creates a new media upload HTTP handler.
func NewUploadHandler(uploader *upload.Uploader, producer *event.Producer, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		producer: producer,
		logger:   logger,
	}
}

// --- Response DTOs ---

// UploadResultResponse is the per-file outcome in the batch response,
// positionally aligned with the submitted files.
type UploadResultResponse struct {
	FileID             string `json:"file_id"`
	Name               string `json:"name"`
	Status             string `json:"status"`
	Reference          string `json:"reference,omitempty"`
	ThumbnailReference string `json:"thumbnail_reference,omitempty"`
	Error              string `json:"error,omitempty"`
}

// streamLine is one NDJSON line of the progress stream.
type streamLine struct {
	Type     string                 `json:"type"` // "progress" | "terminal" | "batch"
	Progress *upload.ProgressEvent  `json:"progress,omitempty"`
	Terminal *upload.TerminalEvent  `json:"terminal,omitempty"`
	Results  []UploadResultResponse `json:"results,omitempty"`
}

// UploadBatch handles POST /api/v1/media/uploads (multipart/form-data).
// Form fields: "folder" plus one or more "files" parts. When the client sends
// Accept: application/x-ndjson the response streams progress and terminal
// events as they happen, ending with a "batch" line; otherwise a single JSON
// envelope with the positional per-file results is returned after the whole
// batch has settled.
func (h *UploadHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	// Batch ceiling: form overhead on top of the per-file limits enforced by
	// the orchestrator.
	r.Body = http.MaxBytesReader(w, r.Body, 20*domain.MaxFileSize)

	if err := r.ParseMultipartForm(domain.MaxFileSize); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
		})
		return
	}

	folder := r.FormValue("folder")
	if !domain.IsValidFolder(folder) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "folder must be one of: " + strings.Join(domain.ValidFolders(), ", ")},
		})
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "at least one file is required"},
		})
		return
	}

	files, closers, err := rawFiles(headers)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "open uploaded file: " + err.Error()},
		})
		return
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	var results []upload.Result
	if strings.Contains(r.Header.Get("Accept"), ndjsonContentType) {
		results = h.uploadStreaming(w, r, folder, files)
	} else {
		results = h.uploader.UploadBatch(r.Context(), folder, files, upload.Callbacks{})
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toResponses(results)})
	}

	h.publishUploaded(r, folder, results)
}

// uploadStreaming runs the batch while writing NDJSON event lines. Progress
// callbacks fire from the per-file transfer goroutines, so writes are
// serialized with a mutex and flushed per line.
func (h *UploadHandler) uploadStreaming(w http.ResponseWriter, r *http.Request, folder string, files []upload.RawFile) []upload.Result {
	w.Header().Set("Content-Type", ndjsonContentType)
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	var mu sync.Mutex
	writeLine := func(line streamLine) {
		mu.Lock()
		defer mu.Unlock()
		// Client disconnects surface on the next write; the batch itself is
		// aborted through the request context.
		_ = enc.Encode(line)
		if flusher != nil {
			flusher.Flush()
		}
	}

	cb := upload.Callbacks{
		OnProgress: func(e upload.ProgressEvent) {
			writeLine(streamLine{Type: "progress", Progress: &e})
		},
		OnTerminal: func(e upload.TerminalEvent) {
			writeLine(streamLine{Type: "terminal", Terminal: &e})
		},
	}

	results := h.uploader.UploadBatch(r.Context(), folder, files, cb)
	writeLine(streamLine{Type: "batch", Results: toResponses(results)})
	return results
}

// publishUploaded emits a media.uploaded event per successful file. Publish
// failures are logged, never surfaced.
func (h *UploadHandler) publishUploaded(r *http.Request, folder string, results []upload.Result) {
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := h.producer.PublishMediaUploaded(r.Context(), folder, res); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to publish media.uploaded event",
				slog.String("file_id", res.FileID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func rawFiles(headers []*multipart.FileHeader) ([]upload.RawFile, []multipart.File, error) {
	files := make([]upload.RawFile, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, f)

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		files = append(files, upload.RawFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: contentType,
			Data:        f,
		})
	}

	return files, closers, nil
}

func toResponses(results []upload.Result) []UploadResultResponse {
	out := make([]UploadResultResponse, len(results))
	for i, res := range results {
		out[i] = UploadResultResponse{
			FileID:             res.FileID,
			Name:               res.Name,
			Status:             string(upload.StatusSucceeded),
			Reference:          res.Reference,
			ThumbnailReference: res.ThumbnailReference,
		}
		if res.Err != nil {
			out[i].Status = string(upload.StatusFailed)
			out[i].Error = res.Err.Error()
		}
	}
	return out
}

// ServeBlob returns a handler that serves blobs straight from the in-memory
// store. Development convenience only; production deployments serve the
// public MinIO bucket directly.
func ServeBlob(store *memory.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		k := chi.URLParam(r, "*")
		data, contentType, ok := store.Get(k)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}
}
