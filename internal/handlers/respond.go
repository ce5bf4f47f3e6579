package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/vidtweet/backend/internal/apperr"
	"github.com/vidtweet/backend/internal/auth"
	"github.com/vidtweet/backend/internal/envelope"
	"github.com/vidtweet/backend/internal/logging"
	"github.com/vidtweet/backend/internal/query"
	"github.com/vidtweet/backend/internal/validation"
)

const (
	defaultMaxUploadBytes = 512 << 20
	multipartMemory       = 32 << 20
)

// base carries what every resource handler shares.
type base struct {
	Out     envelope.Writer
	NowFunc func() time.Time
}

func (b base) now() time.Time {
	if b.NowFunc != nil {
		return b.NowFunc()
	}
	return time.Now().UTC()
}

func (b base) ok(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	b.Out.Success(r.Context(), w, status, data, message)
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.Out.Failure(r.Context(), w, err)
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.InvalidRequest, "request body is required")
		}
		return apperr.Wrap(apperr.InvalidRequest, "invalid request body", err)
	}
	return validation.Struct(dst)
}

// parseMultipart caps the request body at maxBytes and parses it as a
// multipart form. Parts above the in-memory threshold spill to temp files.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isBodyTooLarge(err) {
			return apperr.Wrap(apperr.PayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBytes), err)
		}
		return apperr.Wrap(apperr.InvalidRequest, "invalid multipart form", err)
	}
	return nil
}

// isBodyTooLarge reports whether err came from an http.MaxBytesReader. Some
// multipart read paths flatten the error, so the message is matched as well.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// formFile returns the first file under field, or nil when absent.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	return files[0]
}

func requireFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	fh := formFile(r, field)
	if fh == nil || fh.Size == 0 {
		return nil, apperr.Newf(apperr.InvalidRequest, "%s file is required", field)
	}
	return fh, nil
}

func formValue(r *http.Request, field string) string {
	return strings.TrimSpace(r.FormValue(field))
}

func pathID(r *http.Request, name string) (string, error) {
	return query.ID(name, chi.URLParam(r, name))
}

// caller returns the authenticated user. Routes behind auth.RequireUser always have one.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func requireOwner(ownerID string, id auth.Identity, action string) error {
	if ownerID != id.UserID {
		return apperr.Newf(apperr.Forbidden, "only the owner can %s", action)
	}
	return nil
}

// discardUploads queues blobs for deletion after a failed write.
func discardUploads(ctx context.Context, janitor BlobJanitor, locations ...string) {
	if janitor == nil {
		return
	}
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := janitor.Enqueue(qctx, locations...); err != nil {
		logging.FromContext(ctx).Error("queue orphaned blobs", slog.Any("locations", locations), slog.Any("error", err))
	}
}
