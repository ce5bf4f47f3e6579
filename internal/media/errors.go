package media

import "github.com/vidtweet/backend/internal/apperr"

var (
	// ErrMissingFile indicates a required multipart file was not supplied.
	ErrMissingFile = apperr.Sentinel(apperr.InvalidRequest, "file is required")
	// ErrUnreadableVideo indicates the uploaded video has no usable duration.
	ErrUnreadableVideo = apperr.Sentinel(apperr.InvalidRequest, "unable to read video duration")
)
