package chat

import "errors"

// Error kinds surfaced by the directory and the synchronization engine.
// Callers match with errors.Is; lower layers wrap these with context.
var (
	// ErrFetchFailed means a read returned an absent or malformed value.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrWriteFailed means the store rejected or timed out a write.
	ErrWriteFailed = errors.New("write failed")
	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUploadFailed means a media upload did not complete.
	ErrUploadFailed = errors.New("upload failed")
	// ErrDownloadURLUnavailable means no download URL could be produced.
	ErrDownloadURLUnavailable = errors.New("download url unavailable")
	// ErrTimeout means a store operation exceeded its bounded wait.
	ErrTimeout = errors.New("operation timed out")
)
